package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/vfg2006/billing-manager-api/internal/domain"
	"github.com/vfg2006/billing-manager-api/internal/usecases/billing"
	"github.com/vfg2006/billing-manager-api/pkg/apiErrors"
	"github.com/vfg2006/billing-manager-api/pkg/log"
)

// EntryRequest é o corpo de criação e edição de lançamentos.
type EntryRequest struct {
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

func (r EntryRequest) fields() domain.EntryFields {
	return domain.EntryFields{
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Amount:      r.Amount,
		Description: r.Description,
	}
}

// segmentStoreFromRequest resolve o par segmento/loja dos parâmetros da rota.
func segmentStoreFromRequest(r *http.Request) (domain.Segment, string, error) {
	params := httprouter.ParamsFromContext(r.Context())

	segment, err := domain.ParseSegment(params.ByName("segment"))
	if err != nil {
		return "", "", err
	}

	store := params.ByName("store")
	if !segment.ValidStore(store) {
		return "", "", errors.Errorf("loja desconhecida no segmento %s: %q", segment, store)
	}

	return segment, store, nil
}

func ListEntries(service billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segment, store, err := segmentStoreFromRequest(r)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
			return
		}

		entries := service.StoreEntries(segment, store)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			log.ForContext(r.Context()).WithError(err).Error("billing: erro ao enviar lançamentos")
		}
	})
}

func CreateEntry(service billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		segment, store, err := segmentStoreFromRequest(r)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
			return
		}

		var req EntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Formato de requisição inválido", nil)
			return
		}

		entry, err := service.CreateEntry(segment, store, req.fields())
		if err != nil {
			writeBillingError(w, err)
			return
		}

		logger.WithFields(log.Fields{
			"entry_id": entry.ID,
			"segment":  segment,
			"store":    store,
		}).Info("billing: lançamento criado")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			logger.WithError(err).Error("billing: erro ao enviar lançamento criado")
		}
	})
}

func UpdateEntry(service billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segment, store, err := segmentStoreFromRequest(r)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
			return
		}

		id := httprouter.ParamsFromContext(r.Context()).ByName("id")

		var req EntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Formato de requisição inválido", nil)
			return
		}

		entry, err := service.UpdateEntry(id, segment, store, req.fields())
		if err != nil {
			writeBillingError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			log.ForContext(r.Context()).WithError(err).Error("billing: erro ao enviar lançamento atualizado")
		}
	})
}

func DeleteEntry(service billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segment, store, err := segmentStoreFromRequest(r)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
			return
		}

		id := httprouter.ParamsFromContext(r.Context()).ByName("id")

		if err := service.DeleteEntry(id, segment, store); err != nil {
			writeBillingError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

// writeBillingError converte os erros do domínio de faturamento em respostas
// HTTP: validação e não-encontrado têm códigos próprios, o resto é interno.
func writeBillingError(w http.ResponseWriter, err error) {
	var validationErr *billing.ValidationError
	if errors.As(err, &validationErr) {
		apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, validationErr.Error(), map[string]any{
			"reasons": validationErr.Reasons,
		})
		return
	}

	var notFoundErr *billing.NotFoundError
	if errors.As(err, &notFoundErr) {
		apiErrors.WriteError(w, apiErrors.ErrResourceNotFound, notFoundErr.Error(), nil)
		return
	}

	apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro interno ao processar a operação", nil)
}
