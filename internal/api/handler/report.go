package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/vfg2006/billing-manager-api/internal/domain"
	"github.com/vfg2006/billing-manager-api/internal/usecases/billing"
	"github.com/vfg2006/billing-manager-api/pkg/apiErrors"
	"github.com/vfg2006/billing-manager-api/pkg/log"
)

// GetStoreReport devolve o relatório mensal de uma loja: total atribuído ao
// mês, média diária, projeção e progresso contra a meta.
func GetStoreReport(service billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		segment, store, err := segmentStoreFromRequest(r)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
			return
		}

		month, year, err := monthYearFromQuery(r)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
			return
		}

		report, err := service.StoreReport(segment, store, month, year)
		if err != nil {
			logger.WithFields(log.Fields{
				"segment": segment,
				"store":   store,
				"month":   month,
				"year":    year,
			}).WithError(err).Warn("reports: erro ao montar relatório da loja")
			writeBillingError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			logger.WithError(err).Error("reports: erro ao enviar relatório da loja")
		}
	})
}

// GetSegmentReport consolida o relatório mensal de todas as lojas do segmento.
func GetSegmentReport(service billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		params := httprouter.ParamsFromContext(r.Context())
		segment, err := domain.ParseSegment(params.ByName("segment"))
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
			return
		}

		month, year, err := monthYearFromQuery(r)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
			return
		}

		report, err := service.SegmentReport(segment, month, year)
		if err != nil {
			logger.WithFields(log.Fields{
				"segment": segment,
				"month":   month,
				"year":    year,
			}).WithError(err).Warn("reports: erro ao montar relatório do segmento")
			writeBillingError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			logger.WithError(err).Error("reports: erro ao enviar relatório do segmento")
		}
	})
}
