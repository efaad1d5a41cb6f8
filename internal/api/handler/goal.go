package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/vfg2006/billing-manager-api/internal/domain"
	"github.com/vfg2006/billing-manager-api/internal/usecases/billing"
	"github.com/vfg2006/billing-manager-api/pkg/apiErrors"
	"github.com/vfg2006/billing-manager-api/pkg/log"
	"github.com/vfg2006/billing-manager-api/pkg/middleware"
)

var errInvalidMonthYear = errors.New("parâmetros month e year são obrigatórios e numéricos")

// GoalRequest é o corpo de definição de meta mensal.
type GoalRequest struct {
	Month  int     `json:"month"`
	Year   int     `json:"year"`
	Amount float64 `json:"amount"`
}

// ListGoals devolve as metas visíveis ao usuário: todas para o proprietário,
// apenas as do próprio segmento para um gestor.
func ListGoals(service billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(middleware.ContextKeyUser).(*domain.Claims)
		if !ok {
			apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Usuário não autenticado", nil)
			return
		}

		goals := service.Goals()

		if claims.UserRole != domain.RoleOwner {
			prefix := string(claims.UserSegment) + "-"
			visible := make(domain.GoalMap)
			for key, amount := range goals {
				if strings.HasPrefix(key, prefix) {
					visible[key] = amount
				}
			}
			goals = visible
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(goals); err != nil {
			log.ForContext(r.Context()).WithError(err).Error("goals: erro ao enviar metas")
		}
	})
}

func UpsertGoal(service billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segment, store, err := segmentStoreFromRequest(r)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
			return
		}

		var req GoalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Formato de requisição inválido", nil)
			return
		}

		if err := service.UpsertGoal(segment, store, req.Month, req.Year, req.Amount); err != nil {
			writeBillingError(w, err)
			return
		}

		log.ForContext(r.Context()).WithFields(log.Fields{
			"segment": segment,
			"store":   store,
			"month":   req.Month,
			"year":    req.Year,
		}).Info("goals: meta definida")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"key":    domain.GoalKey(segment, store, req.Month, req.Year),
			"amount": req.Amount,
		})
	})
}

func DeleteGoal(service billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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

		if err := service.DeleteGoal(segment, store, month, year); err != nil {
			writeBillingError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

// monthYearFromQuery lê os parâmetros month e year da query string.
func monthYearFromQuery(r *http.Request) (int, int, error) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		return 0, 0, errInvalidMonthYear
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		return 0, 0, errInvalidMonthYear
	}

	return month, year, nil
}
