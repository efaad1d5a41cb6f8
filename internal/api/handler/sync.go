package handler

import (
	"encoding/json"
	"net/http"

	"github.com/vfg2006/billing-manager-api/infrastructure/syncgateway"
	"github.com/vfg2006/billing-manager-api/internal/usecases/billing"
	"github.com/vfg2006/billing-manager-api/pkg/apiErrors"
	"github.com/vfg2006/billing-manager-api/pkg/log"
)

// GetSyncStatus informa quantas operações aguardam replicação remota.
func GetSyncStatus(mirror *syncgateway.Mirror) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"pendingOperations": mirror.PendingCount(),
		})
	})
}

// ReplaySync reaplica a fila de operações pendentes contra o remoto.
func ReplaySync(mirror *syncgateway.Mirror) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replayed, err := mirror.Replay(r.Context())
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Warn("sync: replay interrompido por falha remota")
			apiErrors.WriteError(w, apiErrors.ErrExternalService, "Replicação remota falhou", map[string]any{
				"replayed": replayed,
				"pending":  mirror.PendingCount(),
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"replayed": replayed})
	})
}

// MigrateToRemote envia o estado local inteiro ao armazenamento remoto.
// Usado uma única vez na adoção do espelhamento.
func MigrateToRemote(mirror *syncgateway.Mirror, biller billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cache, goals := biller.Snapshot()

		migrated, err := mirror.MigrateLocalData(r.Context(), cache, goals)
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("sync: migração para o remoto falhou")
			apiErrors.WriteError(w, apiErrors.ErrExternalService, "Migração para o armazenamento remoto falhou", map[string]any{
				"migrated": migrated,
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"migrated": migrated})
	})
}
