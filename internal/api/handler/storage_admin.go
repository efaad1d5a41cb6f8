package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vfg2006/billing-manager-api/infrastructure/storage"
	"github.com/vfg2006/billing-manager-api/internal/maintenance"
	"github.com/vfg2006/billing-manager-api/internal/usecases/billing"
	"github.com/vfg2006/billing-manager-api/pkg/apiErrors"
	"github.com/vfg2006/billing-manager-api/pkg/log"
)

// RestoreRequest identifica o backup a restaurar; vazio restaura o mais recente.
type RestoreRequest struct {
	BackupKey string `json:"backupKey"`
}

func GetStorageStats(engine *storage.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := engine.GetStorageStats()
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("storage: erro ao coletar estatísticas")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao coletar estatísticas do armazenamento", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.ForContext(r.Context()).WithError(err).Error("storage: erro ao enviar estatísticas")
		}
	})
}

func CreateBackup(engine *storage.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := engine.CreateBackup(); err != nil {
			log.ForContext(r.Context()).WithError(err).Error("storage: erro ao criar backup")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao criar backup", nil)
			return
		}

		backups, err := engine.ListBackups()
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Backup criado, mas erro ao listar backups", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"backups": backups})
	})
}

func ListBackups(engine *storage.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backups, err := engine.ListBackups()
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao listar backups", nil)
			return
		}

		response := map[string]any{"backups": backups}
		if at, ok := engine.LastBackupAt(); ok {
			response["lastBackupAt"] = at.Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})
}

// RestoreBackup restaura um backup e recarrega o estado em memória do
// serviço de faturamento para refletir o que foi restaurado.
func RestoreBackup(engine *storage.Engine, biller billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		var req RestoreRequest
		if r.Body != nil {
			// corpo vazio é aceito: restaura o backup mais recente
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		if err := engine.RestoreFromBackup(req.BackupKey); err != nil {
			if errors.Is(err, storage.ErrBackupNotFound) {
				apiErrors.WriteError(w, apiErrors.ErrResourceNotFound, "Backup não encontrado", nil)
				return
			}
			logger.WithError(err).Error("storage: erro ao restaurar backup")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao restaurar backup", nil)
			return
		}

		if err := biller.Reload(); err != nil {
			logger.WithError(err).Error("storage: backup restaurado, mas erro ao recarregar estado")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Backup restaurado, mas erro ao recarregar estado", nil)
			return
		}

		logger.WithField("backup_key", req.BackupKey).Info("storage: backup restaurado")

		w.WriteHeader(http.StatusNoContent)
	})
}

// RunIntegrityCheck executa a validação de integridade sob demanda e devolve
// quantos lançamentos inválidos foram descartados.
func RunIntegrityCheck(engine *storage.Engine, biller billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dropped, err := engine.ValidateDataIntegrity()
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("storage: erro na validação de integridade")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro na validação de integridade", nil)
			return
		}

		if dropped > 0 {
			if err := biller.Reload(); err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Reparo aplicado, mas erro ao recarregar estado", nil)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"droppedEntries": dropped})
	})
}

// RunArchive arquiva lançamentos mais antigos que a janela de retenção.
func RunArchive(engine *storage.Engine, biller billing.Biller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		archived, err := engine.ArchiveOldData(time.Now())
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("storage: erro ao arquivar dados antigos")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao arquivar dados antigos", nil)
			return
		}

		if archived > 0 {
			if err := biller.Reload(); err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Arquivamento aplicado, mas erro ao recarregar estado", nil)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"archivedEntries": archived})
	})
}

// RunMaintenance dispara manualmente a passada de manutenção agendada.
func RunMaintenance(scheduler *maintenance.Scheduler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheduler.TriggerManualMaintenance()

		w.WriteHeader(http.StatusAccepted)
	})
}

// GetMaintenanceStatus devolve o status do agendador de manutenção.
func GetMaintenanceStatus(scheduler *maintenance.Scheduler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(scheduler.GetStatus()); err != nil {
			log.ForContext(r.Context()).WithError(err).Error("maintenance: erro ao enviar status")
		}
	})
}
