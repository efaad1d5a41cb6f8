package handler

import (
	"net/http"

	"github.com/vfg2006/billing-manager-api/infrastructure/storage"
	"github.com/vfg2006/billing-manager-api/infrastructure/syncgateway"
	"github.com/vfg2006/billing-manager-api/internal/api/handler/router"
	"github.com/vfg2006/billing-manager-api/internal/maintenance"
	"github.com/vfg2006/billing-manager-api/internal/usecases/authenticating"
	"github.com/vfg2006/billing-manager-api/internal/usecases/billing"
	"github.com/vfg2006/billing-manager-api/internal/usecases/exporting"
	"github.com/vfg2006/billing-manager-api/pkg/middleware"
)

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
	}
}

func Authentication(service authenticating.Authenticator) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/login",
			Method:  http.MethodPost,
			Handler: Login(service),
		},
		{
			Path:        "/v1/me",
			Method:      http.MethodGet,
			Handler:     GetMe(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllUsers()},
		},
	}
}

// Billing retorna as rotas de lançamentos de faturamento. Leitura exige
// visibilidade do segmento; escrita exige o gestor do próprio segmento.
func Billing(service billing.Biller) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/segments/:segment/stores/:store/entries",
			Method:      http.MethodGet,
			Handler:     ListEntries(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.SegmentRead()},
		},
		{
			Path:        "/v1/segments/:segment/stores/:store/entries",
			Method:      http.MethodPost,
			Handler:     CreateEntry(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.SegmentWrite()},
		},
		{
			Path:        "/v1/segments/:segment/stores/:store/entries/:id",
			Method:      http.MethodPut,
			Handler:     UpdateEntry(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.SegmentWrite()},
		},
		{
			Path:        "/v1/segments/:segment/stores/:store/entries/:id",
			Method:      http.MethodDelete,
			Handler:     DeleteEntry(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.SegmentWrite()},
		},
	}
}

func Goals(service billing.Biller) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/goals",
			Method:      http.MethodGet,
			Handler:     ListGoals(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllUsers()},
		},
		{
			Path:        "/v1/segments/:segment/stores/:store/goals",
			Method:      http.MethodPut,
			Handler:     UpsertGoal(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.SegmentWrite()},
		},
		{
			Path:        "/v1/segments/:segment/stores/:store/goals",
			Method:      http.MethodDelete,
			Handler:     DeleteGoal(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.SegmentWrite()},
		},
	}
}

func Reports(service billing.Biller) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/segments/:segment/report",
			Method:      http.MethodGet,
			Handler:     GetSegmentReport(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.SegmentRead()},
		},
		{
			Path:        "/v1/segments/:segment/stores/:store/report",
			Method:      http.MethodGet,
			Handler:     GetStoreReport(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.SegmentRead()},
		},
	}
}

// StorageAdmin retorna as rotas administrativas do armazenamento,
// restritas ao proprietário.
func StorageAdmin(engine *storage.Engine, biller billing.Biller) []router.Route {
	ownerOnly := []func(http.Handler) http.Handler{middleware.OwnerOnly()}

	return []router.Route{
		{
			Path:        "/v1/storage/stats",
			Method:      http.MethodGet,
			Handler:     GetStorageStats(engine),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/storage/backups",
			Method:      http.MethodGet,
			Handler:     ListBackups(engine),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/storage/backups",
			Method:      http.MethodPost,
			Handler:     CreateBackup(engine),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/storage/restore",
			Method:      http.MethodPost,
			Handler:     RestoreBackup(engine, biller),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/storage/integrity",
			Method:      http.MethodPost,
			Handler:     RunIntegrityCheck(engine, biller),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/storage/archive",
			Method:      http.MethodPost,
			Handler:     RunArchive(engine, biller),
			Middlewares: ownerOnly,
		},
	}
}

func Maintenance(scheduler *maintenance.Scheduler) []router.Route {
	ownerOnly := []func(http.Handler) http.Handler{middleware.OwnerOnly()}

	return []router.Route{
		{
			Path:        "/v1/maintenance/run",
			Method:      http.MethodPost,
			Handler:     RunMaintenance(scheduler),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/maintenance/status",
			Method:      http.MethodGet,
			Handler:     GetMaintenanceStatus(scheduler),
			Middlewares: ownerOnly,
		},
	}
}

func Exporting(service exporting.Exporter) []router.Route {
	ownerOnly := []func(http.Handler) http.Handler{middleware.OwnerOnly()}

	return []router.Route{
		{
			Path:        "/v1/export/json",
			Method:      http.MethodGet,
			Handler:     ExportJSON(service),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/export/csv",
			Method:      http.MethodGet,
			Handler:     ExportCSV(service),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/import/json",
			Method:      http.MethodPost,
			Handler:     ImportJSON(service),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/import/csv",
			Method:      http.MethodPost,
			Handler:     ImportCSV(service),
			Middlewares: ownerOnly,
		},
	}
}

// Sync retorna as rotas do espelhamento remoto; registradas apenas quando o
// espelhamento está habilitado.
func Sync(mirror *syncgateway.Mirror, biller billing.Biller) []router.Route {
	ownerOnly := []func(http.Handler) http.Handler{middleware.OwnerOnly()}

	return []router.Route{
		{
			Path:        "/v1/sync/status",
			Method:      http.MethodGet,
			Handler:     GetSyncStatus(mirror),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/sync/replay",
			Method:      http.MethodPost,
			Handler:     ReplaySync(mirror),
			Middlewares: ownerOnly,
		},
		{
			Path:        "/v1/sync/migrate",
			Method:      http.MethodPost,
			Handler:     MigrateToRemote(mirror, biller),
			Middlewares: ownerOnly,
		},
	}
}
