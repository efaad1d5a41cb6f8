package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinas/alice"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/infrastructure/storage"
	"github.com/vfg2006/billing-manager-api/infrastructure/syncgateway"
	"github.com/vfg2006/billing-manager-api/internal/api/handler"
	"github.com/vfg2006/billing-manager-api/internal/api/handler/router"
	"github.com/vfg2006/billing-manager-api/internal/config"
	"github.com/vfg2006/billing-manager-api/internal/maintenance"
	"github.com/vfg2006/billing-manager-api/internal/usecases/authenticating"
	"github.com/vfg2006/billing-manager-api/internal/usecases/billing"
	"github.com/vfg2006/billing-manager-api/internal/usecases/exporting"
	"github.com/vfg2006/billing-manager-api/pkg/middleware"
)

type Server struct {
	httpServer *http.Server
}

func New(
	config *config.Config,
	billingService billing.Biller,
	exportService exporting.Exporter,
	authenticator authenticating.Authenticator,
	engine *storage.Engine,
	maintenanceScheduler *maintenance.Scheduler,
	mirror *syncgateway.Mirror,
) (*Server, error) {
	configs := []router.ConfigRouter{
		router.WithRoutes(handler.Healthcheck()...),
		router.WithRoutes(handler.Authentication(authenticator)...),
		router.WithRoutes(handler.Billing(billingService)...),
		router.WithRoutes(handler.Goals(billingService)...),
		router.WithRoutes(handler.Reports(billingService)...),
		router.WithRoutes(handler.StorageAdmin(engine, billingService)...),
		router.WithRoutes(handler.Maintenance(maintenanceScheduler)...),
		router.WithRoutes(handler.Exporting(exportService)...),
	}

	// rotas de sincronização só existem com o espelhamento habilitado
	if mirror != nil {
		configs = append(configs, router.WithRoutes(handler.Sync(mirror, billingService)...))
	}

	rt := router.New(configs...)

	middlewares := []alice.Constructor{
		middleware.LogPanicMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.Cors(),
		middleware.AuthMiddleware(authenticator),
	}

	handler := alice.New(middlewares...).Then(rt)

	srv := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 2 * time.Second,
		},
	}

	return srv, nil
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		logrus.WithFields(logrus.Fields{
			"address": s.httpServer.Addr,
		}).Info("Servidor iniciando")

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("Erro durante a execução do servidor")
		}
	}()

	// Canal para aguardar sinais de término
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// Aguardar pelo sinal ou pelo cancelamento do contexto
	select {
	case <-done:
		logrus.Info("Sinal de interrupção recebido")
	case <-ctx.Done():
		logrus.Info("Contexto de aplicação cancelado")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logrus.WithFields(logrus.Fields{
		"timeout": "15s",
	}).Info("Iniciando desligamento gracioso do servidor")

	if err := s.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Erro durante o desligamento do servidor")
		return err
	}

	logrus.Info("Servidor desligado com sucesso")
	return nil
}

func (s Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		return err
	}

	logrus.Info("Servidor HTTP desligado com sucesso")
	return nil
}
