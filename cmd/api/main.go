package main

import (
	"context"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/infrastructure/database/postgres"
	"github.com/vfg2006/billing-manager-api/infrastructure/kvstore"
	"github.com/vfg2006/billing-manager-api/infrastructure/storage"
	"github.com/vfg2006/billing-manager-api/infrastructure/syncgateway"
	"github.com/vfg2006/billing-manager-api/internal/api"
	"github.com/vfg2006/billing-manager-api/internal/config"
	"github.com/vfg2006/billing-manager-api/internal/maintenance"
	"github.com/vfg2006/billing-manager-api/internal/usecases/authenticating"
	"github.com/vfg2006/billing-manager-api/internal/usecases/billing"
	"github.com/vfg2006/billing-manager-api/internal/usecases/exporting"
)

func main() {
	// Inicializa configuração de logs
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	// Define o nível de log com base na configuração
	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Nível de log inválido: %s, usando 'info'", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	logrus.Infof("Nível de log configurado para: %s", logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newStore(ctx, cfg)

	engine := storage.NewEngine(store, storage.Config{
		Namespace:        cfg.Storage.Namespace,
		MaxStorageSize:   cfg.Storage.MaxStorageSize,
		CleanupPercent:   cfg.Storage.CleanupPercent,
		ArchivePercent:   cfg.Storage.ArchivePercent,
		MaxBackups:       cfg.Storage.MaxBackups,
		ArchiveAfterDays: cfg.Storage.ArchiveAfterDays,
		Version:          cfg.Storage.Version,
	})

	// Migração de esquema antes de qualquer leitura do estado
	if err := engine.MigrateOldData(); err != nil {
		logrus.WithError(err).Fatal("Erro na migração de dados do armazenamento")
	}

	mirror := newMirror(ctx, cfg)

	billingService, err := billing.NewService(engine, billingMirror(mirror))
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao carregar o estado de faturamento")
	}

	authenticator, err := authenticating.NewService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao inicializar o serviço de autenticação")
	}

	exportService := exporting.NewService(billingService, engine, cfg.Storage.Version)

	maintenanceScheduler := maintenance.NewScheduler(engine, cfg)
	maintenanceScheduler.SetReloader(billingService)

	if err := maintenanceScheduler.Start(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar o agendador de manutenção")
	} else {
		logrus.Info("Agendador de manutenção iniciado com sucesso")
	}

	server, err := api.New(
		cfg,
		billingService,
		exportService,
		authenticator,
		engine,
		maintenanceScheduler,
		mirror,
	)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// configureLogger configura o formato e comportamento dos logs
func configureLogger() {
	_, file, _, _ := runtime.Caller(0)
	dir := path.Dir(file)
	os.Chdir(dir)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// newStore escolhe o backend do armazenamento chave/valor conforme a
// configuração: memória (testes locais), arquivo ou PostgreSQL.
func newStore(ctx context.Context, cfg *config.Config) kvstore.Store {
	switch cfg.Storage.Backend {
	case "postgres":
		conn, err := postgres.NewConnection(ctx, cfg.Database)
		if err != nil {
			logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
		}

		if err := conn.Ping(ctx); err != nil {
			logrus.WithError(err).Fatal("Erro ao testar conexão com PostgreSQL")
		}

		logrus.Info("Conexão com PostgreSQL estabelecida com sucesso")

		store, err := kvstore.NewPostgresStore(ctx, conn)
		if err != nil {
			logrus.WithError(err).Fatal("Erro ao preparar o armazenamento no PostgreSQL")
		}
		return store

	case "memory":
		logrus.Warn("Armazenamento em memória: os dados não sobrevivem ao processo")
		return kvstore.NewMemoryStore()

	default:
		store, err := kvstore.NewFileStore(cfg.Storage.DataDir)
		if err != nil {
			logrus.WithError(err).Fatal("Erro ao preparar o armazenamento em arquivo")
		}
		return store
	}
}

// newMirror inicializa o espelhamento remoto quando habilitado. Falha de
// conexão não derruba o processo: o sistema segue somente local.
func newMirror(ctx context.Context, cfg *config.Config) *syncgateway.Mirror {
	if !cfg.Sync.Enabled {
		return nil
	}

	gateway, err := syncgateway.NewMongoGateway(ctx, &cfg.Sync)
	if err != nil {
		logrus.WithError(err).Error("Espelhamento remoto indisponível, seguindo somente local")
		return nil
	}

	policy := syncgateway.RetryPolicy{
		MaxAttempts: cfg.Sync.RetryMaxAttempts,
		Delay:       time.Duration(cfg.Sync.RetryDelaySeconds) * time.Second,
	}

	logrus.Info("Espelhamento remoto habilitado")
	return syncgateway.NewMirror(gateway, policy)
}

// billingMirror evita um ponteiro nulo tipado dentro de uma interface
// não-nula quando o espelhamento está desabilitado.
func billingMirror(mirror *syncgateway.Mirror) billing.RemoteMirror {
	if mirror == nil {
		return nil
	}
	return mirror
}
