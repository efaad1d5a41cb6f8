// Package maintenance agenda as rotinas periódicas do armazenamento:
// backup automático, validação de integridade, limpeza e arquivamento.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/vfg2006/billing-manager-api/infrastructure/storage"
	"github.com/vfg2006/billing-manager-api/internal/config"
)

// SchedulerConfig representa a configuração do agendador de manutenção
type SchedulerConfig struct {
	Enabled            bool
	BackupCron         string
	MaintenanceCron    string
	BackupIntervalDays int
	CleanupPercent     float64
	ArchivePercent     float64
}

// Reloader recarrega um estado em memória a partir do que está persistido.
// As rotinas de manutenção regravam os registros por fora do serviço de
// faturamento; depois de uma passada, o estado dele precisa ser renovado.
type Reloader interface {
	Reload() error
}

// Scheduler gerencia o agendamento e execução das rotinas de manutenção
// do armazenamento
type Scheduler struct {
	scheduler          *gocron.Scheduler
	config             SchedulerConfig
	engine             *storage.Engine
	reloader           Reloader
	running            bool
	mutex              sync.Mutex
	lastRunStartedAt   time.Time
	lastRunCompletedAt time.Time
	lastRunReport      *Report
}

// Report resume o resultado de uma passada de manutenção
type Report struct {
	StartedAt      time.Time `json:"startedAt"`
	CompletedAt    time.Time `json:"completedAt"`
	DroppedEntries int       `json:"droppedEntries"`
	UsagePercent   float64   `json:"usagePercent"`
	CleanupRan     bool      `json:"cleanupRan"`
	ArchiveRan     bool      `json:"archiveRan"`
}

// NewScheduler cria uma nova instância do agendador de manutenção
func NewScheduler(engine *storage.Engine, appConfig *config.Config) *Scheduler {
	schedulerConfig := SchedulerConfig{
		Enabled:            appConfig.Maintenance.Enabled,
		BackupCron:         appConfig.Maintenance.BackupCron,
		MaintenanceCron:    appConfig.Maintenance.MaintenanceCron,
		BackupIntervalDays: appConfig.Maintenance.BackupIntervalDays,
		CleanupPercent:     appConfig.Storage.CleanupPercent,
		ArchivePercent:     appConfig.Storage.ArchivePercent,
	}

	logrus.WithFields(logrus.Fields{
		"enabled":              schedulerConfig.Enabled,
		"backup_cron":          schedulerConfig.BackupCron,
		"maintenance_cron":     schedulerConfig.MaintenanceCron,
		"backup_interval_days": schedulerConfig.BackupIntervalDays,
	}).Info("Configuração do agendador de manutenção carregada")

	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		config:    schedulerConfig,
		engine:    engine,
	}
}

// SetReloader registra o estado em memória a renovar após cada passada.
func (s *Scheduler) SetReloader(reloader Reloader) {
	s.reloader = reloader
}

// Start inicia o agendador
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logrus.Info("Rotinas de manutenção desabilitadas por configuração")
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"backup_cron":      s.config.BackupCron,
		"maintenance_cron": s.config.MaintenanceCron,
	}).Info("Iniciando agendador de manutenção do armazenamento")

	_, err := s.scheduler.Cron(s.config.BackupCron).Do(func() {
		s.runAutoBackup()
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar backup automático: %w", err)
	}

	_, err = s.scheduler.Cron(s.config.MaintenanceCron).Do(func() {
		s.runMaintenance()
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar manutenção do armazenamento: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador de manutenção do armazenamento")
		s.scheduler.Stop()
	}()

	return nil
}

// runAutoBackup cria um backup se o último for mais antigo que o intervalo
// configurado. O agendamento roda todo dia, mas o intervalo decide se algo
// é feito.
func (s *Scheduler) runAutoBackup() {
	if !s.backupDue(time.Now()) {
		logrus.Debug("Backup automático ainda dentro do intervalo, ignorando")
		return
	}

	logrus.Info("Iniciando backup automático do armazenamento")

	if err := s.engine.CreateBackup(); err != nil {
		logrus.WithError(err).Error("Erro ao criar backup automático")
		return
	}

	logrus.Info("Backup automático concluído")
}

// backupDue informa se o intervalo configurado já passou desde o último backup.
func (s *Scheduler) backupDue(now time.Time) bool {
	lastBackup, ok := s.engine.LastBackupAt()
	if !ok {
		return true
	}
	return now.Sub(lastBackup) >= time.Duration(s.config.BackupIntervalDays)*24*time.Hour
}

// runMaintenance executa a passada completa de manutenção: integridade,
// capacidade e, conforme o uso, limpeza e arquivamento.
func (s *Scheduler) runMaintenance() {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		logrus.Info("Manutenção do armazenamento já em andamento, ignorando")
		return
	}
	s.running = true
	s.mutex.Unlock()

	startTime := time.Now()
	s.lastRunStartedAt = startTime

	defer func() {
		s.mutex.Lock()
		s.running = false
		s.mutex.Unlock()
	}()

	logrus.Info("Iniciando manutenção do armazenamento")

	report := &Report{StartedAt: startTime}

	dropped, err := s.engine.ValidateDataIntegrity()
	if err != nil {
		logrus.WithError(err).Error("Erro na validação de integridade")
	} else {
		report.DroppedEntries = dropped
		if dropped > 0 {
			logrus.WithField("dropped", dropped).Warn("Lançamentos inválidos removidos na validação de integridade")
		}
	}

	// CheckStorageCapacity dispara limpeza e arquivamento internamente
	// quando os limiares são ultrapassados
	usage, err := s.engine.CheckStorageCapacity()
	if err != nil {
		logrus.WithError(err).Error("Erro ao verificar capacidade do armazenamento")
	} else {
		report.UsagePercent = usage.Percentage
		report.CleanupRan = usage.Percentage > s.config.CleanupPercent
		report.ArchiveRan = usage.Percentage > s.config.ArchivePercent
	}

	if s.reloader != nil {
		if err := s.reloader.Reload(); err != nil {
			logrus.WithError(err).Error("Erro ao recarregar estado após manutenção")
		}
	}

	duration := time.Since(startTime)
	report.CompletedAt = time.Now()
	s.lastRunCompletedAt = report.CompletedAt
	s.lastRunReport = report

	logrus.WithFields(logrus.Fields{
		"duration":      duration.String(),
		"dropped":       report.DroppedEntries,
		"usage_percent": fmt.Sprintf("%.1f%%", report.UsagePercent),
	}).Info("Manutenção do armazenamento concluída")
}

// TriggerManualMaintenance inicia manualmente uma passada de manutenção
func (s *Scheduler) TriggerManualMaintenance() {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		logrus.Info("Manutenção já em andamento, ignorando solicitação manual")
		return
	}
	s.mutex.Unlock()

	logrus.Info("Iniciando manutenção manual do armazenamento")
	go s.runMaintenance()
}

// GetStatus retorna o status atual do agendador
func (s *Scheduler) GetStatus() map[string]any {
	status := map[string]any{
		"enabled":              s.config.Enabled,
		"backup_cron":          s.config.BackupCron,
		"maintenance_cron":     s.config.MaintenanceCron,
		"backup_interval_days": s.config.BackupIntervalDays,
		"last_run_started_at":  s.lastRunStartedAt,
		"last_run_completed":   s.lastRunCompletedAt,
	}

	if lastBackup, ok := s.engine.LastBackupAt(); ok {
		status["last_backup_at"] = lastBackup
	}

	if s.lastRunReport != nil {
		status["last_run_report"] = s.lastRunReport
	}

	return status
}
