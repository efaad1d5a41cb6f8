// Package storage implementa a camada de persistência autogerida: compactação
// estrutural, envelope versionado, monitor de capacidade, backups rotativos,
// arquivamento de dados antigos, reparo de integridade e migração de versão,
// tudo sobre um armazenamento bruto chave/valor.
package storage

import (
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/infrastructure/kvstore"
	"github.com/vfg2006/billing-manager-api/internal/domain"
)

// Nomes de registro sob o namespace. Precisam ser preservados para migrar
// uma base legada no local.
const (
	recordBillingData  = "billingData"
	recordMonthlyGoals = "monthlyGoals"
	recordVersion      = "version"
	recordLastBackup   = "last_backup"
	backupPrefix       = "backup_"
	archivePrefix      = "archive_"
)

// ErrBackupNotFound indica que não existe nenhum backup para restaurar.
var ErrBackupNotFound = errors.New("storage: nenhum backup encontrado")

// Config são os parâmetros da camada de armazenamento.
type Config struct {
	Namespace        string  // prefixo aplicado a toda chave (default ice_beer_)
	MaxStorageSize   int64   // teto lógico de uso, em bytes
	CleanupPercent   float64 // acima deste percentual dispara limpeza
	ArchivePercent   float64 // acima deste percentual dispara arquivamento
	MaxBackups       int     // quantidade de backups retidos
	ArchiveAfterDays int     // idade em dias para arquivar lançamentos
	Version          string  // versão corrente do esquema persistido
}

// persistedRecord é o envelope versionado de todo registro principal.
type persistedRecord struct {
	Version   string              `json:"version"`
	Timestamp int64               `json:"timestamp"`
	Payload   jsoniter.RawMessage `json:"payload"`
}

// backupRecord é um snapshot completo do cache + metas.
type backupRecord struct {
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
	Data      struct {
		BillingData  compactCache    `json:"billingData"`
		MonthlyGoals domain.GoalMap  `json:"monthlyGoals"`
	} `json:"data"`
}

// Usage é o resultado do monitor de capacidade.
type Usage struct {
	Used       int64   `json:"used"`
	MaxSize    int64   `json:"maxSize"`
	Percentage float64 `json:"percentage"`
}

// Engine é o único escritor em processo do armazenamento bruto.
// Acesso concorrente de múltiplos processos ao mesmo armazenamento físico
// tem semântica última-escrita-vence; limitação aceita, não corrigida aqui.
type Engine struct {
	store kvstore.Store
	cfg   Config
}

func NewEngine(store kvstore.Store, cfg Config) *Engine {
	return &Engine{store: store, cfg: cfg}
}

func (e *Engine) key(name string) string {
	return e.cfg.Namespace + name
}

// SaveBillingData compacta e persiste o cache de faturamento, verificando a
// capacidade em seguida.
func (e *Engine) SaveBillingData(cache *domain.BillingCache) error {
	payload, err := compressCache(cache)
	if err != nil {
		return err
	}
	return e.saveRecord(recordBillingData, payload)
}

// SaveGoals compacta e persiste o mapa de metas mensais.
func (e *Engine) SaveGoals(goals domain.GoalMap) error {
	payload, err := compressGoals(goals)
	if err != nil {
		return err
	}
	return e.saveRecord(recordMonthlyGoals, payload)
}

// LoadBillingData carrega o cache persistido. Retorna (nil, nil) quando ainda
// não há dados; falha de decodificação tenta restaurar do backup mais recente
// antes de desistir: leitura nunca devolve erro de corrupção ao chamador.
func (e *Engine) LoadBillingData() (*domain.BillingCache, error) {
	payload, err := e.loadRecord(recordBillingData)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	cache, err := decompressCache(payload)
	if err != nil {
		logrus.WithError(err).Warn("Registro de faturamento corrompido, tentando restaurar do backup")
		return loadAfterRestore(e, recordBillingData, decompressCache)
	}

	return cache, nil
}

// LoadGoals carrega o mapa de metas. Mesma política de leitura de LoadBillingData.
func (e *Engine) LoadGoals() (domain.GoalMap, error) {
	payload, err := e.loadRecord(recordMonthlyGoals)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	goals, err := decompressGoals(payload)
	if err != nil {
		logrus.WithError(err).Warn("Registro de metas corrompido, tentando restaurar do backup")
		return loadAfterRestore(e, recordMonthlyGoals, decompressGoals)
	}

	return goals, nil
}

// loadAfterRestore restaura o backup mais recente e tenta decodificar o
// registro de novo. Sem backup ou ainda corrompido: trata como "sem dados".
func loadAfterRestore[T any](e *Engine, record string, decode func([]byte) (T, error)) (T, error) {
	var zero T

	if err := e.RestoreFromBackup(""); err != nil {
		logrus.WithError(err).Error("Não foi possível restaurar do backup")
		return zero, nil
	}

	payload, err := e.loadRecord(record)
	if err != nil || payload == nil {
		return zero, err
	}

	value, err := decode(payload)
	if err != nil {
		logrus.WithError(err).Error("Registro continua corrompido após restauração")
		return zero, nil
	}

	return value, nil
}

// saveRecord envelopa e grava um registro principal; em falha de escrita
// executa um ciclo de limpeza e tenta uma única vez de novo.
func (e *Engine) saveRecord(record string, payload []byte) error {
	envelope, err := json.Marshal(persistedRecord{
		Version:   e.cfg.Version,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
	if err != nil {
		return errors.Wrap(err, "erro ao serializar envelope")
	}

	if err := e.store.Set(e.key(record), envelope); err != nil {
		logrus.WithError(err).WithField("record", record).Warn("Falha ao salvar, executando limpeza e retentativa")

		if cleanupErr := e.CleanupStorage(); cleanupErr != nil {
			logrus.WithError(cleanupErr).Error("Erro na limpeza do armazenamento")
		}

		if err := e.store.Set(e.key(record), envelope); err != nil {
			return errors.Wrapf(err, "erro crítico ao salvar registro %s", record)
		}
	}

	// Verificação de capacidade após toda gravação principal
	if _, err := e.CheckStorageCapacity(); err != nil {
		logrus.WithError(err).Warn("Erro ao verificar capacidade do armazenamento")
	}

	return nil
}

// loadRecord lê e desenvelopa um registro principal. (nil, nil) quando ausente
// ou com envelope ilegível sem backup possível.
func (e *Engine) loadRecord(record string) ([]byte, error) {
	raw, err := e.store.Get(e.key(record))
	if err != nil {
		return nil, errors.Wrapf(err, "erro ao ler registro %s", record)
	}
	if raw == nil {
		return nil, nil
	}

	var envelope persistedRecord
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// Envelope ilegível equivale a payload corrompido
		return raw, nil
	}

	return envelope.Payload, nil
}

// CheckStorageCapacity mede o uso e dispara limpeza acima do limiar de
// limpeza e arquivamento acima do limiar crítico. Os gatilhos são estritos:
// exatamente no limiar nada acontece.
func (e *Engine) CheckStorageCapacity() (Usage, error) {
	used, err := e.store.Size()
	if err != nil {
		return Usage{}, errors.Wrap(err, "erro ao medir uso do armazenamento")
	}

	usage := Usage{
		Used:       used,
		MaxSize:    e.cfg.MaxStorageSize,
		Percentage: float64(used) / float64(e.cfg.MaxStorageSize) * 100,
	}

	logrus.WithFields(logrus.Fields{
		"used":       usage.Used,
		"max":        usage.MaxSize,
		"percentage": usage.Percentage,
	}).Debug("Uso do armazenamento")

	if usage.Percentage > e.cfg.CleanupPercent {
		logrus.Warn("Armazenamento próximo do limite, executando limpeza")
		if err := e.CleanupStorage(); err != nil {
			logrus.WithError(err).Error("Erro na limpeza do armazenamento")
		}
	}

	if usage.Percentage > e.cfg.ArchivePercent {
		logrus.Error("Armazenamento crítico, arquivando dados antigos")
		if _, err := e.ArchiveOldData(time.Now()); err != nil {
			logrus.WithError(err).Error("Erro ao arquivar dados antigos")
		}
	}

	return usage, nil
}

// CleanupStorage remove chaves temporárias e de cache e regrava os registros
// principais sem alterá-los, liberando espaço residual do armazenamento.
func (e *Engine) CleanupStorage() error {
	keys, err := e.store.Keys()
	if err != nil {
		return errors.Wrap(err, "erro ao listar chaves para limpeza")
	}

	removed := 0
	for _, key := range keys {
		if strings.Contains(key, "temp") || strings.Contains(key, "cache") {
			if err := e.store.Remove(key); err != nil {
				logrus.WithError(err).WithField("key", key).Warn("Erro ao remover chave temporária")
				continue
			}
			removed++
		}
	}

	for _, record := range []string{recordBillingData, recordMonthlyGoals} {
		raw, err := e.store.Get(e.key(record))
		if err != nil || raw == nil {
			continue
		}
		if err := e.store.Set(e.key(record), raw); err != nil {
			logrus.WithError(err).WithField("record", record).Warn("Erro ao regravar registro na limpeza")
		}
	}

	logrus.WithField("removed_keys", removed).Info("Limpeza do armazenamento concluída")
	return nil
}

// Stats resume o estado do armazenamento para diagnóstico e administração.
type Stats struct {
	Version         string     `json:"version"`
	Usage           int64      `json:"usage"`
	MaxSize         int64      `json:"maxSize"`
	UsagePercentage float64    `json:"usagePercentage"`
	BackupCount     int        `json:"backupCount"`
	ArchiveCount    int        `json:"archiveCount"`
	LastBackup      *time.Time `json:"lastBackup,omitempty"`
	TotalEntries    int        `json:"totalEntries"`
}

func (e *Engine) GetStorageStats() (*Stats, error) {
	used, err := e.store.Size()
	if err != nil {
		return nil, errors.Wrap(err, "erro ao medir uso do armazenamento")
	}

	keys, err := e.store.Keys()
	if err != nil {
		return nil, errors.Wrap(err, "erro ao listar chaves")
	}

	stats := &Stats{
		Version:         e.cfg.Version,
		Usage:           used,
		MaxSize:         e.cfg.MaxStorageSize,
		UsagePercentage: float64(used) / float64(e.cfg.MaxStorageSize) * 100,
	}

	for _, key := range keys {
		switch {
		case strings.HasPrefix(key, e.key(backupPrefix)):
			stats.BackupCount++
		case strings.HasPrefix(key, e.key(archivePrefix)):
			stats.ArchiveCount++
		}
	}

	if at, ok := e.LastBackupAt(); ok {
		stats.LastBackup = &at
	}

	if cache, err := e.LoadBillingData(); err == nil && cache != nil {
		stats.TotalEntries = cache.TotalEntries()
	}

	return stats, nil
}
