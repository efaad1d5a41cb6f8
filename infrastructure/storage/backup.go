package storage

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CreateBackup grava um snapshot completo (faturamento + metas) sob uma chave
// carimbada no tempo e rotaciona o conjunto mantendo apenas os mais recentes.
// Sem nenhum registro principal presente, não há o que copiar e nada é feito.
func (e *Engine) CreateBackup() error {
	billingPayload, err := e.loadRecord(recordBillingData)
	if err != nil {
		return err
	}
	goalsPayload, err := e.loadRecord(recordMonthlyGoals)
	if err != nil {
		return err
	}
	if billingPayload == nil && goalsPayload == nil {
		logrus.Debug("Sem dados para backup, pulando")
		return nil
	}

	backup := backupRecord{
		Version:   e.cfg.Version,
		Timestamp: time.Now().UnixMilli(),
	}
	if billingPayload != nil {
		if err := json.Unmarshal(billingPayload, &backup.Data.BillingData); err != nil {
			return errors.Wrap(err, "erro ao ler cache para backup")
		}
	}
	if goalsPayload != nil {
		if err := json.Unmarshal(goalsPayload, &backup.Data.MonthlyGoals); err != nil {
			return errors.Wrap(err, "erro ao ler metas para backup")
		}
	}

	raw, err := json.Marshal(backup)
	if err != nil {
		return errors.Wrap(err, "erro ao serializar backup")
	}

	backupKey := e.key(backupPrefix + strconv.FormatInt(backup.Timestamp, 10))
	if err := e.store.Set(backupKey, raw); err != nil {
		return errors.Wrap(err, "erro ao gravar backup")
	}

	marker := strconv.FormatInt(backup.Timestamp, 10)
	if err := e.store.Set(e.key(recordLastBackup), []byte(marker)); err != nil {
		logrus.WithError(err).Warn("Erro ao registrar marcador de último backup")
	}

	if err := e.rotateBackups(); err != nil {
		logrus.WithError(err).Warn("Erro ao rotacionar backups antigos")
	}

	logrus.WithField("backup_key", backupKey).Info("Backup criado")
	return nil
}

// rotateBackups remove os backups mais antigos além do limite configurado.
func (e *Engine) rotateBackups() error {
	keys, err := e.backupKeys()
	if err != nil {
		return err
	}
	if len(keys) <= e.cfg.MaxBackups {
		return nil
	}

	// keys está ordenado do mais recente para o mais antigo
	for _, key := range keys[e.cfg.MaxBackups:] {
		if err := e.store.Remove(key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Erro ao remover backup antigo")
		}
	}
	return nil
}

// RestoreFromBackup sobrescreve os registros principais com o conteúdo de um
// backup. Chave vazia restaura o mais recente.
func (e *Engine) RestoreFromBackup(backupKey string) error {
	if backupKey == "" {
		keys, err := e.backupKeys()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return ErrBackupNotFound
		}
		backupKey = keys[0]
	}

	raw, err := e.store.Get(backupKey)
	if err != nil {
		return errors.Wrap(err, "erro ao ler backup")
	}
	if raw == nil {
		return ErrBackupNotFound
	}

	var backup backupRecord
	if err := json.Unmarshal(raw, &backup); err != nil {
		return errors.Wrap(err, "backup corrompido")
	}

	billingPayload, err := json.Marshal(backup.Data.BillingData)
	if err != nil {
		return errors.Wrap(err, "erro ao serializar cache restaurado")
	}
	goalsPayload, err := json.Marshal(backup.Data.MonthlyGoals)
	if err != nil {
		return errors.Wrap(err, "erro ao serializar metas restauradas")
	}

	if err := e.writeRaw(recordBillingData, billingPayload); err != nil {
		return err
	}
	if err := e.writeRaw(recordMonthlyGoals, goalsPayload); err != nil {
		return err
	}

	logrus.WithField("backup_key", backupKey).Info("Dados restaurados do backup")
	return nil
}

// writeRaw envelopa e grava sem passar pelos gatilhos de capacidade, evitando
// recursão limpeza -> gravação -> limpeza durante restauração e arquivamento.
func (e *Engine) writeRaw(record string, payload []byte) error {
	envelope, err := json.Marshal(persistedRecord{
		Version:   e.cfg.Version,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
	if err != nil {
		return errors.Wrap(err, "erro ao serializar envelope")
	}
	if err := e.store.Set(e.key(record), envelope); err != nil {
		return errors.Wrapf(err, "erro ao gravar registro %s", record)
	}
	return nil
}

// ListBackups retorna as chaves de backup existentes, da mais recente para a
// mais antiga.
func (e *Engine) ListBackups() ([]string, error) {
	return e.backupKeys()
}

func (e *Engine) backupKeys() ([]string, error) {
	keys, err := e.store.Keys()
	if err != nil {
		return nil, errors.Wrap(err, "erro ao listar chaves de backup")
	}

	prefix := e.key(backupPrefix)
	backups := make([]string, 0, e.cfg.MaxBackups)
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			backups = append(backups, key)
		}
	}

	sort.Slice(backups, func(i, j int) bool {
		return backupTimestamp(backups[i], prefix) > backupTimestamp(backups[j], prefix)
	})

	return backups, nil
}

func backupTimestamp(key, prefix string) int64 {
	ts, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// LastBackupAt retorna o horário do último backup registrado no marcador.
func (e *Engine) LastBackupAt() (time.Time, bool) {
	raw, err := e.store.Get(e.key(recordLastBackup))
	if err != nil || raw == nil {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
