package storage

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// migrationStep transforma os dados persistidos de uma versão anterior.
// Cada passo declara a versão de origem que sabe converter.
type migrationStep struct {
	fromVersion string
	apply       func(e *Engine) error
}

// migrationSteps é a cadeia de conversões de esquema. O formato atual é
// compatível com a base legada, então a cadeia está vazia; novos formatos
// acrescentam passos aqui.
var migrationSteps []migrationStep

// MigrateOldData compara o marcador de versão persistido com a versão
// corrente e, quando divergem, cria um backup de segurança e executa os
// passos de migração aplicáveis antes de atualizar o marcador.
func (e *Engine) MigrateOldData() error {
	raw, err := e.store.Get(e.key(recordVersion))
	if err != nil {
		return errors.Wrap(err, "erro ao ler versão persistida")
	}

	stored := string(raw)
	if stored == e.cfg.Version {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"from": stored,
		"to":   e.cfg.Version,
	}).Info("Migrando dados persistidos")

	if err := e.CreateBackup(); err != nil {
		return errors.Wrap(err, "erro ao criar backup pré-migração")
	}

	for _, step := range migrationSteps {
		if step.fromVersion != stored {
			continue
		}
		if err := step.apply(e); err != nil {
			return errors.Wrapf(err, "erro no passo de migração %s", step.fromVersion)
		}
	}

	if err := e.store.Set(e.key(recordVersion), []byte(e.cfg.Version)); err != nil {
		return errors.Wrap(err, "erro ao gravar marcador de versão")
	}

	logrus.Info("Migração de dados concluída")
	return nil
}
