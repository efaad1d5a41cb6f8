package storage

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/internal/domain"
)

// ValidateDataIntegrity varre o cache persistido e descarta lançamentos
// estruturalmente inválidos, regravando o cache quando algo foi removido.
// Retorna quantos lançamentos foram descartados.
func (e *Engine) ValidateDataIntegrity() (int, error) {
	payload, err := e.loadRecord(recordBillingData)
	if err != nil {
		return 0, err
	}
	if payload == nil {
		return 0, nil
	}

	cache, err := decompressCache(payload)
	if err != nil {
		return 0, errors.Wrap(err, "erro ao ler cache para validação")
	}

	dropped := 0
	cache.RewriteBuckets(func(segment domain.Segment, store string, entries []*domain.RevenueEntry) []*domain.RevenueEntry {
		kept := entries[:0]
		for _, entry := range entries {
			if !entryIsSound(entry) {
				logrus.WithFields(logrus.Fields{
					"segment": segment,
					"store":   store,
					"id":      entry.ID,
				}).Warn("Lançamento inválido descartado")
				dropped++
				continue
			}
			kept = append(kept, entry)
		}
		return kept
	})

	if dropped == 0 {
		return 0, nil
	}

	repaired, err := compressCache(cache)
	if err != nil {
		return 0, err
	}
	if err := e.writeRaw(recordBillingData, repaired); err != nil {
		return 0, err
	}

	logrus.WithField("dropped_entries", dropped).Info("Reparo de integridade concluído")
	return dropped, nil
}

// entryIsSound verifica os requisitos mínimos para um lançamento permanecer
// na base: identificador, ao menos uma data do período, valor finito e
// carimbo de criação.
func entryIsSound(entry *domain.RevenueEntry) bool {
	if entry == nil || entry.ID == "" {
		return false
	}
	if entry.StartDate == "" && entry.EndDate == "" {
		return false
	}
	if math.IsNaN(entry.Amount) || math.IsInf(entry.Amount, 0) {
		return false
	}
	if entry.CreatedAt.IsZero() {
		return false
	}
	return true
}
