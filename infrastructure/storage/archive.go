package storage

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/internal/domain"
)

// archiveRecord guarda os lançamentos retirados do cache ativo.
type archiveRecord struct {
	Version    string       `json:"version"`
	ArchivedAt int64        `json:"archivedAt"`
	CutoffDate string       `json:"cutoffDate"`
	Data       compactCache `json:"data"`
}

// ArchiveOldData move para um registro de arquivo os lançamentos criados
// antes da data de corte (hoje menos a idade configurada) e regrava o cache
// ativo já enxuto. Lançamentos criados exatamente no corte permanecem ativos.
// Retorna quantos lançamentos foram arquivados.
func (e *Engine) ArchiveOldData(now time.Time) (int, error) {
	payload, err := e.loadRecord(recordBillingData)
	if err != nil {
		return 0, err
	}
	if payload == nil {
		return 0, nil
	}

	cache, err := decompressCache(payload)
	if err != nil {
		return 0, errors.Wrap(err, "erro ao ler cache para arquivamento")
	}

	cutoff := now.AddDate(0, 0, -e.cfg.ArchiveAfterDays)
	archived := domain.NewBillingCache()
	count := 0

	cache.RewriteBuckets(func(segment domain.Segment, store string, entries []*domain.RevenueEntry) []*domain.RevenueEntry {
		kept := entries[:0]
		for _, entry := range entries {
			if entry.CreatedAt.Before(cutoff) {
				// bucket de destino vem dos argumentos do percurso: o
				// segment/store do próprio lançamento pode estar corrompido
				archived.AppendTo(segment, store, entry)
				count++
				continue
			}
			kept = append(kept, entry)
		}
		return kept
	})

	if count == 0 {
		return 0, nil
	}

	archivedPayload, err := compressCache(archived)
	if err != nil {
		return 0, err
	}
	record, err := json.Marshal(archiveRecord{
		Version:    e.cfg.Version,
		ArchivedAt: now.UnixMilli(),
		CutoffDate: cutoff.Format(time.RFC3339),
		Data:       mustCompactCache(archivedPayload),
	})
	if err != nil {
		return 0, errors.Wrap(err, "erro ao serializar arquivo")
	}

	archiveKey := e.key(archivePrefix + strconv.FormatInt(now.UnixMilli(), 10))
	if err := e.store.Set(archiveKey, record); err != nil {
		return 0, errors.Wrap(err, "erro ao gravar arquivo")
	}

	trimmed, err := compressCache(cache)
	if err != nil {
		return 0, err
	}
	if err := e.writeRaw(recordBillingData, trimmed); err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"archived_entries": count,
		"archive_key":      archiveKey,
		"cutoff":           cutoff.Format(time.RFC3339),
	}).Info("Dados antigos arquivados")

	return count, nil
}

func mustCompactCache(payload []byte) compactCache {
	var compact compactCache
	// payload acabou de sair de compressCache, é sempre decodificável
	_ = json.Unmarshal(payload, &compact)
	return compact
}
