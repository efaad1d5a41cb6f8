package storage

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/vfg2006/billing-manager-api/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec de compactação estrutural: os nomes de campo são encurtados de forma
// documentada e reversível. Não é compressão de propósito geral, apenas
// chaves curtas, o suficiente para caber mais dados sob o teto do
// armazenamento. O formato é o mesmo da base legada, permitindo migrar no
// local: segmentos `c`/`p`/`d` e lançamentos `i,s,e,a,d,st,c,sg,u`.

type compactEntry struct {
	ID          string         `json:"i"`
	StartDate   string         `json:"s"`
	EndDate     string         `json:"e"`
	Amount      float64        `json:"a"`
	Description string         `json:"d"`
	Store       string         `json:"st"`
	CreatedAt   time.Time      `json:"c"`
	Segment     domain.Segment `json:"sg"`
	UpdatedAt   time.Time      `json:"u"`
}

type compactCache struct {
	Conveniences map[string][]compactEntry `json:"c,omitempty"`
	SnackBars    map[string][]compactEntry `json:"p,omitempty"`
	Delivery     []compactEntry            `json:"d,omitempty"`
}

func compactEntries(entries []*domain.RevenueEntry) []compactEntry {
	compacted := make([]compactEntry, 0, len(entries))
	for _, entry := range entries {
		compacted = append(compacted, compactEntry{
			ID:          entry.ID,
			StartDate:   entry.StartDate,
			EndDate:     entry.EndDate,
			Amount:      entry.Amount,
			Description: entry.Description,
			Store:       entry.Store,
			CreatedAt:   entry.CreatedAt,
			Segment:     entry.Segment,
			UpdatedAt:   entry.UpdatedAt,
		})
	}
	return compacted
}

func restoreEntries(compacted []compactEntry) []*domain.RevenueEntry {
	entries := make([]*domain.RevenueEntry, 0, len(compacted))
	for _, entry := range compacted {
		entries = append(entries, &domain.RevenueEntry{
			ID:          entry.ID,
			StartDate:   entry.StartDate,
			EndDate:     entry.EndDate,
			Amount:      entry.Amount,
			Description: entry.Description,
			Store:       entry.Store,
			CreatedAt:   entry.CreatedAt,
			Segment:     entry.Segment,
			UpdatedAt:   entry.UpdatedAt,
		})
	}
	return entries
}

func toCompactCache(cache *domain.BillingCache) compactCache {
	compacted := compactCache{}

	if len(cache.Conveniences) > 0 {
		compacted.Conveniences = make(map[string][]compactEntry, len(cache.Conveniences))
		for store, entries := range cache.Conveniences {
			compacted.Conveniences[store] = compactEntries(entries)
		}
	}

	if len(cache.SnackBars) > 0 {
		compacted.SnackBars = make(map[string][]compactEntry, len(cache.SnackBars))
		for store, entries := range cache.SnackBars {
			compacted.SnackBars[store] = compactEntries(entries)
		}
	}

	if len(cache.Delivery) > 0 {
		compacted.Delivery = compactEntries(cache.Delivery)
	}

	return compacted
}

func fromCompactCache(compacted compactCache) *domain.BillingCache {
	cache := domain.NewBillingCache()

	for store, entries := range compacted.Conveniences {
		cache.Conveniences[store] = restoreEntries(entries)
	}
	for store, entries := range compacted.SnackBars {
		cache.SnackBars[store] = restoreEntries(entries)
	}
	cache.Delivery = restoreEntries(compacted.Delivery)

	return cache
}

// compressCache serializa o cache no formato compacto.
func compressCache(cache *domain.BillingCache) ([]byte, error) {
	data, err := json.Marshal(toCompactCache(cache))
	if err != nil {
		return nil, errors.Wrap(err, "erro ao compactar dados de faturamento")
	}
	return data, nil
}

// decompressCache restaura um cache a partir do formato compacto.
func decompressCache(data []byte) (*domain.BillingCache, error) {
	var compacted compactCache
	if err := json.Unmarshal(data, &compacted); err != nil {
		return nil, errors.Wrap(err, "erro ao descompactar dados de faturamento")
	}
	return fromCompactCache(compacted), nil
}

// compressGoals serializa o mapa de metas. O mapa já é plano, então a
// compactação é a própria serialização.
func compressGoals(goals domain.GoalMap) ([]byte, error) {
	data, err := json.Marshal(goals)
	if err != nil {
		return nil, errors.Wrap(err, "erro ao compactar metas mensais")
	}
	return data, nil
}

func decompressGoals(data []byte) (domain.GoalMap, error) {
	goals := make(domain.GoalMap)
	if err := json.Unmarshal(data, &goals); err != nil {
		return nil, errors.Wrap(err, "erro ao descompactar metas mensais")
	}
	return goals, nil
}
