package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/billing-manager-api/infrastructure/kvstore"
	"github.com/vfg2006/billing-manager-api/internal/domain"
)

func testConfig() Config {
	return Config{
		Namespace:        "ice_beer_",
		MaxStorageSize:   8 * 1024 * 1024,
		CleanupPercent:   80,
		ArchivePercent:   95,
		MaxBackups:       5,
		ArchiveAfterDays: 365,
		Version:          "2.0.0",
	}
}

func testEntry(id string, createdAt time.Time) *domain.RevenueEntry {
	return &domain.RevenueEntry{
		ID:          id,
		StartDate:   "2025-01-10",
		EndDate:     "2025-01-15",
		Amount:      1500.50,
		Description: "venda semanal",
		Segment:     domain.SegmentConveniences,
		Store:       "loja1",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestEngine_SaveAndLoadBillingData(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore(), testConfig())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := domain.NewBillingCache()
	cache.Append(testEntry("abc123", now))
	cache.Append(&domain.RevenueEntry{
		ID:        "del001",
		StartDate: "2025-01-01",
		EndDate:   "2025-01-01",
		Amount:    300,
		Segment:   domain.SegmentDelivery,
		Store:     domain.DeliveryStore,
		CreatedAt: now,
		UpdatedAt: now,
	})

	require.NoError(t, engine.SaveBillingData(cache))

	loaded, err := engine.LoadBillingData()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, 2, loaded.TotalEntries())
	entry := loaded.Find(domain.SegmentConveniences, "loja1", "abc123")
	require.NotNil(t, entry)
	assert.Equal(t, 1500.50, entry.Amount)
	assert.Equal(t, "venda semanal", entry.Description)
	assert.True(t, entry.CreatedAt.Equal(now))
	assert.Len(t, loaded.Delivery, 1)
}

func TestEngine_LoadBillingData_SemDados(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore(), testConfig())

	loaded, err := engine.LoadBillingData()
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestEngine_SaveAndLoadGoals(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore(), testConfig())

	goals := domain.GoalMap{
		domain.GoalKey(domain.SegmentConveniences, "loja1", 1, 2025):          50000,
		domain.GoalKey(domain.SegmentDelivery, domain.DeliveryStore, 2, 2025): 30000,
	}
	require.NoError(t, engine.SaveGoals(goals))

	loaded, err := engine.LoadGoals()
	require.NoError(t, err)
	assert.Equal(t, goals, loaded)
}

func TestEngine_CompactacaoEstrutural(t *testing.T) {
	store := kvstore.NewMemoryStore()
	engine := NewEngine(store, testConfig())

	cache := domain.NewBillingCache()
	cache.Append(testEntry("abc123", time.Now()))
	require.NoError(t, engine.SaveBillingData(cache))

	raw, err := store.Get("ice_beer_billingData")
	require.NoError(t, err)
	require.NotNil(t, raw)

	// O registro persistido usa as chaves curtas, nunca os nomes de domínio
	assert.Contains(t, string(raw), `"c":{`)
	assert.Contains(t, string(raw), `"st":"loja1"`)
	assert.NotContains(t, string(raw), "conveniences")
	assert.NotContains(t, string(raw), "description")
}

func TestEngine_CleanupStorage_RemoveChavesTemporarias(t *testing.T) {
	store := kvstore.NewMemoryStore()
	engine := NewEngine(store, testConfig())

	require.NoError(t, store.Set("ice_beer_temp_export", []byte("x")))
	require.NoError(t, store.Set("ice_beer_report_cache", []byte("y")))
	require.NoError(t, store.Set("ice_beer_monthlyGoals", []byte(`{"version":"2.0.0","timestamp":1,"payload":{}}`)))

	require.NoError(t, engine.CleanupStorage())

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.NotContains(t, keys, "ice_beer_temp_export")
	assert.NotContains(t, keys, "ice_beer_report_cache")
	assert.Contains(t, keys, "ice_beer_monthlyGoals")
}

func TestEngine_Save_LimpaERetentaQuandoCheio(t *testing.T) {
	// Armazenamento pequeno, já ocupado por lixo temporário: a primeira
	// gravação falha, a limpeza abre espaço e a retentativa deve passar.
	store := kvstore.NewBoundedMemoryStore(600)
	engine := NewEngine(store, testConfig())

	filler := make([]byte, 400)
	require.NoError(t, store.Set("ice_beer_temp_blob", filler))

	cache := domain.NewBillingCache()
	cache.Append(testEntry("abc123", time.Now()))

	require.NoError(t, engine.SaveBillingData(cache))

	loaded, err := engine.LoadBillingData()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 1, loaded.TotalEntries())
}

func TestEngine_CheckStorageCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxStorageSize = 1000

	store := kvstore.NewMemoryStore()
	engine := NewEngine(store, cfg)

	require.NoError(t, store.Set("k", make([]byte, 499)))

	usage, err := engine.CheckStorageCapacity()
	require.NoError(t, err)
	assert.Equal(t, int64(500), usage.Used)
	assert.InDelta(t, 50.0, usage.Percentage, 0.001)
}

func TestEngine_CheckStorageCapacity_LimiarExatoNaoDispara(t *testing.T) {
	// Exatamente 80% não dispara limpeza: o gatilho é estritamente maior.
	cfg := testConfig()
	cfg.MaxStorageSize = 1000

	store := kvstore.NewMemoryStore()
	engine := NewEngine(store, cfg)

	require.NoError(t, store.Set("ice_beer_temp_x", make([]byte, 800-len("ice_beer_temp_x"))))

	usage, err := engine.CheckStorageCapacity()
	require.NoError(t, err)
	assert.InDelta(t, 80.0, usage.Percentage, 0.001)

	raw, err := store.Get("ice_beer_temp_x")
	require.NoError(t, err)
	assert.NotNil(t, raw, "a chave temporária deve sobreviver no limiar exato")
}

func TestEngine_GetStorageStats(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore(), testConfig())

	cache := domain.NewBillingCache()
	cache.Append(testEntry("abc123", time.Now()))
	require.NoError(t, engine.SaveBillingData(cache))
	require.NoError(t, engine.SaveGoals(domain.GoalMap{"conveniences-loja1-1-2025": 1000}))
	require.NoError(t, engine.CreateBackup())

	stats, err := engine.GetStorageStats()
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", stats.Version)
	assert.Equal(t, 1, stats.BackupCount)
	assert.Equal(t, 0, stats.ArchiveCount)
	assert.Equal(t, 1, stats.TotalEntries)
	assert.NotNil(t, stats.LastBackup)
	assert.Greater(t, stats.Usage, int64(0))
}
