package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/billing-manager-api/infrastructure/kvstore"
	"github.com/vfg2006/billing-manager-api/internal/domain"
)

func TestEngine_ArchiveOldData(t *testing.T) {
	store := kvstore.NewMemoryStore()
	engine := NewEngine(store, testConfig())

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -365)

	cache := domain.NewBillingCache()
	cache.Append(testEntry("velho1", cutoff.Add(-time.Hour)))       // antes do corte: arquiva
	cache.Append(testEntry("nocorte", cutoff))                      // exatamente no corte: permanece
	cache.Append(testEntry("recente", now.Add(-24*time.Hour)))      // recente: permanece
	require.NoError(t, engine.SaveBillingData(cache))

	count, err := engine.ArchiveOldData(now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	active, err := engine.LoadBillingData()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Nil(t, active.Find(domain.SegmentConveniences, "loja1", "velho1"))
	assert.NotNil(t, active.Find(domain.SegmentConveniences, "loja1", "nocorte"))
	assert.NotNil(t, active.Find(domain.SegmentConveniences, "loja1", "recente"))

	keys, err := store.Keys()
	require.NoError(t, err)

	var archiveKey string
	for _, key := range keys {
		if strings.HasPrefix(key, "ice_beer_archive_") {
			archiveKey = key
		}
	}
	require.NotEmpty(t, archiveKey, "deve existir um registro de arquivo")

	raw, err := store.Get(archiveKey)
	require.NoError(t, err)

	var record archiveRecord
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, "2.0.0", record.Version)
	assert.Equal(t, cutoff.Format(time.RFC3339), record.CutoffDate)
	require.Len(t, record.Data.Conveniences["loja1"], 1)
	assert.Equal(t, "velho1", record.Data.Conveniences["loja1"][0].ID)
}

func TestEngine_ArchiveOldData_SegmentoCorrompidoVaiParaOArquivo(t *testing.T) {
	store := kvstore.NewMemoryStore()
	engine := NewEngine(store, testConfig())

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -365)

	// lançamento legado dentro do bucket de conveniências, mas com o campo
	// segment denormalizado corrompido
	corrupted := testEntry("legado1", cutoff.Add(-time.Hour))
	corrupted.Segment = domain.Segment("estoque")

	cache := domain.NewBillingCache()
	cache.AppendTo(domain.SegmentConveniences, "loja1", corrupted)
	cache.Append(testEntry("recente", now.Add(-24*time.Hour)))
	require.NoError(t, engine.SaveBillingData(cache))

	count, err := engine.ArchiveOldData(now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	keys, err := store.Keys()
	require.NoError(t, err)

	var archiveKey string
	for _, key := range keys {
		if strings.HasPrefix(key, "ice_beer_archive_") {
			archiveKey = key
		}
	}
	require.NotEmpty(t, archiveKey)

	raw, err := store.Get(archiveKey)
	require.NoError(t, err)

	var record archiveRecord
	require.NoError(t, json.Unmarshal(raw, &record))
	require.Len(t, record.Data.Conveniences["loja1"], 1)
	assert.Equal(t, "legado1", record.Data.Conveniences["loja1"][0].ID)

	active, err := engine.LoadBillingData()
	require.NoError(t, err)
	assert.Nil(t, active.Find(domain.SegmentConveniences, "loja1", "legado1"))
}

func TestEngine_ArchiveOldData_SemNadaParaArquivar(t *testing.T) {
	store := kvstore.NewMemoryStore()
	engine := NewEngine(store, testConfig())

	now := time.Now()
	cache := domain.NewBillingCache()
	cache.Append(testEntry("recente", now))
	require.NoError(t, engine.SaveBillingData(cache))

	count, err := engine.ArchiveOldData(now)
	require.NoError(t, err)
	assert.Zero(t, count)

	keys, err := store.Keys()
	require.NoError(t, err)
	for _, key := range keys {
		assert.False(t, strings.HasPrefix(key, "ice_beer_archive_"), "não deve criar registro de arquivo vazio")
	}
}

func TestEngine_ArchiveOldData_SemDados(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore(), testConfig())

	count, err := engine.ArchiveOldData(time.Now())
	assert.NoError(t, err)
	assert.Zero(t, count)
}
