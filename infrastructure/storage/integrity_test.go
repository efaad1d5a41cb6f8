package storage

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/billing-manager-api/infrastructure/kvstore"
	"github.com/vfg2006/billing-manager-api/internal/domain"
)

func TestEngine_ValidateDataIntegrity(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore(), testConfig())

	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	semID := testEntry("", now)
	semDatas := testEntry("semdatas", now)
	semDatas.StartDate = ""
	semDatas.EndDate = ""
	semCriacao := testEntry("semcriacao", time.Time{})
	valido := testEntry("valido", now)

	cache := domain.NewBillingCache()
	for _, entry := range []*domain.RevenueEntry{semID, semDatas, semCriacao, valido} {
		cache.Append(entry)
	}
	require.NoError(t, engine.SaveBillingData(cache))

	dropped, err := engine.ValidateDataIntegrity()
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)

	repaired, err := engine.LoadBillingData()
	require.NoError(t, err)
	require.NotNil(t, repaired)
	assert.Equal(t, 1, repaired.TotalEntries())
	assert.NotNil(t, repaired.Find(domain.SegmentConveniences, "loja1", "valido"))
}

func TestEngine_ValidateDataIntegrity_ApenasUmaDataBasta(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore(), testConfig())

	soInicio := testEntry("soinicio", time.Now())
	soInicio.EndDate = ""
	soFim := testEntry("sofim", time.Now())
	soFim.StartDate = ""

	cache := domain.NewBillingCache()
	cache.Append(soInicio)
	cache.Append(soFim)
	require.NoError(t, engine.SaveBillingData(cache))

	dropped, err := engine.ValidateDataIntegrity()
	require.NoError(t, err)
	assert.Zero(t, dropped)
}

func TestEntryIsSound_ValoresNaoFinitos(t *testing.T) {
	nan := testEntry("nan", time.Now())
	nan.Amount = math.NaN()
	assert.False(t, entryIsSound(nan))

	inf := testEntry("inf", time.Now())
	inf.Amount = math.Inf(1)
	assert.False(t, entryIsSound(inf))

	assert.False(t, entryIsSound(nil))
	assert.True(t, entryIsSound(testEntry("ok", time.Now())))
}

func TestEngine_ValidateDataIntegrity_SemDados(t *testing.T) {
	engine := NewEngine(kvstore.NewMemoryStore(), testConfig())

	dropped, err := engine.ValidateDataIntegrity()
	assert.NoError(t, err)
	assert.Zero(t, dropped)
}
