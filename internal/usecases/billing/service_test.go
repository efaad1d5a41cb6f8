package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/billing-manager-api/infrastructure/kvstore"
	"github.com/vfg2006/billing-manager-api/infrastructure/storage"
	"github.com/vfg2006/billing-manager-api/internal/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	engine := storage.NewEngine(kvstore.NewMemoryStore(), storage.Config{
		Namespace:        "ice_beer_",
		MaxStorageSize:   8 * 1024 * 1024,
		CleanupPercent:   80,
		ArchivePercent:   95,
		MaxBackups:       5,
		ArchiveAfterDays: 365,
		Version:          "2.0.0",
	})

	service, err := NewService(engine, nil)
	require.NoError(t, err)
	return service
}

func validFields() domain.EntryFields {
	return domain.EntryFields{
		StartDate:   "2025-01-10",
		EndDate:     "2025-01-15",
		Amount:      1500.50,
		Description: "semana de promoção",
	}
}

func TestService_CreateEntry(t *testing.T) {
	service := newTestService(t)

	entry, err := service.CreateEntry(domain.SegmentConveniences, "loja1", validFields())
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, domain.SegmentConveniences, entry.Segment)
	assert.Equal(t, "loja1", entry.Store)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, entry.CreatedAt, entry.UpdatedAt)

	stored := service.StoreEntries(domain.SegmentConveniences, "loja1")
	require.Len(t, stored, 1)
	assert.Equal(t, entry.ID, stored[0].ID)
}

func TestService_CreateEntry_PersisteWriteThrough(t *testing.T) {
	store := kvstore.NewMemoryStore()
	engine := storage.NewEngine(store, storage.Config{
		Namespace:        "ice_beer_",
		MaxStorageSize:   8 * 1024 * 1024,
		CleanupPercent:   80,
		ArchivePercent:   95,
		MaxBackups:       5,
		ArchiveAfterDays: 365,
		Version:          "2.0.0",
	})
	service, err := NewService(engine, nil)
	require.NoError(t, err)

	_, err = service.CreateEntry(domain.SegmentDelivery, domain.DeliveryStore, validFields())
	require.NoError(t, err)

	// Um serviço novo sobre o mesmo armazenamento enxerga o lançamento
	reloaded, err := NewService(engine, nil)
	require.NoError(t, err)
	assert.Len(t, reloaded.StoreEntries(domain.SegmentDelivery, domain.DeliveryStore), 1)
}

func TestService_CreateEntry_ValorNegativo(t *testing.T) {
	service := newTestService(t)

	fields := validFields()
	fields.Amount = -5

	_, err := service.CreateEntry(domain.SegmentConveniences, "loja1", fields)
	require.Error(t, err)
	require.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "positivo")

	// Nada foi adicionado
	assert.Empty(t, service.StoreEntries(domain.SegmentConveniences, "loja1"))
}

func TestService_CreateEntry_ColetaTodasAsViolacoes(t *testing.T) {
	service := newTestService(t)

	fields := domain.EntryFields{
		StartDate:   "2025-13-40",
		EndDate:     "nunca",
		Amount:      0,
		Description: string(make([]rune, 250)),
	}

	_, err := service.CreateEntry(domain.SegmentSnackBars, "loja9", fields)
	require.Error(t, err)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Len(t, validation.Reasons, 5, "todas as regras violadas devem aparecer juntas")
}

func TestService_CreateEntry_DataFinalAnterior(t *testing.T) {
	service := newTestService(t)

	fields := validFields()
	fields.StartDate = "2025-01-20"
	fields.EndDate = "2025-01-10"

	_, err := service.CreateEntry(domain.SegmentConveniences, "loja1", fields)
	require.Error(t, err)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Reasons, "data final anterior à data inicial")
}

func TestService_CreateEntry_ValorAcimaDoLimite(t *testing.T) {
	service := newTestService(t)

	fields := validFields()
	fields.Amount = 1_000_001

	_, err := service.CreateEntry(domain.SegmentConveniences, "loja1", fields)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestService_UpdateEntry(t *testing.T) {
	service := newTestService(t)

	created, err := service.CreateEntry(domain.SegmentConveniences, "loja2", validFields())
	require.NoError(t, err)

	fields := validFields()
	fields.Amount = 2000
	fields.Description = "corrigido"

	updated, err := service.UpdateEntry(created.ID, domain.SegmentConveniences, "loja2", fields)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, 2000.0, updated.Amount)
	assert.Equal(t, "corrigido", updated.Description)
	assert.True(t, !updated.UpdatedAt.Before(created.CreatedAt))
}

func TestService_UpdateEntry_NaoEncontrado(t *testing.T) {
	service := newTestService(t)

	_, err := service.UpdateEntry("inexistente", domain.SegmentConveniences, "loja1", validFields())
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestService_DeleteEntry(t *testing.T) {
	service := newTestService(t)

	created, err := service.CreateEntry(domain.SegmentSnackBars, "loja1", validFields())
	require.NoError(t, err)

	require.NoError(t, service.DeleteEntry(created.ID, domain.SegmentSnackBars, "loja1"))
	assert.Empty(t, service.StoreEntries(domain.SegmentSnackBars, "loja1"))
}

func TestService_DeleteEntry_NaoEncontradoNaoAlteraCache(t *testing.T) {
	service := newTestService(t)

	_, err := service.CreateEntry(domain.SegmentSnackBars, "loja1", validFields())
	require.NoError(t, err)

	err = service.DeleteEntry("inexistente", domain.SegmentSnackBars, "loja1")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.Len(t, service.StoreEntries(domain.SegmentSnackBars, "loja1"), 1)
}

func TestService_UpsertGoal_Sobrescreve(t *testing.T) {
	service := newTestService(t)

	require.NoError(t, service.UpsertGoal(domain.SegmentConveniences, "loja1", 1, 2025, 50000))
	require.NoError(t, service.UpsertGoal(domain.SegmentConveniences, "loja1", 1, 2025, 60000))

	goals := service.Goals()
	assert.Equal(t, 60000.0, goals[domain.GoalKey(domain.SegmentConveniences, "loja1", 1, 2025)])
	assert.Len(t, goals, 1)
}

func TestService_UpsertGoal_Limites(t *testing.T) {
	service := newTestService(t)

	err := service.UpsertGoal(domain.SegmentConveniences, "loja1", 1, 2025, -1)
	assert.True(t, IsValidationError(err))

	err = service.UpsertGoal(domain.SegmentConveniences, "loja1", 1, 2025, 10_000_001)
	assert.True(t, IsValidationError(err))

	err = service.UpsertGoal(domain.SegmentConveniences, "loja1", 13, 2025, 1000)
	assert.True(t, IsValidationError(err))
}

func TestService_DeleteGoal_NaoEncontrado(t *testing.T) {
	service := newTestService(t)

	err := service.DeleteGoal(domain.SegmentConveniences, "loja1", 1, 2025)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestService_StoreReport(t *testing.T) {
	service := newTestService(t)

	fields := domain.EntryFields{StartDate: "2025-01-25", EndDate: "2025-02-05", Amount: 1100}
	_, err := service.CreateEntry(domain.SegmentConveniences, "loja1", fields)
	require.NoError(t, err)
	require.NoError(t, service.UpsertGoal(domain.SegmentConveniences, "loja1", 1, 2025, 1000))

	report, err := service.StoreReport(domain.SegmentConveniences, "loja1", 1, 2025)
	require.NoError(t, err)

	assert.InDelta(t, 641.67, report.Total, 0.01)
	assert.Equal(t, 1, report.EntryCount)
	require.NotNil(t, report.Goal)
	assert.Equal(t, 1000.0, *report.Goal)
	assert.InDelta(t, 64.17, report.GoalProgress, 0.01)
}

func TestService_SegmentReport_AgregaLojas(t *testing.T) {
	service := newTestService(t)

	fields := domain.EntryFields{StartDate: "2025-01-01", EndDate: "2025-01-31", Amount: 3100}
	_, err := service.CreateEntry(domain.SegmentConveniences, "loja1", fields)
	require.NoError(t, err)
	_, err = service.CreateEntry(domain.SegmentConveniences, "loja2", fields)
	require.NoError(t, err)
	require.NoError(t, service.UpsertGoal(domain.SegmentConveniences, "loja1", 1, 2025, 3000))
	require.NoError(t, service.UpsertGoal(domain.SegmentConveniences, "loja2", 1, 2025, 3000))

	report, err := service.SegmentReport(domain.SegmentConveniences, 1, 2025)
	require.NoError(t, err)

	assert.InDelta(t, 6200, report.Total, 0.01)
	assert.Equal(t, 2, report.EntryCount)
	assert.Len(t, report.Stores, 3)
	require.NotNil(t, report.Goal)
	assert.Equal(t, 6000.0, *report.Goal)
	assert.InDelta(t, 103.33, report.GoalProgress, 0.01)
}

type recordingMirror struct {
	saved   []string
	deleted []string
	goals   []string
}

func (m *recordingMirror) EntryCreated(entry *domain.RevenueEntry) { m.saved = append(m.saved, entry.ID) }
func (m *recordingMirror) EntryUpdated(entry *domain.RevenueEntry) { m.saved = append(m.saved, entry.ID) }
func (m *recordingMirror) EntryDeleted(id string)                { m.deleted = append(m.deleted, id) }
func (m *recordingMirror) GoalSaved(key string, _ float64)       { m.goals = append(m.goals, key) }
func (m *recordingMirror) GoalDeleted(key string)                { m.goals = append(m.goals, key) }

func TestService_EspelhaEscritasNoRemoto(t *testing.T) {
	engine := storage.NewEngine(kvstore.NewMemoryStore(), storage.Config{
		Namespace:        "ice_beer_",
		MaxStorageSize:   8 * 1024 * 1024,
		CleanupPercent:   80,
		ArchivePercent:   95,
		MaxBackups:       5,
		ArchiveAfterDays: 365,
		Version:          "2.0.0",
	})
	mirror := &recordingMirror{}
	service, err := NewService(engine, mirror)
	require.NoError(t, err)

	entry, err := service.CreateEntry(domain.SegmentConveniences, "loja1", validFields())
	require.NoError(t, err)
	require.NoError(t, service.DeleteEntry(entry.ID, domain.SegmentConveniences, "loja1"))
	require.NoError(t, service.UpsertGoal(domain.SegmentConveniences, "loja1", 1, 2025, 100))

	assert.Equal(t, []string{entry.ID}, mirror.saved)
	assert.Equal(t, []string{entry.ID}, mirror.deleted)
	assert.Len(t, mirror.goals, 1)
}
