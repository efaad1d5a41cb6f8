package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	// Chave ausente não é erro
	value, err := store.Get("ice_beer_billingData")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, store.Set("ice_beer_billingData", []byte(`{"c":{}}`)))
	require.NoError(t, store.Set("ice_beer_backup_123", []byte("backup")))

	value, err = store.Get("ice_beer_billingData")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"c":{}}`), value)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ice_beer_billingData", "ice_beer_backup_123"}, keys)

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len("ice_beer_billingData")+len(`{"c":{}}`)+len("ice_beer_backup_123")+len("backup")), size)

	require.NoError(t, store.Remove("ice_beer_backup_123"))
	// Remove é idempotente
	require.NoError(t, store.Remove("ice_beer_backup_123"))

	keys, err = store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"ice_beer_billingData"}, keys)
}

func TestMemoryStoreQuota(t *testing.T) {
	store := NewBoundedMemoryStore(20)

	require.NoError(t, store.Set("k1", []byte("0123456789")))

	// Excederia o teto de 20 bytes (chave + valor)
	err := store.Set("k2", []byte("0123456789"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// Sobrescrever a mesma chave com valor menor é permitido
	require.NoError(t, store.Set("k1", []byte("01234")))

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)
}
