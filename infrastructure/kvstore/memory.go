package kvstore

import "sync"

// MemoryStore é um Store em memória, usado em testes e como armazenamento
// efêmero. MaxBytes > 0 impõe um teto físico e faz Set falhar com
// ErrQuotaExceeded, o que permite exercitar o ciclo limpeza-e-retentativa.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	maxBytes int64
}

// NewMemoryStore cria um Store em memória sem limite físico.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// NewBoundedMemoryStore cria um Store em memória com teto físico em bytes.
func NewBoundedMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), maxBytes: maxBytes}
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.data[key]
	if !ok {
		return nil, nil
	}

	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxBytes > 0 {
		projected := m.sizeLocked() - int64(len(m.data[key])) + int64(len(value))
		if _, exists := m.data[key]; !exists {
			projected += int64(len(key))
		}
		if projected > m.maxBytes {
			return ErrQuotaExceeded
		}
	}

	copied := make([]byte, len(value))
	copy(copied, value)
	m.data[key] = copied
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *MemoryStore) Size() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sizeLocked(), nil
}

func (m *MemoryStore) sizeLocked() int64 {
	var total int64
	for key, value := range m.data {
		total += int64(len(key) + len(value))
	}
	return total
}
