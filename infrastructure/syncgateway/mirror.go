package syncgateway

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/internal/domain"
)

const opTimeout = 15 * time.Second

type opKind string

const (
	opEntryCreated opKind = "entryCreated"
	opEntryUpdated opKind = "entryUpdated"
	opEntryDeleted opKind = "entryDeleted"
	opGoalSaved    opKind = "goalSaved"
	opGoalDeleted  opKind = "goalDeleted"
)

type queuedOp struct {
	Kind     opKind
	Entry    *domain.RevenueEntry
	EntryID  string
	GoalKey  string
	Amount   float64
	QueuedAt time.Time
}

// Mirror replica escritas locais no armazenamento remoto. Falhas após o
// esgotamento das retentativas entram em uma fila em ordem de chegada;
// Replay reaplica a fila preservando a ordem de submissão original.
// Enquanto houver pendências, novas escritas entram direto no fim da fila:
// executá-las antes do replay inverteria a ordem no remoto.
type Mirror struct {
	gateway Gateway
	policy  RetryPolicy

	mu      sync.Mutex
	pending []queuedOp
	// id local -> id do documento remoto
	remoteIDs map[string]string
}

func NewMirror(gateway Gateway, policy RetryPolicy) *Mirror {
	return &Mirror{
		gateway:   gateway,
		policy:    policy,
		remoteIDs: make(map[string]string),
	}
}

func (m *Mirror) EntryCreated(entry *domain.RevenueEntry) {
	m.apply(queuedOp{Kind: opEntryCreated, Entry: entry.Clone(), QueuedAt: time.Now()})
}

func (m *Mirror) EntryUpdated(entry *domain.RevenueEntry) {
	m.apply(queuedOp{Kind: opEntryUpdated, Entry: entry.Clone(), QueuedAt: time.Now()})
}

func (m *Mirror) EntryDeleted(id string) {
	m.apply(queuedOp{Kind: opEntryDeleted, EntryID: id, QueuedAt: time.Now()})
}

func (m *Mirror) GoalSaved(key string, amount float64) {
	m.apply(queuedOp{Kind: opGoalSaved, GoalKey: key, Amount: amount, QueuedAt: time.Now()})
}

func (m *Mirror) GoalDeleted(key string) {
	m.apply(queuedOp{Kind: opGoalDeleted, GoalKey: key, QueuedAt: time.Now()})
}

func (m *Mirror) apply(op queuedOp) {
	if m.enqueueBehindPending(op) {
		logrus.WithField("operation", op.Kind).Info("Fila pendente não vazia, operação enfileirada para o replay")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := m.execute(ctx, op); err != nil {
		logrus.WithError(err).WithField("operation", op.Kind).Warn("Replicação remota falhou, operação enfileirada")
		m.enqueue(op)
	}
}

func (m *Mirror) enqueue(op queuedOp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, op)
}

// enqueueBehindPending enfileira a operação quando já existem pendências,
// mantendo a ordem de submissão para o próximo replay.
func (m *Mirror) enqueueBehindPending(op queuedOp) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return false
	}
	m.pending = append(m.pending, op)
	return true
}

// PendingCount informa quantas operações aguardam replay.
func (m *Mirror) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Replay reaplica as operações pendentes em ordem de submissão. Na primeira
// falha o processamento para e o restante da fila é mantido, ainda em ordem.
func (m *Mirror) Replay(ctx context.Context) (int, error) {
	m.mu.Lock()
	ops := m.pending
	m.pending = nil
	m.mu.Unlock()

	if len(ops) == 0 {
		return 0, nil
	}

	logrus.WithField("pending", len(ops)).Info("Processando operações pendentes")

	for i, op := range ops {
		if err := m.execute(ctx, op); err != nil {
			m.mu.Lock()
			m.pending = append(ops[i:], m.pending...)
			m.mu.Unlock()
			return i, err
		}
	}

	return len(ops), nil
}

func (m *Mirror) execute(ctx context.Context, op queuedOp) error {
	switch op.Kind {
	case opEntryCreated:
		return ExecuteWithRetry(ctx, m.policy, func(ctx context.Context) error {
			remoteID, err := m.gateway.Create(ctx, CollectionBillingEntries, entryRecord(op.Entry))
			if err != nil {
				return err
			}
			m.setRemoteID(op.Entry.ID, remoteID)
			return nil
		})
	case opEntryUpdated:
		return ExecuteWithRetry(ctx, m.policy, func(ctx context.Context) error {
			remoteID, ok := m.remoteID(op.Entry.ID)
			if !ok {
				// Entrada criada antes do espelhamento estar ativo
				id, err := m.gateway.Create(ctx, CollectionBillingEntries, entryRecord(op.Entry))
				if err != nil {
					return err
				}
				m.setRemoteID(op.Entry.ID, id)
				return nil
			}
			return m.gateway.Update(ctx, CollectionBillingEntries, remoteID, entryRecord(op.Entry))
		})
	case opEntryDeleted:
		return ExecuteWithRetry(ctx, m.policy, func(ctx context.Context) error {
			remoteID, ok := m.remoteID(op.EntryID)
			if !ok {
				remoteID = op.EntryID
			}
			if err := m.gateway.Delete(ctx, CollectionBillingEntries, remoteID); err != nil {
				return err
			}
			m.clearRemoteID(op.EntryID)
			return nil
		})
	case opGoalSaved:
		return ExecuteWithRetry(ctx, m.policy, func(ctx context.Context) error {
			return m.gateway.Update(ctx, CollectionMonthlyGoals, op.GoalKey, Record{
				"key":    op.GoalKey,
				"amount": op.Amount,
			})
		})
	case opGoalDeleted:
		return ExecuteWithRetry(ctx, m.policy, func(ctx context.Context) error {
			return m.gateway.Delete(ctx, CollectionMonthlyGoals, op.GoalKey)
		})
	}
	return nil
}

// MigrateLocalData envia o conteúdo do cache local para o armazenamento
// remoto, uma entrada por documento. Usado uma única vez na adoção do
// espelhamento; entradas já mapeadas para um id remoto são ignoradas.
func (m *Mirror) MigrateLocalData(ctx context.Context, cache *domain.BillingCache, goals domain.GoalMap) (int, error) {
	if cache == nil {
		return 0, nil
	}

	migrated := 0
	for _, segment := range domain.Segments() {
		for _, entry := range cache.SegmentEntries(segment) {
			if _, ok := m.remoteID(entry.ID); ok {
				continue
			}
			entry := entry
			err := ExecuteWithRetry(ctx, m.policy, func(ctx context.Context) error {
				remoteID, err := m.gateway.Create(ctx, CollectionBillingEntries, entryRecord(entry))
				if err != nil {
					return err
				}
				m.setRemoteID(entry.ID, remoteID)
				return nil
			})
			if err != nil {
				return migrated, err
			}
			migrated++
		}
	}

	for key, amount := range goals {
		key, amount := key, amount
		err := ExecuteWithRetry(ctx, m.policy, func(ctx context.Context) error {
			return m.gateway.Update(ctx, CollectionMonthlyGoals, key, Record{
				"key":    key,
				"amount": amount,
			})
		})
		if err != nil {
			return migrated, err
		}
		migrated++
	}

	logrus.WithField("migrated", migrated).Info("Dados locais migrados para o armazenamento remoto")
	return migrated, nil
}

func (m *Mirror) remoteID(localID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.remoteIDs[localID]
	return id, ok
}

func (m *Mirror) setRemoteID(localID, remoteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remoteIDs[localID] = remoteID
}

func (m *Mirror) clearRemoteID(localID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.remoteIDs, localID)
}

func entryRecord(entry *domain.RevenueEntry) Record {
	return Record{
		"id":          entry.ID,
		"segment":     string(entry.Segment),
		"store":       entry.Store,
		"startDate":   entry.StartDate,
		"endDate":     entry.EndDate,
		"amount":      entry.Amount,
		"description": entry.Description,
		"createdAt":   entry.CreatedAt,
		"updatedAt":   entry.UpdatedAt,
	}
}
