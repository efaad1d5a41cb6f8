// Package billing implementa as operações de domínio sobre o cache de
// faturamento e o mapa de metas: criação, edição e remoção de lançamentos e
// metas, com validação completa antes de qualquer mutação e persistência
// write-through após cada escrita.
package billing

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/infrastructure/storage"
	"github.com/vfg2006/billing-manager-api/internal/domain"
	"github.com/vfg2006/billing-manager-api/internal/usecases/reporting"
	"github.com/vfg2006/billing-manager-api/pkg/datemath"
	"github.com/vfg2006/billing-manager-api/pkg/utils"
)

// RemoteMirror replica escritas locais em um armazenamento remoto, em melhor
// esforço: falha remota nunca desfaz a escrita local.
type RemoteMirror interface {
	EntryCreated(entry *domain.RevenueEntry)
	EntryUpdated(entry *domain.RevenueEntry)
	EntryDeleted(id string)
	GoalSaved(key string, amount float64)
	GoalDeleted(key string)
}

// Biller é a interface das operações de faturamento consumida pela API.
type Biller interface {
	CreateEntry(segment domain.Segment, store string, fields domain.EntryFields) (*domain.RevenueEntry, error)
	UpdateEntry(id string, segment domain.Segment, store string, fields domain.EntryFields) (*domain.RevenueEntry, error)
	DeleteEntry(id string, segment domain.Segment, store string) error
	UpsertGoal(segment domain.Segment, store string, month, year int, amount float64) error
	DeleteGoal(segment domain.Segment, store string, month, year int) error
	Goals() domain.GoalMap
	StoreEntries(segment domain.Segment, store string) []*domain.RevenueEntry
	StoreReport(segment domain.Segment, store string, month, year int) (*domain.StoreReport, error)
	SegmentReport(segment domain.Segment, month, year int) (*domain.SegmentReport, error)
	Snapshot() (*domain.BillingCache, domain.GoalMap)
	ReplaceAll(cache *domain.BillingCache, goals domain.GoalMap) error
	Reload() error
}

// Service guarda o estado de domínio em memória e o persiste write-through.
// O mutex existe porque os handlers HTTP executam em paralelo; o cache em si
// continua tendo um único escritor em processo.
type Service struct {
	mu     sync.RWMutex
	cache  *domain.BillingCache
	goals  domain.GoalMap
	engine *storage.Engine
	mirror RemoteMirror
}

// NewService carrega o estado persistido (ou parte de um estado vazio) e
// devolve o serviço pronto. O espelho remoto é opcional.
func NewService(engine *storage.Engine, mirror RemoteMirror) (*Service, error) {
	cache, err := engine.LoadBillingData()
	if err != nil {
		return nil, err
	}
	if cache == nil {
		cache = domain.NewBillingCache()
	}

	goals, err := engine.LoadGoals()
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = make(domain.GoalMap)
	}

	return &Service{
		cache:  cache,
		goals:  goals,
		engine: engine,
		mirror: mirror,
	}, nil
}

// CreateEntry valida os campos, acrescenta o lançamento no bucket da loja e
// persiste. Toda regra violada aparece de uma vez no erro de validação.
func (s *Service) CreateEntry(segment domain.Segment, store string, fields domain.EntryFields) (*domain.RevenueEntry, error) {
	if err := validateEntry(segment, store, fields); err != nil {
		return nil, err
	}

	id, err := utils.GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := &domain.RevenueEntry{
		ID:          id,
		StartDate:   fields.StartDate,
		EndDate:     fields.EndDate,
		Amount:      fields.Amount,
		Description: fields.Description,
		Segment:     segment,
		Store:       store,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.cache.Append(entry)
	err = s.engine.SaveBillingData(s.cache)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"entry_id": entry.ID,
		"segment":  segment,
		"store":    store,
	}).Info("Lançamento criado")

	if s.mirror != nil {
		s.mirror.EntryCreated(entry)
	}

	return entry, nil
}

// UpdateEntry valida os campos e substitui no lugar o lançamento de mesmo id,
// preservando id e criação e renovando a data de atualização.
func (s *Service) UpdateEntry(id string, segment domain.Segment, store string, fields domain.EntryFields) (*domain.RevenueEntry, error) {
	if err := validateEntry(segment, store, fields); err != nil {
		return nil, err
	}

	s.mu.Lock()
	current := s.cache.Find(segment, store, id)
	if current == nil {
		s.mu.Unlock()
		return nil, &NotFoundError{Resource: "lançamento", ID: id}
	}

	updated := &domain.RevenueEntry{
		ID:          current.ID,
		StartDate:   fields.StartDate,
		EndDate:     fields.EndDate,
		Amount:      fields.Amount,
		Description: fields.Description,
		Segment:     segment,
		Store:       store,
		CreatedAt:   current.CreatedAt,
		UpdatedAt:   time.Now(),
	}
	s.cache.Replace(updated)
	err := s.engine.SaveBillingData(s.cache)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	logrus.WithField("entry_id", id).Info("Lançamento atualizado")

	if s.mirror != nil {
		s.mirror.EntryUpdated(updated)
	}

	return updated, nil
}

// DeleteEntry remove o lançamento do bucket. Remoção é definitiva; só um
// backup recupera o dado.
func (s *Service) DeleteEntry(id string, segment domain.Segment, store string) error {
	s.mu.Lock()
	if !s.cache.Remove(segment, store, id) {
		s.mu.Unlock()
		return &NotFoundError{Resource: "lançamento", ID: id}
	}
	err := s.engine.SaveBillingData(s.cache)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	logrus.WithField("entry_id", id).Info("Lançamento removido")

	if s.mirror != nil {
		s.mirror.EntryDeleted(id)
	}

	return nil
}

// UpsertGoal grava a meta do período, sobrescrevendo incondicionalmente uma
// meta existente com a mesma chave.
func (s *Service) UpsertGoal(segment domain.Segment, store string, month, year int, amount float64) error {
	if err := validateGoal(segment, store, month, year, amount); err != nil {
		return err
	}

	key := domain.GoalKey(segment, store, month, year)

	s.mu.Lock()
	s.goals[key] = amount
	err := s.engine.SaveGoals(s.goals)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"goal_key": key, "amount": amount}).Info("Meta salva")

	if s.mirror != nil {
		s.mirror.GoalSaved(key, amount)
	}

	return nil
}

// DeleteGoal remove a meta do período.
func (s *Service) DeleteGoal(segment domain.Segment, store string, month, year int) error {
	key := domain.GoalKey(segment, store, month, year)

	s.mu.Lock()
	if _, ok := s.goals[key]; !ok {
		s.mu.Unlock()
		return &NotFoundError{Resource: "meta", ID: key}
	}
	delete(s.goals, key)
	err := s.engine.SaveGoals(s.goals)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	logrus.WithField("goal_key", key).Info("Meta removida")

	if s.mirror != nil {
		s.mirror.GoalDeleted(key)
	}

	return nil
}

// Goals devolve uma cópia do mapa de metas.
func (s *Service) Goals() domain.GoalMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goals.Clone()
}

// StoreEntries devolve os lançamentos de uma loja em ordem de inserção.
func (s *Service) StoreEntries(segment domain.Segment, store string) []*domain.RevenueEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.cache.Bucket(segment, store)
	entries := make([]*domain.RevenueEntry, len(bucket))
	copy(entries, bucket)
	return entries
}

// StoreReport monta o relatório mensal de uma loja, com o progresso sobre a
// meta quando existe meta cadastrada.
func (s *Service) StoreReport(segment domain.Segment, store string, month, year int) (*domain.StoreReport, error) {
	if err := validatePeriod(segment, store, month, year); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := s.cache.Bucket(segment, store)
	figures := reporting.Compute(entries, month, year)
	goal, hasGoal := s.goals[domain.GoalKey(segment, store, month, year)]
	s.mu.RUnlock()

	report := &domain.StoreReport{
		Segment:        segment,
		Store:          store,
		Month:          month,
		Year:           year,
		Total:          figures.Total,
		DailyAverage:   figures.DailyAverage,
		Projection:     figures.Projection,
		EntryCount:     figures.EntryCount,
		SkippedEntries: figures.SkippedEntries,
	}
	if hasGoal {
		report.Goal = &goal
		report.GoalProgress = reporting.GoalProgress(figures.Total, goal)
	}

	return report, nil
}

// SegmentReport agrega os relatórios de todas as lojas do segmento. A meta do
// segmento é a soma das metas por loja do período.
func (s *Service) SegmentReport(segment domain.Segment, month, year int) (*domain.SegmentReport, error) {
	if !segment.Valid() {
		return nil, &ValidationError{Reasons: []string{fmt.Sprintf("segmento inválido: %s", segment)}}
	}

	report := &domain.SegmentReport{
		Segment: segment,
		Month:   month,
		Year:    year,
		Stores:  make([]*domain.StoreReport, 0, len(segment.Stores())),
	}

	goalTotal := 0.0
	hasGoal := false

	for _, store := range segment.Stores() {
		storeReport, err := s.StoreReport(segment, store, month, year)
		if err != nil {
			return nil, err
		}
		report.Stores = append(report.Stores, storeReport)
		report.Total += storeReport.Total
		report.EntryCount += storeReport.EntryCount
		report.SkippedEntries += storeReport.SkippedEntries
		if storeReport.Goal != nil {
			goalTotal += *storeReport.Goal
			hasGoal = true
		}
	}

	report.Total = utils.RoundWithTwoDecimalPlace(report.Total)
	if hasGoal {
		report.Goal = &goalTotal
		report.GoalProgress = reporting.GoalProgress(report.Total, goalTotal)
	}

	return report, nil
}

// Snapshot devolve o estado corrente para exportação e espelhamento.
// O cache retornado é o vivo; chamadores não devem mutá-lo.
func (s *Service) Snapshot() (*domain.BillingCache, domain.GoalMap) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache, s.goals.Clone()
}

// ReplaceAll substitui todo o estado de domínio, usado pela importação em
// massa. O chamador é responsável por criar o backup prévio.
func (s *Service) ReplaceAll(cache *domain.BillingCache, goals domain.GoalMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cache == nil {
		cache = domain.NewBillingCache()
	}
	if goals == nil {
		goals = make(domain.GoalMap)
	}

	if err := s.engine.SaveBillingData(cache); err != nil {
		return err
	}
	if err := s.engine.SaveGoals(goals); err != nil {
		return err
	}

	s.cache = cache
	s.goals = goals
	return nil
}

// Reload descarta o estado em memória e recarrega o que está persistido.
// Usado após restauração de backup e rotinas de manutenção que regravam os
// registros fora deste serviço.
func (s *Service) Reload() error {
	cache, err := s.engine.LoadBillingData()
	if err != nil {
		return err
	}
	if cache == nil {
		cache = domain.NewBillingCache()
	}

	goals, err := s.engine.LoadGoals()
	if err != nil {
		return err
	}
	if goals == nil {
		goals = make(domain.GoalMap)
	}

	s.mu.Lock()
	s.cache = cache
	s.goals = goals
	s.mu.Unlock()

	return nil
}

// validateEntry aplica todas as regras de criação/edição e devolve a lista
// completa de violações.
func validateEntry(segment domain.Segment, store string, fields domain.EntryFields) error {
	reasons := make([]string, 0)

	if !segment.Valid() {
		reasons = append(reasons, fmt.Sprintf("segmento inválido: %s", segment))
	} else if !segment.ValidStore(store) {
		reasons = append(reasons, fmt.Sprintf("loja inválida para o segmento %s: %s", segment, store))
	}

	start, startErr := datemath.ParseCalendarDate(fields.StartDate)
	if startErr != nil {
		reasons = append(reasons, fmt.Sprintf("data inicial inválida: %s", fields.StartDate))
	}
	end, endErr := datemath.ParseCalendarDate(fields.EndDate)
	if endErr != nil {
		reasons = append(reasons, fmt.Sprintf("data final inválida: %s", fields.EndDate))
	}
	if startErr == nil && endErr == nil && end.Before(start) {
		reasons = append(reasons, "data final anterior à data inicial")
	}

	if fields.Amount <= 0 {
		reasons = append(reasons, "valor deve ser positivo")
	} else if fields.Amount > MaxEntryAmount {
		reasons = append(reasons, fmt.Sprintf("valor acima do máximo permitido (%d)", MaxEntryAmount))
	}

	if len([]rune(fields.Description)) > MaxDescriptionLength {
		reasons = append(reasons, fmt.Sprintf("descrição acima de %d caracteres", MaxDescriptionLength))
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// validateGoal aplica as regras de metas: período válido e valor não negativo
// limitado.
func validateGoal(segment domain.Segment, store string, month, year int, amount float64) error {
	reasons := make([]string, 0)

	if err := validatePeriod(segment, store, month, year); err != nil {
		if validation, ok := err.(*ValidationError); ok {
			reasons = append(reasons, validation.Reasons...)
		}
	}

	if amount < 0 {
		reasons = append(reasons, "meta não pode ser negativa")
	} else if amount > MaxGoalAmount {
		reasons = append(reasons, fmt.Sprintf("meta acima do máximo permitido (%d)", MaxGoalAmount))
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

func validatePeriod(segment domain.Segment, store string, month, year int) error {
	reasons := make([]string, 0)

	if !segment.Valid() {
		reasons = append(reasons, fmt.Sprintf("segmento inválido: %s", segment))
	} else if !segment.ValidStore(store) {
		reasons = append(reasons, fmt.Sprintf("loja inválida para o segmento %s: %s", segment, store))
	}
	if month < 1 || month > 12 {
		reasons = append(reasons, fmt.Sprintf("mês inválido: %d", month))
	}
	if year < 2000 || year > 2100 {
		reasons = append(reasons, fmt.Sprintf("ano inválido: %d", year))
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}
