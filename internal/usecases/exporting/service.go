// Package exporting implementa a exportação e importação dos dados de
// faturamento em JSON e CSV. Toda importação cria um backup antes de tocar o
// estado, para que um arquivo malformado nunca custe os dados correntes.
package exporting

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/infrastructure/storage"
	"github.com/vfg2006/billing-manager-api/internal/domain"
	"github.com/vfg2006/billing-manager-api/internal/usecases/billing"
	"github.com/vfg2006/billing-manager-api/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var csvHeader = []string{"Type", "Store", "StartDate", "EndDate", "Amount", "Notes"}

// exportDocument é o formato do arquivo JSON exportado.
type exportDocument struct {
	Version    string `json:"version"`
	ExportedAt string `json:"exportedAt"`
	Data       struct {
		BillingEntries []*domain.RevenueEntry `json:"billingEntries"`
		MonthlyGoals   domain.GoalMap         `json:"monthlyGoals"`
	} `json:"data"`
}

// Exporter é a interface consumida pelos handlers de exportação.
type Exporter interface {
	ExportJSON() ([]byte, error)
	ExportCSV() ([]byte, error)
	ImportJSON(content []byte) (int, error)
	ImportCSV(content []byte) (int, error)
}

type Service struct {
	biller  billing.Biller
	engine  *storage.Engine
	version string
}

func NewService(biller billing.Biller, engine *storage.Engine, version string) Exporter {
	return &Service{biller: biller, engine: engine, version: version}
}

// ExportJSON serializa todos os lançamentos e metas em um único documento.
func (s *Service) ExportJSON() ([]byte, error) {
	cache, goals := s.biller.Snapshot()

	document := exportDocument{
		Version:    s.version,
		ExportedAt: time.Now().Format(time.RFC3339),
	}
	document.Data.BillingEntries = allEntries(cache)
	document.Data.MonthlyGoals = goals

	content, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "erro ao serializar exportação")
	}
	return content, nil
}

// ExportCSV serializa os lançamentos no formato tabular.
// Metas não entram no CSV; só o JSON carrega o estado completo.
func (s *Service) ExportCSV() ([]byte, error) {
	cache, _ := s.biller.Snapshot()

	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)

	if err := writer.Write(csvHeader); err != nil {
		return nil, errors.Wrap(err, "erro ao escrever cabeçalho CSV")
	}

	for _, entry := range allEntries(cache) {
		record := []string{
			string(entry.Segment),
			entry.Store,
			entry.StartDate,
			entry.EndDate,
			strconv.FormatFloat(entry.Amount, 'f', -1, 64),
			entry.Description,
		}
		if err := writer.Write(record); err != nil {
			return nil, errors.Wrap(err, "erro ao escrever linha CSV")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, errors.Wrap(err, "erro ao finalizar CSV")
	}
	return buffer.Bytes(), nil
}

// ImportJSON mescla um documento exportado no estado corrente: lançamentos
// com id já existente são pulados, metas sobrescrevem as atuais. Devolve
// quantos lançamentos entraram.
func (s *Service) ImportJSON(content []byte) (int, error) {
	var document exportDocument
	if err := json.Unmarshal(content, &document); err != nil {
		return 0, errors.Wrap(err, "arquivo de importação inválido")
	}

	if err := s.engine.CreateBackup(); err != nil {
		return 0, errors.Wrap(err, "erro ao criar backup pré-importação")
	}

	cache, goals := s.biller.Snapshot()
	merged := cloneCache(cache)

	imported := 0
	skipped := 0
	for _, entry := range document.Data.BillingEntries {
		if !entry.Segment.Valid() || !entry.Segment.ValidStore(entry.Store) {
			skipped++
			continue
		}
		if entry.ID == "" || merged.Find(entry.Segment, entry.Store, entry.ID) != nil {
			skipped++
			continue
		}
		merged.Append(entry)
		imported++
	}

	for key, amount := range document.Data.MonthlyGoals {
		goals[key] = amount
	}

	if err := s.biller.ReplaceAll(merged, goals); err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Importação JSON concluída")

	return imported, nil
}

// ImportCSV acrescenta os lançamentos de um arquivo tabular, gerando ids
// novos. Linhas com segmento, loja ou valor ilegível são puladas.
func (s *Service) ImportCSV(content []byte) (int, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return 0, errors.Wrap(err, "arquivo CSV inválido")
	}
	if len(rows) == 0 || len(rows[0]) < 5 {
		return 0, errors.New("arquivo CSV sem cabeçalho reconhecível")
	}

	if err := s.engine.CreateBackup(); err != nil {
		return 0, errors.Wrap(err, "erro ao criar backup pré-importação")
	}

	cache, goals := s.biller.Snapshot()
	merged := cloneCache(cache)

	imported := 0
	skipped := 0
	now := time.Now()

	for _, row := range rows[1:] {
		if len(row) < 5 {
			skipped++
			continue
		}

		segment, err := domain.ParseSegment(row[0])
		if err != nil || !segment.ValidStore(row[1]) {
			skipped++
			continue
		}

		amount, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			skipped++
			continue
		}

		id, err := utils.GenerateID()
		if err != nil {
			return 0, err
		}

		description := ""
		if len(row) > 5 {
			description = row[5]
		}

		merged.Append(&domain.RevenueEntry{
			ID:          id,
			StartDate:   row[2],
			EndDate:     row[3],
			Amount:      amount,
			Description: description,
			Segment:     segment,
			Store:       row[1],
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		imported++
	}

	if err := s.biller.ReplaceAll(merged, goals); err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Importação CSV concluída")

	return imported, nil
}

// allEntries achata o cache na ordem fixa dos segmentos e das lojas.
func allEntries(cache *domain.BillingCache) []*domain.RevenueEntry {
	entries := make([]*domain.RevenueEntry, 0, cache.TotalEntries())
	for _, segment := range domain.Segments() {
		entries = append(entries, cache.SegmentEntries(segment)...)
	}
	return entries
}

// cloneCache copia a estrutura de buckets para que a mescla não toque o cache
// vivo antes do ReplaceAll.
func cloneCache(cache *domain.BillingCache) *domain.BillingCache {
	cloned := domain.NewBillingCache()
	for _, segment := range domain.Segments() {
		for _, store := range segment.Stores() {
			for _, entry := range cache.Bucket(segment, store) {
				copied := *entry
				cloned.Append(&copied)
			}
		}
	}
	return cloned
}
