// Package reporting concentra a atribuição de faturamento por sobreposição de
// período: um lançamento com intervalo de datas é rateado entre os meses que
// ele toca, proporcionalmente aos dias de cada mês. Todo valor derivado
// (total, média diária, projeção, progresso de meta) passa pelo mesmo rateio.
package reporting

import (
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/internal/domain"
	"github.com/vfg2006/billing-manager-api/pkg/datemath"
	"github.com/vfg2006/billing-manager-api/pkg/utils"
)

// IsInMonth informa se o período do lançamento intersecta o mês indicado.
// Lançamento de um único dia conta apenas para o mês daquele dia.
// Datas ilegíveis contam como fora do mês.
func IsInMonth(entry *domain.RevenueEntry, month, year int) bool {
	start, end, err := entry.Period()
	if err != nil {
		return false
	}

	first, last := datemath.MonthBounds(month, year)
	return datemath.OverlapDays(start, end, first, last) > 0
}

// AmountForMonth rateia o valor do lançamento para o mês indicado:
// valor * diasDeSobreposição / diasTotaisDoPeríodo. Período degenerado
// (zero dias) atribui o valor cheio em vez de dividir por zero.
func AmountForMonth(entry *domain.RevenueEntry, month, year int) (float64, error) {
	start, end, err := entry.Period()
	if err != nil {
		return 0, err
	}

	first, last := datemath.MonthBounds(month, year)
	overlap := datemath.OverlapDays(start, end, first, last)
	if overlap == 0 {
		return 0, nil
	}

	total := datemath.TotalDays(start, end)
	if total == 0 {
		return entry.Amount, nil
	}

	return entry.Amount * float64(overlap) / float64(total), nil
}

// MonthlyFigures agrega as estatísticas de um conjunto de lançamentos para um
// mês. SkippedEntries conta lançamentos com datas ilegíveis, excluídos de
// todos os agregados em vez de derrubar o relatório.
type MonthlyFigures struct {
	Total          float64 `json:"total"`
	DailyAverage   float64 `json:"dailyAverage"`
	Projection     float64 `json:"projection"`
	EntryCount     int     `json:"entryCount"`
	SkippedEntries int     `json:"skippedEntries"`
}

// Compute calcula as estatísticas do mês em uma única varredura dos
// lançamentos, preservando a ordem de entrada.
func Compute(entries []*domain.RevenueEntry, month, year int) MonthlyFigures {
	figures := MonthlyFigures{}
	overlapTotal := 0

	first, last := datemath.MonthBounds(month, year)

	for _, entry := range entries {
		start, end, err := entry.Period()
		if err != nil {
			logrus.WithError(err).WithField("entry_id", entry.ID).Warn("Lançamento com datas ilegíveis ignorado no relatório")
			figures.SkippedEntries++
			continue
		}

		overlap := datemath.OverlapDays(start, end, first, last)
		if overlap == 0 {
			continue
		}

		amount, _ := AmountForMonth(entry, month, year)
		figures.Total += amount
		figures.EntryCount++
		overlapTotal += overlap
	}

	if overlapTotal > 0 {
		figures.DailyAverage = figures.Total / float64(overlapTotal)
	}
	if figures.DailyAverage > 0 {
		figures.Projection = figures.DailyAverage * float64(datemath.DaysInMonth(month, year))
	}

	figures.Total = utils.RoundWithTwoDecimalPlace(figures.Total)
	figures.DailyAverage = utils.RoundWithTwoDecimalPlace(figures.DailyAverage)
	figures.Projection = utils.RoundWithTwoDecimalPlace(figures.Projection)

	return figures
}

// SegmentTotal soma o valor rateado de todos os lançamentos que tocam o mês.
func SegmentTotal(entries []*domain.RevenueEntry, month, year int) float64 {
	return Compute(entries, month, year).Total
}

// EntriesForMonth filtra os lançamentos que tocam o mês, preservando a ordem
// de inserção.
func EntriesForMonth(entries []*domain.RevenueEntry, month, year int) []*domain.RevenueEntry {
	selected := make([]*domain.RevenueEntry, 0)
	for _, entry := range entries {
		if IsInMonth(entry, month, year) {
			selected = append(selected, entry)
		}
	}
	return selected
}

// DailyAverage é o total do mês dividido pela soma dos dias de sobreposição
// de cada lançamento dentro do mês. Zero quando nada toca o mês.
func DailyAverage(entries []*domain.RevenueEntry, month, year int) float64 {
	return Compute(entries, month, year).DailyAverage
}

// MonthlyProjection extrapola a média diária para o mês inteiro.
func MonthlyProjection(dailyAverage float64, month, year int) float64 {
	if dailyAverage <= 0 {
		return 0
	}
	return utils.RoundWithTwoDecimalPlace(dailyAverage * float64(datemath.DaysInMonth(month, year)))
}

// GoalProgress devolve o percentual do total do mês sobre a meta.
// Meta ausente ou não positiva resulta em zero.
func GoalProgress(total, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return utils.RoundWithTwoDecimalPlace(total / goal * 100)
}
