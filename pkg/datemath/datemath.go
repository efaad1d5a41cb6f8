// Package datemath concentra a aritmética de calendário usada pela atribuição
// de faturamento. Todas as contagens de dias são inclusivas nas duas pontas:
// um intervalo de um único dia conta 1.
package datemath

import (
	"fmt"
	"math"
	"time"
)

// ErrInvalidDate indica que a string não representa uma data de calendário válida.
type ErrInvalidDate struct {
	Value string
}

func (e *ErrInvalidDate) Error() string {
	return fmt.Sprintf("data inválida: %q (esperado YYYY-MM-DD)", e.Value)
}

// ParseCalendarDate converte uma string YYYY-MM-DD para a meia-noite local
// daquele dia. Strings malformadas ou datas inexistentes (ex: 2025-02-30)
// falham com ErrInvalidDate; nunca são aceitas silenciosamente.
func ParseCalendarDate(text string) (time.Time, error) {
	parsed, err := time.ParseInLocation(time.DateOnly, text, time.Local)
	if err != nil {
		return time.Time{}, &ErrInvalidDate{Value: text}
	}

	return parsed, nil
}

// MonthBounds retorna o primeiro e o último dia de calendário do mês informado
// (mês 1-based), ambos à meia-noite local.
func MonthBounds(month, year int) (time.Time, time.Time) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	// Dia zero do mês seguinte é o último dia do mês corrente
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.Local)
	return first, last
}

// DaysInMonth retorna a quantidade de dias do mês informado (mês 1-based).
func DaysInMonth(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.Local).Day()
}

// TotalDays retorna a contagem inclusiva de dias do intervalo [start, end].
// Retorna 0 quando end antecede start.
func TotalDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}

	return daysBetween(start, end) + 1
}

// OverlapDays retorna a contagem inclusiva de dias da interseção entre os
// intervalos fechados [rangeStart, rangeEnd] e [boundsStart, boundsEnd].
// Retorna 0 quando os intervalos são disjuntos.
func OverlapDays(rangeStart, rangeEnd, boundsStart, boundsEnd time.Time) int {
	if rangeStart.After(boundsEnd) || rangeEnd.Before(boundsStart) {
		return 0
	}

	start := rangeStart
	if boundsStart.After(start) {
		start = boundsStart
	}

	end := rangeEnd
	if boundsEnd.Before(end) {
		end = boundsEnd
	}

	return daysBetween(start, end) + 1
}

// daysBetween conta os dias de calendário entre duas meias-noites locais.
// Arredonda para absorver diferenças de uma hora em transições de horário de verão.
func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}
