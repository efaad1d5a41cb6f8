package datemath

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
}

func TestParseCalendarDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "data válida", input: "2025-01-25", want: date(2025, 1, 25)},
		{name: "ano bissexto", input: "2024-02-29", want: date(2024, 2, 29)},
		{name: "dia inexistente", input: "2025-02-30", wantErr: true},
		{name: "formato errado", input: "25/01/2025", wantErr: true},
		{name: "string vazia", input: "", wantErr: true},
		{name: "lixo", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCalendarDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorAs(t, err, new(*ErrInvalidDate))
				return
			}

			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "esperado %v, obtido %v", tt.want, got)
			// Meia-noite local, nunca deslocada para UTC
			assert.Equal(t, time.Local, got.Location())
		})
	}
}

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(2, 2025)
	assert.Equal(t, date(2025, 2, 1), first)
	assert.Equal(t, date(2025, 2, 28), last)

	first, last = MonthBounds(2, 2024)
	assert.Equal(t, date(2024, 2, 1), first)
	assert.Equal(t, date(2024, 2, 29), last)

	first, last = MonthBounds(12, 2025)
	assert.Equal(t, date(2025, 12, 1), first)
	assert.Equal(t, date(2025, 12, 31), last)
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(1, 2025))
	assert.Equal(t, 28, DaysInMonth(2, 2025))
	assert.Equal(t, 29, DaysInMonth(2, 2024))
	assert.Equal(t, 30, DaysInMonth(4, 2025))
}

func TestTotalDays(t *testing.T) {
	// Convenção inclusiva: um único dia conta 1
	assert.Equal(t, 1, TotalDays(date(2025, 1, 10), date(2025, 1, 10)))
	assert.Equal(t, 12, TotalDays(date(2025, 1, 25), date(2025, 2, 5)))
	assert.Equal(t, 365, TotalDays(date(2025, 1, 1), date(2025, 12, 31)))
	// Intervalo invertido
	assert.Equal(t, 0, TotalDays(date(2025, 1, 10), date(2025, 1, 9)))
}

func TestOverlapDays(t *testing.T) {
	monthStart, monthEnd := MonthBounds(1, 2025)

	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"totalmente dentro", date(2025, 1, 10), date(2025, 1, 15), 6},
		{"atravessa o fim do mês", date(2025, 1, 25), date(2025, 2, 5), 7},
		{"atravessa o início do mês", date(2024, 12, 28), date(2025, 1, 3), 3},
		{"disjunto depois", date(2025, 2, 1), date(2025, 2, 10), 0},
		{"disjunto antes", date(2024, 12, 1), date(2024, 12, 31), 0},
		{"um único dia na borda", date(2025, 1, 31), date(2025, 1, 31), 1},
		{"cobre o mês inteiro", date(2024, 12, 1), date(2025, 2, 28), 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverlapDays(tt.start, tt.end, monthStart, monthEnd))
		})
	}
}
