package domain

import (
	"time"

	"github.com/vfg2006/billing-manager-api/pkg/datemath"
)

// RevenueEntry é um lançamento de faturamento com intervalo de datas.
// StartDate e EndDate ficam no formato YYYY-MM-DD, como na base legada;
// o parse acontece na leitura para que lançamentos históricos com datas
// corrompidas possam ser pulados em vez de derrubar um relatório.
type RevenueEntry struct {
	ID          string    `json:"id"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	Segment     Segment   `json:"segment"`
	Store       string    `json:"store"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Period devolve o intervalo de datas do lançamento como meia-noite local.
func (e *RevenueEntry) Period() (time.Time, time.Time, error) {
	start, err := datemath.ParseCalendarDate(e.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end, err := datemath.ParseCalendarDate(e.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	return start, end, nil
}

// Clone devolve uma cópia independente do lançamento.
func (e *RevenueEntry) Clone() *RevenueEntry {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// EntryFields são os campos controlados pelo usuário em criação e edição.
type EntryFields struct {
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}
