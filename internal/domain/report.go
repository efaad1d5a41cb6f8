package domain

// StoreReport é o relatório mensal de uma loja: valores rateados por
// sobreposição de período e, quando há meta cadastrada, o progresso sobre ela.
type StoreReport struct {
	Segment        Segment  `json:"segment"`
	Store          string   `json:"store"`
	Month          int      `json:"month"`
	Year           int      `json:"year"`
	Total          float64  `json:"total"`
	DailyAverage   float64  `json:"dailyAverage"`
	Projection     float64  `json:"projection"`
	EntryCount     int      `json:"entryCount"`
	SkippedEntries int      `json:"skippedEntries,omitempty"`
	Goal           *float64 `json:"goal,omitempty"`
	GoalProgress   float64  `json:"goalProgress,omitempty"`
}

// SegmentReport consolida as lojas de um segmento no mês. A meta consolidada
// é a soma das metas por loja cadastradas para o período.
type SegmentReport struct {
	Segment        Segment        `json:"segment"`
	Month          int            `json:"month"`
	Year           int            `json:"year"`
	Total          float64        `json:"total"`
	EntryCount     int            `json:"entryCount"`
	SkippedEntries int            `json:"skippedEntries,omitempty"`
	Goal           *float64       `json:"goal,omitempty"`
	GoalProgress   float64        `json:"goalProgress,omitempty"`
	Stores         []*StoreReport `json:"stores"`
}
