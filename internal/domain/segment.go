package domain

import "fmt"

// Segment identifica uma das três linhas de negócio. Os valores persistidos
// mantêm os nomes históricos da base legada para permitir migração no local.
type Segment string

const (
	// SegmentConveniences agrupa as lojas de conveniência
	SegmentConveniences Segment = "conveniences"
	// SegmentSnackBars agrupa as petiscarias
	SegmentSnackBars Segment = "petiscarias"
	// SegmentDelivery é o serviço de tele-entrega de bebidas (loja única)
	SegmentDelivery Segment = "diskChopp"
)

// DeliveryStore é a única loja do segmento de tele-entrega.
const DeliveryStore = "delivery"

// listas fixas de lojas por segmento
var segmentStores = map[Segment][]string{
	SegmentConveniences: {"loja1", "loja2", "loja3"},
	SegmentSnackBars:    {"loja1", "loja2"},
	SegmentDelivery:     {DeliveryStore},
}

// Segments retorna todos os segmentos na ordem canônica.
func Segments() []Segment {
	return []Segment{SegmentConveniences, SegmentSnackBars, SegmentDelivery}
}

// ParseSegment valida a representação textual de um segmento.
func ParseSegment(s string) (Segment, error) {
	segment := Segment(s)
	if !segment.Valid() {
		return "", fmt.Errorf("segmento desconhecido: %q", s)
	}
	return segment, nil
}

// Valid informa se o segmento pertence à enumeração fixa.
func (s Segment) Valid() bool {
	_, ok := segmentStores[s]
	return ok
}

// SingleStore informa se o segmento possui uma única loja (tele-entrega).
func (s Segment) SingleStore() bool {
	return s == SegmentDelivery
}

// Stores retorna a lista fixa de lojas válidas do segmento.
func (s Segment) Stores() []string {
	return segmentStores[s]
}

// ValidStore informa se o identificador de loja é válido dentro do segmento.
func (s Segment) ValidStore(store string) bool {
	for _, known := range segmentStores[s] {
		if known == store {
			return true
		}
	}
	return false
}
