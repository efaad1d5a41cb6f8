package domain

// BillingCache é o cache de domínio em memória: dois segmentos com mapa de
// lojas e o segmento de tele-entrega com sequência única, espelhando o layout
// persistido da base legada. Cada campo tem o formato que o compilador espera
// para o seu segmento, eliminando o dispatch por string da versão original.
type BillingCache struct {
	Conveniences map[string][]*RevenueEntry `json:"conveniences,omitempty"`
	SnackBars    map[string][]*RevenueEntry `json:"petiscarias,omitempty"`
	Delivery     []*RevenueEntry            `json:"diskChopp,omitempty"`
}

// NewBillingCache cria um cache vazio com os mapas inicializados.
func NewBillingCache() *BillingCache {
	return &BillingCache{
		Conveniences: make(map[string][]*RevenueEntry),
		SnackBars:    make(map[string][]*RevenueEntry),
		Delivery:     make([]*RevenueEntry, 0),
	}
}

// Bucket devolve a sequência de lançamentos de uma loja, em ordem de inserção.
func (c *BillingCache) Bucket(segment Segment, store string) []*RevenueEntry {
	switch segment {
	case SegmentConveniences:
		return c.Conveniences[store]
	case SegmentSnackBars:
		return c.SnackBars[store]
	case SegmentDelivery:
		return c.Delivery
	}
	return nil
}

// setBucket substitui a sequência de uma loja.
func (c *BillingCache) setBucket(segment Segment, store string, entries []*RevenueEntry) {
	switch segment {
	case SegmentConveniences:
		if c.Conveniences == nil {
			c.Conveniences = make(map[string][]*RevenueEntry)
		}
		c.Conveniences[store] = entries
	case SegmentSnackBars:
		if c.SnackBars == nil {
			c.SnackBars = make(map[string][]*RevenueEntry)
		}
		c.SnackBars[store] = entries
	case SegmentDelivery:
		c.Delivery = entries
	}
}

// SegmentEntries devolve todos os lançamentos de um segmento, percorrendo as
// lojas na ordem fixa do segmento e preservando a ordem de inserção por loja.
func (c *BillingCache) SegmentEntries(segment Segment) []*RevenueEntry {
	if segment.SingleStore() {
		return c.Delivery
	}

	entries := make([]*RevenueEntry, 0)
	for _, store := range segment.Stores() {
		entries = append(entries, c.Bucket(segment, store)...)
	}
	return entries
}

// Append acrescenta um lançamento no bucket do seu próprio segmento/loja.
// A denormalização segment/store do lançamento é garantida por construção.
func (c *BillingCache) Append(entry *RevenueEntry) {
	bucket := c.Bucket(entry.Segment, entry.Store)
	c.setBucket(entry.Segment, entry.Store, append(bucket, entry))
}

// AppendTo acrescenta um lançamento no bucket informado, ignorando a
// denormalização segment/store do próprio lançamento. Usado pelos passes que
// percorrem buckets de dados legados, onde os campos podem estar corrompidos.
func (c *BillingCache) AppendTo(segment Segment, store string, entry *RevenueEntry) {
	bucket := c.Bucket(segment, store)
	c.setBucket(segment, store, append(bucket, entry))
}

// Find localiza um lançamento pelo id dentro do bucket informado.
func (c *BillingCache) Find(segment Segment, store, id string) *RevenueEntry {
	for _, entry := range c.Bucket(segment, store) {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

// Replace troca no lugar o lançamento de mesmo id dentro do bucket.
// Retorna false quando o id não existe no bucket.
func (c *BillingCache) Replace(updated *RevenueEntry) bool {
	bucket := c.Bucket(updated.Segment, updated.Store)
	for i, entry := range bucket {
		if entry.ID == updated.ID {
			bucket[i] = updated
			return true
		}
	}
	return false
}

// Remove apaga o lançamento pelo id dentro do bucket informado.
// Retorna false quando o id não existe no bucket.
func (c *BillingCache) Remove(segment Segment, store, id string) bool {
	bucket := c.Bucket(segment, store)
	for i, entry := range bucket {
		if entry.ID == id {
			c.setBucket(segment, store, append(bucket[:i:i], bucket[i+1:]...))
			return true
		}
	}
	return false
}

// TotalEntries conta todos os lançamentos de todos os buckets.
func (c *BillingCache) TotalEntries() int {
	total := len(c.Delivery)
	for _, entries := range c.Conveniences {
		total += len(entries)
	}
	for _, entries := range c.SnackBars {
		total += len(entries)
	}
	return total
}

// RewriteBuckets aplica fn a cada bucket e substitui a sequência pelo
// retorno. Usado pelos passes de integridade e arquivamento da camada de
// armazenamento.
func (c *BillingCache) RewriteBuckets(fn func(segment Segment, store string, entries []*RevenueEntry) []*RevenueEntry) {
	for store, entries := range c.Conveniences {
		c.Conveniences[store] = fn(SegmentConveniences, store, entries)
	}
	for store, entries := range c.SnackBars {
		c.SnackBars[store] = fn(SegmentSnackBars, store, entries)
	}
	c.Delivery = fn(SegmentDelivery, DeliveryStore, c.Delivery)
}
