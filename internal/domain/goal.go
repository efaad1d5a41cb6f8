package domain

import "fmt"

// GoalMap associa a chave composta de uma meta mensal ao valor alvo.
// Semântica de upsert: salvar com uma chave existente sobrescreve o valor.
type GoalMap map[string]float64

// GoalKey monta a chave canônica de meta: segmento-loja-mês-ano.
// O esquema é uniforme para todos os papéis; o segmento de tele-entrega usa
// sua loja única. Mês sem zero à esquerda, como na base legada.
func GoalKey(segment Segment, store string, month, year int) string {
	return fmt.Sprintf("%s-%s-%d-%d", segment, store, month, year)
}

// Clone devolve uma cópia rasa do mapa de metas.
func (g GoalMap) Clone() GoalMap {
	cloned := make(GoalMap, len(g))
	for key, amount := range g {
		cloned[key] = amount
	}
	return cloned
}
