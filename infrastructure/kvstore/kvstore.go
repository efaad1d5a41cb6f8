// Package kvstore define a fronteira com o armazenamento bruto chave/valor.
// A interface reproduz a superfície de um localStorage: operações síncronas,
// sem contexto, com semântica última-escrita-vence entre processos.
package kvstore

import "errors"

// ErrQuotaExceeded indica que o armazenamento físico está cheio.
// A camada de persistência reage com limpeza e uma nova tentativa.
var ErrQuotaExceeded = errors.New("kvstore: capacidade de armazenamento excedida")

// Store é o armazenamento bruto chave/valor.
// Get retorna (nil, nil) quando a chave não existe: ausência não é erro.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Keys() ([]string, error)
	// Size soma o tamanho de chaves e valores, em bytes.
	Size() (int64, error)
}
