// Package syncgateway define a fronteira com o armazenamento remoto opcional:
// um documento por lançamento e por meta, com replicação em melhor esforço e
// fila ordenada para reexecução quando a conexão volta.
package syncgateway

import (
	"context"

	"github.com/pkg/errors"
)

// Nomes das coleções remotas.
const (
	CollectionBillingEntries = "billingEntries"
	CollectionMonthlyGoals   = "monthlyGoals"
)

var (
	// ErrAuth indica credenciais recusadas pelo armazenamento remoto.
	ErrAuth = errors.New("syncgateway: autenticação recusada")
	// ErrUnavailable indica falha de conectividade, candidata a fila e retentativa.
	ErrUnavailable = errors.New("syncgateway: armazenamento remoto indisponível")
)

// Record é um documento remoto genérico.
type Record map[string]interface{}

// Filters restringe uma consulta remota por igualdade de campos.
type Filters map[string]interface{}

// Credentials autentica a sessão remota.
type Credentials struct {
	Username string
	Password string
}

// Gateway é o contrato do armazenamento remoto. O núcleo consome esta
// interface e nunca conhece o banco por trás dela.
type Gateway interface {
	// Authenticate abre uma sessão e devolve um token opaco
	Authenticate(ctx context.Context, credentials Credentials) (string, error)
	// Create grava um documento novo e devolve o id persistido
	Create(ctx context.Context, collection string, record Record) (string, error)
	// Update substitui os campos do documento com o id, criando se ausente
	Update(ctx context.Context, collection, id string, fields Record) error
	// Delete remove o documento; remover um id ausente não é erro
	Delete(ctx context.Context, collection, id string) error
	// Query devolve os documentos que casam com os filtros por igualdade
	Query(ctx context.Context, collection string, filters Filters) ([]Record, error)
	// Subscribe entrega alterações da coleção até o cancelamento ser chamado
	Subscribe(ctx context.Context, collection string, filters Filters, onChange func(Record)) (func(), error)
}
