package billing

import (
	"errors"
	"fmt"
	"strings"
)

// Limites de validação dos campos controlados pelo usuário.
const (
	MaxEntryAmount       = 1_000_000
	MaxGoalAmount        = 10_000_000
	MaxDescriptionLength = 200
)

// ValidationError carrega a lista completa de regras violadas de uma
// operação. A validação nunca para na primeira falha: o chamador recebe
// todos os motivos de uma vez.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dados inválidos: %s", strings.Join(e.Reasons, "; "))
}

// NotFoundError indica que a operação mirou um id ou chave inexistente.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s não encontrado: %s", e.Resource, e.ID)
}

// IsValidationError informa se o erro é de validação de entrada.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFoundError informa se o erro é de alvo inexistente.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
