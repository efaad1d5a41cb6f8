package syncgateway

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy limita as tentativas contra o armazenamento remoto.
// O intervalo cresce linearmente: atraso base multiplicado pelo número da
// tentativa que falhou.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy é a política padrão de replicação.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: time.Second}

// Backoff devolve a espera após a tentativa informada (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.Delay * time.Duration(attempt)
}

// ExecuteWithRetry executa a operação até o limite de tentativas da política,
// esperando o backoff entre elas. Uma sequência iniciada não é cancelada no
// meio de uma tentativa; o contexto é respeitado apenas entre tentativas.
func ExecuteWithRetry(ctx context.Context, policy RetryPolicy, operation func(context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = operation(ctx); err == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		logrus.WithError(err).WithField("attempt", attempt).Warn("Operação remota falhou, aguardando retentativa")

		timer := time.NewTimer(policy.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}
