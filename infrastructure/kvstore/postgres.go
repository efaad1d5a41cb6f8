package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/vfg2006/billing-manager-api/infrastructure/database/postgres"
)

const billingKVTable = "billing_kv"

// PostgresStore implementa Store sobre uma tabela chave/valor no Postgres,
// para implantações em servidor onde um diretório local não serve.
// A interface continua síncrona; o contexto interno limita cada operação.
type PostgresStore struct {
	conn    *postgres.Connection
	timeout time.Duration
}

// NewPostgresStore devolve o Store e garante a existência da tabela.
func NewPostgresStore(ctx context.Context, conn *postgres.Connection) (*PostgresStore, error) {
	store := &PostgresStore{conn: conn, timeout: 5 * time.Second}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, billingKVTable)

	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("erro ao criar tabela %s: %w", billingKVTable, err)
	}

	return store, nil
}

func (s *PostgresStore) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *PostgresStore) Get(key string) ([]byte, error) {
	query, args, err := squirrel.
		Select("value").
		From(billingKVTable).
		Where(squirrel.Eq{"key": key}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	ctx, cancel := s.context()
	defer cancel()

	var value []byte
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return value, nil
}

func (s *PostgresStore) Set(key string, value []byte) error {
	query, args, err := squirrel.
		Insert(billingKVTable).
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	ctx, cancel := s.context()
	defer cancel()

	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		if isDiskFull(err) {
			return ErrQuotaExceeded
		}
		return err
	}

	return nil
}

func (s *PostgresStore) Remove(key string) error {
	query, args, err := squirrel.
		Delete(billingKVTable).
		Where(squirrel.Eq{"key": key}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	ctx, cancel := s.context()
	defer cancel()

	_, err = s.conn.ExecContext(ctx, query, args...)
	return err
}

func (s *PostgresStore) Keys() ([]string, error) {
	query, args, err := squirrel.
		Select("key").
		From(billingKVTable).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	ctx, cancel := s.context()
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (s *PostgresStore) Size() (int64, error) {
	query, args, err := squirrel.
		Select("COALESCE(SUM(length(key) + octet_length(value)), 0)").
		From(billingKVTable).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	ctx, cancel := s.context()
	defer cancel()

	var total int64
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}

// isDiskFull detecta falta de espaço físico no servidor (classe 53 do Postgres).
func isDiskFull(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "53100" || pqErr.Code.Class() == "53"
	}
	return strings.Contains(err.Error(), "no space left on device")
}
