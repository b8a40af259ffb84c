package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mind-engage/pcbuild-assess/internal/db"
)

// SQLBackend stores namespaces as rows of assessment_documents. Postgres
// serializes writers with SELECT ... FOR UPDATE; SQLite has no row locks, so
// writers on one connection pool are serialized in process.
type SQLBackend struct {
	db     *sql.DB
	driver db.Driver
	locks  keyedMutex
}

func NewSQLBackend(conn *sql.DB, driver db.Driver) *SQLBackend {
	return &SQLBackend{db: conn, driver: driver}
}

func (s *SQLBackend) Load(ctx context.Context, namespace string) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM assessment_documents WHERE namespace=$1`, namespace).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if doc == "" {
		return nil, nil
	}
	return []byte(doc), nil
}

func (s *SQLBackend) Update(ctx context.Context, namespace string, fn func([]byte) ([]byte, error)) error {
	if s.driver == db.DriverSQLite {
		l := s.locks.get(namespace)
		l.Lock()
		defer l.Unlock()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assessment_documents (namespace, doc, updated_at) VALUES ($1, '', $2)
		 ON CONFLICT (namespace) DO NOTHING`, namespace, now); err != nil {
		return err
	}

	q := `SELECT doc FROM assessment_documents WHERE namespace=$1`
	if s.driver == db.DriverPostgres {
		q += ` FOR UPDATE`
	}
	var doc string
	if err := tx.QueryRowContext(ctx, q, namespace).Scan(&doc); err != nil {
		return err
	}
	var cur []byte
	if doc != "" {
		cur = []byte(doc)
	}

	next, err := fn(cur)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE assessment_documents SET doc=$1, updated_at=$2 WHERE namespace=$3`,
		string(next), now, namespace); err != nil {
		return err
	}
	return tx.Commit()
}
