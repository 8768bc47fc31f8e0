package publish

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/postgres"
)

// PostgresSink stores one row per term in the configured table.
type PostgresSink struct {
	client *postgres.Client
	table  string
}

func NewPostgresSink(client *postgres.Client) *PostgresSink {
	return &PostgresSink{client: client, table: pq.QuoteIdentifier(client.Table())}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Reset(ctx context.Context) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			term           TEXT PRIMARY KEY,
			documents      TEXT[] NOT NULL,
			document_count INTEGER NOT NULL
		)`, s.table)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating %s: %w", s.table, err)
		}
		if _, err := tx.ExecContext(ctx, "TRUNCATE "+s.table); err != nil {
			return fmt.Errorf("truncating %s: %w", s.table, err)
		}
		return nil
	})
}

func (s *PostgresSink) WriteBatch(ctx context.Context, entries []index.TermEntry) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (term, documents, document_count)
			VALUES ($1, $2, $3)
			ON CONFLICT (term) DO UPDATE
			SET documents = EXCLUDED.documents, document_count = EXCLUDED.document_count`, s.table))
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Term, pq.Array(e.Documents), len(e.Documents)); err != nil {
				return fmt.Errorf("upserting term %q: %w", e.Term, err)
			}
		}
		return nil
	})
}

func (s *PostgresSink) Close() error {
	return s.client.Close()
}
