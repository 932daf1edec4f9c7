// Package postgres stores documents as JSONB rows keyed by collection path and id.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/Property-Marketplace/pkg/docstore"
)

const Schema = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{log: log, pool: pool}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM documents WHERE collection=$1 AND id=$2`, collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return docstore.Document{}, err
	}
	data, err := decode(raw)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return docstore.Document{ID: id, Data: data}, nil
}

func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error) {
	sql, args, err := buildQuery(collection, filters)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Data: data})
	}
	return docs, rows.Err()
}

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`,
		collection, id, payload)
	return err
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	return err
}

// buildQuery compares fields by their text rendering (data ->> field), which
// covers the string and boolean fields the workflows filter on.
func buildQuery(collection string, filters []docstore.Filter) (string, []any, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)
	args := []any{collection}
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return "", nil, err
		}
		switch f.Op {
		case docstore.OpEqual:
			args = append(args, f.Field, textValue(f.Value))
			fmt.Fprintf(&b, ` AND data ->> $%d::text = $%d::text`, len(args)-1, len(args))
		case docstore.OpIn:
			vals, _ := docstore.InValues(f.Value)
			texts := make([]string, len(vals))
			for i, v := range vals {
				texts[i] = textValue(v)
			}
			args = append(args, f.Field, texts)
			fmt.Fprintf(&b, ` AND data ->> $%d::text = ANY($%d::text[])`, len(args)-1, len(args))
		}
	}
	b.WriteString(` ORDER BY id`)
	return b.String(), args, nil
}

func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

func decode(raw []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
