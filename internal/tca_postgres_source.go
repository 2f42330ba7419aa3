package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/tca"
	"go.uber.org/zap"
)

// pgxQuerier is the part of a pgx pool the postgres source needs.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads table configuration from a registry table with the
// columns table_name (text) and configuration (json or jsonb).
type PostgresSource struct {
	pool          pgxQuerier
	registryTable string
	decoder       documentDecoder
}

func NewPostgresSource(pool pgxQuerier, registryTable string, validate bool) *PostgresSource {
	return &PostgresSource{
		pool:          pool,
		registryTable: registryTable,
		decoder:       documentDecoder{validate: validate},
	}
}

func (s *PostgresSource) Name() string { return "postgres:" + s.registryTable }

func (s *PostgresSource) Load(ctx context.Context) (tca.RawTCA, error) {
	query := fmt.Sprintf("SELECT table_name, configuration FROM %s ORDER BY table_name", sanitizeIdentifier(s.registryTable))

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, tca.NewSourceError(tca.ErrCodeSourceLoadFailed, "failed to query configuration registry", err)
	}
	defer rows.Close()

	result := make(tca.RawTCA)
	for rows.Next() {
		var table string
		var configuration []byte
		if err := rows.Scan(&table, &configuration); err != nil {
			return nil, tca.NewSourceError(tca.ErrCodeSourceLoadFailed, "failed to scan configuration row", err)
		}
		config, err := s.decoder.decode(table, formatJSON, configuration)
		if err != nil {
			return nil, err
		}
		if err := collect(result, table, s.registryTable, config); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, tca.NewSourceError(tca.ErrCodeSourceLoadFailed, "error iterating configuration rows", err)
	}

	zap.S().Infow("loaded table configuration from database", "registry", s.registryTable, "tables", len(result))
	return result, nil
}
