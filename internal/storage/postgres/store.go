package postgres

import (
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements storage.Store on top of a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// psql is the statement builder used by every query in this package.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
