package database

import (
	"craftbox-server/internal/websocket"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore exposes per-record operations only. The tree engine
// drives all recursive work itself, so nothing here spans more than a
// single row.
type PostgresStore struct {
	pool  *pgxpool.Pool
	wsHub *websocket.Hub
}

func NewStore(pool *pgxpool.Pool, wsHub *websocket.Hub) *PostgresStore {
	return &PostgresStore{
		pool:  pool,
		wsHub: wsHub,
	}
}

func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
