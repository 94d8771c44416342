package pgsql

import (
	portsrepo "github.com/filevaulthq/filevault_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every pgx-backed repository over one shared pool.
func NewRepositoryProvider(pool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UserRepo: newPgxUserRepository(pool),
		FileRepo: newPgxFileRepository(pool),
	}
}
