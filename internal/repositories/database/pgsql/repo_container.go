package pgsql

import (
	portsrepo "github.com/campusbooks/fee_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	ledgerRepo := newPgxLedgerRepository(dbPool)
	duesRepo := newReportingRepository(dbPool)

	return portsrepo.RepositoryProvider{
		LedgerRepo: ledgerRepo,
		DuesRepo:   duesRepo,
	}
}
