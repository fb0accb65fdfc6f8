package services

import (
	portsrepo "github.com/campusbooks/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/campusbooks/fee_ledger_app/internal/core/ports/services"
	"github.com/campusbooks/fee_ledger_app/internal/platform/events"
)

// NewServiceContainer wires all services against the repository provider.
func NewServiceContainer(repos portsrepo.RepositoryProvider, notifier events.BalanceNotifier) *portssvc.ServiceContainer {
	return &portssvc.ServiceContainer{
		Ledger: NewLedgerService(repos.LedgerRepo, repos.DuesRepo, notifier),
		Dues:   NewDuesService(repos.DuesRepo),
	}
}
