package health

import "context"

// DBPinger checks vector store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external provider's availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// BillCounter reports the number of indexed bills.
type BillCounter interface {
	Count(ctx context.Context) (int, error)
}
