package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results. Bills is the number of indexed
// bills, -1 when the count could not be read.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Bills  int
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	embedding  ProviderChecker
	generation ProviderChecker
	bills      BillCounter
}

// New creates a Service. embedding, generation, and bills can be nil.
func New(db DBPinger, embedding, generation ProviderChecker, bills BillCounter) *Service {
	return &Service{db: db, embedding: embedding, generation: generation, bills: bills}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	dbOK := s.db.Ping(ctx) == nil
	if dbOK {
		checks["database"] = CheckOK
	} else {
		checks["database"] = CheckError
	}

	if s.embedding != nil {
		checks["embedding"] = toResult(s.embedding.HealthCheck(ctx))
	}
	if s.generation != nil {
		checks["generation"] = toResult(s.generation.HealthCheck(ctx))
	}

	bills := -1
	if dbOK && s.bills != nil {
		if n, err := s.bills.Count(ctx); err == nil {
			bills = n
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Bills: bills}
}

func toResult(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
