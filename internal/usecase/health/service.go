package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the store answers but something around it is off.
	Degraded Status = "degraded"
	// Unhealthy indicates the store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	indexes IndexChecker
	names   []string
	breaker BreakerMonitor
}

// New creates a Service. indexes and breaker can be nil.
func New(db DBPinger, indexes IndexChecker, indexNames []string, breaker BreakerMonitor) *Service {
	return &Service{db: db, indexes: indexes, names: indexNames, breaker: breaker}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		return Report{Status: Unhealthy, Checks: checks}
	}
	checks["database"] = CheckOK

	if s.indexes != nil {
		checks["indexes"] = CheckOK
		for _, name := range s.names {
			ok, err := s.indexes.IndexExists(ctx, name)
			if err != nil || !ok {
				checks["indexes"] = CheckError
				break
			}
		}
	}

	if s.breaker != nil {
		if s.breaker.Open() {
			checks["breaker"] = CheckError
		} else {
			checks["breaker"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
