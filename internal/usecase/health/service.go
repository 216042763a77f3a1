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

// Report aggregates component check results. Details carries the failure
// text for failing checks only.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Details map[string]string
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil.
func New(store StorePinger, embedding EmbeddingChecker) *Service {
	return &Service{store: store, embedding: embedding}
}

// Check probes every wired component and aggregates the outcome. Any
// failing component degrades the overall status.
func (s *Service) Check(ctx context.Context) Report {
	report := Report{
		Status:  Healthy,
		Checks:  make(map[string]CheckResult),
		Details: make(map[string]string),
	}

	report.record("store", s.store.Ping(ctx))

	if s.embedding != nil {
		report.record("embedding", s.embedding.HealthCheck(ctx))
	}

	if len(report.Details) == 0 {
		report.Details = nil
	}
	return report
}

func (r *Report) record(component string, err error) {
	if err != nil {
		r.Checks[component] = CheckError
		r.Details[component] = err.Error()
		r.Status = Degraded
		return
	}
	r.Checks[component] = CheckOK
}
