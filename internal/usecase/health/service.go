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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks across the store and the two
// embedding pipelines.
type Service struct {
	db       DBPinger
	imageEmb EmbeddingChecker
	textEmb  EmbeddingChecker
}

// New creates a Service. Either embedding checker can be nil.
func New(db DBPinger, imageEmb, textEmb EmbeddingChecker) *Service {
	return &Service{db: db, imageEmb: imageEmb, textEmb: textEmb}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["database"] = check(s.db.Ping(ctx))

	if s.imageEmb != nil {
		checks["image_embedding"] = check(s.imageEmb.HealthCheck(ctx))
	}
	if s.textEmb != nil {
		checks["text_embedding"] = check(s.textEmb.HealthCheck(ctx))
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

func check(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
