package domain

// HealthState describes whether the store is running on its full schema.
type HealthState string

// Store health states.
const (
	// StateHealthy means all migrations applied and the lexical index is live.
	StateHealthy HealthState = "healthy"

	// StateDegraded means a migration failed and the store fell back to the
	// minimal bootstrap schema: documents are served but lexical search is
	// unavailable. Serving documents without search beats refusing to start.
	StateDegraded HealthState = "degraded"
)

// Health is the store's current schema health, queryable by callers so
// degraded mode can be detected and alerted on rather than swallowed.
type Health struct {
	// State is the current health state.
	State HealthState

	// Reason explains the degradation. Empty when healthy.
	Reason string

	// SchemaVersion is the highest applied migration version.
	SchemaVersion int
}

// Degraded reports whether the store is in degraded mode.
func (h Health) Degraded() bool {
	return h.State == StateDegraded
}
