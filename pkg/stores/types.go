package stores

import (
	"context"
	"time"
)

// SimulationStatus represents the outcome of a financing simulation.
type SimulationStatus string

const (
	SimulationStatusApproved SimulationStatus = "aprovada"
	SimulationStatusRejected SimulationStatus = "recusada"
)

// RateSource records where the annual rate used by a simulation came from.
type RateSource string

const (
	RateSourceExternal RateSource = "external"
	RateSourceFallback RateSource = "fallback"
)

// Simulation is one persisted financing simulation.
type Simulation struct {
	ID             string           `json:"id"`
	RequestID      string           `json:"request_id"`
	PropertyValue  float64          `json:"property_value"`
	DownPayment    float64          `json:"down_payment"`
	TermMonths     int              `json:"term_months"`
	AnnualRate     float64          `json:"annual_rate"`
	MonthlyPayment float64          `json:"monthly_payment"`
	TotalCost      float64          `json:"total_cost"`
	Status         SimulationStatus `json:"status"`
	RateSource     RateSource       `json:"rate_source"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Store persists simulation history.
type Store interface {
	// Init opens the underlying database.
	Init(ctx context.Context) error

	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error

	// SaveSimulation persists one simulation result.
	SaveSimulation(ctx context.Context, sim *Simulation) error

	// ListSimulations returns the most recent simulations, newest first.
	ListSimulations(ctx context.Context, limit int) ([]Simulation, error)

	// HealthCheck verifies the database connection is alive.
	HealthCheck(ctx context.Context) error

	// Close closes the database.
	Close() error
}
