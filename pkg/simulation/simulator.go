package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/finsim/finsim/pkg/stores"
	"github.com/finsim/finsim/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ErrInvalidRequest marks simulation inputs that fail validation.
var ErrInvalidRequest = errors.New("simulation: invalid request")

// maxTermMonths caps the financing term at 50 years.
const maxTermMonths = 600

// minDownPaymentRatio is the approval threshold: proposals financing more
// than 80% of the property value are rejected.
const minDownPaymentRatio = 0.20

// Request carries the inputs of one financing simulation.
type Request struct {
	// PropertyValue is the total price of the property.
	PropertyValue float64

	// DownPayment is the amount paid upfront.
	DownPayment float64

	// TermMonths is the financing term in months.
	TermMonths int
}

// Validate checks the simulation inputs.
func (r Request) Validate() error {
	if r.PropertyValue <= 0 {
		return fmt.Errorf("%w: property value must be positive", ErrInvalidRequest)
	}
	if r.DownPayment < 0 {
		return fmt.Errorf("%w: down payment must not be negative", ErrInvalidRequest)
	}
	if r.DownPayment >= r.PropertyValue {
		return fmt.Errorf("%w: down payment must be below the property value", ErrInvalidRequest)
	}
	if r.TermMonths < 1 || r.TermMonths > maxTermMonths {
		return fmt.Errorf("%w: term must be between 1 and %d months", ErrInvalidRequest, maxTermMonths)
	}
	return nil
}

// Result is the outcome of one financing simulation.
type Result struct {
	Status            stores.SimulationStatus `json:"proposta_status"`
	AnnualRate        float64                 `json:"taxa_anual"`
	MonthlyPayment    float64                 `json:"parcela_mensal"`
	TotalCost         float64                 `json:"custo_total"`
	ExternalLatencyMS float64                 `json:"taxa_externa_ms"`
	Observation       string                  `json:"observacao,omitempty"`

	RateSource stores.RateSource `json:"-"`
}

// Simulator runs financing simulations.
type Simulator struct {
	logger       *telemetry.Logger
	tracer       *telemetry.Tracer
	metrics      *telemetry.Metrics
	events       *telemetry.EventPublisher
	store        stores.Store
	rates        RateLookup
	fallbackRate float64
}

// NewSimulator creates a simulator wired into the telemetry stack. The
// store and the rate lookup are optional: a nil store disables history
// and a nil lookup always uses the fallback rate.
func NewSimulator(tel *telemetry.Telemetry, store stores.Store, rates RateLookup, fallbackRate float64) *Simulator {
	return &Simulator{
		logger:       tel.Logger.Named("simulation"),
		tracer:       tel.Tracer,
		metrics:      tel.Metrics,
		events:       tel.Events,
		store:        store,
		rates:        rates,
		fallbackRate: fallbackRate,
	}
}

// Simulate runs one financing simulation. External rate lookup failures
// never fail the simulation; the fallback rate is used instead.
func (s *Simulator) Simulate(ctx context.Context, requestID string, req Request) (*Result, error) {
	ctx, span := s.tracer.StartSimulationSpan(ctx, requestID)
	defer span.End()

	started := time.Now()

	s.logger.WithFields(telemetry.Fields{
		"event":          "simulation_started",
		"request_id":     requestID,
		"property_value": req.PropertyValue,
		"down_payment":   req.DownPayment,
		"term_months":    req.TermMonths,
	}).Info(ctx, "starting financing simulation")
	_ = s.events.PublishSimulationStarted(requestID)

	if err := req.Validate(); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordSimulation("invalid", time.Since(started))
		_ = s.events.PublishSimulationFailed(requestID, err.Error())
		s.logger.WithFields(telemetry.Fields{
			"event":      "simulation_failed",
			"request_id": requestID,
		}).WithException(err).Warn(ctx, "simulation rejected invalid input")
		return nil, err
	}

	rate, source, externalMS := s.resolveRate(ctx, requestID)

	financed := req.PropertyValue - req.DownPayment
	payment := MonthlyPayment(financed, rate, req.TermMonths)
	totalCost := payment*float64(req.TermMonths) + req.DownPayment

	status := stores.SimulationStatusApproved
	if req.DownPayment < req.PropertyValue*minDownPaymentRatio {
		status = stores.SimulationStatusRejected
	}

	result := &Result{
		Status:            status,
		AnnualRate:        rate,
		MonthlyPayment:    payment,
		TotalCost:         totalCost,
		ExternalLatencyMS: externalMS,
		RateSource:        source,
	}
	if source == stores.RateSourceFallback {
		result.Observation = "Valor simulado"
	}

	s.persist(ctx, requestID, req, result)

	duration := time.Since(started)
	s.metrics.RecordSimulation(string(status), duration)
	_ = s.events.PublishSimulationCompleted(requestID, string(status), duration)

	span.SetAttributes(
		telemetry.AttrProposalState.String(string(status)),
		telemetry.AttrExternalRate.Float64(rate),
		telemetry.AttrRateFallback.Bool(source == stores.RateSourceFallback),
	)
	telemetry.RecordSuccess(span)

	s.logger.WithFields(telemetry.Fields{
		"event":           "simulation_completed",
		"request_id":      requestID,
		"proposta_status": string(status),
		"annual_rate":     rate,
		"monthly_payment": payment,
		"rate_source":     string(source),
		"duration_ms":     float64(duration) / float64(time.Millisecond),
	}).Info(ctx, "financing simulation completed")

	return result, nil
}

// resolveRate queries the external rates API and falls back to the
// configured simulated rate when the lookup fails.
func (s *Simulator) resolveRate(ctx context.Context, requestID string) (float64, stores.RateSource, float64) {
	if s.rates == nil {
		return s.fallbackRate, stores.RateSourceFallback, 0
	}

	callCtx, span := s.tracer.StartExternalCallSpan(ctx, "rates-api")
	defer span.End()

	s.logger.WithFields(telemetry.Fields{
		"event":      "external_call",
		"request_id": requestID,
		"service":    "rates-api",
	}).Info(ctx, "consulting external rates service")

	started := time.Now()
	rate, err := s.rates.AnnualRate(callCtx)
	elapsed := time.Since(started)
	elapsedMS := float64(elapsed) / float64(time.Millisecond)

	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordExternalLookup("fallback", elapsed)
		_ = s.events.Publish(telemetry.Event{
			Type:      telemetry.EventTypeExternalCallFailed,
			RequestID: requestID,
			Message:   "rates api lookup failed",
		})
		s.logger.WithFields(telemetry.Fields{
			"event":      "external_call_failed",
			"request_id": requestID,
			"service":    "rates-api",
		}).WithException(err).Warn(ctx, "external rates service unavailable, using simulated rate")
		return s.fallbackRate, stores.RateSourceFallback, elapsedMS
	}

	telemetry.RecordSuccess(span)
	span.SetAttributes(attribute.Float64("rates.latency_ms", elapsedMS))
	s.metrics.RecordExternalLookup("success", elapsed)
	return rate, stores.RateSourceExternal, elapsedMS
}

// persist writes the simulation to the history store. Failures are logged
// and never fail the simulation.
func (s *Simulator) persist(ctx context.Context, requestID string, req Request, result *Result) {
	if s.store == nil {
		return
	}

	err := s.store.SaveSimulation(ctx, &stores.Simulation{
		RequestID:      requestID,
		PropertyValue:  req.PropertyValue,
		DownPayment:    req.DownPayment,
		TermMonths:     req.TermMonths,
		AnnualRate:     result.AnnualRate,
		MonthlyPayment: result.MonthlyPayment,
		TotalCost:      result.TotalCost,
		Status:         result.Status,
		RateSource:     result.RateSource,
	})
	if err != nil {
		s.logger.WithFields(telemetry.Fields{
			"request_id": requestID,
		}).WithException(err).Warn(ctx, "failed to persist simulation history")
	}
}

// MonthlyPayment computes the fixed installment for a financed amount
// using price-table amortization. The annual rate is a percentage.
func MonthlyPayment(principal, annualRatePct float64, months int) float64 {
	if months <= 0 || principal <= 0 {
		return 0
	}

	monthly := annualRatePct / 100 / 12
	if monthly == 0 {
		return principal / float64(months)
	}

	return principal * monthly / (1 - math.Pow(1+monthly, -float64(months)))
}
