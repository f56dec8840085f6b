package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event in the finsim system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// RequestID correlates the event with the originating HTTP request.
	RequestID string `json:"request_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for simulation lifecycle events.
const (
	EventTypeSimulationStarted   = "simulation.started"
	EventTypeSimulationCompleted = "simulation.completed"
	EventTypeSimulationFailed    = "simulation.failed"
	EventTypeExternalCallFailed  = "external_call.failed"
)

// ErrEventBufferFull is returned when an event is dropped because the
// buffer is full. Publishing never blocks the caller.
var ErrEventBufferFull = errors.New("telemetry: event buffer full, event dropped")

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventPublisher fans events out to subscribers asynchronously. It is the
// only component shared by all in-flight requests besides the exporters,
// and it never blocks request completion: a full buffer drops the event.
type EventPublisher struct {
	config EventsConfig

	mu          sync.RWMutex
	subscribers []EventSubscriber

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	metrics *Metrics
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	p := &EventPublisher{
		config: cfg,
		done:   make(chan struct{}),
	}

	if !cfg.Enabled {
		return p, nil
	}

	p.events = make(chan Event, cfg.BufferSize)
	p.wg.Add(1)
	go p.dispatch()

	return p, nil
}

// WithMetrics wires drop accounting into the metrics collector.
func (p *EventPublisher) WithMetrics(m *Metrics) *EventPublisher {
	p.metrics = m
	return p
}

// Subscribe registers a subscriber for all published events.
func (p *EventPublisher) Subscribe(fn EventSubscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// Publish enqueues an event without blocking. When the buffer is full the
// event is dropped, counted, and ErrEventBufferFull returned.
func (p *EventPublisher) Publish(event Event) error {
	if !p.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case p.events <- event:
		return nil
	default:
		if p.metrics != nil {
			p.metrics.RecordEventDropped()
		}
		return ErrEventBufferFull
	}
}

// PublishSimulationStarted publishes a simulation.started event.
func (p *EventPublisher) PublishSimulationStarted(requestID string) error {
	return p.Publish(Event{
		Type:      EventTypeSimulationStarted,
		RequestID: requestID,
		Message:   "financing simulation started",
	})
}

// PublishSimulationCompleted publishes a simulation.completed event.
func (p *EventPublisher) PublishSimulationCompleted(requestID, status string, duration time.Duration) error {
	return p.Publish(Event{
		Type:      EventTypeSimulationCompleted,
		RequestID: requestID,
		Message:   "financing simulation completed",
		Data: map[string]interface{}{
			"status":      status,
			"duration_ms": float64(duration.Microseconds()) / 1000.0,
		},
	})
}

// PublishSimulationFailed publishes a simulation.failed event.
func (p *EventPublisher) PublishSimulationFailed(requestID, reason string) error {
	return p.Publish(Event{
		Type:      EventTypeSimulationFailed,
		RequestID: requestID,
		Message:   "financing simulation failed",
		Data:      map[string]interface{}{"reason": reason},
	})
}

// dispatch delivers events to subscribers until Shutdown.
func (p *EventPublisher) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.events:
			p.deliver(event)
		case <-p.done:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case event := <-p.events:
					p.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (p *EventPublisher) deliver(event Event) {
	p.mu.RLock()
	subscribers := p.subscribers
	p.mu.RUnlock()

	for _, fn := range subscribers {
		fn(event)
	}
}

// Shutdown stops the publisher, draining buffered events. It returns when
// the dispatcher has exited or ctx is done.
func (p *EventPublisher) Shutdown(ctx context.Context) error {
	if !p.config.Enabled {
		return nil
	}

	close(p.done)

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
