package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Exporter = "none"
	cfg.Metrics.Enabled = false
	return cfg
}

func TestSetupIsOneShot(t *testing.T) {
	tel, err := Setup(testConfig())
	if err != nil {
		t.Fatalf("first Setup failed: %v", err)
	}
	defer tel.Shutdown(context.Background())

	if _, err := Setup(testConfig()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Setup error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestNewTelemetryRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Logging.Level = "verbose"
	if _, err := newTelemetry(cfg); err == nil {
		t.Fatal("newTelemetry accepted an invalid log level")
	}
}

func TestTelemetryContextRoundTrip(t *testing.T) {
	tel, err := newTelemetry(testConfig())
	if err != nil {
		t.Fatalf("newTelemetry failed: %v", err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	if got := FromTelemetryContext(ctx); got != tel {
		t.Error("FromTelemetryContext did not return the attached instance")
	}
	if got := FromContext(ctx); got != tel.Logger {
		t.Error("FromContext did not return the attached logger")
	}
	if got := FromTelemetryContext(context.Background()); got != nil {
		t.Error("FromTelemetryContext on empty context should be nil")
	}
}

func TestEventPublisherDelivery(t *testing.T) {
	pub, err := NewEventPublisher(EventsConfig{Enabled: true, BufferSize: 8})
	if err != nil {
		t.Fatalf("NewEventPublisher failed: %v", err)
	}

	received := make(chan Event, 1)
	pub.Subscribe(func(e Event) { received <- e })

	if err := pub.PublishSimulationCompleted("req-1", "aprovada", 150*time.Millisecond); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case e := <-received:
		if e.Type != EventTypeSimulationCompleted {
			t.Errorf("event type = %q, want %q", e.Type, EventTypeSimulationCompleted)
		}
		if e.RequestID != "req-1" {
			t.Errorf("request id = %q, want req-1", e.RequestID)
		}
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Error("event id and timestamp should be populated")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	if err := pub.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestEventPublisherDropsWhenFull(t *testing.T) {
	pub, err := NewEventPublisher(EventsConfig{Enabled: true, BufferSize: 1})
	if err != nil {
		t.Fatalf("NewEventPublisher failed: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	pub.Subscribe(func(Event) {
		started <- struct{}{}
		<-release
	})

	// First event occupies the dispatcher.
	if err := pub.Publish(Event{Type: "t"}); err != nil {
		t.Fatalf("publish 1 failed: %v", err)
	}
	<-started

	// Second event fills the buffer, third must be dropped without blocking.
	if err := pub.Publish(Event{Type: "t"}); err != nil {
		t.Fatalf("publish 2 failed: %v", err)
	}
	if err := pub.Publish(Event{Type: "t"}); !errors.Is(err, ErrEventBufferFull) {
		t.Fatalf("publish 3 error = %v, want ErrEventBufferFull", err)
	}

	close(release)
	go func() {
		for range started {
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pub.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	close(started)
}

func TestDisabledEventPublisher(t *testing.T) {
	pub, err := NewEventPublisher(EventsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewEventPublisher failed: %v", err)
	}
	if err := pub.Publish(Event{Type: "t"}); err != nil {
		t.Errorf("disabled publisher Publish = %v, want nil", err)
	}
	if err := pub.Shutdown(context.Background()); err != nil {
		t.Errorf("disabled publisher Shutdown = %v, want nil", err)
	}
}
