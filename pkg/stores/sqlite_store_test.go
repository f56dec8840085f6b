package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a temporary SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "finsim_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreLifecycle(t *testing.T) {
	store := setupTestStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(SQLiteConfig{}); err == nil {
		t.Fatal("NewSQLiteStore accepted an empty path")
	}
}

func TestSaveAndListSimulations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		sim := &Simulation{
			RequestID:      "req-" + string(rune('a'+i)),
			PropertyValue:  500000,
			DownPayment:    100000,
			TermMonths:     360,
			AnnualRate:     10.5,
			MonthlyPayment: 3660.5,
			TotalCost:      1317780,
			Status:         SimulationStatusApproved,
			RateSource:     RateSourceExternal,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveSimulation(ctx, sim); err != nil {
			t.Fatalf("SaveSimulation failed: %v", err)
		}
		if sim.ID == "" {
			t.Fatal("SaveSimulation did not assign an id")
		}
	}

	sims, err := store.ListSimulations(ctx, 10)
	if err != nil {
		t.Fatalf("ListSimulations failed: %v", err)
	}
	if len(sims) != 3 {
		t.Fatalf("got %d simulations, want 3", len(sims))
	}

	// Newest first.
	if sims[0].RequestID != "req-c" {
		t.Errorf("first simulation = %q, want req-c", sims[0].RequestID)
	}
	if sims[0].Status != SimulationStatusApproved {
		t.Errorf("status = %q, want %q", sims[0].Status, SimulationStatusApproved)
	}
	if sims[0].TermMonths != 360 {
		t.Errorf("term months = %d, want 360", sims[0].TermMonths)
	}
}

func TestListSimulationsLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.SaveSimulation(ctx, &Simulation{
			RequestID:  "req",
			Status:     SimulationStatusApproved,
			RateSource: RateSourceFallback,
		}); err != nil {
			t.Fatalf("SaveSimulation failed: %v", err)
		}
	}

	sims, err := store.ListSimulations(ctx, 2)
	if err != nil {
		t.Fatalf("ListSimulations failed: %v", err)
	}
	if len(sims) != 2 {
		t.Errorf("got %d simulations, want 2", len(sims))
	}
}
