package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/eugenenazirov/plantevern/internal/catalog"
	"github.com/eugenenazirov/plantevern/internal/planner"
	"github.com/eugenenazirov/plantevern/internal/units"
)

var propulse = catalog.Product{Name: "Propulse", RegNr: "2013.14", Status: "Godkjent", Group: "Soppmidler", Formulation: "Suspoemulsjon"}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func openEmpty(t *testing.T, kv KV) *PlanStore {
	t.Helper()
	store, err := Open(context.Background(), kv, WithSeedPlots(nil), WithIDGenerator(sequentialIDs()))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	return store
}

func TestOpenSeedsDefaultPlot(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	store, err := Open(context.Background(), kv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plots, treatments := store.Snapshot()
	if len(plots) != 1 || plots[0].Name != "Korn" || plots[0].Area != 100 {
		t.Fatalf("expected default Korn plot, got %+v", plots)
	}
	if plots[0].ID == "" {
		t.Fatalf("expected generated id")
	}
	if len(treatments) != 0 {
		t.Fatalf("expected no treatments, got %d", len(treatments))
	}

	if _, found, _ := kv.Get(context.Background(), PlotsKey); !found {
		t.Fatalf("expected seeded plots to be persisted")
	}
}

func TestOpenKeepsStoredEmptyPlotList(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	if err := kv.Set(context.Background(), PlotsKey, []byte("[]")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store, err := Open(context.Background(), kv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plots, _ := store.Snapshot(); len(plots) != 0 {
		t.Fatalf("expected stored empty list to win over seed, got %+v", plots)
	}
}

func TestOpenRejectsCorruptData(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	_ = kv.Set(context.Background(), PlotsKey, []byte("{"))

	if _, err := Open(context.Background(), kv); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPlanRoundTripsThroughKV(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	store := openEmpty(t, kv)
	ctx := context.Background()

	plot, err := store.AddPlot(ctx, " Potet ", 25.5)
	if err != nil {
		t.Fatalf("AddPlot returned error: %v", err)
	}
	if plot.Name != "Potet" {
		t.Fatalf("expected trimmed name, got %q", plot.Name)
	}
	if _, err := store.AddTreatment(ctx, plot.ID, propulse, 75, units.Milliliters); err != nil {
		t.Fatalf("AddTreatment returned error: %v", err)
	}

	reopened, err := Open(ctx, kv)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}

	wantPlots, wantTreatments := store.Snapshot()
	gotPlots, gotTreatments := reopened.Snapshot()

	if fmt.Sprint(gotPlots) != fmt.Sprint(wantPlots) {
		t.Fatalf("plots did not round trip: got %+v want %+v", gotPlots, wantPlots)
	}
	if len(gotTreatments) != 1 || gotTreatments[0].Product.Name != "Propulse" || gotTreatments[0].Dose != 75 || gotTreatments[0].DoseUnit != units.Milliliters {
		t.Fatalf("treatments did not round trip: got %+v want %+v", gotTreatments, wantTreatments)
	}
}

func TestStoredFormatUsesPersistedFieldNames(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	store := openEmpty(t, kv)
	ctx := context.Background()

	plot, _ := store.AddPlot(ctx, "Korn", 10)
	if _, err := store.AddTreatment(ctx, plot.ID, propulse, 50, units.Milliliters); err != nil {
		t.Fatalf("AddTreatment returned error: %v", err)
	}

	raw, _, _ := kv.Get(ctx, TreatmentsKey)
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("decode stored treatments: %v", err)
	}
	for _, field := range []string{"id", "cropId", "pesticide", "dose", "doseUnit"} {
		if _, ok := records[0][field]; !ok {
			t.Fatalf("expected field %q in stored treatment %v", field, records[0])
		}
	}
}

func TestUpdatePlot(t *testing.T) {
	t.Parallel()

	store := openEmpty(t, NewMemoryKV())
	ctx := context.Background()

	plot, _ := store.AddPlot(ctx, "", 0)
	updated, err := store.UpdatePlot(ctx, plot.ID, "Bygg", 42)
	if err != nil {
		t.Fatalf("UpdatePlot returned error: %v", err)
	}
	if updated.Name != "Bygg" || updated.Area != 42 || updated.ID != plot.ID {
		t.Fatalf("unexpected plot after update: %+v", updated)
	}

	if _, err := store.UpdatePlot(ctx, "missing", "x", 1); !errors.Is(err, ErrPlotNotFound) {
		t.Fatalf("expected ErrPlotNotFound, got %v", err)
	}
	if _, err := store.UpdatePlot(ctx, plot.ID, "x", math.NaN()); !errors.Is(err, ErrInvalidArea) {
		t.Fatalf("expected ErrInvalidArea, got %v", err)
	}
}

func TestRemovePlotCascadesToTreatments(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	store := openEmpty(t, kv)
	ctx := context.Background()

	korn, _ := store.AddPlot(ctx, "Korn", 100)
	potet, _ := store.AddPlot(ctx, "Potet", 20)
	_, _ = store.AddTreatment(ctx, korn.ID, propulse, 50, units.Milliliters)
	kept, _ := store.AddTreatment(ctx, potet.ID, propulse, 60, units.Milliliters)
	_, _ = store.AddTreatment(ctx, korn.ID, propulse, 70, units.Milliliters)

	if err := store.RemovePlot(ctx, korn.ID); err != nil {
		t.Fatalf("RemovePlot returned error: %v", err)
	}

	plots, treatments := store.Snapshot()
	if len(plots) != 1 || plots[0].ID != potet.ID {
		t.Fatalf("expected only Potet to remain, got %+v", plots)
	}
	if len(treatments) != 1 || treatments[0].ID != kept.ID {
		t.Fatalf("expected only Potet treatment to remain, got %+v", treatments)
	}

	reopened, err := Open(ctx, kv)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	if _, persisted := reopened.Snapshot(); len(persisted) != 1 {
		t.Fatalf("expected cascade to be persisted, got %+v", persisted)
	}

	if err := store.RemovePlot(ctx, korn.ID); !errors.Is(err, ErrPlotNotFound) {
		t.Fatalf("expected ErrPlotNotFound, got %v", err)
	}
}

func TestAddTreatmentRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	store := openEmpty(t, NewMemoryKV())
	ctx := context.Background()
	plot, _ := store.AddPlot(ctx, "Korn", 10)

	testCases := []struct {
		name    string
		plotID  string
		product catalog.Product
		dose    float64
		unit    units.DoseUnit
		wantErr error
	}{
		{name: "zero dose", plotID: plot.ID, product: propulse, dose: 0, unit: units.Milliliters, wantErr: ErrInvalidDose},
		{name: "negative dose", plotID: plot.ID, product: propulse, dose: -5, unit: units.Milliliters, wantErr: ErrInvalidDose},
		{name: "nan dose", plotID: plot.ID, product: propulse, dose: math.NaN(), unit: units.Milliliters, wantErr: ErrInvalidDose},
		{name: "bad unit", plotID: plot.ID, product: propulse, dose: 5, unit: "kg", wantErr: ErrInvalidDoseUnit},
		{name: "no product", plotID: plot.ID, product: catalog.Product{Name: "x"}, dose: 5, unit: units.Grams, wantErr: ErrInvalidProduct},
		{name: "unknown plot", plotID: "missing", product: propulse, dose: 5, unit: units.Grams, wantErr: ErrPlotNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.AddTreatment(ctx, tc.plotID, tc.product, tc.dose, tc.unit); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if _, treatments := store.Snapshot(); len(treatments) != 0 {
		t.Fatalf("expected rejected treatments to be discarded, got %d", len(treatments))
	}
}

func TestRemoveTreatment(t *testing.T) {
	t.Parallel()

	store := openEmpty(t, NewMemoryKV())
	ctx := context.Background()
	plot, _ := store.AddPlot(ctx, "Korn", 10)
	tr, _ := store.AddTreatment(ctx, plot.ID, propulse, 5, units.Milliliters)

	if err := store.RemoveTreatment(ctx, tr.ID); err != nil {
		t.Fatalf("RemoveTreatment returned error: %v", err)
	}
	if err := store.RemoveTreatment(ctx, tr.ID); !errors.Is(err, ErrTreatmentNotFound) {
		t.Fatalf("expected ErrTreatmentNotFound, got %v", err)
	}
	if plots, _ := store.Snapshot(); len(plots) != 1 {
		t.Fatalf("expected plot to stay, got %+v", plots)
	}
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	t.Parallel()

	store := openEmpty(t, NewMemoryKV())
	_, _ = store.AddPlot(context.Background(), "Korn", 10)

	plots, _ := store.Snapshot()
	plots[0].Name = "mutated"

	again, _ := store.Snapshot()
	if again[0].Name != "Korn" {
		t.Fatalf("expected snapshot to be a copy, got %+v", again)
	}
}

type failingKV struct {
	*MemoryKV
	failSets bool
	failKey  string
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.failSets || key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func TestFailedWriteLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	kv := &failingKV{MemoryKV: NewMemoryKV()}
	store := openEmpty(t, kv)
	ctx := context.Background()
	plot, _ := store.AddPlot(ctx, "Korn", 10)

	kv.failSets = true
	if _, err := store.AddPlot(ctx, "Potet", 5); err == nil {
		t.Fatalf("expected write error")
	}
	if err := store.RemovePlot(ctx, plot.ID); err == nil {
		t.Fatalf("expected write error")
	}

	plots, _ := store.Snapshot()
	if len(plots) != 1 || plots[0].ID != plot.ID {
		t.Fatalf("expected state to be unchanged, got %+v", plots)
	}
}

func TestRemovePlotRestoresPlotsWhenTreatmentWriteFails(t *testing.T) {
	t.Parallel()

	kv := &failingKV{MemoryKV: NewMemoryKV()}
	store := openEmpty(t, kv)
	ctx := context.Background()
	plot, _ := store.AddPlot(ctx, "Korn", 10)
	if _, err := store.AddTreatment(ctx, plot.ID, propulse, 75, units.Milliliters); err != nil {
		t.Fatalf("AddTreatment returned error: %v", err)
	}

	kv.failKey = TreatmentsKey
	if err := store.RemovePlot(ctx, plot.ID); err == nil {
		t.Fatalf("expected write error")
	}

	plots, treatments := store.Snapshot()
	if len(plots) != 1 || len(treatments) != 1 {
		t.Fatalf("expected state to be unchanged, got %+v %+v", plots, treatments)
	}

	kv.failKey = ""
	reopened, err := Open(ctx, kv)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	plots, treatments = reopened.Snapshot()
	if len(plots) != 1 || plots[0].ID != plot.ID || len(treatments) != 1 {
		t.Fatalf("expected stored plan to match memory, got %+v %+v", plots, treatments)
	}
}

func TestPlanStoreConcurrentAccess(t *testing.T) {
	store := openEmpty(t, NewMemoryKV())
	ctx := context.Background()
	plot, _ := store.AddPlot(ctx, "Korn", 100)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)

		go func(offset int) {
			defer wg.Done()
			if _, err := store.AddTreatment(ctx, plot.ID, propulse, float64(10+offset), units.Milliliters); err != nil {
				t.Errorf("AddTreatment failed: %v", err)
			}
		}(i)

		go func() {
			defer wg.Done()
			plots, treatments := store.Snapshot()
			planner.Aggregate(plots, treatments)
		}()
	}

	wg.Wait()

	if _, treatments := store.Snapshot(); len(treatments) != 32 {
		t.Fatalf("expected 32 treatments, got %d", len(treatments))
	}
}
