package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/eugenenazirov/plantevern/internal/catalog"
	"github.com/eugenenazirov/plantevern/internal/planner"
	"github.com/eugenenazirov/plantevern/internal/units"
)

// Keys the plan is persisted under.
const (
	PlotsKey      = "plantevern-crops"
	TreatmentsKey = "plantevern-applications"
)

var defaultPlots = []planner.Plot{{Name: "Korn", Area: 100}}

// Storage provides access to the plots and treatments of a plan.
type Storage interface {
	Snapshot() ([]planner.Plot, []planner.Treatment)
	AddPlot(ctx context.Context, name string, area float64) (planner.Plot, error)
	UpdatePlot(ctx context.Context, id, name string, area float64) (planner.Plot, error)
	RemovePlot(ctx context.Context, id string) error
	AddTreatment(ctx context.Context, plotID string, product catalog.Product, dose float64, unit units.DoseUnit) (planner.Treatment, error)
	RemoveTreatment(ctx context.Context, id string) error
}

// PlanStore keeps the plan in memory, guards access with a RWMutex and writes
// every change through to a KV store.
type PlanStore struct {
	kv    KV
	newID func() string
	seed  []planner.Plot

	mu         sync.RWMutex
	plots      []planner.Plot
	treatments []planner.Treatment
}

// Option configures a PlanStore.
type Option func(*PlanStore)

// WithIDGenerator overrides how record ids are generated, primarily for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *PlanStore) {
		s.newID = gen
	}
}

// WithSeedPlots sets the plots created when the store holds no plot list yet.
func WithSeedPlots(plots []planner.Plot) Option {
	return func(s *PlanStore) {
		s.seed = clonePlots(plots)
	}
}

// Open loads the plan from kv. When no plot list has been stored yet the seed
// plots (one 100 daa "Korn" plot by default) are created and persisted.
func Open(ctx context.Context, kv KV, opts ...Option) (*PlanStore, error) {
	s := &PlanStore{
		kv:    kv,
		newID: func() string { return uuid.New().String() },
		seed:  clonePlots(defaultPlots),
	}
	for _, opt := range opts {
		opt(s)
	}

	plots, found, err := load[planner.Plot](ctx, kv, PlotsKey)
	if err != nil {
		return nil, err
	}
	if !found {
		plots = make([]planner.Plot, 0, len(s.seed))
		for _, p := range s.seed {
			p.ID = s.newID()
			plots = append(plots, p)
		}
		if err := save(ctx, kv, PlotsKey, plots); err != nil {
			return nil, err
		}
	}

	treatments, _, err := load[planner.Treatment](ctx, kv, TreatmentsKey)
	if err != nil {
		return nil, err
	}

	s.plots = plots
	s.treatments = treatments
	return s, nil
}

// Snapshot returns copies of the plots and treatments; callers may mutate them freely.
func (s *PlanStore) Snapshot() ([]planner.Plot, []planner.Treatment) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clonePlots(s.plots), cloneTreatments(s.treatments)
}

// AddPlot appends a plot.
func (s *PlanStore) AddPlot(ctx context.Context, name string, area float64) (planner.Plot, error) {
	if math.IsNaN(area) || math.IsInf(area, 0) {
		return planner.Plot{}, ErrInvalidArea
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plot := planner.Plot{ID: s.newID(), Name: strings.TrimSpace(name), Area: area}
	plots := append(clonePlots(s.plots), plot)
	if err := save(ctx, s.kv, PlotsKey, plots); err != nil {
		return planner.Plot{}, err
	}
	s.plots = plots
	return plot, nil
}

// UpdatePlot changes the name and area of an existing plot.
func (s *PlanStore) UpdatePlot(ctx context.Context, id, name string, area float64) (planner.Plot, error) {
	if math.IsNaN(area) || math.IsInf(area, 0) {
		return planner.Plot{}, ErrInvalidArea
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.plotIndex(id)
	if idx < 0 {
		return planner.Plot{}, fmt.Errorf("%w: %s", ErrPlotNotFound, id)
	}

	plots := clonePlots(s.plots)
	plots[idx].Name = strings.TrimSpace(name)
	plots[idx].Area = area
	if err := save(ctx, s.kv, PlotsKey, plots); err != nil {
		return planner.Plot{}, err
	}
	s.plots = plots
	return plots[idx], nil
}

// RemovePlot deletes a plot together with every treatment referencing it.
func (s *PlanStore) RemovePlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.plotIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrPlotNotFound, id)
	}

	plots := make([]planner.Plot, 0, len(s.plots)-1)
	plots = append(plots, s.plots[:idx]...)
	plots = append(plots, s.plots[idx+1:]...)

	treatments := make([]planner.Treatment, 0, len(s.treatments))
	for _, tr := range s.treatments {
		if tr.PlotID != id {
			treatments = append(treatments, tr)
		}
	}

	if err := save(ctx, s.kv, PlotsKey, plots); err != nil {
		return err
	}
	if err := save(ctx, s.kv, TreatmentsKey, treatments); err != nil {
		// Put the stored plot list back so storage keeps matching memory.
		if restoreErr := save(ctx, s.kv, PlotsKey, s.plots); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("restore plots: %w", restoreErr))
		}
		return err
	}
	s.plots = plots
	s.treatments = treatments
	return nil
}

// AddTreatment records a product application on a plot. The dose must be
// positive and the plot must exist.
func (s *PlanStore) AddTreatment(ctx context.Context, plotID string, product catalog.Product, dose float64, unit units.DoseUnit) (planner.Treatment, error) {
	if math.IsNaN(dose) || math.IsInf(dose, 0) || dose <= 0 {
		return planner.Treatment{}, ErrInvalidDose
	}
	if !unit.Valid() {
		return planner.Treatment{}, ErrInvalidDoseUnit
	}
	if strings.TrimSpace(product.RegNr) == "" {
		return planner.Treatment{}, ErrInvalidProduct
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plotIndex(plotID) < 0 {
		return planner.Treatment{}, fmt.Errorf("%w: %s", ErrPlotNotFound, plotID)
	}

	treatment := planner.Treatment{
		ID:       s.newID(),
		PlotID:   plotID,
		Product:  product,
		Dose:     dose,
		DoseUnit: unit,
	}
	treatments := append(cloneTreatments(s.treatments), treatment)
	if err := save(ctx, s.kv, TreatmentsKey, treatments); err != nil {
		return planner.Treatment{}, err
	}
	s.treatments = treatments
	return treatment, nil
}

// RemoveTreatment deletes a single treatment.
func (s *PlanStore) RemoveTreatment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	treatments := make([]planner.Treatment, 0, len(s.treatments))
	for _, tr := range s.treatments {
		if tr.ID != id {
			treatments = append(treatments, tr)
		}
	}
	if len(treatments) == len(s.treatments) {
		return fmt.Errorf("%w: %s", ErrTreatmentNotFound, id)
	}

	if err := save(ctx, s.kv, TreatmentsKey, treatments); err != nil {
		return err
	}
	s.treatments = treatments
	return nil
}

func (s *PlanStore) plotIndex(id string) int {
	for i, p := range s.plots {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func load[T any](ctx context.Context, kv KV, key string) ([]T, bool, error) {
	raw, found, err := kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	if !found {
		return []T{}, false, nil
	}

	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, true, nil
}

func save[T any](ctx context.Context, kv KV, key string, records []T) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func clonePlots(src []planner.Plot) []planner.Plot {
	out := make([]planner.Plot, len(src))
	copy(out, src)
	return out
}

func cloneTreatments(src []planner.Treatment) []planner.Treatment {
	out := make([]planner.Treatment, len(src))
	copy(out, src)
	return out
}
