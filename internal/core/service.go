// Package core implements the vendcore service layer: the inventory and
// maintenance managers, report projections, built-in rules, and storage
// driver selection over the shared persistent store.
package core

import (
	"context"
	"time"
)

// Service bundles the managers over one shared store handle. All managers
// reference the same store; the store's lifetime bounds theirs.
type Service struct {
	store       PersistentStore
	obs         *observer
	clock       func() time.Time
	inventory   *InventoryService
	maintenance *MaintenanceService
	reports     *ReportService
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithTracer attaches a tracer to every manager operation.
func WithTracer(t Tracer) Option {
	return func(s *Service) { s.obs.tracer = t }
}

// WithMetrics attaches a metrics recorder to every manager operation.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.obs.metrics = m }
}

// WithClock overrides the clock used for staleness computation. Tests use it
// to pin the current date.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.clock = fn
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{store: store, obs: &observer{}, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.inventory = NewInventoryService(store)
	s.inventory.obs = s.obs
	s.maintenance = NewMaintenanceService(store)
	s.maintenance.obs = s.obs
	s.maintenance.nowFn = s.clock
	s.reports = NewReportService(store)
	s.reports.obs = s.obs
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. Intended for tests and ephemeral runs.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	store, err := OpenPersistentStore(StorageOptions{Driver: StorageMemory}, engine)
	if err != nil {
		// The memory driver cannot fail to open.
		panic(err)
	}
	return NewService(store, opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Inventory returns the inventory manager.
func (s *Service) Inventory() *InventoryService {
	return s.inventory
}

// Maintenance returns the maintenance manager.
func (s *Service) Maintenance() *MaintenanceService {
	return s.maintenance
}

// Reports returns the report projections.
func (s *Service) Reports() *ReportService {
	return s.reports
}

// CreateBuilding persists a new building. Buildings are immutable afterwards.
func (s *Service) CreateBuilding(ctx context.Context, building Building) (created Building, res Result, err error) {
	ctx, finish := s.obs.begin(ctx, "service.create_building")
	defer func() { finish(err) }()
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateBuilding(building)
		return txErr
	})
	return created, res, err
}

// CreateMachine persists a new vending machine. The building reference is not
// validated; a dangling reference degrades to an omitted row in joined views.
func (s *Service) CreateMachine(ctx context.Context, machine Machine) (created Machine, res Result, err error) {
	ctx, finish := s.obs.begin(ctx, "service.create_machine")
	defer func() { finish(err) }()
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateMachine(machine)
		return txErr
	})
	return created, res, err
}
