// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sync"
	"time"

	"vendcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Building aliases domain.Building for in-memory persistence operations.
	Building = domain.Building
	// Machine aliases domain.Machine.
	Machine = domain.Machine
	// Product aliases domain.Product.
	Product = domain.Product
	// InventoryItem aliases domain.InventoryItem.
	InventoryItem = domain.InventoryItem
	// MaintenanceRecord aliases domain.MaintenanceRecord.
	MaintenanceRecord = domain.MaintenanceRecord
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// RuleView aliases domain.RuleView providing read-only state.
	RuleView = domain.RuleView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

// memoryState holds one slice per table. Slice order is insertion order,
// which is the order queries hand records back in.
type memoryState struct {
	buildings []Building
	machines  []Machine
	products  []Product
	inventory []InventoryItem
	records   []MaintenanceRecord
}

// Snapshot captures a point-in-time clone of the store state. The JSON field
// names are the durable table names and must not change.
type Snapshot struct {
	Buildings          []Building          `json:"buildings"`
	Machines           []Machine           `json:"vending_machines"`
	Products           []Product           `json:"products"`
	Inventory          []InventoryItem     `json:"inventory"`
	MaintenanceRecords []MaintenanceRecord `json:"maintenance_records"`
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		buildings: make([]Building, len(s.buildings)),
		machines:  make([]Machine, len(s.machines)),
		products:  make([]Product, len(s.products)),
		inventory: make([]InventoryItem, len(s.inventory)),
		records:   make([]MaintenanceRecord, len(s.records)),
	}
	copy(cloned.buildings, s.buildings)
	for i, m := range s.machines {
		cloned.machines[i] = cloneMachine(m)
	}
	copy(cloned.products, s.products)
	copy(cloned.inventory, s.inventory)
	copy(cloned.records, s.records)
	return cloned
}

// cloneMachine detaches the derived-date pointer so transactional copies never
// alias committed state.
func cloneMachine(m Machine) Machine {
	cp := m
	if m.LastMaintenanceDate != nil {
		d := *m.LastMaintenanceDate
		cp.LastMaintenanceDate = &d
	}
	return cp
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Buildings:          cloned.buildings,
		Machines:           cloned.machines,
		Products:           cloned.products,
		Inventory:          cloned.inventory,
		MaintenanceRecords: cloned.records,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := memoryState{
		buildings: append([]Building(nil), s.Buildings...),
		machines:  make([]Machine, len(s.Machines)),
		products:  append([]Product(nil), s.Products...),
		inventory: append([]InventoryItem(nil), s.Inventory...),
		records:   append([]MaintenanceRecord(nil), s.MaintenanceRecords...),
	}
	for i, m := range s.Machines {
		state.machines[i] = cloneMachine(m)
	}
	return state
}

// Store provides an in-memory transactional store for the core domain. The
// mutex is the single-writer serialization point required for embedding in a
// multi-threaded host process.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the store clock. Tests use it to pin date stamping.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// ExportState returns a deep snapshot of committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces committed state with the supplied snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// transaction is a mutation set applied to a cloned copy of the store state.
type transaction struct {
	state   memoryState
	changes []Change
	today   domain.Date
}

var _ Transaction = (*transaction)(nil)

// view exposes a read-only state snapshot to rules and callers.
type view struct {
	state *memoryState
}

var _ RuleView = view{}

// ListBuildings returns all buildings in insertion order.
func (v view) ListBuildings() []Building {
	return append([]Building(nil), v.state.buildings...)
}

// ListMachines returns all machines in insertion order.
func (v view) ListMachines() []Machine {
	out := make([]Machine, len(v.state.machines))
	for i, m := range v.state.machines {
		out[i] = cloneMachine(m)
	}
	return out
}

// ListProducts returns all products in insertion order.
func (v view) ListProducts() []Product {
	return append([]Product(nil), v.state.products...)
}

// ListInventory returns all inventory items in insertion order.
func (v view) ListInventory() []InventoryItem {
	return append([]InventoryItem(nil), v.state.inventory...)
}

// ListMaintenanceRecords returns the maintenance log in insertion order.
func (v view) ListMaintenanceRecords() []MaintenanceRecord {
	return append([]MaintenanceRecord(nil), v.state.records...)
}

// FindBuilding retrieves a building by ID.
func (v view) FindBuilding(id int64) (Building, bool) {
	for _, b := range v.state.buildings {
		if b.ID == id {
			return b, true
		}
	}
	return Building{}, false
}

// FindMachine retrieves a machine by ID.
func (v view) FindMachine(id int64) (Machine, bool) {
	for _, m := range v.state.machines {
		if m.ID == id {
			return cloneMachine(m), true
		}
	}
	return Machine{}, false
}

// FindProduct retrieves a product by ID.
func (v view) FindProduct(id int64) (Product, bool) {
	for _, p := range v.state.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Registered rules evaluate against the candidate state before commit;
// blocking violations abandon the copy and surface as RuleViolationError.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		today: domain.DateOf(s.nowFn()),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(RuleView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

// Snapshot returns the read-only view of the transactional state.
func (tx *transaction) Snapshot() RuleView {
	return view{state: &tx.state}
}

// Today returns the store clock's calendar date, fixed for the transaction.
func (tx *transaction) Today() domain.Date {
	return tx.today
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// nextBuildingID and friends implement the synthetic key policy: 1 for an
// empty table, max(existing)+1 otherwise. The scan is O(n) per insert, which
// is acceptable at this system's scale.
func nextBuildingID(table []Building) int64 {
	var maxID int64
	for _, b := range table {
		if b.ID > maxID {
			maxID = b.ID
		}
	}
	return maxID + 1
}

func nextMachineID(table []Machine) int64 {
	var maxID int64
	for _, m := range table {
		if m.ID > maxID {
			maxID = m.ID
		}
	}
	return maxID + 1
}

func nextProductID(table []Product) int64 {
	var maxID int64
	for _, p := range table {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID + 1
}

func nextInventoryID(table []InventoryItem) int64 {
	var maxID int64
	for _, i := range table {
		if i.ID > maxID {
			maxID = i.ID
		}
	}
	return maxID + 1
}

func nextRecordID(table []MaintenanceRecord) int64 {
	var maxID int64
	for _, r := range table {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID + 1
}

// CreateBuilding appends a building. The store always assigns the ID.
func (tx *transaction) CreateBuilding(b Building) (Building, error) {
	b.ID = nextBuildingID(tx.state.buildings)
	tx.state.buildings = append(tx.state.buildings, b)
	tx.recordChange(Change{Entity: domain.EntityBuilding, Action: domain.ActionCreate, After: b})
	return b, nil
}

// CreateMachine appends a machine. Building references are not checked here;
// joins degrade to omitted rows when the reference dangles.
func (tx *transaction) CreateMachine(m Machine) (Machine, error) {
	m.ID = nextMachineID(tx.state.machines)
	tx.state.machines = append(tx.state.machines, cloneMachine(m))
	tx.recordChange(Change{Entity: domain.EntityMachine, Action: domain.ActionCreate, After: cloneMachine(m)})
	return m, nil
}

// UpdateMachine mutates a machine in place using the provided mutator.
func (tx *transaction) UpdateMachine(id int64, mutator func(*Machine) error) (Machine, error) {
	for i, m := range tx.state.machines {
		if m.ID != id {
			continue
		}
		before := cloneMachine(m)
		current := cloneMachine(m)
		if err := mutator(&current); err != nil {
			return Machine{}, err
		}
		current.ID = id
		tx.state.machines[i] = cloneMachine(current)
		tx.recordChange(Change{Entity: domain.EntityMachine, Action: domain.ActionUpdate, Before: before, After: cloneMachine(current)})
		return current, nil
	}
	return Machine{}, domain.ErrNotFound{Entity: domain.EntityMachine, ID: id}
}

// CreateProduct appends a catalog entry.
func (tx *transaction) CreateProduct(p Product) (Product, error) {
	p.ID = nextProductID(tx.state.products)
	tx.state.products = append(tx.state.products, p)
	tx.recordChange(Change{Entity: domain.EntityProduct, Action: domain.ActionCreate, After: p})
	return p, nil
}

// CreateInventoryItem appends a stock row.
func (tx *transaction) CreateInventoryItem(item InventoryItem) (InventoryItem, error) {
	item.ID = nextInventoryID(tx.state.inventory)
	tx.state.inventory = append(tx.state.inventory, item)
	tx.recordChange(Change{Entity: domain.EntityInventoryItem, Action: domain.ActionCreate, After: item})
	return item, nil
}

// UpdateInventoryItem mutates a stock row in place.
func (tx *transaction) UpdateInventoryItem(id int64, mutator func(*InventoryItem) error) (InventoryItem, error) {
	for i, item := range tx.state.inventory {
		if item.ID != id {
			continue
		}
		before := item
		current := item
		if err := mutator(&current); err != nil {
			return InventoryItem{}, err
		}
		current.ID = id
		tx.state.inventory[i] = current
		tx.recordChange(Change{Entity: domain.EntityInventoryItem, Action: domain.ActionUpdate, Before: before, After: current})
		return current, nil
	}
	return InventoryItem{}, domain.ErrNotFound{Entity: domain.EntityInventoryItem, ID: id}
}

// CreateMaintenanceRecord appends to the maintenance log. Records are never
// updated or deleted afterwards.
func (tx *transaction) CreateMaintenanceRecord(r MaintenanceRecord) (MaintenanceRecord, error) {
	r.ID = nextRecordID(tx.state.records)
	tx.state.records = append(tx.state.records, r)
	tx.recordChange(Change{Entity: domain.EntityMaintenanceRecord, Action: domain.ActionCreate, After: r})
	return r, nil
}

// FindBuilding retrieves a building from the transactional state.
func (tx *transaction) FindBuilding(id int64) (Building, bool) {
	return view{state: &tx.state}.FindBuilding(id)
}

// FindMachine retrieves a machine from the transactional state.
func (tx *transaction) FindMachine(id int64) (Machine, bool) {
	return view{state: &tx.state}.FindMachine(id)
}

// FindProduct retrieves a product from the transactional state.
func (tx *transaction) FindProduct(id int64) (Product, bool) {
	return view{state: &tx.state}.FindProduct(id)
}

// Read helpers ---------------------------------------------------------------

// GetBuilding retrieves a building by ID from committed state.
func (s *Store) GetBuilding(id int64) (Building, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.FindBuilding(id)
}

// ListBuildings returns all buildings from committed state.
func (s *Store) ListBuildings() []Building {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListBuildings()
}

// GetMachine retrieves a machine by ID from committed state.
func (s *Store) GetMachine(id int64) (Machine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.FindMachine(id)
}

// ListMachines returns all machines from committed state.
func (s *Store) ListMachines() []Machine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListMachines()
}

// GetProduct retrieves a product by ID from committed state.
func (s *Store) GetProduct(id int64) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.FindProduct(id)
}

// ListProducts returns all products from committed state.
func (s *Store) ListProducts() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListProducts()
}

// ListInventory returns all inventory items from committed state.
func (s *Store) ListInventory() []InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListInventory()
}

// ListMaintenanceRecords returns the maintenance log from committed state.
func (s *Store) ListMaintenanceRecords() []MaintenanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListMaintenanceRecords()
}
