package domain

import "context"

// RuleView provides read-only access to domain entities for rule evaluation.
// Listings preserve table insertion order.
type RuleView interface {
	ListBuildings() []Building
	ListMachines() []Machine
	ListProducts() []Product
	ListInventory() []InventoryItem
	ListMaintenanceRecords() []MaintenanceRecord
	FindBuilding(id int64) (Building, bool)
	FindMachine(id int64) (Machine, bool)
	FindProduct(id int64) (Product, bool)
}

// Rule inspects a pending change set against the post-change view and
// reports violations. Rules run inside the transaction boundary, before
// commit.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine runs registered rules in registration order and folds their
// results into one.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule. Not safe for concurrent use with Evaluate.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate runs every registered rule. The first rule error aborts
// evaluation; otherwise all violations are merged into the returned Result.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var merged Result
	for _, rule := range e.rules {
		partial, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		merged.Merge(partial)
	}
	return merged, nil
}
