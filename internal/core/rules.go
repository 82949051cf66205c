package core

import "vendcore/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set:
// non-negative stock quantities, non-negative prices, and at most one
// inventory row per (machine, product) pair.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewStockQuantityRule())
	engine.Register(NewProductPriceRule())
	engine.Register(NewStockPairingRule())
	return engine
}
