package core

import (
	"context"
	"fmt"

	"vendcore/pkg/domain"
)

// NewStockPairingRule returns the in-transaction rule enforcing at most one
// inventory row per (machine, product) pair. Restock updates are only
// well-defined when the pairing is unique, so duplicates block commit.
func NewStockPairingRule() domain.Rule {
	return stockPairingRule{}
}

type stockPairingRule struct{}

func (stockPairingRule) Name() string { return "stock_pairing_unique" }

func (stockPairingRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	type pair struct {
		machineID int64
		productID int64
	}
	seen := make(map[pair]int64)
	res := domain.Result{}
	for _, item := range view.ListInventory() {
		key := pair{machineID: item.MachineID, productID: item.ProductID}
		if firstID, dup := seen[key]; dup {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stock_pairing_unique",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("inventory item %d duplicates (machine %d, product %d) already held by item %d", item.ID, item.MachineID, item.ProductID, firstID),
				Entity:   domain.EntityInventoryItem,
				EntityID: item.ID,
			})
			continue
		}
		seen[key] = item.ID
	}
	return res, nil
}
