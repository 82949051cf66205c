package core

import (
	"context"

	"vendcore/pkg/domain"
)

// DefaultLowStockThreshold is the stock level at or below which an item
// counts as low stock when the caller does not supply a threshold.
const DefaultLowStockThreshold = 5

// InventoryService owns the product catalog and per-machine stock levels.
type InventoryService struct {
	store PersistentStore
	obs   *observer
}

// NewInventoryService constructs an inventory manager over the shared store.
func NewInventoryService(store PersistentStore) *InventoryService {
	return &InventoryService{store: store, obs: &observer{}}
}

// MachineRow is a machine joined with its building for listings.
type MachineRow struct {
	MachineID           int64
	Name                string
	BuildingName        string
	LocationDescription string
	LastMaintenanceDate *Date
}

// MachineStockRow is an inventory item joined with its product.
type MachineStockRow struct {
	ProductID       int64
	Name            string
	Price           float64
	Quantity        int
	LastRestockDate Date
}

// LowStockRow is a low-stock inventory item joined through machine, building,
// and product.
type LowStockRow struct {
	MachineName  string
	BuildingName string
	ProductName  string
	Quantity     int
}

// ListMachines returns every machine joined with its building. A machine
// whose building is missing is listed with an empty building name rather
// than dropped.
func (s *InventoryService) ListMachines(ctx context.Context) (rows []MachineRow, err error) {
	ctx, finish := s.obs.begin(ctx, "inventory.list_machines")
	defer func() { finish(err) }()
	err = s.store.View(ctx, func(view RuleView) error {
		for _, m := range view.ListMachines() {
			var buildingName string
			if b, ok := view.FindBuilding(m.BuildingID); ok {
				buildingName = b.Name
			}
			rows = append(rows, MachineRow{
				MachineID:           m.ID,
				Name:                m.Name,
				BuildingName:        buildingName,
				LocationDescription: m.LocationDescription,
				LastMaintenanceDate: m.LastMaintenanceDate,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetMachineInventory returns the stock of one machine joined with the
// product catalog. Items whose product is missing are silently dropped.
func (s *InventoryService) GetMachineInventory(ctx context.Context, machineID int64) (rows []MachineStockRow, err error) {
	ctx, finish := s.obs.begin(ctx, "inventory.get_machine_inventory")
	defer func() { finish(err) }()
	err = s.store.View(ctx, func(view RuleView) error {
		for _, item := range view.ListInventory() {
			if item.MachineID != machineID {
				continue
			}
			product, ok := view.FindProduct(item.ProductID)
			if !ok {
				continue
			}
			rows = append(rows, MachineStockRow{
				ProductID:       product.ID,
				Name:            product.Name,
				Price:           product.Price,
				Quantity:        item.Quantity,
				LastRestockDate: item.LastRestockDate,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateInventory sets the quantity of the item matching the (machine,
// product) pair and stamps its restock date with today. A missing pair
// returns ErrNotFound with no mutation; a negative quantity blocks commit.
func (s *InventoryService) UpdateInventory(ctx context.Context, machineID, productID int64, newQuantity int) (updated InventoryItem, res Result, err error) {
	ctx, finish := s.obs.begin(ctx, "inventory.update_inventory")
	defer func() { finish(err) }()
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		target, ok := findPair(tx.Snapshot(), machineID, productID)
		if !ok {
			return domain.ErrNotFound{Entity: EntityInventoryItem}
		}
		today := tx.Today()
		var txErr error
		updated, txErr = tx.UpdateInventoryItem(target.ID, func(item *InventoryItem) error {
			item.Quantity = newQuantity
			item.LastRestockDate = today
			return nil
		})
		return txErr
	})
	return updated, res, err
}

func findPair(view RuleView, machineID, productID int64) (InventoryItem, bool) {
	for _, item := range view.ListInventory() {
		if item.MachineID == machineID && item.ProductID == productID {
			return item, true
		}
	}
	return InventoryItem{}, false
}

// GetLowStock returns items at or below threshold joined through machine,
// building, and product. Rows with any missing join target are excluded
// entirely. A negative threshold falls back to DefaultLowStockThreshold.
func (s *InventoryService) GetLowStock(ctx context.Context, threshold int) (rows []LowStockRow, err error) {
	ctx, finish := s.obs.begin(ctx, "inventory.get_low_stock")
	defer func() { finish(err) }()
	if threshold < 0 {
		threshold = DefaultLowStockThreshold
	}
	err = s.store.View(ctx, func(view RuleView) error {
		for _, item := range view.ListInventory() {
			if item.Quantity > threshold {
				continue
			}
			machine, ok := view.FindMachine(item.MachineID)
			if !ok {
				continue
			}
			building, ok := view.FindBuilding(machine.BuildingID)
			if !ok {
				continue
			}
			product, ok := view.FindProduct(item.ProductID)
			if !ok {
				continue
			}
			rows = append(rows, LowStockRow{
				MachineName:  machine.Name,
				BuildingName: building.Name,
				ProductName:  product.Name,
				Quantity:     item.Quantity,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AddProduct persists a new catalog entry. A negative price blocks commit.
func (s *InventoryService) AddProduct(ctx context.Context, name string, price float64, category string) (created Product, res Result, err error) {
	ctx, finish := s.obs.begin(ctx, "inventory.add_product")
	defer func() { finish(err) }()
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateProduct(Product{Name: name, Price: price, Category: category})
		return txErr
	})
	return created, res, err
}

// AddProductToMachine creates the stock row pairing a product with a machine,
// stamped with today's restock date. A duplicate pairing or negative quantity
// blocks commit.
func (s *InventoryService) AddProductToMachine(ctx context.Context, machineID, productID int64, quantity int) (created InventoryItem, res Result, err error) {
	ctx, finish := s.obs.begin(ctx, "inventory.add_product_to_machine")
	defer func() { finish(err) }()
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateInventoryItem(InventoryItem{
			MachineID:       machineID,
			ProductID:       productID,
			Quantity:        quantity,
			LastRestockDate: tx.Today(),
		})
		return txErr
	})
	return created, res, err
}
