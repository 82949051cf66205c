package core

import (
	"context"
	"errors"
	"sort"
	"time"

	"vendcore/pkg/domain"
)

// DefaultMaintenanceDueDays is the staleness threshold, in days, when the
// caller does not supply one.
const DefaultMaintenanceDueDays = 30

// MaintenanceService owns the append-only maintenance log and the staleness
// queries over it.
type MaintenanceService struct {
	store PersistentStore
	obs   *observer
	nowFn func() time.Time
}

// NewMaintenanceService constructs a maintenance manager over the shared store.
func NewMaintenanceService(store PersistentStore) *MaintenanceService {
	return &MaintenanceService{store: store, obs: &observer{}, nowFn: time.Now}
}

// HistoryEntry is a maintenance record joined with its machine's name.
type HistoryEntry struct {
	RecordID    int64
	MachineName string
	Date        Date
	Description string
	PerformedBy string
}

// DueMachine is a machine overdue for maintenance, joined with its building.
type DueMachine struct {
	MachineID            int64
	Name                 string
	BuildingName         string
	LocationDescription  string
	LastMaintenanceDate  Date
	DaysSinceMaintenance int
}

// ScheduledMaintenance reports planned maintenance intent. Nothing is
// persisted; scheduling is an external collaborator contract.
type ScheduledMaintenance struct {
	MachineID   int64
	MachineName string
	Date        Date
	Description string
}

// History returns maintenance records joined with machine names, newest
// first. Pass machineID 0 for the full log. A record whose machine is
// missing keeps an empty machine name.
func (s *MaintenanceService) History(ctx context.Context, machineID int64) (entries []HistoryEntry, err error) {
	ctx, finish := s.obs.begin(ctx, "maintenance.history")
	defer func() { finish(err) }()
	err = s.store.View(ctx, func(view RuleView) error {
		for _, r := range view.ListMaintenanceRecords() {
			if machineID != 0 && r.MachineID != machineID {
				continue
			}
			var machineName string
			if m, ok := view.FindMachine(r.MachineID); ok {
				machineName = m.Name
			}
			entries = append(entries, HistoryEntry{
				RecordID:    r.ID,
				MachineName: machineName,
				Date:        r.MaintenanceDate,
				Description: r.Description,
				PerformedBy: r.PerformedBy,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[j].Date.Before(entries[i].Date)
	})
	return entries, nil
}

// AddRecord appends a maintenance record stamped with today's date, then
// overwrites the machine's derived last-maintenance date with that same date.
// The overwrite is unconditional: a record inserted out of chronological
// order regresses the cached date rather than being reconciled against the
// log. A record for an unknown machine is still appended; only the derived
// update is skipped.
func (s *MaintenanceService) AddRecord(ctx context.Context, machineID int64, description, performedBy string) (created MaintenanceRecord, res Result, err error) {
	ctx, finish := s.obs.begin(ctx, "maintenance.add_record")
	defer func() { finish(err) }()
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		today := tx.Today()
		var txErr error
		created, txErr = tx.CreateMaintenanceRecord(MaintenanceRecord{
			MachineID:       machineID,
			MaintenanceDate: today,
			Description:     description,
			PerformedBy:     performedBy,
		})
		if txErr != nil {
			return txErr
		}
		_, txErr = tx.UpdateMachine(machineID, func(m *Machine) error {
			d := today
			m.LastMaintenanceDate = &d
			return nil
		})
		var notFound domain.ErrNotFound
		if errors.As(txErr, &notFound) {
			return nil
		}
		return txErr
	})
	return created, res, err
}

// MachinesDueMaintenance returns machines whose last maintenance is at least
// days old, most overdue first. Machines with no recorded maintenance date
// are excluded: staleness cannot be computed for them. A non-positive days
// value falls back to DefaultMaintenanceDueDays.
func (s *MaintenanceService) MachinesDueMaintenance(ctx context.Context, days int) (due []DueMachine, err error) {
	ctx, finish := s.obs.begin(ctx, "maintenance.machines_due")
	defer func() { finish(err) }()
	if days <= 0 {
		days = DefaultMaintenanceDueDays
	}
	err = s.store.View(ctx, func(view RuleView) error {
		today := domain.DateOf(s.nowFn())
		for _, m := range view.ListMachines() {
			if m.LastMaintenanceDate == nil {
				continue
			}
			elapsed := m.LastMaintenanceDate.DaysUntil(today)
			if elapsed < days {
				continue
			}
			var buildingName string
			if b, ok := view.FindBuilding(m.BuildingID); ok {
				buildingName = b.Name
			}
			due = append(due, DueMachine{
				MachineID:            m.ID,
				Name:                 m.Name,
				BuildingName:         buildingName,
				LocationDescription:  m.LocationDescription,
				LastMaintenanceDate:  *m.LastMaintenanceDate,
				DaysSinceMaintenance: elapsed,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].DaysSinceMaintenance > due[j].DaysSinceMaintenance
	})
	return due, nil
}

// ScheduleMaintenance reports scheduling intent for the given machines
// without persisting anything. Unknown machines are reported with an empty
// name so the caller can flag them.
func (s *MaintenanceService) ScheduleMaintenance(ctx context.Context, machineIDs []int64, date Date, description string) (planned []ScheduledMaintenance, err error) {
	ctx, finish := s.obs.begin(ctx, "maintenance.schedule")
	defer func() { finish(err) }()
	err = s.store.View(ctx, func(view RuleView) error {
		for _, id := range machineIDs {
			var name string
			if m, ok := view.FindMachine(id); ok {
				name = m.Name
			}
			planned = append(planned, ScheduledMaintenance{
				MachineID:   id,
				MachineName: name,
				Date:        date,
				Description: description,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return planned, nil
}
