package core

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTracerSeesOperationsAndOutcomes(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc := NewInMemoryService(NewDefaultRulesEngine(), WithTracer(tracer))
	ctx := context.Background()

	if _, _, err := svc.CreateBuilding(ctx, Building{Name: "Library"}); err != nil {
		t.Fatalf("create building: %v", err)
	}
	// A blocked transaction surfaces as an error span.
	if _, _, err := svc.Inventory().AddProduct(ctx, "Broken", -1, "drinks"); err == nil {
		t.Fatal("expected rule violation")
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans, got %+v", entries)
	}
	if entries[0].Operation != "service.create_building" || entries[0].Status != "success" {
		t.Fatalf("unexpected first span: %+v", entries[0])
	}
	if entries[1].Operation != "inventory.add_product" || entries[1].Status != "error" {
		t.Fatalf("unexpected second span: %+v", entries[1])
	}
	if !strings.Contains(buf.String(), `"operation":"service.create_building"`) {
		t.Fatalf("span not serialized:\n%s", buf.String())
	}
}

func TestExpvarMetricsAggregateByOperation(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	svc := NewInMemoryService(NewDefaultRulesEngine(), WithMetrics(rec))
	ctx := context.Background()

	if _, _, err := svc.CreateBuilding(ctx, Building{Name: "Library"}); err != nil {
		t.Fatalf("create building: %v", err)
	}
	if _, _, err := svc.CreateBuilding(ctx, Building{Name: "Gym"}); err != nil {
		t.Fatalf("create building: %v", err)
	}
	if _, _, err := svc.Inventory().AddProduct(ctx, "Broken", -1, "drinks"); err == nil {
		t.Fatal("expected rule violation")
	}

	snap := rec.Snapshot()
	if snap.Results["service.create_building"]["success"] != 2 {
		t.Fatalf("unexpected create_building counters: %+v", snap.Results)
	}
	if snap.Results["inventory.add_product"]["error"] != 1 {
		t.Fatalf("unexpected add_product counters: %+v", snap.Results)
	}
	if _, ok := snap.DurationsMS["service.create_building"]; !ok {
		t.Fatalf("missing duration aggregate: %+v", snap.DurationsMS)
	}
}

func TestExpvarRecorderGeneratesUniqueNames(t *testing.T) {
	a := NewExpvarMetricsRecorder("")
	b := NewExpvarMetricsRecorder("")
	if a.Name() == b.Name() {
		t.Fatalf("expected unique expvar names, got %s twice", a.Name())
	}
}

func TestPrometheusRecorderCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	svc := NewInMemoryService(NewDefaultRulesEngine(), WithMetrics(rec))
	ctx := context.Background()

	if _, _, err := svc.CreateBuilding(ctx, Building{Name: "Library"}); err != nil {
		t.Fatalf("create building: %v", err)
	}
	if _, err := svc.Inventory().ListMachines(ctx); err != nil {
		t.Fatalf("list machines: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "vendcore_operation_results_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			var op, status string
			for _, label := range metric.GetLabel() {
				switch label.GetName() {
				case "operation":
					op = label.GetValue()
				case "status":
					status = label.GetValue()
				}
			}
			counts[op+"/"+status] = metric.GetCounter().GetValue()
		}
	}
	if counts["service.create_building/success"] != 1 {
		t.Fatalf("unexpected counter values: %+v", counts)
	}
	if counts["inventory.list_machines/success"] != 1 {
		t.Fatalf("unexpected counter values: %+v", counts)
	}
}

func TestPrometheusRecorderRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestObserverIsNilSafe(t *testing.T) {
	var obs *observer
	_, finish := obs.begin(context.Background(), "anything")
	finish(nil)

	obs = &observer{}
	_, finish = obs.begin(context.Background(), "anything")
	finish(nil)
}
