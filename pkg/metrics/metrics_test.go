package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cellgraph-dev/cellgraph/pkg/cell"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				total += g.GetValue()
			}
		}
	}
	return total
}

func TestCollectorCountsCoreActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := New(WithNamespace("test"), WithRegistry(reg))
	collector.Install()
	defer cell.SetHooks(cell.Hooks{})

	count := cell.NewSource(1)
	doubled := cell.Map[int, int](count, func(n int) int { return n * 2 })
	doubled.Watch(func(int) {})

	count.Set(2)
	count.Set(3)

	if got := gatherValue(t, reg, "test_cells_created_total"); got != 2 {
		t.Errorf("expected 2 cells created, got %v", got)
	}
	// One priming recompute plus one per change
	if got := gatherValue(t, reg, "test_recomputes_total"); got != 3 {
		t.Errorf("expected 3 recomputes, got %v", got)
	}
	if got := gatherValue(t, reg, "test_recompute_errors_total"); got != 0 {
		t.Errorf("expected 0 recompute errors, got %v", got)
	}
	// Two source notifications plus two derived notifications
	if got := gatherValue(t, reg, "test_notifications_total"); got != 4 {
		t.Errorf("expected 4 notification steps, got %v", got)
	}
}

func TestCollectorCountsCycles(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := New(WithNamespace("test"), WithRegistry(reg))
	collector.Install()
	defer cell.SetHooks(cell.Hooks{})

	var d *cell.Derived[int]
	d = cell.NewDerived(func() int { return d.Get() + 1 })
	if _, err := d.TryGet(); err == nil {
		t.Fatal("expected cycle error")
	}

	if got := gatherValue(t, reg, "test_cycles_detected_total"); got == 0 {
		t.Error("expected cycle detections to be counted")
	}
}

func TestCollectorClientGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := New(WithRegistry(reg))

	collector.ClientConnected()
	collector.ClientConnected()
	collector.ClientDisconnected()

	if got := gatherValue(t, reg, "cellgraph_live_clients"); got != 1 {
		t.Errorf("expected 1 connected client, got %v", got)
	}
}
