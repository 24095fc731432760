package syncer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"holesync/internal/domain"
	"holesync/internal/pihole"
)

func outcomeFor(t *testing.T, outcomes []domain.DeviceOutcome, dev domain.DeviceID) domain.DeviceOutcome {
	t.Helper()
	for _, outcome := range outcomes {
		if outcome.Device == dev {
			return outcome
		}
	}
	t.Fatalf("no outcome for device %s", dev)
	return domain.DeviceOutcome{}
}

func listOutcomeFor(t *testing.T, outcome domain.DeviceOutcome, list domain.ListType) domain.ListOutcome {
	t.Helper()
	for _, lo := range outcome.Lists {
		if lo.List == list {
			return lo
		}
	}
	t.Fatalf("device %s has no outcome for list %s", outcome.Device, list)
	return domain.ListOutcome{}
}

// collectAndPlan runs the real collector and reconciler over the fakes so the
// executor sees exactly what a production run would hand it.
func collectAndPlan(t *testing.T, clients []pihole.Client) (*domain.Snapshot, *domain.Plan) {
	t.Helper()
	snapshot := NewCollector(clients, len(clients)).Collect(context.Background())
	return snapshot, Reconcile(snapshot, PolicyAdditive)
}

func TestApplyConvergesDisjointDevices(t *testing.T) {
	a := newFakeClient("pihole-a")
	a.lists[domain.Blacklist] = []domain.Entry{{Domain: "foo.com"}}
	b := newFakeClient("pihole-b")
	b.lists[domain.Blacklist] = []domain.Entry{{Domain: "bar.com"}}

	clients := []pihole.Client{a, b}
	snapshot, plan := collectAndPlan(t, clients)

	outcomes := NewExecutor(clients, 2).Apply(context.Background(), snapshot, plan)

	if got := a.addedDomains(); !reflect.DeepEqual(got, []string{"bar.com"}) {
		t.Fatalf("pihole-a received %v, want [bar.com]", got)
	}
	if got := b.addedDomains(); !reflect.DeepEqual(got, []string{"foo.com"}) {
		t.Fatalf("pihole-b received %v, want [foo.com]", got)
	}

	report := domain.RunReport{Devices: outcomes}
	if report.TotalAdded() != 2 || report.TotalFailed() != 0 {
		t.Fatalf("report totals = (%d added, %d failed), want (2, 0)", report.TotalAdded(), report.TotalFailed())
	}
	if !report.Converged() {
		t.Fatalf("run should have converged")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	entries := []domain.Entry{{Domain: "ads.example.com"}, {Domain: "tracker.example.net"}}
	a := newFakeClient("pihole-a")
	a.lists[domain.Blacklist] = append([]domain.Entry(nil), entries...)
	b := newFakeClient("pihole-b")
	b.lists[domain.Blacklist] = append([]domain.Entry(nil), entries...)

	clients := []pihole.Client{a, b}
	snapshot, plan := collectAndPlan(t, clients)

	NewExecutor(clients, 2).Apply(context.Background(), snapshot, plan)

	if len(a.addedDomains()) != 0 || len(b.addedDomains()) != 0 {
		t.Fatalf("converged fleet still received writes: a=%v b=%v", a.addedDomains(), b.addedDomains())
	}
}

func TestApplyAlreadyPresentIsNotAnError(t *testing.T) {
	a := newFakeClient("pihole-a")
	a.lists[domain.Blacklist] = []domain.Entry{{Domain: "foo.com"}}
	b := newFakeClient("pihole-b")

	clients := []pihole.Client{a, b}
	snapshot, plan := collectAndPlan(t, clients)

	// The device gains the entry between snapshot and apply.
	if _, err := b.AddEntry(context.Background(), domain.Blacklist, domain.Entry{Domain: "foo.com"}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	b.added = nil

	outcomes := NewExecutor(clients, 2).Apply(context.Background(), snapshot, plan)

	lo := listOutcomeFor(t, outcomeFor(t, outcomes, "pihole-b"), domain.Blacklist)
	if !reflect.DeepEqual(lo.AlreadyPresent, []string{"foo.com"}) {
		t.Fatalf("already-present = %v, want [foo.com]", lo.AlreadyPresent)
	}
	if len(lo.Added) != 0 || len(lo.Failed) != 0 {
		t.Fatalf("no-op add reported as added=%v failed=%v", lo.Added, lo.Failed)
	}
}

func TestApplyPartialFailureKeepsEarlierAdds(t *testing.T) {
	source := newFakeClient("pihole-a")
	source.lists[domain.Blacklist] = []domain.Entry{
		{Domain: "a.example.com"},
		{Domain: "b.example.com"},
		{Domain: "c.example.com"},
	}
	target := newFakeClient("pihole-b")
	target.addErr["b.example.com"] = errors.New("database is locked")

	clients := []pihole.Client{source, target}
	snapshot, plan := collectAndPlan(t, clients)

	outcomes := NewExecutor(clients, 2).Apply(context.Background(), snapshot, plan)

	lo := listOutcomeFor(t, outcomeFor(t, outcomes, "pihole-b"), domain.Blacklist)
	if !reflect.DeepEqual(lo.Added, []string{"a.example.com", "c.example.com"}) {
		t.Fatalf("added = %v, want the two healthy entries", lo.Added)
	}
	if len(lo.Failed) != 1 || lo.Failed[0].Entry.Key() != "b.example.com" {
		t.Fatalf("failed = %v, want exactly b.example.com", lo.Failed)
	}
	// Entries applied before the failure stay applied.
	found := false
	for _, e := range target.lists[domain.Blacklist] {
		if e.Key() == "a.example.com" {
			found = true
		}
	}
	if !found {
		t.Fatalf("entry applied before the failure was rolled back")
	}
}

func TestApplyFailingDeviceDoesNotAffectOthers(t *testing.T) {
	source := newFakeClient("pihole-a")
	source.lists[domain.Blacklist] = []domain.Entry{{Domain: "ads.example.com"}}
	broken := newFakeClient("pihole-b")
	broken.addErr["ads.example.com"] = errors.New("unauthorized")
	healthy := newFakeClient("pihole-c")

	clients := []pihole.Client{source, broken, healthy}
	snapshot, plan := collectAndPlan(t, clients)

	outcomes := NewExecutor(clients, 3).Apply(context.Background(), snapshot, plan)

	if got := healthy.addedDomains(); !reflect.DeepEqual(got, []string{"ads.example.com"}) {
		t.Fatalf("healthy device received %v despite a sibling failure", got)
	}
	lo := listOutcomeFor(t, outcomeFor(t, outcomes, "pihole-b"), domain.Blacklist)
	if len(lo.Failed) != 1 {
		t.Fatalf("broken device failures = %v, want 1", lo.Failed)
	}
}

func TestApplySkipsDeviceWithCollectionFailure(t *testing.T) {
	healthy := newFakeClient("pihole-a")
	healthy.lists[domain.Blacklist] = []domain.Entry{{Domain: "ads.example.com"}}
	down := newFakeClient("pihole-b")
	down.fetchErr[domain.Whitelist] = errors.New("connection refused")
	down.fetchErr[domain.Blacklist] = errors.New("connection refused")

	clients := []pihole.Client{healthy, down}
	snapshot, plan := collectAndPlan(t, clients)

	outcomes := NewExecutor(clients, 2).Apply(context.Background(), snapshot, plan)

	outcome := outcomeFor(t, outcomes, "pihole-b")
	if !outcome.Skipped {
		t.Fatalf("device with failed collection was not marked skipped")
	}
	for _, lo := range outcome.Lists {
		if lo.FetchError == "" {
			t.Fatalf("skipped device list %s carries no fetch error", lo.List)
		}
	}
	if len(down.addedDomains()) != 0 {
		t.Fatalf("skipped device received writes: %v", down.addedDomains())
	}
}
