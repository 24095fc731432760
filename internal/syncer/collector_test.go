package syncer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"holesync/internal/domain"
	"holesync/internal/pihole"
)

func TestCollectGathersAllDevices(t *testing.T) {
	a := newFakeClient("pihole-a")
	a.lists[domain.Whitelist] = []domain.Entry{{Domain: "good.example.com"}}
	a.lists[domain.Blacklist] = []domain.Entry{{Domain: "ads.example.com"}}

	b := newFakeClient("pihole-b")
	b.lists[domain.Blacklist] = []domain.Entry{{Domain: "tracker.example.net"}}

	collector := NewCollector([]pihole.Client{a, b}, 2)
	snapshot := collector.Collect(context.Background())

	if got := snapshot.Devices; !reflect.DeepEqual(got, []domain.DeviceID{"pihole-a", "pihole-b"}) {
		t.Fatalf("devices = %v, want inventory order [pihole-a pihole-b]", got)
	}

	set, ok := snapshot.Entries("pihole-a", domain.Whitelist)
	if !ok || !set.Contains("good.example.com") {
		t.Fatalf("pihole-a whitelist not captured: %v", set.Sorted())
	}
	set, ok = snapshot.Entries("pihole-b", domain.Whitelist)
	if !ok || len(set) != 0 {
		t.Fatalf("pihole-b empty whitelist should be recorded as an empty set, got ok=%v set=%v", ok, set.Sorted())
	}
	if len(snapshot.FailedDevices()) != 0 {
		t.Fatalf("unexpected failed devices: %v", snapshot.FailedDevices())
	}
}

func TestCollectRecordsFetchErrorsPerPair(t *testing.T) {
	healthy := newFakeClient("pihole-a")
	healthy.lists[domain.Blacklist] = []domain.Entry{{Domain: "ads.example.com"}}

	flaky := newFakeClient("pihole-b")
	flaky.lists[domain.Blacklist] = []domain.Entry{{Domain: "tracker.example.net"}}
	flaky.fetchErr[domain.Whitelist] = errors.New("timeout")

	collector := NewCollector([]pihole.Client{healthy, flaky}, 2)
	snapshot := collector.Collect(context.Background())

	err, failed := snapshot.FetchError("pihole-b", domain.Whitelist)
	if !failed {
		t.Fatalf("whitelist fetch error not recorded")
	}
	var collectionErr *CollectionError
	if !errors.As(err, &collectionErr) {
		t.Fatalf("recorded error is %T, want *CollectionError", err)
	}
	if collectionErr.Device != "pihole-b" || collectionErr.List != domain.Whitelist {
		t.Fatalf("error names wrong pair: %v", collectionErr)
	}

	// The other list of the same device still made it into the snapshot.
	if set, ok := snapshot.Entries("pihole-b", domain.Blacklist); !ok || !set.Contains("tracker.example.net") {
		t.Fatalf("healthy blacklist of a half-failed device was lost")
	}
	if got := snapshot.FailedDevices(); !reflect.DeepEqual(got, []domain.DeviceID{"pihole-b"}) {
		t.Fatalf("failed devices = %v, want [pihole-b]", got)
	}
}

func TestCollectFullyUnreachableDevice(t *testing.T) {
	down := newFakeClient("pihole-a")
	down.fetchErr[domain.Whitelist] = errors.New("connection refused")
	down.fetchErr[domain.Blacklist] = errors.New("connection refused")

	collector := NewCollector([]pihole.Client{down}, 1)
	snapshot := collector.Collect(context.Background())

	for _, list := range domain.ListTypes {
		if _, ok := snapshot.Entries("pihole-a", list); ok {
			t.Fatalf("unreachable device has recorded entries for %s", list)
		}
		if _, failed := snapshot.FetchError("pihole-a", list); !failed {
			t.Fatalf("missing fetch error for %s", list)
		}
	}
}

func TestCollectNormalizesDuplicates(t *testing.T) {
	client := newFakeClient("pihole-a")
	client.lists[domain.Blacklist] = []domain.Entry{
		{Domain: "Ads.Example.com"},
		{Domain: "ads.example.com "},
		{Domain: "tracker.example.net"},
	}

	collector := NewCollector([]pihole.Client{client}, 1)
	snapshot := collector.Collect(context.Background())

	set, _ := snapshot.Entries("pihole-a", domain.Blacklist)
	if len(set) != 2 {
		t.Fatalf("set size = %d, want 2 after normalization: %v", len(set), set.Sorted())
	}
}
