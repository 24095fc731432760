package syncer

import (
	"context"
	"sync"

	"holesync/internal/domain"
	"holesync/internal/pihole"
)

// fakeClient is a scriptable in-memory appliance for collector and executor
// tests. Zero-value maps mean "everything succeeds".
type fakeClient struct {
	id domain.DeviceID

	mu       sync.Mutex
	lists    map[domain.ListType][]domain.Entry
	fetchErr map[domain.ListType]error
	addErr   map[string]error

	added   []string
	fetches int
}

func newFakeClient(id domain.DeviceID) *fakeClient {
	return &fakeClient{
		id:       id,
		lists:    make(map[domain.ListType][]domain.Entry),
		fetchErr: make(map[domain.ListType]error),
		addErr:   make(map[string]error),
	}
}

func (f *fakeClient) Device() domain.DeviceID {
	return f.id
}

func (f *fakeClient) FetchEntries(_ context.Context, list domain.ListType) ([]domain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if err := f.fetchErr[list]; err != nil {
		return nil, err
	}
	return f.lists[list], nil
}

func (f *fakeClient) AddEntry(_ context.Context, list domain.ListType, entry domain.Entry) (pihole.AddStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.addErr[entry.Key()]; err != nil {
		return pihole.StatusAdded, err
	}
	for _, existing := range f.lists[list] {
		if existing.Key() == entry.Key() {
			return pihole.StatusAlreadyPresent, nil
		}
	}
	f.lists[list] = append(f.lists[list], entry)
	f.added = append(f.added, entry.Key())
	return pihole.StatusAdded, nil
}

func (f *fakeClient) addedDomains() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.added...)
}
