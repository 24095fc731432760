package syncer

import (
	"context"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"holesync/internal/domain"
	"holesync/internal/pihole"
)

// Collector queries every configured device and produces the run's snapshot.
// Devices are fetched concurrently up to the configured limit; the two lists
// of one device are fetched sequentially because appliances share session
// state across calls. A fetch failure is recorded against its (device, list)
// pair and never aborts the rest of the collection.
type Collector struct {
	clients       []pihole.Client
	maxConcurrent int
}

func NewCollector(clients []pihole.Client, maxConcurrent int) *Collector {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Collector{clients: clients, maxConcurrent: maxConcurrent}
}

type fetchResult struct {
	entries map[domain.ListType]domain.EntrySet
	errs    map[domain.ListType]error
}

// Collect fetches all (device, list) pairs and assembles the snapshot in
// inventory order so downstream output is deterministic.
func (c *Collector) Collect(ctx context.Context) *domain.Snapshot {
	results := make([]fetchResult, len(c.clients))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)

	for i, client := range c.clients {
		g.Go(func() error {
			results[i] = c.fetchDevice(gctx, client)
			return nil
		})
	}
	_ = g.Wait()

	snapshot := domain.NewSnapshot()
	for i, client := range c.clients {
		dev := client.Device()
		snapshot.AddDevice(dev)
		for _, list := range domain.ListTypes {
			if err, failed := results[i].errs[list]; failed {
				snapshot.RecordError(dev, list, err)
				continue
			}
			snapshot.Record(dev, list, results[i].entries[list])
		}
	}
	return snapshot
}

func (c *Collector) fetchDevice(ctx context.Context, client pihole.Client) fetchResult {
	result := fetchResult{
		entries: make(map[domain.ListType]domain.EntrySet, len(domain.ListTypes)),
		errs:    make(map[domain.ListType]error),
	}

	for _, list := range domain.ListTypes {
		entries, err := client.FetchEntries(ctx, list)
		if err != nil {
			collectionErr := &CollectionError{Device: client.Device(), List: list, Err: err}
			log.Warn("List fetch failed", "device", client.Device(), "list", list, "error", err)
			result.errs[list] = collectionErr
			continue
		}
		result.entries[list] = domain.NewEntrySet(entries...)
	}

	return result
}
