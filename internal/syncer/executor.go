package syncer

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"holesync/internal/domain"
	"holesync/internal/pihole"
)

// Executor applies computed diffs back to the devices. Devices run
// concurrently up to the configured limit and fail independently; within one
// device the lists and entries are applied sequentially. A device already at
// target for a list is never contacted for writes on that list.
type Executor struct {
	clients       map[domain.DeviceID]pihole.Client
	maxConcurrent int
}

func NewExecutor(clients []pihole.Client, maxConcurrent int) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	byID := make(map[domain.DeviceID]pihole.Client, len(clients))
	for _, client := range clients {
		byID[client.Device()] = client
	}
	return &Executor{clients: byID, maxConcurrent: maxConcurrent}
}

// Apply pushes every non-empty diff and reports the outcome per device, per
// list, per entry. Entries applied before a later failure stay applied.
func (e *Executor) Apply(ctx context.Context, snapshot *domain.Snapshot, plan *domain.Plan) []domain.DeviceOutcome {
	diffsByDevice := make(map[domain.DeviceID][]domain.DeviceDiff)
	for _, diff := range plan.Diffs {
		diffsByDevice[diff.Device] = append(diffsByDevice[diff.Device], diff)
	}

	outcomes := make([]domain.DeviceOutcome, len(snapshot.Devices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	for i, dev := range snapshot.Devices {
		g.Go(func() error {
			outcomes[i] = e.applyDevice(gctx, snapshot, dev, diffsByDevice[dev])
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (e *Executor) applyDevice(ctx context.Context, snapshot *domain.Snapshot, dev domain.DeviceID, diffs []domain.DeviceDiff) domain.DeviceOutcome {
	outcome := domain.DeviceOutcome{Device: dev}

	// A device with no successful fetch at all was skipped this run: it
	// contributed nothing and receives nothing.
	if len(diffs) == 0 {
		outcome.Skipped = true
		for _, list := range domain.ListTypes {
			if err, failed := snapshot.FetchError(dev, list); failed {
				outcome.Lists = append(outcome.Lists, domain.ListOutcome{
					List:       list,
					FetchError: err.Error(),
				})
			}
		}
		log.Warn("Device skipped: collection error", "device", dev)
		return outcome
	}

	byList := make(map[domain.ListType]domain.DeviceDiff, len(diffs))
	for _, diff := range diffs {
		byList[diff.List] = diff
	}

	client := e.clients[dev]
	for _, list := range domain.ListTypes {
		if err, failed := snapshot.FetchError(dev, list); failed {
			outcome.Lists = append(outcome.Lists, domain.ListOutcome{
				List:       list,
				FetchError: err.Error(),
			})
			continue
		}
		diff, ok := byList[list]
		if !ok {
			continue
		}
		outcome.Lists = append(outcome.Lists, e.applyList(ctx, client, diff))
	}

	return outcome
}

func (e *Executor) applyList(ctx context.Context, client pihole.Client, diff domain.DeviceDiff) domain.ListOutcome {
	result := domain.ListOutcome{List: diff.List}

	for _, entry := range diff.ToAdd {
		status, err := client.AddEntry(ctx, diff.List, entry)
		if err != nil {
			result.Failed = append(result.Failed, domain.EntryFailure{
				Entry: entry,
				Error: err.Error(),
			})
			continue
		}
		switch status {
		case pihole.StatusAlreadyPresent:
			// The device gained the entry on its own between snapshot and
			// apply; an idempotent no-op, not an error.
			result.AlreadyPresent = append(result.AlreadyPresent, entry.Key())
		default:
			result.Added = append(result.Added, entry.Key())
			log.Info("Added entry", "device", diff.Device, "list", diff.List, "domain", entry.Key())
		}
	}

	if len(result.Failed) > 0 {
		var err error
		if len(result.Added) > 0 || len(result.AlreadyPresent) > 0 {
			err = &PartialApplyError{Device: diff.Device, List: diff.List, Failed: result.Failed}
		} else {
			err = &ApplyError{Device: diff.Device, List: diff.List, Err: errors.New(result.Failed[0].Error)}
		}
		log.Error("Apply finished with failures", "device", diff.Device, "list", diff.List,
			"added", len(result.Added), "failed", len(result.Failed), "error", err)
	}

	return result
}
