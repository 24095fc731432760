package syncer

import (
	"holesync/internal/domain"
)

// Reconcile computes the target state and the per-device diffs that converge
// the fleet to it. It is pure in-memory computation: no suspension, no side
// effects, O(total entries) work.
//
// The target for each list type is the union of all successfully fetched
// device sets, deduplicated by normalized domain. When duplicates collide the
// kept entry is chosen by a documented policy: if exactly one of the two has
// a non-empty comment, the commented one wins (a human wrote that comment
// somewhere in the fleet and it should survive propagation); otherwise the
// first encountered wins, where "first" is inventory order then sorted domain
// order, so the choice is deterministic rather than map-iteration luck.
func Reconcile(snapshot *domain.Snapshot, policy Policy) *domain.Plan {
	plan := &domain.Plan{
		Target: make(domain.TargetState, len(domain.ListTypes)),
	}

	for _, list := range domain.ListTypes {
		plan.Target[list] = mergeList(snapshot, list)
	}

	for _, dev := range snapshot.Devices {
		for _, list := range domain.ListTypes {
			current, ok := snapshot.Entries(dev, list)
			if !ok {
				continue
			}
			diff := domain.DeviceDiff{
				Device: dev,
				List:   list,
				ToAdd:  missingFrom(plan.Target[list], current),
			}
			// ToRemove stays empty: the additive policy never deletes an
			// entry a human added on any device. The symmetric policy would
			// fill it from current − target.
			if policy == PolicySymmetric {
				diff.ToRemove = missingFrom(current, plan.Target[list])
			}
			plan.Diffs = append(plan.Diffs, diff)
		}
	}

	plan.Skipped = snapshot.FailedDevices()
	return plan
}

func mergeList(snapshot *domain.Snapshot, list domain.ListType) domain.EntrySet {
	target := make(domain.EntrySet)
	for _, dev := range snapshot.Devices {
		set, ok := snapshot.Entries(dev, list)
		if !ok {
			continue
		}
		for _, entry := range set.Sorted() {
			merge(target, entry)
		}
	}
	return target
}

// merge applies the dedup tie-break for one candidate entry.
func merge(target domain.EntrySet, entry domain.Entry) {
	key := entry.Key()
	if key == "" {
		return
	}
	existing, found := target[key]
	if !found {
		target[key] = entry
		return
	}
	if existing.Comment == "" && entry.Comment != "" {
		target[key] = entry
	}
}

// missingFrom returns the entries of want absent from have, sorted by
// normalized domain.
func missingFrom(want, have domain.EntrySet) []domain.Entry {
	var missing []domain.Entry
	for _, entry := range want.Sorted() {
		if !have.Contains(entry.Domain) {
			missing = append(missing, entry)
		}
	}
	return missing
}
