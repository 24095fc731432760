package domain

// TargetState is the merged state every device should converge to: for each
// list type, the union of all reachable devices' entries. Under the additive
// policy it is always a superset of every reachable snapshot, so a device
// that is down can never shrink it.
type TargetState map[ListType]EntrySet

// DeviceDiff is the change set that brings one device's list to the target.
// ToAdd is sorted by normalized domain. ToRemove is always empty under the
// additive policy and exists for the symmetric alternative.
type DeviceDiff struct {
	Device   DeviceID `json:"device"`
	List     ListType `json:"list"`
	ToAdd    []Entry  `json:"to_add"`
	ToRemove []Entry  `json:"to_remove,omitempty"`
}

// Empty reports whether applying the diff would touch the device at all.
func (d DeviceDiff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// Plan is the full output of reconciliation: the target state plus one diff
// per successfully snapshotted (device, list) pair. Devices that failed
// collection appear in Skipped and receive no diff.
type Plan struct {
	Target  TargetState
	Diffs   []DeviceDiff
	Skipped []DeviceID
}
