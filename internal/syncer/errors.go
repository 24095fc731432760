package syncer

import (
	"fmt"

	"holesync/internal/domain"
)

// CollectionError marks a (device, list) fetch failure. The pair is excluded
// from the target-state union and from receiving a diff; it never aborts the
// run.
type CollectionError struct {
	Device domain.DeviceID
	List   domain.ListType
	Err    error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collect %s from %s: %v", e.List, e.Device, e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// ApplyError marks a write failure for a whole (device, list) batch, for
// example when the device rejected authentication before any entry was sent.
type ApplyError struct {
	Device domain.DeviceID
	List   domain.ListType
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s to %s: %v", e.List, e.Device, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// PartialApplyError records a batch where some entries were added and some
// failed. Entries already applied stay applied; there is no rollback.
type PartialApplyError struct {
	Device domain.DeviceID
	List   domain.ListType
	Failed []domain.EntryFailure
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("apply %s to %s: %d entries failed", e.List, e.Device, len(e.Failed))
}
