package domain

import "time"

// EntryFailure is a single entry that could not be added to a device.
type EntryFailure struct {
	Entry Entry  `json:"entry"`
	Error string `json:"error"`
}

// ListOutcome is the per-list result of applying a diff to one device.
// Added and AlreadyPresent hold normalized domains; a partial batch keeps
// its per-entry failures instead of collapsing into one flag.
type ListOutcome struct {
	List           ListType       `json:"list"`
	Added          []string       `json:"added,omitempty"`
	AlreadyPresent []string       `json:"already_present,omitempty"`
	Failed         []EntryFailure `json:"failed,omitempty"`
	FetchError     string         `json:"fetch_error,omitempty"`
}

// DeviceOutcome summarizes one device's run: either it was skipped because
// collection failed, or it carries one ListOutcome per list type.
type DeviceOutcome struct {
	Device  DeviceID      `json:"device"`
	Skipped bool          `json:"skipped"`
	Lists   []ListOutcome `json:"lists,omitempty"`
	Probes  []ProbeResult `json:"probes,omitempty"`
}

// ProbeResult is one post-sync DNS verification lookup against a device.
type ProbeResult struct {
	Domain    string `json:"domain"`
	Sinkholed bool   `json:"sinkholed"`
	Error     string `json:"error,omitempty"`
}

// RunReport is the complete outcome of one reconciliation run. The run always
// completes and produces a report; individual device failures are visible
// here, never as a process-level failure.
type RunReport struct {
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Trigger   string          `json:"trigger"`
	Devices   []DeviceOutcome `json:"devices"`
}

// TotalAdded counts entries added across all devices and lists.
func (r *RunReport) TotalAdded() int {
	total := 0
	for _, dev := range r.Devices {
		for _, list := range dev.Lists {
			total += len(list.Added)
		}
	}
	return total
}

// TotalFailed counts per-entry apply failures across the run.
func (r *RunReport) TotalFailed() int {
	total := 0
	for _, dev := range r.Devices {
		for _, list := range dev.Lists {
			total += len(list.Failed)
		}
	}
	return total
}

// SkippedDevices counts devices excluded by collection failures.
func (r *RunReport) SkippedDevices() int {
	skipped := 0
	for _, dev := range r.Devices {
		if dev.Skipped {
			skipped++
		}
	}
	return skipped
}

// Converged reports whether every device was reachable and nothing failed.
func (r *RunReport) Converged() bool {
	return r.SkippedDevices() == 0 && r.TotalFailed() == 0
}
