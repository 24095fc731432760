package domain

import "testing"

func sampleReport() *RunReport {
	return &RunReport{
		Trigger: "manual",
		Devices: []DeviceOutcome{
			{
				Device: "pihole-a",
				Lists: []ListOutcome{
					{List: Whitelist, Added: []string{"a.example.com", "b.example.com"}},
					{List: Blacklist, AlreadyPresent: []string{"ads.example.com"}},
				},
			},
			{
				Device:  "pihole-b",
				Skipped: true,
				Lists: []ListOutcome{
					{List: Whitelist, FetchError: "connection refused"},
					{List: Blacklist, FetchError: "connection refused"},
				},
			},
			{
				Device: "pihole-c",
				Lists: []ListOutcome{
					{List: Blacklist, Failed: []EntryFailure{
						{Entry: Entry{Domain: "bad.example.com"}, Error: "timeout"},
					}},
				},
			},
		},
	}
}

func TestRunReportTotals(t *testing.T) {
	report := sampleReport()

	if got := report.TotalAdded(); got != 2 {
		t.Fatalf("TotalAdded = %d, want 2", got)
	}
	if got := report.TotalFailed(); got != 1 {
		t.Fatalf("TotalFailed = %d, want 1", got)
	}
	if got := report.SkippedDevices(); got != 1 {
		t.Fatalf("SkippedDevices = %d, want 1", got)
	}
	if report.Converged() {
		t.Fatalf("Converged should be false with a skipped device and a failed entry")
	}
}

func TestRunReportConverged(t *testing.T) {
	report := &RunReport{
		Devices: []DeviceOutcome{
			{Device: "pihole-a", Lists: []ListOutcome{{List: Whitelist, Added: []string{"a.example.com"}}}},
		},
	}
	if !report.Converged() {
		t.Fatalf("Converged should be true when nothing was skipped and nothing failed")
	}
}

func TestNewRunRecordFlattensReport(t *testing.T) {
	record, err := NewRunRecord(sampleReport())
	if err != nil {
		t.Fatalf("NewRunRecord: %v", err)
	}

	if record.EntriesAdded != 2 || record.EntriesFailed != 1 {
		t.Fatalf("record totals = (%d added, %d failed), want (2, 1)", record.EntriesAdded, record.EntriesFailed)
	}
	if record.DevicesTotal != 3 || record.DevicesFailed != 1 {
		t.Fatalf("record devices = (%d total, %d failed), want (3, 1)", record.DevicesTotal, record.DevicesFailed)
	}
	if len(record.Devices) != 3 {
		t.Fatalf("device rows = %d, want 3", len(record.Devices))
	}
	if !record.Devices[1].Skipped {
		t.Fatalf("second device row should carry the skipped flag")
	}

	decoded, err := record.Report()
	if err != nil {
		t.Fatalf("decode embedded report: %v", err)
	}
	if decoded.TotalAdded() != 2 {
		t.Fatalf("decoded TotalAdded = %d, want 2", decoded.TotalAdded())
	}
}
