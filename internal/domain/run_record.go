package domain

import (
	"encoding/json"
	"time"
)

// RunRecord is the persisted form of a RunReport. The full report is kept as
// JSON; the scalar columns exist so history queries never have to decode it.
type RunRecord struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	StartedAt     time.Time `gorm:"index" json:"started_at"`
	DurationMs    int64     `json:"duration_ms"`
	Trigger       string    `gorm:"size:16" json:"trigger"`
	EntriesAdded  int       `json:"entries_added"`
	EntriesFailed int       `json:"entries_failed"`
	DevicesTotal  int       `json:"devices_total"`
	DevicesFailed int       `json:"devices_failed"`
	ReportJSON    string    `gorm:"type:text" json:"-"`

	Devices []DeviceRunRecord `gorm:"foreignKey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"devices"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

// DeviceRunRecord is one device's outcome within a persisted run.
type DeviceRunRecord struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID   uint64 `gorm:"index" json:"-"`
	Device  string `gorm:"size:128;index" json:"device"`
	Skipped bool   `json:"skipped"`
	Added   int    `json:"added"`
	Failed  int    `json:"failed"`
}

// NewRunRecord flattens a report into its storable form.
func NewRunRecord(report *RunReport) (*RunRecord, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}

	record := &RunRecord{
		StartedAt:     report.StartedAt,
		DurationMs:    report.Duration.Milliseconds(),
		Trigger:       report.Trigger,
		EntriesAdded:  report.TotalAdded(),
		EntriesFailed: report.TotalFailed(),
		DevicesTotal:  len(report.Devices),
		DevicesFailed: report.SkippedDevices(),
		ReportJSON:    string(raw),
	}

	for _, dev := range report.Devices {
		added, failed := 0, 0
		for _, list := range dev.Lists {
			added += len(list.Added)
			failed += len(list.Failed)
		}
		record.Devices = append(record.Devices, DeviceRunRecord{
			Device:  string(dev.Device),
			Skipped: dev.Skipped,
			Added:   added,
			Failed:  failed,
		})
	}

	return record, nil
}

// Report decodes the embedded report JSON.
func (r *RunRecord) Report() (*RunReport, error) {
	var report RunReport
	if err := json.Unmarshal([]byte(r.ReportJSON), &report); err != nil {
		return nil, err
	}
	return &report, nil
}
