package syncer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"holesync/internal/config"
	"holesync/internal/domain"
	"holesync/internal/history"
	"holesync/internal/metrics"
	"holesync/internal/pihole"
	"holesync/internal/verify"
)

// Service owns one fleet: the device clients built from the inventory and
// the machinery of a run (collect, reconcile, apply, verify, record).
type Service struct {
	devices []config.DeviceConfig
	clients []pihole.Client
	policy  Policy
	store   *history.Store // nil when history is disabled

	lastReport atomic.Pointer[domain.RunReport]
	runGroup   singleflight.Group
}

// NewService builds clients for every inventory device. Configuration
// problems here are the one fatal error class of the program.
func NewService(devices []config.DeviceConfig, store *history.Store) (*Service, error) {
	cfg := config.GetConfig()

	policy := PolicyAdditive
	if cfg.Sync.Policy != "" {
		var err error
		policy, err = ParsePolicy(cfg.Sync.Policy)
		if err != nil {
			return nil, fmt.Errorf("sync policy: %w", err)
		}
	}

	fallbackTimeout := time.Duration(cfg.Sync.DeviceTimeout) * time.Millisecond
	clients := make([]pihole.Client, 0, len(devices))
	for _, dev := range devices {
		client, err := pihole.New(dev, fallbackTimeout)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	return &Service{
		devices: devices,
		clients: clients,
		policy:  policy,
		store:   store,
	}, nil
}

// Run performs one full reconciliation. Concurrent callers (the scheduler
// ticking while an operator hits the sync endpoint) collapse into a single
// run and share its report. The run always completes with a report; device
// failures live inside it, never in the returned error.
func (s *Service) Run(ctx context.Context, trigger string) (*domain.RunReport, error) {
	result, err, _ := s.runGroup.Do("run", func() (interface{}, error) {
		return s.run(ctx, trigger), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.RunReport), nil
}

func (s *Service) run(ctx context.Context, trigger string) *domain.RunReport {
	start := time.Now()
	cfg := config.GetConfig()

	log.Info("Sync run starting", "trigger", trigger, "devices", len(s.clients))

	snapshot := NewCollector(s.clients, cfg.Sync.MaxConcurrentDevices).Collect(ctx)
	plan := Reconcile(snapshot, s.policy)
	outcomes := NewExecutor(s.clients, cfg.Sync.MaxConcurrentDevices).Apply(ctx, snapshot, plan)

	report := &domain.RunReport{
		StartedAt: start,
		Trigger:   trigger,
		Devices:   outcomes,
	}

	if cfg.Verify.Enabled {
		s.probeDevices(ctx, cfg, plan, report)
	}

	report.Duration = time.Since(start)

	metrics.ObserveRun(report)
	s.lastReport.Store(report)
	s.persist(ctx, report)

	log.Info("Sync run completed",
		"trigger", trigger,
		"added", report.TotalAdded(),
		"failed", report.TotalFailed(),
		"skipped_devices", report.SkippedDevices(),
		"duration", report.Duration,
	)

	return report
}

// probeDevices samples the merged blacklist and asks each reachable device,
// over DNS, whether it really sinkholes those domains.
func (s *Service) probeDevices(ctx context.Context, cfg config.Config, plan *domain.Plan, report *domain.RunReport) {
	sample := sampleDomains(plan.Target[domain.Blacklist], cfg.Verify.SampleSize)
	if len(sample) == 0 {
		return
	}

	prober := verify.NewProber(time.Duration(cfg.Verify.Timeout) * time.Millisecond)
	for i := range report.Devices {
		if report.Devices[i].Skipped {
			continue
		}
		dev, ok := s.deviceConfig(report.Devices[i].Device)
		if !ok {
			continue
		}
		report.Devices[i].Probes = prober.Probe(ctx, dev, sample)
	}
}

// sampleDomains takes the first n sorted domains so repeated runs probe the
// same names.
func sampleDomains(set domain.EntrySet, n int) []string {
	entries := set.Sorted()
	if len(entries) > n {
		entries = entries[:n]
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Key())
	}
	return names
}

func (s *Service) deviceConfig(id domain.DeviceID) (config.DeviceConfig, bool) {
	for _, dev := range s.devices {
		if dev.ID() == id {
			return dev, true
		}
	}
	return config.DeviceConfig{}, false
}

func (s *Service) persist(ctx context.Context, report *domain.RunReport) {
	if s.store == nil {
		return
	}
	if _, err := s.store.SaveRun(ctx, report); err != nil {
		log.Warn("Failed to record run history", "error", err)
	}
}

// LastReport returns the most recent run's report, or nil before the first
// run finishes.
func (s *Service) LastReport() *domain.RunReport {
	return s.lastReport.Load()
}

// History exposes the run-history store to the HTTP layer; nil when history
// is disabled.
func (s *Service) History() *history.Store {
	return s.store
}
