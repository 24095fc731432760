package config

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultSyncInterval = time.Hour

// Timer expresses an interval in calendar-ish units so the settings file
// stays readable.
type Timer struct {
	Days    uint32 `json:"days"`
	Hours   uint32 `json:"hours"`
	Minutes uint32 `json:"minutes"`
	Seconds uint32 `json:"seconds"`
}

var (
	syncInterval          atomic.Value
	syncIntervalListeners []chan time.Duration
	listenersMu           sync.Mutex
)

func init() {
	syncInterval.Store(defaultSyncInterval)
}

// SetSyncInterval recomputes the daemon sync interval from the current
// configuration and notifies listeners when it changed.
func SetSyncInterval() {
	cfg := GetConfig()
	setSyncInterval(calculateSyncInterval(cfg))
}

// CalculateBetweenTime converts a Timer into a duration, enforcing a one
// second floor.
func CalculateBetweenTime(timer Timer) time.Duration {
	intervalMs := calculateTimerMilliseconds(timer)

	// Enforce minimum interval (e.g., 1 second)
	minInterval := uint64(1000)
	if intervalMs < minInterval {
		intervalMs = minInterval
	}

	return time.Duration(intervalMs) * time.Millisecond
}

func calculateTimerMilliseconds(timer Timer) uint64 {
	return uint64(timer.Days)*24*60*60*1000 +
		uint64(timer.Hours)*60*60*1000 +
		uint64(timer.Minutes)*60*1000 +
		uint64(timer.Seconds)*1000
}

func calculateSyncInterval(cfg Config) time.Duration {
	timer := cfg.Sync.SyncTimer
	if timer.Days == 0 && timer.Hours == 0 && timer.Minutes == 0 && timer.Seconds == 0 {
		return defaultSyncInterval
	}
	return CalculateBetweenTime(timer)
}

func GetSyncInterval() time.Duration {
	return syncInterval.Load().(time.Duration)
}

// SyncIntervalUpdates returns a channel receiving the current interval
// immediately and every later change, so the daemon loop can reschedule
// without polling.
func SyncIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	syncIntervalListeners = append(syncIntervalListeners, ch)
	listenersMu.Unlock()

	ch <- GetSyncInterval()
	return ch
}

func setSyncInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	current := GetSyncInterval()
	if current == interval {
		return
	}

	syncInterval.Store(interval)

	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, ch := range syncIntervalListeners {
		select {
		case ch <- interval:
		default:
		}
	}
}
