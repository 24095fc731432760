package config

import (
	"testing"
	"time"
)

func TestCalculateBetweenTime(t *testing.T) {
	t.Run("enforces minimum interval", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{}); got != time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1s", got)
		}
	})

	t.Run("returns configured duration", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{Minutes: 1, Seconds: 30}); got != 90*time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1m30s", got)
		}
	})

	t.Run("handles day and hour units", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{Days: 1, Hours: 2}); got != 26*time.Hour {
			t.Fatalf("CalculateBetweenTime returned %s, want 26h", got)
		}
	})
}

func TestSetSyncInterval(t *testing.T) {
	origCfg := GetConfig()
	origInterval := GetSyncInterval()
	origListeners := syncIntervalListeners

	t.Cleanup(func() {
		configValue.Store(origCfg)
		syncInterval.Store(origInterval)
		listenersMu.Lock()
		syncIntervalListeners = origListeners
		listenersMu.Unlock()
	})

	testCfg := Config{}
	testCfg.Sync.SyncTimer = Timer{Minutes: 5}
	configValue.Store(testCfg)

	updates := SyncIntervalUpdates()
	<-updates // initial value

	SetSyncInterval()

	if got := GetSyncInterval(); got != 5*time.Minute {
		t.Fatalf("GetSyncInterval returned %s, want 5m", got)
	}

	select {
	case got := <-updates:
		if got != 5*time.Minute {
			t.Fatalf("listener received %s, want 5m", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("listener was not notified of the interval change")
	}
}

func TestZeroTimerFallsBackToDefault(t *testing.T) {
	cfg := Config{}
	if got := calculateSyncInterval(cfg); got != defaultSyncInterval {
		t.Fatalf("calculateSyncInterval returned %s, want the default", got)
	}
}
