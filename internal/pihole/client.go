// Package pihole implements the management capability of a single
// DNS-filtering appliance: fetching the current entries of a list and adding
// missing ones. Two wire protocols are supported, the classic v5 PHP API
// (/admin/api.php) and the v6 REST API. Removal is intentionally absent from
// the capability; the sync policy never deletes entries.
package pihole

import (
	"context"
	"fmt"
	"time"

	"holesync/internal/config"
	"holesync/internal/domain"
)

// AddStatus distinguishes a fresh add from an idempotent no-op. A device may
// gain an entry on its own between snapshot and apply, so "already present"
// is a success, not an error.
type AddStatus int

const (
	StatusAdded AddStatus = iota
	StatusAlreadyPresent
)

// Client is the capability consumed by the collector and executor.
type Client interface {
	Device() domain.DeviceID
	FetchEntries(ctx context.Context, list domain.ListType) ([]domain.Entry, error)
	AddEntry(ctx context.Context, list domain.ListType, entry domain.Entry) (AddStatus, error)
}

// New builds the client matching the device's configured API version.
// fallbackTimeout applies when the device has no timeout override.
func New(dev config.DeviceConfig, fallbackTimeout time.Duration) (Client, error) {
	httpc, err := newHTTPClient(dev, fallbackTimeout)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", dev.Name, err)
	}

	switch dev.APIVersion {
	case 5:
		return &V5Client{dev: dev, httpc: httpc}, nil
	case 6:
		return &V6Client{dev: dev, httpc: httpc}, nil
	default:
		return nil, fmt.Errorf("device %s: unsupported api_version %d", dev.Name, dev.APIVersion)
	}
}
