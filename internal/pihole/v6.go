package pihole

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"holesync/internal/config"
	"holesync/internal/domain"
)

// V6Client speaks the REST API introduced with Pi-hole v6: password auth
// yielding a session id, and /api/domains/{allow|deny}/exact for the lists.
// Unlike v5 the add call carries the entry comment.
type V6Client struct {
	dev   config.DeviceConfig
	httpc *http.Client

	mu  sync.Mutex
	sid string
}

type v6Session struct {
	Session struct {
		Valid bool   `json:"valid"`
		SID   string `json:"sid"`
	} `json:"session"`
}

type v6Domain struct {
	Domain  string `json:"domain"`
	Comment string `json:"comment"`
}

type v6DomainList struct {
	Domains []v6Domain `json:"domains"`
}

func (c *V6Client) Device() domain.DeviceID {
	return c.dev.ID()
}

func (c *V6Client) FetchEntries(ctx context.Context, list domain.ListType) ([]domain.Entry, error) {
	resp, body, err := c.do(ctx, http.MethodGet, c.listPath(list), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload v6DomainList
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode domain list: %w", err)
	}

	entries := make([]domain.Entry, 0, len(payload.Domains))
	for _, d := range payload.Domains {
		entries = append(entries, domain.Entry{Domain: d.Domain, Comment: d.Comment})
	}
	return entries, nil
}

func (c *V6Client) AddEntry(ctx context.Context, list domain.ListType, entry domain.Entry) (AddStatus, error) {
	payload, err := json.Marshal(v6Domain{Domain: entry.Domain, Comment: entry.Comment})
	if err != nil {
		return StatusAdded, fmt.Errorf("encode domain: %w", err)
	}

	resp, body, err := c.do(ctx, http.MethodPost, c.listPath(list), payload)
	if err != nil {
		return StatusAdded, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return StatusAdded, nil
	case resp.StatusCode == http.StatusBadRequest && isAlreadyPresent(body):
		return StatusAlreadyPresent, nil
	default:
		return StatusAdded, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// isAlreadyPresent recognizes the duplicate-entry rejection, which surfaces
// as a uniqueness violation from the appliance's database.
func isAlreadyPresent(body []byte) bool {
	lowered := strings.ToLower(string(body))
	return strings.Contains(lowered, "unique") || strings.Contains(lowered, "already")
}

func (c *V6Client) listPath(list domain.ListType) string {
	if list == domain.Whitelist {
		return "/api/domains/allow/exact"
	}
	return "/api/domains/deny/exact"
}

// do performs an authenticated request, logging in on first use and once more
// when the session expired mid-run.
func (c *V6Client) do(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	sid, err := c.session(ctx, false)
	if err != nil {
		return nil, nil, err
	}

	resp, body, err := c.request(ctx, method, path, payload, sid)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		sid, err = c.session(ctx, true)
		if err != nil {
			return nil, nil, err
		}
		resp, body, err = c.request(ctx, method, path, payload, sid)
		if err != nil {
			return nil, nil, err
		}
	}

	return resp, body, nil
}

func (c *V6Client) request(ctx context.Context, method, path string, payload []byte, sid string) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.Header.Set("X-FTL-SID", sid)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, body, nil
}

func (c *V6Client) session(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sid != "" && !force {
		return c.sid, nil
	}

	payload, err := json.Marshal(map[string]string{"password": c.dev.Password})
	if err != nil {
		return "", fmt.Errorf("encode auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/auth"), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("authentication rejected with status %d", resp.StatusCode)
	}

	var session v6Session
	if err := json.Unmarshal(body, &session); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if !session.Session.Valid || session.Session.SID == "" {
		return "", fmt.Errorf("authentication failed for device %s", c.dev.Name)
	}

	c.sid = session.Session.SID
	return c.sid, nil
}

func (c *V6Client) endpoint(path string) string {
	u := url.URL{
		Scheme: c.dev.Scheme,
		Host:   c.dev.Address,
		Path:   path,
	}
	return u.String()
}
