package pihole

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"holesync/internal/config"
	"holesync/internal/domain"
)

const maxResponseBytes = 4 << 20 // safety cap for appliance responses

// V5Client speaks the classic /admin/api.php interface. Fetching uses
// list=white or list=black; the black response carries the exact and regex
// blacklists in one payload and only the exact list (index 0) is read.
// Adding uses list=white|black&add=<domain>. The API has no comment support.
type V5Client struct {
	dev   config.DeviceConfig
	httpc *http.Client
}

func (c *V5Client) Device() domain.DeviceID {
	return c.dev.ID()
}

func (c *V5Client) FetchEntries(ctx context.Context, list domain.ListType) ([]domain.Entry, error) {
	query := url.Values{}
	query.Set("list", v5ListArg(list))

	body, err := c.call(ctx, query)
	if err != nil {
		return nil, err
	}

	// The payload is an array of lists: index 0 is the requested list for
	// white, and the exact blacklist for black (index 1 is the regex list,
	// which is out of scope).
	var payload [][]string
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	entries := make([]domain.Entry, 0, len(payload[0]))
	for _, dom := range payload[0] {
		entries = append(entries, domain.Entry{Domain: dom})
	}
	return entries, nil
}

func (c *V5Client) AddEntry(ctx context.Context, list domain.ListType, entry domain.Entry) (AddStatus, error) {
	query := url.Values{}
	query.Set("list", v5ListArg(list))
	query.Set("add", entry.Domain)

	body, err := c.call(ctx, query)
	if err != nil {
		return StatusAdded, err
	}

	// add.php answers with prose; an entry already on the list reports
	// "already in whitelist/blacklist" with a 200.
	if strings.Contains(strings.ToLower(string(body)), "already") {
		return StatusAlreadyPresent, nil
	}
	return StatusAdded, nil
}

func (c *V5Client) call(ctx context.Context, query url.Values) ([]byte, error) {
	query.Set("auth", c.dev.Password)

	endpoint := url.URL{
		Scheme:   c.dev.Scheme,
		Host:     c.dev.Address,
		Path:     "/admin/api.php",
		RawQuery: query.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func v5ListArg(list domain.ListType) string {
	if list == domain.Whitelist {
		return "white"
	}
	return "black"
}
