// ABOUTME: HTTP client implementation of the identity Directory interface
// ABOUTME: Fetches user profile summaries from the external identity service

package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPDirectory resolves user summaries from an external identity service
// over HTTP: GET {baseURL}/users/{id} returning a UserSummary JSON body.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDirectory creates a directory client for the given base URL.
func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetUserSummary fetches the profile summary for a user ID.
func (d *HTTPDirectory) GetUserSummary(ctx context.Context, userID string) (*UserSummary, error) {
	endpoint := fmt.Sprintf("%s/users/%s", d.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity lookup for %q: status %d", userID, resp.StatusCode)
	}

	var summary UserSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decoding identity response: %w", err)
	}
	return &summary, nil
}
