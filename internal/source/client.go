package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/awaistahir/energyscore/internal/score"
)

// Client reads entity states from a Home Assistant compatible REST API.
// The core never blocks on it directly; the monitor resolves both readings
// before handing them to the engine.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a client for the given API base URL. The token is sent
// as a bearer token when non-empty.
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

// entityState represents the API response for a single entity.
type entityState struct {
	EntityID   string `json:"entity_id"`
	State      string `json:"state"`
	Attributes struct {
		StateClass string `json:"state_class"`
		LastReset  string `json:"last_reset"`
	} `json:"attributes"`
}

// Reading fetches the current state of one entity and maps it onto the
// core's reading contract, including the declared accounting semantics and
// the reset marker when the entity carries them.
func (c *Client) Reading(ctx context.Context, entityID string) (score.Reading, error) {
	endpoint := fmt.Sprintf("%s/api/states/%s", c.baseURL, entityID)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return score.Reading{}, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return score.Reading{}, fmt.Errorf("fetching %s: %w", entityID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return score.Reading{}, fmt.Errorf("entity not found: %s", entityID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return score.Reading{}, fmt.Errorf("API returned status %d for %s: %s", resp.StatusCode, entityID, string(body))
	}

	var state entityState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return score.Reading{}, fmt.Errorf("decoding state of %s: %w", entityID, err)
	}

	reading := score.Reading{
		State:     state.State,
		Semantics: score.Semantics(state.Attributes.StateClass),
	}
	if state.Attributes.LastReset != "" {
		if t, err := time.Parse(time.RFC3339, state.Attributes.LastReset); err == nil {
			reading.LastReset = &t
		}
	}

	return reading, nil
}
