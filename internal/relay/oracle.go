package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MembershipOracle decides whether the holder of a token may join a board
// room. An error means the answer could not be determined, which callers
// report as a failed lookup rather than a denial.
type MembershipOracle interface {
	CanJoin(ctx context.Context, token, boardID string) (bool, error)
}

// HTTPOracle asks the API tier by fetching the caller's visible boards with
// their own token. The board list endpoint already applies the full
// visibility policy, so presence in the response is the membership answer.
type HTTPOracle struct {
	APIURL string
	Client *http.Client
}

func NewHTTPOracle(apiURL string) *HTTPOracle {
	return &HTTPOracle{
		APIURL: apiURL,
		Client: &http.Client{Timeout: 3 * time.Second},
	}
}

func (o *HTTPOracle) CanJoin(ctx context.Context, token, boardID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.APIURL+"/api/v1/boards", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := o.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("board lookup: status %d", resp.StatusCode)
	}

	var boards []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&boards); err != nil {
		return false, fmt.Errorf("board lookup: %w", err)
	}
	for _, b := range boards {
		if b.ID == boardID {
			return true, nil
		}
	}
	return false, nil
}
