package ownerdir

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
	"github.com/taskpilot/file-api/internal/utils/platformerrors"
)

// Client talks to the task/subtask record service over HTTP. The
// attachment subsystem only consumes assignment and ownership facts
// from it; record storage stays on the other side of this boundary.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("component", "owner-directory").Logger(),
	}
}

func (c *Client) GetAssignees(ctx context.Context, ownerType domain.OwnerType, ownerID string) ([]string, error) {
	var payload struct {
		Assignees []string `json:"assignees"`
	}
	url := fmt.Sprintf("%s/%ss/%s/assignees", c.baseURL, ownerType, ownerID)
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return nil, err
	}
	return payload.Assignees, nil
}

func (c *Client) GetOwnerCustomer(ctx context.Context, ownerType domain.OwnerType, ownerID string) (string, error) {
	var payload struct {
		CustomerID string `json:"customer_id"`
	}
	url := fmt.Sprintf("%s/%ss/%s/customer", c.baseURL, ownerType, ownerID)
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return "", err
	}
	return payload.CustomerID, nil
}

func (c *Client) ApplyUpdate(ctx context.Context, ownerType domain.OwnerType, ownerID string, payload json.RawMessage) error {
	url := fmt.Sprintf("%s/%ss/%s", c.baseURL, ownerType, ownerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.externalError(ctx, "owner update failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrOwnerNotFound
	}
	if resp.StatusCode >= 400 {
		return c.externalError(ctx, fmt.Sprintf("owner update returned %s", resp.Status), nil)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.externalError(ctx, "owner directory request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrOwnerNotFound
	}
	if resp.StatusCode >= 400 {
		return c.externalError(ctx, fmt.Sprintf("owner directory returned %s", resp.Status), nil)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) externalError(ctx context.Context, message string, err error) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeExternal,
		message,
		err,
		"8b7a6c5d-4e3f-4a2b-9c1d-0e9f8a7b6c5a",
	)
}
