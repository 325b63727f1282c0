package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client pushes permission changes to the realtime collaboration hub so open
// connections can be re-checked without waiting for a reconnect. The hub is a
// pure consumer of access decisions; it never writes back.
type Client interface {
	UpdateUserPermission(ctx context.Context, resourceID uuid.UUID, userID uint64, role string) error
	RemoveResource(ctx context.Context, resourceID uuid.UUID) error
}

type HubClient struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func NewHubClient(baseURL, secret string) *HubClient {
	return &HubClient{
		baseURL: baseURL,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type PermissionRequest struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
}

func (c *HubClient) UpdateUserPermission(
	ctx context.Context,
	resourceID uuid.UUID,
	userID uint64,
	role string,
) error {

	url := fmt.Sprintf(
		"%s/internal/resources/%s/permission",
		c.baseURL,
		resourceID,
	)

	payload := PermissionRequest{
		UserID: userID,
		Role:   role,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPut,
		url,
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"hub permission update error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	return nil
}

func (c *HubClient) RemoveResource(ctx context.Context, resourceID uuid.UUID) error {
	url := fmt.Sprintf(
		"%s/internal/resources/%s",
		c.baseURL,
		resourceID,
	)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodDelete,
		url,
		nil,
	)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"hub resource delete error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	return nil
}
