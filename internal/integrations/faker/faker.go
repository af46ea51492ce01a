package faker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/config"
	"github.com/sirupsen/logrus"
)

const maxResponseBytes = 1 << 20

// Client fetches random person names from a fakerapi-compatible endpoint
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new name source client. Every request is bounded by
// cfg.NameSourceTimeout.
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.NameSourceURL,
		client: &http.Client{
			Timeout: cfg.NameSourceTimeout,
		},
		log: log,
	}
}

type personsResponse struct {
	Data []struct {
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
	} `json:"data"`
}

// FullName returns "firstname lastname" of one generated person. Any failure
// is reported as apperrors.ErrDependencyUnavailable.
func (c *Client) FullName(ctx context.Context) (string, error) {
	body, err := c.sendRequest(ctx)
	if err != nil {
		c.log.Errorf("Name source request failed: %v", err)
		return "", apperrors.Wrap(apperrors.KindDependencyUnavailable, "name source unavailable", err)
	}

	name, err := parseFullName(body)
	if err != nil {
		c.log.Errorf("Name source returned unusable data: %v", err)
		return "", apperrors.Wrap(apperrors.KindDependencyUnavailable, "name source unavailable", err)
	}
	return name, nil
}

// sendRequest performs the GET request against the name source
func (c *Client) sendRequest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("Name source response: %d bytes", len(body))
	return body, nil
}

// parseFullName extracts the first person's name from the response body
func parseFullName(body []byte) (string, error) {
	var parsed personsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return "", fmt.Errorf("no person data in response")
	}
	person := parsed.Data[0]
	name := strings.TrimSpace(strings.TrimSpace(person.Firstname) + " " + strings.TrimSpace(person.Lastname))
	if name == "" {
		return "", fmt.Errorf("person has no name")
	}
	return name, nil
}
