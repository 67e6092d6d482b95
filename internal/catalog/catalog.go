// Package catalog imports hosted decks from a remote manifest. The manifest
// is a JSON array of {id, name, category, url}; each url points to a CSV
// card table.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/pocketdeck/internal/domain"
	"github.com/conorfennell/pocketdeck/internal/parser"
)

// ErrStatus is returned when the catalog answers with a non-200 status.
var ErrStatus = errors.New("catalog: unexpected HTTP status")

// HostedDeck is one manifest entry.
type HostedDeck struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Category string `json:"category,omitempty"`
	URL      string `json:"url" validate:"required,url"`
}

// Client downloads the manifest and the card tables it points to.
type Client struct {
	manifestURL string
	http        *http.Client
	validate    *validator.Validate
}

// NewClient creates a client for the manifest at manifestURL. A nil
// httpClient uses a client with a 30 second timeout.
func NewClient(manifestURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		manifestURL: manifestURL,
		http:        httpClient,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// FetchManifest downloads and decodes the manifest. Entries that fail
// validation are dropped with a warning.
func (c *Client) FetchManifest(ctx context.Context) ([]HostedDeck, error) {
	body, err := c.get(ctx, c.manifestURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var entries []HostedDeck
	if err := json.NewDecoder(body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	valid := entries[:0]
	for _, e := range entries {
		if err := c.validate.Struct(e); err != nil {
			slog.Warn("Skipping invalid manifest entry", "id", e.ID, "name", e.Name, "error", err)
			continue
		}
		valid = append(valid, e)
	}
	return valid, nil
}

// FetchCards downloads and parses one card table.
func (c *Client) FetchCards(ctx context.Context, url string) ([]domain.Card, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	cards, err := parser.ParseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("parse card table %s: %w", url, err)
	}
	return cards, nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %w: %d", url, ErrStatus, resp.StatusCode)
	}
	return resp.Body, nil
}
