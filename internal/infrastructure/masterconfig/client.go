package masterconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
)

// Client fetches the routing master config over HTTP.
type Client struct {
	endpoint string
	base     domain.MasterConfig
	http     *http.Client
}

var _ ports.MasterConfigSource = (*Client)(nil)

// NewClient creates a reusable HTTP client. Fields missing from the remote
// document keep their value from base.
func NewClient(endpoint string, base domain.MasterConfig, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		base:     base.Clone(),
		http:     &http.Client{Timeout: timeout},
	}
}

// document is the wire shape of the master config endpoint.
type document struct {
	RootDomain      string            `json:"rootDomain"`
	AcceptedDomains []string          `json:"acceptedDomains"`
	ExternalDomains []string          `json:"externalDomains"`
	DevModeSuffix   *string           `json:"devModeSuffix"`
	ConsensusPaths  []string          `json:"consensusPaths"`
	AppHeaders      map[string]string `json:"appHeaders"`
	MemberAppScheme string            `json:"memberAppScheme"`
}

// Fetch downloads and validates one snapshot.
func (c *Client) Fetch(ctx context.Context) (domain.MasterConfig, error) {
	if c.endpoint == "" {
		return c.base.Clone(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return domain.MasterConfig{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.MasterConfig{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.MasterConfig{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return domain.MasterConfig{}, fmt.Errorf("decode response: %w", err)
	}

	return c.apply(doc), nil
}

func (c *Client) apply(doc document) domain.MasterConfig {
	cfg := c.base.Clone()
	if v := strings.TrimSpace(doc.RootDomain); v != "" {
		cfg.RootDomain = v
	}
	if doc.AcceptedDomains != nil {
		cfg.AcceptedDomains = cleanList(doc.AcceptedDomains)
	}
	if doc.ExternalDomains != nil {
		cfg.ExternalDomains = cleanList(doc.ExternalDomains)
	}
	if doc.DevModeSuffix != nil {
		cfg.EnvironmentSuffix = strings.TrimSpace(*doc.DevModeSuffix)
	}
	if doc.ConsensusPaths != nil {
		cfg.ConsensusPaths = cleanList(doc.ConsensusPaths)
	}
	if len(doc.AppHeaders) > 0 {
		cfg.AppHeaders = doc.AppHeaders
	}
	if v := strings.TrimSpace(doc.MemberAppScheme); v != "" {
		cfg.MemberAppScheme = v
	}
	return cfg
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
