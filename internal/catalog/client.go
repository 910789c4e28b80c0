// Package catalog looks up products by UPC in an external catalog API.
// Requests are authenticated with an HMAC-SHA1 signature of the UPC.
package catalog

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a catalog lookup.
const DefaultTimeout = 15 * time.Second

// Config holds the catalog API credentials and endpoint.
type Config struct {
	BaseURL    string `yaml:"base_url"`
	AppKey     string `yaml:"app_key"`
	AuthKey    string `yaml:"auth_key"`
	FieldNames string `yaml:"field_names"`
	Timeout    time.Duration
}

// Client queries the catalog API.
type Client struct {
	config Config
	http   *http.Client
	logger zerolog.Logger
}

// NewClient validates the config and creates a client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog base_url is required")
	}
	if cfg.AppKey == "" {
		return nil, fmt.Errorf("catalog app_key is required")
	}
	if cfg.AuthKey == "" {
		return nil, fmt.Errorf("catalog auth_key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "catalog").Logger(),
	}, nil
}

type lookupResponse struct {
	// Entries arrives as a number or a numeric string depending on the
	// upstream API version.
	Entries  any              `json:"entries"`
	Products []map[string]any `json:"products"`
}

func entryCount(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("invalid entries count %v", v)
}

// Lookup returns the first catalog entry for a UPC, or nil when the catalog
// has no entry for it.
func (c *Client) Lookup(ctx context.Context, upcCode string) (map[string]any, error) {
	params := url.Values{}
	params.Set("upc_code", upcCode)
	params.Set("upcCode", upcCode)
	params.Set("app_key", c.config.AppKey)
	params.Set("signature", c.Sign(upcCode))
	params.Set("language", "en")
	params.Set("field_names", c.config.FieldNames)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	c.logger.Debug().Str("upc", upcCode).Msg("Querying catalog API")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, string(body))
	}

	var result lookupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	entries, err := entryCount(result.Entries)
	if err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	if entries == 0 || len(result.Products) == 0 {
		c.logger.Debug().Str("upc", upcCode).Msg("No catalog entry")
		return nil, nil
	}
	return result.Products[0], nil
}

// Sign computes the base64-encoded HMAC-SHA1 of the value with the auth key.
func (c *Client) Sign(value string) string {
	mac := hmac.New(sha1.New, []byte(c.config.AuthKey))
	mac.Write([]byte(value))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
