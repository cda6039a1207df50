package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Config describes the REST endpoint of the network operator. Requests are
// authenticated with OAuth2 client credentials when ClientID is set.
type Config struct {
	BaseURL        string   `json:"base_url"`
	ClientID       string   `json:"client_id"`
	ClientSecret   string   `json:"client_secret"`
	TokenURL       string   `json:"token_url"`
	Scopes         []string `json:"scopes"`
	TimeoutSeconds float64  `json:"timeout_seconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("rest: base_url is required")
	}
	if c.ClientID != "" && c.TokenURL == "" {
		return fmt.Errorf("rest: token_url is required with client_id")
	}
	return nil
}

func (c Config) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}

// httpClient returns the client used for every call. Tokens are fetched and
// refreshed by the oauth2 transport.
func (c Config) httpClient(ctx context.Context) *http.Client {
	timeout := time.Duration(c.TimeoutSeconds * float64(time.Second))
	if c.ClientID == "" {
		return &http.Client{Timeout: timeout}
	}
	cc := c.toOauth2Config()
	cli := cc.Client(ctx)
	cli.Timeout = timeout
	return cli
}
