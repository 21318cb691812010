package google

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// NewHTTPClient builds an authenticated *http.Client from a service account
// JSON key file, limited to the given OAuth scopes. Use this when a Google
// API service should run with narrower scopes than the key's defaults.
func NewHTTPClient(ctx context.Context, credentialsFile string, scopes ...string) (*http.Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return conf.Client(ctx), nil
}

// ClientOption adapts a service account key file path into an
// option.ClientOption for Google API service constructors.
func ClientOption(credentialsFile string) option.ClientOption {
	return option.WithCredentialsFile(credentialsFile)
}
