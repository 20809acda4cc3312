package worldbank

import (
	"net/http"
	"net/url"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=worldbank_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option is a configuration option for the provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient injects the HTTP client, used by tests to mock transport.
func WithHTTPClient(client HTTPClient) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithAPIKey adds a credential sent as a query parameter. The public API
// works without one; mirrors accepting tokens use it.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		if key != "" {
			p.query.Set("token", key)
		}
	}
}

// WithPerPage overrides the page size requested from the API.
func WithPerPage(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.perPage = n
		}
	}
}

func defaultQuery() url.Values {
	q := url.Values{}
	q.Set("format", "json")
	return q
}
