package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
)

// maxRedirects bounds manual redirect following for one request.
const maxRedirects = 10

// Client is a stealth HTTP client using tls-client. Redirects are never
// followed by the underlying transport; the client follows them itself
// so the browser-mimicking headers and accumulated cookies propagate
// across every hop.
type Client struct {
	tlsClient tls_client.HttpClient
	userAgent string
	retrier   *Retrier
}

// ClientOptions contains options for creating a Client
type ClientOptions struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	ProxyURL   string
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:    90 * time.Second,
		MaxRetries: 3,
		UserAgent:  "",
		ProxyURL:   "",
	}
}

// NewClient creates a new stealth HTTP client
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}

	// Streaming a full recording can take far longer than a page fetch.
	tlsTimeout := opts.Timeout * 3
	if tlsTimeout < 3*time.Minute {
		tlsTimeout = 3 * time.Minute
	}

	jar := tls_client.NewCookieJar()
	tlsOpts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(tlsTimeout.Seconds())),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(jar),
	}

	if opts.ProxyURL != "" {
		tlsOpts = append(tlsOpts, tls_client.WithProxyUrl(opts.ProxyURL))
	}

	tlsClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), tlsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}

	retrier := NewRetrier(RetrierOptions{
		MaxRetries:      opts.MaxRetries,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	})

	return &Client{
		tlsClient: tlsClient,
		userAgent: opts.UserAgent,
		retrier:   retrier,
	}, nil
}

// Get fetches content from a URL
func (c *Client) Get(ctx context.Context, url string) (*domain.Response, error) {
	return c.GetWithHeaders(ctx, url, nil)
}

// GetWithHeaders fetches content with custom headers, buffering the
// whole body. Transient failures retry with exponential backoff.
func (c *Client) GetWithHeaders(ctx context.Context, url string, extraHeaders map[string]string) (*domain.Response, error) {
	var resp *domain.Response
	err := c.retrier.Retry(ctx, func() error {
		var err error
		resp, err = c.doBuffered(ctx, url, extraHeaders)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) doBuffered(ctx context.Context, targetURL string, extraHeaders map[string]string) (*domain.Response, error) {
	stream, err := c.Stream(ctx, targetURL, extraHeaders)
	if err != nil {
		return nil, err
	}
	defer stream.Body.Close()

	body, err := io.ReadAll(stream.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &domain.Response{
		StatusCode:  stream.StatusCode,
		Body:        body,
		Headers:     stream.Headers,
		ContentType: stream.ContentType,
		URL:         stream.URL,
	}, nil
}

// Stream opens a streaming response. Redirects are followed manually up
// to maxRedirects hops with the same header set applied on every hop.
// The caller owns the returned body. Stream does not retry: a broken
// media stream is surfaced to the strategy, which decides what to do.
func (c *Client) Stream(ctx context.Context, targetURL string, extraHeaders map[string]string) (*domain.StreamResponse, error) {
	current := targetURL

	for hop := 0; hop <= maxRedirects; hop++ {
		resp, err := c.doRequest(ctx, current, extraHeaders)
		if err != nil {
			return nil, err
		}

		if isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				return nil, domain.NewFetchError(current, resp.StatusCode, fmt.Errorf("redirect without location"))
			}
			next, err := resolveLocation(current, location)
			if err != nil {
				return nil, domain.NewFetchError(current, resp.StatusCode, err)
			}
			current = next
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			if ShouldRetryStatus(resp.StatusCode) {
				return nil, &domain.RetryableError{
					Err:        domain.NewFetchError(current, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)),
					RetryAfter: int(ParseRetryAfter(resp.Header.Get("Retry-After")).Seconds()),
				}
			}
			return nil, domain.NewFetchError(current, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode))
		}

		headers := make(http.Header)
		for k, v := range resp.Header {
			headers[k] = v
		}

		return &domain.StreamResponse{
			StatusCode:    resp.StatusCode,
			Headers:       headers,
			ContentType:   resp.Header.Get("Content-Type"),
			ContentLength: resp.ContentLength,
			URL:           current,
			Body:          resp.Body,
		}, nil
	}

	return nil, domain.NewFetchError(targetURL, 0, fmt.Errorf("stopped after %d redirects", maxRedirects))
}

// doRequest performs one HTTP hop without following redirects.
func (c *Client) doRequest(ctx context.Context, targetURL string, extraHeaders map[string]string) (*fhttp.Response, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	headers := StealthHeaders(c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.tlsClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{
			URL: targetURL,
			Err: fmt.Errorf("request failed: %w", err),
		}
	}
	return resp, nil
}

// GetCookies returns cookies accumulated for a URL
func (c *Client) GetCookies(rawURL string) []*http.Cookie {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	cookies := c.tlsClient.GetCookies(parsedURL)
	result := make([]*http.Cookie, len(cookies))
	for i, cookie := range cookies {
		result[i] = &http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HttpOnly,
		}
	}
	return result
}

// Close releases client resources
func (c *Client) Close() error {
	// TLS client doesn't have a Close method, kept for interface compliance
	return nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(locURL).String(), nil
}
