package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(ClientOptions{
		Timeout:    10 * time.Second,
		MaxRetries: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	client := newTestClient(t)
	resp, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []byte("hello"), resp.Body)
	assert.Contains(t, resp.ContentType, "text/plain")
	assert.Equal(t, server.URL, resp.URL)
}

func TestGetWithHeaders(t *testing.T) {
	var gotReferer, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t)
	_, err := client.GetWithHeaders(context.Background(), server.URL, map[string]string{
		"Referer": "https://drive.google.com/",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/", gotReferer)
	assert.NotEmpty(t, gotUA, "stealth headers must always carry a user agent")
}

func TestStreamFollowsRedirects(t *testing.T) {
	var hops []string
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		hops = append(hops, "/start")
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		hops = append(hops, "/middle")
		http.Redirect(w, r, server.URL+"/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		hops = append(hops, "/final")
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("media-bytes"))
	})

	client := newTestClient(t)
	stream, err := client.Stream(context.Background(), server.URL+"/start", nil)

	require.NoError(t, err)
	defer stream.Body.Close()

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("media-bytes"), body)
	assert.Equal(t, server.URL+"/final", stream.URL)
	assert.Equal(t, []string{"/start", "/middle", "/final"}, hops)
}

func TestStreamRedirectLoop(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})

	client := newTestClient(t)
	_, err := client.Stream(context.Background(), server.URL+"/loop", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirects")
}

func TestStreamNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(t)
	_, err := client.Stream(context.Background(), server.URL, nil)

	require.Error(t, err)
	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 404, fetchErr.StatusCode)
}

func TestStreamRetryableStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t)
	_, err := client.Stream(context.Background(), server.URL, nil)

	require.Error(t, err)
	var retryable *domain.RetryableError
	require.True(t, errors.As(err, &retryable))
	assert.Equal(t, 7, retryable.RetryAfter)
}

func TestRetrierRetriesTransientErrors(t *testing.T) {
	r := NewRetrier(RetrierOptions{
		MaxRetries:      3,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		Multiplier:      2.0,
	})

	calls := 0
	err := r.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &domain.RetryableError{Err: errors.New("flaky")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r := NewRetrier(RetrierOptions{
		MaxRetries:      3,
		InitialInterval: 5 * time.Millisecond,
	})

	calls := 0
	permanent := errors.New("permanent")
	err := r.Retry(context.Background(), func() error {
		calls++
		return permanent
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestShouldRetryStatus(t *testing.T) {
	assert.True(t, ShouldRetryStatus(429))
	assert.True(t, ShouldRetryStatus(502))
	assert.True(t, ShouldRetryStatus(503))
	assert.True(t, ShouldRetryStatus(504))
	assert.False(t, ShouldRetryStatus(200))
	assert.False(t, ShouldRetryStatus(404))
	assert.False(t, ShouldRetryStatus(500))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseRetryAfter("30"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("-5"))
}

func TestStealthHeaders(t *testing.T) {
	headers := StealthHeaders("")
	assert.NotEmpty(t, headers["User-Agent"])
	assert.NotEmpty(t, headers["Accept"])
	assert.NotEmpty(t, headers["Accept-Language"])
	assert.Equal(t, "1", headers["Upgrade-Insecure-Requests"])

	custom := StealthHeaders("my-agent Chrome/131")
	assert.Equal(t, "my-agent Chrome/131", custom["User-Agent"])
	assert.NotEmpty(t, custom["Sec-CH-UA"], "chrome agents carry client hints")

	firefox := StealthHeaders("Mozilla/5.0 Gecko/20100101 Firefox/132.0")
	assert.Empty(t, firefox["Sec-CH-UA"], "non-chrome agents must not carry client hints")
}

func TestDriveHeaders(t *testing.T) {
	headers := DriveHeaders("")
	assert.Equal(t, "https://drive.google.com/", headers["Referer"])
}
