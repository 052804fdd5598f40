package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"fundimport/internal/config"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.Config {
	return config.Config{
		UserAgent:    "fundimport-test",
		TimeoutMs:    1000,
		Retries:      3,
		BackoffMs:    1,
		RateLimitRPS: 1000,
	}
}

func newTestClient(cfg config.Config, rt roundTripFunc) *Client {
	c := NewClient(cfg)
	c.SetHTTPClient(&http.Client{Transport: rt})
	return c
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestGetPageHeaders(t *testing.T) {
	var got *http.Request
	c := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
		got = req
		return textResponse(200, "ok"), nil
	})

	body, err := c.GetPage(context.Background(), "https://www.fundainbusiness.nl/huur/amsterdam/object-1/")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	if !bytes.Equal(body, []byte("ok")) {
		t.Fatalf("body: got %q", body)
	}
	if ua := got.Header.Get("User-Agent"); ua != "fundimport-test" {
		t.Fatalf("user agent: got %q", ua)
	}
	if lang := got.Header.Get("Accept-Language"); lang != "nl-NL,nl;q=0.9" {
		t.Fatalf("accept language: got %q", lang)
	}
	if accept := got.Header.Get("Accept"); !strings.Contains(accept, "text/html") {
		t.Fatalf("accept: got %q", accept)
	}
}

func TestGetRetriesTransientStatus(t *testing.T) {
	calls := 0
	c := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return textResponse(503, "busy"), nil
		}
		return textResponse(200, "done"), nil
	})

	body, err := c.GetPage(context.Background(), "https://www.fundainbusiness.nl/x")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	if string(body) != "done" {
		t.Fatalf("body: got %q", body)
	}
	if calls != 3 {
		t.Fatalf("calls: got %d", calls)
	}
}

func TestGetDoesNotRetryClientError(t *testing.T) {
	calls := 0
	c := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
		calls++
		return textResponse(404, "gone"), nil
	})

	_, err := c.GetPage(context.Background(), "https://www.fundainbusiness.nl/x")
	if err == nil || err.Error() != "request failed with status 404" {
		t.Fatalf("error: got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: got %d", calls)
	}
}

func TestGetExhaustsRetries(t *testing.T) {
	calls := 0
	c := newTestClient(testConfig(), func(req *http.Request) (*http.Response, error) {
		calls++
		return textResponse(500, "boom"), nil
	})

	_, err := c.GetPage(context.Background(), "https://www.fundainbusiness.nl/x")
	if err == nil || err.Error() != "request failed with status 500" {
		t.Fatalf("error: got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls: got %d", calls)
	}
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	limiter := NewRateLimiter(50) // 20ms interval

	start := time.Now()
	for i := 0; i < 3; i++ {
		limiter.WaitTurn()
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("three turns at 50 rps finished in %v", elapsed)
	}
}
