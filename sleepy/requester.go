package sleepy

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"context"

	"github.com/lmittmann/tint"
)

const defaultRequestTimeout = 30 * time.Second

// RequestFailedError is returned when a Requester request completes
// with a non-2xx status code.
//
// Fields:
//   - Method: The HTTP method of the failed request.
//   - URL: The requested URL.
//   - Status: The HTTP status code.
//   - Reason: The HTTP status text.
//   - Headers: The response headers.
//   - Data: The raw response body.
type RequestFailedError struct {
	Method  string
	URL     string
	Status  int
	Reason  string
	Headers http.Header
	Data    []byte
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf(
		"%s %s failed with HTTP status code %d",
		e.Method,
		e.URL,
		e.Status,
	)
}

// Response is the decoded result of a Requester request.
type Response struct {
	Status      int
	Headers     http.Header
	Data        []byte
	ContentType string
	FromCache   bool
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Data)
}

// IsJSON reports whether the response was served with a JSON content type.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType, "application/json")
}

// CachedResponse is the payload stored in a [Cache] for a successful
// request.
type CachedResponse struct {
	Data        []byte
	ContentType string
}

// Cache stores response payloads for the [Requester]. Implementations
// must be safe for concurrent use. A nil cache on the requester
// disables caching entirely, regardless of per-request settings.
type Cache interface {
	Get(key string) (CachedResponse, bool)
	Set(key string, value CachedResponse)
}

type requestSettings struct {
	cache   bool
	params  url.Values
	headers http.Header
	body    io.Reader
}

// RequestOption configures a single Requester request.
type RequestOption func(*requestSettings)

// WithCache marks the request's response as cacheable. This has no
// effect if the requester was built without a cache.
func WithCache() RequestOption {
	return func(s *requestSettings) { s.cache = true }
}

// WithParams sets the request's URL query parameters.
func WithParams(params url.Values) RequestOption {
	return func(s *requestSettings) { s.params = params }
}

// WithHeader adds a request header.
func WithHeader(key, value string) RequestOption {
	return func(s *requestSettings) {
		if s.headers == nil {
			s.headers = http.Header{}
		}
		s.headers.Add(key, value)
	}
}

// WithBody sets the request body.
func WithBody(body io.Reader) RequestOption {
	return func(s *requestSettings) { s.body = body }
}

// Requester performs HTTP requests on behalf of the bot and its
// extensions, optionally caching successful response payloads.
//
// Requests are serialized: only one request is in flight at a time.
// This keeps cache reads and writes consistent and is in keeping with
// the bot's light, best-effort use of third-party APIs.
type Requester struct {
	client    *http.Client
	cache     Cache
	logger    *slog.Logger
	userAgent string
	mu        sync.Mutex
}

// NewRequester returns a Requester using the given HTTP client and
// cache. A nil client falls back to a default client with a 30s
// timeout; a nil cache disables response caching. A nil logger falls
// back to slog.Default.
func NewRequester(client *http.Client, cache Cache, logger *slog.Logger) *Requester {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Requester{
		client:    client,
		cache:     cache,
		logger:    logger.With(loggerNameKey, "requester"),
		userAgent: fmt.Sprintf("Sleepy-Bot/%s (%s)", Version, GitHubURL),
	}
}

// Cache returns the cache backing this requester, or nil if caching
// is disabled.
func (r *Requester) Cache() Cache {
	return r.cache
}

// Client returns the underlying HTTP client.
func (r *Requester) Client() *http.Client {
	return r.client
}

// Do performs an HTTP request and optionally caches the response
// payload.
//
// When [WithCache] is given and the requester has a cache, the cache
// is consulted first; a hit returns the stored payload without a
// network request. Only 2xx responses are ever stored. Responses with
// a non-2xx status code return a [*RequestFailedError] carrying the
// status, reason, headers, and body.
func (r *Requester) Do(
	ctx context.Context,
	method string,
	rawURL string,
	opts ...RequestOption,
) (*Response, error) {
	var settings requestSettings
	for _, opt := range opts {
		opt(&settings)
	}

	requestURL := rawURL
	if len(settings.params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		requestURL = rawURL + sep + settings.params.Encode()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cacheable := settings.cache && r.cache != nil
	key := fmt.Sprintf("%s:%s", method, requestURL)

	if cacheable {
		if cached, ok := r.cache.Get(key); ok {
			r.logger.DebugContext(
				ctx,
				"cache hit",
				"method", method,
				"url", requestURL,
			)
			return &Response{
				Status:      http.StatusOK,
				Data:        cached.Data,
				ContentType: cached.ContentType,
				FromCache:   true,
			}, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, settings.body)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	for k, values := range settings.headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.WarnContext(
			ctx,
			"request error",
			"method", method,
			"url", requestURL,
			tint.Err(err),
		)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.WarnContext(
			ctx,
			"request failed",
			"method", method,
			"url", requestURL,
			"status", resp.StatusCode,
		)
		return nil, &RequestFailedError{
			Method:  method,
			URL:     requestURL,
			Status:  resp.StatusCode,
			Reason:  http.StatusText(resp.StatusCode),
			Headers: resp.Header,
			Data:    data,
		}
	}

	r.logger.InfoContext(
		ctx,
		"request succeeded",
		"method", method,
		"url", requestURL,
		"status", resp.StatusCode,
	)

	result := &Response{
		Status:      resp.StatusCode,
		Headers:     resp.Header,
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if cacheable {
		r.cache.Set(
			key,
			CachedResponse{Data: data, ContentType: result.ContentType},
		)
		r.logger.DebugContext(ctx, "cached response", "key", key)
	}

	return result, nil
}

// Get performs a GET request. See [Requester.Do].
func (r *Requester) Get(
	ctx context.Context,
	url string,
	opts ...RequestOption,
) (*Response, error) {
	return r.Do(ctx, http.MethodGet, url, opts...)
}

// Post performs a POST request. See [Requester.Do].
func (r *Requester) Post(
	ctx context.Context,
	url string,
	opts ...RequestOption,
) (*Response, error) {
	return r.Do(ctx, http.MethodPost, url, opts...)
}

// GetJSON performs a GET request and unmarshals the JSON response
// body into v.
func (r *Requester) GetJSON(
	ctx context.Context,
	url string,
	v any,
	opts ...RequestOption,
) error {
	resp, err := r.Get(ctx, url, opts...)
	if err != nil {
		return err
	}
	return resp.JSON(v)
}
