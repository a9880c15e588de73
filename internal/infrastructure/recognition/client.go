package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ARChemistry/internal/infrastructure/codec"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// ProcessImagePath is the backend endpoint that accepts drawings.
const ProcessImagePath = "/process_image"

// DefaultMaxResponseSize is the response body cap when none is configured.
const DefaultMaxResponseSize = 10 << 20

// Multipart field names.
const (
	FieldImage       = "image"
	FieldReagentName = "reagent_name"
)

// Client calls the remote recognition backend.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       logging.Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	maxResponse  int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-attempt timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetryMax sets how many times a failed attempt is retried.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retryMax = n
		}
	}
}

// WithRetryWait sets the backoff bounds.  max is applied only when it is not
// below min.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		if min > 0 {
			c.retryWaitMin = min
			if max >= min {
				c.retryWaitMax = max
			}
		}
	}
}

// WithMaxResponseSize caps the response body read from the backend.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponse = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient returns a Client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New(errors.ErrCodeValidation, "recognition base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid recognition base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeValidation, "recognition base URL scheme must be http or https").
			WithDetail("url=" + baseURL)
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		userAgent:    "archem-recognition/1.0",
		logger:       logging.NewNopLogger(),
		retryMax:     2,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
		maxResponse:  DefaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("recognition")
	return c, nil
}

// Recognize uploads img with the chosen reagent name and converts the
// returned reactant structure into a graph.
func (c *Client) Recognize(ctx context.Context, img Image, reagentName string) (*Result, error) {
	if img.Data == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "failed to read image file")
	}
	data, err := io.ReadAll(img.Data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read image file")
	}
	filename := img.Filename
	if filename == "" {
		filename = "image.jpg"
	}

	requestID := uuid.New().String()
	var resp codec.ReactionResponse
	if err := c.do(ctx, requestID, filename, data, reagentName, &resp); err != nil {
		return nil, err
	}
	return c.interpret(requestID, &resp)
}

// interpret applies the backend's response rules: a top-level or structure
// error message is passed through, and missing structure data is incomplete.
func (c *Client) interpret(requestID string, resp *codec.ReactionResponse) (*Result, error) {
	if resp.Error != "" {
		return nil, errors.New(errors.ErrCodeRecognitionFailed, resp.Error).WithDetail("request_id=" + requestID)
	}
	if resp.Reactant == nil {
		return nil, errors.New(errors.ErrCodeRecognitionIncomplete, "server returned incomplete model data").
			WithDetail("request_id=" + requestID)
	}
	if resp.Reactant.Error != "" {
		return nil, errors.New(errors.ErrCodeRecognitionFailed, resp.Reactant.Error).WithDetail("request_id=" + requestID)
	}

	reactant, err := codec.ToGraph(resp.Reactant)
	if err != nil {
		return nil, err
	}
	res := &Result{Reactant: reactant, RequestID: requestID}

	if resp.Product != nil && resp.Product.Error == "" {
		if p, err := codec.ToGraph(resp.Product); err == nil {
			res.RemoteProduct = p
		} else {
			c.logger.Warn("ignoring malformed remote product", logging.Err(err), logging.String("request_id", requestID))
		}
	}

	c.logger.Info("received model data",
		logging.String("request_id", requestID),
		logging.Int("atoms", reactant.AtomCount()),
		logging.Int("bonds", reactant.BondCount()))
	return res, nil
}

func (c *Client) do(ctx context.Context, requestID, filename string, image []byte, reagentName string, out *codec.ReactionResponse) error {
	fullURL := c.baseURL + ProcessImagePath

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debug("retrying recognition request",
				logging.Int("attempt", attempt), logging.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "recognition request cancelled")
			}
		}

		body, contentType, err := multipartBody(filename, image, reagentName)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to build multipart body")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "recognition request cancelled")
			}
			c.logger.Warn("recognition request failed", logging.Err(err), logging.Int("attempt", attempt))
			lastErr = errors.Wrap(err, errors.ErrCodeExternalService, "recognition backend unreachable")
			continue
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponse+1))
		resp.Body.Close()
		if err != nil {
			lastErr = errors.Wrap(err, errors.ErrCodeExternalService, "failed to read recognition response")
			continue
		}
		if int64(len(respBody)) > c.maxResponse {
			return errors.New(errors.ErrCodeExternalService, "recognition response too large").
				WithDetail(fmt.Sprintf("limit=%d request_id=%s", c.maxResponse, requestID))
		}
		c.logger.Debug("recognition response",
			logging.Int("status", resp.StatusCode),
			logging.Duration("took", time.Since(start)),
			logging.String("request_id", requestID))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = errors.Newf(errors.ErrCodeRecognitionHTTP, "server error: %d %s",
				resp.StatusCode, http.StatusText(resp.StatusCode)).
				WithDetail(truncate(string(respBody), 256))
			if shouldRetry(resp.StatusCode) {
				continue
			}
			return lastErr
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode recognition response")
		}
		return nil
	}
	return lastErr
}

func multipartBody(filename string, image []byte, reagentName string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(FieldImage, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.WriteField(FieldReagentName, reagentName); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// shouldRetry reports whether an HTTP status warrants another attempt.
func shouldRetry(status int) bool {
	return status >= 500 && status < 600
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	if q := int64(backoff / 4); q > 0 {
		backoff += time.Duration(rand.Int63n(q))
	}
	return backoff
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
