package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"stratolift/internal/config"
	"stratolift/internal/ids"
)

const (
	headerRequestID = "X-Request-Id"
	maxBodyBytes    = 8 << 20
)

// TokenSource supplies the bearer token for authenticated calls.
// *session.Manager implements it.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL    string
	http       *http.Client
	tokens     TokenSource
	log        zerolog.Logger
	retries    uint
	retryDelay time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRetry sets how many attempts idempotent GETs get on network errors.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = attempts
		c.retryDelay = delay
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        zerolog.Nop(),
		retries:    1,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retries == 0 {
		c.retries = 1
	}
	return c
}

func NewFromConfig(cfg config.APIConfig, log zerolog.Logger, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithLogger(log),
		WithRetry(cfg.Retries, cfg.RetryDelay),
	}
	return New(cfg.BaseURL, append(base, opts...)...)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one API call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        any
	rawBody     []byte
	contentType string
	auth        bool
	// optionalAuth attaches the token when there is one but does not
	// require it.
	optionalAuth bool
	// rejectKind classifies non-2xx responses. Defaults to ErrRequest.
	rejectKind error
	// fallback is shown when the server gives no message.
	fallback string
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// send performs req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) send(ctx context.Context, req request, out any) error {
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}

	if resp.status < 200 || resp.status > 299 {
		return c.reject(req, resp)
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		if out != nil {
			return &Error{Kind: ErrProtocol, Status: resp.status, Message: msgInvalidResponse}
		}
		return nil
	}

	// A body that decodes is accepted whatever its content type.
	if err := json.Unmarshal(resp.body, out); err != nil {
		msg := msgInvalidResponse
		if !isJSON(resp.header.Get("Content-Type")) {
			msg = msgInvalidFormat
		}
		return &Error{Kind: ErrProtocol, Status: resp.status, Message: msg, Err: err}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req request) (response, error) {
	var payload []byte
	contentType := req.contentType
	switch {
	case req.rawBody != nil:
		payload = req.rawBody
	case req.body != nil:
		b, err := json.Marshal(req.body)
		if err != nil {
			return response{}, fmt.Errorf("encode request: %w", err)
		}
		payload = b
		contentType = "application/json"
	}

	var token string
	if req.auth || req.optionalAuth {
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token == "" && req.auth {
			return response{}, &Error{Kind: ErrAuthentication, Message: msgNoToken}
		}
	}

	attempts := uint(1)
	if req.method == http.MethodGet {
		attempts = c.retries
	}

	var resp response
	err := retry.Do(
		func() error {
			r, err := c.once(ctx, req, payload, contentType, token)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrNetwork)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug().Err(err).Uint("attempt", n+1).Str("path", req.path).Msg("retrying request")
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response{}, ctxErr
		}
		return response{}, err
	}
	return resp, nil
}

func (c *Client) once(ctx context.Context, req request, payload []byte, contentType, token string) (response, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return response{}, fmt.Errorf("build request: %w", err)
	}

	requestID := ids.New()
	httpReq.Header.Set(headerRequestID, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response{}, retry.Unrecoverable(ctxErr)
		}
		c.log.Warn().Err(err).Str("method", req.method).Str("path", req.path).Str("request_id", requestID).Msg("api unreachable")
		return response{}, &Error{Kind: ErrNetwork, Message: msgNetwork, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return response{}, &Error{Kind: ErrNetwork, Status: httpResp.StatusCode, Message: msgNetwork, Err: err}
	}

	c.log.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", httpResp.StatusCode).
		Dur("latency", time.Since(start)).
		Str("request_id", requestID).
		Msg("api request")

	return response{status: httpResp.StatusCode, header: httpResp.Header, body: raw}, nil
}

func (c *Client) reject(req request, resp response) error {
	kind := req.rejectKind
	if kind == nil {
		kind = ErrRequest
	}
	message := serverMessage(resp.body)

	if resp.status == http.StatusUnauthorized && req.auth {
		kind = ErrAuthentication
		message = msgSessionExpired
	}
	if message == "" {
		message = req.fallback
	}
	return &Error{Kind: kind, Status: resp.status, Message: message}
}

func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// envelope is the {success, data, message} wrapper most endpoints use.
type envelope[T any] struct {
	Success *bool  `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// failed reports an explicit success:false.
func (e envelope[T]) failed() bool {
	return e.Success != nil && !*e.Success
}

func pathID(prefix, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ValidationError("id required")
	}
	return prefix + "/" + url.PathEscape(id), nil
}
