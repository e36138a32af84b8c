// Package mutation performs one API call per request and normalizes the
// result into an Outcome. It never retries and never touches the cache.
package mutation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/igormartsekha/saas-starter-kit/internal/logging"
)

// GenericMessage is reported when the server gives no usable message or the
// request never reached it.
const GenericMessage = "Something went wrong"

type Request struct {
	Method string
	Path   string
	Body   any
}

// Failure is the error half of an Outcome. StatusCode is zero for transport
// failures.
type Failure struct {
	Message    string
	StatusCode int
}

func (f *Failure) Error() string { return f.Message }

// Outcome is Success when Err is nil. Data holds the "data" member of the
// response envelope and may be nil.
type Outcome struct {
	Data json.RawMessage
	Err  *Failure
}

func (o Outcome) OK() bool { return o.Err == nil }

// AsError returns nil on success.
func (o Outcome) AsError() error {
	if o.Err == nil {
		return nil
	}
	return o.Err
}

// Decode unmarshals Data into v. A nil Data leaves v untouched.
func (o Outcome) Decode(v any) error {
	if o.Err != nil {
		return o.Err
	}
	if len(o.Data) == 0 || string(o.Data) == "null" {
		return nil
	}
	return json.Unmarshal(o.Data, v)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	httpClient *http.Client
	server     string
	token      string
	logger     *slog.Logger
}

type Option func(*Client)

// WithToken sends Authorization: Bearer <token> on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(server string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		server:     strings.TrimRight(server, "/"),
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Server() string { return c.server }

// Do sends req and returns its normalized outcome.
func (c *Client) Do(ctx context.Context, req Request) Outcome {
	var body io.Reader
	if req.Body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(req.Body); err != nil {
			c.logger.Error("encode request body", "method", req.Method, "path", req.Path, "err", err)
			return failure(GenericMessage, 0)
		}
		body = buf
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.server+req.Path, body)
	if err != nil {
		c.logger.Error("build request", "method", req.Method, "path", req.Path, "err", err)
		return failure(GenericMessage, 0)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("request failed", "method", req.Method, "path", req.Path, "err", err)
		return failure(GenericMessage, 0)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("read response", "method", req.Method, "path", req.Path, "status", resp.StatusCode, "err", err)
		return failure(GenericMessage, resp.StatusCode)
	}

	var env envelope
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &env); err != nil {
			c.logger.Warn("response is not a JSON envelope", "method", req.Method, "path", req.Path, "status", resp.StatusCode, "err", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := GenericMessage
		if env.Error != nil && strings.TrimSpace(env.Error.Message) != "" {
			msg = env.Error.Message
		}
		return failure(msg, resp.StatusCode)
	}
	return Outcome{Data: env.Data}
}

// Fetch is the read side used by the resource store: a GET whose failure is
// returned as an error.
func (c *Client) Fetch(ctx context.Context, path string) (json.RawMessage, error) {
	out := c.Do(ctx, Request{Method: http.MethodGet, Path: path})
	if out.Err != nil {
		return nil, out.Err
	}
	return out.Data, nil
}

func failure(message string, status int) Outcome {
	return Outcome{Err: &Failure{Message: message, StatusCode: status}}
}
