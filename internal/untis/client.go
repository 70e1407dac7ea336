// Package untis talks JSON-RPC to a WebUntis server.
package untis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/untapped/pkg/errors"
)

// Remote error codes with a meaning of their own.
const (
	codeBadCredentials   = -8504
	codeNoRight          = -8509
	codeNotAuthenticated = -8520
	codeDateNotAllowed   = -7004
)

const sessionCookie = "JSESSIONID"

// Credentials identify the server, school and account.
type Credentials struct {
	Server    string `json:"server" validate:"required"`
	School    string `json:"school" validate:"required"`
	User      string `json:"user" validate:"required"`
	Password  string `json:"-" validate:"required"`
	UserAgent string `json:"useragent"`
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLocation sets the zone remote dates and times are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithValidator shares a validator instance.
func WithValidator(v *validator.Validate) Option {
	return func(c *Client) {
		if v != nil {
			c.validate = v
		}
	}
}

// Client is an authenticated (after Login) connection to one school.
type Client struct {
	creds    Credentials
	endpoint string
	http     *http.Client
	logger   *zap.Logger
	validate *validator.Validate
	loc      *time.Location

	seq uint64

	mu        sync.RWMutex
	sessionID string
}

// New builds a client. Server may be a bare host name or a full base URL.
func New(creds Credentials, opts ...Option) (*Client, error) {
	c := &Client{
		creds:    creds,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   zap.NewNop(),
		validate: validator.New(),
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.validate.Struct(creds); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "incomplete credentials")
	}
	if c.creds.UserAgent == "" {
		c.creds.UserAgent = "untapped"
	}
	c.endpoint = endpointFor(creds.Server, creds.School)
	return c, nil
}

func endpointFor(server, school string) string {
	base := strings.TrimRight(server, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return base + "/WebUntis/jsonrpc.do?school=" + url.QueryEscape(school)
}

// LoggedIn reports whether Login succeeded and Logout was not called since.
func (c *Client) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID != ""
}

type authResult struct {
	SessionID  string `json:"sessionId"`
	PersonType int    `json:"personType"`
	PersonID   int64  `json:"personId"`
}

// Login authenticates and keeps the session id for later calls.
func (c *Client) Login(ctx context.Context) error {
	params := map[string]string{
		"user":     c.creds.User,
		"password": c.creds.Password,
		"client":   c.creds.UserAgent,
	}
	var res authResult
	if err := c.call(ctx, "authenticate", params, &res); err != nil {
		return err
	}
	if res.SessionID == "" {
		return appErrors.Clone(appErrors.ErrBadCredentials, "server returned no session")
	}
	c.mu.Lock()
	c.sessionID = res.SessionID
	c.mu.Unlock()
	c.logger.Info("untis session opened", zap.String("user", c.creds.User), zap.Int64("person_id", res.PersonID))
	return nil
}

// Logout ends the remote session. The local session id is dropped even if the
// remote call fails.
func (c *Client) Logout(ctx context.Context) error {
	if !c.LoggedIn() {
		return nil
	}
	err := c.call(ctx, "logout", struct{}{}, nil)
	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()
	return err
}

type rpcRequest struct {
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	JSONRPC string      `json:"jsonrpc"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params interface{}, dest interface{}) error {
	id := strconv.FormatUint(atomic.AddUint64(&c.seq, 1), 10)
	payload, err := json.Marshal(rpcRequest{ID: id, Method: method, Params: params, JSONRPC: "2.0"})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.creds.UserAgent)
	if method != "authenticate" {
		c.mu.RLock()
		sid := c.sessionID
		c.mu.RUnlock()
		if sid == "" {
			return appErrors.ErrSessionRequired
		}
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sid})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrUpstream, err, fmt.Sprintf("%s failed", method))
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrUpstream, err, fmt.Sprintf("read %s response", method))
	}
	c.logger.Debug("untis call", zap.String("method", method), zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return appErrors.WrapAs(appErrors.ErrUpstream, fmt.Errorf("http status %d", resp.StatusCode), fmt.Sprintf("%s failed", method))
	}

	var envelope rpcResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return appErrors.WrapAs(appErrors.ErrUpstream, err, fmt.Sprintf("decode %s response", method))
	}
	if envelope.Error != nil {
		return mapRemoteError(method, envelope.Error)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, dest); err != nil {
		return appErrors.WrapAs(appErrors.ErrUpstream, err, fmt.Sprintf("decode %s result", method))
	}
	return nil
}

func mapRemoteError(method string, e *rpcError) error {
	cause := fmt.Errorf("%s: remote error %d: %s", method, e.Code, e.Message)
	switch e.Code {
	case codeBadCredentials:
		return appErrors.WrapAs(appErrors.ErrBadCredentials, cause, "")
	case codeNoRight:
		return appErrors.WrapAs(appErrors.ErrPermissionDenied, cause, "")
	case codeNotAuthenticated:
		return appErrors.WrapAs(appErrors.ErrSessionRequired, cause, "")
	case codeDateNotAllowed:
		return appErrors.WrapAs(appErrors.ErrValidation, cause, "date outside of the allowed range")
	}
	return appErrors.WrapAs(appErrors.ErrUpstream, cause, "")
}
