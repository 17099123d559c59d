package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the hosted SQL Arena backend.
const DefaultBaseURL = "https://sql-playground-background.onrender.com"

// Config configures a Client.
type Config struct {
	BaseURL      string
	AssetBaseURL string // defaults to BaseURL
	Timeout      time.Duration
	UserAgent    string
	HTTPClient   *http.Client
}

// Client talks to the SQL Arena backend.
type Client struct {
	baseURL   string
	assetURL  string
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}

	assets := base
	if cfg.AssetBaseURL != "" {
		assets, err = normalizeBaseURL(cfg.AssetBaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid asset url: %w", err)
		}
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:   base,
		assetURL:  assets,
		userAgent: cfg.UserAgent,
		http:      hc,
		logger:    logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ListTables returns every table the backend exposes.
func (c *Client) ListTables(ctx context.Context) ([]Table, error) {
	var resp tablesResponse
	if err := c.doJSON(ctx, "list tables", http.MethodGet, "/api/tables", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Tables == nil {
		return []Table{}, nil
	}
	return resp.Tables, nil
}

// FetchSchema returns the ordered column list of a table.
func (c *Client) FetchSchema(ctx context.Context, table string) ([]Column, error) {
	var resp schemaResponse
	path := "/api/schema/" + url.PathEscape(table)
	if err := c.doJSON(ctx, "fetch schema", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &BackendError{Op: "fetch schema", Message: resp.Error}
	}
	if resp.Columns == nil {
		return []Column{}, nil
	}
	return resp.Columns, nil
}

// Query executes sql on the backend.
func (c *Client) Query(ctx context.Context, sql string) (*QueryResult, error) {
	var resp queryResponse
	if err := c.doJSON(ctx, "query", http.MethodPost, "/api/query", queryRequest{SQL: sql}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &BackendError{Op: "query", Message: resp.Error}
	}

	result := &QueryResult{Rows: resp.Data, RowCount: len(resp.Data)}
	if result.Rows == nil {
		result.Rows = []Row{}
	}
	if resp.RowCount != nil {
		result.RowCount = *resp.RowCount
	}
	return result, nil
}

// LogActivity posts an activity record. The response body is ignored.
func (c *Client) LogActivity(ctx context.Context, activity Activity) error {
	return c.doJSON(ctx, "log activity", http.MethodPost, "/api/log-activity", activity, nil)
}

// Login forwards the login form to the backend.
func (c *Client) Login(ctx context.Context, creds Credentials) (*User, error) {
	return c.authenticate(ctx, "login", "/api/auth/login", creds)
}

// Signup forwards the signup form to the backend.
func (c *Client) Signup(ctx context.Context, reg Registration) (*User, error) {
	return c.authenticate(ctx, "signup", "/api/auth/signup", reg)
}

func (c *Client) authenticate(ctx context.Context, op, path string, body any) (*User, error) {
	var resp authResponse
	if err := c.doJSON(ctx, op, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.User == nil {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		return nil, &BackendError{Op: op, Message: msg}
	}
	return resp.User, nil
}

// FetchAsset downloads a static file relative to the asset base URL.
func (c *Client) FetchAsset(ctx context.Context, path string) (*Asset, error) {
	const op = "fetch asset"

	req, err := c.newRequest(ctx, http.MethodGet, c.assetURL+ensureLeadingSlash(path), nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	res, err := c.send(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to fetch %s: %w", path, &StatusError{StatusCode: res.StatusCode, Status: res.Status})}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read %s: %w", path, err)}
	}

	return &Asset{
		Path:        path,
		ContentType: res.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// doJSON sends body as JSON and decodes the response into out. The body is
// decoded regardless of status because the backend reports logical failures
// with success:false on 4xx/5xx responses.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.send(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	ok := res.StatusCode >= 200 && res.StatusCode <= 299
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		if !ok {
			return &TransportError{Op: op, Err: &StatusError{StatusCode: res.StatusCode, Status: res.Status}}
		}
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if !ok {
			return &TransportError{Op: op, Err: &StatusError{StatusCode: res.StatusCode, Status: res.Status}}
		}
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"duration", time.Since(start),
			"error", err)
		return nil, err
	}
	c.logger.Debug("backend request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", res.StatusCode,
		"duration", time.Since(start))
	return res, nil
}

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
