package rpc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"pipeconsole/internal/wire"
)

const (
	// PathPrefix prefixes every method route: POST /rpc/{Service}/{Name}.
	PathPrefix = "/rpc/"
	// ProjectHeader carries the project a call acts on.
	ProjectHeader = "X-Project-Id"
	// MaxMessageSize bounds encoded request and response bodies.
	MaxMessageSize = 8 << 20
)

// statusSchema is the body of a failed call.
var statusSchema = wire.NewSchema("rpc.Status",
	wire.Enum(1, "code"),
	wire.String(2, "message"),
)

func encodeStatus(te *TransportError) []byte {
	m := wire.NewMessage(statusSchema)
	_ = m.Set("code", int32(te.Code))
	_ = m.Set("message", te.Message)
	data, err := wire.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}

func decodeStatus(data []byte) (*TransportError, bool) {
	if len(data) == 0 {
		return nil, false
	}
	m, err := wire.Unmarshal(statusSchema, data)
	if err != nil || !m.Has("code") {
		return nil, false
	}
	return &TransportError{Code: Code(m.GetInt32("code")), Message: m.GetString("message")}, true
}

// HTTPTransport performs calls as CBOR-over-HTTP POST requests. It holds no
// per-call state and is safe for concurrent use.
type HTTPTransport struct {
	BaseURL    string
	ProjectID  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewHTTPTransport creates a transport with sane defaults.
func NewHTTPTransport(baseURL, projectID string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL:   baseURL,
		ProjectID: projectID,
		Timeout:   10 * time.Second,
	}
}

// Invoke sends the request on its own goroutine and reports through done.
func (t *HTTPTransport) Invoke(ctx context.Context, d Descriptor, req *wire.Message, done Callback) {
	go func() {
		done(t.do(ctx, d, req))
	}()
}

func (t *HTTPTransport) do(ctx context.Context, d Descriptor, req *wire.Message) (*wire.Message, error) {
	body, err := wire.Marshal(req)
	if err != nil {
		return nil, Errorf(Internal, "encode request: %v", err)
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base()+PathPrefix+d.Method(), bytes.NewReader(body))
	if err != nil {
		return nil, Errorf(Internal, "build request: %v", err)
	}
	hreq.Header.Set("Content-Type", wire.ContentType)
	hreq.Header.Set("Accept", wire.ContentType)
	if project := t.project(ctx); project != "" {
		hreq.Header.Set(ProjectHeader, project)
	}
	resp, err := t.client().Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, FromError(ctx.Err())
		}
		return nil, Errorf(Unavailable, "%v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxMessageSize+1))
	if err != nil {
		return nil, Errorf(Unavailable, "read response: %v", err)
	}
	if len(data) > MaxMessageSize {
		return nil, Errorf(ResourceExhausted, "response exceeds %d bytes", MaxMessageSize)
	}
	if resp.StatusCode != http.StatusOK {
		if te, ok := decodeStatus(data); ok {
			return nil, te
		}
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, Errorf(codeFromHTTP(resp.StatusCode), "%s", msg)
	}
	m, err := wire.Unmarshal(d.Response, data)
	if err != nil {
		return nil, Errorf(Internal, "%v", err)
	}
	return m, nil
}

// project prefers a project attached to ctx over the transport's own.
func (t *HTTPTransport) project(ctx context.Context) string {
	if p := ProjectFromContext(ctx); p != "" {
		return p
	}
	return t.ProjectID
}

func (t *HTTPTransport) client() *http.Client {
	if t.HTTPClient != nil {
		return t.HTTPClient
	}
	return http.DefaultClient
}

func (t *HTTPTransport) base() string {
	return strings.TrimRight(t.BaseURL, "/")
}
