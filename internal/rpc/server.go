package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pipeconsole/internal/dto"
	"pipeconsole/internal/wire"
)

// Handler serves one method on decoded wire messages.
type Handler func(ctx context.Context, req *wire.Message) (*wire.Message, error)

type route struct {
	desc    Descriptor
	handler Handler
}

// Server exposes registered handlers over HTTP and in process.
type Server struct {
	router chi.Router
	log    *zap.Logger
	routes map[string]route
}

type projectKey struct{}

// ProjectFromContext returns the project id sent with the call, if any.
func ProjectFromContext(ctx context.Context) string {
	p, _ := ctx.Value(projectKey{}).(string)
	return p
}

// WithProject attaches a project id to ctx the way the HTTP server does.
func WithProject(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectKey{}, projectID)
}

// NewServer returns an empty server. A nil logger disables logging.
func NewServer(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		router: chi.NewRouter(),
		log:    log,
		routes: make(map[string]route),
	}
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "ok")
	})
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, Errorf(Unimplemented, "unknown method %s", strings.TrimPrefix(r.URL.Path, PathPrefix)))
	})
	return s
}

// Handle registers h for d. Registering the same method twice panics.
func (s *Server) Handle(d Descriptor, h Handler) {
	method := d.Method()
	if _, ok := s.routes[method]; ok {
		panic(fmt.Sprintf("rpc: method %s registered twice", method))
	}
	s.routes[method] = route{desc: d, handler: h}
	s.router.Post(PathPrefix+method, func(w http.ResponseWriter, r *http.Request) {
		s.serveHTTP(w, r, d, h)
	})
}

// Register serves op with a handler on plain objects.
func Register[Req, Resp any](s *Server, op *Operation[Req, Resp], h func(ctx context.Context, req *Req) (*Resp, error)) {
	s.Handle(op.Descriptor, func(ctx context.Context, msg *wire.Message) (*wire.Message, error) {
		req, err := dto.ProjectAs[Req](op.Request, msg)
		if err != nil {
			return nil, Errorf(InvalidArgument, "%v", err)
		}
		resp, err := h(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			resp = new(Resp)
		}
		out, err := dto.Marshal(op.Response, resp)
		if err != nil {
			return nil, fmt.Errorf("marshal %s response: %w", op.Method(), err)
		}
		return out, nil
	})
}

// Methods lists the registered methods sorted by name.
func (s *Server) Methods() []Descriptor {
	out := make([]Descriptor, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method() < out[j].Method() })
	return out
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request, d Descriptor, h Handler) {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != wire.ContentType {
		writeStatus(w, Errorf(InvalidArgument, "unsupported content type %q", ct))
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxMessageSize+1))
	if err != nil {
		writeStatus(w, Errorf(InvalidArgument, "read request: %v", err))
		return
	}
	if len(data) > MaxMessageSize {
		writeStatus(w, Errorf(ResourceExhausted, "request exceeds %d bytes", MaxMessageSize))
		return
	}
	req, err := wire.Unmarshal(d.Request, data)
	if err != nil {
		writeStatus(w, Errorf(InvalidArgument, "%v", err))
		return
	}
	ctx := WithProject(r.Context(), r.Header.Get(ProjectHeader))
	resp, err := s.call(ctx, d, h, req)
	if err != nil {
		writeStatus(w, FromError(err))
		return
	}
	out, err := wire.Marshal(resp)
	if err != nil {
		writeStatus(w, Errorf(Internal, "encode response: %v", err))
		return
	}
	w.Header().Set("Content-Type", wire.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// call runs a handler and normalizes its outcome. Errors that are not
// TransportErrors are logged and reported as Internal.
func (s *Server) call(ctx context.Context, d Descriptor, h Handler, req *wire.Message) (*wire.Message, error) {
	start := time.Now()
	resp, err := h(ctx, req)
	if err == nil && (resp == nil || resp.Schema() != d.Response) {
		err = fmt.Errorf("handler returned no %s message", d.Response.Name)
	}
	code := CodeOf(err)
	fields := []zap.Field{
		zap.String("method", d.Method()),
		zap.Stringer("code", code),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err == nil {
		s.log.Debug("rpc call", fields...)
		return resp, nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		s.log.Info("rpc call failed", append(fields, zap.String("message", te.Message))...)
		return nil, te
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, FromError(err)
	}
	s.log.Error("rpc handler error", append(fields, zap.Error(err))...)
	return nil, Errorf(Internal, "internal error")
}

func writeStatus(w http.ResponseWriter, te *TransportError) {
	w.Header().Set("Content-Type", wire.ContentType)
	w.WriteHeader(te.Code.HTTPStatus())
	w.Write(encodeStatus(te))
}

// Local returns a transport that dispatches to s without HTTP. Requests and
// responses still go through the wire encoding. projectID applies to calls
// whose context carries no project.
func (s *Server) Local(projectID string) Transport {
	return TransportFunc(func(ctx context.Context, d Descriptor, req *wire.Message, done Callback) {
		if ProjectFromContext(ctx) == "" {
			ctx = WithProject(ctx, projectID)
		}
		go func() {
			done(s.invokeLocal(ctx, d, req))
		}()
	})
}

func (s *Server) invokeLocal(ctx context.Context, d Descriptor, req *wire.Message) (*wire.Message, error) {
	r, ok := s.routes[d.Method()]
	if !ok {
		return nil, Errorf(Unimplemented, "unknown method %s", d.Method())
	}
	data, err := wire.Marshal(req)
	if err != nil {
		return nil, Errorf(Internal, "encode request: %v", err)
	}
	decoded, err := wire.Unmarshal(r.desc.Request, data)
	if err != nil {
		return nil, Errorf(InvalidArgument, "%v", err)
	}
	resp, err := s.call(ctx, r.desc, r.handler, decoded)
	if err != nil {
		return nil, err
	}
	out, err := wire.Marshal(resp)
	if err != nil {
		return nil, Errorf(Internal, "encode response: %v", err)
	}
	m, err := wire.Unmarshal(d.Response, out)
	if err != nil {
		return nil, Errorf(Internal, "%v", err)
	}
	return m, nil
}
