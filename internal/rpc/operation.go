package rpc

import (
	"context"

	"pipeconsole/internal/dto"
	"pipeconsole/internal/wire"
)

// Descriptor names one remote method and the schemas of its messages.
type Descriptor struct {
	Service  string
	Name     string
	Request  *wire.Schema
	Response *wire.Schema
}

// Method returns the fully qualified method name, "Service/Name".
func (d Descriptor) Method() string { return d.Service + "/" + d.Name }

// Callback receives the outcome of one call. Transports must call it exactly
// once; further calls are ignored.
type Callback func(resp *wire.Message, err error)

// Transport performs unary calls. Invoke must not block on the remote side:
// the outcome is reported through done.
type Transport interface {
	Invoke(ctx context.Context, d Descriptor, req *wire.Message, done Callback)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, d Descriptor, req *wire.Message, done Callback)

func (f TransportFunc) Invoke(ctx context.Context, d Descriptor, req *wire.Message, done Callback) {
	f(ctx, d, req, done)
}

// Operation binds a Descriptor to the plain request and response types it
// converts from and to.
type Operation[Req, Resp any] struct {
	Descriptor
}

// NewOperation declares a remote operation.
func NewOperation[Req, Resp any](service, name string, req, resp *wire.Schema) *Operation[Req, Resp] {
	return &Operation[Req, Resp]{Descriptor: Descriptor{
		Service:  service,
		Name:     name,
		Request:  req,
		Response: resp,
	}}
}

// Call marshals req, invokes the transport and resolves with the projected
// response. A request that does not fit the request schema fails the future
// with a dto.ShapeMismatch before the transport is touched.
func (op *Operation[Req, Resp]) Call(ctx context.Context, t Transport, req *Req) *Future[*Resp] {
	msg, err := dto.Marshal(op.Request, req)
	if err != nil {
		return Failed[*Resp](err)
	}
	return op.CallMessage(ctx, t, msg)
}

// CallMessage invokes the transport with an already built request message.
func (op *Operation[Req, Resp]) CallMessage(ctx context.Context, t Transport, msg *wire.Message) *Future[*Resp] {
	if msg == nil {
		return Failed[*Resp](&dto.ShapeMismatch{Schema: op.Request.Name, Path: op.Request.Name, Reason: "nil request message"})
	}
	if msg.Schema() != op.Request {
		return Failed[*Resp](&dto.ShapeMismatch{
			Schema: op.Request.Name,
			Path:   op.Request.Name,
			Reason: "request message of schema " + msg.Schema().Name,
		})
	}
	return invoke(ctx, t, op.Descriptor, msg, func(resp *wire.Message) (*Resp, error) {
		return dto.ProjectAs[Resp](op.Response, resp)
	})
}

// Do is Call followed by Await.
func (op *Operation[Req, Resp]) Do(ctx context.Context, t Transport, req *Req) (*Resp, error) {
	return op.Call(ctx, t, req).Await(ctx)
}

// CallObject invokes d with a dynamic request and resolves with the dynamic
// form of the response.
func CallObject(ctx context.Context, t Transport, d Descriptor, req dto.Object) *Future[dto.Object] {
	if req == nil {
		req = dto.Object{}
	}
	msg, err := dto.Marshal(d.Request, req)
	if err != nil {
		return Failed[dto.Object](err)
	}
	return invoke(ctx, t, d, msg, func(resp *wire.Message) (dto.Object, error) {
		if resp.Schema() != d.Response {
			return nil, &dto.ShapeMismatch{Schema: d.Response.Name, Path: d.Response.Name, Reason: "response message of schema " + resp.Schema().Name}
		}
		return dto.ProjectObject(resp), nil
	})
}

func invoke[T any](ctx context.Context, t Transport, d Descriptor, msg *wire.Message, project func(*wire.Message) (T, error)) *Future[T] {
	f := newFuture[T]()
	t.Invoke(ctx, d, msg, func(resp *wire.Message, err error) {
		var zero T
		if err != nil {
			f.complete(zero, FromError(err))
			return
		}
		if resp == nil {
			f.complete(zero, Errorf(Internal, "%s: empty response", d.Method()))
			return
		}
		out, perr := project(resp)
		if perr != nil {
			f.complete(zero, Errorf(Internal, "%s: decode response: %v", d.Method(), perr))
			return
		}
		f.complete(out, nil)
	})
	return f
}
