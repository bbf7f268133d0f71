package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
	"pipeconsole/internal/wire"
)

func TestOverviewSharedBuildOutlivesCancelledCaller(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	transport := rpc.TransportFunc(func(ctx context.Context, d rpc.Descriptor, req *wire.Message, done rpc.Callback) {
		if d.Name == "GetMe" {
			calls.Add(1)
		}
		go func() {
			select {
			case <-release:
				done(wire.NewMessage(d.Response), nil)
			case <-ctx.Done():
				done(nil, ctx.Err())
			}
		}()
	})
	o := newOverviewer(webapi.NewClient(transport), time.Minute)

	first, cancel := context.WithCancel(context.Background())
	firstCh := o.join(first, "project-1")
	secondCh := o.join(context.Background(), "project-1")

	cancel()
	if _, err := o.wait(first, firstCh); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to get context.Canceled, got %v", err)
	}

	close(release)
	ov, err := o.wait(context.Background(), secondCh)
	if err != nil {
		t.Fatalf("second caller: %v", err)
	}
	if ov.ProjectID != "project-1" {
		t.Fatalf("unexpected project %q", ov.ProjectID)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one shared build, got %d", n)
	}
}

func TestOverviewCallerGivesUpOnItsOwnDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	transport := rpc.TransportFunc(func(ctx context.Context, d rpc.Descriptor, req *wire.Message, done rpc.Callback) {
		go func() {
			<-release
			done(wire.NewMessage(d.Response), nil)
		}()
	})
	o := newOverviewer(webapi.NewClient(transport), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := o.get(ctx, "project-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}
