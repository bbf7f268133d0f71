package webapi_test

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"pipeconsole/internal/domain"
	"pipeconsole/internal/dto"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
	"pipeconsole/internal/wire"
)

// recorder answers every call with an empty response and keeps the request.
type recorder struct {
	method string
	req    *wire.Message
}

func (r *recorder) transport() rpc.Transport {
	return rpc.TransportFunc(func(ctx context.Context, d rpc.Descriptor, req *wire.Message, done rpc.Callback) {
		r.method = d.Method()
		r.req = req
		done(wire.NewMessage(d.Response), nil)
	})
}

func TestDescriptorsAndLookup(t *testing.T) {
	ds := webapi.Descriptors()
	if len(ds) != 22 {
		t.Fatalf("expected 22 operations, got %d", len(ds))
	}
	if !sort.SliceIsSorted(ds, func(i, j int) bool { return ds[i].Name < ds[j].Name }) {
		t.Fatal("expected descriptors sorted by name")
	}
	for _, name := range []string{"ListApplications", "listapplications", "WebService/ListApplications"} {
		d, ok := webapi.Lookup(name)
		if !ok || d.Name != "ListApplications" {
			t.Fatalf("lookup %q: got %+v, %v", name, d, ok)
		}
	}
	if _, ok := webapi.Lookup("DeleteApplication"); ok {
		t.Fatal("expected unknown operation")
	}
}

func TestListFiltersPassThrough(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	c := webapi.NewClient(rec.transport())

	opts := &webapi.ListDeploymentsOptions{
		Statuses: []domain.DeploymentStatus{domain.DeploymentStatusPlanned, domain.DeploymentStatusRunning},
		EnvIDs:   []string{"env-1"},
	}
	if _, err := c.ListDeployments(ctx, opts, webapi.Page{Size: 10, Cursor: "abc"}).Await(ctx); err != nil {
		t.Fatalf("list deployments: %v", err)
	}
	if rec.method != "WebService/ListDeployments" {
		t.Fatalf("unexpected method %q", rec.method)
	}
	sent, err := dto.ProjectAs[webapi.ListDeploymentsRequest](rec.req.Schema(), rec.req)
	if err != nil {
		t.Fatalf("project request: %v", err)
	}
	if diff := cmp.Diff(opts, sent.Options, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if sent.PageSize != 10 || sent.Cursor != "abc" {
		t.Fatalf("unexpected page %d %q", sent.PageSize, sent.Cursor)
	}
}

func TestAbsentOptionsStayUnset(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	c := webapi.NewClient(rec.transport())

	if _, err := c.ListApplications(ctx, nil).Await(ctx); err != nil {
		t.Fatalf("list applications: %v", err)
	}
	if rec.req.Has("options") {
		t.Fatal("expected no options sub-message")
	}
	if _, err := c.ListEvents(ctx, nil, webapi.Page{}).Await(ctx); err != nil {
		t.Fatalf("list events: %v", err)
	}
	if rec.req.Has("options") {
		t.Fatal("expected no options sub-message")
	}
	if _, err := c.ListPipeds(ctx, &webapi.ListPipedsOptions{Enabled: webapi.Bool(false)}).Await(ctx); err != nil {
		t.Fatalf("list pipeds: %v", err)
	}
	opts := rec.req.GetMessage("options")
	if opts == nil || !opts.Has("enabled") {
		t.Fatal("expected an explicit enabled=false filter")
	}
	if opts.GetMessage("enabled").GetBool("value") {
		t.Fatal("expected enabled=false")
	}
}

func TestCancelCarriesWithoutRollback(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	c := webapi.NewClient(rec.transport())

	if _, err := c.CancelDeployment(ctx, &webapi.CancelDeploymentRequest{DeploymentID: "d-1", WithoutRollback: true}).Await(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if rec.method != "WebService/CancelDeployment" {
		t.Fatalf("unexpected method %q", rec.method)
	}
	if !rec.req.GetBool("withoutRollback") || rec.req.GetString("deploymentId") != "d-1" {
		t.Fatalf("unexpected request %v", rec.req)
	}
	sent, err := dto.ProjectAs[webapi.CancelDeploymentRequest](rec.req.Schema(), rec.req)
	if err != nil {
		t.Fatalf("project request: %v", err)
	}
	want := &webapi.CancelDeploymentRequest{DeploymentID: "d-1", WithoutRollback: true}
	if diff := cmp.Diff(want, sent); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}
