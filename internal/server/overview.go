package server

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"pipeconsole/internal/domain"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
)

const (
	// runningPageSize bounds the deployments listed on the overview.
	runningPageSize = 20
	// defaultOverviewTimeout bounds a shared build when no timeout is configured.
	defaultOverviewTimeout = 30 * time.Second
)

// overviewer fans out the calls behind the overview page. Concurrent
// requests for one project share a single fan out, which runs detached from
// any one caller so a caller going away does not fail the others.
type overviewer struct {
	client  *webapi.Client
	timeout time.Duration
	group   singleflight.Group
}

func newOverviewer(c *webapi.Client, timeout time.Duration) *overviewer {
	if timeout <= 0 {
		timeout = defaultOverviewTimeout
	}
	return &overviewer{client: c, timeout: timeout}
}

// BuildOverview fetches the overview of projectID through c.
func BuildOverview(ctx context.Context, c *webapi.Client, projectID string) (*Overview, error) {
	return newOverviewer(c, 0).build(ctx, projectID)
}

func (o *overviewer) get(ctx context.Context, projectID string) (*Overview, error) {
	return o.wait(ctx, o.join(ctx, projectID))
}

// join starts the build for projectID or attaches to the one in flight.
func (o *overviewer) join(ctx context.Context, projectID string) <-chan singleflight.Result {
	return o.group.DoChan(projectID, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		defer cancel()
		return o.build(shared, projectID)
	})
}

func (o *overviewer) wait(ctx context.Context, ch <-chan singleflight.Result) (*Overview, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Overview), nil
	}
}

func (o *overviewer) build(ctx context.Context, projectID string) (*Overview, error) {
	if projectID != "" {
		ctx = rpc.WithProject(ctx, projectID)
	}
	ov := &Overview{
		ProjectID:          projectID,
		ApplicationsByKind: map[string]int{},
		SyncStatuses:       map[string]int{},
		PipedStatuses:      map[string]int{},
		RunningDeployments: []*domain.Deployment{},
		Environments:       []*domain.Environment{},
	}
	// Every call is in flight before the first wait.
	me := o.client.GetMe(ctx)
	apps := o.client.ListApplications(ctx, &webapi.ListApplicationsOptions{Enabled: webapi.Bool(true)})
	deployments := o.client.ListDeployments(ctx, &webapi.ListDeploymentsOptions{
		Statuses: []domain.DeploymentStatus{
			domain.DeploymentStatusPending,
			domain.DeploymentStatusPlanned,
			domain.DeploymentStatusRunning,
			domain.DeploymentStatusRollingBack,
		},
	}, webapi.Page{Size: runningPageSize})
	pipeds := o.client.ListPipeds(ctx, &webapi.ListPipedsOptions{Enabled: webapi.Bool(true)})
	events := o.client.ListEvents(ctx, &webapi.ListEventsOptions{
		Statuses: []domain.EventStatus{domain.EventStatusNotHandled},
	}, webapi.Page{})
	envs := o.client.ListEnvironments(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := me.Await(ctx)
		if err != nil {
			return err
		}
		ov.Me = OverviewMe{Subject: resp.Subject, Role: resp.ProjectRole}
		return nil
	})
	g.Go(func() error {
		resp, err := apps.Await(ctx)
		if err != nil {
			return err
		}
		ov.Applications = len(resp.Applications)
		for _, app := range resp.Applications {
			ov.ApplicationsByKind[app.Kind.String()]++
			status := domain.ApplicationSyncStatusUnknown
			if app.SyncState != nil {
				status = app.SyncState.Status
			}
			ov.SyncStatuses[status.String()]++
		}
		return nil
	})
	g.Go(func() error {
		resp, err := deployments.Await(ctx)
		if err != nil {
			return err
		}
		ov.RunningDeployments = append(ov.RunningDeployments, resp.Deployments...)
		return nil
	})
	g.Go(func() error {
		resp, err := pipeds.Await(ctx)
		if err != nil {
			return err
		}
		ov.Pipeds = len(resp.Pipeds)
		for _, p := range resp.Pipeds {
			ov.PipedStatuses[p.Status.String()]++
		}
		return nil
	})
	g.Go(func() error {
		resp, err := events.Await(ctx)
		if err != nil {
			return err
		}
		ov.PendingEvents = len(resp.Events)
		return nil
	})
	g.Go(func() error {
		resp, err := envs.Await(ctx)
		if err != nil {
			return err
		}
		ov.Environments = append(ov.Environments, resp.Environments...)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ov, nil
}
