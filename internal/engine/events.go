package engine

import (
	"context"
	"slices"

	"pipeconsole/internal/domain"
	"pipeconsole/internal/webapi"
)

func (e Engine) ListEvents(ctx context.Context, req *webapi.ListEventsRequest) (*webapi.ListEventsResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	l, err := listing(req.PageSize, req.Cursor, req.PageMinUpdatedAt)
	if err != nil {
		return nil, err
	}
	var keep func(*domain.Event) bool
	if opts := req.Options; opts != nil {
		keep = func(ev *domain.Event) bool {
			if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, ev.Status) {
				return false
			}
			if opts.Name != "" && ev.Name != opts.Name {
				return false
			}
			return labelsMatch(opts.Labels, ev.Labels)
		}
	}
	events, cursor, err := e.Repo.ListEvents(ctx, projectID, l, keep)
	if err != nil {
		return nil, storeError(err, "event", "")
	}
	return &webapi.ListEventsResponse{Events: events, Cursor: cursor}, nil
}

func (e Engine) GetCommand(ctx context.Context, req *webapi.GetCommandRequest) (*webapi.GetCommandResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	c, err := e.Repo.GetCommand(ctx, nil, projectID, req.CommandID)
	if err != nil {
		return nil, storeError(err, "command", req.CommandID)
	}
	return &webapi.GetCommandResponse{Command: c}, nil
}

// GetMe reports who the console acts as.
func (e Engine) GetMe(ctx context.Context, _ *webapi.GetMeRequest) (*webapi.GetMeResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	role := "VIEWER"
	if e.Config != nil && e.Config.Project.Role != "" {
		role = e.Config.Project.Role
	}
	return &webapi.GetMeResponse{Subject: e.subject(), ProjectID: projectID, ProjectRole: role}, nil
}
