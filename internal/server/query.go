package server

import (
	"fmt"
	"strconv"
	"strings"

	"pipeconsole/internal/domain"
	"pipeconsole/internal/webapi"
)

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseEach[E any](s string, parse func(string) (E, error)) ([]E, error) {
	var out []E
	for _, part := range splitList(s) {
		v, err := parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseLabels reads "k1=v1,k2=v2".
func parseLabels(s string) (map[string]string, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(parts))
	for _, part := range parts {
		k, v, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid label %q, want key=value", part)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

func parseEnabled(s string) (*webapi.BoolValue, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid enabled filter %q", s)
	}
	return webapi.Bool(v), nil
}

type applicationQuery struct {
	Enabled      string `query:"enabled" doc:"true or false"`
	Kinds        string `query:"kind" doc:"comma separated application kinds"`
	SyncStatuses string `query:"sync_status" doc:"comma separated sync statuses"`
	EnvIDs       string `query:"env_id" doc:"comma separated environment ids"`
	Labels       string `query:"labels" doc:"comma separated key=value pairs"`
}

func (q applicationQuery) options() (*webapi.ListApplicationsOptions, error) {
	if q == (applicationQuery{}) {
		return nil, nil
	}
	enabled, err := parseEnabled(q.Enabled)
	if err != nil {
		return nil, err
	}
	kinds, err := parseEach(q.Kinds, domain.ParseApplicationKind)
	if err != nil {
		return nil, err
	}
	statuses, err := parseEach(q.SyncStatuses, domain.ParseApplicationSyncStatus)
	if err != nil {
		return nil, err
	}
	labels, err := parseLabels(q.Labels)
	if err != nil {
		return nil, err
	}
	return &webapi.ListApplicationsOptions{
		Enabled:      enabled,
		Kinds:        kinds,
		SyncStatuses: statuses,
		EnvIDs:       splitList(q.EnvIDs),
		Labels:       labels,
	}, nil
}

type PageParams struct {
	PageSize     int32  `query:"page_size" minimum:"0"`
	Cursor       string `query:"cursor"`
	MinUpdatedAt int64  `query:"min_updated_at"`
}

func (q PageParams) page() webapi.Page {
	return webapi.Page{Size: q.PageSize, Cursor: q.Cursor, MinUpdatedAt: q.MinUpdatedAt}
}

type deploymentQuery struct {
	PageParams
	Statuses       string `query:"status" doc:"comma separated deployment statuses"`
	Kinds          string `query:"kind" doc:"comma separated application kinds"`
	ApplicationIDs string `query:"application_id" doc:"comma separated application ids"`
	EnvIDs         string `query:"env_id" doc:"comma separated environment ids"`
}

func (q deploymentQuery) options() (*webapi.ListDeploymentsOptions, error) {
	if q.Statuses == "" && q.Kinds == "" && q.ApplicationIDs == "" && q.EnvIDs == "" {
		return nil, nil
	}
	statuses, err := parseEach(q.Statuses, domain.ParseDeploymentStatus)
	if err != nil {
		return nil, err
	}
	kinds, err := parseEach(q.Kinds, domain.ParseApplicationKind)
	if err != nil {
		return nil, err
	}
	return &webapi.ListDeploymentsOptions{
		Statuses:       statuses,
		Kinds:          kinds,
		ApplicationIDs: splitList(q.ApplicationIDs),
		EnvIDs:         splitList(q.EnvIDs),
	}, nil
}

type eventQuery struct {
	PageParams
	Statuses string `query:"status" doc:"comma separated event statuses"`
	Name     string `query:"name"`
	Labels   string `query:"labels" doc:"comma separated key=value pairs"`
}

func (q eventQuery) options() (*webapi.ListEventsOptions, error) {
	if q.Statuses == "" && q.Name == "" && q.Labels == "" {
		return nil, nil
	}
	statuses, err := parseEach(q.Statuses, domain.ParseEventStatus)
	if err != nil {
		return nil, err
	}
	labels, err := parseLabels(q.Labels)
	if err != nil {
		return nil, err
	}
	return &webapi.ListEventsOptions{Statuses: statuses, Name: q.Name, Labels: labels}, nil
}
