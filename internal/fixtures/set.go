package fixtures

import "pipeconsole/internal/domain"

// Set is a consistent demo project: one environment and piped, one
// application per kind, a deployment per application and a few events.
type Set struct {
	Environment  *domain.Environment
	Piped        *domain.Piped
	Applications []*domain.Application
	Deployments  []*domain.Deployment
	Events       []*domain.Event
	// StageLogs holds the log of every started stage, keyed by
	// deployment id then stage id.
	StageLogs map[string]map[string][]*domain.LogBlock
}

// NewSet builds a fresh Set.
func NewSet() *Set {
	env := Environment()
	piped := Piped(env.ID)
	env.PipedIDs = []string{piped.ID}

	s := &Set{
		Environment: env,
		Piped:       piped,
		StageLogs:   make(map[string]map[string][]*domain.LogBlock),
	}
	for _, kind := range domain.ApplicationKinds {
		app := ApplicationOf(kind)
		app.EnvID = env.ID
		app.PipedID = piped.ID
		d := Deployment(app)
		app.MostRecentlyTriggeredDeployment.DeploymentID = d.ID
		app.SyncState.HeadDeploymentID = d.ID
		app.Deploying = true
		app.SyncState.Status = domain.ApplicationSyncStatusDeploying

		logs := make(map[string][]*domain.LogBlock)
		for _, st := range d.Stages {
			if st.Status != domain.StageStatusNotStartedYet {
				logs[st.ID] = LogBlocks(3)
			}
		}
		s.Applications = append(s.Applications, app)
		s.Deployments = append(s.Deployments, d)
		s.StageLogs[d.ID] = logs
	}
	for i := 0; i < 3; i++ {
		s.Events = append(s.Events, Event())
	}
	return s
}

// IDs returns every entity id in the set.
func (s *Set) IDs() []string {
	ids := []string{s.Environment.ID, s.Piped.ID}
	for _, a := range s.Applications {
		ids = append(ids, a.ID)
	}
	for _, d := range s.Deployments {
		ids = append(ids, d.ID)
	}
	for _, e := range s.Events {
		ids = append(ids, e.ID)
	}
	return ids
}
