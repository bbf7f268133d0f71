// Package server exposes the console over HTTP: the backend serving the
// web service operations, a JSON gateway for the browser console on top of
// a webapi.Client, and the dispatcher posting activity to webhooks.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pipeconsole/internal/domain"
	"pipeconsole/internal/dto"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
)

// Config for the console gateway.
type Config struct {
	Client *webapi.Client
	// Project is used when a request names none.
	Project  string
	BasePath string
	Timeout  time.Duration
	Log      *zap.Logger
}

type apiErrorBody struct {
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"application app-1 not found"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

type output[T any] struct {
	Body T
}

// New returns the console gateway handler.
func New(cfg Config) (http.Handler, error) {
	if cfg.Client == nil {
		return nil, errors.New("console gateway needs a web service client")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		if len(errs) > 0 {
			details := make([]string, 0, len(errs))
			for _, err := range errs {
				details = append(details, err.Error())
			}
			msg = msg + ": " + strings.Join(details, "; ")
		}
		return newAPIError(status, "", msg)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(log))
	router.Use(projectScope(cfg.Project))
	if cfg.Timeout > 0 {
		router.Use(middleware.Timeout(cfg.Timeout))
	}
	hcfg := huma.DefaultConfig("Pipeconsole API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	c := cfg.Client
	registerDocs(router)
	registerHealth(group)
	registerMe(group, c)
	registerOverview(group, newOverviewer(c, cfg.Timeout))
	registerEnvironments(group, c)
	registerPipeds(group, c)
	registerApplications(group, c)
	registerDeployments(group, c)
	registerEvents(group, c)
	return router, nil
}

func newAPIError(status int, code, message string) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

// handleError maps a failed call onto the envelope. The transport code
// picks the HTTP status.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var sm *dto.ShapeMismatch
	if errors.As(err, &sm) {
		return newAPIError(http.StatusBadRequest, "", sm.Error())
	}
	te := rpc.FromError(err)
	return newAPIError(te.Code.HTTPStatus(), strings.ToLower(te.Code.String()), te.Message)
}

func badRequest(err error) huma.StatusError {
	return newAPIError(http.StatusBadRequest, "invalid_argument", err.Error())
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "already_exists"
	case http.StatusPreconditionFailed:
		return "failed_precondition"
	case http.StatusInternalServerError:
		return "internal"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// respond waits for f and wraps its value as the response body.
func respond[T any](ctx context.Context, f *rpc.Future[T]) (*output[T], error) {
	v, err := f.Await(ctx)
	if err != nil {
		return nil, handleError(err)
	}
	return &output[T]{Body: v}, nil
}

func registerDocs(r chi.Router) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML("/openapi.json"))
	})
}

func swaggerHTML(specURL string) string {
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Pipeconsole API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Select a project with the X-Project-Id header or the project query parameter.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*output[map[string]string], error) {
		return &output[map[string]string]{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerMe(api huma.API, c *webapi.Client) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current subject and project role",
	}, func(ctx context.Context, _ *struct{}) (*output[*webapi.GetMeResponse], error) {
		return respond(ctx, c.GetMe(ctx))
	})
}

func registerEnvironments(api huma.API, c *webapi.Client) {
	huma.Register(api, huma.Operation{
		OperationID: "list-environments",
		Method:      http.MethodGet,
		Path:        "/environments",
		Summary:     "List environments",
		Tags:        []string{"environments"},
	}, func(ctx context.Context, _ *struct{}) (*output[*webapi.ListEnvironmentsResponse], error) {
		return respond(ctx, c.ListEnvironments(ctx))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-environment",
		Method:        http.MethodPost,
		Path:          "/environments",
		Summary:       "Add environment",
		Tags:          []string{"environments"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		Body NewEnvironmentBody
	}) (*output[IDResult], error) {
		resp, err := c.AddEnvironment(ctx, in.Body.Name, in.Body.Desc).Await(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[IDResult]{Body: IDResult{ID: resp.EnvironmentID}}, nil
	})
}

type pipedPath struct {
	PipedID string `path:"piped_id"`
}

func registerPipeds(api huma.API, c *webapi.Client) {
	huma.Register(api, huma.Operation{
		OperationID: "list-pipeds",
		Method:      http.MethodGet,
		Path:        "/pipeds",
		Summary:     "List pipeds",
		Tags:        []string{"pipeds"},
	}, func(ctx context.Context, in *struct {
		Enabled string `query:"enabled" doc:"true or false"`
	}) (*output[*webapi.ListPipedsResponse], error) {
		enabled, err := parseEnabled(in.Enabled)
		if err != nil {
			return nil, badRequest(err)
		}
		var opts *webapi.ListPipedsOptions
		if enabled != nil {
			opts = &webapi.ListPipedsOptions{Enabled: enabled}
		}
		return respond(ctx, c.ListPipeds(ctx, opts))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-piped",
		Method:      http.MethodGet,
		Path:        "/pipeds/{piped_id}",
		Summary:     "Get piped",
		Tags:        []string{"pipeds"},
	}, func(ctx context.Context, in *pipedPath) (*output[*webapi.GetPipedResponse], error) {
		return respond(ctx, c.GetPiped(ctx, in.PipedID))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-piped",
		Method:        http.MethodPost,
		Path:          "/pipeds",
		Summary:       "Register piped",
		Description:   "The returned key and sealed secret private key are only shown once.",
		Tags:          []string{"pipeds"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		Body NewPipedBody
	}) (*output[*webapi.RegisterPipedResponse], error) {
		return respond(ctx, c.RegisterPiped(ctx, &webapi.RegisterPipedRequest{
			Name:   in.Body.Name,
			Desc:   in.Body.Desc,
			EnvIDs: in.Body.EnvIDs,
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "enable-piped",
		Method:        http.MethodPost,
		Path:          "/pipeds/{piped_id}/enable",
		Summary:       "Enable piped",
		Tags:          []string{"pipeds"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *pipedPath) (*struct{}, error) {
		if _, err := c.EnablePiped(ctx, in.PipedID).Await(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "disable-piped",
		Method:        http.MethodPost,
		Path:          "/pipeds/{piped_id}/disable",
		Summary:       "Disable piped",
		Tags:          []string{"pipeds"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *pipedPath) (*struct{}, error) {
		if _, err := c.DisablePiped(ctx, in.PipedID).Await(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "generate-sealed-secret",
		Method:      http.MethodPost,
		Path:        "/pipeds/{piped_id}/sealed-secrets",
		Summary:     "Encrypt a secret for a piped",
		Tags:        []string{"pipeds"},
	}, func(ctx context.Context, in *struct {
		PipedID string `path:"piped_id"`
		Body    SealedSecretBody
	}) (*output[SealedSecretResult], error) {
		resp, err := c.GenerateApplicationSealedSecret(ctx, in.PipedID, in.Body.Data, in.Body.Base64Encoding).Await(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[SealedSecretResult]{Body: SealedSecretResult{Data: resp.Data}}, nil
	})
}

type applicationPath struct {
	ApplicationID string `path:"application_id"`
}

func registerApplications(api huma.API, c *webapi.Client) {
	huma.Register(api, huma.Operation{
		OperationID: "list-applications",
		Method:      http.MethodGet,
		Path:        "/applications",
		Summary:     "List applications",
		Tags:        []string{"applications"},
	}, func(ctx context.Context, in *applicationQuery) (*output[*webapi.ListApplicationsResponse], error) {
		opts, err := in.options()
		if err != nil {
			return nil, badRequest(err)
		}
		return respond(ctx, c.ListApplications(ctx, opts))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-application",
		Method:      http.MethodGet,
		Path:        "/applications/{application_id}",
		Summary:     "Get application",
		Tags:        []string{"applications"},
	}, func(ctx context.Context, in *applicationPath) (*output[*webapi.GetApplicationResponse], error) {
		return respond(ctx, c.GetApplication(ctx, in.ApplicationID))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-application",
		Method:        http.MethodPost,
		Path:          "/applications",
		Summary:       "Add application",
		Tags:          []string{"applications"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		Body NewApplicationBody
	}) (*output[IDResult], error) {
		kind, err := domain.ParseApplicationKind(in.Body.Kind)
		if err != nil {
			return nil, badRequest(err)
		}
		gp := in.Body.GitPath
		resp, err := c.AddApplication(ctx, &webapi.AddApplicationRequest{
			Name:    in.Body.Name,
			EnvID:   in.Body.EnvID,
			PipedID: in.Body.PipedID,
			GitPath: &domain.ApplicationGitPath{
				Repo:           &domain.ApplicationGitRepository{ID: gp.RepoID, Remote: gp.Remote, Branch: gp.Branch},
				Path:           gp.Path,
				ConfigFilename: gp.ConfigFilename,
			},
			Kind:          kind,
			CloudProvider: in.Body.CloudProvider,
			Description:   in.Body.Description,
			Labels:        in.Body.Labels,
		}).Await(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[IDResult]{Body: IDResult{ID: resp.ApplicationID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "enable-application",
		Method:        http.MethodPost,
		Path:          "/applications/{application_id}/enable",
		Summary:       "Enable application",
		Tags:          []string{"applications"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *applicationPath) (*struct{}, error) {
		if _, err := c.EnableApplication(ctx, in.ApplicationID).Await(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "disable-application",
		Method:        http.MethodPost,
		Path:          "/applications/{application_id}/disable",
		Summary:       "Disable application",
		Tags:          []string{"applications"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *applicationPath) (*struct{}, error) {
		if _, err := c.DisableApplication(ctx, in.ApplicationID).Await(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-application",
		Method:      http.MethodPost,
		Path:        "/applications/{application_id}/sync",
		Summary:     "Sync application",
		Tags:        []string{"applications"},
	}, func(ctx context.Context, in *applicationPath) (*output[CommandResult], error) {
		resp, err := c.SyncApplication(ctx, in.ApplicationID).Await(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[CommandResult]{Body: CommandResult{CommandID: resp.CommandID}}, nil
	})
}

type deploymentPath struct {
	DeploymentID string `path:"deployment_id"`
}

func registerDeployments(api huma.API, c *webapi.Client) {
	huma.Register(api, huma.Operation{
		OperationID: "list-deployments",
		Method:      http.MethodGet,
		Path:        "/deployments",
		Summary:     "List deployments",
		Description: "Newest first. Pass the returned cursor to fetch the next page.",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, in *deploymentQuery) (*output[*webapi.ListDeploymentsResponse], error) {
		opts, err := in.options()
		if err != nil {
			return nil, badRequest(err)
		}
		return respond(ctx, c.ListDeployments(ctx, opts, in.page()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-deployment",
		Method:      http.MethodGet,
		Path:        "/deployments/{deployment_id}",
		Summary:     "Get deployment",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, in *deploymentPath) (*output[*webapi.GetDeploymentResponse], error) {
		return respond(ctx, c.GetDeployment(ctx, in.DeploymentID))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stage-log",
		Method:      http.MethodGet,
		Path:        "/deployments/{deployment_id}/stages/{stage_id}/log",
		Summary:     "Get stage log",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, in *struct {
		DeploymentID string `path:"deployment_id"`
		StageID      string `path:"stage_id"`
		RetriedCount int32  `query:"retried_count" minimum:"0"`
		Offset       int64  `query:"offset" minimum:"0"`
	}) (*output[*webapi.GetStageLogResponse], error) {
		return respond(ctx, c.GetStageLog(ctx, &webapi.GetStageLogRequest{
			DeploymentID: in.DeploymentID,
			StageID:      in.StageID,
			RetriedCount: in.RetriedCount,
			OffsetIndex:  in.Offset,
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-deployment",
		Method:      http.MethodPost,
		Path:        "/deployments/{deployment_id}/cancel",
		Summary:     "Cancel deployment",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, in *struct {
		DeploymentID string                `path:"deployment_id"`
		Body         *CancelDeploymentBody `required:"false"`
	}) (*output[CommandResult], error) {
		req := &webapi.CancelDeploymentRequest{DeploymentID: in.DeploymentID}
		if in.Body != nil {
			req.WithoutRollback = in.Body.WithoutRollback
		}
		resp, err := c.CancelDeployment(ctx, req).Await(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[CommandResult]{Body: CommandResult{CommandID: resp.CommandID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-stage",
		Method:      http.MethodPost,
		Path:        "/deployments/{deployment_id}/stages/{stage_id}/approve",
		Summary:     "Approve stage",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, in *struct {
		DeploymentID string `path:"deployment_id"`
		StageID      string `path:"stage_id"`
	}) (*output[CommandResult], error) {
		resp, err := c.ApproveStage(ctx, in.DeploymentID, in.StageID).Await(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &output[CommandResult]{Body: CommandResult{CommandID: resp.CommandID}}, nil
	})
}

func registerEvents(api huma.API, c *webapi.Client) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events",
		Tags:        []string{"events"},
	}, func(ctx context.Context, in *eventQuery) (*output[*webapi.ListEventsResponse], error) {
		opts, err := in.options()
		if err != nil {
			return nil, badRequest(err)
		}
		return respond(ctx, c.ListEvents(ctx, opts, in.page()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-command",
		Method:      http.MethodGet,
		Path:        "/commands/{command_id}",
		Summary:     "Get command",
		Tags:        []string{"events"},
	}, func(ctx context.Context, in *struct {
		CommandID string `path:"command_id"`
	}) (*output[*webapi.GetCommandResponse], error) {
		return respond(ctx, c.GetCommand(ctx, in.CommandID))
	})
}

func registerOverview(api huma.API, o *overviewer) {
	huma.Register(api, huma.Operation{
		OperationID: "get-overview",
		Method:      http.MethodGet,
		Path:        "/overview",
		Summary:     "Project overview",
	}, func(ctx context.Context, _ *struct{}) (*output[*Overview], error) {
		ov, err := o.get(ctx, rpc.ProjectFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &output[*Overview]{Body: ov}, nil
	})
}
