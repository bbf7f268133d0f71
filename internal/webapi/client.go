package webapi

import (
	"context"

	"pipeconsole/internal/rpc"
)

// Client calls the web service through a transport. Every method returns a
// future resolving with the plain response.
type Client struct {
	t rpc.Transport
}

// NewClient binds a client to t.
func NewClient(t rpc.Transport) *Client {
	return &Client{t: t}
}

// Transport returns the bound transport.
func (c *Client) Transport() rpc.Transport { return c.t }

func (c *Client) AddEnvironment(ctx context.Context, name, desc string) *rpc.Future[*AddEnvironmentResponse] {
	return AddEnvironment.Call(ctx, c.t, &AddEnvironmentRequest{Name: name, Desc: desc})
}

func (c *Client) ListEnvironments(ctx context.Context) *rpc.Future[*ListEnvironmentsResponse] {
	return ListEnvironments.Call(ctx, c.t, &ListEnvironmentsRequest{})
}

func (c *Client) RegisterPiped(ctx context.Context, req *RegisterPipedRequest) *rpc.Future[*RegisterPipedResponse] {
	return RegisterPiped.Call(ctx, c.t, req)
}

func (c *Client) EnablePiped(ctx context.Context, pipedID string) *rpc.Future[*EnablePipedResponse] {
	return EnablePiped.Call(ctx, c.t, &EnablePipedRequest{PipedID: pipedID})
}

func (c *Client) DisablePiped(ctx context.Context, pipedID string) *rpc.Future[*DisablePipedResponse] {
	return DisablePiped.Call(ctx, c.t, &DisablePipedRequest{PipedID: pipedID})
}

// ListPipeds sends no Options sub-message when opts is nil.
func (c *Client) ListPipeds(ctx context.Context, opts *ListPipedsOptions) *rpc.Future[*ListPipedsResponse] {
	return ListPipeds.Call(ctx, c.t, &ListPipedsRequest{Options: opts})
}

func (c *Client) GetPiped(ctx context.Context, pipedID string) *rpc.Future[*GetPipedResponse] {
	return GetPiped.Call(ctx, c.t, &GetPipedRequest{PipedID: pipedID})
}

func (c *Client) AddApplication(ctx context.Context, req *AddApplicationRequest) *rpc.Future[*AddApplicationResponse] {
	return AddApplication.Call(ctx, c.t, req)
}

func (c *Client) EnableApplication(ctx context.Context, applicationID string) *rpc.Future[*EnableApplicationResponse] {
	return EnableApplication.Call(ctx, c.t, &EnableApplicationRequest{ApplicationID: applicationID})
}

func (c *Client) DisableApplication(ctx context.Context, applicationID string) *rpc.Future[*DisableApplicationResponse] {
	return DisableApplication.Call(ctx, c.t, &DisableApplicationRequest{ApplicationID: applicationID})
}

// ListApplications sends no Options sub-message when opts is nil.
func (c *Client) ListApplications(ctx context.Context, opts *ListApplicationsOptions) *rpc.Future[*ListApplicationsResponse] {
	return ListApplications.Call(ctx, c.t, &ListApplicationsRequest{Options: opts})
}

func (c *Client) GetApplication(ctx context.Context, applicationID string) *rpc.Future[*GetApplicationResponse] {
	return GetApplication.Call(ctx, c.t, &GetApplicationRequest{ApplicationID: applicationID})
}

func (c *Client) SyncApplication(ctx context.Context, applicationID string) *rpc.Future[*SyncApplicationResponse] {
	return SyncApplication.Call(ctx, c.t, &SyncApplicationRequest{ApplicationID: applicationID})
}

// GenerateApplicationSealedSecret encrypts data for the given piped.
func (c *Client) GenerateApplicationSealedSecret(ctx context.Context, pipedID, data string, base64Encoding bool) *rpc.Future[*GenerateApplicationSealedSecretResponse] {
	return GenerateApplicationSealedSecret.Call(ctx, c.t, &GenerateApplicationSealedSecretRequest{
		PipedID:        pipedID,
		Data:           data,
		Base64Encoding: base64Encoding,
	})
}

// Page selects one page of a listing.
type Page struct {
	Size         int32
	Cursor       string
	MinUpdatedAt int64
}

// ListDeployments sends no Options sub-message when opts is nil.
func (c *Client) ListDeployments(ctx context.Context, opts *ListDeploymentsOptions, page Page) *rpc.Future[*ListDeploymentsResponse] {
	return ListDeployments.Call(ctx, c.t, &ListDeploymentsRequest{
		Options:          opts,
		PageSize:         page.Size,
		Cursor:           page.Cursor,
		PageMinUpdatedAt: page.MinUpdatedAt,
	})
}

func (c *Client) GetDeployment(ctx context.Context, deploymentID string) *rpc.Future[*GetDeploymentResponse] {
	return GetDeployment.Call(ctx, c.t, &GetDeploymentRequest{DeploymentID: deploymentID})
}

func (c *Client) GetStageLog(ctx context.Context, req *GetStageLogRequest) *rpc.Future[*GetStageLogResponse] {
	return GetStageLog.Call(ctx, c.t, req)
}

func (c *Client) CancelDeployment(ctx context.Context, req *CancelDeploymentRequest) *rpc.Future[*CancelDeploymentResponse] {
	return CancelDeployment.Call(ctx, c.t, req)
}

func (c *Client) ApproveStage(ctx context.Context, deploymentID, stageID string) *rpc.Future[*ApproveStageResponse] {
	return ApproveStage.Call(ctx, c.t, &ApproveStageRequest{DeploymentID: deploymentID, StageID: stageID})
}

// ListEvents sends no Options sub-message when opts is nil.
func (c *Client) ListEvents(ctx context.Context, opts *ListEventsOptions, page Page) *rpc.Future[*ListEventsResponse] {
	return ListEvents.Call(ctx, c.t, &ListEventsRequest{
		Options:          opts,
		PageSize:         page.Size,
		Cursor:           page.Cursor,
		PageMinUpdatedAt: page.MinUpdatedAt,
	})
}

func (c *Client) GetCommand(ctx context.Context, commandID string) *rpc.Future[*GetCommandResponse] {
	return GetCommand.Call(ctx, c.t, &GetCommandRequest{CommandID: commandID})
}

func (c *Client) GetMe(ctx context.Context) *rpc.Future[*GetMeResponse] {
	return GetMe.Call(ctx, c.t, &GetMeRequest{})
}
