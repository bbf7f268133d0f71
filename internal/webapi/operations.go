// Package webapi declares the operations of the console web service: their
// plain request and response types, wire schemas and a typed client.
package webapi

import (
	"sort"
	"strings"

	"pipeconsole/internal/rpc"
	"pipeconsole/internal/wire"
)

// Service is the name every operation is routed under.
const Service = "WebService"

func op[Req, Resp any](name string, req, resp *wire.Schema) *rpc.Operation[Req, Resp] {
	return rpc.NewOperation[Req, Resp](Service, name, req, resp)
}

var (
	AddEnvironment   = op[AddEnvironmentRequest, AddEnvironmentResponse]("AddEnvironment", addEnvironmentRequestSchema, addEnvironmentResponseSchema)
	ListEnvironments = op[ListEnvironmentsRequest, ListEnvironmentsResponse]("ListEnvironments", listEnvironmentsRequestSchema, listEnvironmentsResponseSchema)

	RegisterPiped = op[RegisterPipedRequest, RegisterPipedResponse]("RegisterPiped", registerPipedRequestSchema, registerPipedResponseSchema)
	EnablePiped   = op[EnablePipedRequest, EnablePipedResponse]("EnablePiped", enablePipedRequestSchema, enablePipedResponseSchema)
	DisablePiped  = op[DisablePipedRequest, DisablePipedResponse]("DisablePiped", disablePipedRequestSchema, disablePipedResponseSchema)
	ListPipeds    = op[ListPipedsRequest, ListPipedsResponse]("ListPipeds", listPipedsRequestSchema, listPipedsResponseSchema)
	GetPiped      = op[GetPipedRequest, GetPipedResponse]("GetPiped", getPipedRequestSchema, getPipedResponseSchema)

	AddApplication                  = op[AddApplicationRequest, AddApplicationResponse]("AddApplication", addApplicationRequestSchema, addApplicationResponseSchema)
	EnableApplication               = op[EnableApplicationRequest, EnableApplicationResponse]("EnableApplication", enableApplicationRequestSchema, enableApplicationResponseSchema)
	DisableApplication              = op[DisableApplicationRequest, DisableApplicationResponse]("DisableApplication", disableApplicationRequestSchema, disableApplicationResponseSchema)
	ListApplications                = op[ListApplicationsRequest, ListApplicationsResponse]("ListApplications", listApplicationsRequestSchema, listApplicationsResponseSchema)
	GetApplication                  = op[GetApplicationRequest, GetApplicationResponse]("GetApplication", getApplicationRequestSchema, getApplicationResponseSchema)
	SyncApplication                 = op[SyncApplicationRequest, SyncApplicationResponse]("SyncApplication", syncApplicationRequestSchema, syncApplicationResponseSchema)
	GenerateApplicationSealedSecret = op[GenerateApplicationSealedSecretRequest, GenerateApplicationSealedSecretResponse]("GenerateApplicationSealedSecret", generateApplicationSealedSecretRequestSchema, generateApplicationSealedSecretResponseSchema)

	ListDeployments  = op[ListDeploymentsRequest, ListDeploymentsResponse]("ListDeployments", listDeploymentsRequestSchema, listDeploymentsResponseSchema)
	GetDeployment    = op[GetDeploymentRequest, GetDeploymentResponse]("GetDeployment", getDeploymentRequestSchema, getDeploymentResponseSchema)
	GetStageLog      = op[GetStageLogRequest, GetStageLogResponse]("GetStageLog", getStageLogRequestSchema, getStageLogResponseSchema)
	CancelDeployment = op[CancelDeploymentRequest, CancelDeploymentResponse]("CancelDeployment", cancelDeploymentRequestSchema, cancelDeploymentResponseSchema)
	ApproveStage     = op[ApproveStageRequest, ApproveStageResponse]("ApproveStage", approveStageRequestSchema, approveStageResponseSchema)

	ListEvents = op[ListEventsRequest, ListEventsResponse]("ListEvents", listEventsRequestSchema, listEventsResponseSchema)
	GetCommand = op[GetCommandRequest, GetCommandResponse]("GetCommand", getCommandRequestSchema, getCommandResponseSchema)
	GetMe      = op[GetMeRequest, GetMeResponse]("GetMe", getMeRequestSchema, getMeResponseSchema)
)

// Descriptors lists every operation sorted by name.
func Descriptors() []rpc.Descriptor {
	out := []rpc.Descriptor{
		AddEnvironment.Descriptor,
		ListEnvironments.Descriptor,
		RegisterPiped.Descriptor,
		EnablePiped.Descriptor,
		DisablePiped.Descriptor,
		ListPipeds.Descriptor,
		GetPiped.Descriptor,
		AddApplication.Descriptor,
		EnableApplication.Descriptor,
		DisableApplication.Descriptor,
		ListApplications.Descriptor,
		GetApplication.Descriptor,
		SyncApplication.Descriptor,
		GenerateApplicationSealedSecret.Descriptor,
		ListDeployments.Descriptor,
		GetDeployment.Descriptor,
		GetStageLog.Descriptor,
		CancelDeployment.Descriptor,
		ApproveStage.Descriptor,
		ListEvents.Descriptor,
		GetCommand.Descriptor,
		GetMe.Descriptor,
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds an operation by name, with or without the service prefix and
// ignoring case.
func Lookup(name string) (rpc.Descriptor, bool) {
	name = strings.TrimPrefix(strings.TrimSpace(name), Service+"/")
	for _, d := range Descriptors() {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return rpc.Descriptor{}, false
}
