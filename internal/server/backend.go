package server

import (
	"go.uber.org/zap"

	"pipeconsole/internal/engine"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
)

// NewBackend serves every web service operation from e.
func NewBackend(e engine.Engine, log *zap.Logger) *rpc.Server {
	s := rpc.NewServer(log)

	rpc.Register(s, webapi.AddEnvironment, e.AddEnvironment)
	rpc.Register(s, webapi.ListEnvironments, e.ListEnvironments)

	rpc.Register(s, webapi.RegisterPiped, e.RegisterPiped)
	rpc.Register(s, webapi.EnablePiped, e.EnablePiped)
	rpc.Register(s, webapi.DisablePiped, e.DisablePiped)
	rpc.Register(s, webapi.ListPipeds, e.ListPipeds)
	rpc.Register(s, webapi.GetPiped, e.GetPiped)

	rpc.Register(s, webapi.AddApplication, e.AddApplication)
	rpc.Register(s, webapi.EnableApplication, e.EnableApplication)
	rpc.Register(s, webapi.DisableApplication, e.DisableApplication)
	rpc.Register(s, webapi.ListApplications, e.ListApplications)
	rpc.Register(s, webapi.GetApplication, e.GetApplication)
	rpc.Register(s, webapi.SyncApplication, e.SyncApplication)
	rpc.Register(s, webapi.GenerateApplicationSealedSecret, e.GenerateApplicationSealedSecret)

	rpc.Register(s, webapi.ListDeployments, e.ListDeployments)
	rpc.Register(s, webapi.GetDeployment, e.GetDeployment)
	rpc.Register(s, webapi.GetStageLog, e.GetStageLog)
	rpc.Register(s, webapi.CancelDeployment, e.CancelDeployment)
	rpc.Register(s, webapi.ApproveStage, e.ApproveStage)

	rpc.Register(s, webapi.ListEvents, e.ListEvents)
	rpc.Register(s, webapi.GetCommand, e.GetCommand)
	rpc.Register(s, webapi.GetMe, e.GetMe)
	return s
}
