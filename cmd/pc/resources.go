package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pipeconsole/internal/config"
	"pipeconsole/internal/domain"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/server"
	"pipeconsole/internal/webapi"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	return t
}

func meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the caller identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.GetMe(ctx).Await(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(resp)
				}
				fmt.Printf("%s (%s) in project %s\n", resp.Subject, resp.ProjectRole, resp.ProjectID)
				return nil
			})
		},
	}
}

func overviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Summarize the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, cfg *config.Config) error {
				ov, err := server.BuildOverview(ctx, c, cfg.Project.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ov)
				}
				fmt.Printf("project %s, signed in as %s (%s)\n", ov.ProjectID, ov.Me.Subject, ov.Me.Role)
				fmt.Printf("environments: %d  pipeds: %d  applications: %d  pending events: %d\n",
					len(ov.Environments), ov.Pipeds, ov.Applications, ov.PendingEvents)
				t := newTable()
				t.AppendHeader(table.Row{"Group", "Value", "Count"})
				for k, n := range ov.ApplicationsByKind {
					t.AppendRow(table.Row{"kind", k, n})
				}
				for k, n := range ov.SyncStatuses {
					t.AppendRow(table.Row{"sync", k, n})
				}
				for k, n := range ov.PipedStatuses {
					t.AppendRow(table.Row{"piped", k, n})
				}
				t.SortBy([]table.SortBy{{Name: "Group"}, {Name: "Value"}})
				t.Render()
				if len(ov.RunningDeployments) > 0 {
					printDeployments(ov.RunningDeployments)
				}
				return nil
			})
		},
	}
}

func envCmd() *cobra.Command {
	env := &cobra.Command{Use: "env", Short: "Manage environments"}
	env.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List environments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.ListEnvironments(ctx).Await(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(resp.Environments)
				}
				t := newTable()
				t.AppendHeader(table.Row{"ID", "Name", "Pipeds", "Description", "Created"})
				for _, e := range resp.Environments {
					t.AppendRow(table.Row{e.ID, e.Name, len(e.PipedIDs), e.Desc, unixTime(e.CreatedAt)})
				}
				t.Render()
				return nil
			})
		},
	})
	var desc string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.AddEnvironment(ctx, args[0], desc).Await(ctx)
				if err != nil {
					return err
				}
				return printID(resp, resp.EnvironmentID)
			})
		},
	}
	add.Flags().StringVar(&desc, "desc", "", "description")
	env.AddCommand(add)
	return env
}

func pipedCmd() *cobra.Command {
	piped := &cobra.Command{
		Use:   "piped",
		Short: "Manage pipeds",
		Long:  "A piped is the agent that deploys the applications of its environments.",
	}
	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List pipeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				var opts *webapi.ListPipedsOptions
				if !all {
					opts = &webapi.ListPipedsOptions{Enabled: webapi.Bool(true)}
				}
				resp, err := c.ListPipeds(ctx, opts).Await(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(resp.Pipeds)
				}
				t := newTable()
				t.AppendHeader(table.Row{"ID", "Name", "Status", "Disabled", "Envs", "Version", "Started"})
				for _, p := range resp.Pipeds {
					t.AppendRow(table.Row{p.ID, p.Name, p.Status, p.Disabled, strings.Join(p.EnvIDs, ","), p.Version, unixTime(p.StartedAt)})
				}
				t.Render()
				return nil
			})
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include disabled pipeds")
	piped.AddCommand(list)

	piped.AddCommand(&cobra.Command{
		Use:   "get <piped-id>",
		Short: "Show a piped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.GetPiped(ctx, args[0]).Await(ctx)
				if err != nil {
					return err
				}
				p, err := present(resp.Piped, "piped", args[0])
				if err != nil {
					return err
				}
				return printJSONOrValue(p)
			})
		},
	})

	var desc string
	var envIDs []string
	register := &cobra.Command{
		Use:   "register <name>",
		Short: "Register a piped and print its credentials",
		Long:  "Prints the piped id, key and sealed secret private key. They are not shown again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.RegisterPiped(ctx, &webapi.RegisterPipedRequest{Name: args[0], Desc: desc, EnvIDs: envIDs}).Await(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(resp)
				}
				fmt.Println("id:  ", resp.ID)
				fmt.Println("key: ", resp.Key)
				fmt.Println("sealed secret private key:")
				fmt.Println(resp.SealedSecretPrivateKey)
				return nil
			})
		},
	}
	register.Flags().StringVar(&desc, "desc", "", "description")
	register.Flags().StringSliceVar(&envIDs, "env", nil, "environment ids the piped deploys to")
	piped.AddCommand(register)

	piped.AddCommand(&cobra.Command{
		Use:   "enable <piped-id>",
		Short: "Enable a piped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				if _, err := c.EnablePiped(ctx, args[0]).Await(ctx); err != nil {
					return err
				}
				fmt.Println("enabled", args[0])
				return nil
			})
		},
	})
	piped.AddCommand(&cobra.Command{
		Use:   "disable <piped-id>",
		Short: "Disable a piped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				if _, err := c.DisablePiped(ctx, args[0]).Await(ctx); err != nil {
					return err
				}
				fmt.Println("disabled", args[0])
				return nil
			})
		},
	})

	var b64 bool
	seal := &cobra.Command{
		Use:   "seal <piped-id> <data>",
		Short: "Encrypt data for a piped",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.GenerateApplicationSealedSecret(ctx, args[0], args[1], b64).Await(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(resp)
				}
				fmt.Println(resp.Data)
				return nil
			})
		},
	}
	seal.Flags().BoolVar(&b64, "base64", false, "data is base64 encoded")
	piped.AddCommand(seal)
	return piped
}

func appCmd() *cobra.Command {
	app := &cobra.Command{Use: "app", Short: "Manage applications"}

	var enabled string
	var kinds, syncStatuses, envIDs []string
	var labels map[string]string
	list := &cobra.Command{
		Use:   "list",
		Short: "List applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &webapi.ListApplicationsOptions{EnvIDs: envIDs, Labels: labels}
			switch enabled {
			case "":
			case "true":
				opts.Enabled = webapi.Bool(true)
			case "false":
				opts.Enabled = webapi.Bool(false)
			default:
				return fmt.Errorf("--enabled must be true or false")
			}
			var err error
			if opts.Kinds, err = parseAll(kinds, domain.ParseApplicationKind); err != nil {
				return err
			}
			if opts.SyncStatuses, err = parseAll(syncStatuses, domain.ParseApplicationSyncStatus); err != nil {
				return err
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.ListApplications(ctx, opts).Await(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(resp.Applications)
				}
				t := newTable()
				t.AppendHeader(table.Row{"ID", "Name", "Kind", "Env", "Sync", "Disabled", "Updated"})
				for _, a := range resp.Applications {
					sync := domain.ApplicationSyncStatusUnknown
					if a.SyncState != nil {
						sync = a.SyncState.Status
					}
					t.AppendRow(table.Row{a.ID, a.Name, a.Kind, a.EnvID, sync, a.Disabled, unixTime(a.UpdatedAt)})
				}
				t.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&enabled, "enabled", "", "filter by enabled (true|false)")
	list.Flags().StringSliceVar(&kinds, "kind", nil, "filter by kind")
	list.Flags().StringSliceVar(&syncStatuses, "sync-status", nil, "filter by sync status")
	list.Flags().StringSliceVar(&envIDs, "env", nil, "filter by environment id")
	list.Flags().StringToStringVar(&labels, "label", nil, "filter by label (key=value)")
	app.AddCommand(list)

	app.AddCommand(&cobra.Command{
		Use:   "get <application-id>",
		Short: "Show an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.GetApplication(ctx, args[0]).Await(ctx)
				if err != nil {
					return err
				}
				a, err := present(resp.Application, "application", args[0])
				if err != nil {
					return err
				}
				return printJSONOrValue(a)
			})
		},
	})

	var req webapi.AddApplicationRequest
	var kind, repoID, remote, branch, path, configFile string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseApplicationKind(kind)
			if err != nil {
				return err
			}
			req.Name = args[0]
			req.Kind = k
			req.GitPath = &domain.ApplicationGitPath{
				Repo:           &domain.ApplicationGitRepository{ID: repoID, Remote: remote, Branch: branch},
				Path:           path,
				ConfigFilename: configFile,
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.AddApplication(ctx, &req).Await(ctx)
				if err != nil {
					return err
				}
				return printID(resp, resp.ApplicationID)
			})
		},
	}
	add.Flags().StringVar(&req.EnvID, "env", "", "environment id")
	add.Flags().StringVar(&req.PipedID, "piped", "", "piped id")
	add.Flags().StringVar(&kind, "kind", "KUBERNETES", "application kind")
	add.Flags().StringVar(&req.CloudProvider, "cloud-provider", "", "cloud provider name")
	add.Flags().StringVar(&req.Description, "desc", "", "description")
	add.Flags().StringToStringVar(&req.Labels, "label", nil, "labels (key=value)")
	add.Flags().StringVar(&repoID, "repo", "", "git repository id")
	add.Flags().StringVar(&remote, "remote", "", "git remote")
	add.Flags().StringVar(&branch, "branch", "master", "git branch")
	add.Flags().StringVar(&path, "path", "", "application directory in the repository")
	add.Flags().StringVar(&configFile, "config-filename", "", "deployment config file name")
	app.AddCommand(add)

	app.AddCommand(&cobra.Command{
		Use:   "enable <application-id>",
		Short: "Enable an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				if _, err := c.EnableApplication(ctx, args[0]).Await(ctx); err != nil {
					return err
				}
				fmt.Println("enabled", args[0])
				return nil
			})
		},
	})
	app.AddCommand(&cobra.Command{
		Use:   "disable <application-id>",
		Short: "Disable an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				if _, err := c.DisableApplication(ctx, args[0]).Await(ctx); err != nil {
					return err
				}
				fmt.Println("disabled", args[0])
				return nil
			})
		},
	})
	app.AddCommand(&cobra.Command{
		Use:   "sync <application-id>",
		Short: "Ask the piped to sync an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.SyncApplication(ctx, args[0]).Await(ctx)
				if err != nil {
					return err
				}
				return printID(resp, resp.CommandID)
			})
		},
	})
	return app
}

func deploymentCmd() *cobra.Command {
	dep := &cobra.Command{Use: "deployment", Aliases: []string{"deploy"}, Short: "Inspect and control deployments"}

	var statuses, kinds, appIDs, envIDs []string
	var pageSize int32
	var cursor string
	list := &cobra.Command{
		Use:   "list",
		Short: "List deployments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &webapi.ListDeploymentsOptions{ApplicationIDs: appIDs, EnvIDs: envIDs}
			var err error
			if opts.Statuses, err = parseAll(statuses, domain.ParseDeploymentStatus); err != nil {
				return err
			}
			if opts.Kinds, err = parseAll(kinds, domain.ParseApplicationKind); err != nil {
				return err
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.ListDeployments(ctx, opts, webapi.Page{Size: pageSize, Cursor: cursor}).Await(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(resp)
				}
				printDeployments(resp.Deployments)
				if resp.Cursor != "" {
					fmt.Println("next cursor:", resp.Cursor)
				}
				return nil
			})
		},
	}
	list.Flags().StringSliceVar(&statuses, "status", nil, "filter by status")
	list.Flags().StringSliceVar(&kinds, "kind", nil, "filter by application kind")
	list.Flags().StringSliceVar(&appIDs, "app", nil, "filter by application id")
	list.Flags().StringSliceVar(&envIDs, "env", nil, "filter by environment id")
	list.Flags().Int32Var(&pageSize, "page-size", 0, "page size")
	list.Flags().StringVar(&cursor, "cursor", "", "cursor returned by the previous page")
	dep.AddCommand(list)

	dep.AddCommand(&cobra.Command{
		Use:   "get <deployment-id>",
		Short: "Show a deployment and its stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.GetDeployment(ctx, args[0]).Await(ctx)
				if err != nil {
					return err
				}
				d, err := present(resp.Deployment, "deployment", args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				fmt.Printf("%s %s (%s) %s\n", d.ID, d.ApplicationName, d.Kind, d.Status)
				if d.Summary != "" {
					fmt.Println(d.Summary)
				}
				t := newTable()
				t.AppendHeader(table.Row{"#", "Stage", "Name", "Status", "Retried", "Completed"})
				for _, st := range d.Stages {
					t.AppendRow(table.Row{st.Index, st.ID, st.Name, st.Status, st.RetriedCount, unixTime(st.CompletedAt)})
				}
				t.Render()
				return nil
			})
		},
	})

	var withoutRollback bool
	cancel := &cobra.Command{
		Use:   "cancel <deployment-id>",
		Short: "Cancel a running deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.CancelDeployment(ctx, &webapi.CancelDeploymentRequest{
					DeploymentID:    args[0],
					WithoutRollback: withoutRollback,
				}).Await(ctx)
				if err != nil {
					return err
				}
				return printID(resp, resp.CommandID)
			})
		},
	}
	cancel.Flags().BoolVar(&withoutRollback, "without-rollback", false, "stop without rolling back")
	dep.AddCommand(cancel)

	dep.AddCommand(&cobra.Command{
		Use:   "approve <deployment-id> <stage-id>",
		Short: "Approve a waiting stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.ApproveStage(ctx, args[0], args[1]).Await(ctx)
				if err != nil {
					return err
				}
				return printID(resp, resp.CommandID)
			})
		},
	})

	var retried int32
	var offset int64
	logs := &cobra.Command{
		Use:   "logs <deployment-id> <stage-id>",
		Short: "Print the log of a stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.GetStageLog(ctx, &webapi.GetStageLogRequest{
					DeploymentID: args[0],
					StageID:      args[1],
					RetriedCount: retried,
					OffsetIndex:  offset,
				}).Await(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(resp)
				}
				for _, b := range resp.Blocks {
					fmt.Printf("%s %-5s %s\n", unixTime(b.CreatedAt), b.Severity, b.Log)
				}
				if !resp.Completed {
					fmt.Println("(stage still running)")
				}
				return nil
			})
		},
	}
	logs.Flags().Int32Var(&retried, "retried", 0, "retry attempt of the stage")
	logs.Flags().Int64Var(&offset, "offset", 0, "first block index to print")
	dep.AddCommand(logs)
	return dep
}

func printDeployments(ds []*domain.Deployment) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Application", "Kind", "Status", "Summary", "Updated"})
	for _, d := range ds {
		t.AppendRow(table.Row{d.ID, d.ApplicationName, d.Kind, d.Status, d.Summary, unixTime(d.UpdatedAt)})
	}
	t.Render()
}

func eventCmd() *cobra.Command {
	ev := &cobra.Command{Use: "event", Short: "Inspect events"}
	var statuses []string
	var name, cursor string
	var labels map[string]string
	var pageSize int32
	list := &cobra.Command{
		Use:   "list",
		Short: "List events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &webapi.ListEventsOptions{Name: name, Labels: labels}
			var err error
			if opts.Statuses, err = parseAll(statuses, domain.ParseEventStatus); err != nil {
				return err
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := c.ListEvents(ctx, opts, webapi.Page{Size: pageSize, Cursor: cursor}).Await(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(resp)
				}
				t := newTable()
				t.AppendHeader(table.Row{"ID", "Name", "Status", "Labels", "Data", "Created"})
				for _, e := range resp.Events {
					t.AppendRow(table.Row{e.ID, e.Name, e.Status, formatLabels(e.Labels), e.Data, unixTime(e.CreatedAt)})
				}
				t.Render()
				if resp.Cursor != "" {
					fmt.Println("next cursor:", resp.Cursor)
				}
				return nil
			})
		},
	}
	list.Flags().StringSliceVar(&statuses, "status", nil, "filter by status")
	list.Flags().StringVar(&name, "name", "", "filter by event name")
	list.Flags().StringToStringVar(&labels, "label", nil, "filter by label (key=value)")
	list.Flags().Int32Var(&pageSize, "page-size", 0, "page size")
	list.Flags().StringVar(&cursor, "cursor", "", "cursor returned by the previous page")
	ev.AddCommand(list)
	return ev
}

func commandCmd() *cobra.Command {
	c := &cobra.Command{Use: "command", Short: "Inspect piped commands"}
	c.AddCommand(&cobra.Command{
		Use:   "get <command-id>",
		Short: "Show a command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, client *webapi.Client, _ *config.Config) error {
				resp, err := client.GetCommand(ctx, args[0]).Await(ctx)
				if err != nil {
					return err
				}
				cm, err := present(resp.Command, "command", args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cm)
				}
				fmt.Printf("%s %s %s by %s\n", cm.ID, cm.Type, cm.Status, cm.Commander)
				return nil
			})
		},
	})
	return c
}

// present rejects a response that left out the entity it was asked for.
func present[T any](v *T, kind, id string) (*T, error) {
	if v == nil {
		return nil, rpc.Errorf(rpc.NotFound, "%s %s is missing from the response", kind, id)
	}
	return v, nil
}

func parseAll[E any](names []string, parse func(string) (E, error)) ([]E, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]E, 0, len(names))
	for _, n := range names {
		v, err := parse(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func printID(resp any, id string) error {
	if viper.GetBool("json") {
		return printJSON(resp)
	}
	fmt.Println(id)
	return nil
}

func formatLabels(labels map[string]string) string {
	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
