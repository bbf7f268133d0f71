package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pipeconsole/internal/app"
	"pipeconsole/internal/config"
	"pipeconsole/internal/db"
	"pipeconsole/internal/dto"
	"pipeconsole/internal/fixtures"
	"pipeconsole/internal/migrate"
	"pipeconsole/internal/repo"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
	"pipeconsole/internal/wire"
)

func callCmd() *cobra.Command {
	var data string
	var showWire, list bool
	cmd := &cobra.Command{
		Use:   "call [operation]",
		Short: "Call any web service operation with a JSON request",
		Long: `Marshals the JSON request through the operation schema, sends it and prints the response as JSON.
Field names are the wire names, e.g. pc call ListApplications --data '{"options":{"kindsList":[0]}}'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list || len(args) == 0 {
				t := newTable()
				t.AppendHeader(table.Row{"Operation", "Request", "Response"})
				for _, d := range webapi.Descriptors() {
					t.AppendRow(table.Row{d.Name, d.Request.Name, d.Response.Name})
				}
				t.Render()
				return nil
			}
			d, ok := webapi.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown operation %q", args[0])
			}
			req := dto.Object{}
			if strings.TrimSpace(data) != "" {
				if err := json.Unmarshal([]byte(data), &req); err != nil {
					return fmt.Errorf("parse --data: %w", err)
				}
			}
			if showWire {
				encoded, err := dto.Encode(d.Request, req)
				if err != nil {
					return err
				}
				diag, err := wire.Diagnose(encoded)
				if err != nil {
					return err
				}
				fmt.Println("request:", diag)
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *webapi.Client, _ *config.Config) error {
				resp, err := rpc.CallObject(ctx, c.Transport(), d, req).Await(ctx)
				if err != nil {
					return err
				}
				return printJSON(resp)
			})
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "request as JSON")
	cmd.Flags().BoolVar(&showWire, "wire", false, "print the encoded request in CBOR diagnostic notation")
	cmd.Flags().BoolVar(&list, "list", false, "list the operations")
	return cmd
}

func fixturesCmd() *cobra.Command {
	fx := &cobra.Command{
		Use:   "fixtures",
		Short: "Demo data",
		Long:  "A demo project has one environment, one piped, one application per kind with a running deployment, and a few events.",
	}
	fx.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print a freshly generated demo set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(fixtures.NewSet())
		},
	})
	fx.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Store a demo set in the workspace store",
		Long:  "Does nothing when the project already has applications.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			cfg.Store.Seed = false
			b, err := app.OpenBackend(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()
			seeded, err := b.Seed(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"project": cfg.Project.ID, "seeded": seeded})
			}
			if seeded {
				fmt.Println("seeded project", cfg.Project.ID)
			} else {
				fmt.Println("project", cfg.Project.ID, "already has applications")
			}
			return nil
		},
	})
	return fx
}

func activityCmd() *cobra.Command {
	act := &cobra.Command{Use: "activity", Short: "Inspect the console action log of the workspace store"}
	var after int64
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.InMemory {
				return fmt.Errorf("the store is in memory; activity is only kept by a running backend")
			}
			conn, err := db.Open(db.Config{Workspace: cfg.Store.Workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			items, err := repo.Repo{DB: conn}.ActivitiesAfter(cmd.Context(), cfg.Project.ID, after, limit)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			t := newTable()
			t.AppendHeader(table.Row{"Seq", "Time", "Type", "Entity", "Actor", "Payload"})
			for _, a := range items {
				t.AppendRow(table.Row{a.Seq, a.TS, a.Type, a.EntityKind + " " + a.EntityID, a.Actor, a.Payload})
			}
			t.Render()
			return nil
		},
	}
	list.Flags().Int64Var(&after, "after", 0, "only entries with a greater sequence number")
	list.Flags().IntVar(&limit, "limit", 50, "max entries")
	act.AddCommand(list)
	return act
}
