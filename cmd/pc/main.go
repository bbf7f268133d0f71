package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pipeconsole/internal/app"
	"pipeconsole/internal/config"
	"pipeconsole/internal/logging"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/server"
	"pipeconsole/internal/webapi"
)

var rootCmd = &cobra.Command{
	Use:   "pc",
	Short: "Pipeconsole CLI",
	Long: `Pipeconsole is the web console of a continuous delivery system.
- Backend: serves the web service operations as CBOR over HTTP (pc backend).
- Console: the JSON gateway the browser talks to, in front of the backend (pc serve).
- Project: every call acts on one project, from console.yml, --project or X-Project-Id.
- Piped: the agent deploying applications of its environments; it receives the commands the console enqueues.
- Activity: the log of console actions, delivered to webhooks and shown by pc activity list.
Without --local, commands call the backend at backend.address.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PIPECONSOLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.String("project", "", "project id (overrides console.yml)")
	flags.Bool("json", false, "output JSON")
	flags.Bool("local", false, "serve calls in process from the workspace store instead of the backend")
	flags.String("backend", "", "backend address (overrides backend.address)")
	flags.String("log-level", "", "log level (overrides log.level)")
	for _, name := range []string{"workspace", "project", "json", "local", "backend", "log-level"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(backendCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(meCmd())
	rootCmd.AddCommand(overviewCmd())
	rootCmd.AddCommand(envCmd())
	rootCmd.AddCommand(pipedCmd())
	rootCmd.AddCommand(appCmd())
	rootCmd.AddCommand(deploymentCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(commandCmd())
	rootCmd.AddCommand(callCmd())
	rootCmd.AddCommand(fixturesCmd())
	rootCmd.AddCommand(activityCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage console.yml",
		Long:  "console.yml names the project, the backend and console addresses, the store, logging and webhooks.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default console.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := viper.GetString("project")
			if projectID == "" {
				return fmt.Errorf("--project required")
			}
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(projectID)), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate console.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func backendCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Serve the web service operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			if addr == "" {
				addr = cfg.Backend.Listen
			}
			b, err := app.OpenBackend(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()
			if b.Webhooks != nil {
				go b.Webhooks.Run(ctx)
			}
			log.Info("serving backend",
				zap.String("addr", addr),
				zap.String("project", cfg.Project.ID),
				zap.Int("methods", len(b.Server.Methods())))
			return listenAndServe(ctx, &http.Server{Addr: addr, Handler: b.Server})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides backend.listen)")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var embedded bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the console gateway",
		Long:  "Serves the JSON API of the browser console. OpenAPI is at /openapi.json and Swagger UI at /docs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			if addr == "" {
				addr = cfg.Console.Listen
			}
			var transport rpc.Transport
			if embedded || viper.GetBool("local") {
				b, err := app.OpenBackend(ctx, cfg, log)
				if err != nil {
					return err
				}
				defer b.Close()
				if b.Webhooks != nil {
					go b.Webhooks.Run(ctx)
				}
				transport = b.Local()
			} else {
				t := remoteTransport(cfg)
				if err := waitForBackend(ctx, t.BaseURL, log); err != nil {
					return err
				}
				transport = t
			}
			handler, err := server.New(server.Config{
				Client:   webapi.NewClient(transport),
				Project:  cfg.Project.ID,
				BasePath: basePath,
				Timeout:  cfg.BackendTimeout(),
				Log:      log.Named("console"),
			})
			if err != nil {
				return err
			}
			log.Info("serving console", zap.String("addr", addr), zap.String("base_path", basePath))
			return listenAndServe(ctx, &http.Server{Addr: addr, Handler: handler})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides console.listen)")
	cmd.Flags().StringVar(&basePath, "base-path", "/api/v1", "API base path")
	cmd.Flags().BoolVar(&embedded, "embedded", false, "run the backend in the same process")
	return cmd
}

func listenAndServe(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// waitForBackend polls the backend health check with exponential backoff
// until it answers or ctx ends.
func waitForBackend(ctx context.Context, baseURL string, log *zap.Logger) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = time.Minute
	url := strings.TrimRight(baseURL, "/") + "/healthz"
	return backoff.RetryNotify(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("backend health check returned %d", res.StatusCode)
		}
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		log.Info("waiting for backend", zap.String("url", url), zap.Duration("retry_in", wait), zap.Error(err))
	})
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	return app.ResolveConfig(viper.GetString("workspace"), viper.GetString("project"))
}

func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if l := viper.GetString("log-level"); l != "" {
		level = l
	}
	log, err := logging.New(level, cfg.Log.Encoding)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func remoteTransport(cfg *config.Config) *rpc.HTTPTransport {
	addr := viper.GetString("backend")
	if addr == "" {
		addr = cfg.Backend.Address
	}
	t := rpc.NewHTTPTransport(addr, cfg.Project.ID)
	t.Timeout = cfg.BackendTimeout()
	return t
}

// withClient runs fn with a web service client: in process over the
// workspace store with --local, against the backend otherwise.
func withClient(ctx context.Context, fn func(context.Context, *webapi.Client, *config.Config) error) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	if viper.GetBool("local") {
		b, err := app.OpenBackend(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer b.Close()
		return fn(ctx, webapi.NewClient(b.Local()), cfg)
	}
	return fn(ctx, webapi.NewClient(remoteTransport(cfg)), cfg)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSONOrValue(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func unixTime(sec int64) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
