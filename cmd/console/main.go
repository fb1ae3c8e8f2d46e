package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/app"
	"github.com/kapu/game-character-etl/internal/config"
	"github.com/kapu/game-character-etl/internal/service/console"
	"github.com/kapu/game-character-etl/internal/util"
)

var (
	addr   string
	remote string
)

func main() {
	root := &cobra.Command{
		Use:           "console",
		Short:         "Query the loaded character databases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&remote, "remote", "", "console server URL; query it instead of the databases")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query console over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(func(ctx context.Context, c *app.Container) error {
				listen := addr
				if listen == "" {
					listen = c.Config.Console.Addr
				}
				return console.NewServer(listen, c.Console, c.Logger).ListenAndServe(ctx)
			})
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default: CONSOLE_ADDR)")

	root.AddCommand(serveCmd,
		&cobra.Command{
			Use:   "databases",
			Short: "List logical databases, schemas and tables",
			RunE: func(cmd *cobra.Command, args []string) error {
				if remote != "" {
					return withClient(func(ctx context.Context, client *console.Client) error {
						views, err := client.Databases(ctx)
						if err != nil {
							return err
						}
						console.RenderDatabases(cmd.OutOrStdout(), views)
						return nil
					})
				}
				return withConsole(func(ctx context.Context, c *app.Container) error {
					views, err := c.Console.Describe(ctx)
					if err != nil {
						return err
					}
					console.RenderDatabases(cmd.OutOrStdout(), views)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "examples <database> <schema>",
			Short: "Show the example queries of a schema",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if remote != "" {
					return withClient(func(ctx context.Context, client *console.Client) error {
						examples, err := client.Examples(ctx, args[0], args[1])
						if err != nil {
							return err
						}
						console.RenderExamples(cmd.OutOrStdout(), examples)
						return nil
					})
				}
				return withConsole(func(ctx context.Context, c *app.Container) error {
					examples, err := c.Console.Examples(args[0], args[1])
					if err != nil {
						return err
					}
					console.RenderExamples(cmd.OutOrStdout(), examples)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "query <database> [sql]",
			Short: "Run one SQL query; reads it from stdin when omitted",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				query := ""
				if len(args) == 2 {
					query = args[1]
				} else {
					data, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("failed to read query: %w", err)
					}
					query = string(data)
				}
				if remote != "" {
					return withClient(func(ctx context.Context, client *console.Client) error {
						result, err := client.Query(ctx, args[0], strings.TrimSpace(query))
						if err != nil {
							return err
						}
						console.RenderResult(cmd.OutOrStdout(), result)
						return nil
					})
				}
				return withConsole(func(ctx context.Context, c *app.Container) error {
					result, err := c.Console.Run(ctx, args[0], strings.TrimSpace(query))
					if err != nil {
						return err
					}
					console.RenderResult(cmd.OutOrStdout(), result)
					return nil
				})
			},
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func withConsole(fn func(ctx context.Context, c *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		return err
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return fn(ctx, container)
}

func withClient(fn func(ctx context.Context, client *console.Client) error) error {
	logger, err := util.NewLogger("warn", "")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	client := console.NewClient(remote, logger)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return fn(ctx, client)
}
