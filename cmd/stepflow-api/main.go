package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dukex/stepflow/pkg/builder"
	"github.com/dukex/stepflow/pkg/cmd"
	"github.com/dukex/stepflow/pkg/log"
	"github.com/dukex/stepflow/pkg/metrics"
	"github.com/dukex/stepflow/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort        = 9091
	defaultMaxSessions = 500
	defaultSessionTTL  = 30 * time.Minute
	defaultLockTTL     = time.Minute
)

func main() {
	logger := log.WithModule("api")

	app := &cli.Command{
		Name:                  "stepflow-api",
		Usage:                 "Serve validation workflows and builder sessions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres://... or a directory)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the save locks shared between replicas",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Usage:   "Idle time after which a builder session is dropped",
				Value:   defaultSessionTTL,
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.IntFlag{
				Name:    "max-sessions",
				Usage:   "Maximum number of open builder sessions",
				Value:   defaultMaxSessions,
				Sources: cli.EnvVars("MAX_SESSIONS"),
			},
			&cli.StringFlag{
				Name:    "cleanup-schedule",
				Usage:   "Cron schedule of the idle session cleanup",
				Value:   "@every 1m",
				Sources: cli.EnvVars("SESSION_CLEANUP_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing stepflow API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to initialize persistence: %w", err)
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return fmt.Errorf("failed to initialize event bus: %w", err)
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			if err := NewAuditLog(logger).Register(eventBus); err != nil {
				return err
			}

			if err := eventBus.Subscribe(ctx); err != nil {
				return fmt.Errorf("failed to subscribe to events: %w", err)
			}

			locker, closeLocker, err := cmd.NewLocker(ctx, command.String("redis-url"), defaultLockTTL)
			if err != nil {
				return fmt.Errorf("failed to initialize save locks: %w", err)
			}

			defer func() {
				if err := closeLocker(); err != nil {
					logger.ErrorContext(ctx, "Failed to close save locks", "error", err)
				}
			}()

			m := metrics.New()

			sessionOptions := []builder.Option{
				builder.WithLocker(locker),
				builder.WithMetrics(m),
				builder.WithLogger(logger),
			}

			if command.Bool("tracing") {
				tracer, shutdown, err := otelhelper.NewTracer(ctx, "stepflow-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.WithoutCancel(ctx)); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				sessionOptions = append(sessionOptions, builder.WithTracer(tracer))
			}

			store := builder.NewStore(command.Int("max-sessions"), command.Duration("session-ttl"), m, logger)

			stopCleanup, err := store.StartCleanup(command.String("cleanup-schedule"))
			if err != nil {
				return err
			}
			defer stopCleanup()

			api := NewAPI(logger, persistence, eventBus, store, m, sessionOptions...)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
