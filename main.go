package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"debugdiary/internal/config"
	"debugdiary/internal/logging"
	"debugdiary/internal/mailer"
	"debugdiary/internal/repositories"
	"debugdiary/internal/services"
	"debugdiary/internal/telemetry"
	"debugdiary/pkg/rabbitmq"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const (
	shutdownTimeout   = 10 * time.Second
	rabbitDialTimeout = 30 * time.Second
)

var (
	configFile string
	withWorker bool

	cfg       *config.Config
	log       *zap.Logger
	providers *telemetry.Providers

	newLogger = logging.New
)

var rootCmd = &cobra.Command{
	Use:           "debugdiary",
	Short:         "Debug Diary API server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(viper.New(), configFile)
		if err != nil {
			return err
		}

		log, err = newLogger(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}

		providers, err = telemetry.Init(cmd.Context(), telemetry.Options{
			Enabled:     cfg.OTelEnabled,
			Stdout:      cfg.OTelStdout,
			ServiceName: "debugdiary",
			Version:     Version,
		})
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()
		log.Info("migrations applied", zap.String("driver", cfg.DBDriver))
		return nil
	},
}

var mailWorkerCmd = &cobra.Command{
	Use:   "mail-worker",
	Short: "Deliver queued verification emails over SMTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mq, err := dialRabbitMQ(cmd.Context())
		if err != nil {
			return err
		}
		defer mq.Close()
		return runWorker(cmd.Context(), mq)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	serveCmd.Flags().BoolVar(&withWorker, "with-worker", false, "also run the mail worker in-process (queue mail driver only)")
	rootCmd.AddCommand(serveCmd, migrateCmd, mailWorkerCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// execute runs the command line and flushes telemetry and logs afterwards,
// including when the command fails.
func execute(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	defer flush(ctx)
	return rootCmd.ExecuteContext(ctx)
}

func flush(ctx context.Context) {
	if log == nil {
		return
	}
	log.Debug("flushing telemetry")
	if providers != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			log.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	_ = log.Sync()
}

func runServe(ctx context.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	telemetry.WrapStore(store, cfg.OTelEnabled)

	if withWorker && cfg.MailDriver != config.MailDriverQueue {
		return errors.New("--with-worker requires MAIL_DRIVER=queue")
	}

	var (
		mq        *rabbitmq.Client
		publisher mailer.Publisher
	)
	if cfg.MailDriver == config.MailDriverQueue {
		if mq, err = dialRabbitMQ(ctx); err != nil {
			return err
		}
		defer mq.Close()
		publisher = mq
	}

	m, err := newMailer(publisher)
	if err != nil {
		return err
	}

	authService := services.NewAuthService(store.Users, m, services.AuthConfig{
		JWTSecret:  cfg.JWTSecret,
		TokenTTL:   cfg.JWTTTL,
		BcryptCost: cfg.BcryptCost,
	}, log)
	bugService := services.NewBugService(store.Bugs, log, nil)
	app := NewApp(cfg, store, authService, bugService, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server",
			zap.String("addr", cfg.Port),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("mail_driver", cfg.MailDriver),
		)
		return app.Listen(cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	if withWorker {
		g.Go(func() error { return runWorker(gctx, mq) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server gracefully stopped")
	return nil
}

// openStore connects to the configured database and applies migrations.
func openStore(ctx context.Context) (*repositories.Store, error) {
	store, err := repositories.NewStore(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func dialRabbitMQ(ctx context.Context) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(ctx, rabbitmq.Config{
		URL:         cfg.RabbitMQURL,
		Queues:      []string{cfg.MailQueue},
		DialTimeout: rabbitDialTimeout,
	})
}

// newMailer selects the verification mail transport for MAIL_DRIVER.
func newMailer(publisher mailer.Publisher) (mailer.Mailer, error) {
	switch cfg.MailDriver {
	case config.MailDriverSMTP:
		m, err := mailer.NewSMTPMailer(smtpConfig())
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.MailDriverQueue:
		if publisher == nil {
			return nil, errors.New("queue mail driver requires a RabbitMQ publisher")
		}
		return mailer.NewQueueMailer(publisher, cfg.MailQueue), nil
	default:
		return mailer.NewLogMailer(log, cfg.ClientURL), nil
	}
}

func smtpConfig() mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		User:      cfg.SMTPUser,
		Password:  cfg.SMTPPassword,
		From:      cfg.MailFrom,
		ClientURL: cfg.ClientURL,
	}
}

func runWorker(ctx context.Context, mq *rabbitmq.Client) error {
	delivery, err := mailer.NewSMTPMailer(smtpConfig())
	if err != nil {
		return err
	}
	deliveries, err := mq.Consume(cfg.MailQueue)
	if err != nil {
		return err
	}
	log.Info("mail worker started", zap.String("queue", cfg.MailQueue))
	return mailer.NewWorker(delivery, log).Run(ctx, deliveries)
}
