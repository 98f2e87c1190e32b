package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rag-worker/cmd/configs"
	"rag-worker/internal/auth"
	"rag-worker/internal/handlers"
	"rag-worker/internal/services"
	di "rag-worker/pkg/dependency_injection"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "ragworker",
		Usage:  "Scrape, embed and answer questions over web pages",
		Before: loadEnv,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and consume the scrape queue in the same process",
				Action: serveCommand,
			},
			{
				Name:   "work",
				Usage:  "Consume the scrape queue with a blocking pop",
				Action: workCommand,
			},
			{
				Name:   "enqueue",
				Usage:  "Queue a URL for ingestion",
				Action: enqueueCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Aliases:  []string{"u"},
						Usage:    "Page to scrape",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "user",
						Usage:    "Owner of the ingested chunks",
						Required: true,
					},
				},
			},
			{
				Name:   "migrate",
				Usage:  "Create the documents table and the vector schema",
				Action: migrateCommand,
			},
			{
				Name:   "token",
				Usage:  "Mint an access token for local testing",
				Action: tokenCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Usage:    "User id placed in the token",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "Optional email claim",
					},
				},
			},
		},
	}
}

func loadEnv(*cli.Context) error {
	envPaths := []string{
		"../../.env", // From cmd/ragworker/
		".env",       // Current directory
	}

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded .env from: %s", path)
			return nil
		}
	}

	log.Println("No .env file found, using environment variables")
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newContainer(ctx context.Context, opts ...di.Option) (*di.Container, error) {
	container, err := di.NewContainer(ctx, configs.LoadConfig(), opts...)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to initialize: %v", err), 1)
	}
	return container, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	container, err := newContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	cfg := container.Config
	router := handlers.NewRouter(cfg, container.Handlers, container.AuthMiddleware)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 2)

	consumer, err := container.NewConsumer(services.ConsumerModePolling)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	// Start consumer in a goroutine; jobs run on the worker pool
	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()
	go func() {
		if err := consumer.Run(consumerCtx); err != nil {
			errCh <- fmt.Errorf("queue consumer: %w", err)
		}
	}()

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("Shutting down server...")
	case runErr = <-errCh:
		log.Printf("Shutting down after error: %v", runErr)
	}

	cancelConsumer()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
	if runErr != nil {
		return cli.Exit(runErr.Error(), 1)
	}
	return nil
}

func workCommand(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	container, err := newContainer(ctx, di.WithoutWorkerPool())
	if err != nil {
		return err
	}
	defer container.Close()

	consumer, err := container.NewConsumer(services.ConsumerModeBlocking)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	log.Printf("Worker consuming %s", container.Config.QueueName)
	if err := consumer.Run(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	log.Println("Worker exited")
	return nil
}

func enqueueCommand(c *cli.Context) error {
	ctx := context.Background()

	container, err := newContainer(ctx, di.WithoutPipeline())
	if err != nil {
		return err
	}
	defer container.Close()

	resp, err := container.Services.Ingestion.Enqueue(ctx, c.String("url"), c.String("user"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return writeJSON(c, resp)
}

func migrateCommand(c *cli.Context) error {
	ctx := context.Background()

	container, err := newContainer(ctx, di.WithoutPipeline())
	if err != nil {
		return err
	}
	defer container.Close()

	if err := container.Migrate(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	log.Println("Migration complete")
	return nil
}

func tokenCommand(c *cli.Context) error {
	token, err := auth.NewTokenService(configs.LoadConfig()).GenerateAccessToken(c.String("user"), c.String("email"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, token)
	return err
}

func writeJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
