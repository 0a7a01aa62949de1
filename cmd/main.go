package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"inkalbum/internal/config"
	"inkalbum/internal/core/album"
	"inkalbum/internal/core/illustrate"
	"inkalbum/internal/core/illustrate/deapi"
	"inkalbum/internal/core/job"
	"inkalbum/internal/core/render"
	"inkalbum/internal/logger"
	rds "inkalbum/internal/platform/redis"
	tasks "inkalbum/internal/platform/tasks"
	"inkalbum/internal/server"
	"inkalbum/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log.Printf("[inkalbum] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{"default": 1},
	})

	// Core services
	jobSvc := job.NewJobService(redisSvc)
	albumClient := album.NewClient(cfg.ImmichURL, cfg.ImmichKey)

	prompts, err := illustrate.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		logr.LogWarnf("prompt overrides not loaded: %v", err)
	}

	// Provider registry is built once here and passed by reference
	registry := illustrate.NewRegistry(deapi.New(deapi.Config{
		BaseURL:   cfg.DeAPIBaseURL,
		SocketURL: cfg.DeAPISocketURL,
		Token:     cfg.DeAPIToken,
		ClientID:  cfg.DeAPIClientID,
		Model:     cfg.DeAPIModel,
		MaxWait:   cfg.DeAPIMaxWait,
		Prompts:   prompts,
	}))

	renderSvc, err := render.New(cfg, jobSvc, albumClient, registry)
	if err != nil {
		log.Fatal(err)
	}

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(render.TaskTypeRender, renderSvc.HandleTask)

	// Start worker
	_, workerCancel := context.WithCancel(context.Background())
	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Inkalbum Engine",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})
	// Serve rendered bitmaps from DATA_DIR under /files
	app.Static("/files", cfg.DataDir)

	deps := server.Dependencies{
		Job:    jobSvc,
		Render: renderSvc,
		Tasks:  taskClient,
		Redis:  redisSvc,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	// Mark application as ready after all services are initialized
	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		workerCancel()
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
