package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"essay-coach-be/internal/bootstrap"
	"essay-coach-be/internal/config"
	"essay-coach-be/internal/server"
	"essay-coach-be/internal/tracer"
	"essay-coach-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDB(database.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.Connection,
	})
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	if cfg.Database.Driver == "sqlite" {
		if err := database.Migrate(gormDB); err != nil {
			log.Panicf("Unable to migrate sqlite schema: %v", err)
		}
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled, container.Logger)
	defer shutdownTracer(context.Background())

	// 4. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
