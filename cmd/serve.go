package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/latestcomment/go-live-activities/internal/handlers"
	"github.com/latestcomment/go-live-activities/internal/services"
	"github.com/latestcomment/go-live-activities/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if err := store.Migrate(db); err != nil {
			return err
		}
		records := store.New(db)

		service := services.NewSessionService(records, services.Options{
			ActivityTimeout: cfg.ActivityTimeout,
			Logger:          log,
		})
		defer service.Close()

		app := fiber.New(fiber.Config{
			AppName:      "live",
			ErrorHandler: handlers.ErrorHandler(log),
		})
		app.Use(recover.New())
		app.Use(logger.New())
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
			AllowMethods: "GET,POST,DELETE,OPTIONS",
			AllowHeaders: "Origin, Content-Type, Accept",
		}))

		h := handlers.NewHandler(records, service, log)
		ws := handlers.NewWebSocketHandler(service, cfg.SendBuffer, log)

		h.Register(app.Group("/api"))
		app.Get("/ws", ws.WebSocketMiddleware, websocket.New(ws.HandleWebSocket))

		go func() {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			<-quit
			log.Info("shutting down")
			_ = app.Shutdown()
		}()

		log.Info("server listening", "addr", cfg.Addr(), "db", cfg.DBPath, "activity_timeout", cfg.ActivityTimeout)
		return app.Listen(cfg.Addr())
	},
}
