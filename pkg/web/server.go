// Package web serves the motion library over HTTP and streams playback and
// library events over websockets.
package web

import (
	"context"
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/hub"
	"github.com/teslashibe/go-mocap/pkg/library"
)

// Server is the motion API server.
type Server struct {
	app    *fiber.App
	addr   string
	lib    *library.Library
	events *hub.Hub

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewServer creates a server for lib listening on addr.
func NewServer(addr string, lib *library.Library) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:   addr,
		lib:    lib,
		events: hub.New("events"),
		ctx:    ctx,
		cancel: cancel,
	}

	lib.Subscribe(func(e library.Event) {
		if err := s.events.Publish(hub.KindEvent, e); err != nil {
			log.Warn("failed to publish library event", "kind", e.Kind, "error", err)
		}
	})

	app := fiber.New(fiber.Config{
		AppName:               "go-mocap",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/motions", s.handleListMotions)
	api.Get("/motions/:name", s.handleGetMotion)
	api.Delete("/motions/:name", s.handleDeleteMotion)
	api.Get("/motions/:name/frames/:index", s.handleGetFrame)
	api.Post("/mix", s.handleMix)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/play/:name", websocket.New(s.handlePlayWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the event hub and serves until Shutdown is called.
func (s *Server) Start() error {
	go s.events.Run(s.ctx)

	log.Info("api server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("api server stopped", "error", err)
		}
	}()
}

// Shutdown stops playback streams, the event hub and the listener.
func (s *Server) Shutdown() error {
	s.once.Do(s.cancel)
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if errors.Is(err, library.ErrNotFound) {
		code = fiber.StatusNotFound
	}
	if code >= fiber.StatusInternalServerError {
		log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
