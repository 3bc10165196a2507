package rest

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/pkg/msgworker"
	"github.com/GMOnyx/Commandlessapp-sub000/pkg/relaymonitor"
	"github.com/GMOnyx/Commandlessapp-sub000/relay/application"
	"github.com/GMOnyx/Commandlessapp-sub000/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

// ConfigSource exposes the cached bot policies.
type ConfigSource interface {
	Snapshots() []application.SnapshotInfo
	SnapshotInfo(botID string) (application.SnapshotInfo, bool)
}

// QueueSource exposes the send queue counters.
type QueueSource interface {
	QueueStats() msgworker.QueueStats
}

// Options wires the status server. Configs and Queue may be nil.
type Options struct {
	Version    string
	InstanceID string
	BotID      string
	Debug      bool
	Monitor    *relaymonitor.Monitor
	Configs    ConfigSource
	Queue      QueueSource
}

// NewApp builds the read-only status API.
func NewApp(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Commandless Relay",
		DisableStartupMessage: true,
		ServerHeader:          "Hidden",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	app.Use(requestid.New())
	app.Use(middleware.Recovery())
	if opts.Debug {
		app.Use(logger.New())
	}

	api := app.Group("/api")
	InitRestHealth(api, opts)
	InitRestMonitoring(api, opts.Monitor)
	InitRestConfigs(api, opts.Configs)
	InitRestQueue(api, opts.Queue)
	InitRestMetrics(app, opts.Monitor)

	return app
}

// Server runs the status app on a TCP address.
type Server struct {
	app  *fiber.App
	addr string
}

func NewServer(host string, port int, opts Options) *Server {
	return &Server{
		app:  NewApp(opts),
		addr: net.JoinHostPort(host, fmt.Sprintf("%d", port)),
	}
}

func (s *Server) Addr() string { return s.addr }

// Start listens in the background. Listen errors are logged.
func (s *Server) Start() {
	go func() {
		logrus.Infof("[STATUS] Listening on http://%s", s.addr)
		if err := s.app.Listen(s.addr); err != nil {
			logrus.Errorf("[STATUS] Server stopped: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
