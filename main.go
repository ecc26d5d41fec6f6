package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"dm-service/internal/chat"
	"dm-service/internal/config"
	"dm-service/internal/db"
	"dm-service/internal/filestore"
	grpcserver "dm-service/internal/grpc"
	"dm-service/internal/handlers"
	"dm-service/internal/middleware"
	"dm-service/internal/observability"
	"dm-service/internal/rabbitmq"
	"dm-service/internal/repositories"
	"dm-service/internal/telemetry"
	"dm-service/internal/ws"
)

const serviceName = "dm-service"

func main() {
	log.SetReportTimestamp(true)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	log.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal("server error", "err", err)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "err", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "reason", rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "audit.logs", serviceName, cfg.Environment)

	messages, users, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	users = repositories.NewCachedUserRepo(ctx, users, cfg.UserCacheTTL)

	files, err := filestore.NewLocalFileStore(cfg.UploadsPath)
	if err != nil {
		return err
	}
	defer files.Close()
	images := filestore.NewImageStore(files, cfg.BaseURL)

	registry := ws.NewRegistry(ws.NewPresenceBroadcaster())
	service := chat.NewService(messages, users, images, ws.NewRouter(registry), ws.NewNotifier(registry))

	clientOpts := ws.DefaultClientOptions()
	clientOpts.PongWait = cfg.WSPongWait
	clientOpts.SendBuffer = cfg.WSSendBuffer
	socket := ws.NewSocketHandler(registry, service, cfg.AllowedOrigins, clientOpts)

	router := newRouter(cfg, handlers.NewMessageHandler(service, audit), images, socket, audit, registry)
	httpServer := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", middleware.UserIDHeader, "X-Request-ID", "X-Device-ID"},
			AllowCredentials: true,
		}).Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	health := grpcserver.NewHealthServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", "addr", httpServer.Addr, "store", cfg.StoreDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return health.Serve(grpcLis)
	})
	g.Go(func() error {
		health.SetServing(true)
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		health.Stop()
		httpErr := httpServer.Shutdown(shutdownCtx)
		// Upgraded connections are not tracked by http.Server; close them
		// here so no read loop touches the store after run returns.
		return errors.Join(httpErr, socket.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (repositories.MessageRepository, repositories.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverBolt:
		store, err := repositories.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("using bolt store", "path", cfg.BoltPath)
		return store, store, func() { _ = store.Close() }, nil
	default:
		database, err := db.Connect(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return repositories.NewMessageRepo(database), repositories.NewUserRepo(database), func() { _ = database.Close() }, nil
	}
}

func newRouter(cfg *config.Config, messages *handlers.MessageHandler, images *filestore.ImageStore, socket *ws.SocketHandler, audit *telemetry.AuditEmitter, registry *ws.Registry) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/uploads/:hash", handlers.ServeUpload(images))
	router.GET("/socket", socket.Handle)
	router.POST("/api/users", messages.CreateUser)

	api := router.Group("/api", middleware.Identity())
	api.GET("/messages/users", messages.ListUsersForSidebar)
	api.GET("/messages/:id", messages.GetMessages)
	api.POST("/messages/send/:id", messages.SendMessage)
	api.POST("/messages/read/:id", messages.MarkRead)

	handlers.RegisterDebugRoutes(router, audit, registry, cfg.DebugRoutes)
	return router
}
