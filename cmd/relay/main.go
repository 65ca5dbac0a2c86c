package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"PRelay/global"
	"PRelay/global/config"
	"PRelay/logger"
	mid "PRelay/middleware"
	midsec "PRelay/middleware/security"
	"PRelay/module/notify"
	"PRelay/service/relay"
	"PRelay/service/relay/handlers"
	"PRelay/tools/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("RELAY_CONFIG"), "path to the YAML config file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		logger.Error("[main] exit", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := global.ConfigLogger(cfg); err != nil {
		return err
	}
	global.ConfigIds(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers global.Closers
	defer closers.CloseAll()

	mirror, err := global.ConfigRedis(ctx, cfg, &closers)
	if err != nil {
		return err
	}

	// 1) relay
	opts := relay.OptionsFromConfig(cfg)
	opts.Mirror = mirror
	opts.Logger = logger.Named("relay")
	srv := relay.NewServer(opts)
	handlers.RegisterDefaults(srv)
	srv.Start()

	// 2) ingress
	if err := global.ConfigNats(cfg, srv, &closers); err != nil {
		srv.Stop(global.ShutdownTimeout)
		return err
	}
	if err := global.ConfigKafka(ctx, cfg, srv, &closers); err != nil {
		srv.Stop(global.ShutdownTimeout)
		return err
	}

	// 3) gRPC health
	var healthServer *health.Server
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			srv.Stop(global.ShutdownTimeout)
			return err
		}
		gs := grpc.NewServer()
		healthServer = health.NewServer()
		healthpb.RegisterHealthServer(gs, healthServer)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus("relay.Presence", healthpb.HealthCheckResponse_SERVING)
		go func() {
			logger.Infof("[gRPC] Listening on %s", cfg.GRPC.Addr)
			if err := gs.Serve(lis); err != nil {
				logger.Warnf("[gRPC] server stopped: %v", err)
			}
		}()
		closers.Add("grpc", func() error { gs.GracefulStop(); return nil })
	}

	// 4) HTTP + WebSocket
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	chain := mid.NewChain(gin.Recovery(), mid.AccessLog(logger.Named("http")))
	r.Use(chain.Use())
	r.GET(cfg.HTTP.WSPath, srv.HandleWS)

	if cfg.API.Enabled {
		rt := mid.NewRouter(midsec.Options{JWT: security.Options{Secret: []byte(cfg.API.JWTSecret), Alg: cfg.API.JWTAlg}})
		notify.Register(r, rt, notify.NewHandler(srv), true)
	}

	hs := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[HTTP] Listening on %s (ws %s)", cfg.HTTP.Addr, cfg.HTTP.WSPath)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("[main] shutting down")
	case err = <-errCh:
	}

	if healthServer != nil {
		healthServer.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), global.ShutdownTimeout)
	defer cancel()
	// 先停 HTTP，再关闭所有 websocket 连接
	_ = hs.Shutdown(shutdownCtx)
	srv.Stop(global.ShutdownTimeout)
	return err
}
