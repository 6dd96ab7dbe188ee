package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/Algorisys-Technologies/app-portal/internal/apps"
	"github.com/Algorisys-Technologies/app-portal/internal/auth"
	"github.com/Algorisys-Technologies/app-portal/internal/config"
	"github.com/Algorisys-Technologies/app-portal/internal/httpapi"
	"github.com/Algorisys-Technologies/app-portal/internal/license"
	"github.com/Algorisys-Technologies/app-portal/internal/obs"
	"github.com/Algorisys-Technologies/app-portal/internal/store/pg"
)

type stores struct {
	auth     auth.Store
	licenses license.Store
	apps     apps.Store
}

func main() {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.SetBuildInfo(cfg.Version, cfg.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	st := stores{
		auth:     auth.NewMemoryStore(),
		licenses: license.NewMemoryStore(),
		apps:     apps.NewMemoryStore(),
	}
	if cfg.Database.URL != "" {
		db, err = pg.Open(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
		st = stores{
			auth:     auth.NewPGStore(db),
			licenses: license.NewPGStore(db),
			apps:     apps.NewPGStore(db),
		}
	} else {
		obs.Info("memory_stores", map[string]any{"reason": "DATABASE_URL not set; data is not persisted"})
	}

	codec, err := auth.NewCodec(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	authSvc, err := auth.NewService(st.auth, codec,
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
		auth.WithResetTTL(cfg.Auth.ResetTTL),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	licenseSvc, err := license.NewService(st.licenses)
	if err != nil {
		log.Fatalf("license service: %v", err)
	}
	images, err := apps.NewImageStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		log.Fatalf("image store: %v", err)
	}
	appSvc, err := apps.NewService(st.apps, images)
	if err != nil {
		log.Fatalf("application service: %v", err)
	}

	ready := httpapi.ReadyCheck{DB: db}
	api := httpapi.New(httpapi.Options{
		Version:           cfg.Version,
		Ready:             ready,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		UploadMaxBytes:    images.MaxBytes(),
		RateBurst:         cfg.HTTP.RateLimitBurst,
		RatePerSec:        cfg.HTTP.RateLimitPerSec,
		CORSOrigins:       cfg.HTTP.CORSOrigins,
		TrustProxyHeaders: cfg.HTTP.TrustProxyHeaders,
	}, authSvc, licenseSvc, appSvc)
	defer api.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	health := httpapi.NewHealthServer(ready)
	grpcSrv := grpc.NewServer()
	health.Register(grpcSrv)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("grpc listen: %v", err)
	}
	go health.Run(ctx, 10*time.Second)

	errCh := make(chan error, 2)
	go func() {
		obs.Info("grpc_listen", map[string]any{"addr": cfg.GRPCAddr})
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()
	go func() {
		obs.Info("http_listen", map[string]any{"addr": srv.Addr, "version": cfg.Version})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		obs.Error("server_failed", err, nil)
	}
	obs.Info("shutdown", nil)

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.Error("http_shutdown", err, nil)
	}

	stopped := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcSrv.Stop()
	}
	obs.Info("stopped", nil)
}
