// Command oidc-demo serves a public route and two protected routes behind
// the pass-through auth layer. The validator is an OIDC provider when
// auth.oidc.enabled is set, otherwise a local HMAC token service that mints
// a demo token at startup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/oidcauth/auth/jwt"
	"github.com/kbukum/oidcauth/auth/setup"
	"github.com/kbukum/oidcauth/config"
	"github.com/kbukum/oidcauth/logger"
	"github.com/kbukum/oidcauth/observability"
	"github.com/kbukum/oidcauth/server"
	"github.com/kbukum/oidcauth/server/middleware"
	"github.com/kbukum/oidcauth/version"
)

const serviceName = "oidc-demo"

func main() {
	var cfg DemoConfig
	if err := config.Load(serviceName, &cfg, config.WithEnvPrefix("OIDC_DEMO")); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging, cfg.Name)
	logger.RegisterDefaults()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cfg); err != nil {
		logger.WithComponent("main").Fatal("Demo failed", logger.MergeWithError(nil, err))
	}
}

func run(ctx context.Context, cfg *DemoConfig) error {
	log := logger.WithComponent("main")
	log.Info("Starting", logger.Fields(
		"version", version.GetShortVersion(),
		"auth", cfg.Auth.Describe(),
	))

	var authOpts []middleware.AuthOption
	var metrics *observability.AuthMetrics

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, &cfg.Tracing)
		if err != nil {
			return err
		}
		defer shutdown(log, "tracer", tp.Shutdown)
		authOpts = append(authOpts, middleware.WithAuthTracer(observability.Tracer(observability.TracerName)))
	}
	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, &cfg.Metrics)
		if err != nil {
			return err
		}
		defer shutdown(log, "meter", mp.Shutdown)
		if metrics, err = observability.NewAuthMetrics(observability.Meter(observability.TracerName)); err != nil {
			return err
		}
		authOpts = append(authOpts, middleware.WithAuthMetrics(metrics))
	}

	srv := server.New(cfg.Server, logger.GetGlobalLogger())
	srv.ApplyMiddleware()

	var layer *middleware.AuthLayer
	if cfg.Auth.Enabled {
		validators, err := setup.Build(ctx, &cfg.Auth, setup.WithMetrics(metrics))
		if err != nil {
			return err
		}
		authOpts = append(authOpts, middleware.WithSkipPaths(cfg.Auth.SkipPaths...))
		if layer, err = middleware.NewAuthLayer(validators.Default(), cfg.Auth.Validation, authOpts...); err != nil {
			return err
		}
		srv.RegisterDefaultEndpoints(cfg.Name, version.GetShortVersion(), validators.HealthCheckers()...)
		if validators.OIDC == nil && validators.Tokens != nil {
			logDemoToken(log, validators.Tokens)
		}
	} else {
		log.Warn("Authentication disabled; every request is anonymous")
		srv.RegisterDefaultEndpoints(cfg.Name, version.GetShortVersion())
	}
	registerRoutes(srv.GinEngine(), layer)

	if err := srv.Start(ctx); err != nil {
		return err
	}
	log.Info("Server ready", logger.Fields("addr", srv.Addr()))

	<-ctx.Done()
	return srv.Stop(context.Background())
}

// logDemoToken mints a token for the local service so /protected can be
// tried with curl.
func logDemoToken(log *logger.Logger, svc *jwt.Service[*jwt.StandardClaims]) {
	token, err := svc.GenerateAccess(&jwt.StandardClaims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "demo-user"},
	})
	if err != nil {
		log.Warn("Could not mint demo token", logger.MergeWithError(nil, err))
		return
	}
	log.Info("Demo token minted", logger.Fields(
		"usage", "curl -H 'Authorization: Bearer <token>' http://<addr>/protected",
		"token", token,
	))
}

func shutdown(log *logger.Logger, name string, fn func(context.Context) error) {
	if err := fn(context.Background()); err != nil {
		log.Warn("Shutdown failed", logger.Fields("provider", name, logger.FieldError, err.Error()))
	}
}
