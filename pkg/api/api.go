// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/mail-profiler/pkg/config"
	"github.com/telekom/mail-profiler/pkg/metrics"
	"github.com/telekom/mail-profiler/pkg/system"
)

const shutdownTimeout = 10 * time.Second

type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

type Server struct {
	gin         *gin.Engine
	config      config.Server
	log         *zap.SugaredLogger
	routes      *gin.RouterGroup
	controllers []APIController
}

// NewServer builds the engine. The given middlewares wrap every controller
// route but not /healthz and /metrics.
func NewServer(log *zap.Logger, cfg config.Server, debug bool, middlewares ...gin.HandlerFunc) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	sugar := log.Sugar().Named("server")

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		system.RequestLogger(log.Sugar()),
	)
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		sugar.Warnw("Ignoring invalid trusted proxies", "proxies", cfg.TrustedProxies, "error", err)
	}

	if debug {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins:  []string{"http://localhost:5173", "http://127.0.0.1:8080"},
				AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowHeaders:  []string{"Origin", "Content-Type"},
				ExposeHeaders: []string{"X-Debug-Token", "X-Debug-Token-Link", system.RequestIDHeader},
				MaxAge:        12 * time.Hour,
			}),
		)
	}

	s := &Server{
		gin:    engine,
		config: cfg,
		log:    sugar,
	}

	engine.GET("/healthz", s.healthz)
	engine.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))
	s.routes = engine.Group("/", middlewares...)

	return s
}

func (s *Server) RegisterAll(controllers []APIController) error {
	for _, c := range controllers {
		if err := c.Register(s.routes.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return fmt.Errorf("registering %s: %w", c.BasePath(), err)
		}
		s.controllers = append(s.controllers, c)
	}
	return nil
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Listen serves until ctx is done and then shuts down gracefully.
func (s *Server) Listen(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
			s.log.Infow("Listening with TLS", "address", srv.Addr)
			errCh <- srv.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
			return
		}
		s.log.Infow("Listening", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	}
}

// Close releases resources held by the registered controllers.
func (s *Server) Close() {
	for _, c := range s.controllers {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
