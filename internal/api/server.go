// Package api serves read-only diagnostics over HTTP and gRPC health checks.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/TrieuQuan2005/IdsService/internal/config"
	"github.com/TrieuQuan2005/IdsService/internal/metrics"
	"github.com/TrieuQuan2005/IdsService/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Provider is the pipeline state the API reads.
type Provider interface {
	metrics.Source
	Tables() *model.TableSnapshot
}

// Server hosts the HTTP diagnostics routes and the gRPC health service.
type Server struct {
	cfg    config.APIConfig
	router *mux.Router
	health *HealthServer

	httpServer *http.Server
	grpcServer *grpc.Server
	wg         sync.WaitGroup
}

// NewServer creates a Server. reg is exposed on /metrics.
func NewServer(cfg config.APIConfig, src Provider, reg prometheus.Gatherer, sensorID string) *Server {
	s := &Server{
		cfg:    cfg,
		router: mux.NewRouter(),
		health: NewHealthServer(src),
	}
	h := &handler{src: src, sensorID: sensorID}
	s.router.HandleFunc("/api/v1/stats", h.stats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/flows", h.flows).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/hosts", h.hosts).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler { return s.router }

// Health returns the gRPC health service.
func (s *Server) Health() *HealthServer { return s.health }

// Start binds both listeners and serves them in the background.
func (s *Server) Start() error {
	httpLis, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", s.cfg.ListenAddr, err)
	}
	grpcLis, err := net.Listen("tcp", s.cfg.GRPCListenAddr)
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("could not listen on %s: %w", s.cfg.GRPCListenAddr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health.Server)
	s.health.Start(time.Second)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		log.Infof("API server starting on %s", httpLis.Addr())
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("API server failed: %v", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		log.Infof("gRPC health server starting on %s", grpcLis.Addr())
		if err := s.grpcServer.Serve(grpcLis); err != nil {
			log.Errorf("gRPC health server failed: %v", err)
		}
	}()
	return nil
}

// Stop shuts both servers down, waiting up to the ctx deadline for the HTTP one.
func (s *Server) Stop(ctx context.Context) error {
	s.health.Stop()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.wg.Wait()
	log.Info("API server exited.")
	return err
}
