package api

import (
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside the overall status.
const ServiceName = "ids.sensor"

// HealthServer reports SERVING while the pipeline is running.
type HealthServer struct {
	*health.Server
	src Provider

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHealthServer creates a HealthServer whose status follows src.Running.
func NewHealthServer(src Provider) *HealthServer {
	h := &HealthServer{Server: health.NewServer(), src: src, stop: make(chan struct{})}
	h.Update()
	return h
}

// Update sets the status from the current pipeline state.
func (h *HealthServer) Update() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if h.src.Running() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.SetServingStatus("", status)
	h.SetServingStatus(ServiceName, status)
}

// Start polls the pipeline state every interval until Stop.
func (h *HealthServer) Start(interval time.Duration) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Update()
			case <-h.stop:
				return
			}
		}
	}()
}

// Stop ends polling and marks every service NOT_SERVING.
func (h *HealthServer) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.wg.Wait()
		h.Shutdown()
	})
}
