package grpc

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthChecker polls the standard gRPC health-checking protocol
// (grpc.health.v1.Health/Check) against a fixed set of sibling services and
// keeps a last-known-good bit per service, so callers like routing.Client
// can fail fast against a sibling already known to be down instead of
// waiting out a dial timeout on every request.
type HealthChecker struct {
	mu      sync.Mutex
	targets map[string]string // service name -> dial address
	status  sync.Map          // service name -> *int32 (1 = healthy)
}

func NewHealthChecker(targets map[string]string) *HealthChecker {
	return &HealthChecker{targets: targets}
}

// IsHealthy reports the last poll result for service, defaulting to true
// (assume healthy) until the first poll completes — an unprobed service
// must never block calls outright.
func (h *HealthChecker) IsHealthy(service string) bool {
	v, ok := h.status.Load(service)
	if !ok {
		return true
	}
	return atomic.LoadInt32(v.(*int32)) == 1
}

// Run polls every target at interval until ctx is cancelled.
func (h *HealthChecker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	h.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.pollAll(ctx)
		}
	}
}

func (h *HealthChecker) pollAll(ctx context.Context) {
	for service, addr := range h.targets {
		healthy := h.poll(ctx, addr)
		flag, _ := h.status.LoadOrStore(service, new(int32))
		prev := atomic.SwapInt32(flag.(*int32), boolToInt32(healthy))
		if prev != boolToInt32(healthy) {
			state := "DOWN"
			if healthy {
				state = "UP"
			}
			log.Printf("🩺 sibling service %s (%s) is now %s", service, addr, state)
		}
	}
}

func (h *HealthChecker) poll(parent context.Context, addr string) bool {
	ctx, cancel := context.WithTimeout(parent, 3*time.Second)
	defer cancel()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return false
	}
	defer conn.Close()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return false
	}
	return resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
