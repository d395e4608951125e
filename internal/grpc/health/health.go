// Package health reports dependency state over the standard gRPC health
// protocol and to the HTTP readiness probe.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"scamguard/pkg/logger"
)

// ServiceName is the gRPC service name reported alongside the overall status
const ServiceName = "scamguard.v1.ScamGuard"

// Pinger is a dependency that can report whether it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Status is the result of one dependency check
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Checker pings registered dependencies and mirrors the result into a gRPC
// health server
type Checker struct {
	server   *grpchealth.Server
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger

	mu   sync.RWMutex
	deps map[string]Pinger
	last []Status
}

// NewChecker creates a checker that reports SERVING until a dependency fails
func NewChecker(interval time.Duration, log *logger.Logger) *Checker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	c := &Checker{
		server:   grpchealth.NewServer(),
		interval: interval,
		timeout:  2 * time.Second,
		logger:   log.WithComponent("health"),
		deps:     make(map[string]Pinger),
	}
	c.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	return c
}

// AddDependency registers a named dependency. Nil pingers are ignored so
// optional stores can be passed unconditionally.
func (c *Checker) AddDependency(name string, p Pinger) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps[name] = p
}

// Register attaches the health service to a gRPC server
func (c *Checker) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, c.server)
}

// Check pings every dependency once, updates the serving status and returns
// the per-dependency results sorted by name
func (c *Checker) Check(ctx context.Context) []Status {
	c.mu.RLock()
	deps := make(map[string]Pinger, len(c.deps))
	for name, p := range c.deps {
		deps[name] = p
	}
	c.mu.RUnlock()

	results := make([]Status, 0, len(deps))
	healthy := true
	for name, p := range deps {
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := p.Ping(pctx)
		cancel()

		st := Status{Name: name, Healthy: err == nil}
		if err != nil {
			healthy = false
			st.Error = err.Error()
			c.logger.Warn().Err(err).Str("dependency", name).Msg("dependency unhealthy")
		}
		results = append(results, st)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	if healthy {
		c.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	} else {
		c.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	c.mu.Lock()
	c.last = results
	c.mu.Unlock()
	return results
}

// Last returns the results of the most recent Check
func (c *Checker) Last() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Status(nil), c.last...)
}

// Run checks dependencies every interval until ctx is cancelled, then marks
// the service NOT_SERVING
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

func (c *Checker) setStatus(s grpc_health_v1.HealthCheckResponse_ServingStatus) {
	c.server.SetServingStatus("", s)
	c.server.SetServingStatus(ServiceName, s)
}
