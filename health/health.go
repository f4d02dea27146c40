// Package health runs the service's health checks and aggregates them into a
// report.
package health

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/VanitasCaesar1/problemdetails/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 5 * time.Second

// CheckFunc probes one dependency. The returned data is attached to the
// report entry.
type CheckFunc func(ctx context.Context) (map[string]any, error)

// Check is a named probe. A failing non-critical check degrades the report
// instead of making it unhealthy.
type Check struct {
	Name     string
	Critical bool
	Run      CheckFunc
}

// Checker runs checks concurrently, each under its own timeout.
type Checker struct {
	checks  []Check
	timeout time.Duration
}

func NewChecker(timeout time.Duration, checks ...Check) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Checker{checks: checks, timeout: timeout}
}

// Run executes every check and aggregates the results in registration order.
func (c *Checker) Run(ctx context.Context) models.HealthReport {
	start := time.Now()
	entries := make([]models.HealthCheckResult, len(c.checks))

	var g errgroup.Group
	for i, check := range c.checks {
		g.Go(func() error {
			entries[i] = c.run(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	status := models.Healthy
	for i, entry := range entries {
		if entry.Status == models.Healthy {
			continue
		}
		if c.checks[i].Critical {
			status = models.Unhealthy
			break
		}
		status = models.Degraded
	}
	return models.HealthReport{
		Status:        status,
		TotalDuration: time.Since(start).String(),
		Entries:       entries,
	}
}

func (c *Checker) run(ctx context.Context, check Check) (result models.HealthCheckResult) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result = models.HealthCheckResult{Name: check.Name, Status: models.Healthy}
	defer func() {
		if r := recover(); r != nil {
			result.Status = models.Unhealthy
			result.Description = fmt.Sprintf("check panicked: %v", r)
		}
		result.Duration = time.Since(start).String()
	}()

	data, err := check.Run(ctx)
	result.Data = data
	if err != nil {
		result.Status = models.Unhealthy
		result.Description = err.Error()
	}
	return result
}

// ApplicationInfo reports name, version and uptime. It never fails.
func ApplicationInfo(name, version string, started time.Time) Check {
	return Check{
		Name: "application",
		Run: func(context.Context) (map[string]any, error) {
			return map[string]any{
				"name":      name,
				"version":   version,
				"goVersion": runtime.Version(),
				"uptime":    time.Since(started).Round(time.Second).String(),
			}, nil
		},
	}
}

// Configuration fails while validate reports problems.
func Configuration(validate func() []string) Check {
	return Check{
		Name: "configuration",
		Run: func(context.Context) (map[string]any, error) {
			problems := validate()
			if len(problems) == 0 {
				return nil, nil
			}
			return map[string]any{"errors": problems},
				errors.Errorf("%d configuration problem(s): %s", len(problems), strings.Join(problems, "; "))
		},
	}
}

// Redis pings client.
func Redis(client *redis.Client) Check {
	return Check{
		Name:     "redis",
		Critical: true,
		Run: func(ctx context.Context) (map[string]any, error) {
			if err := client.Ping(ctx).Err(); err != nil {
				return nil, errors.Wrap(err, "redis ping failed")
			}
			return map[string]any{"addr": client.Options().Addr}, nil
		},
	}
}

// Postgres pings pool.
func Postgres(pool *pgxpool.Pool) Check {
	return Check{
		Name:     "postgres",
		Critical: true,
		Run: func(ctx context.Context) (map[string]any, error) {
			if err := pool.Ping(ctx); err != nil {
				return nil, errors.Wrap(err, "postgres ping failed")
			}
			stat := pool.Stat()
			return map[string]any{
				"totalConns": stat.TotalConns(),
				"idleConns":  stat.IdleConns(),
			}, nil
		},
	}
}
