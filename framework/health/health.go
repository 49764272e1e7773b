// Package health collects named health checks contributed by plugins and
// reports them over HTTP.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	gohttp "github.com/km-arc/pibox/framework/http"
)

var (
	// ErrDuplicateCheck is returned when a check name is registered twice.
	ErrDuplicateCheck = errors.New("duplicate health check")

	// ErrInvalidCheck is returned for an empty name or a nil check.
	ErrInvalidCheck = errors.New("invalid health check")

	// ErrCheckPanicked is reported for a check that panicked.
	ErrCheckPanicked = errors.New("health check panicked")
)

// Status is the outcome of a check or of a whole report.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Check reports nil when the checked dependency is usable.
type Check func(ctx context.Context) error

type entry struct {
	name  string
	check Check
	tags  []string
}

// Registry holds checks in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	limit   int
}

// NewRegistry creates an empty registry. Checks run concurrently, at most
// limit at a time; limit <= 0 means unbounded.
func NewRegistry(limit int) *Registry {
	return &Registry{limit: limit}
}

// Register adds a named check.
func (r *Registry) Register(name string, check Check, tags ...string) error {
	if name == "" || check == nil {
		return fmt.Errorf("%w: %q", ErrInvalidCheck, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.entries, func(e entry) bool { return e.name == name }) {
		return fmt.Errorf("%w: %q", ErrDuplicateCheck, name)
	}
	r.entries = append(r.entries, entry{name: name, check: check, tags: tags})
	return nil
}

// Names returns the registered check names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.name
	}
	return out
}

// Result is the outcome of one check.
type Result struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Tags     []string      `json:"tags,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report aggregates every check. Status is unhealthy if any check failed.
type Report struct {
	Status Status   `json:"status"`
	Checks []Result `json:"checks"`
}

// Check runs every check, optionally only those carrying one of tags, and
// waits for all of them. Results keep registration order.
func (r *Registry) Check(ctx context.Context, tags ...string) Report {
	r.mu.RLock()
	entries := slices.Clone(r.entries)
	r.mu.RUnlock()

	if len(tags) > 0 {
		entries = slices.DeleteFunc(entries, func(e entry) bool {
			return !slices.ContainsFunc(e.tags, func(t string) bool { return slices.Contains(tags, t) })
		})
	}

	results := make([]Result, len(entries))
	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i, e := range entries {
		g.Go(func() error {
			start := time.Now()
			err := run(ctx, e.check)
			res := Result{Name: e.name, Status: StatusHealthy, Tags: e.tags, Duration: time.Since(start)}
			if err != nil {
				res.Status = StatusUnhealthy
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: StatusHealthy, Checks: results}
	for _, res := range results {
		if res.Status != StatusHealthy {
			report.Status = StatusUnhealthy
			break
		}
	}
	return report
}

// run calls check, turning a panic into an error. Checks run on their own
// goroutines, where no HTTP recoverer can catch a panic.
func run(ctx context.Context, check Check) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", ErrCheckPanicked, v)
		}
	}()
	return check(ctx)
}

// Handler serves the report as JSON: 200 when healthy, 503 otherwise. The
// "tag" query parameter filters checks and may repeat.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		report := r.Check(req.Context(), req.URL.Query()["tag"]...)
		status := http.StatusOK
		if report.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		gohttp.NewResponse(w, req).JSON(status, report)
	})
}
