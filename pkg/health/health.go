// Package health runs preflight checks against everything a build or publish
// depends on: the corpus file, the intermediate directory, the build lock and
// any configured external sinks. Checks run concurrently and are summarised
// in a single Report.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/fslock"
)

// Status represents the health state of a component or the run overall.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Check tests one dependency. A nil error means the dependency is usable.
type Check func(ctx context.Context) error

// Result holds the outcome of a single check.
type Result struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
}

// Report is the aggregate of every check, ordered by name.
type Report struct {
	Status  Status   `json:"status"`
	Results []Result `json:"results"`
}

// Checker holds named checks.
type Checker struct {
	mu      sync.Mutex
	checks  map[string]Check
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker creates a Checker whose checks each get at most timeout.
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{
		checks:  make(map[string]Check),
		timeout: timeout,
		logger:  slog.Default().With("component", "health"),
	}
}

// Register adds or replaces a named check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every check concurrently. The report is down if any check
// failed.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.Lock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	c.mu.Unlock()
	sort.Strings(names)

	results := make([]Result, len(names))
	var g errgroup.Group
	for i, name := range names {
		c.mu.Lock()
		check := c.checks[name]
		c.mu.Unlock()
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			start := time.Now()
			err := check(checkCtx)
			results[i] = Result{Name: name, Status: StatusUp, Latency: time.Since(start).Round(time.Millisecond)}
			if err != nil {
				results[i].Status = StatusDown
				results[i].Message = err.Error()
				c.logger.Warn("check failed", "check", name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: StatusUp, Results: results}
	for _, r := range results {
		if r.Status == StatusDown {
			report.Status = StatusDown
			break
		}
	}
	return report
}

// FileReadable checks that path exists and can be opened.
func FileReadable(path string) Check {
	return func(context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		return f.Close()
	}
}

// DirWritable checks that a file can be created inside dir, creating dir if
// needed.
func DirWritable(dir string) Check {
	return func(context.Context) error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".writable-*")
		if err != nil {
			return err
		}
		name := f.Name()
		f.Close()
		return os.Remove(name)
	}
}

// LockFree checks that no other build holds the lock on dir.
func LockFree(dir string) Check {
	return func(context.Context) error {
		l := fslock.New(dir)
		ok, err := l.TryLock()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("build lock %s is held", l.Path())
		}
		return l.Unlock()
	}
}
