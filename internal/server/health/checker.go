// Package health runs readiness probes against the metadata and object
// stores. The HTTP readiness endpoint and the gRPC health service both
// report from the same Checker.
package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Probe checks one dependency. A nil error means healthy.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type Checker struct {
	probes  []Probe
	timeout time.Duration
}

// Report is the outcome of one round of probes. Components maps probe
// names to "ok" or the failure message.
type Report struct {
	Healthy    bool              `json:"healthy"`
	Components map[string]string `json:"components"`
}

func NewChecker(timeout time.Duration, probes ...Probe) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{probes: probes, timeout: timeout}
}

// Check runs every probe concurrently, each bounded by the checker timeout.
func (c *Checker) Check(ctx context.Context) Report {
	rep := Report{Healthy: true, Components: make(map[string]string, len(c.probes))}
	var mu sync.Mutex
	var g errgroup.Group

	for _, p := range c.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			err := p.Check(pctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Healthy = false
				rep.Components[p.Name] = err.Error()
			} else {
				rep.Components[p.Name] = "ok"
			}
			return nil
		})
	}
	_ = g.Wait()
	return rep
}
