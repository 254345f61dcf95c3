package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Observer receives one sample per analysis.
type Observer interface {
	ObserveAnalysis(backend, status string, elapsed time.Duration)
}

// Guarded bounds a gateway call by a timeout and converts every failure
// into a needs_review result. Analyze never returns an error.
type Guarded struct {
	inner    Gateway
	timeout  time.Duration
	observer Observer
}

// NewGuarded wraps inner. A non-positive timeout disables the bound.
func NewGuarded(inner Gateway, timeout time.Duration, observer Observer) *Guarded {
	return &Guarded{inner: inner, timeout: timeout, observer: observer}
}

type outcome struct {
	res Result
	err error
}

// Analyze runs the wrapped gateway and validates its answer.
func (g *Guarded) Analyze(ctx context.Context, photoRef string) Result {
	start := time.Now()
	res := g.analyze(ctx, photoRef)
	if g.observer != nil {
		g.observer.ObserveAnalysis(g.inner.Name(), res.Status, time.Since(start))
	}
	return res
}

func (g *Guarded) analyze(ctx context.Context, photoRef string) Result {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("gateway panic: %v", r)}
			}
		}()
		res, err := g.inner.Analyze(ctx, photoRef)
		done <- outcome{res: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}

	if out.err != nil {
		if errors.Is(out.err, context.DeadlineExceeded) {
			log.Warnf("[Moderation] %s timed out for %s", g.inner.Name(), photoRef)
		} else {
			log.Warnf("[Moderation] %s failed for %s: %v", g.inner.Name(), photoRef, out.err)
		}
		return NeedsReview(out.err.Error())
	}
	if !validStatus(out.res.Status) || out.res.Confidence < 0 || out.res.Confidence > 1 || math.IsNaN(out.res.Confidence) {
		log.Warnf("[Moderation] %s returned malformed result %+v", g.inner.Name(), out.res)
		return NeedsReview("malformed gateway result")
	}
	return out.res
}

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
