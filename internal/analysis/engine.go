package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Request is one unit of work for the engine: a prompt plus the payload it
// describes.
type Request struct {
	Prompt      string
	Kind        PayloadKind
	PayloadPath string
}

// Result is the outcome at the matching input index. Err is the failure
// marker; Text is only meaningful when Err is nil.
type Result struct {
	Text string
	Err  error
}

// Failed reports whether this slot carries a failure marker.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Logger is the minimal logging surface the engine needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Engine fans a batch of capability calls out concurrently while preserving
// input order. The batch is a hard barrier: Dispatch returns only when every
// call has resolved to a result or a failure marker.
type Engine struct {
	caller      Caller
	logger      Logger
	CallTimeout time.Duration

	// OTEL metrics
	processed metric.Int64Counter
	failed    metric.Int64Counter
	inFlight  metric.Int64UpDownCounter
}

// NewEngine creates an Engine. Uses the global OTel meter for metrics
// (no-op if not configured).
func NewEngine(caller Caller, logger Logger) (*Engine, error) {
	e := &Engine{
		caller:      caller,
		logger:      logger,
		CallTimeout: DefaultCallTimeout,
	}

	m := meter()

	var err error
	e.processed, err = m.Int64Counter(
		"analysis.calls.processed",
		metric.WithDescription("Total analysis calls resolved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	e.failed, err = m.Int64Counter(
		"analysis.calls.failed",
		metric.WithDescription("Total analysis calls that failed or timed out"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	e.inFlight, err = m.Int64UpDownCounter(
		"analysis.calls.inflight",
		metric.WithDescription("Analysis calls currently in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating inflight counter: %w", err)
	}

	return e, nil
}

// Dispatch issues every request concurrently and blocks until all resolve.
// The returned slice has exactly one entry per input, at the input's index,
// regardless of completion order. A failed or timed-out call yields a
// failure marker at its slot rather than a gap; there are no retries.
func (e *Engine) Dispatch(ctx context.Context, requests []Request) []Result {
	results := make([]Result, len(requests))
	if len(requests) == 0 {
		return results
	}

	kindAttr := func(k PayloadKind) attribute.KeyValue {
		if k == PayloadImage {
			return attribute.String("payload", "image")
		}
		return attribute.String("payload", "video")
	}

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(idx int, req Request) {
			defer wg.Done()

			attr := metric.WithAttributes(kindAttr(req.Kind))
			e.inFlight.Add(ctx, 1, attr)
			defer e.inFlight.Add(ctx, -1, attr)

			callCtx, cancel := context.WithTimeout(ctx, e.CallTimeout)
			defer cancel()

			start := time.Now()
			text, err := e.caller.Generate(callCtx, req.Prompt, req.Kind, req.PayloadPath)

			e.processed.Add(ctx, 1, attr)
			if err != nil {
				e.failed.Add(ctx, 1, attr)
				e.logger.Error("Analysis call failed",
					"index", idx, "payload", req.PayloadPath,
					"duration", time.Since(start), "error", err)
				results[idx] = Result{Err: fmt.Errorf("call %d: %w", idx, err)}
				return
			}

			e.logger.Debug("Analysis call complete",
				"index", idx, "duration", time.Since(start), "chars", len(text))
			results[idx] = Result{Text: text}
		}(i, req)
	}
	wg.Wait()

	return results
}
