package research

import (
	"context"
	"time"

	"github.com/BaSui01/researchflow/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/BaSui01/researchflow/research")

// Observer receives pipeline measurements. *metrics.Collector implements it.
type Observer interface {
	RecordBackendFetch(backend string, fragments int, duration time.Duration, err error)
	RecordSynthesis(attempts int, exhausted bool)
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

type nopObserver struct{}

func (nopObserver) RecordBackendFetch(string, int, time.Duration, error) {}
func (nopObserver) RecordSynthesis(int, bool)                            {}
func (nopObserver) RecordCacheHit(string)                                {}
func (nopObserver) RecordCacheMiss(string)                               {}

func orNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

// observedBackend times every Fetch.
type observedBackend struct {
	Backend
	observer Observer
}

// Observe wraps b so each fetch is reported to o. A nil observer returns b.
func Observe(b Backend, o Observer) Backend {
	if o == nil {
		return b
	}
	return &observedBackend{Backend: b, observer: o}
}

func (b *observedBackend) Fetch(ctx context.Context, query string, top int) ([]types.Fragment, error) {
	ctx, span := tracer.Start(ctx, "research.backend.fetch",
		trace.WithAttributes(backendAttr(b.Type())))
	defer span.End()

	start := time.Now()
	out, err := b.Backend.Fetch(ctx, query, top)
	b.observer.RecordBackendFetch(string(b.Type()), len(out), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}
