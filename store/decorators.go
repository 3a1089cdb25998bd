package store

import (
	"context"

	"github.com/jonwraymond/metacache/observe"
	"github.com/jonwraymond/metacache/resilience"
)

// passthrough forwards the optional interfaces of the wrapped store.
type passthrough struct {
	inner Store
}

func (p passthrough) Ping(ctx context.Context) error {
	if pinger, ok := p.inner.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func (p passthrough) QuoteIdent(name string) (string, error) {
	return QuoteIdent(p.inner, name)
}

// resilientStore runs every call through a resilience.Executor.
type resilientStore struct {
	passthrough
	exec *resilience.Executor
}

// WithExecutor wraps s so that each call runs through exec (retry, circuit
// breaker, timeout, bulkhead). Failures introduced by the executor itself,
// such as an open circuit, are reported as data-access errors.
func WithExecutor(s Store, exec *resilience.Executor) Store {
	if exec == nil {
		return s
	}
	return &resilientStore{passthrough: passthrough{inner: s}, exec: exec}
}

func (r *resilientStore) Query(ctx context.Context, query string, params Params) ([]Row, error) {
	var rows []Row
	err := r.exec.Execute(ctx, func(ctx context.Context) error {
		var err error
		rows, err = r.inner.Query(ctx, query, params)
		return err
	})
	if err != nil {
		return nil, wrapError(ctx, "query", err)
	}
	return rows, nil
}

func (r *resilientStore) Execute(ctx context.Context, query string, params Params) (int64, error) {
	var n int64
	err := r.exec.Execute(ctx, func(ctx context.Context) error {
		var err error
		n, err = r.inner.Execute(ctx, query, params)
		return err
	})
	if err != nil {
		return 0, wrapError(ctx, "execute", err)
	}
	return n, nil
}

// instrumentedStore records a span, metrics and a log line per call.
type instrumentedStore struct {
	passthrough
	mw *observe.Middleware
}

// Instrument wraps s with observability middleware.
func Instrument(s Store, mw *observe.Middleware) Store {
	if mw == nil {
		return s
	}
	return &instrumentedStore{passthrough: passthrough{inner: s}, mw: mw}
}

func (i *instrumentedStore) Query(ctx context.Context, query string, params Params) ([]Row, error) {
	op := observe.Operation{Component: "store", Name: "query", Statement: StatementFromContext(ctx)}
	out, err := i.mw.Wrap(func(ctx context.Context, _ observe.Operation) (any, error) {
		return i.inner.Query(ctx, query, params)
	})(ctx, op)
	rows, _ := out.([]Row)
	return rows, err
}

func (i *instrumentedStore) Execute(ctx context.Context, query string, params Params) (int64, error) {
	op := observe.Operation{Component: "store", Name: "execute", Statement: StatementFromContext(ctx)}
	out, err := i.mw.Wrap(func(ctx context.Context, _ observe.Operation) (any, error) {
		return i.inner.Execute(ctx, query, params)
	})(ctx, op)
	n, _ := out.(int64)
	return n, err
}

var (
	_ Store       = (*resilientStore)(nil)
	_ Pinger      = (*resilientStore)(nil)
	_ IdentQuoter = (*instrumentedStore)(nil)
)
