package graph

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/errors"
)

// Evaluation is the settle-once outcome of evaluating a module.
// It implements Awaitable.
type Evaluation struct {
	future *Future
	module string
}

func newEvaluation(module string) *Evaluation {
	return &Evaluation{module: module, future: NewFuture()}
}

// Module returns the identity of the evaluated module.
func (e *Evaluation) Module() string {
	return e.module
}

// Done is closed once the evaluation settles.
func (e *Evaluation) Done() <-chan struct{} {
	return e.future.Done()
}

// Settled reports whether the evaluation has completed or failed.
func (e *Evaluation) Settled() bool {
	return e.future.Settled()
}

// Result returns the completion value and error once settled.
func (e *Evaluation) Result() (any, error) {
	return e.future.Result()
}

// Wait blocks until the evaluation settles or ctx is done.
func (e *Evaluation) Wait(ctx context.Context) (any, error) {
	return e.future.Wait(ctx)
}

// Value returns the completion value, nil while pending or after failure.
func (e *Evaluation) Value() any {
	v, _ := e.future.Result()
	return v
}

// Err returns the failure, nil while pending or after success.
func (e *Evaluation) Err() error {
	_, err := e.future.Result()
	return err
}

func failedEvaluation(module string, err error) *Evaluation {
	ev := newEvaluation(module)
	ev.future.Reject(err)
	return ev
}

// Evaluate runs the module body after its dependencies, at most once.
// Every call returns the same Evaluation. The returned evaluation may still
// be pending when a dependency or the body completes asynchronously.
func (m *Module) Evaluate(ctx context.Context) *Evaluation {
	return m.evaluate(ctx, make(map[*Module]bool))
}

func (m *Module) evaluate(ctx context.Context, stack map[*Module]bool) *Evaluation {
	m.mu.Lock()
	if m.evaluation != nil {
		ev := m.evaluation
		m.mu.Unlock()
		return ev
	}
	if m.status != StatusInstantiated {
		st := m.status
		m.mu.Unlock()
		return failedEvaluation(m.ID(), errors.InvalidState(errors.PhaseEvaluate, m.ID(), st.String()))
	}
	ev := newEvaluation(m.ID())
	m.evaluation = ev
	m.status = StatusEvaluating
	deps := m.depOrder
	m.mu.Unlock()

	Logger().Debug("evaluating module", zap.String("module", m.ID()))

	stack[m] = true
	var pending []*Evaluation
	for _, dep := range deps {
		// A dependency already on the stack is part of a cycle.
		if stack[dep] {
			continue
		}
		dev := dep.evaluate(ctx, stack)
		if !dev.Settled() {
			pending = append(pending, dev)
			continue
		}
		if err := dev.Err(); err != nil {
			delete(stack, m)
			m.fail(ev, err)
			return ev
		}
	}
	delete(stack, m)

	if len(pending) == 0 {
		m.run(ctx, ev)
		return ev
	}

	m.setStatus(StatusEvaluatingAsync)
	go func() {
		for _, p := range pending {
			if _, err := p.Wait(ctx); err != nil {
				m.fail(ev, err)
				return
			}
		}
		m.run(ctx, ev)
	}()
	return ev
}

func (m *Module) run(ctx context.Context, ev *Evaluation) {
	var (
		value any
		err   error
	)
	if m.desc.Body != nil {
		value, err = m.desc.Body(ctx, &Env{module: m})
	}
	if err != nil {
		m.fail(ev, bodyError(m.ID(), err))
		return
	}

	aw, ok := value.(Awaitable)
	if !ok {
		m.complete(ev, value)
		return
	}

	m.setStatus(StatusEvaluatingAsync)
	go func() {
		select {
		case <-aw.Done():
			v, err := aw.Result()
			if err != nil {
				m.fail(ev, bodyError(m.ID(), err))
				return
			}
			m.complete(ev, v)
		case <-ctx.Done():
			m.fail(ev, bodyError(m.ID(), ctx.Err()))
		}
	}()
}

// bodyError wraps a body failure unless it already is one.
func bodyError(module string, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Kind == errors.KindEvaluation {
		return err
	}
	return errors.Evaluation(module, err)
}

func (m *Module) complete(ev *Evaluation, value any) {
	m.setStatus(StatusEvaluated)
	ev.future.Resolve(value)
	Logger().Debug("module evaluated", zap.String("module", m.ID()))
}

func (m *Module) fail(ev *Evaluation, err error) {
	m.setStatus(StatusErrored)
	ev.future.Reject(err)
	Logger().Debug("module evaluation failed", zap.String("module", m.ID()), zap.Error(err))
}
