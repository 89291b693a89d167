package frame

import "fmt"

// LazyFrame is a deferred plan: a source and the steps to run over it.
// Building a plan never touches the source; Collect does.
type LazyFrame struct {
	name   string
	source func() (*Frame, error)
	steps  []step
}

type step struct {
	name string
	fn   func(*Frame) (*Frame, error)
}

// Lazy wraps a source function. name labels errors raised while collecting.
func Lazy(name string, source func() (*Frame, error)) *LazyFrame {
	return &LazyFrame{name: name, source: source}
}

// FromFrame wraps an already materialised frame.
func FromFrame(name string, f *Frame) *LazyFrame {
	return Lazy(name, func() (*Frame, error) { return f, nil })
}

func (lf *LazyFrame) Name() string { return lf.name }

// Then returns a new plan with fn appended; lf is left unchanged.
func (lf *LazyFrame) Then(name string, fn func(*Frame) (*Frame, error)) *LazyFrame {
	steps := make([]step, len(lf.steps), len(lf.steps)+1)
	copy(steps, lf.steps)
	return &LazyFrame{name: lf.name, source: lf.source, steps: append(steps, step{name: name, fn: fn})}
}

// Steps lists the plan's step names in execution order.
func (lf *LazyFrame) Steps() []string {
	out := make([]string, len(lf.steps))
	for i, s := range lf.steps {
		out[i] = s.name
	}
	return out
}

func (lf *LazyFrame) Collect() (*Frame, error) {
	f, err := lf.source()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", lf.name, err)
	}
	for _, s := range lf.steps {
		if f, err = s.fn(f); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", lf.name, s.name, err)
		}
	}
	return f, nil
}
