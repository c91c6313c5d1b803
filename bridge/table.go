package bridge

import (
	"context"
	"sync"

	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/graph"
)

// executorLocal never collides with a binding local, which always carries
// the '$' prefix.
const executorLocal = "executor"

// localName is the module-local name a binding is stored under. The prefix
// keeps reserved words usable as export names.
func localName(name string) string {
	return "$" + name
}

// Executor is the zero-argument callable the facade body invokes.
type Executor func(ctx context.Context) (any, error)

// ValidateNames checks a requested export list: non-empty, every entry an
// IdentifierName, no entry repeated. The first problem wins.
func ValidateNames(names []string) error {
	if len(names) == 0 {
		return errors.InvalidInput(errors.PhaseValidate, "export name list is empty")
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return errors.DuplicateExport(name)
		}
		if reason := graph.CheckIdentifierName(name); reason != "" {
			return errors.InvalidName(name, reason)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Table holds one cell per export name plus the executor cell.
// Names keep the order they were requested in. Thread-safe.
type Table struct {
	cells    map[string]*graph.Cell
	executor *graph.Cell
	owner    string
	names    []string
	mu       sync.RWMutex
}

// NewTable validates names and allocates uninitialized cells for them.
func NewTable(names []string) (*Table, error) {
	if err := ValidateNames(names); err != nil {
		return nil, err
	}
	t := &Table{
		names:    append([]string(nil), names...),
		cells:    make(map[string]*graph.Cell, len(names)),
		executor: graph.NewCell(),
	}
	for _, name := range names {
		t.cells[name] = graph.NewCell()
	}
	return t, nil
}

func (t *Table) setOwner(id string) {
	t.mu.Lock()
	t.owner = id
	t.mu.Unlock()
}

func (t *Table) ownerID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.owner
}

// Names returns the binding names in request order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	return len(t.names)
}

// Has reports whether name is a binding of the table.
func (t *Table) Has(name string) bool {
	_, ok := t.cells[name]
	return ok
}

// Cell returns the cell behind name.
func (t *Table) Cell(name string) (*graph.Cell, bool) {
	c, ok := t.cells[name]
	return c, ok
}

// Get returns the current value of name, graph.Uninitialized if never set.
func (t *Table) Get(name string) (any, error) {
	c, ok := t.cells[name]
	if !ok {
		return nil, errors.UnknownBinding(t.ownerID(), name)
	}
	return c.Load(), nil
}

// Set stores v as the value of name.
func (t *Table) Set(name string, v any) error {
	c, ok := t.cells[name]
	if !ok {
		return errors.UnknownBinding(t.ownerID(), name)
	}
	c.Store(v)
	return nil
}

// Executor returns the installed executor, nil while unset.
func (t *Table) Executor() Executor {
	fn, _ := t.executor.Load().(Executor)
	return fn
}

// SetExecutor installs fn as the executor.
func (t *Table) SetExecutor(fn Executor) {
	t.executor.Store(fn)
}
