package bridge

import (
	"context"
	"sort"
)

// FromMap creates a bridge exporting every key of values. Evaluating the
// facade copies the values into the bindings. Keys are exported in sorted
// order; a key that is not an IdentifierName fails creation.
func FromMap(ctx context.Context, label string, values map[string]any, opts ...Option) (*Bridge, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	snapshot := make(map[string]any, len(values))
	for k, v := range values {
		snapshot[k] = v
	}

	return New(ctx, names, label, func(_ context.Context, reflect Reflector) (any, error) {
		for _, name := range names {
			if err := reflect.Set(name, snapshot[name]); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}, opts...)
}
