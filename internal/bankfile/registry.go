package bankfile

import (
	"fmt"

	"github.com/ignaciomazza/ofistur-billing/pkg/errors"
)

// Registry resolves adapters by name.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry over the provided adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	reg := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		reg.adapters[a.Name()] = a
	}
	return reg
}

// DefaultRegistry registers every adapter the engine ships.
func DefaultRegistry() *Registry {
	return NewRegistry(NewPagoDirecto(), NewDebugCSV())
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("unknown bank adapter %q", name))
	}
	return a, nil
}
