package middleware

import "github.com/aretw0/lattice/pkg/ports"

// Middleware allows wrapping a ProjectStore to add behavior.
type Middleware func(ports.ProjectStore) ports.ProjectStore

// Chain applies middlewares in order; the first one sees calls first.
func Chain(store ports.ProjectStore, mws ...Middleware) ports.ProjectStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
