// Package middleware decorates the persistence ports: execution stores get
// at-rest encryption of collected variables, analytics sinks get PII masking.
package middleware

import "github.com/aretw0/chatflow/pkg/ports"

// Middleware allows wrapping an ExecutionStore to add behavior.
type Middleware func(ports.ExecutionStore) ports.ExecutionStore

// Chain applies mws to store. The first middleware is the outermost.
func Chain(store ports.ExecutionStore, mws ...Middleware) ports.ExecutionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// SinkMiddleware allows wrapping an AnalyticsSink to add behavior.
type SinkMiddleware func(ports.AnalyticsSink) ports.AnalyticsSink
