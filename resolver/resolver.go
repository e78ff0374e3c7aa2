// Package resolver dispatches DID resolution to per-method handlers.
//
// The resolver holds no cache and no cross-call state beyond the handler
// registry; callers needing caching or request de-duplication wrap it
// externally. Handlers are expected to be registered once at startup,
// before resolution traffic starts.
package resolver

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/did"
)

// ErrUnsupportedMethod is returned when no handler is registered for a
// DID's method.
var ErrUnsupportedMethod = errors.New("unsupported DID method")

// Handler fetches the DID Document for a DID of the method it was
// registered under.
type Handler func(ctx context.Context, d did.DID) (*did.Document, error)

// Resolver maps DID method names to handlers.
type Resolver struct {
	handlers map[string]Handler
}

// New creates a resolver with no handlers attached.
func New() *Resolver {
	return &Resolver{handlers: make(map[string]Handler)}
}

// AttachHandler registers the handler for a method name. Re-registering
// the same method replaces the previous handler.
func (r *Resolver) AttachHandler(method string, handler Handler) {
	r.handlers[method] = handler
}

// DetachHandler removes the handler for a method name, if any.
func (r *Resolver) DetachHandler(method string) {
	delete(r.handlers, method)
}

// Resolve fetches the DID Document for d via the handler registered for
// its method. Handler failures are wrapped as resolution errors with the
// underlying cause preserved.
func (r *Resolver) Resolve(ctx context.Context, d did.DID) (*did.Document, error) {
	handler, ok := r.handlers[d.Method()]
	if !ok {
		return nil, verror.Wrap(verror.KindResolution, "no handler for method "+d.Method(), ErrUnsupportedMethod)
	}

	doc, err := handler(ctx, d)
	if err != nil {
		return nil, verror.Wrap(verror.KindResolution, "resolution of "+d.String()+" failed", err)
	}

	return doc, nil
}

// ResolveString parses s as a DID and resolves it.
func (r *Resolver) ResolveString(ctx context.Context, s string) (*did.Document, error) {
	d, err := did.Parse(s)
	if err != nil {
		return nil, verror.Wrap(verror.KindResolution, "cannot resolve malformed DID", err)
	}

	return r.Resolve(ctx, d)
}

// Result is the outcome of resolving one DID within a batch.
type Result struct {
	DID      did.DID
	Document *did.Document
	Err      error
}

// ResolveMultiple resolves every DID independently and concurrently. One
// failure never hides the others, and the result order always matches
// the input order.
func (r *Resolver) ResolveMultiple(ctx context.Context, dids []did.DID) []Result {
	results := make([]Result, len(dids))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range dids {
		i, d := i, d
		g.Go(func() error {
			doc, err := r.Resolve(gctx, d)
			results[i] = Result{DID: d, Document: doc, Err: err}

			// Failures are reported per slot, never through the group.
			return nil
		})
	}

	_ = g.Wait()

	return results
}
