package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/systemstart/shipline/pkg/api"
)

// Spec describes one reconcile request: which bundle to fetch and which
// destination secret to materialize it into.
type Spec struct {
	Store   string
	Path    string
	Target  Ref
	Enabled bool
}

// Outcome classifies what a reconcile did.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeCreated  Outcome = "created"
	OutcomeReplaced Outcome = "replaced"
)

// Result reports the outcome of a reconcile.
type Result struct {
	Outcome Outcome
	// KeysApplied counts the keys written to the destination.
	KeysApplied int
}

// Reconciler drives bundles from stores into a target. Store backends are
// constructed on first use so a disabled reconcile touches nothing external.
type Reconciler struct {
	stores []api.StoreConfig
	target Target
	// Log overrides the default logger when set.
	Log *slog.Logger

	registry Registry
}

// NewReconciler builds a reconciler over the spec's stores and a target.
func NewReconciler(stores []api.StoreConfig, target Target) *Reconciler {
	return &Reconciler{stores: stores, target: target}
}

// Reconcile fetches the bundle named by spec and replaces the destination
// secret's entire key set with it. A destination that does not exist is
// created; one that does is replaced wholesale, so keys absent from the
// bundle disappear. A disabled spec skips without any external call.
func (r *Reconciler) Reconcile(ctx context.Context, spec Spec) (Result, error) {
	log := r.logger()

	if !spec.Enabled {
		log.Info("secret sync disabled", "target", spec.Target.String())
		return Result{Outcome: OutcomeSkipped}, nil
	}
	if spec.Store == "" || spec.Path == "" {
		return Result{}, errors.New("secret store and path are required")
	}
	if spec.Target.Namespace == "" || spec.Target.Name == "" {
		return Result{}, errors.New("secret target namespace and name are required")
	}

	store, err := r.store(ctx, spec.Store)
	if err != nil {
		return Result{}, err
	}

	bundle, err := store.Fetch(ctx, spec.Path)
	if err != nil {
		return Result{}, err
	}
	log.Info("secret bundle fetched", "store", spec.Store, "path", spec.Path, "keys", bundle.Len())

	exists, err := r.target.Exists(ctx, spec.Target)
	if err != nil {
		return Result{}, fmt.Errorf("%w: checking %s: %w", ErrReconcileFailed, spec.Target, err)
	}

	if exists {
		if err := r.target.Replace(ctx, spec.Target, bundle); err != nil {
			return Result{}, fmt.Errorf("%w: replacing %s: %w", ErrReconcileFailed, spec.Target, err)
		}
		log.Info("secret replaced", "target", spec.Target.String(), "keys", bundle.Len())
		return Result{Outcome: OutcomeReplaced, KeysApplied: bundle.Len()}, nil
	}

	if err := r.target.Create(ctx, spec.Target, bundle); err != nil {
		return Result{}, fmt.Errorf("%w: creating %s: %w", ErrReconcileFailed, spec.Target, err)
	}
	log.Info("secret created", "target", spec.Target.String(), "keys", bundle.Len())
	return Result{Outcome: OutcomeCreated, KeysApplied: bundle.Len()}, nil
}

func (r *Reconciler) store(ctx context.Context, name string) (Store, error) {
	if r.registry == nil {
		registry, err := NewRegistry(ctx, r.stores)
		if err != nil {
			return nil, err
		}
		r.registry = registry
	}
	return r.registry.Get(name)
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
