// Package scheduler defines the contract every resource-type adapter offers
// the start/stop orchestrator, and a registry to select adapters by name.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/edvin/ecs-scheduler/internal/model"
)

var (
	ErrUnknownAdapter   = errors.New("unknown scheduler adapter")
	ErrDuplicateAdapter = errors.New("scheduler adapter already registered")
)

var validate = validator.New()

// Params is passed to every adapter entry point for one invocation.
type Params struct {
	Account      string
	Region       string `validate:"required"`
	TagName      string `validate:"required"`
	InvocationID string
	Logger       zerolog.Logger
}

func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid scheduler params: %w", err)
	}
	return nil
}

// Adapter discovers schedulable resources of one type and moves them between
// running and stopped.
//
// Stop and Start return lazy sequences: nothing happens until the caller
// ranges over them, and each is meant to be consumed once.
type Adapter interface {
	Name() string
	Discover(ctx context.Context, p Params) ([]model.ClusterRecord, error)
	Stop(ctx context.Context, p Params, clusters []model.ClusterRecord) iter.Seq2[model.Transition, error]
	Start(ctx context.Context, p Params, clusters []model.ClusterRecord) iter.Seq2[model.Transition, error]
}

// Registry maps resource-type names to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.adapters[a.Name()]; ok {
		return fmt.Errorf("register %s: %w", a.Name(), ErrDuplicateAdapter)
	}
	r.adapters[a.Name()] = a
	return nil
}

func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", name, ErrUnknownAdapter)
	}
	return a, nil
}

// Names returns the registered adapter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Drain consumes a transition sequence, returning every successful
// transition and the first error, if any. Consumption stops at the first error.
func Drain(seq iter.Seq2[model.Transition, error]) ([]model.Transition, error) {
	var out []model.Transition
	for t, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}
