package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

var (
	ErrOperatorExists   = errors.New("operator already registered")
	ErrOperatorNotFound = errors.New("operator not found")
)

// OperatorConfig carries the knobs a factory may use.
type OperatorConfig struct {
	Rand  *rand.Rand
	Rate  float64
	Scale float64
}

type Factory func(cfg OperatorConfig) (Operator, error)

var operatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: builtinOperators(),
}

func builtinOperators() map[string]Factory {
	return map[string]Factory{
		"gaussian_mask": func(cfg OperatorConfig) (Operator, error) {
			if cfg.Rand == nil {
				return nil, ErrRandomSourceRequired
			}
			return &GaussianMask{Rand: cfg.Rand, Rate: cfg.Rate, Scale: cfg.Scale}, nil
		},
	}
}

func RegisterOperator(name string, factory Factory) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if factory == nil {
		return errors.New("operator factory is required")
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, name)
	}
	operatorRegistry.m[name] = factory
	return nil
}

// ResolveOperator builds the named operator from cfg.
func ResolveOperator(name string, cfg OperatorConfig) (Operator, error) {
	operatorRegistry.mu.RLock()
	factory, ok := operatorRegistry.m[name]
	operatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	return factory(cfg)
}

func ListOperators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(operatorRegistry.m))
	for name := range operatorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetOperatorRegistryForTests() {
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()
	operatorRegistry.m = builtinOperators()
}
