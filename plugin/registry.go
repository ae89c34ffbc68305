package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onGroupCreated         []OnGroupCreated
	onPaymentReceived      []OnPaymentReceived
	onPaymentAllocated     []OnPaymentAllocated
	onSurplusRecorded      []OnSurplusRecorded
	onFeeReadjusted        []OnFeeReadjusted
	onReconciliationPulled []OnReconciliationPulled
	onAllocationConflict   []OnAllocationConflict
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnGroupCreated); ok {
		r.onGroupCreated = append(r.onGroupCreated, v)
	}
	if v, ok := p.(OnPaymentReceived); ok {
		r.onPaymentReceived = append(r.onPaymentReceived, v)
	}
	if v, ok := p.(OnPaymentAllocated); ok {
		r.onPaymentAllocated = append(r.onPaymentAllocated, v)
	}
	if v, ok := p.(OnSurplusRecorded); ok {
		r.onSurplusRecorded = append(r.onSurplusRecorded, v)
	}
	if v, ok := p.(OnFeeReadjusted); ok {
		r.onFeeReadjusted = append(r.onFeeReadjusted, v)
	}
	if v, ok := p.(OnReconciliationPulled); ok {
		r.onReconciliationPulled = append(r.onReconciliationPulled, v)
	}
	if v, ok := p.(OnAllocationConflict); ok {
		r.onAllocationConflict = append(r.onAllocationConflict, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnGroupCreated)(nil)).Elem(), "OnGroupCreated")
	checkInterface(reflect.TypeOf((*OnPaymentReceived)(nil)).Elem(), "OnPaymentReceived")
	checkInterface(reflect.TypeOf((*OnPaymentAllocated)(nil)).Elem(), "OnPaymentAllocated")
	checkInterface(reflect.TypeOf((*OnSurplusRecorded)(nil)).Elem(), "OnSurplusRecorded")
	checkInterface(reflect.TypeOf((*OnFeeReadjusted)(nil)).Elem(), "OnFeeReadjusted")
	checkInterface(reflect.TypeOf((*OnReconciliationPulled)(nil)).Elem(), "OnReconciliationPulled")
	checkInterface(reflect.TypeOf((*OnAllocationConflict)(nil)).Elem(), "OnAllocationConflict")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGroupCreated emits a group created event.
func (r *Registry) EmitGroupCreated(ctx context.Context, group interface{}) {
	r.mu.RLock()
	plugins := r.onGroupCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGroupCreated(ctx, group)
		}); err != nil {
			r.logger.Warn("plugin OnGroupCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentReceived emits a payment received event.
func (r *Registry) EmitPaymentReceived(ctx context.Context, payment interface{}) {
	r.mu.RLock()
	plugins := r.onPaymentReceived
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentReceived(ctx, payment)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentReceived failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentAllocated emits a payment allocated event.
func (r *Registry) EmitPaymentAllocated(ctx context.Context, payment interface{}, recordCount int) {
	r.mu.RLock()
	plugins := r.onPaymentAllocated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentAllocated(ctx, payment, recordCount)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentAllocated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSurplusRecorded emits a surplus recorded event.
func (r *Registry) EmitSurplusRecorded(ctx context.Context, paymentID string, surplus interface{}) {
	r.mu.RLock()
	plugins := r.onSurplusRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSurplusRecorded(ctx, paymentID, surplus)
		}); err != nil {
			r.logger.Warn("plugin OnSurplusRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFeeReadjusted emits a fee readjusted event.
func (r *Registry) EmitFeeReadjusted(ctx context.Context, fee interface{}, record interface{}) {
	r.mu.RLock()
	plugins := r.onFeeReadjusted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFeeReadjusted(ctx, fee, record)
		}); err != nil {
			r.logger.Warn("plugin OnFeeReadjusted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitReconciliationPulled emits a reconciliation pulled event.
func (r *Registry) EmitReconciliationPulled(ctx context.Context, groupReference string, rowCount int) {
	r.mu.RLock()
	plugins := r.onReconciliationPulled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReconciliationPulled(ctx, groupReference, rowCount)
		}); err != nil {
			r.logger.Warn("plugin OnReconciliationPulled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAllocationConflict emits an allocation conflict event.
func (r *Registry) EmitAllocationConflict(ctx context.Context, groupID string) {
	r.mu.RLock()
	plugins := r.onAllocationConflict
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAllocationConflict(ctx, groupID)
		}); err != nil {
			r.logger.Warn("plugin OnAllocationConflict failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the apportionment pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
