package component

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/milodocs/pagekit/errors"
)

// Factory creates a component instance from configuration. The config
// carries the merged options; factories parse what they need and return an
// uninitialized instance. Factories never touch the document; all document
// work happens in the lifecycle stages.
type Factory func(cfg Config, deps Dependencies) (Component, error)

// Registration holds the factory and metadata for one component name.
type Registration struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Selector       string          `json:"selector"`        // default target selector, "" for selector-less
	DependsOn      []string        `json:"depends_on"`      // components that must be ready first
	DefaultOptions map[string]any  `json:"default_options"` // configuration mapping applied before overrides
	OptionsSchema  json.RawMessage `json:"options_schema"`  // optional JSON schema for options validation
	Factory        Factory         `json:"-"`
}

// Registry is the process-wide map from component name to implementation.
// Registration is last-write-wins: overwriting an existing name logs a
// warning but succeeds. All methods are safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	registrations map[string]*Registration
	logger        *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		registrations: make(map[string]*Registration),
		logger:        logger.With("subsystem", "registry"),
	}
}

// Register inserts or overwrites a registration. Default options are
// validated against the registration's JSON schema when one is declared, so
// option typos fail at registration time instead of silently at discovery.
func (r *Registry) Register(reg *Registration) error {
	if reg == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "registration validation")
	}
	if reg.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "name validation")
	}
	if reg.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "factory validation")
	}

	if len(reg.OptionsSchema) > 0 {
		if err := validateOptions(reg.OptionsSchema, reg.DefaultOptions); err != nil {
			return errors.WrapInvalid(err, "Registry", "Register", "default options validation")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registrations[reg.Name]; exists {
		r.logger.Warn("overwriting existing component registration", "name", reg.Name)
	}
	r.registrations[reg.Name] = reg
	return nil
}

// Lookup returns the registration for a name.
func (r *Registry) Lookup(name string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.registrations[name]
	return reg, ok
}

// Names returns all registered component names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.registrations))
	for name := range r.registrations {
		names = append(names, name)
	}
	return names
}

// List returns a copy of all registrations keyed by name.
func (r *Registry) List() map[string]*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Registration, len(r.registrations))
	maps.Copy(out, r.registrations)
	return out
}

// NewConfig builds an instance Config from the registration, overlaying the
// default options with per-create overrides and resolving the selector.
func (reg *Registration) NewConfig(selector string, overrides map[string]any) Config {
	options := make(map[string]any, len(reg.DefaultOptions)+len(overrides))
	maps.Copy(options, reg.DefaultOptions)
	maps.Copy(options, overrides)

	if selector == "" {
		selector = reg.Selector
	}
	return Config{
		Name:      reg.Name,
		Selector:  selector,
		DependsOn: reg.DependsOn,
		Options:   options,
	}
}

// validateOptions checks an options mapping against a JSON schema.
func validateOptions(schema json.RawMessage, options map[string]any) error {
	if options == nil {
		options = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewGoLoader(options),
	)
	if err != nil {
		return fmt.Errorf("schema evaluation: %w", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return fmt.Errorf("options do not match schema: %s", first.String())
	}
	return nil
}
