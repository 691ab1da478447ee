package adapter

import (
	"fmt"
	"sort"
	"strings"
)

// Constructor builds an adapter instance from its provider configuration.
type Constructor func(cfg Config) (any, error)

// Registry maps namespaced provider keys ("payments.stripe") to adapter
// constructors. Registration happens once at process start; lookups are
// read-only, so no locking is required.
type Registry struct {
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: map[string]Constructor{}}
}

// Register adds a constructor under a namespaced name. Re-registering an
// existing name overwrites it silently: last registration wins.
func (r *Registry) Register(name string, ctor Constructor) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !validName(name) {
		return fmt.Errorf("register %q: %w", name, ErrInvalidName)
	}
	if ctor == nil {
		return fmt.Errorf("register %q: nil constructor", name)
	}
	r.constructors[name] = ctor
	return nil
}

// Resolve looks a constructor up case-insensitively.
func (r *Registry) Resolve(name string) (Constructor, error) {
	ctor, ok := r.constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, name)
	}
	return ctor, nil
}

// Names returns all registered names sorted ascending, optionally filtered by
// namespace prefix ("payments").
func (r *Registry) Names(prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix != "" && !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validName(name string) bool {
	if strings.Count(name, ".") != 1 {
		return false
	}
	dot := strings.Index(name, ".")
	return dot > 0 && dot < len(name)-1
}

// Resolver binds the registry to per-provider configuration and hands out
// capability-typed adapter instances. It replaces the old pattern of probing
// instances for methods: a provider declares its capabilities through the
// interfaces it implements, and the caller asks for one by type here.
type Resolver struct {
	registry *Registry
	configs  map[string]Config
}

func NewResolver(registry *Registry, configs map[string]Config) *Resolver {
	normalized := make(map[string]Config, len(configs))
	for name, cfg := range configs {
		normalized[strings.ToLower(strings.TrimSpace(name))] = cfg
	}
	return &Resolver{registry: registry, configs: normalized}
}

func (d *Resolver) build(name string) (any, error) {
	ctor, err := d.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	return ctor(d.configs[strings.ToLower(name)])
}

func (d *Resolver) Payment(provider string) (PaymentAdapter, error) {
	inst, err := d.build("payments." + provider)
	if err != nil {
		return nil, err
	}
	typed, ok := inst.(PaymentAdapter)
	if !ok {
		return nil, fmt.Errorf("payments.%s: %w", provider, ErrCapability)
	}
	return typed, nil
}

func (d *Resolver) Sms(provider string) (SmsAdapter, error) {
	inst, err := d.build("notifications." + provider)
	if err != nil {
		return nil, err
	}
	typed, ok := inst.(SmsAdapter)
	if !ok {
		return nil, fmt.Errorf("notifications.%s: %w", provider, ErrCapability)
	}
	return typed, nil
}

func (d *Resolver) Email(provider string) (EmailAdapter, error) {
	inst, err := d.build("notifications." + provider)
	if err != nil {
		return nil, err
	}
	typed, ok := inst.(EmailAdapter)
	if !ok {
		return nil, fmt.Errorf("notifications.%s: %w", provider, ErrCapability)
	}
	return typed, nil
}

func (d *Resolver) Push(provider string) (PushAdapter, error) {
	inst, err := d.build("notifications." + provider)
	if err != nil {
		return nil, err
	}
	typed, ok := inst.(PushAdapter)
	if !ok {
		return nil, fmt.Errorf("notifications.%s: %w", provider, ErrCapability)
	}
	return typed, nil
}

func (d *Resolver) Flights(provider string) (FlightsAdapter, error) {
	inst, err := d.build("flights." + provider)
	if err != nil {
		return nil, err
	}
	typed, ok := inst.(FlightsAdapter)
	if !ok {
		return nil, fmt.Errorf("flights.%s: %w", provider, ErrCapability)
	}
	return typed, nil
}

func (d *Resolver) Maps(provider string) (MapsAdapter, error) {
	inst, err := d.build("maps." + provider)
	if err != nil {
		return nil, err
	}
	typed, ok := inst.(MapsAdapter)
	if !ok {
		return nil, fmt.Errorf("maps.%s: %w", provider, ErrCapability)
	}
	return typed, nil
}
