package gpu

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PlatformFactory creates a Platform for the given configuration.
type PlatformFactory func(cfg Config) (*Platform, error)

var (
	// platformFactories holds the registered platforms. Protected by muPlatforms.
	platformFactories = make(map[string]PlatformFactory)
	muPlatforms       sync.Mutex
)

// RegisterPlatform makes a platform available by name to NewPlatform and Open.
//
// It is usually called from the init function of the package implementing the platform (see package gpu/sim).
// Registering the same name twice replaces the previous factory.
func RegisterPlatform(name string, factory PlatformFactory) {
	muPlatforms.Lock()
	defer muPlatforms.Unlock()
	if _, found := platformFactories[name]; found {
		klog.Warningf("gpu.RegisterPlatform(%q): replacing previously registered platform", name)
	}
	platformFactories[name] = factory
}

// Platforms returns the names of the registered platforms, sorted.
func Platforms() []string {
	muPlatforms.Lock()
	defer muPlatforms.Unlock()
	names := keys(platformFactories)
	slices.Sort(names)
	return names
}

// NewPlatform creates the platform registered with the given name.
func NewPlatform(name string, cfg Config) (*Platform, error) {
	muPlatforms.Lock()
	factory, found := platformFactories[name]
	muPlatforms.Unlock()
	if !found {
		return nil, errors.Errorf("gpu platform %q not registered, registered platforms: %v -- did you import its package?", name, Platforms())
	}
	p, err := factory(cfg)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating gpu platform %q", name)
	}
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}

// keys returns the keys of a map in the form of a slice.
func keys[K comparable, V any](m map[K]V) []K {
	s := make([]K, 0, len(m))
	for k := range m {
		s = append(s, k)
	}
	return s
}
