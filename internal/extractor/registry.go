package extractor

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ryeos/ryekernel/internal/item"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// Registry owns one Config per item type, lazily populated from the
// highest-precedence tier that declares an override, falling back to the
// built-in default otherwise. The cache is process-wide by convention
// (construct a single Registry per process or per test) and is mutated
// only by Reset, never implicitly.
type Registry struct {
	mu    sync.RWMutex
	cache map[item.Type]*Config
}

// New returns an empty Registry. Nothing is loaded until Get is called.
func New() *Registry {
	return &Registry{cache: make(map[item.Type]*Config)}
}

// Reset clears the cache; intended for test isolation only, per spec.md's
// concurrency model for the Extractor Registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[item.Type]*Config)
}

// Get returns the Config for itemType, loading it on first access. tiers is
// searched in precedence order (project, user, each system bundle root) for
// "{tier}/.ai/extractors/{itemType}.yaml"; the first file found wins. If no
// tier declares one, the built-in default for that type is used.
func (r *Registry) Get(itemType item.Type, tiers []string) (*Config, error) {
	r.mu.RLock()
	if cfg, ok := r.cache[itemType]; ok {
		r.mu.RUnlock()
		return cfg, nil
	}
	r.mu.RUnlock()

	cfg, err := r.load(itemType, tiers)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[itemType] = cfg
	r.mu.Unlock()
	return cfg, nil
}

func (r *Registry) load(itemType item.Type, tiers []string) (*Config, error) {
	for _, tier := range tiers {
		path := filepath.Join(tier, ".ai", "extractors", string(itemType)+".yaml")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return decodeConfig(data, itemType)
	}

	data, err := defaultsFS.ReadFile("defaults/" + string(itemType) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("extractor: no extractor config found for type %q and no built-in default: %w", itemType, err)
	}
	return decodeConfig(data, itemType)
}

func decodeConfig(data []byte, itemType item.Type) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("extractor: parse config for %q: %w", itemType, err)
	}
	if cfg.ItemType == "" {
		cfg.ItemType = itemType
	}
	return &cfg, nil
}
