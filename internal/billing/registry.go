package billing

import (
	"fmt"
	"sort"
	"sync"
)

// SourceConfig describes a billing portal the service can fetch from.
type SourceConfig struct {
	// Key is the unique identifier for this source (e.g., "bjwater").
	Key string `json:"key"`

	// Name is the human-readable name of the utility.
	Name string `json:"name"`

	// BaseURL is the portal host every endpoint is resolved against.
	BaseURL string `json:"base_url"`
}

var (
	sourcesMu sync.RWMutex
	sources   = make(map[string]SourceConfig)
)

func init() {
	RegisterSource(SourceConfig{
		Key:     "bjwater",
		Name:    "Beijing Water Group",
		BaseURL: DefaultBaseURL,
	})
}

// RegisterSource registers a billing source.
// This is typically called from an init() function.
func RegisterSource(cfg SourceConfig) {
	if cfg.Key == "" {
		panic("billing: RegisterSource called with empty key")
	}
	if cfg.BaseURL == "" {
		panic(fmt.Sprintf("billing: RegisterSource(%q) called with empty BaseURL", cfg.Key))
	}

	sourcesMu.Lock()
	defer sourcesMu.Unlock()

	if _, exists := sources[cfg.Key]; exists {
		panic(fmt.Sprintf("billing: RegisterSource called twice for key %q", cfg.Key))
	}
	sources[cfg.Key] = cfg
}

// GetSource returns the source registered under key.
func GetSource(key string) (SourceConfig, bool) {
	sourcesMu.RLock()
	defer sourcesMu.RUnlock()

	cfg, ok := sources[key]
	return cfg, ok
}

// ListSources returns all registered sources sorted by key.
func ListSources() []SourceConfig {
	sourcesMu.RLock()
	defer sourcesMu.RUnlock()

	out := make([]SourceConfig, 0, len(sources))
	for _, s := range sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
