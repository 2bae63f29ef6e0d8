package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/cloudx-io/auctiontimeline/core"
	"github.com/cloudx-io/auctiontimeline/timeline"
)

// EnvPrefix prefixes every environment override; "__" separates nesting levels.
const EnvPrefix = "AUCTION_TIMELINE_"

// DefaultPath is the config file read when no path is given.
const DefaultPath = "auction-timeline.yaml"

type Config struct {
	Engine  EngineConfig  `koanf:"engine"`
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
}

type EngineConfig struct {
	PublisherSeller   string                   `koanf:"publisher_seller"`
	Sellers           []string                 `koanf:"sellers"`
	AdUnits           []AdUnitConfig           `koanf:"ad_units"`
	TimeBuckets       []string                 `koanf:"time_buckets"`
	PhaseWindowMs     int64                    `koanf:"phase_window_ms"`
	BidFloor          float64                  `koanf:"bid_floor"`
	AdjustmentFactors []AdjustmentFactorConfig `koanf:"adjustment_factors"`
}

type AdUnitConfig struct {
	Code               string  `koanf:"code"`
	MediaContainerSize [][]int `koanf:"media_container_size"` // [[width, height], ...]
	MediaType          string  `koanf:"media_type"`
}

// AdjustmentFactorConfig is a list entry because owner origins contain the key delimiter.
type AdjustmentFactorConfig struct {
	Owner  string  `koanf:"owner"`
	Factor float64 `koanf:"factor"`
}

type ServerConfig struct {
	Transport  string `koanf:"transport"` // vsock, tcp
	Address    string `koanf:"address"`   // tcp only
	Port       int    `koanf:"port"`
	MaxWorkers int    `koanf:"max_workers"`
	SessionTTL string `koanf:"session_ttl"` // Duration string like "10m"
}

type StorageConfig struct {
	SQLitePath string `koanf:"sqlite_path"` // empty disables snapshot history
}

// Load reads the YAML file at path (DefaultPath when empty; a missing file is fine),
// applies environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = DefaultPath
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	catalog := core.DefaultCatalog()

	if !k.Exists("engine.publisher_seller") {
		k.Set("engine.publisher_seller", catalog.PublisherSeller)
	}
	if !k.Exists("engine.sellers") {
		k.Set("engine.sellers", catalog.Sellers)
	}
	if !k.Exists("engine.time_buckets") {
		k.Set("engine.time_buckets", catalog.TimeBuckets)
	}
	if !k.Exists("engine.ad_units") {
		units := make([]map[string]any, 0, len(catalog.AdUnits))
		for _, unit := range catalog.AdUnits {
			sizes := make([][]int, 0, len(unit.MediaContainerSize))
			for _, size := range unit.MediaContainerSize {
				sizes = append(sizes, []int{size[0], size[1]})
			}
			units = append(units, map[string]any{
				"code":                 unit.Code,
				"media_container_size": sizes,
				"media_type":           unit.MediaType,
			})
		}
		k.Set("engine.ad_units", units)
	}
	if !k.Exists("engine.phase_window_ms") {
		k.Set("engine.phase_window_ms", timeline.DefaultPhaseWindowMs)
	}
	if !k.Exists("server.transport") {
		k.Set("server.transport", "vsock")
	}
	if !k.Exists("server.address") {
		k.Set("server.address", "127.0.0.1")
	}
	if !k.Exists("server.port") {
		k.Set("server.port", 5000)
	}
	if !k.Exists("server.max_workers") {
		k.Set("server.max_workers", 16)
	}
	if !k.Exists("server.session_ttl") {
		k.Set("server.session_ttl", "10m")
	}
}

// Catalog converts the engine settings into a validated catalog.
// The publisher seller is appended to the seller list when missing.
func (c *Config) Catalog() (core.Catalog, error) {
	catalog := core.Catalog{
		TimeBuckets:     c.Engine.TimeBuckets,
		Sellers:         core.RotateSellers(c.Engine.Sellers, c.Engine.PublisherSeller),
		PublisherSeller: c.Engine.PublisherSeller,
	}

	for _, unit := range c.Engine.AdUnits {
		sizes := make([]core.MediaSize, 0, len(unit.MediaContainerSize))
		for _, size := range unit.MediaContainerSize {
			if len(size) != 2 {
				return core.Catalog{}, fmt.Errorf("ad unit %s: media container size must be [width, height], got %v", unit.Code, size)
			}
			sizes = append(sizes, core.MediaSize{size[0], size[1]})
		}
		catalog.AdUnits = append(catalog.AdUnits, core.AdUnit{
			Code:               unit.Code,
			MediaContainerSize: sizes,
			MediaType:          unit.MediaType,
		})
	}

	if err := catalog.Validate(); err != nil {
		return core.Catalog{}, fmt.Errorf("invalid catalog: %w", err)
	}
	return catalog, nil
}

// Settings returns the synthesis settings.
func (c *Config) Settings() timeline.Settings {
	factors := make(map[string]float64, len(c.Engine.AdjustmentFactors))
	for _, f := range c.Engine.AdjustmentFactors {
		factors[strings.ToLower(f.Owner)] = f.Factor
	}
	return timeline.Settings{
		PhaseWindowMs:     c.Engine.PhaseWindowMs,
		BidFloor:          c.Engine.BidFloor,
		AdjustmentFactors: factors,
	}
}
