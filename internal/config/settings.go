package config

import (
	"fmt"
	"os"

	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/source"

	"gopkg.in/yaml.v3"
)

// Settings is the deployment file read from SETTINGS_PATH. It seeds the
// aggregator on first start and defines the upstream sources on every start.
type Settings struct {
	Admin    string `yaml:"admin"`
	Base     string `yaml:"base"`
	Decimals uint32 `yaml:"decimals"`

	CircuitBreaker struct {
		Enabled   bool   `yaml:"enabled"`
		Threshold uint64 `yaml:"threshold"`
		Timeout   uint64 `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	Assets  []AssetSetting      `yaml:"assets"`
	Sources []source.Definition `yaml:"sources"`
}

type AssetSetting struct {
	Asset      string `yaml:"asset"`
	Source     string `yaml:"source"`
	Decimals   uint32 `yaml:"decimals"`
	Resolution uint32 `yaml:"resolution"`
}

func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings applies the defaults of the reference deployment: 7 output
// decimals and an enabled breaker at 100000 ppm with a 7200s timeout.
func ParseSettings(data []byte) (*Settings, error) {
	s := &Settings{Decimals: 7}
	s.CircuitBreaker.Enabled = true
	s.CircuitBreaker.Threshold = 100000
	s.CircuitBreaker.Timeout = 7200

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}

// Config converts the file into the initialization bundle.
func (s *Settings) Config() (domain.SettingsConfig, error) {
	base, err := domain.ParseAsset(s.Base)
	if err != nil {
		return domain.SettingsConfig{}, fmt.Errorf("base: %w", err)
	}
	out := domain.SettingsConfig{
		Decimals:                s.Decimals,
		Base:                    base,
		EnableCircuitBreaker:    s.CircuitBreaker.Enabled,
		CircuitBreakerThreshold: s.CircuitBreaker.Threshold,
		CircuitBreakerTimeout:   s.CircuitBreaker.Timeout,
	}
	for _, a := range s.Assets {
		asset, err := domain.ParseAsset(a.Asset)
		if err != nil {
			return domain.SettingsConfig{}, fmt.Errorf("assets: %w", err)
		}
		out.Assets = append(out.Assets, asset)
		out.AssetConfigs = append(out.AssetConfigs, domain.OracleConfig{
			SourceID:   a.Source,
			Decimals:   a.Decimals,
			Resolution: a.Resolution,
		})
	}
	return out, nil
}
