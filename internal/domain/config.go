package domain

// MaxDecimals bounds every decimal precision the aggregator accepts.
const MaxDecimals = 18

// OracleConfig describes how an asset is priced upstream.
type OracleConfig struct {
	SourceID   string `json:"source_id" yaml:"source_id"`
	Decimals   uint32 `json:"decimals" yaml:"decimals"`
	Resolution uint32 `json:"resolution" yaml:"resolution"`
}

func (c OracleConfig) Validate() error {
	if c.SourceID == "" || c.Resolution == 0 || c.Decimals > MaxDecimals {
		return ErrInvalidOracleConfig
	}
	return nil
}

// BreakerSettings are fixed at initialization.
type BreakerSettings struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Threshold is the maximum allowed deviation in parts-per-million of the
	// reference price.
	Threshold uint64 `json:"threshold" yaml:"threshold"`
	// Timeout is how many seconds the breaker stays tripped.
	Timeout uint64 `json:"timeout" yaml:"timeout"`
}

// SettingsConfig is the one-time initialization bundle. Assets and
// AssetConfigs are parallel lists.
type SettingsConfig struct {
	Assets                  []Asset        `json:"assets"`
	AssetConfigs            []OracleConfig `json:"asset_configs"`
	Decimals                uint32         `json:"decimals"`
	Base                    Asset          `json:"base"`
	EnableCircuitBreaker    bool           `json:"enable_circuit_breaker"`
	CircuitBreakerThreshold uint64         `json:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   uint64         `json:"circuit_breaker_timeout"`
}

func (s SettingsConfig) Breaker() BreakerSettings {
	return BreakerSettings{
		Enabled:   s.EnableCircuitBreaker,
		Threshold: s.CircuitBreakerThreshold,
		Timeout:   s.CircuitBreakerTimeout,
	}
}
