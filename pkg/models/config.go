package models

// Config carries the recognized tracking options. Zero values are filled in
// by Normalize, so a decoded partial config is safe to use.
type Config struct {
	TrackingEnabled      bool    `json:"trackingEnabled"`
	AutoTrackImpressions bool    `json:"autoTrackImpressions"`
	ImpressionThreshold  float64 `json:"impressionThreshold"`
	DebounceDelay        int     `json:"debounceDelay"`
	Debug                bool    `json:"debug"`
	Currency             string  `json:"currency"`
}

// DefaultConfig mirrors the options the storefront renderer emits when the
// site owner has not overridden anything.
func DefaultConfig() Config {
	return Config{
		TrackingEnabled:      true,
		AutoTrackImpressions: true,
		ImpressionThreshold:  0.5,
		DebounceDelay:        300,
		Currency:             "USD",
	}
}

// Normalize clamps out-of-range values back to defaults.
func (c Config) Normalize() Config {
	if c.ImpressionThreshold <= 0 || c.ImpressionThreshold > 1 {
		c.ImpressionThreshold = 0.5
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = 300
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	return c
}
