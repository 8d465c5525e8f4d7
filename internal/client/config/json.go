package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/qconnect/internal/flagx"
	"github.com/dmitrijs2005/qconnect/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "5m"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	ProviderRegion   string         `json:"provider_region"`
	ProviderClientID string         `json:"provider_client_id"`
	DatabaseDSN      string         `json:"database_dsn"`
	RefreshSkew      timex.Duration `json:"refresh_skew"`
	RefreshWait      timex.Duration `json:"refresh_wait"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c or -config flags (via
// flagx.JsonConfigFlags). When no path is given, nothing happens. Read or
// unmarshal errors panic; the caller may recover if desired.
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later
// stages override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ProviderRegion != "" {
		cfg.ProviderRegion = jc.ProviderRegion
	}
	if jc.ProviderClientID != "" {
		cfg.ProviderClientID = jc.ProviderClientID
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.RefreshSkew.Duration != 0 {
		cfg.RefreshSkew = time.Duration(jc.RefreshSkew.Duration)
	}
	if jc.RefreshWait.Duration != 0 {
		cfg.RefreshWait = time.Duration(jc.RefreshWait.Duration)
	}
}
