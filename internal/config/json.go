package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals are
// specified in seconds.
type JsonConfig struct {
	LocalDSN               *string `json:"local_dsn"`
	RemoteDSN              *string `json:"remote_dsn"`
	UserID                 *string `json:"user_id"`
	DeviceID               *string `json:"device_id"`
	MaxVersionsPerResource *int    `json:"max_versions_per_resource"`
	MaxVersionsTotal       *int    `json:"max_versions_total"`
	SweepIntervalS         *int    `json:"sweep_interval_s"`
	AutoSaveThresholdS     *int    `json:"auto_save_threshold_s"`
}

// parseJson overlays Config with values loaded from a JSON file named by the
// -c/-config flag. Absent fields keep their current values. Read or unmarshal
// errors panic; intended usage is defaults -> parseJson -> parseFlags.
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

	if jc.LocalDSN != nil {
		cfg.LocalDSN = *jc.LocalDSN
	}
	if jc.RemoteDSN != nil {
		cfg.RemoteDSN = *jc.RemoteDSN
	}
	if jc.UserID != nil {
		cfg.UserID = *jc.UserID
	}
	if jc.DeviceID != nil {
		cfg.DeviceID = *jc.DeviceID
	}
	if jc.MaxVersionsPerResource != nil {
		cfg.MaxVersionsPerResource = *jc.MaxVersionsPerResource
	}
	if jc.MaxVersionsTotal != nil {
		cfg.MaxVersionsTotal = *jc.MaxVersionsTotal
	}
	if jc.SweepIntervalS != nil {
		cfg.SweepInterval = time.Duration(*jc.SweepIntervalS) * time.Second
	}
	if jc.AutoSaveThresholdS != nil {
		cfg.AutoSaveThreshold = time.Duration(*jc.AutoSaveThresholdS) * time.Second
	}
}
