package config

import (
	"encoding/json"
	"os"

	"github.com/refsync/refsync/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling; parsed values
// are copied into the runtime Config.
type JsonConfig struct {
	ServerAddr        string `json:"server_addr"`
	DatabaseDSN       string `json:"database_dsn"`
	UploadConcurrency int    `json:"upload_concurrency"`
}

// parseJson overlays Config with values from the JSON file named by the
// -c/-config flags. Absent file path means no JSON layer; read or unmarshal
// problems panic, matching the fail-fast startup behavior of the agent.
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

	if jc.ServerAddr != "" {
		cfg.ServerAddr = jc.ServerAddr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.UploadConcurrency > 0 {
		cfg.UploadConcurrency = jc.UploadConcurrency
	}
}
