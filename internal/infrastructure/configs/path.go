package configs

import (
	"flag"
	"os"

	"github.com/singsphere/jukebox/internal/infrastructure/env"
)

var configFlag = flag.String("config", "", "path to config file")

// DetermineConfigPath resolves the config file from the -config flag, the
// JUKEBOX_CONFIG env var, or a list of well known locations. An empty result
// means defaults and environment overrides only.
func DetermineConfigPath() string {
	if !flag.Parsed() {
		flag.Parse()
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = env.GetString("JUKEBOX_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"../../config.yaml", // keep for local dev
			"/etc/jukebox/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
