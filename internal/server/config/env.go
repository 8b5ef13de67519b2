package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// portOverlay keeps compatibility with platforms that only hand out PORT.
type portOverlay struct {
	Port string `env:"PORT"`
}

// parseEnv overlays environment variables onto config. Variables that are not
// set leave the current value untouched. HTTP_ADDR wins over PORT.
func parseEnv(config *Config) error {
	var p portOverlay
	if err := env.Parse(&p); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if p.Port != "" {
		if strings.Contains(p.Port, ":") {
			config.EndpointAddrHTTP = p.Port
		} else {
			config.EndpointAddrHTTP = ":" + p.Port
		}
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
