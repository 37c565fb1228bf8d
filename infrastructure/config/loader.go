package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound indicates the config file path does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// Load builds Settings from defaults, an optional YAML file, and the
// environment, in that order of precedence (environment wins).
func Load(path string) (Settings, error) {
	settings := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Settings{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return Settings{}, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded, err := expandEnvVars(data)
		if err != nil {
			return Settings{}, err
		}
		if err := yaml.Unmarshal(expanded, &settings); err != nil {
			return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(&settings); err != nil {
		return Settings{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// FromEnv builds Settings from defaults and the environment only.
func FromEnv() (Settings, error) {
	return Load("")
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// expandEnvVars expands ${VAR} and ${VAR:-default} patterns in the file
// before YAML parsing, so secrets stay out of config files.
func expandEnvVars(data []byte) ([]byte, error) {
	result := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		inner := match[2 : len(match)-1]
		name, def, hasDef := strings.Cut(inner, ":-")
		value, exists := os.LookupEnv(name)
		if !exists || value == "" {
			if hasDef {
				return def
			}
			return ""
		}
		return value
	})
	return []byte(result), nil
}
