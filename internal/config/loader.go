package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envPattern recognises ${VAR} references with an optional :-default part.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads the YAML configuration at path, substitutes environment
// variables, unmarshals it, and fills in defaults. Validation is a separate
// step so `config check` can report structural problems on a file that
// parsed fine.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expand %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// expandEnv substitutes ${VAR} and ${VAR:-default} references in the raw
// bytes. References with neither an environment value nor a default are
// collected into a single joined error so a broken file is reported in one
// pass.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		groups := envPattern.FindSubmatch(match)
		varName := string(groups[1])

		if value, ok := os.LookupEnv(varName); ok {
			return []byte(value)
		}
		// A nil group means no :-default was written; an empty default is
		// still a default.
		if groups[2] != nil {
			return groups[2]
		}

		errs = append(errs, fmt.Errorf("variable %s is not set", varName))
		return match
	})

	return result, errors.Join(errs...)
}
