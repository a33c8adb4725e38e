package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PRBUILD_BASEURL.
const EnvPrefix = "PRBUILD"

// scalar keys that may be overridden from the environment.
var envKeys = []string{
	"BaseUrl",
	"Username",
	"Password",
	"AuthMode",
	"SessionCookie",
	"SessionToken",
	"CookieFile",
	"Timeout",
}

// newViperInstance creates a Viper instance with the PRBUILD_ environment binding.
func newViperInstance() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads configuration from path (JSON or YAML) with PRBUILD_* environment
// overrides. An empty path searches ./prbuild.{json,yaml} and
// $HOME/.config/prbuild/. A missing file is not an error; the result then
// only carries what the environment provides and fails Validate until a
// Repository mapping exists.
func Load(path string) (*Config, error) {
	v := newViperInstance()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("prbuild")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "prbuild"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Viper lowercases map keys and repository names are case-sensitive, so
	// the mapping is decoded from the file directly.
	if file := v.ConfigFileUsed(); file != "" {
		repos, err := readRepositories(file)
		if err != nil {
			return nil, err
		}
		cfg.Repository = repos
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func readRepositories(file string) (map[string][]BuildDefinitionRecord, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var doc struct {
		Repository map[string][]BuildDefinitionRecord `json:"Repository" yaml:"Repository"`
	}
	if strings.EqualFold(filepath.Ext(file), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode Repository in %s: %w", file, err)
	}
	return doc.Repository, nil
}

// Parse decodes the JSON blob kept by the config store.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Marshal encodes the config as indented JSON, the stored blob format.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// MarshalYAML encodes the config as YAML for display.
func MarshalYAML(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}
