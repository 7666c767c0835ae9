package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/talenthos/talenthos/errors"
)

// Load reads the configuration from the default locations using Viper.
// Search order: ./talenthos.toml, $HOME/.talenthos/talenthos.toml, then
// environment variables prefixed TALENTHOS_ (e.g. TALENTHOS_DATABASE_PATH).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("talenthos")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.talenthos")

	v.SetEnvPrefix("TALENTHOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine - defaults and env vars apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	return LoadWithViper(v)
}
