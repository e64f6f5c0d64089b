package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings are the values that may come from flags, the environment or a
// config file, in that order of precedence.
type Settings struct {
	Service  string `mapstructure:"service"`
	Host     string `mapstructure:"host"`
	Prefix   string `mapstructure:"prefix"`
	Insecure bool   `mapstructure:"insecure"`
	Token    string `mapstructure:"token"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QueryKey string `mapstructure:"query_key"`
	Paginate bool   `mapstructure:"paginate"`
	Debug    bool   `mapstructure:"debug"`
	Curl     bool   `mapstructure:"curl"`
}

// envPrefix is prepended to environment variable names: AGNOSTIC_TOKEN.
const envPrefix = "AGNOSTIC"

// LoadSettings merges flags over AGNOSTIC_* variables over the config
// file. configFile may be empty, in which case ~/.agnostic.yaml is used
// when present. A .env file in the working directory is loaded first;
// variables already set in the environment keep their value.
func LoadSettings(flags *pflag.FlagSet, configFile string) (Settings, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".agnostic.yaml")
			if _, err := os.Stat(candidate); err == nil {
				configFile = candidate
			}
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, err
		}
	}

	for _, key := range settingKeys {
		flagName := strings.ReplaceAll(key, "_", "-")
		if f := flags.Lookup(flagName); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Settings{}, err
			}
		}
		// AutomaticEnv only answers Get; Unmarshal needs every key bound.
		if err := v.BindEnv(key); err != nil {
			return Settings{}, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

var settingKeys = []string{
	"service", "host", "prefix", "insecure", "token",
	"username", "password", "query_key", "paginate", "debug", "curl",
}
