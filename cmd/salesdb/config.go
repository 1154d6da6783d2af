// Config loading for the salesdb CLI.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "salesdb"
	configFileType = "yaml"
	configFileExt  = "salesdb.yaml"
	envPrefix      = "SALESDB"

	cfgKeyDataFile        = "data_file"
	cfgKeyHTTP            = "http"
	cfgKeyLogLevel        = "log_level"
	cfgKeyGitHistory      = "git_history"
	cfgKeyAPISecret       = "api_secret"
	cfgKeyTokenTTL        = "token_ttl"
	cfgKeyReadRate        = "read_rate_per_min"
	cfgKeyWriteRate       = "write_rate_per_min"
	cfgKeyMaxRequestBytes = "max_request_body_bytes"
	cfgKeyGeoDB           = "geo_db"
)

// settings is the resolved configuration. It is also the layout of
// salesdb.yaml.
type settings struct {
	DataFile            string `yaml:"data_file"`
	HTTP                string `yaml:"http"`
	LogLevel            string `yaml:"log_level"`
	GitHistory          bool   `yaml:"git_history"`
	APISecret           string `yaml:"api_secret"`
	TokenTTL            string `yaml:"token_ttl"`
	ReadRatePerMin      int    `yaml:"read_rate_per_min"`
	WriteRatePerMin     int    `yaml:"write_rate_per_min"`
	MaxRequestBodyBytes int64  `yaml:"max_request_body_bytes"`
	GeoDB               string `yaml:"geo_db"`
}

func defaultSettings() settings {
	return settings{
		DataFile:            "./data/sales.csv",
		HTTP:                "localhost:8000",
		LogLevel:            "info",
		TokenTTL:            "24h",
		ReadRatePerMin:      6000,
		WriteRatePerMin:     60,
		MaxRequestBodyBytes: 1 << 20,
	}
}

// newViper returns a viper instance with the defaults and the environment
// bindings. DATA_FILE is honored as an alias of SALESDB_DATA_FILE.
func newViper() *viper.Viper {
	d := defaultSettings()
	v := viper.New()
	v.SetDefault(cfgKeyDataFile, d.DataFile)
	v.SetDefault(cfgKeyHTTP, d.HTTP)
	v.SetDefault(cfgKeyLogLevel, d.LogLevel)
	v.SetDefault(cfgKeyGitHistory, d.GitHistory)
	v.SetDefault(cfgKeyAPISecret, d.APISecret)
	v.SetDefault(cfgKeyTokenTTL, d.TokenTTL)
	v.SetDefault(cfgKeyReadRate, d.ReadRatePerMin)
	v.SetDefault(cfgKeyWriteRate, d.WriteRatePerMin)
	v.SetDefault(cfgKeyMaxRequestBytes, d.MaxRequestBodyBytes)
	v.SetDefault(cfgKeyGeoDB, d.GeoDB)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(cfgKeyDataFile, envPrefix+"_DATA_FILE", "DATA_FILE")
	return v
}

// bindFlags binds each named flag to its config key so an explicit flag
// takes precedence over the environment and the config file.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// readConfig merges the config file into v. An explicit path must exist; the
// default salesdb.yaml in the working directory is optional.
func readConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func loadSettings(v *viper.Viper) settings {
	return settings{
		DataFile:            v.GetString(cfgKeyDataFile),
		HTTP:                v.GetString(cfgKeyHTTP),
		LogLevel:            v.GetString(cfgKeyLogLevel),
		GitHistory:          v.GetBool(cfgKeyGitHistory),
		APISecret:           v.GetString(cfgKeyAPISecret),
		TokenTTL:            v.GetString(cfgKeyTokenTTL),
		ReadRatePerMin:      v.GetInt(cfgKeyReadRate),
		WriteRatePerMin:     v.GetInt(cfgKeyWriteRate),
		MaxRequestBodyBytes: v.GetInt64(cfgKeyMaxRequestBytes),
		GeoDB:               v.GetString(cfgKeyGeoDB),
	}
}

// tokenTTL parses TokenTTL.
func (s *settings) tokenTTL() (time.Duration, error) {
	d, err := time.ParseDuration(s.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", cfgKeyTokenTTL, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", cfgKeyTokenTTL)
	}
	return d, nil
}

// writeDefaultConfig writes the default settings to path. An existing file is
// only replaced when force is set.
func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat config file: %w", err)
		}
	}
	b, err := yaml.Marshal(defaultSettings())
	if err != nil {
		return err
	}
	content := "# salesdb configuration. Environment variables SALESDB_<KEY> override it.\n" + string(b)
	return os.WriteFile(path, []byte(content), 0o600)
}
