package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-version"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the file system config, env files and SQL input are read from.
var AppFs = afero.NewOsFs()

// FileName is the config file name without extension.
const FileName = ".sqlkit"

// Config holds the CLI configuration
type Config struct {
	DatabaseURL     string
	Dialect         string
	Style           string
	Debug           bool
	ContinueOnError bool
	MaxOperations   int
	NativeBatching  bool
	RequiredVersion string

	// File is the config file that was read, empty if none was found.
	File string
}

// Load reads the configuration. An explicit path must exist; otherwise
// .sqlkit.yaml is looked up in the working directory, the home directory
// and ~/.config/sqlkit. SQLKIT_* environment variables override the file,
// and .env / .env.local are loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetEnvPrefix("SQLKIT")
	v.AutomaticEnv()

	v.SetDefault("dialect", "postgres")
	v.SetDefault("style", "")
	v.SetDefault("debug", false)
	v.SetDefault("continue_on_error", false)
	v.SetDefault("max_operations", 0)
	v.SetDefault("native_batching", true)
	v.SetDefault("required_version", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "sqlkit"))

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:     v.GetString("database_url"),
		Dialect:         v.GetString("dialect"),
		Style:           v.GetString("style"),
		Debug:           v.GetBool("debug"),
		ContinueOnError: v.GetBool("continue_on_error"),
		MaxOperations:   v.GetInt("max_operations"),
		NativeBatching:  v.GetBool("native_batching"),
		RequiredVersion: v.GetString("required_version"),
		File:            v.ConfigFileUsed(),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// Save writes cfg to path as yaml.
func Save(cfg *Config, path string) error {
	v := viper.New()
	v.SetFs(AppFs)
	v.Set("database_url", cfg.DatabaseURL)
	v.Set("dialect", cfg.Dialect)
	v.Set("style", cfg.Style)
	v.Set("debug", cfg.Debug)
	v.Set("continue_on_error", cfg.ContinueOnError)
	v.Set("max_operations", cfg.MaxOperations)
	v.Set("native_batching", cfg.NativeBatching)
	if cfg.RequiredVersion != "" {
		v.Set("required_version", cfg.RequiredVersion)
	}

	if err := AppFs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}

// CheckVersion returns an error when current does not satisfy the
// required_version constraint, e.g. ">= 0.2, < 1.0".
func (c *Config) CheckVersion(current string) error {
	if c.RequiredVersion == "" {
		return nil
	}
	constraints, err := version.NewConstraint(c.RequiredVersion)
	if err != nil {
		return fmt.Errorf("invalid required_version %q: %w", c.RequiredVersion, err)
	}
	v, err := version.NewVersion(current)
	if err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}
	if !constraints.Check(v) {
		return fmt.Errorf("sqlkit %s does not satisfy required_version %q", current, c.RequiredVersion)
	}
	return nil
}

// loadEnvFiles loads .env without overriding the environment, then
// .env.local over it.
func loadEnvFiles() error {
	if err := loadEnvFile(".env", false); err != nil {
		return err
	}
	return loadEnvFile(".env.local", true)
}

func loadEnvFile(name string, override bool) error {
	data, err := afero.ReadFile(AppFs, name)
	if err != nil {
		// Missing env files are fine.
		return nil
	}
	values, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	for key, value := range values {
		if _, set := os.LookupEnv(key); set && !override {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}
