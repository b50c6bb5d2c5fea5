// Package config merges cfgsync settings from flags, environment, an
// optional config file and defaults, then validates the result.
//
// Precedence, highest first:
//
//  1. command-line flags that were set explicitly
//  2. CFGSYNC_* environment variables (a .env file is loaded first)
//  3. the config file (--config, else cfgsync.yaml in the working directory
//     or the user config directory)
//  4. defaults
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/cfgsync/internal/cfgerr"
	"github.com/roach88/cfgsync/internal/docstore/gist"
)

// EnvPrefix prefixes every environment variable read by cfgsync.
const EnvPrefix = "CFGSYNC"

// Store kinds.
const (
	StoreGist = "gist"
	StoreS3   = "s3"
)

// Config is the merged configuration.
type Config struct {
	// Store selects the document store backend.
	Store string `mapstructure:"store" json:"store"`

	// GistID identifies the remote collection: a gist id, or the key prefix
	// when Store is s3.
	GistID string `mapstructure:"gist_id" json:"gist_id"`

	AccessToken string `mapstructure:"access_token" json:"access_token"`
	GitHubAPI   string `mapstructure:"github_api" json:"github_api"`

	// Workers bounds concurrent pull writes. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers" json:"workers"`

	// Journal is the sync journal database path. Empty disables it.
	Journal string `mapstructure:"journal" json:"journal"`

	Log LogConfig `mapstructure:"log" json:"log"`
	S3  S3Config  `mapstructure:"s3" json:"s3"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
	File   string `mapstructure:"file" json:"file"`
}

// S3Config configures the s3 store.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" json:"endpoint"`
	Region    string `mapstructure:"region" json:"region"`
	Bucket    string `mapstructure:"bucket" json:"bucket"`
	AccessKey string `mapstructure:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" json:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl" json:"use_ssl"`
}

// LoadOptions configures Load.
type LoadOptions struct {
	// ConfigFile is an explicit config file. When empty, cfgsync.yaml is
	// searched for and its absence is not an error.
	ConfigFile string

	// Dir is searched for .env and cfgsync.yaml. Defaults to ".".
	Dir string

	// Flags are bound to their config keys; see FlagKeys.
	Flags *pflag.FlagSet
}

// FlagKeys maps flag names to config keys.
var FlagKeys = map[string]string{
	"store":        "store",
	"gist-id":      "gist_id",
	"access-token": "access_token",
	"github-api":   "github_api",
	"workers":      "workers",
	"journal":      "journal",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"log-file":     "log.file",
}

// DefaultJournalPath returns the journal location under the user config
// directory, or "" when that directory is unknown.
func DefaultJournalPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cfgsync", "journal.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store", StoreGist)
	v.SetDefault("gist_id", "")
	v.SetDefault("access_token", "")
	v.SetDefault("github_api", gist.DefaultAPI)
	v.SetDefault("workers", 0)
	v.SetDefault("journal", DefaultJournalPath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.use_ssl", true)
}

// Load merges and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, cfgerr.InvalidConfig("read .env", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, opts.ConfigFile, dir); err != nil {
		return nil, err
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, cfgerr.InvalidConfig("bind flag --"+name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, cfgerr.InvalidConfig("decode configuration", err)
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = os.Getenv("GITHUB_TOKEN")
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, file, dir string) error {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return cfgerr.InvalidConfig("read config file "+file, err)
		}
		return nil
	}

	v.SetConfigName("cfgsync")
	v.AddConfigPath(dir)
	if userDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(userDir, "cfgsync"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return cfgerr.InvalidConfig("read config file", err)
	}
	return nil
}

// RequireRemote checks the settings push and pull need to reach the store.
func (c *Config) RequireRemote() error {
	if strings.TrimSpace(c.GistID) == "" {
		return cfgerr.InvalidConfig("a collection id is required (--gist-id or "+EnvPrefix+"_GIST_ID)", nil)
	}
	switch c.Store {
	case StoreGist:
		if c.AccessToken == "" {
			return cfgerr.InvalidConfig("an access token is required (--access-token, "+EnvPrefix+"_ACCESS_TOKEN or GITHUB_TOKEN)", nil)
		}
	case StoreS3:
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return cfgerr.InvalidConfig("s3 store needs s3.endpoint and s3.bucket", nil)
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return cfgerr.InvalidConfig("s3 store needs s3.access_key and s3.secret_key", nil)
		}
	}
	return nil
}
