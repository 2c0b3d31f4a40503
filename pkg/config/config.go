// Package config holds the engine's tunables. Values come from built-in
// defaults, then an optional HCL file, then command-line flags; a flag the
// user set explicitly always wins over the file.
package config

import (
	"fmt"
	"heapstore/pkg/logging"
	"heapstore/pkg/storage/page"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/spf13/pflag"
)

const DefaultConfigFile = "heapstore.hcl"

type Config struct {
	DataDir     string
	BufferPages int
	PageSize    int
	LockTimeout time.Duration
	LogLevel    string
	LogFormat   string
	LogFile     string
	SchemaFile  string
}

func Default() *Config {
	return &Config{
		DataDir:     "data",
		BufferPages: 50,
		PageSize:    4096,
		LockTimeout: time.Second,
		LogLevel:    "info",
		LogFormat:   "text",
		SchemaFile:  "schema.hcl",
	}
}

// RegisterFlags binds every config key to a flag in fs. Flag names are the
// file keys with '_' replaced by '-'.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "`directory` holding table files")
	fs.IntVar(&c.BufferPages, "buffer-pages", c.BufferPages, "buffer pool capacity in pages")
	fs.IntVar(&c.PageSize, "page-size", c.PageSize, "page size in bytes")
	fs.DurationVar(&c.LockTimeout, "lock-timeout", c.LockTimeout, "how long to wait for a page lock")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "`file` to log to (default stderr)")
	fs.StringVar(&c.SchemaFile, "schema-file", c.SchemaFile, "HCL `file` describing the tables")
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// LoadFile applies the settings in an HCL file through the flags registered
// on fs, skipping any flag the user changed on the command line.
func (c *Config) LoadFile(path string, fs *pflag.FlagSet) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.load(string(b), fs)
}

func (c *Config) load(src string, fs *pflag.FlagSet) error {
	var vals map[string]interface{}
	if err := hcl.Decode(&vals, src); err != nil {
		return err
	}

	for key, val := range vals {
		flg := fs.Lookup(flagName(key))
		if flg == nil {
			return fmt.Errorf("%s is not a config variable", key)
		}
		if flg.Changed {
			continue
		}
		if err := flg.Value.Set(fmt.Sprintf("%v", val)); err != nil {
			return fmt.Errorf("%s: %s", key, err)
		}
	}
	return nil
}

// Load returns the defaults overlaid with the file at path. A missing file
// is not an error when path is the default config file.
func Load(path string) (*Config, error) {
	c := Default()
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	c.RegisterFlags(fs)

	if path != "" {
		err := c.LoadFile(path, fs)
		if err != nil && !(os.IsNotExist(err) && path == DefaultConfigFile) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must be set")
	}
	if c.BufferPages <= 0 {
		return fmt.Errorf("config: buffer_pages must be positive, got %d", c.BufferPages)
	}
	if c.PageSize <= 0 || c.PageSize > page.MaxPageSize {
		return fmt.Errorf("config: page_size must be in (0, %d], got %d", page.MaxPageSize, c.PageSize)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("config: lock_timeout must be positive, got %s", c.LockTimeout)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Logging translates the log settings into a logger configuration.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      logging.ParseLevel(c.LogLevel),
		OutputPath: c.LogFile,
		Format:     c.LogFormat,
	}
}
