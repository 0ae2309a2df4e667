package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sigreer/usbidgen/internal/cache"
	"github.com/sigreer/usbidgen/internal/emit"
)

// DefaultSource is the upstream registry published by linux-usb.org.
const DefaultSource = "http://www.linux-usb.org/usb.ids"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// Source is a local path or an http(s) URL of the registry
	Source   string      `yaml:"source"`
	Output   Output      `yaml:"output"`
	Naming   emit.Naming `yaml:"naming"`
	Cache    Cache       `yaml:"cache"`
	Database Database    `yaml:"database"`
}

type Output struct {
	Dir        string `yaml:"dir"`
	SourceFile string `yaml:"source_file"`
	HeaderFile string `yaml:"header_file"`
}

type Cache struct {
	Dir      string        `yaml:"dir,omitempty"`
	TTL      time.Duration `yaml:"ttl"`
	Disabled bool          `yaml:"disabled"`
}

type Database struct {
	// Path of the SQLite table database; empty disables it
	Path string `yaml:"path,omitempty"`
}

// defaultConfig reproduces the stock usbids.c/usbids.h output
var defaultConfig = Config{
	Source: DefaultSource,
	Output: Output{
		Dir:        ".",
		SourceFile: "usbids.c",
		HeaderFile: "usbids.h",
	},
	Naming: emit.DefaultNaming(),
	Cache: Cache{
		TTL: cache.TTLStatic,
	},
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	cfg := defaultConfig
	cfg.Cache.Dir = defaultCacheDir()
	return &cfg
}

// Load reads the config at path, or the first existing default location
// when path is empty. Missing fields take their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		candidates := []string{
			"/etc/usbidgen/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/usbidgen/config.yaml"),
			"usbidgen.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.merge(&fileCfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge copies every non-zero field of o over c.
func (c *Config) merge(o *Config) {
	setString(&c.Source, o.Source)
	setString(&c.Output.Dir, o.Output.Dir)
	setString(&c.Output.SourceFile, o.Output.SourceFile)
	setString(&c.Output.HeaderFile, o.Output.HeaderFile)

	setString(&c.Naming.Struct, o.Naming.Struct)
	setString(&c.Naming.VendorID, o.Naming.VendorID)
	setString(&c.Naming.DeviceID, o.Naming.DeviceID)
	setString(&c.Naming.VendorName, o.Naming.VendorName)
	setString(&c.Naming.DeviceName, o.Naming.DeviceName)
	setString(&c.Naming.NameType, o.Naming.NameType)
	setString(&c.Naming.IDType, o.Naming.IDType)
	setString(&c.Naming.Array, o.Naming.Array)
	setString(&c.Naming.IncludeGuard, o.Naming.IncludeGuard)

	setString(&c.Cache.Dir, o.Cache.Dir)
	if o.Cache.TTL != 0 {
		c.Cache.TTL = o.Cache.TTL
	}
	c.Cache.Disabled = c.Cache.Disabled || o.Cache.Disabled

	setString(&c.Database.Path, o.Database.Path)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

var (
	cIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	cTypeName   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ ]*[* ]*$`)
)

// Validate checks that generated code would use legal C names.
func (c *Config) Validate() error {
	idents := map[string]string{
		"naming.struct":        c.Naming.Struct,
		"naming.vendor_id":     c.Naming.VendorID,
		"naming.device_id":     c.Naming.DeviceID,
		"naming.vendor_name":   c.Naming.VendorName,
		"naming.device_name":   c.Naming.DeviceName,
		"naming.array":         c.Naming.Array,
		"naming.include_guard": c.Naming.IncludeGuard,
	}
	for field, v := range idents {
		if !cIdentifier.MatchString(v) {
			return fmt.Errorf("%w: %s %q is not a C identifier", ErrInvalidConfig, field, v)
		}
	}
	for field, v := range map[string]string{"naming.name_type": c.Naming.NameType, "naming.id_type": c.Naming.IDType} {
		if !cTypeName.MatchString(v) {
			return fmt.Errorf("%w: %s %q is not a C type", ErrInvalidConfig, field, v)
		}
	}
	if c.Output.SourceFile == c.Output.HeaderFile {
		return fmt.Errorf("%w: output.source_file and output.header_file are both %q", ErrInvalidConfig, c.Output.SourceFile)
	}
	for field, v := range map[string]string{"output.source_file": c.Output.SourceFile, "output.header_file": c.Output.HeaderFile} {
		if filepath.Base(v) != v {
			return fmt.Errorf("%w: %s %q must be a bare file name", ErrInvalidConfig, field, v)
		}
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache.ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SourcePath returns where the data artifact is written.
func (c *Config) SourcePath() string {
	return filepath.Join(c.Output.Dir, c.Output.SourceFile)
}

// HeaderPath returns where the interface artifact is written.
func (c *Config) HeaderPath() string {
	return filepath.Join(c.Output.Dir, c.Output.HeaderFile)
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "usbidgen")
	}
	return filepath.Join(dir, "usbidgen")
}
