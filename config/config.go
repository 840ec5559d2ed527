// Package config reads the optional pdffill configuration file.
//
// Files ending in .yaml or .yml are read as YAML, anything else as TOML.
// Command line flags override the values read here.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
	"gopkg.in/yaml.v3"
)

func init() {
	govalidator.SetFieldsRequiredByDefault(true)
}

// DefaultLocation is the configuration file read when it exists and no
// other file is given.
var DefaultLocation = "./pdffill.conf"

// Config is the root of the config
type Config struct {
	Verbose bool `toml:"verbose" yaml:"verbose" valid:"optional"`

	// Font is the path of a TrueType font used for all filled values.
	Font string `toml:"font" yaml:"font" valid:"optional"`

	// Producer replaces the producer written to the document information.
	Producer string `toml:"producer" yaml:"producer" valid:"optional"`

	// Info holds extra document information dictionary entries.
	Info map[string]string `toml:"info" yaml:"info" valid:"-"`

	Issuer         *Issuer         `toml:"issuer" yaml:"issuer" valid:"optional"`
	MetadataFields []MetadataField `toml:"metadata_fields" yaml:"metadata_fields" valid:"-"`
	GlobalFields   map[string]any  `toml:"global_fields" yaml:"global_fields" valid:"-"`
	Sign           *Sign           `toml:"sign" yaml:"sign" valid:"optional"`
}

// Issuer identifies the issuing organisation written into the certificate
// metadata.
type Issuer struct {
	Name         string           `toml:"name" yaml:"name" valid:"required"`
	Address      string           `toml:"address" yaml:"address" valid:"required"`
	Verification []map[string]any `toml:"verification" yaml:"verification" valid:"-"`
}

// MetadataField copies a field value into the certificate metadata.
type MetadataField struct {
	Name       string         `toml:"name" yaml:"name"`
	Properties map[string]any `toml:"properties" yaml:"properties"`
}

// Sign configures the detached signature of issued certificates.
type Sign struct {
	Cert  string `toml:"cert" yaml:"cert" valid:"required"`
	Key   string `toml:"key" yaml:"key" valid:"required"`
	Chain string `toml:"chain" yaml:"chain" valid:"optional"`
	TSA   string `toml:"tsa" yaml:"tsa" valid:"optional,url"`
}

// ValidateFields validates all the fields of the config
func (c Config) ValidateFields() error {
	if _, err := govalidator.ValidateStruct(c); err != nil {
		return err
	}
	for i, f := range c.MetadataFields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("metadata_fields[%d]: name is required", i)
		}
	}
	return nil
}

// Read decodes and validates the configuration file at path.
func Read(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file is missing: %s", path)
	}

	var c Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = f.Close()
		}()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		md, err := toml.DecodeFile(path, &c)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
		}
	}

	if err := c.ValidateFields(); err != nil {
		return nil, fmt.Errorf("config is not valid: %w", err)
	}
	return &c, nil
}
