// Package api holds the user-facing configuration of kgtab.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentic-research/kgtab/internal/format"
	"github.com/agentic-research/kgtab/internal/reshape"
	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/agentic-research/kgtab/internal/table"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"
)

// DefaultVersionedIDTemplate renders a versioned id from the resource's own
// id and the revision its store recorded.
const DefaultVersionedIDTemplate = "{x.id}?rev={x._store_metadata._rev}"

// ErrUnknownFormatter is returned by Config.Format for an unconfigured name.
var ErrUnknownFormatter = errors.New("unknown formatter")

// Config is the root configuration.
//
//	store {
//	  versioned_id_template = "{x.id}?rev={x._store_metadata._rev}"
//	}
//	table {
//	  na      = ["NA"]
//	  nesting = "."
//	}
//	formatters = {
//	  identifier = "https://example.org/{}/{}"
//	}
type Config struct {
	Store *StoreConfig `hcl:"store,block" yaml:"store"`
	Table *TableConfig `hcl:"table,block" yaml:"table"`
	// Formatters are named brace templates filled with positional arguments.
	Formatters map[string]string `hcl:"formatters,optional" yaml:"formatters"`
}

// StoreConfig describes the store the resources come from.
type StoreConfig struct {
	Name string `hcl:"name,optional" yaml:"name"`
	// VersionedIDTemplate is rendered with the resource bound to "x".
	VersionedIDTemplate string `hcl:"versioned_id_template,optional" yaml:"versioned_id_template"`
}

// TableConfig holds the defaults of table conversions.
type TableConfig struct {
	// NA lists strings read and written as missing values.
	NA            []string `hcl:"na,optional" yaml:"na"`
	Nesting       string   `hcl:"nesting,optional" yaml:"nesting"`
	Expanded      bool     `hcl:"expanded,optional" yaml:"expanded"`
	StoreMetadata bool     `hcl:"store_metadata,optional" yaml:"store_metadata"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Store:      &StoreConfig{VersionedIDTemplate: DefaultVersionedIDTemplate},
		Table:      &TableConfig{Nesting: resource.DefaultDelimiter},
		Formatters: map[string]string{},
	}
}

// applyDefaults fills every field left empty by the file from DefaultConfig.
func (c *Config) applyDefaults() error {
	if err := mergo.Merge(c, DefaultConfig()); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	return nil
}

// LoadConfig reads path from fs. The syntax follows the extension: ".hcl"
// and ".json" are HCL native and JSON syntax, ".yaml" and ".yml" YAML.
func LoadConfig(fs billy.Filesystem, path string) (*Config, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var c Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl", ".json":
		if err := hclsimple.Decode(path, data, nil, &c); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}

	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks every template and the table options, reporting all
// problems at once.
func (c *Config) Validate() error {
	var merr *multierror.Error
	if _, err := format.Parse(c.Store.VersionedIDTemplate); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("store.versioned_id_template: %w", err))
	}
	if c.Table.Nesting == "" {
		merr = multierror.Append(merr, errors.New("table.nesting: must not be empty"))
	}
	for name, tmpl := range c.Formatters {
		if _, err := format.Parse(tmpl); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("formatters.%s: %w", name, err))
		}
	}
	return merr.ErrorOrNil()
}

// NAValues returns the configured NA strings as scalar sentinels.
func (c *Config) NAValues() []resource.Value {
	return resource.Strings(c.Table.NA...)
}

// ToOptions returns the table conversion options the configuration implies.
func (c *Config) ToOptions() table.ToOptions {
	return table.ToOptions{
		NA:            c.NAValues(),
		Delimiter:     c.Table.Nesting,
		Expanded:      c.Table.Expanded,
		StoreMetadata: c.Table.StoreMetadata,
	}
}

// FromOptions returns the table parsing options the configuration implies.
func (c *Config) FromOptions() table.FromOptions {
	return table.FromOptions{
		NA:        c.NAValues(),
		Delimiter: c.Table.Nesting,
	}
}

// Reshaper returns a reshaper bound to the store's versioned id template.
func (c *Config) Reshaper() *reshape.Reshaper {
	return reshape.New(c.Store.VersionedIDTemplate)
}

// Format fills the named formatter with args.
func (c *Config) Format(name string, args ...any) (string, error) {
	tmpl, ok := c.Formatters[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormatter, name)
	}
	return format.Format(tmpl, args...)
}
