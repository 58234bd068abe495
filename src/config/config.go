// Package config loads the distillery document and exposes its raw,
// unresolved tree. Placeholder expansion happens in the template package;
// this package only reads, looks up, validates and decodes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the document read when no path is given.
	DefaultConfigFile = "config/config.yaml"

	// SchemaName is the only schema identifier this version understands.
	SchemaName = "distillery-config"
)

// Document is the top-level file envelope.
type Document struct {
	Version string         `yaml:"version" toml:"version"`
	Schema  string         `yaml:"schema" toml:"schema"`
	Config  map[string]any `yaml:"config" toml:"config"`

	// Path is the file the document was read from, empty for in-memory documents.
	Path string `yaml:"-" toml:"-"`

	raw []byte
}

// Raw returns the bytes the document was parsed from.
func (d *Document) Raw() []byte { return d.raw }

// Load reads a document from path. If path is empty, the default file is used.
// The format is chosen by extension: .toml is decoded as TOML, anything else as YAML.
func Load(path string) (*Document, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}

	doc, err := Parse(data, formatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Format is a document serialization.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes a document from data in the given format.
func Parse(data []byte, format Format) (*Document, error) {
	doc := &Document{}
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("invalid TOML syntax: %w", err)
		}
	case FormatYAML, "":
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("invalid YAML syntax: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}

	if doc.Config == nil {
		return nil, fmt.Errorf("document has no config section")
	}
	if doc.Schema == "" {
		doc.Schema = SchemaName
	}

	doc.Config = Normalize(doc.Config).(map[string]any)
	injectRegistryVariables(doc.Config)
	doc.raw = data
	return doc, nil
}

// Tree returns a deep copy of the raw configuration tree.
func (d *Document) Tree() map[string]any {
	return Clone(d.Config).(map[string]any)
}

// injectRegistryVariables exposes the primary registry's url and namespace as
// variables.registry_url and variables.registry_namespace unless the document
// already defines them.
func injectRegistryVariables(tree map[string]any) {
	names := SortedKeys(asMap(Lookup(tree, "registry.primary")))
	if len(names) == 0 {
		return
	}
	primary := asMap(Lookup(tree, "registry.primary."+names[0]))
	if primary == nil {
		return
	}

	vars, ok := tree["variables"].(map[string]any)
	if !ok {
		if _, exists := tree["variables"]; exists {
			return
		}
		vars = map[string]any{}
		tree["variables"] = vars
	}
	if v, ok := primary["url"]; ok {
		if _, set := vars["registry_url"]; !set {
			vars["registry_url"] = v
		}
	}
	if v, ok := primary["namespace"]; ok {
		if _, set := vars["registry_namespace"]; !set {
			vars["registry_namespace"] = v
		}
	}
}
