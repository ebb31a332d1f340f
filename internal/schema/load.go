package schema

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Format selects the schema file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("%w: unsupported schema file extension %q (want .yaml, .yml or .cue)", ErrInvalidSchema, filepath.Ext(path))
	}
}

// LoadFile reads a schema definition from a YAML or CUE file.
func LoadFile(path string) (Definition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Definition{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes a schema definition. filename is used in CUE error positions.
func Parse(data []byte, format Format, filename string) (Definition, error) {
	var def Definition
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("%w: parse yaml: %v", ErrInvalidSchema, err)
		}
	case FormatCUE:
		ctx := cuecontext.New()
		v := ctx.CompileBytes(data, cue.Filename(filename))
		if err := v.Err(); err != nil {
			return Definition{}, fmt.Errorf("%w: compile cue: %v", ErrInvalidSchema, err)
		}
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return Definition{}, fmt.Errorf("%w: validate cue: %v", ErrInvalidSchema, err)
		}
		if err := v.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("%w: decode cue: %v", ErrInvalidSchema, err)
		}
	default:
		return Definition{}, fmt.Errorf("%w: unknown format %q", ErrInvalidSchema, format)
	}
	return def, nil
}

// Load reads path and builds a Registry using keys (nil for UUIDKeys).
func Load(path string, keys KeyGenerator) (*Registry, error) {
	def, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(def, keys)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}
