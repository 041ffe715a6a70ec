package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names the encoding of a settings document.
type Format string

// Supported formats.
const (
	YAML Format = "yaml"
	JSON Format = "json"
)

var decoders = map[Format]func([]byte, any) error{
	YAML: yaml.Unmarshal,
	JSON: json.Unmarshal,
}

// FormatOf returns the format named by the extension of path:
// .yaml and .yml are YAML, .json is JSON.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	default:
		return "", fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
}

// FromFile reads the settings document at path in the format its extension
// names.
func FromFile(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	cfg, err := Parse(format, data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a settings document. A blank document yields an empty Config.
func Parse(format Format, data []byte) (Config, error) {
	decode, ok := decoders[format]
	if !ok {
		return Config{}, fmt.Errorf("unsupported format %q", format)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return New(nil), nil
	}
	var settings map[string]any
	if err := decode(data, &settings); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", format, err)
	}
	return New(settings), nil
}

// FromYAML is Parse(YAML, data).
func FromYAML(data []byte) (Config, error) {
	return Parse(YAML, data)
}

// FromJSON is Parse(JSON, data).
func FromJSON(data []byte) (Config, error) {
	return Parse(JSON, data)
}
