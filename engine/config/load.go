package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Decoder is implemented by the TOML and YAML stream decoders.
type Decoder interface {
	Decode(v any) error
}

// DecoderFunc creates a Decoder reading from r.
type DecoderFunc func(r io.Reader) Decoder

// TOMLDecoder decodes strictly, rejecting keys that match no field.
func TOMLDecoder(r io.Reader) Decoder {
	return toml.NewDecoder(r).DisallowUnknownFields()
}

// YAMLDecoder decodes strictly, rejecting keys that match no field.
func YAMLDecoder(r io.Reader) Decoder {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	return d
}

// DecoderFor picks the decoder for a file from its extension.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - DecoderFunc: the matching decoder
//   - error: ErrUnsupportedFormat for anything but .toml, .yaml and .yml
func DecoderFor(path string) (DecoderFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOMLDecoder, nil
	case ".yaml", ".yml":
		return YAMLDecoder, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Load reads the file at path over Default and validates the result.
//
// Parameters:
//   - path: a .toml, .yaml or .yml file
//
// Returns:
//   - *Config: the merged configuration
//   - error: an error if the file cannot be read, decoded or validated
func Load(path string) (*Config, error) {
	f, err := DecoderFor(path)
	if err != nil {
		return nil, err
	}
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer fp.Close()

	cfg, err := Read(bufio.NewReader(fp), f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Read decodes r over Default and validates the result. An empty stream yields the defaults.
//
// Parameters:
//   - r: the encoded configuration
//   - f: the decoder for the encoding
//
// Returns:
//   - *Config: the merged configuration
//   - error: an error if decoding or validation fails
func Read(r io.Reader, f DecoderFunc) (*Config, error) {
	cfg := Default()
	if err := f(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
