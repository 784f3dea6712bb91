package config

import (
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// feeder decodes a config file into a generic map, grounded on the
// teacher's Feeder abstraction (config_feeders.go / feeders/toml.go /
// feeders/yaml.go) but collapsed to the one operation this package needs:
// decode-to-map, so unknown-key validation can run uniformly across
// formats before the typed structures are populated.
type feeder interface {
	feed(path string) (map[string]any, error)
}

func feederForPath(path string) (feeder, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return tomlFeeder{}, nil
	case ".yaml", ".yml":
		return yamlFeeder{}, nil
	default:
		return nil, ErrUnsupportedExtension
	}
}

type tomlFeeder struct{}

func (tomlFeeder) feed(path string) (map[string]any, error) {
	var out map[string]any
	_, err := toml.DecodeFile(path, &out)
	return out, err
}

type yamlFeeder struct{}

func (yamlFeeder) feed(path string) (map[string]any, error) {
	var out map[string]any
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
