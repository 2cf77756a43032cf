// Package profile reads build profiles: files naming the settings and
// option values of a build.
//
// A profile is YAML (.yaml, .yml) or JSON with comments (.json, .jsonc):
//
//	settings:
//	  build_type: Debug
//	  arch: x86_64
//	options:
//	  shared: false
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Profile holds setting and option values as strings.
type Profile struct {
	Settings map[string]string
	Options  map[string]string
}

type rawProfile struct {
	Settings map[string]any `yaml:"settings" json:"settings"`
	Options  map[string]any `yaml:"options" json:"options"`
}

// Load reads the profile at path, choosing the format by extension.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a profile in the format named by ext.
func Parse(data []byte, ext string) (*Profile, error) {
	var raw rawProfile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing profile: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, fmt.Errorf("parsing profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format %q", ext)
	}
	settings, err := stringify("settings", raw.Settings)
	if err != nil {
		return nil, err
	}
	options, err := stringify("options", raw.Options)
	if err != nil {
		return nil, err
	}
	return &Profile{Settings: settings, Options: options}, nil
}

// stringify converts scalar values to strings. Booleans become "true" or
// "false"; nested values are rejected.
func stringify(section string, m map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			out[k] = v
		case bool, int, int64, float64:
			out[k] = fmt.Sprint(v)
		case nil:
			return nil, fmt.Errorf("%s.%s: missing value", section, k)
		default:
			return nil, fmt.Errorf("%s.%s: want a scalar, got %T", section, k, v)
		}
	}
	return out, nil
}
