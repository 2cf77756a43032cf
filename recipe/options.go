package recipe

import (
	"maps"
	"slices"
	"sort"
	"strings"
)

// OptionDecl declares one build option: the values it may take and its
// default.
type OptionDecl struct {
	Domain  []string
	Default string
}

// BoolOption declares a boolean option with the given default.
func BoolOption(def bool) OptionDecl {
	d := OptionDecl{Domain: []string{"true", "false"}, Default: "false"}
	if def {
		d.Default = "true"
	}
	return d
}

func (d OptionDecl) isBool() bool {
	return len(d.Domain) == 2 && slices.Contains(d.Domain, "true") && slices.Contains(d.Domain, "false")
}

// OptionSchema is the statically declared set of options of a recipe.
type OptionSchema map[string]OptionDecl

// Validate checks that every declaration has a non-empty domain that
// contains its default.
func (s OptionSchema) Validate() error {
	for _, name := range s.names() {
		d := s[name]
		if len(d.Domain) == 0 {
			return configErrorf("option %q has an empty domain", name)
		}
		if !slices.Contains(d.Domain, d.Default) {
			return configErrorf("option %q: default %q is not in %v", name, d.Default, d.Domain)
		}
	}
	return nil
}

// Resolve layers overrides onto the declared defaults. Unknown option
// names and out-of-domain values are configuration errors. Boolean
// options accept the usual spellings (True, 1, on, yes...).
func (s OptionSchema) Resolve(overrides map[string]string) (Options, error) {
	values := make(map[string]string, len(s))
	for name, d := range s {
		values[name] = d.Default
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, name := range keys {
		d, ok := s[name]
		if !ok {
			return Options{}, configErrorf("unknown option %q", name)
		}
		v := overrides[name]
		if d.isBool() {
			if b, ok := parseBool(v); ok {
				v = b
			}
		}
		if !slices.Contains(d.Domain, v) {
			return Options{}, configErrorf("option %q: value %q is not in %v", name, overrides[name], d.Domain)
		}
		values[name] = v
	}
	return Options{values: values}, nil
}

func (s OptionSchema) names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Options holds resolved option values. The zero value has no options.
type Options struct {
	values map[string]string
}

// OptionsOf returns Options holding exactly the given values, without
// schema validation.
func OptionsOf(values map[string]string) Options {
	return Options{values: maps.Clone(values)}
}

// Get returns the value of the named option.
func (o Options) Get(name string) (string, bool) {
	v, ok := o.values[name]
	return v, ok
}

// Bool returns the value of a boolean option. It fails if the option is
// absent or not boolean-valued.
func (o Options) Bool(name string) (bool, error) {
	v, ok := o.values[name]
	if !ok {
		return false, configErrorf("option %q is not set", name)
	}
	b, ok := parseBool(v)
	if !ok {
		return false, configErrorf("option %q: %q is not a boolean", name, v)
	}
	return b == "true", nil
}

// Names returns the option names in sorted order.
func (o Options) Names() []string {
	names := make([]string, 0, len(o.values))
	for k := range o.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the option values.
func (o Options) Map() map[string]string {
	return maps.Clone(o.values)
}

// String formats the options as "a=x,b=y" in name order.
func (o Options) String() string {
	names := o.Names()
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + "=" + o.values[k]
	}
	return strings.Join(parts, ",")
}

func parseBool(v string) (string, bool) {
	switch strings.ToLower(v) {
	case "true", "1", "on", "yes":
		return "true", true
	case "false", "0", "off", "no":
		return "false", true
	}
	return "", false
}
