package recipe

import (
	"runtime"
	"slices"
	"sort"
	"strings"
)

// Build types known to the recipe. Anything else is a configuration error.
const (
	Debug          = "Debug"
	Release        = "Release"
	RelWithDebInfo = "RelWithDebInfo"
	MinSizeRel     = "MinSizeRel"
)

var buildTypes = []string{Debug, Release, RelWithDebInfo, MinSizeRel}

// Setting keys, in canonical order.
const (
	SettingOS        = "os"
	SettingCompiler  = "compiler"
	SettingBuildType = "build_type"
	SettingArch      = "arch"
)

var settingKeys = []string{SettingOS, SettingCompiler, SettingBuildType, SettingArch}

// Settings are the platform axes a build varies over. They are supplied
// by the host and never modified by the recipe.
type Settings struct {
	OS        string
	Compiler  string
	BuildType string
	Arch      string
}

// DefaultSettings returns settings describing the running host with a
// Release build type. Compiler detection is left to the host, so
// Compiler is empty.
func DefaultSettings() Settings {
	return Settings{
		OS:        hostOS(runtime.GOOS),
		BuildType: Release,
		Arch:      hostArch(runtime.GOARCH),
	}
}

// With returns a copy of s with the given key/value overrides applied.
// Keys are the setting names (os, compiler, build_type, arch).
func (s Settings) With(kvs map[string]string) (Settings, error) {
	keys := make([]string, 0, len(kvs))
	for k := range kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := kvs[k]
		switch k {
		case SettingOS:
			s.OS = v
		case SettingCompiler:
			s.Compiler = v
		case SettingBuildType:
			s.BuildType = v
		case SettingArch:
			s.Arch = v
		default:
			return s, configErrorf("unknown setting %q", k)
		}
	}
	return s, nil
}

// Get returns the value of the named setting.
func (s Settings) Get(key string) (string, bool) {
	switch key {
	case SettingOS:
		return s.OS, true
	case SettingCompiler:
		return s.Compiler, true
	case SettingBuildType:
		return s.BuildType, true
	case SettingArch:
		return s.Arch, true
	}
	return "", false
}

// Validate reports a configuration error if the build type is missing or
// not one of the known build types.
func (s Settings) Validate() error {
	if s.BuildType == "" {
		return configErrorf("setting %s is not set", SettingBuildType)
	}
	if !slices.Contains(buildTypes, s.BuildType) {
		return configErrorf("setting %s: unknown value %q (want one of %s)",
			SettingBuildType, s.BuildType, strings.Join(buildTypes, ", "))
	}
	return nil
}

// String formats the settings as "os=Linux compiler=gcc ...", skipping
// unset axes.
func (s Settings) String() string {
	parts := make([]string, 0, len(settingKeys))
	for _, k := range settingKeys {
		if v, _ := s.Get(k); v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

func hostOS(goos string) string {
	switch goos {
	case "linux":
		return "Linux"
	case "darwin":
		return "Macos"
	case "windows":
		return "Windows"
	case "freebsd":
		return "FreeBSD"
	}
	return goos
}

func hostArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "x86"
	case "arm64":
		return "armv8"
	case "arm":
		return "armv7"
	}
	return goarch
}
