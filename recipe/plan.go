package recipe

import "slices"

// OptionShared is the option selecting shared over static libraries.
const OptionShared = "shared"

// Plan is the set of native build-system parameters derived for one
// lifecycle phase.
type Plan struct {
	BuildType    string // "Debug" or "Release"
	Shared       bool
	Static       bool // always !Shared
	SourceFolder string
	Verbose      bool
}

// derivePlan collapses the build type axis onto Debug/Release and maps
// the shared option onto the complementary shared/static flags. It does
// no I/O.
func derivePlan(settings Settings, options Options, sourceFolder string, verbose bool) (Plan, error) {
	if settings.BuildType == "" {
		return Plan{}, configErrorf("setting %s is not set", SettingBuildType)
	}
	if !slices.Contains(buildTypes, settings.BuildType) {
		return Plan{}, configErrorf("setting %s: unknown value %q", SettingBuildType, settings.BuildType)
	}
	shared, err := options.Bool(OptionShared)
	if err != nil {
		return Plan{}, err
	}
	buildType := Release
	if settings.BuildType == Debug {
		buildType = Debug
	}
	return Plan{
		BuildType:    buildType,
		Shared:       shared,
		Static:       !shared,
		SourceFolder: sourceFolder,
		Verbose:      verbose,
	}, nil
}

// Defines returns the plan as native build-system bool definitions.
func (p Plan) Defines() map[string]bool {
	return map[string]bool{
		"BUILD_SHARED_LIBS":      p.Shared,
		"BUILD_STATIC_LIBS":      p.Static,
		"CMAKE_VERBOSE_MAKEFILE": p.Verbose,
	}
}
