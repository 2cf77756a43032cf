// Package inotifycpp declares the recipe of inotify-cpp, a C++ wrapper
// for linux inotify.
package inotifycpp

import "github.com/goplus/llpkg/recipe"

const Name = "inotifycpp"

// Recipe returns a fresh copy of the inotifycpp recipe.
func Recipe() *recipe.Recipe {
	return &recipe.Recipe{
		Identity: recipe.Identity{
			Name:        Name,
			Version:     "1.0.0",
			Author:      "Erik Zenker",
			URL:         "https://github.com/erikzenker/inotify-cpp.git",
			Description: "Inotify-cpp is a C++ wrapper for linux inotify",
		},
		Settings: []string{
			recipe.SettingOS,
			recipe.SettingCompiler,
			recipe.SettingBuildType,
			recipe.SettingArch,
		},
		Options: recipe.OptionSchema{
			recipe.OptionShared: recipe.BoolOption(true),
		},
		BuildRequires: []recipe.Requirement{
			recipe.MustParseRequirement("boost/[~1.76]"),
		},
		Source: recipe.SourceCoordinate{
			Kind:      "git",
			URL:       recipe.Auto,
			Revision:  recipe.Auto,
			Subfolder: Name,
			Username:  "git",
		},
		Generators: []string{"cmake"},
	}
}
