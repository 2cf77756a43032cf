package build

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/goplus/llpkg/recipe"
)

// Matrix returns the canonical description of one binary configuration:
// the settings joined with "-", then "|" and the options, e.g.
// "Linux-gcc-Debug-x86_64|shared=true". Unset settings are skipped.
func Matrix(s recipe.Settings, o recipe.Options) string {
	var out string
	for _, v := range []string{s.OS, s.Compiler, s.BuildType, s.Arch} {
		if v == "" {
			continue
		}
		if out != "" {
			out += "-"
		}
		out += v
	}
	if opts := o.String(); opts != "" {
		out += "|" + opts
	}
	return out
}

// PackageID identifies the binary package built from one matrix. It is
// the hex BLAKE3 digest of the matrix, truncated to 20 bytes.
func PackageID(s recipe.Settings, o recipe.Options) string {
	sum := blake3.Sum256([]byte(Matrix(s, o)))
	return hex.EncodeToString(sum[:20])
}
