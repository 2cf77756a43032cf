package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Workspace directory layout:
//
//	workspaceDir/
//	  <name>/                         # package-level dir (cacheDir)
//	    .cache.json                   # maps "version-packageID" to a cacheEntry
//	    src/<packageID>/<subfolder>/  # materialized sources
//	    build/<packageID>/            # build tree
//	  <name>@<version>-<packageID>/   # package output dir (installDir)
//	    include/
//	    lib/
//	    ...
const cacheFile = ".cache.json"

// Entry records one successfully packaged configuration.
type Entry struct {
	Matrix    string            `json:"matrix"`
	Settings  map[string]string `json:"settings"`
	Options   map[string]string `json:"options"`
	Files     []string          `json:"files"`
	Libraries []string          `json:"libraries,omitempty"`
	Source    string            `json:"source,omitempty"` // resolved url@revision
	BuildTime time.Time         `json:"build_time"`
}

type buildCache struct {
	Cache map[string]*Entry `json:"cache"`
}

func cacheKey(version, pkgID string) string {
	return version + "-" + pkgID
}

func (c *buildCache) get(version, pkgID string) (*Entry, bool) {
	e, ok := c.Cache[cacheKey(version, pkgID)]
	return e, ok
}

func (c *buildCache) set(version, pkgID string, e *Entry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*Entry)
	}
	c.Cache[cacheKey(version, pkgID)] = e
}

func loadCache(path string) (*buildCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c buildCache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// saveCache replaces the cache file atomically.
func saveCache(path string, c *buildCache) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
