package module

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Loader finds module manifests on disk.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new manifest loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{
		logger: logger.With(zap.String("component", "module-loader")),
	}
}

// DiscoverManifests scans each path for subdirectories holding a
// manifest.yaml and returns them keyed by module name. Directories without a
// manifest are skipped; invalid manifests are logged and skipped.
func (l *Loader) DiscoverManifests(paths []string) (map[string]*Manifest, error) {
	manifests := make(map[string]*Manifest)
	var failed int

	for _, basePath := range paths {
		l.logger.Debug("Scanning module directory", zap.String("path", basePath))

		// Read subdirectories
		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Debug("Module path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			dir := filepath.Join(basePath, entry.Name())

			manifest, err := ParseManifest(dir)
			if err != nil {
				if _, ok := err.(*ManifestNotFoundError); ok {
					continue
				}
				l.logger.Error("Failed to load module manifest",
					zap.String("dir", dir),
					zap.Error(err),
				)
				failed++
				continue
			}

			if prev, exists := manifests[manifest.Name]; exists {
				l.logger.Warn("Duplicate module manifest, keeping the first",
					zap.String("name", manifest.Name),
					zap.String("kept", prev.Dir()),
					zap.String("ignored", dir),
				)
				continue
			}

			manifests[manifest.Name] = manifest
		}
	}

	if failed > 0 {
		l.logger.Warn("Some module manifests failed to load",
			zap.Int("loaded", len(manifests)),
			zap.Int("failed", failed),
		)
	}

	return manifests, nil
}
