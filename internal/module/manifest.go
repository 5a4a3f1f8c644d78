package module

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest file name inside a module directory.
const ManifestFile = "manifest.yaml"

// Manifest represents the module manifest.yaml structure.
type Manifest struct {
	Name     string   `yaml:"name"`
	Version  string   `yaml:"version"`
	Exports  []string `yaml:"exports"`
	Disabled bool     `yaml:"disabled"`
	Author   string   `yaml:"author"`
	License  string   `yaml:"license"`

	// Internal fields
	dir string // Directory containing manifest
}

// ParseManifest reads and parses manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	// Validate manifest
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "name",
			Message: "name is required",
		}
	}

	if m.Version == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "version",
			Message: "version is required",
		}
	}

	seen := make(map[string]bool, len(m.Exports))
	for _, export := range m.Exports {
		if export == "" {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "exports",
				Message: "export names must not be empty",
			}
		}
		if seen[export] {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "exports",
				Message: "duplicate export: " + export,
			}
		}
		seen[export] = true
	}

	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
