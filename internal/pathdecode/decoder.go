// Package pathdecode recovers real project paths from encoded project directory names.
//
// Project directories are named by replacing every path separator in the project's
// absolute path with '-' and every "/." with "--", so "/home/ann/.config" becomes
// "-home-ann--config". The reversal is lossy: a '-' that was part of a directory
// name cannot be told apart from a separator. A manifest mapping encoded names to
// real paths takes precedence when present.
package pathdecode

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk mapping of encoded directory names to real paths.
// JSON manifests parse too, since YAML is a superset of JSON.
type Manifest struct {
	Projects map[string]string `yaml:"projects" json:"projects"`
}

// Decoder resolves encoded project directory names. The manifest is read at most
// once per Decoder. The zero value decodes with the heuristic only.
type Decoder struct {
	manifestPath string
	logger       zerolog.Logger

	once     sync.Once
	projects map[string]string
}

// New returns a Decoder backed by the manifest at manifestPath. An empty path
// disables the manifest.
func New(manifestPath string, logger zerolog.Logger) *Decoder {
	return &Decoder{manifestPath: manifestPath, logger: logger}
}

// Decode returns the real path for an encoded project directory name. ok is false
// when neither the manifest nor the heuristic determines a path.
func (d *Decoder) Decode(encoded string) (string, bool) {
	d.once.Do(d.load)

	if p, ok := d.projects[encoded]; ok && strings.TrimSpace(p) != "" {
		return p, true
	}
	return Heuristic(encoded)
}

func (d *Decoder) load() {
	if d.manifestPath == "" {
		return
	}
	m, err := ReadManifest(d.manifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		d.logger.Warn().Err(err).Str("manifest", d.manifestPath).Msg("Ignoring unreadable project manifest")
		return
	}
	d.projects = m.Projects
	d.logger.Debug().Int("projects", len(m.Projects)).Str("manifest", d.manifestPath).Msg("Loaded project manifest")
}

// ReadManifest parses the manifest file at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Heuristic reverses the directory-name encoding: strip the leading '-', turn "--"
// into "/.", turn each remaining '-' into '/', and prepend '/'. Names that do not
// start with '-' are not encoded paths.
func Heuristic(encoded string) (string, bool) {
	if !strings.HasPrefix(encoded, "-") {
		return "", false
	}
	rest := strings.TrimPrefix(encoded, "-")
	if strings.Trim(rest, "-") == "" {
		return "", false
	}
	rest = strings.ReplaceAll(rest, "--", "/.")
	rest = strings.ReplaceAll(rest, "-", "/")
	return "/" + rest, true
}

// ProjectName derives a display name for a project. It prefers the base of the real
// path, then the last non-empty '-'-separated segment of the encoded name, then the
// encoded name itself. The result is empty only when encoded is empty and realPath
// is unknown.
func ProjectName(encoded, realPath string) string {
	if realPath != "" {
		if base := filepath.Base(filepath.Clean(realPath)); base != "." && base != string(filepath.Separator) {
			return base
		}
	}
	parts := strings.Split(encoded, "-")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return encoded
}
