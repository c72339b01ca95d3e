package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest represents the assets.yaml structure.
type Manifest struct {
	Textures []TextureEntry `yaml:"textures"`
	Sprites  []SpriteEntry  `yaml:"sprites"`

	path string
}

// TextureEntry names an image file to load as a named texture.
type TextureEntry struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// SpriteEntry describes a static sprite (Rect) or an animated one
// (FrameLength and Frames).
type SpriteEntry struct {
	Name        string     `yaml:"name"`
	Texture     string     `yaml:"texture"`
	Rect        *Rect      `yaml:"rect"`
	FrameLength int32      `yaml:"frame_length"`
	Frames      [][4]int32 `yaml:"frames"`
}

// Animated reports whether the entry describes an animated sprite.
func (s SpriteEntry) Animated() bool {
	return len(s.Frames) > 0
}

// FlatFrames returns the frames as consecutive (x, y, w, h) values.
func (s SpriteEntry) FlatFrames() []int32 {
	out := make([]int32, 0, len(s.Frames)*4)
	for _, f := range s.Frames {
		out = append(out, f[:]...)
	}
	return out
}

// ParseManifest reads and validates the manifest at path.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestNotFoundError{Path: path, Err: err}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{Path: path, Err: err}
	}
	m.path = path

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	textures := make(map[string]bool, len(m.Textures))
	for i, t := range m.Textures {
		if t.Name == "" {
			return &ManifestValidationError{
				Path:    m.path,
				Field:   fmt.Sprintf("textures[%d].name", i),
				Message: "name is required",
			}
		}
		if t.File == "" {
			return &ManifestValidationError{
				Path:    m.path,
				Field:   fmt.Sprintf("textures[%d].file", i),
				Message: "file is required",
			}
		}
		if textures[t.Name] {
			return &ManifestValidationError{
				Path:    m.path,
				Field:   fmt.Sprintf("textures[%d].name", i),
				Message: fmt.Sprintf("duplicate texture: %s", t.Name),
			}
		}
		textures[t.Name] = true

		if _, err := os.Stat(m.Resolve(t.File)); os.IsNotExist(err) {
			return &ImageNotFoundError{ManifestPath: m.path, File: t.File}
		}
	}

	sprites := make(map[string]bool, len(m.Sprites))
	for i, s := range m.Sprites {
		field := fmt.Sprintf("sprites[%d]", i)
		if s.Name == "" {
			return &ManifestValidationError{Path: m.path, Field: field + ".name", Message: "name is required"}
		}
		if sprites[s.Name] {
			return &ManifestValidationError{
				Path:    m.path,
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate sprite: %s", s.Name),
			}
		}
		sprites[s.Name] = true

		if s.Rect != nil && s.Animated() {
			return &ManifestValidationError{
				Path:    m.path,
				Field:   field,
				Message: "rect and frames are mutually exclusive",
			}
		}
		if s.Animated() && s.Texture == "" {
			return &ManifestValidationError{
				Path:    m.path,
				Field:   field + ".texture",
				Message: "texture is required for animated sprites",
			}
		}
		if s.Animated() && s.FrameLength <= 0 {
			return &ManifestValidationError{
				Path:    m.path,
				Field:   field + ".frame_length",
				Message: "frame_length must be positive for animated sprites",
			}
		}
	}
	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return m.path
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.path)
}

// Resolve returns file relative to the manifest directory.
func (m *Manifest) Resolve(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(m.Dir(), file)
}
