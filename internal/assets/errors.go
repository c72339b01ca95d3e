package assets

import (
	"fmt"
)

// ManifestNotFoundError occurs when the asset manifest cannot be read.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("asset manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when the asset manifest is not valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse asset manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when the asset manifest fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("asset manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("asset manifest validation failed at '%s': %s", e.Path, e.Message)
}

// ImageNotFoundError occurs when a texture file referenced in the manifest
// doesn't exist.
type ImageNotFoundError struct {
	ManifestPath string
	File         string
}

func (e *ImageNotFoundError) Error() string {
	return fmt.Sprintf("image '%s' not found (referenced in manifest '%s')",
		e.File, e.ManifestPath)
}

// TextureLoadError occurs when a texture image cannot be decoded or uploaded.
type TextureLoadError struct {
	Name string
	Err  error
}

func (e *TextureLoadError) Error() string {
	return fmt.Sprintf("failed to load texture '%s': %v", e.Name, e.Err)
}

func (e *TextureLoadError) Unwrap() error {
	return e.Err
}

// InvalidSpriteError occurs when sprite arguments are malformed.
type InvalidSpriteError struct {
	Name    string
	Message string
}

func (e *InvalidSpriteError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid sprite: %s", e.Message)
	}
	return fmt.Sprintf("invalid sprite '%s': %s", e.Name, e.Message)
}

// UnregisteredTextureError occurs when a sprite references a texture that has
// not been loaded under a name.
type UnregisteredTextureError struct {
	Texture string
}

func (e *UnregisteredTextureError) Error() string {
	return fmt.Sprintf("trying to create sprite with unregistered texture '%s'", e.Texture)
}

// SpriteExistsError occurs when a sprite name is registered twice.
type SpriteExistsError struct {
	Name string
}

func (e *SpriteExistsError) Error() string {
	return fmt.Sprintf("sprite with name '%s' already exists", e.Name)
}

// SpriteRegistrationError occurs when the module rejects a sprite.
type SpriteRegistrationError struct {
	Name string
	Err  error
}

func (e *SpriteRegistrationError) Error() string {
	return fmt.Sprintf("failed to register sprite '%s': %v", e.Name, e.Err)
}

func (e *SpriteRegistrationError) Unwrap() error {
	return e.Err
}
