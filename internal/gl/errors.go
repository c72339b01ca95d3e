package gl

import (
	"fmt"
)

// InvalidShaderTypeError occurs when create_shader gets a type other than
// vertex (0) or fragment (1).
type InvalidShaderTypeError struct {
	Type uint32
}

func (e *InvalidShaderTypeError) Error() string {
	return fmt.Sprintf("invalid shader type %d (must be 0 for vertex or 1 for fragment)", e.Type)
}

// InvalidTextureSourceError occurs when a texture is loaded from a nil image.
type InvalidTextureSourceError struct {
	Name string
}

func (e *InvalidTextureSourceError) Error() string {
	if e.Name == "" {
		return "trying to load texture with invalid object"
	}
	return fmt.Sprintf("trying to load named texture '%s' from invalid object", e.Name)
}
