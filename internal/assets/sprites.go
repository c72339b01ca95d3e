package assets

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/api/abi"
	"github.com/woxQAQ/wasmtoys/internal/handle"
	"github.com/woxQAQ/wasmtoys/internal/wasm"
)

// Guest is the part of a module instance sprites are registered with.
type Guest interface {
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	Memory() *wasm.Memory
}

// TextureLookup resolves named textures.
type TextureLookup interface {
	NamedTexture(name string) handle.ID
}

// Sprites maps sprite names to the ids the module assigned to them.
type Sprites struct {
	guest    Guest
	textures TextureLookup
	names    *handle.Names
	logger   *zap.Logger
}

// NewSprites creates a sprite registry bound to guest.
func NewSprites(guest Guest, textures TextureLookup, logger *zap.Logger) *Sprites {
	return &Sprites{
		guest:    guest,
		textures: textures,
		names:    handle.NewNames(),
		logger:   logger.With(zap.String("component", "sprites")),
	}
}

// Rect is a region of a texture in pixels.
type Rect struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
	W int32 `yaml:"w"`
	H int32 `yaml:"h"`
}

// resolve validates a new sprite and returns the texture id it refers to.
func (s *Sprites) resolve(name, texture string) (handle.ID, error) {
	if name == "" {
		return handle.Null, &InvalidSpriteError{Message: "sprite name must be a non-empty string"}
	}
	texID := s.textures.NamedTexture(texture)
	if texID == handle.Null {
		return handle.Null, &UnregisteredTextureError{Texture: texture}
	}
	if s.names.Has(name) {
		return handle.Null, &SpriteExistsError{Name: name}
	}
	return texID, nil
}

// CreateSprite registers a static sprite cut from texture. An empty texture
// name defaults to the sprite name.
func (s *Sprites) CreateSprite(ctx context.Context, name, texture string, rect Rect) (handle.ID, error) {
	if texture == "" {
		texture = name
	}
	texID, err := s.resolve(name, texture)
	if err != nil {
		return handle.Null, err
	}

	res, err := s.guest.Call(ctx, abi.RegisterSprite,
		api.EncodeU32(texID),
		api.EncodeI32(rect.X), api.EncodeI32(rect.Y),
		api.EncodeI32(rect.W), api.EncodeI32(rect.H))
	if err != nil {
		return handle.Null, &SpriteRegistrationError{Name: name, Err: err}
	}
	return s.register(name, res)
}

// CreateAnimatedSprite registers a sprite with frames laid out as
// consecutive (x, y, w, h) quadruples. The texture name is required.
func (s *Sprites) CreateAnimatedSprite(ctx context.Context, name, texture string, frameLength int32, frames []int32) (handle.ID, error) {
	if len(frames)%4 != 0 {
		return handle.Null, &InvalidSpriteError{Name: name, Message: "frame data must be a multiple of 4 values"}
	}
	texID, err := s.resolve(name, texture)
	if err != nil {
		return handle.Null, err
	}

	framesPtr, err := s.guest.Memory().WriteI32s(ctx, frames)
	if err != nil {
		return handle.Null, &SpriteRegistrationError{Name: name, Err: err}
	}
	res, err := s.guest.Call(ctx, abi.RegisterAnimatedSprite,
		api.EncodeU32(texID),
		api.EncodeI32(frameLength),
		api.EncodeU32(uint32(len(frames)/4)),
		api.EncodeU32(framesPtr))
	if err != nil {
		return handle.Null, &SpriteRegistrationError{Name: name, Err: err}
	}
	return s.register(name, res)
}

func (s *Sprites) register(name string, res []uint64) (handle.ID, error) {
	var id handle.ID
	if len(res) > 0 {
		id = api.DecodeU32(res[0])
	}
	s.names.Register(name, id)
	s.logger.Debug("Sprite registered", zap.String("name", name), zap.Uint32("id", id))
	return id, nil
}

// SpriteID returns the id of a registered sprite, or 0.
func (s *Sprites) SpriteID(name string) handle.ID {
	return s.names.Lookup(name)
}

// Names returns the registered sprite names, sorted.
func (s *Sprites) Names() []string {
	return s.names.Keys()
}

// Count returns the number of registered sprites.
func (s *Sprites) Count() int {
	return s.names.Len()
}
