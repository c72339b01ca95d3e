package assets

import (
	"context"
	"image"
	_ "image/png"
	"os"

	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/internal/handle"
)

// TextureLoader uploads named textures.
type TextureLoader interface {
	TextureLookup
	LoadNamedTexture(name string, img image.Image) (handle.ID, error)
}

// Loader loads a manifest's textures and sprites into a running module.
type Loader struct {
	textures TextureLoader
	sprites  *Sprites
	logger   *zap.Logger
}

// NewLoader creates a new asset loader.
func NewLoader(textures TextureLoader, sprites *Sprites, logger *zap.Logger) *Loader {
	return &Loader{
		textures: textures,
		sprites:  sprites,
		logger:   logger.With(zap.String("component", "asset-loader")),
	}
}

// Summary reports what a Load call registered.
type Summary struct {
	Textures int
	Sprites  int
}

// LoadFile parses the manifest at path and loads it.
func (l *Loader) LoadFile(ctx context.Context, path string) (Summary, error) {
	m, err := ParseManifest(path)
	if err != nil {
		return Summary{}, err
	}
	return l.Load(ctx, m)
}

// Load registers every texture, then every sprite. It stops at the first
// failure.
func (l *Loader) Load(ctx context.Context, m *Manifest) (Summary, error) {
	var sum Summary

	for _, t := range m.Textures {
		img, err := decodeImage(m.Resolve(t.File))
		if err != nil {
			return sum, &TextureLoadError{Name: t.Name, Err: err}
		}
		id, err := l.textures.LoadNamedTexture(t.Name, img)
		if err != nil {
			return sum, &TextureLoadError{Name: t.Name, Err: err}
		}
		l.logger.Debug("Texture loaded",
			zap.String("name", t.Name),
			zap.String("file", t.File),
			zap.Uint32("id", id),
		)
		sum.Textures++
	}

	for _, s := range m.Sprites {
		var err error
		if s.Animated() {
			_, err = l.sprites.CreateAnimatedSprite(ctx, s.Name, s.Texture, s.FrameLength, s.FlatFrames())
		} else {
			var rect Rect
			if s.Rect != nil {
				rect = *s.Rect
			}
			_, err = l.sprites.CreateSprite(ctx, s.Name, s.Texture, rect)
		}
		if err != nil {
			return sum, err
		}
		sum.Sprites++
	}

	l.logger.Info("Assets loaded",
		zap.String("manifest", m.Path()),
		zap.Int("textures", sum.Textures),
		zap.Int("sprites", sum.Sprites),
	)
	return sum, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
