package gl

import (
	"image"
	"image/draw"

	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/internal/handle"
)

// LoadTexture uploads img as an RGBA texture with nearest filtering and
// clamped edges, and returns its id.
func (b *Bindings) LoadTexture(img image.Image) (handle.ID, error) {
	if img == nil {
		return handle.Null, &InvalidTextureSourceError{}
	}
	return b.uploadTexture(img), nil
}

func (b *Bindings) uploadTexture(img image.Image) handle.ID {
	rgba := toRGBA(img)
	bounds := rgba.Bounds()

	c := b.ctx
	tex := c.CreateTexture()
	c.BindTexture(Texture2D, tex)
	c.TexImage2D(Texture2D, 0, RGBA, int32(bounds.Dx()), int32(bounds.Dy()), 0, RGBA, UnsignedByte, rgba.Pix)

	c.TexParameteri(Texture2D, TextureMagFilter, Nearest)
	c.TexParameteri(Texture2D, TextureMinFilter, Nearest)
	c.TexParameteri(Texture2D, TextureWrapS, ClampToEdge)
	c.TexParameteri(Texture2D, TextureWrapT, ClampToEdge)

	return b.textures.Add(tex)
}

// LoadNamedTexture loads img under name. A name is only ever loaded once:
// later calls return the existing id and ignore img.
func (b *Bindings) LoadNamedTexture(name string, img image.Image) (handle.ID, error) {
	if id := b.namedTextures.Lookup(name); id != handle.Null {
		return id, nil
	}
	if img == nil {
		return handle.Null, &InvalidTextureSourceError{Name: name}
	}

	id, _ := b.namedTextures.Register(name, b.uploadTexture(img))
	b.logger.Debug("Loaded named texture", zap.String("name", name), zap.Uint32("id", id))
	return id, nil
}

// NamedTexture returns the id of a named texture, or 0.
func (b *Bindings) NamedTexture(name string) handle.ID {
	return b.namedTextures.Lookup(name)
}

// NamedTextures returns the loaded texture names.
func (b *Bindings) NamedTextures() []string {
	return b.namedTextures.Keys()
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) && rgba.Stride == 4*rgba.Bounds().Dx() {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}
