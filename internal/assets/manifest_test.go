package assets

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/wasmtoys/internal/gl"
	"github.com/woxQAQ/wasmtoys/internal/wasm"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "assets.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validManifest = `
textures:
  - name: hero
    file: hero.png
  - name: coin
    file: images/coin.png
sprites:
  - name: hero
    rect: {x: 0, y: 0, w: 16, h: 16}
  - name: spin
    texture: coin
    frame_length: 120
    frames:
      - [0, 0, 8, 8]
      - [8, 0, 8, 8]
`

func validDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "images"), 0o755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(dir, "hero.png"), 16, 16)
	writePNG(t, filepath.Join(dir, "images", "coin.png"), 16, 8)
	return dir
}

func TestParseManifest_Valid(t *testing.T) {
	dir := validDir(t)
	path := writeManifest(t, dir, validManifest)

	m, err := ParseManifest(path)
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}

	if len(m.Textures) != 2 {
		t.Errorf("expected 2 textures, got %d", len(m.Textures))
	}
	if m.Resolve("images/coin.png") != filepath.Join(dir, "images", "coin.png") {
		t.Errorf("unexpected resolved path %s", m.Resolve("images/coin.png"))
	}
	if m.Sprites[0].Animated() || !m.Sprites[1].Animated() {
		t.Error("sprite kinds decoded incorrectly")
	}
	if diff := cmp.Diff([]int32{0, 0, 8, 8, 8, 0, 8, 8}, m.Sprites[1].FlatFrames()); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestParseManifest_NotFound(t *testing.T) {
	_, err := ParseManifest(filepath.Join(t.TempDir(), "assets.yaml"))
	if _, ok := err.(*ManifestNotFoundError); !ok {
		t.Errorf("expected ManifestNotFoundError, got %T", err)
	}
}

func TestParseManifest_InvalidYAML(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "textures: [name: {")
	_, err := ParseManifest(path)
	if _, ok := err.(*ManifestParseError); !ok {
		t.Errorf("expected ManifestParseError, got %T", err)
	}
}

func TestParseManifest_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "texture without name",
			body:  "textures:\n  - file: hero.png\n",
			field: "textures[0].name",
		},
		{
			name:  "texture without file",
			body:  "textures:\n  - name: hero\n",
			field: "textures[0].file",
		},
		{
			name:  "duplicate sprite",
			body:  "sprites:\n  - name: a\n  - name: a\n",
			field: "sprites[1].name",
		},
		{
			name:  "animated without texture",
			body:  "sprites:\n  - name: a\n    frame_length: 1\n    frames: [[0, 0, 1, 1]]\n",
			field: "sprites[0].texture",
		},
		{
			name:  "animated without frame length",
			body:  "sprites:\n  - name: a\n    texture: a\n    frames: [[0, 0, 1, 1]]\n",
			field: "sprites[0].frame_length",
		},
		{
			name:  "rect and frames",
			body:  "sprites:\n  - name: a\n    rect: {w: 1}\n    frame_length: 1\n    frames: [[0, 0, 1, 1]]\n",
			field: "sprites[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.body)
			_, err := ParseManifest(path)

			var verr *ManifestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ManifestValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestParseManifest_MissingImage(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "textures:\n  - name: hero\n    file: hero.png\n")
	_, err := ParseManifest(path)

	var nf *ImageNotFoundError
	if !errors.As(err, &nf) || nf.File != "hero.png" {
		t.Errorf("expected ImageNotFoundError, got %v", err)
	}
}

func TestLoaderLoadsTexturesBeforeSprites(t *testing.T) {
	dir := validDir(t)
	path := writeManifest(t, dir, validManifest)

	textures := gl.NewBindings(gl.NewRecorder(gl.WebGL2, nil), wasm.Bridge{}, zap.NewNop())
	sprites := NewSprites(newGuest(t), textures, zaptest.NewLogger(t))
	loader := NewLoader(textures, sprites, zaptest.NewLogger(t))

	sum, err := loader.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if sum != (Summary{Textures: 2, Sprites: 2}) {
		t.Errorf("summary = %+v", sum)
	}
	if textures.NamedTexture("hero") != 1 || textures.NamedTexture("coin") != 2 {
		t.Errorf("unexpected texture ids hero=%d coin=%d", textures.NamedTexture("hero"), textures.NamedTexture("coin"))
	}
	if got := sprites.SpriteID("hero"); got != 100 {
		t.Errorf("hero sprite id = %d, want 100", got)
	}
	if got := sprites.SpriteID("spin"); got != 202 {
		t.Errorf("spin sprite id = %d, want 202", got)
	}
}

func TestLoaderReportsUndecodableImage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeManifest(t, dir, "textures:\n  - name: bad\n    file: bad.png\n")

	textures := gl.NewBindings(gl.NewRecorder(gl.WebGL2, nil), wasm.Bridge{}, zap.NewNop())
	loader := NewLoader(textures, NewSprites(nil, textures, zap.NewNop()), zap.NewNop())

	_, err := loader.LoadFile(context.Background(), path)
	var lerr *TextureLoadError
	if !errors.As(err, &lerr) || lerr.Name != "bad" {
		t.Errorf("expected TextureLoadError, got %v", err)
	}
}
