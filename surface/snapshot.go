package surface

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"
)

// ErrNotReadable is returned when a view's pixels cannot be read back.
var ErrNotReadable = errors.New("surface: pixels not readable")

// texelReader is implemented by textures that keep their pixels in memory.
type texelReader interface {
	GetData() []byte
}

// framebufferReader is implemented by surfaces that keep a CPU framebuffer
// in RGBA byte order.
type framebufferReader interface {
	GetFramebuffer() []byte
}

// RGBA copies tightly packed 4-byte pixels of format into a new image,
// swapping red and blue for BGRA formats.
func RGBA(data []byte, width, height int, format gputypes.TextureFormat) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrNotReadable, width, height)
	}
	want := width * height * 4
	if len(data) < want {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrNotReadable, len(data), want)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, data[:want])
	if isBGRA(format) {
		for i := 0; i < want; i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img, nil
}

func isBGRA(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatBGRA8Unorm || f == gputypes.TextureFormatBGRA8UnormSrgb
}

// Scale returns img enlarged by factor with nearest-neighbor sampling so
// individual pixels stay sharp. Factors below 2 return img unchanged.
func Scale(img *image.RGBA, factor int) *image.RGBA {
	if factor < 2 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// WritePNG encodes img, scaled by factor, as PNG.
func WritePNG(w io.Writer, img *image.RGBA, factor int) error {
	return png.Encode(w, Scale(img, factor))
}

// SavePNG writes img, scaled by factor, to a PNG file at path.
func SavePNG(path string, img *image.RGBA, factor int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("surface: create snapshot: %w", err)
	}
	if err := WritePNG(f, img, factor); err != nil {
		_ = f.Close()
		return fmt.Errorf("surface: encode snapshot: %w", err)
	}
	return f.Close()
}
