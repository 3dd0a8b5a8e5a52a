package render

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// Palette maps binary cell states onto pixel colours.
type Palette struct {
	On  color.Color
	Off color.Color
}

// DefaultPalette draws on cells white over a black background.
func DefaultPalette() Palette {
	return Palette{On: color.White, Off: color.Black}
}

// fillBinaryRGBA converts binary cell data into RGBA pixels in buf.
func fillBinaryRGBA(buf []byte, cells []bool, on, off color.Color) {
	rOn, gOn, bOn, aOn := on.RGBA()
	rOff, gOff, bOff, aOff := off.RGBA()
	for i, c := range cells {
		base := i * 4
		if c {
			buf[base+0] = uint8(rOn >> 8)
			buf[base+1] = uint8(gOn >> 8)
			buf[base+2] = uint8(bOn >> 8)
			buf[base+3] = uint8(aOn >> 8)
			continue
		}
		buf[base+0] = uint8(rOff >> 8)
		buf[base+1] = uint8(gOff >> 8)
		buf[base+2] = uint8(bOff >> 8)
		buf[base+3] = uint8(aOff >> 8)
	}
}

// CellImage accumulates one tile's cells row by row at one pixel per cell.
type CellImage struct {
	img     *image.RGBA
	palette Palette
}

// NewCellImage allocates a cells x cells image.
func NewCellImage(cells int, palette Palette) *CellImage {
	return &CellImage{img: image.NewRGBA(image.Rect(0, 0, cells, cells)), palette: palette}
}

// SetRow paints row y from the provided cell states. Extra cells are ignored.
func (c *CellImage) SetRow(y int, cells []bool) {
	b := c.img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if len(cells) > b.Dx() {
		cells = cells[:b.Dx()]
	}
	off := c.img.PixOffset(b.Min.X, y)
	fillBinaryRGBA(c.img.Pix[off:off+4*len(cells)], cells, c.palette.On, c.palette.Off)
}

// Image returns the unscaled cell image.
func (c *CellImage) Image() *image.RGBA { return c.img }

// Scaled returns the cell image resized to size x size pixels. Nearest
// neighbour sampling keeps every cell a hard-edged block.
func (c *CellImage) Scaled(size int) *image.RGBA {
	if c.img.Bounds().Dx() == size && c.img.Bounds().Dy() == size {
		return c.img
	}
	return ScaleNearest(c.img, size)
}

// ScaleNearest resizes src into a new size x size image without interpolation.
func ScaleNearest(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// CellPixel returns the pixel at the centre of cell i when cells cells are
// scaled across size pixels with ScaleNearest. Cells get uneven widths when
// size is not a multiple of cells.
func CellPixel(i, cells, size int) int {
	return (2*i + 1) * size / (2 * cells)
}

// Composite copies src into dst with its top-left corner at (x, y).
func Composite(dst *image.RGBA, src image.Image, x, y int) {
	xdraw.Copy(dst, image.Pt(x, y), src, src.Bounds(), xdraw.Src, nil)
}

// IsOn reports whether the pixel at (x, y) matches the palette's on colour.
func (p Palette) IsOn(img image.Image, x, y int) bool {
	r1, g1, b1, a1 := img.At(x, y).RGBA()
	r2, g2, b2, a2 := p.On.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}
