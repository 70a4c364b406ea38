package studio

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Figure layout in pixels.
const (
	figurePanelMaxHeight = 512
	figurePadding        = 16
	figureTitleHeight    = 28
)

// ComposeFigure places input and generated side by side on a white canvas,
// each scaled to the taller of the two heights (at most
// figurePanelMaxHeight) and titled above.
func ComposeFigure(input, generated image.Image) *image.NRGBA {
	height := min(figurePanelMaxHeight, max(input.Bounds().Dy(), generated.Bounds().Dy()))
	left := scaledSize(input.Bounds(), height)
	right := scaledSize(generated.Bounds(), height)

	width := figurePadding*3 + left.X + right.X
	total := figurePadding*2 + figureTitleHeight + height
	canvas := image.NewNRGBA(image.Rect(0, 0, width, total))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	top := figurePadding + figureTitleHeight
	x := figurePadding
	placePanel(canvas, input, image.Rect(x, top, x+left.X, top+left.Y), InputTitle)
	x += left.X + figurePadding
	placePanel(canvas, generated, image.Rect(x, top, x+right.X, top+right.Y), GeneratedTitle)

	return canvas
}

func scaledSize(b image.Rectangle, height int) image.Point {
	if b.Dy() == 0 {
		return image.Point{X: 1, Y: height}
	}
	w := max(1, b.Dx()*height/b.Dy())
	return image.Point{X: w, Y: height}
}

func placePanel(dst *image.NRGBA, src image.Image, r image.Rectangle, title string) {
	draw.CatmullRom.Scale(dst, r, src, src.Bounds(), draw.Over, nil)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(color.Black), Face: face}
	textWidth := d.MeasureString(title).Ceil()
	x := r.Min.X + (r.Dx()-textWidth)/2
	baseline := r.Min.Y - (figureTitleHeight-face.Ascent)/2
	d.Dot = fixed.P(x, baseline)
	d.DrawString(title)
}
