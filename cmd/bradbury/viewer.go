package main

import (
	"context"
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/gogpu/bradbury"
)

// viewer shows the latest published image in a window.
type viewer struct {
	width, height int
	frames        chan *image.RGBA

	ctx      context.Context
	renderer *bradbury.Renderer
	canvas   *ebiten.Image
}

func newViewer(width, height int) *viewer {
	return &viewer{
		width:  width,
		height: height,
		frames: make(chan *image.RGBA, 1),
	}
}

// Show queues img for display, replacing an image not yet drawn.
// It never blocks the render loop.
func (v *viewer) Show(img *image.RGBA) {
	for {
		select {
		case v.frames <- img:
			return
		default:
		}
		select {
		case <-v.frames:
		default:
		}
	}
}

// Run opens the window and blocks until it is closed or ctx is done.
func (v *viewer) Run(ctx context.Context, r *bradbury.Renderer) error {
	v.ctx = ctx
	v.renderer = r
	ebiten.SetWindowSize(v.width, v.height)
	ebiten.SetWindowTitle("bradbury")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(v)
}

func (v *viewer) Update() error {
	if v.ctx.Err() != nil {
		return ebiten.Termination
	}
	select {
	case img := <-v.frames:
		if v.canvas == nil {
			v.canvas = ebiten.NewImage(v.width, v.height)
		}
		v.canvas.WritePixels(img.Pix)
	default:
	}
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	if v.canvas != nil {
		screen.DrawImage(v.canvas, nil)
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf("%d spp  %.0f fps", v.renderer.SampleCount(), ebiten.ActualFPS()))
}

func (v *viewer) Layout(int, int) (int, int) {
	return v.width, v.height
}
