// Package render draws top-down arena frames from combat snapshots.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/fogleman/gg"

	"kaiju-arena/internal/combat"
)

// Options configures a Renderer.
type Options struct {
	Width         int
	Height        int
	PixelsPerUnit float64 // world meters to pixels
	FontPath      string  // optional TTF, the built-in face is used when empty
	FontSize      float64
}

// DefaultOptions returns a 640x640 frame at 80px per meter.
func DefaultOptions() Options {
	return Options{Width: 640, Height: 640, PixelsPerUnit: 80, FontSize: 14}
}

// Renderer turns snapshots into images. It holds no per-frame state and is
// safe for concurrent use.
type Renderer struct {
	opts Options
}

// New creates a renderer, filling unset options from DefaultOptions.
func New(opts Options) *Renderer {
	d := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = d.Width
	}
	if opts.Height <= 0 {
		opts.Height = d.Height
	}
	if opts.PixelsPerUnit <= 0 {
		opts.PixelsPerUnit = d.PixelsPerUnit
	}
	if opts.FontSize <= 0 {
		opts.FontSize = d.FontSize
	}
	return &Renderer{opts: opts}
}

// Team colours
var (
	background = color.RGBA{12, 12, 28, 255}
	gridColor  = color.RGBA{30, 30, 45, 255}
	teamColors = map[combat.Team]color.RGBA{
		combat.TeamMain:    {64, 156, 255, 255},
		combat.TeamEnemy:   {255, 82, 82, 255},
		combat.TeamNeutral: {180, 180, 180, 255},
	}
	deadColor = color.RGBA{80, 80, 80, 255}
)

// view maps world coordinates to pixels, centred on the combatants.
type view struct {
	cx, cz float64
	scale  float64
	w, h   float64
}

func (v view) project(p combat.Vec3) (float64, float64) {
	return v.w/2 + (p.X-v.cx)*v.scale, v.h/2 - (p.Z-v.cz)*v.scale
}

func (r *Renderer) viewOf(snap *combat.Snapshot) view {
	v := view{scale: r.opts.PixelsPerUnit, w: float64(r.opts.Width), h: float64(r.opts.Height)}
	if snap == nil || len(snap.Combatants) == 0 {
		return v
	}
	for _, c := range snap.Combatants {
		v.cx += c.Position.X
		v.cz += c.Position.Z
	}
	n := float64(len(snap.Combatants))
	v.cx /= n
	v.cz /= n
	return v
}

// Render draws snap into a new image. A nil snapshot yields an empty arena.
func (r *Renderer) Render(snap *combat.Snapshot) image.Image {
	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	if r.opts.FontPath != "" {
		// Keep the built-in face when the font cannot be loaded.
		_ = dc.LoadFontFace(r.opts.FontPath, r.opts.FontSize)
	}
	v := r.viewOf(snap)

	r.drawBackground(dc, v)
	if snap != nil {
		for _, c := range snap.Combatants {
			r.drawCombatant(dc, v, c)
		}
		r.drawHUD(dc, snap)
	}
	return dc.Image()
}

// EncodePNG renders snap and writes it to w as PNG.
func (r *Renderer) EncodePNG(w io.Writer, snap *combat.Snapshot) error {
	return png.Encode(w, r.Render(snap))
}

func (r *Renderer) drawBackground(dc *gg.Context, v view) {
	dc.SetColor(background)
	dc.DrawRectangle(0, 0, v.w, v.h)
	dc.Fill()

	// One grid line per meter, anchored to world origin.
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	ox, oy := v.project(combat.Vec3{})
	for x := math.Mod(ox, v.scale); x < v.w; x += v.scale {
		dc.DrawLine(x, 0, x, v.h)
		dc.Stroke()
	}
	for y := math.Mod(oy, v.scale); y < v.h; y += v.scale {
		dc.DrawLine(0, y, v.w, y)
		dc.Stroke()
	}
}

func (r *Renderer) drawCombatant(dc *gg.Context, v view, c combat.CombatantSnapshot) {
	x, y := v.project(c.Position)
	radius := 0.25 * v.scale

	body, ok := teamColors[c.Team]
	if !ok {
		body = teamColors[combat.TeamNeutral]
	}
	if c.IsDead {
		body = deadColor
	}

	// Shadow
	dc.SetColor(color.RGBA{0, 0, 0, 128})
	dc.DrawCircle(x, y+4, radius)
	dc.Fill()

	dc.SetColor(body)
	dc.DrawCircle(x, y, radius)
	dc.Fill()

	if c.IsDead {
		dc.SetColor(color.White)
		dc.SetLineWidth(3)
		d := radius * 0.6
		dc.DrawLine(x-d, y-d, x+d, y+d)
		dc.DrawLine(x-d, y+d, x+d, y-d)
		dc.Stroke()
	} else {
		// Facing: yaw 0 looks along +Z, which is up on screen.
		dc.SetColor(color.White)
		dc.SetLineWidth(3)
		dc.DrawLine(x, y, x+math.Sin(c.Facing)*radius*1.4, y-math.Cos(c.Facing)*radius*1.4)
		dc.Stroke()
	}

	r.drawHealthBar(dc, x, y-radius-14, c)

	dc.SetColor(color.White)
	dc.DrawStringAnchored(c.Name, x, y+radius+12, 0.5, 0.5)
	if !c.IsDead && c.Intent != combat.IntentIdle {
		dc.SetColor(color.RGBA{255, 200, 0, 255})
		dc.DrawStringAnchored(c.Intent.String(), x, y+radius+26, 0.5, 0.5)
	}
}

func (r *Renderer) drawHealthBar(dc *gg.Context, x, y float64, c combat.CombatantSnapshot) {
	const width, height = 60.0, 8.0
	pct := 0.0
	if c.MaxHP > 0 {
		pct = math.Max(0, math.Min(1, c.HP/c.MaxHP))
	}

	dc.SetColor(color.RGBA{51, 51, 51, 255})
	dc.DrawRectangle(x-width/2, y, width, height)
	dc.Fill()

	switch {
	case pct > 0.5:
		dc.SetColor(color.RGBA{83, 255, 69, 255})
	case pct > 0.25:
		dc.SetColor(color.RGBA{255, 149, 0, 255})
	default:
		dc.SetColor(color.RGBA{255, 62, 62, 255})
	}
	dc.DrawRectangle(x-width/2, y, width*pct, height)
	dc.Fill()
}

func (r *Renderer) drawHUD(dc *gg.Context, snap *combat.Snapshot) {
	dc.SetColor(color.White)
	line := fmt.Sprintf("round %d  alive %d  %s", snap.Round, snap.AliveCount, snap.State)
	dc.DrawStringAnchored(line, 10, 16, 0, 0.5)
}
