package graph

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// nodeColors maps entity types to fill colors in rendered images.
var nodeColors = map[string]color.RGBA{
	"Person":       {0x4A, 0x90, 0xD9, 0xFF},
	"Project":      {0xE8, 0x94, 0x3A, 0xFF},
	"Task":         {0x5C, 0xB8, 0x5C, 0xFF},
	"Expense":      {0xD9, 0x53, 0x4F, 0xFF},
	"Debt":         {0xF0, 0xAD, 0x4E, 0xFF},
	"Reminder":     {0x9B, 0x59, 0xB6, 0xFF},
	"Company":      {0x34, 0x98, 0xDB, 0xFF},
	"Item":         {0x1A, 0xBC, 0x9C, 0xFF},
	"Knowledge":    {0x2E, 0xCC, 0x71, 0xFF},
	"Topic":        {0x95, 0xA5, 0xA6, 0xFF},
	"Tag":          {0xBD, 0xC3, 0xC7, 0xFF},
	"Sprint":       {0xE7, 0x4C, 0x3C, 0xFF},
	"Idea":         {0xF3, 0x9C, 0x12, 0xFF},
	"FocusSession": {0x8E, 0x44, 0xAD, 0xFF},
	"Location":     {0x16, 0xA0, 0x85, 0xFF},
}

var defaultNodeColor = color.RGBA{0x7F, 0x8C, 0x8D, 0xFF}

var (
	edgeColor  = color.RGBA{0xCC, 0xCC, 0xCC, 0xFF}
	labelColor = color.RGBA{0x33, 0x33, 0x33, 0xFF}
	background = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
)

const nodeRadius = 10

// RenderPNG draws the exported graph with a force-directed layout and
// returns PNG bytes.
func RenderPNG(data *GraphExport, width, height int) ([]byte, error) {
	if width < 200 {
		width = 1200
	}
	if height < 200 {
		height = 800
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillRect(img, img.Bounds(), background)

	if data == nil || len(data.Nodes) == 0 {
		drawCenteredString(img, "No data", width/2, height/2)
		return encodePNG(img)
	}

	pos := springLayout(data, 50)

	// Scale unit layout into pixel space with a margin for labels.
	margin := 60.0
	toPixel := func(p [2]float64) (int, int) {
		x := margin + p[0]*(float64(width)-2*margin)
		y := margin + p[1]*(float64(height)-2*margin)
		return int(x), int(y)
	}

	for _, e := range data.Edges {
		a, okA := pos[e.Source]
		b, okB := pos[e.Target]
		if !okA || !okB {
			continue
		}
		x1, y1 := toPixel(a)
		x2, y2 := toPixel(b)
		drawLine(img, x1, y1, x2, y2, edgeColor)
	}

	for _, n := range data.Nodes {
		p, ok := pos[n.ID]
		if !ok {
			continue
		}
		x, y := toPixel(p)
		c, ok := nodeColors[n.Type]
		if !ok {
			c = defaultNodeColor
		}
		fillCircle(img, x, y, nodeRadius, c)

		label := []rune(n.Label)
		if len(label) > 20 {
			label = label[:20]
		}
		drawCenteredString(img, string(label), x, y+nodeRadius+10)
	}

	return encodePNG(img)
}

// springLayout runs a Fruchterman-Reingold style layout and returns
// positions normalised to the unit square. Seeded so repeated renders
// of the same graph are identical.
func springLayout(data *GraphExport, iterations int) map[string][2]float64 {
	n := len(data.Nodes)
	rng := rand.New(rand.NewSource(42))

	pos := make(map[string][2]float64, n)
	for _, node := range data.Nodes {
		pos[node.ID] = [2]float64{rng.Float64(), rng.Float64()}
	}
	if n == 1 {
		for id := range pos {
			pos[id] = [2]float64{0.5, 0.5}
		}
		return pos
	}

	k := math.Max(0.5, 2.0/math.Sqrt(float64(n)))
	temp := 0.1

	ids := make([]string, 0, n)
	for _, node := range data.Nodes {
		ids = append(ids, node.ID)
	}

	for iter := 0; iter < iterations; iter++ {
		disp := make(map[string][2]float64, n)

		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := ids[i], ids[j]
				dx := pos[a][0] - pos[b][0]
				dy := pos[a][1] - pos[b][1]
				d := math.Hypot(dx, dy)
				if d < 1e-6 {
					d = 1e-6
					dx = rng.Float64()*0.01 - 0.005
					dy = rng.Float64()*0.01 - 0.005
				}
				f := k * k / d / d
				disp[a] = [2]float64{disp[a][0] + dx*f, disp[a][1] + dy*f}
				disp[b] = [2]float64{disp[b][0] - dx*f, disp[b][1] - dy*f}
			}
		}

		for _, e := range data.Edges {
			a, okA := pos[e.Source]
			b, okB := pos[e.Target]
			if !okA || !okB {
				continue
			}
			dx := a[0] - b[0]
			dy := a[1] - b[1]
			d := math.Hypot(dx, dy)
			if d < 1e-6 {
				continue
			}
			f := d / k * 0.01
			disp[e.Source] = [2]float64{disp[e.Source][0] - dx*f, disp[e.Source][1] - dy*f}
			disp[e.Target] = [2]float64{disp[e.Target][0] + dx*f, disp[e.Target][1] + dy*f}
		}

		for _, id := range ids {
			d := disp[id]
			mag := math.Hypot(d[0], d[1])
			if mag < 1e-9 {
				continue
			}
			step := math.Min(mag, temp)
			pos[id] = [2]float64{
				pos[id][0] + d[0]/mag*step,
				pos[id][1] + d[1]/mag*step,
			}
		}
		temp *= 0.95
	}

	// Normalise into [0,1].
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pos {
		minX = math.Min(minX, p[0])
		minY = math.Min(minY, p[1])
		maxX = math.Max(maxX, p[0])
		maxY = math.Max(maxY, p[1])
	}
	spanX := maxX - minX
	spanY := maxY - minY
	if spanX < 1e-9 {
		spanX = 1
	}
	if spanY < 1e-9 {
		spanY = 1
	}
	for id, p := range pos {
		pos[id] = [2]float64{(p[0] - minX) / spanX, (p[1] - minY) / spanY}
	}
	return pos
}

func encodePNG(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode graph image: %w", err)
	}
	return buf.Bytes(), nil
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func fillCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				x, y := cx+dx, cy+dy
				if image.Pt(x, y).In(img.Bounds()) {
					img.SetRGBA(x, y, c)
				}
			}
		}
	}
}

// drawLine is Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy
	for {
		if image.Pt(x1, y1).In(img.Bounds()) {
			img.SetRGBA(x1, y1, c)
		}
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

func drawCenteredString(img *image.RGBA, s string, cx, cy int) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(cx-w/2, cy),
	}
	d.DrawString(s)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
