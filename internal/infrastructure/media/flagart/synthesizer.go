// Package flagart renders deterministic PNG images without any provider
// call: national flags from a palette catalog, simple bar charts, and
// patterned placeholders for everything else.
package flagart

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"
)

const (
	canvasWidth  = 600
	canvasHeight = 400
)

type Synthesizer struct {
	catalog Catalog
}

func NewSynthesizer(catalog Catalog) *Synthesizer {
	if catalog.Flags == nil {
		catalog = DefaultCatalog()
	}
	return &Synthesizer{catalog: catalog}
}

// Synthesize always produces an image for a non-empty topic. Unknown
// subjects degrade to a patterned placeholder rather than failing, so the
// acquisition chain has a guaranteed terminal strategy.
func (s *Synthesizer) Synthesize(ctx context.Context, topic string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("empty image topic")
	}

	lowered := strings.ToLower(topic)
	canvas := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))

	switch {
	case strings.Contains(lowered, "flag"):
		if spec, ok := s.catalog.lookup(flagSubject(lowered)); ok {
			if err := drawFlag(canvas, spec); err != nil {
				return nil, err
			}
			break
		}
		drawPlaceholder(canvas, topic)
	case strings.Contains(lowered, "chart"), strings.Contains(lowered, "graph"), strings.Contains(lowered, "diagram"):
		drawBarChart(canvas, topic)
	default:
		drawPlaceholder(canvas, topic)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// flagSubject pulls the country out of phrasings like "flag of japan",
// "the japanese flag", "japan flag".
func flagSubject(lowered string) string {
	if _, after, ok := strings.Cut(lowered, "flag of "); ok {
		return trimArticles(after)
	}
	before, _, _ := strings.Cut(lowered, "flag")
	return trimArticles(before)
}

func trimArticles(s string) string {
	s = strings.TrimSpace(s)
	for _, article := range []string{"the ", "a ", "an "} {
		s = strings.TrimPrefix(s, article)
	}
	return strings.TrimSpace(s)
}

func drawFlag(canvas *image.RGBA, spec FlagSpec) error {
	if spec.Field != "" {
		field, err := parseHexColor(spec.Field)
		if err != nil {
			return err
		}
		disc, err := parseHexColor(spec.Disc)
		if err != nil {
			return err
		}
		fill(canvas, canvas.Bounds(), field)
		drawDisc(canvas, disc)
		return nil
	}

	if len(spec.Stripes) == 0 {
		return fmt.Errorf("flag spec has neither stripes nor field")
	}
	colors := make([]color.RGBA, len(spec.Stripes))
	for i, raw := range spec.Stripes {
		parsed, err := parseHexColor(raw)
		if err != nil {
			return err
		}
		colors[i] = parsed
	}

	bounds := canvas.Bounds()
	if spec.Orientation == "vertical" {
		stripeWidth := bounds.Dx() / len(colors)
		for i, c := range colors {
			r := image.Rect(bounds.Min.X+i*stripeWidth, bounds.Min.Y, bounds.Min.X+(i+1)*stripeWidth, bounds.Max.Y)
			if i == len(colors)-1 {
				r.Max.X = bounds.Max.X
			}
			fill(canvas, r, c)
		}
		return nil
	}

	stripeHeight := bounds.Dy() / len(colors)
	for i, c := range colors {
		r := image.Rect(bounds.Min.X, bounds.Min.Y+i*stripeHeight, bounds.Max.X, bounds.Min.Y+(i+1)*stripeHeight)
		if i == len(colors)-1 {
			r.Max.Y = bounds.Max.Y
		}
		fill(canvas, r, c)
	}
	return nil
}

func drawDisc(canvas *image.RGBA, c color.RGBA) {
	bounds := canvas.Bounds()
	cx := bounds.Dx() / 2
	cy := bounds.Dy() / 2
	radius := bounds.Dy() * 3 / 10
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dx := x - cx
			dy := y - cy
			if dx*dx+dy*dy <= radius*radius {
				canvas.SetRGBA(x, y, c)
			}
		}
	}
}

// drawBarChart renders bars with heights seeded from the topic so the same
// request always produces the same image.
func drawBarChart(canvas *image.RGBA, topic string) {
	bounds := canvas.Bounds()
	fill(canvas, bounds, color.RGBA{R: 248, G: 248, B: 248, A: 255})

	const bars = 6
	seed := topicSeed(topic)
	barWidth := bounds.Dx() / (bars*2 + 1)
	baseline := bounds.Max.Y - 30
	palette := []color.RGBA{
		{R: 66, G: 133, B: 244, A: 255},
		{R: 52, G: 168, B: 83, A: 255},
		{R: 251, G: 188, B: 5, A: 255},
		{R: 234, G: 67, B: 53, A: 255},
	}

	for i := 0; i < bars; i++ {
		height := 40 + int((seed>>(uint(i)*5))%uint64(bounds.Dy()-110))
		x0 := bounds.Min.X + barWidth*(i*2+1)
		fill(canvas, image.Rect(x0, baseline-height, x0+barWidth, baseline), palette[i%len(palette)])
	}
	fill(canvas, image.Rect(bounds.Min.X+20, baseline, bounds.Max.X-20, baseline+3), color.RGBA{R: 60, G: 60, B: 60, A: 255})
}

// drawPlaceholder renders a two-tone diagonal pattern seeded from the topic.
func drawPlaceholder(canvas *image.RGBA, topic string) {
	seed := topicSeed(topic)
	base := color.RGBA{
		R: uint8(80 + seed%120),
		G: uint8(80 + (seed>>8)%120),
		B: uint8(80 + (seed>>16)%120),
		A: 255,
	}
	accent := color.RGBA{
		R: base.R / 2,
		G: base.G / 2,
		B: base.B / 2,
		A: 255,
	}

	bounds := canvas.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if (x+y)/40%2 == 0 {
				canvas.SetRGBA(x, y, base)
			} else {
				canvas.SetRGBA(x, y, accent)
			}
		}
	}
}

func fill(canvas *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(canvas.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			canvas.SetRGBA(x, y, c)
		}
	}
}

func topicSeed(topic string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(topic))))
	return h.Sum64()
}
