// Soil preview tool - renders a top-down view of a chunk to a PNG file for
// inspection. Reads an archived snapshot, or generates fresh soil from the
// config and seed when no archive is given.
//
// Usage: go run ./cmd/soilpreview -archive snapshots/snapshot_500.json.zst -out chunk.png
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"sort"

	"github.com/pthm-cable/bonsai/chunk"
	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	archivePath := flag.String("archive", "", "Archived snapshot to render (empty = generate soil)")
	seed := flag.Int64("seed", 1, "Soil noise seed when generating")
	outPath := flag.String("out", "chunk.png", "Output PNG path")
	size := flag.Int("size", 512, "Image edge in pixels")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	snap, err := loadSnapshot(cfg, *archivePath, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load snapshot: %v\n", err)
		os.Exit(1)
	}

	img := render(snap, cfg.Chunk.Size, *size)

	f, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *outPath, err)
		os.Exit(1)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode PNG: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Rendered %d soil blocks and %d plants to %s\n", len(snap.Soil), len(snap.Plants), *outPath)
}

func loadSnapshot(cfg *config.Config, path string, seed int64) (*chunk.Snapshot, error) {
	snap := &chunk.Snapshot{}
	if path != "" {
		arc, err := telemetry.LoadSnapshot(path, snap)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Archive tick %d, seed %d\n", arc.Tick, arc.Seed)
		return snap, nil
	}

	for _, b := range chunk.GenerateSoil(cfg.Soil, cfg.Chunk.Size, seed) {
		snap.Soil = append(snap.Soil, chunk.BoxSnapshot{
			Position: [3]float64{b.Center.X, b.Center.Y, b.Center.Z},
			Size:     [3]float64{2 * b.Half.X, 2 * b.Half.Y, 2 * b.Half.Z},
		})
	}
	return snap, nil
}

// render draws soil shaded by top height, then plant cells lowest first.
func render(snap *chunk.Snapshot, chunkSize float64, px int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, px, px))
	scale := float64(px) / chunkSize
	toPixel := func(x, y float64) (int, int) {
		return int((x + chunkSize/2) * scale), int((chunkSize/2 - y) * scale)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range snap.Soil {
		top := b.Position[2] + b.Size[2]/2
		lo, hi = math.Min(lo, top), math.Max(hi, top)
	}
	for _, b := range snap.Soil {
		top := b.Position[2] + b.Size[2]/2
		shade := 0.5
		if hi > lo {
			shade = 0.25 + 0.5*(top-lo)/(hi-lo)
		}
		c := color.RGBA{R: uint8(110 * shade * 2), G: uint8(80 * shade * 2), B: uint8(50 * shade * 2), A: 255}
		x0, y0 := toPixel(b.Position[0]-b.Size[0]/2, b.Position[1]+b.Size[1]/2)
		x1, y1 := toPixel(b.Position[0]+b.Size[0]/2, b.Position[1]-b.Size[1]/2)
		fill(img, x0, y0, x1, y1, c)
	}

	var cells []chunk.CellSnapshot
	for _, p := range snap.Plants {
		cells = append(cells, p.Cells...)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Position[2] < cells[j].Position[2] })
	for _, cell := range cells {
		half := math.Max(cell.Size[0], cell.Size[1]) / 2
		x0, y0 := toPixel(cell.Position[0]-half, cell.Position[1]+half)
		x1, y1 := toPixel(cell.Position[0]+half, cell.Position[1]-half)
		c := color.RGBA{
			R: uint8(255 * clamp01(cell.Color.R)),
			G: uint8(255 * clamp01(cell.Color.G)),
			B: uint8(255 * clamp01(cell.Color.B)),
			A: 255,
		}
		fill(img, x0, y0, x1, y1, c)
	}
	return img
}

func fill(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	r := image.Rect(x0, y0, max(x1, x0+1), max(y1, y0+1)).Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
