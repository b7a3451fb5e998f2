// Package annotator renders the driven trajectory and confirmed landmarks
// onto the mission base map.
package annotator

import (
	"fmt"
	"log/slog"

	"github.com/fogleman/gg"

	"github.com/marsyard/scout/internal/geo"
	"github.com/marsyard/scout/internal/model"
)

// Style collects the drawing knobs. Zero values are replaced by defaults.
type Style struct {
	TrajectoryWidth float64
	MarkerRadius    float64
	FontSize        float64
}

func (s Style) withDefaults() Style {
	if s.TrajectoryWidth <= 0 {
		s.TrajectoryWidth = 2
	}
	if s.MarkerRadius <= 0 {
		s.MarkerRadius = 6
	}
	if s.FontSize <= 0 {
		s.FontSize = 13
	}
	return s
}

// Annotator draws annotated mission maps. Stateless between calls.
type Annotator struct {
	logger *slog.Logger
	style  Style
}

// New creates an Annotator with the given style.
func New(logger *slog.Logger, style Style) *Annotator {
	return &Annotator{logger: logger, style: style.withDefaults()}
}

type pixel struct {
	col, row int
}

// Render draws the trajectory polyline and one marker per landmark onto the
// base raster and writes the result as a PNG. Out-of-bounds trajectory
// points break the polyline, out-of-bounds landmarks are skipped with a
// warning; the skipped count covers both. The base raster is never modified.
func (a *Annotator) Render(meta geo.MapMetadata, trajectory []model.TrajectorySample, landmarks []model.ConfirmedLandmark, outPath string) (skipped int, err error) {
	base, err := gg.LoadImage(meta.ImagePath)
	if err != nil {
		return 0, fmt.Errorf("loading base map: %w", err)
	}

	bounds := base.Bounds()
	if meta.WidthPx == 0 {
		meta.WidthPx = bounds.Dx()
	}
	if meta.HeightPx == 0 {
		meta.HeightPx = bounds.Dy()
	}

	dc := gg.NewContextForImage(base)

	runs, trajSkipped := polylineRuns(trajectory, meta)
	skipped += trajSkipped
	if trajSkipped > 0 {
		a.logger.Warn("Trajectory points outside map bounds", "count", trajSkipped)
	}

	dc.SetRGBA(0.1, 0.4, 0.9, 0.9)
	dc.SetLineWidth(a.style.TrajectoryWidth)
	for _, run := range runs {
		if len(run) < 2 {
			continue
		}
		dc.MoveTo(float64(run[0].col), float64(run[0].row))
		for _, p := range run[1:] {
			dc.LineTo(float64(p.col), float64(p.row))
		}
		dc.Stroke()
	}

	for _, lm := range landmarks {
		col, row, ok := geo.WorldToPixel(lm.Location.X, lm.Location.Y, meta)
		if !ok {
			a.logger.Warn("Landmark outside map bounds, skipping",
				"landmarkId", lm.LandmarkID, "x", lm.Location.X, "y", lm.Location.Y)
			skipped++
			continue
		}
		a.drawMarker(dc, col, row, labelFor(lm))
	}

	if err := dc.SavePNG(outPath); err != nil {
		return skipped, fmt.Errorf("writing annotated map: %w", err)
	}

	a.logger.Info("Annotated map written",
		"path", outPath, "landmarks", len(landmarks), "skipped", skipped)
	return skipped, nil
}

func (a *Annotator) drawMarker(dc *gg.Context, col, row int, label string) {
	x, y := float64(col), float64(row)

	dc.SetRGBA(0.9, 0.15, 0.1, 1)
	dc.DrawCircle(x, y, a.style.MarkerRadius)
	dc.Fill()

	dc.SetRGBA(1, 1, 1, 1)
	dc.SetLineWidth(1.5)
	dc.DrawCircle(x, y, a.style.MarkerRadius)
	dc.Stroke()

	if label == "" {
		return
	}
	tx := x + a.style.MarkerRadius + 4
	ty := y + a.style.FontSize/2

	w, h := dc.MeasureString(label)
	dc.SetRGBA(0, 0, 0, 0.6)
	dc.DrawRectangle(tx-2, ty-h-2, w+4, h+6)
	dc.Fill()

	dc.SetRGBA(1, 1, 1, 1)
	dc.DrawString(label, tx, ty)
}

func labelFor(lm model.ConfirmedLandmark) string {
	if lm.Name != "" {
		return fmt.Sprintf("%s (%s)", lm.Name, lm.LandmarkID)
	}
	return lm.LandmarkID
}

// polylineRuns projects the trajectory into pixel space, splitting it into
// consecutive in-bounds runs. An out-of-bounds sample ends the current run
// rather than being clamped to the edge.
func polylineRuns(trajectory []model.TrajectorySample, meta geo.MapMetadata) (runs [][]pixel, skipped int) {
	var current []pixel
	for _, s := range trajectory {
		col, row, ok := geo.WorldToPixel(s.X, s.Y, meta)
		if !ok {
			skipped++
			if len(current) > 0 {
				runs = append(runs, current)
				current = nil
			}
			continue
		}
		current = append(current, pixel{col, row})
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs, skipped
}
