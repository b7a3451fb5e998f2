package geo

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testMeta() MapMetadata {
	return MapMetadata{
		ResolutionMPerPx: 0.05,
		OriginX:          -10.0,
		OriginY:          -10.0,
		OriginYawRad:     0,
		WidthPx:          400,
		HeightPx:         400,
	}
}

func TestWorldToPixel_YawZeroIsTranslateScaleFlip(t *testing.T) {
	meta := testMeta()

	// the origin corner maps to the bottom-left pixel
	col, row, ok := WorldToPixel(-10.0, -10.0, meta)
	if !ok {
		t.Fatal("origin corner should be in bounds")
	}
	if col != 0 {
		t.Errorf("expected col=0, got %d", col)
	}
	if row != meta.HeightPx-1 {
		t.Errorf("expected row=%d, got %d", meta.HeightPx-1, row)
	}

	// one meter right and up = 20 pixels at 0.05 m/px
	col, row, ok = WorldToPixel(-9.0, -9.0, meta)
	if !ok {
		t.Fatal("point should be in bounds")
	}
	if col != 20 {
		t.Errorf("expected col=20, got %d", col)
	}
	if row != meta.HeightPx-1-20 {
		t.Errorf("expected row=%d, got %d", meta.HeightPx-1-20, row)
	}
}

func TestWorldToPixel_OutOfBoundsNotClamped(t *testing.T) {
	meta := testMeta()

	cases := []struct {
		name string
		x, y float64
	}{
		{"left of map", -11.0, 0},
		{"below map", 0, -11.0},
		{"right of map", 15.0, 0},
		{"above map", 0, 15.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, ok := WorldToPixel(tc.x, tc.y, meta)
			if ok {
				t.Errorf("point (%f,%f) should be out of bounds", tc.x, tc.y)
			}
		})
	}
}

func TestPixelToWorld_RoundTripWithinOneResolutionUnit(t *testing.T) {
	metas := []MapMetadata{
		testMeta(),
		{ResolutionMPerPx: 0.1, OriginX: 3.5, OriginY: -2.25, OriginYawRad: 0.35, WidthPx: 200, HeightPx: 300},
		{ResolutionMPerPx: 0.5, OriginX: 0, OriginY: 0, OriginYawRad: -math.Pi / 6, WidthPx: 100, HeightPx: 100},
	}

	points := [][2]float64{
		{-9.5, -9.5},
		{0, 0},
		{4.05, 3.11},
		{7.77, -1.2},
	}

	for _, meta := range metas {
		for _, p := range points {
			col, row, ok := WorldToPixel(p[0], p[1], meta)
			if !ok {
				continue
			}
			wx, wy := PixelToWorld(col, row, meta)
			if math.Abs(wx-p[0]) > meta.ResolutionMPerPx {
				t.Errorf("yaw=%f point (%f,%f): x drift %f exceeds resolution %f",
					meta.OriginYawRad, p[0], p[1], math.Abs(wx-p[0]), meta.ResolutionMPerPx)
			}
			if math.Abs(wy-p[1]) > meta.ResolutionMPerPx {
				t.Errorf("yaw=%f point (%f,%f): y drift %f exceeds resolution %f",
					meta.OriginYawRad, p[0], p[1], math.Abs(wy-p[1]), meta.ResolutionMPerPx)
			}
		}
	}
}

func TestWorldToPixel_RotatedMap(t *testing.T) {
	// 90 degree yaw: the world X axis lies along the map Y axis
	meta := MapMetadata{
		ResolutionMPerPx: 1.0,
		OriginX:          0,
		OriginY:          0,
		OriginYawRad:     math.Pi / 2,
		WidthPx:          10,
		HeightPx:         10,
	}

	// world (0, 2) -> map-local (2, 0) after the inverse rotation
	col, row, ok := WorldToPixel(0, 2, meta)
	if !ok {
		t.Fatal("expected in bounds")
	}
	if col != 2 {
		t.Errorf("expected col=2, got %d", col)
	}
	if row != meta.HeightPx-1 {
		t.Errorf("expected row=%d, got %d", meta.HeightPx-1, row)
	}
}

func TestLoadMapMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yaml")
	content := "image: base.pgm\nresolution: 0.05\norigin: [-10.0, -10.0, 0.0]\nwidth_px: 400\nheight_px: 400\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	meta, err := LoadMapMetadata(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.ResolutionMPerPx != 0.05 {
		t.Errorf("expected resolution 0.05, got %f", meta.ResolutionMPerPx)
	}
	if meta.OriginX != -10.0 || meta.OriginY != -10.0 {
		t.Errorf("unexpected origin: %f, %f", meta.OriginX, meta.OriginY)
	}
	if meta.ImagePath != filepath.Join(dir, "base.pgm") {
		t.Errorf("image path not resolved relative to yaml: %s", meta.ImagePath)
	}
}

func TestLoadMapMetadata_MissingResolutionIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yaml")
	if err := os.WriteFile(path, []byte("origin: [0.0, 0.0]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadMapMetadata(path)
	if err == nil {
		t.Fatal("expected error for missing resolution")
	}
}

func TestLoadMapMetadata_TwoElementOrigin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yaml")
	if err := os.WriteFile(path, []byte("resolution: 0.1\norigin: [1.0, 2.0]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	meta, err := LoadMapMetadata(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.OriginYawRad != 0 {
		t.Errorf("expected yaw default 0, got %f", meta.OriginYawRad)
	}
}
