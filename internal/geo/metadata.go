package geo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalidMetadata is returned when the map metadata file is missing a
// required field. Metadata errors are fatal for a run.
var ErrInvalidMetadata = errors.New("invalid map metadata")

// MapMetadata describes the base raster and its relation to the world frame.
// Read-only once loaded.
type MapMetadata struct {
	// ResolutionMPerPx is the size of one pixel in meters. Must be > 0.
	ResolutionMPerPx float64
	// OriginX, OriginY are the world coordinates of the map's bottom-left
	// corner. OriginYawRad rotates the map frame relative to the world frame.
	OriginX      float64
	OriginY      float64
	OriginYawRad float64
	// WidthPx, HeightPx are the base raster dimensions.
	WidthPx  int
	HeightPx int
	// ImagePath is the resolved path to the base raster.
	ImagePath string
	// RefLongitude/RefLatitude optionally geo-reference the map origin
	// (EPSG:4326). Zero values mean no geodetic reference.
	RefLongitude float64
	RefLatitude  float64
}

// rawMetadata mirrors the on-disk YAML layout (ROS map_server convention):
// resolution, origin [x, y, yaw], image, plus our optional extensions.
type rawMetadata struct {
	Resolution   *float64  `yaml:"resolution"`
	Origin       []float64 `yaml:"origin"`
	Image        string    `yaml:"image"`
	WidthPx      int       `yaml:"width_px"`
	HeightPx     int       `yaml:"height_px"`
	RefLongitude float64   `yaml:"ref_longitude"`
	RefLatitude  float64   `yaml:"ref_latitude"`
}

// LoadMapMetadata reads map metadata from a YAML file. The image path is
// resolved relative to the YAML file when not absolute. Missing resolution
// or origin is fatal.
func LoadMapMetadata(path string) (MapMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MapMetadata{}, fmt.Errorf("reading map metadata: %w", err)
	}

	var raw rawMetadata
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return MapMetadata{}, fmt.Errorf("parsing map metadata: %w", err)
	}

	if raw.Resolution == nil || *raw.Resolution <= 0 {
		return MapMetadata{}, fmt.Errorf("%w: resolution missing or not positive", ErrInvalidMetadata)
	}
	if len(raw.Origin) < 2 {
		return MapMetadata{}, fmt.Errorf("%w: origin requires at least [x, y]", ErrInvalidMetadata)
	}

	meta := MapMetadata{
		ResolutionMPerPx: *raw.Resolution,
		OriginX:          raw.Origin[0],
		OriginY:          raw.Origin[1],
		WidthPx:          raw.WidthPx,
		HeightPx:         raw.HeightPx,
		RefLongitude:     raw.RefLongitude,
		RefLatitude:      raw.RefLatitude,
	}
	if len(raw.Origin) > 2 {
		meta.OriginYawRad = raw.Origin[2]
	}

	if raw.Image != "" {
		if filepath.IsAbs(raw.Image) {
			meta.ImagePath = raw.Image
		} else {
			meta.ImagePath = filepath.Join(filepath.Dir(path), raw.Image)
		}
	}

	return meta, nil
}

// HasGeodeticRef reports whether the map origin carries a 4326 reference.
func (m MapMetadata) HasGeodeticRef() bool {
	return m.RefLongitude != 0 || m.RefLatitude != 0
}
