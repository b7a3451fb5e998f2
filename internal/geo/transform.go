package geo

import "math"

// WORLD <-> PIXEL
// The map convention measures pixels from the bottom-left corner while raster
// storage is top-down, so the row index is flipped on the way in and out.
// Rotated maps (origin yaw != 0) are handled by applying the inverse
// (transpose) rotation to the origin-relative vector.

// WorldToPixel converts a world point to raster indices (col, rowTop).
// Out-of-bounds points return inBounds=false and must be skipped by callers,
// never clamped onto the map edge.
func WorldToPixel(wx, wy float64, meta MapMetadata) (col, row int, inBounds bool) {
	dx := wx - meta.OriginX
	dy := wy - meta.OriginY

	cosy := math.Cos(meta.OriginYawRad)
	siny := math.Sin(meta.OriginYawRad)

	// map frame = R^T * (world - origin)
	xMap := cosy*dx + siny*dy
	yMap := -siny*dx + cosy*dy

	col = int(math.Floor(xMap / meta.ResolutionMPerPx))
	rowFromBottom := int(math.Floor(yMap / meta.ResolutionMPerPx))
	row = meta.HeightPx - 1 - rowFromBottom

	inBounds = col >= 0 && col < meta.WidthPx && row >= 0 && row < meta.HeightPx
	return col, row, inBounds
}

// PixelToWorld converts raster indices back to world coordinates, sampling
// the pixel center (+0.5). Round-trip accuracy is bounded by one resolution
// unit per axis, not exact.
func PixelToWorld(col, row int, meta MapMetadata) (wx, wy float64) {
	rowFromBottom := meta.HeightPx - 1 - row

	xMap := (float64(col) + 0.5) * meta.ResolutionMPerPx
	yMap := (float64(rowFromBottom) + 0.5) * meta.ResolutionMPerPx

	cosy := math.Cos(meta.OriginYawRad)
	siny := math.Sin(meta.OriginYawRad)

	// world = origin + R * [xMap, yMap]
	wx = meta.OriginX + cosy*xMap - siny*yMap
	wy = meta.OriginY + siny*xMap + cosy*yMap
	return wx, wy
}
