package geo

import (
	"fmt"
	"math"
	"strings"
)

// Web-Mercator latitude clamp. Tile math is undefined beyond this.
const maxMercatorLat = 85.05112878

// TileXY converts coordinates to Web-Mercator tile indices at the given zoom.
func TileXY(lat, lng float64, zoom int) (x, y int) {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	n := float64(int(1) << uint(zoom))

	latRad := lat * math.Pi / 180.0
	fx := (lng + 180.0) / 360.0 * n
	fy := (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n

	x = int(math.Floor(fx))
	y = int(math.Floor(fy))

	// Clamp to the valid tile range; lng=180 would otherwise round out.
	max := int(n) - 1
	if x < 0 {
		x = 0
	} else if x > max {
		x = max
	}
	if y < 0 {
		y = 0
	} else if y > max {
		y = max
	}
	return x, y
}

// QuadKey interleaves the bits of tile x/y into a Bing-style quadkey string
// of length zoom, each digit in 0-3.
func QuadKey(x, y, zoom int) string {
	var sb strings.Builder
	for i := zoom; i > 0; i-- {
		digit := byte('0')
		mask := 1 << uint(i-1)
		if x&mask != 0 {
			digit++
		}
		if y&mask != 0 {
			digit += 2
		}
		sb.WriteByte(digit)
	}
	return sb.String()
}

// CoordsToQuadKey maps coordinates to the quadkey of the containing tile.
func CoordsToQuadKey(lat, lng float64, zoom int) string {
	x, y := TileXY(lat, lng, zoom)
	return QuadKey(x, y, zoom)
}

// ParseQuadKey decodes a quadkey back into tile x/y indices and zoom level.
func ParseQuadKey(key string) (x, y, zoom int, err error) {
	zoom = len(key)
	if zoom == 0 {
		return 0, 0, 0, fmt.Errorf("empty quadkey")
	}
	for i := zoom; i > 0; i-- {
		mask := 1 << uint(i-1)
		switch key[zoom-i] {
		case '0':
		case '1':
			x |= mask
		case '2':
			y |= mask
		case '3':
			x |= mask
			y |= mask
		default:
			return 0, 0, 0, fmt.Errorf("invalid quadkey digit %q in %q", key[zoom-i], key)
		}
	}
	return x, y, zoom, nil
}

// ValidQuadKey reports whether the key is non-empty and contains only the
// digits 0-3.
func ValidQuadKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '3' {
			return false
		}
	}
	return true
}

// TileBounds returns the geographic bounds of the tile at x/y/zoom.
func TileBounds(x, y, zoom int) Bounds {
	n := float64(int(1) << uint(zoom))
	west := float64(x)/n*360.0 - 180.0
	east := float64(x+1)/n*360.0 - 180.0
	north := mercatorLat(float64(y) / n)
	south := mercatorLat(float64(y+1) / n)
	return Bounds{South: south, North: north, West: west, East: east}
}

// QuadKeyBounds is the exact inverse of CoordsToQuadKey: it returns the
// bounds of the tile the quadkey names.
func QuadKeyBounds(key string) (Bounds, error) {
	x, y, zoom, err := ParseQuadKey(key)
	if err != nil {
		return Bounds{}, err
	}
	return TileBounds(x, y, zoom), nil
}

// mercatorLat converts a normalized Web-Mercator y fraction [0,1] to latitude.
func mercatorLat(yFrac float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1.0-2.0*yFrac))) * 180.0 / math.Pi
}
