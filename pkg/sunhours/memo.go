package sunhours

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/solarsim/solarsim/pkg/geo"
	"github.com/solarsim/solarsim/pkg/shade"
)

// summaryMemo caches shaded range summaries keyed by an input fingerprint.
// A season recompute walks ~26k samples, so caching matters when the UI
// recalculates on every obstacle edit. Entries for stale obstacle sets age
// out on their own.
var summaryMemo = gocache.New(30*time.Minute, 10*time.Minute)

// fingerprint hashes (coords, date range, obstacle set) into a memo key.
func fingerprint(coords geo.Coordinates, start, end time.Time, obstacles []shade.Obstacle) string {
	h := fnv.New64a()
	var buf [8]byte

	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	writeInt := func(i int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		h.Write(buf[:])
	}

	writeFloat(coords.Latitude)
	writeFloat(coords.Longitude)
	writeInt(start.Unix())
	writeInt(end.Unix())
	for _, o := range obstacles {
		writeInt(int64(o.Type))
		writeFloat(o.Direction)
		writeFloat(o.Distance)
		writeFloat(o.Height)
		writeFloat(o.Width)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
