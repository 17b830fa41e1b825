package overview

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/viterin/vek/vek32"

	"github.com/dshills/wavestorm/internal/engine/selection"
	"github.com/dshills/wavestorm/internal/engine/sequence"
)

// DefaultBlockSize is the number of samples summarized by one Peak.
const DefaultBlockSize = 256

// WithBlockSize sets the number of samples per overview block.
func WithBlockSize(n uint64) Option {
	return func(c *Cache) {
		if n > 0 {
			c.blockSize = n
		}
	}
}

// Peak summarizes one block of samples.
type Peak struct {
	Min float32
	Max float32
	RMS float32
}

// Reader gives access to sample data.
type Reader interface {
	TrackLength(id sequence.TrackID) (uint64, bool)
	ReadSamples(id sequence.TrackID, offset, n uint64) ([]sequence.Sample, error)
}

// Peaks returns a copy of the overview blocks of id computed by the last
// Refresh. Blocks in stale regions may be out of date.
func (c *Cache) Peaks(id selection.TrackID) []Peak {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.peaks[id])
}

// Refresh recomputes the blocks of the tracked window that overlap stale
// regions and marks every track clean. Samples past the end of a track
// count as silence.
func (c *Cache) Refresh(r Reader) error {
	offset, length := c.src.Offset(), c.src.Length()

	c.mu.Lock()
	defer c.mu.Unlock()

	bs := c.blockSize
	blocks := int((length + bs - 1) / bs)
	var buf, sq []float32

	for _, id := range c.tracks {
		regions := c.regions[id]
		peaks := c.peaks[id]
		if len(regions) == 0 && len(peaks) == blocks {
			continue
		}
		full := len(peaks) != blocks
		if full {
			peaks = make([]Peak, blocks)
		}
		size, ok := r.TrackLength(id)
		if !ok {
			return fmt.Errorf("refresh %s: %w", id, sequence.ErrTrackNotFound)
		}

		computed := 0
		for b := range blocks {
			first := offset + uint64(b)*bs
			n := min(bs, offset+length-first)
			if !full && !overlapsAny(regions, NewRegion(first, first+n-1)) {
				continue
			}
			computed++

			avail := uint64(0)
			if first < size {
				avail = min(n, size-first)
			}
			if avail == 0 {
				peaks[b] = Peak{}
				continue
			}
			samples, err := r.ReadSamples(id, first, avail)
			if err != nil {
				return fmt.Errorf("refresh %s: %w", id, err)
			}
			buf = toFloat(buf, samples)
			// Missing samples are zero.
			for range n - avail {
				buf = append(buf, 0)
			}
			sq = slices.Grow(sq[:0], len(buf))[:len(buf)]
			peaks[b] = summarize(buf, sq)
		}

		c.peaks[id] = peaks
		c.regions[id] = nil
		c.logger.Debug("refreshed overview",
			slog.String("track", id.String()),
			slog.Int("blocks", computed))
	}
	return nil
}

func overlapsAny(regions []Region, r Region) bool {
	for _, existing := range regions {
		if existing.Overlaps(r) {
			return true
		}
	}
	return false
}

func toFloat(dst []float32, samples []sequence.Sample) []float32 {
	dst = dst[:0]
	for _, s := range samples {
		dst = append(dst, float32(s))
	}
	return dst
}

// summarize computes the extremes and RMS of x using tmp as scratch space.
func summarize(x, tmp []float32) Peak {
	sq := vek32.Mul_Into(tmp, x, x)
	return Peak{
		Min: vek32.Min(x),
		Max: vek32.Max(x),
		RMS: float32(math.Sqrt(float64(vek32.Mean(sq)))),
	}
}
