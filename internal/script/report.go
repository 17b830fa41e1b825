package script

import (
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dshills/wavestorm/internal/engine/overview"
)

// Report describes the state after a step.
type Report struct {
	// Step is the 1-based step number, zero for the setup.
	Step        int
	Op          Op
	Description string

	Tracks        []string
	Offset        uint64
	Length        uint64
	SelectionOnly bool

	SequenceLength uint64
	UndoCount      int
	RedoCount      int

	// Dirty lists the overview regions the step invalidated.
	Dirty []TrackRegions

	// Peaks holds the refreshed overview of every tracked track.
	Peaks []TrackPeaks
}

// TrackRegions pairs a track with overview regions.
type TrackRegions struct {
	Track   string
	Regions []overview.Region
}

// TrackPeaks pairs a track with its overview blocks.
type TrackPeaks struct {
	Track string
	Peaks []overview.Peak
}

// Printer writes reports as text. Numbers are grouped for the configured
// language.
type Printer struct {
	p     *message.Printer
	peaks bool
}

// NewPrinter creates a printer for tag. With peaks set the overview
// blocks are listed too.
func NewPrinter(tag language.Tag, peaks bool) *Printer {
	return &Printer{p: message.NewPrinter(tag), peaks: peaks}
}

// Fprint writes rep to w.
func (pr *Printer) Fprint(w io.Writer, rep Report) error {
	p := pr.p
	var b strings.Builder

	if rep.Step == 0 {
		b.WriteString("setup")
	} else {
		p.Fprintf(&b, "step %d: %s", rep.Step, rep.Op)
		if rep.Description != "" {
			p.Fprintf(&b, " (%s)", rep.Description)
		}
	}
	b.WriteByte('\n')

	mode := "selection"
	if !rep.SelectionOnly {
		mode = "whole"
	}
	p.Fprintf(&b, "  %s [%d, +%d) on %s\n", mode, rep.Offset, rep.Length, strings.Join(rep.Tracks, ", "))
	p.Fprintf(&b, "  sequence %d samples, undo %d, redo %d\n", rep.SequenceLength, rep.UndoCount, rep.RedoCount)

	for _, d := range rep.Dirty {
		parts := make([]string, len(d.Regions))
		for i, r := range d.Regions {
			parts[i] = pr.region(r)
		}
		p.Fprintf(&b, "  dirty %s: %s\n", d.Track, strings.Join(parts, " "))
	}

	if pr.peaks {
		for _, tp := range rep.Peaks {
			p.Fprintf(&b, "  peaks %s:", tp.Track)
			for _, pk := range tp.Peaks {
				p.Fprintf(&b, " [%.0f %.0f ~%.0f]", pk.Min, pk.Max, pk.RMS)
			}
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (pr *Printer) region(r overview.Region) string {
	if r.Last == overview.ToEnd {
		return pr.p.Sprintf("[%d, end]", r.First)
	}
	return pr.p.Sprintf("[%d, %d]", r.First, r.Last)
}
