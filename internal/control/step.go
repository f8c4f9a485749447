package control

import (
	"math"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// Step holds zero until At, then Cmd.
type Step struct {
	At  float64
	Cmd dynamo.Command
}

func NewStep(at float64, cmd dynamo.Command) *Step {
	return &Step{At: at, Cmd: cmd.Clamp()}
}

func (s *Step) Next(t float64) dynamo.Command {
	if t < s.At {
		return dynamo.Command{}
	}
	return s.Cmd.Clamp()
}

// Segment plays Source for Duration seconds. Source sees time relative to
// the start of the segment.
type Segment struct {
	Name     string
	Duration float64
	Source   dynamo.CommandSource
}

// Sequence plays segments back to back. After the last segment it holds
// idle, or starts over when Loop is set.
type Sequence struct {
	Segments []Segment
	Loop     bool
}

func NewSequence(segs ...Segment) *Sequence {
	return &Sequence{Segments: segs}
}

// Total is the summed duration of all segments.
func (s *Sequence) Total() float64 {
	total := 0.0
	for _, seg := range s.Segments {
		total += seg.Duration
	}
	return total
}

// Active returns the index of the segment playing at t, or -1 when none is.
func (s *Sequence) Active(t float64) (int, float64) {
	total := s.Total()
	if total <= 0 || t < 0 {
		return -1, 0
	}
	if s.Loop {
		t = math.Mod(t, total)
	}

	start := 0.0
	for i, seg := range s.Segments {
		if t < start+seg.Duration {
			return i, t - start
		}
		start += seg.Duration
	}
	return -1, 0
}

func (s *Sequence) Next(t float64) dynamo.Command {
	i, local := s.Active(t)
	if i < 0 {
		return dynamo.Command{}
	}
	return s.Segments[i].Source.Next(local).Clamp()
}
