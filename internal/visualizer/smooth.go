package visualizer

import "github.com/charmbracelet/harmonica"

// uiFPS is the rate the UI calls Update at.
const uiFPS = 20

// springs eases a row of values toward their targets with one shared
// harmonica spring.
type springs struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSprings(frequency, damping float64) *springs {
	return &springs{spring: harmonica.NewSpring(harmonica.FPS(uiFPS), frequency, damping)}
}

// follow advances each value one frame toward targets and returns the
// positions. A change in length restarts from zero.
func (s *springs) follow(targets []float64) []float64 {
	if len(s.pos) != len(targets) {
		s.pos = make([]float64, len(targets))
		s.vel = make([]float64, len(targets))
	}
	for i, target := range targets {
		s.pos[i], s.vel[i] = s.spring.Update(s.pos[i], s.vel[i], target)
	}
	return s.pos
}

// envelope rises at attack and falls at release, both fractions of the gap.
type envelope struct {
	attack, release float64
	value           float64
}

func (e *envelope) next(v float64) float64 {
	rate := e.release
	if v > e.value {
		rate = e.attack
	}
	e.value += (v - e.value) * rate
	return e.value
}
