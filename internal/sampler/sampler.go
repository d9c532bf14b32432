package sampler

import (
	"fmt"
	"math/rand/v2"

	"github.com/desertthunder/tophits/internal/models"
)

// Policy holds the threshold relaxation constants.
type Policy struct {
	Target int // maximum number of tracks returned
	Start  int // first popularity threshold tried
	Floor  int // lowest threshold tried
	Step   int // amount the threshold drops per round
}

// DefaultPolicy returns up to 5 tracks, relaxing the bar from 70 to 50 in steps of 5.
var DefaultPolicy = Policy{Target: 5, Start: 70, Floor: 50, Step: 5}

// Validate reports whether the policy can terminate and return tracks.
func (p Policy) Validate() error {
	switch {
	case p.Target <= 0:
		return fmt.Errorf("target must be positive, got %d", p.Target)
	case p.Step <= 0:
		return fmt.Errorf("step must be positive, got %d", p.Step)
	case p.Floor > p.Start:
		return fmt.Errorf("floor %d is above start %d", p.Floor, p.Start)
	}
	return nil
}

// Rand is the randomness the sampler needs. [*rand.Rand] satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalRand uses the process-wide math/rand/v2 source, which is safe for concurrent use.
type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Result is the outcome of one sampling run.
type Result struct {
	Tracks []models.Track `json:"tracks"`

	// Threshold is the popularity bar the returned tracks were admitted at. Zero when Fallback is set.
	Threshold int `json:"threshold"`

	// Fallback is set when no candidate reached the floor and the unfiltered page was sampled instead.
	Fallback bool `json:"fallback"`
}

// Sampler selects popular tracks from a candidate page.
type Sampler struct {
	policy Policy
	rng    Rand
}

// Option configures a [Sampler].
type Option func(*Sampler)

// WithPolicy overrides [DefaultPolicy]. Invalid policies are ignored.
func WithPolicy(p Policy) Option {
	return func(s *Sampler) {
		if p.Validate() == nil {
			s.policy = p
		}
	}
}

// WithRand sets the random source used for shuffling.
func WithRand(r Rand) Option {
	return func(s *Sampler) {
		if r != nil {
			s.rng = r
		}
	}
}

// New creates a Sampler using [DefaultPolicy] and the global random source unless overridden.
func New(opts ...Option) *Sampler {
	s := &Sampler{policy: DefaultPolicy, rng: globalRand{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the relaxation constants in use.
func (s *Sampler) Policy() Policy {
	return s.policy
}

// Sample selects up to Target popular tracks from candidates in random order.
//
// candidates is never modified. An empty page yields an empty result.
func (s *Sampler) Sample(candidates []models.Track) Result {
	if len(candidates) == 0 {
		return Result{Tracks: []models.Track{}}
	}

	selected, threshold := s.relax(candidates)

	fallback := len(selected) == 0
	if fallback {
		selected = make([]models.Track, len(candidates))
		copy(selected, candidates)
		threshold = 0
	}

	s.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	if len(selected) > s.policy.Target {
		selected = selected[:s.policy.Target]
	}

	return Result{Tracks: selected, Threshold: threshold, Fallback: fallback}
}

// relax lowers the threshold until Target tracks qualify or the floor is passed.
// It returns the last filtered set and the threshold it was filtered at.
func (s *Sampler) relax(candidates []models.Track) ([]models.Track, int) {
	var selected []models.Track
	admitted := s.policy.Start

	for threshold := s.policy.Start; threshold >= s.policy.Floor && len(selected) < s.policy.Target; threshold -= s.policy.Step {
		selected = AtLeast(candidates, threshold)
		admitted = threshold
	}
	return selected, admitted
}

// AtLeast returns the candidates whose popularity is at least threshold, preserving order.
func AtLeast(candidates []models.Track, threshold int) []models.Track {
	out := make([]models.Track, 0, len(candidates))
	for _, t := range candidates {
		if t.Popularity >= threshold {
			out = append(out, t)
		}
	}
	return out
}
