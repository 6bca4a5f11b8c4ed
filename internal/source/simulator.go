// Package source provides reading sources for the collection scheduler.
package source

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/radiation"
)

// Simulation parameters.
const (
	baseLevel      = 0.1
	levelStep      = 0.3
	variation      = 0.1
	minLevel       = 0.01
	anomalyChance  = 0.1
	anomalyMinGain = 1.5
	anomalyMaxGain = 4.0
)

// Simulator produces plausible readings for a fixed set of sensors. The
// i-th sensor hovers around 0.1+0.3·i µSv/h with occasional spikes.
type Simulator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	index   map[string]int
	failing map[string]error
}

var _ radiation.ReadingSource = (*Simulator)(nil)

// NewSimulator creates a simulator for sensorIDs in order. A zero seed
// draws a random one.
func NewSimulator(sensorIDs []string, seed uint64) *Simulator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	index := make(map[string]int, len(sensorIDs))
	for i, id := range sensorIDs {
		if _, dup := index[id]; !dup {
			index[id] = i
		}
	}
	return &Simulator{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		index:   index,
		failing: make(map[string]error),
	}
}

// Read returns the next simulated value for sensorID.
func (s *Simulator) Read(ctx context.Context, sensorID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failing[sensorID]; ok {
		return 0, err
	}
	i, ok := s.index[sensorID]
	if !ok {
		return 0, errors.Newf("unknown sensor %q", sensorID).
			Component("source").
			Category(errors.CategorySensorRead).
			Context("sensor_id", sensorID).
			Build()
	}

	value := max(minLevel, baseLevel+levelStep*float64(i)+s.uniform(-variation, variation))
	if s.rng.Float64() < anomalyChance {
		value *= s.uniform(anomalyMinGain, anomalyMaxGain)
	}
	return value, nil
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

// Sensors returns the simulated sensor IDs in index order.
func (s *Simulator) Sensors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int { return s.index[a] - s.index[b] })
	return ids
}

// SetFailing makes reads of sensorID fail with err until cleared with a nil err.
func (s *Simulator) SetFailing(sensorID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failing, sensorID)
		return
	}
	s.failing[sensorID] = errors.New(err).
		Component("source").
		Category(errors.CategorySensorRead).
		Context("sensor_id", sensorID).
		Build()
}
