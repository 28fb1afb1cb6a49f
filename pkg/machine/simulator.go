package machine

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Simulator supplies the random draws behind the simulated checks.
type Simulator interface {
	// Latency returns a probe latency in milliseconds within [min, max].
	Latency(min, max float64) float64
	// PacketLost reports whether a probe packet was lost.
	PacketLost(chance float64) bool
	// Drift returns a clock drift in seconds within [min, max].
	Drift(min, max float64) float64
	// Pause returns how long a blocking check body takes.
	Pause(min, max time.Duration) time.Duration
	// Installed draws an installed-software snapshot from pool.
	Installed(pool map[string][]string) map[string]string
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// randSimulator draws from a math/rand source and is safe for concurrent use.
type randSimulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSimulator returns a Simulator seeded with seed. A zero seed picks a
// time-based seed.
func NewRandSimulator(seed int64) Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &randSimulator{rng: rand.New(rand.NewSource(seed))}
}

func (s *randSimulator) uniform(min, max float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.rng.Float64()*(max-min)
}

func (s *randSimulator) Latency(min, max float64) float64 { return s.uniform(min, max) }

func (s *randSimulator) Drift(min, max float64) float64 { return s.uniform(min, max) }

func (s *randSimulator) PacketLost(chance float64) bool {
	return s.uniform(0, 1) < chance
}

func (s *randSimulator) Pause(min, max time.Duration) time.Duration {
	return time.Duration(s.uniform(float64(min), float64(max)))
}

func (s *randSimulator) Installed(pool map[string][]string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	installed := make(map[string]string)
	for _, name := range poolNames(pool) {
		versions := pool[name]
		if s.rng.Float64() < installChance && len(versions) > 0 {
			installed[name] = versions[s.rng.Intn(len(versions))]
		}
	}
	return installed
}
