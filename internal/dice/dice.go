package dice

import (
	"math/rand/v2"
	"sync"
)

// D20 is the die every game mode rolls
const D20 = 20

//go:generate mockgen -package=mocks -destination=mocks/mock_roller.go github.com/KirkDiggler/d20duel/internal/dice Roller

// Roller provides dice rolling functionality
type Roller interface {
	// Roll returns a value in [1, sides]
	Roll(sides int) int
}

// Config for dice roller
type Config struct {
	// Optional seed for testing
	Seed uint64
}

// RandomRoller is safe for concurrent use
type RandomRoller struct {
	mu     sync.Mutex
	random *rand.Rand
}

// New creates a new dice roller. Without a seed the runtime's shared source
// is used.
func New(cfg *Config) *RandomRoller {
	r := &RandomRoller{}
	if cfg != nil && cfg.Seed != 0 {
		r.random = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	}

	return r
}

// Roll generates a random dice roll with the specified number of sides
func (r *RandomRoller) Roll(sides int) int {
	if sides < 1 {
		sides = D20
	}
	if r.random == nil {
		return rand.IntN(sides) + 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.random.IntN(sides) + 1
}
