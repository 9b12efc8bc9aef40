package tictactoe

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Coin - decides whether role A moves first.
type Coin interface {
	Flip() bool
}

type randomCoin struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewCoin - returns a coin seeded with seed, so a sequence of flips can be replayed.
func NewCoin(seed uint64) Coin {
	return &randomCoin{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint: gosec // it's ok
	}
}

// NewTimeCoin - returns a coin seeded from the current time.
func NewTimeCoin() Coin {
	return NewCoin(uint64(time.Now().UnixNano()))
}

func (that *randomCoin) Flip() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.rnd.IntN(2) == 0
}

// FixedCoin - always lands the same way.
type FixedCoin bool

func (that FixedCoin) Flip() bool {
	return bool(that)
}
