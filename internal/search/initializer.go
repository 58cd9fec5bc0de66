package search

import (
	"math/rand"

	"schemaanalyst/internal/data"
	"schemaanalyst/internal/util"
)

// Initializer prepares a candidate before a search starts or restarts.
type Initializer interface {
	Initialize(candidate *data.Data)
}

// NoInitialization leaves the candidate as it is.
type NoInitialization struct{}

// Initialize implements Initializer.
func (NoInitialization) Initialize(*data.Data) {}

// RandomInitializer randomizes every cell.
type RandomInitializer struct {
	Randomizer *data.Randomizer
}

// Initialize implements Initializer.
func (r RandomInitializer) Initialize(candidate *data.Data) {
	r.Randomizer.RandomizeData(candidate)
}

// Rewarder is told whether the run following its last initialization
// improved the best candidate.
type Rewarder interface {
	Reward(improved bool)
}

// BanditInitializer picks one of several initializers on every call,
// favouring those whose runs improved the best candidate.
type BanditInitializer struct {
	rand   *rand.Rand
	arms   []Initializer
	bandit *util.Bandit
	last   int
}

// NewBanditInitializer returns an initializer choosing among arms.
func NewBanditInitializer(r *rand.Rand, arms ...Initializer) *BanditInitializer {
	return &BanditInitializer{rand: r, arms: arms, bandit: util.NewBandit(len(arms), 0), last: -1}
}

// Initialize implements Initializer.
func (b *BanditInitializer) Initialize(candidate *data.Data) {
	if len(b.arms) == 0 {
		return
	}
	b.last = b.bandit.Pick(b.rand)
	b.arms[b.last].Initialize(candidate)
}

// Reward implements Rewarder.
func (b *BanditInitializer) Reward(improved bool) {
	if b.last < 0 {
		return
	}
	reward := 0.0
	if improved {
		reward = 1
	}
	b.bandit.Update(b.last, reward)
}

// Snapshot returns the per-arm statistics.
func (b *BanditInitializer) Snapshot() util.BanditSnapshot { return b.bandit.Snapshot() }
