package util

import (
	"math"
	"math/rand"
	"sync"
)

// Bandit is a UCB1 multi-armed bandit. Rewards are expected in [0, 1].
type Bandit struct {
	mu          sync.Mutex
	pulls       []int
	rewards     []float64
	total       int
	exploration float64
}

// NewBandit returns a bandit over arms. A non-positive exploration uses the
// default of 1.5.
func NewBandit(arms int, exploration float64) *Bandit {
	if exploration <= 0 {
		exploration = 1.5
	}
	return &Bandit{
		pulls:       make([]int, arms),
		rewards:     make([]float64, arms),
		exploration: exploration,
	}
}

// Pick returns the arm with the highest upper confidence bound. Arms that
// were never pulled go first; ties go to a random arm.
func (b *Bandit) Pick(r *rand.Rand) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pulls) == 0 {
		return 0
	}
	var best []int
	bestScore := math.Inf(-1)
	for i, n := range b.pulls {
		if n == 0 {
			return i
		}
		score := b.rewards[i]/float64(n) + b.exploration*math.Sqrt(math.Log(float64(b.total))/float64(n))
		switch {
		case score > bestScore:
			bestScore = score
			best = append(best[:0], i)
		case score == bestScore:
			best = append(best, i)
		}
	}
	return best[r.Intn(len(best))]
}

// Update records reward for arm. Unknown arms are ignored.
func (b *Bandit) Update(arm int, reward float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if arm < 0 || arm >= len(b.pulls) {
		return
	}
	b.pulls[arm]++
	b.rewards[arm] += reward
	b.total++
}

// BanditSnapshot is a point-in-time copy of the per-arm statistics.
type BanditSnapshot struct {
	Pulls   []int     `json:"pulls"`
	Rewards []float64 `json:"rewards"`
	Total   int       `json:"total"`
}

// Mean returns the average reward of arm, or 0 if it was never pulled.
func (s BanditSnapshot) Mean(arm int) float64 {
	if arm < 0 || arm >= len(s.Pulls) || s.Pulls[arm] == 0 {
		return 0
	}
	return s.Rewards[arm] / float64(s.Pulls[arm])
}

// Snapshot copies the current statistics.
func (b *Bandit) Snapshot() BanditSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BanditSnapshot{
		Pulls:   append([]int(nil), b.pulls...),
		Rewards: append([]float64(nil), b.rewards...),
		Total:   b.total,
	}
}
