package search

import (
	"math/rand"
	"sort"

	"schemaanalyst/internal/data"

	"github.com/pkg/errors"
)

// ErrUnknownSearch is returned for an unregistered search name.
var ErrUnknownSearch = errors.New("unknown search")

// Options configures a search built by New.
type Options struct {
	MaxEvaluations int
	Rand           *rand.Rand
	Profile        data.Profile
}

type builder func(rz *data.Randomizer) searchWithBase

type searchWithBase interface {
	Search
	BestTracker
	EvaluationsCounter() *Counter
}

var builders = map[string]builder{
	// Start from the seeded defaults and restart randomly.
	"avs": func(rz *data.Randomizer) searchWithBase {
		return NewAlternatingValueSearch(NoInitialization{}, RandomInitializer{Randomizer: rz})
	},
	"avs-random-start": func(rz *data.Randomizer) searchWithBase {
		return NewAlternatingValueSearch(RandomInitializer{Randomizer: rz}, RandomInitializer{Randomizer: rz})
	},
	// Restart from either value profile, preferring the one that pays off.
	"avs-adaptive": func(rz *data.Randomizer) searchWithBase {
		wide := data.NewRandomizer(rz.Rand, data.WideProfile())
		return NewAlternatingValueSearch(NoInitialization{}, NewBanditInitializer(rz.Rand,
			RandomInitializer{Randomizer: rz},
			RandomInitializer{Randomizer: wide},
		))
	},
	"random": func(rz *data.Randomizer) searchWithBase {
		return NewRandomSearch(rz)
	},
}

// Names lists the registered search names.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a named search that stops after opts.MaxEvaluations evaluations
// or once it finds an optimal candidate.
func New(name string, opts Options) (Search, error) {
	build, ok := builders[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSearch, "%q", name)
	}
	if opts.Rand == nil {
		return nil, errors.New("search needs a random source")
	}
	if opts.MaxEvaluations <= 0 {
		return nil, errors.Errorf("max evaluations must be positive, got %d", opts.MaxEvaluations)
	}
	s := build(data.NewRandomizer(opts.Rand, opts.Profile))
	s.SetTerminationCriterion(Combined(
		CounterCriterion(s.EvaluationsCounter(), opts.MaxEvaluations),
		OptimumCriterion(s),
	))
	return s, nil
}
