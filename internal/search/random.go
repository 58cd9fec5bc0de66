package search

import (
	"context"

	"schemaanalyst/internal/data"
)

// RandomSearch re-randomizes the whole candidate before every evaluation.
type RandomSearch struct {
	Base
	randomizer *data.Randomizer
}

// NewRandomSearch returns a random search.
func NewRandomSearch(randomizer *data.Randomizer) *RandomSearch {
	return &RandomSearch{randomizer: randomizer}
}

// Name implements Search.
func (s *RandomSearch) Name() string { return "random" }

// Search implements Search.
func (s *RandomSearch) Search(ctx context.Context, candidate *data.Data) (*Result, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	for !s.terminated() {
		s.randomizer.RandomizeData(candidate)
		s.evaluate(candidate)
	}
	return s.result()
}
