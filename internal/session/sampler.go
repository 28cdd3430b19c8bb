package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
)

// Sample draws perSection questions uniformly at random, without
// replacement, from each section's pool and concatenates them in the
// declared order of sections.
func Sample(ctx context.Context, repo QuestionRepository, sections []Section, perSection int, rng *rand.Rand) (QuestionSet, error) {
	if err := validateSections(sections, perSection); err != nil {
		return nil, startErr(ReasonInvalidConfig, err)
	}
	if repo == nil {
		return nil, startErr(ReasonRepositoryUnavailable, errors.New("no question repository"))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	out := make(QuestionSet, 0, len(sections)*perSection)
	for _, sec := range sections {
		pool, err := repo.FetchPool(ctx, sec)
		if err != nil {
			return nil, startErr(ReasonRepositoryUnavailable, fmt.Errorf("fetch pool %q: %w", sec, err))
		}
		candidates := cleanPool(sec, pool)
		if len(candidates) < perSection {
			return nil, startErr(ReasonInsufficientPool, &EmptyPoolError{Section: sec, Have: len(candidates), Want: perSection})
		}
		shuffle(rng, candidates)
		out = append(out, candidates[:perSection]...)
	}
	return out, nil
}

func validateSections(sections []Section, perSection int) error {
	if len(sections) == 0 {
		return errors.New("no sections")
	}
	if perSection <= 0 {
		return fmt.Errorf("per-section count must be positive, got %d", perSection)
	}
	seen := make(map[Section]bool, len(sections))
	for _, s := range sections {
		if !s.Valid() {
			return fmt.Errorf("unknown section %q", s)
		}
		if seen[s] {
			return fmt.Errorf("duplicate section %q", s)
		}
		seen[s] = true
	}
	return nil
}

// cleanPool copies the pool, dropping questions tagged for another section
// and repeated ids. The repository's slice is never touched.
func cleanPool(sec Section, pool []Question) []Question {
	out := make([]Question, 0, len(pool))
	seen := make(map[string]bool, len(pool))
	for _, q := range pool {
		if q.Section != sec || q.ID == "" || seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out
}

// shuffle is Fisher–Yates.
func shuffle(rng *rand.Rand, qs []Question) {
	for i := len(qs) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}
