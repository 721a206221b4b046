package store

import (
	"context"
	"fmt"

	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// Publisher applies a publication. *engine.Engine satisfies it.
type Publisher interface {
	CreateOrUpdate(loc ref.Locator, traits trait.Data) (ref.Locator, error)
}

// DivergenceError reports a replayed publication that was assigned a
// different version tag than the one journaled. It means the library
// document changed underneath the journal.
type DivergenceError struct {
	Publication Publication
	Got         int
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("replay diverged at seq %d: %q was journaled as version %d but replayed as version %d",
		e.Publication.Seq, e.Publication.Name, e.Publication.Version, e.Got)
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Applied int
	LastSeq int64
}

// Replay feeds every journaled publication through pub in sequence
// order. It stops at the first error or divergence.
func (s *Store) Replay(ctx context.Context, pub Publisher) (ReplayResult, error) {
	pubs, err := s.ReadAll(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	var res ReplayResult
	for _, p := range pubs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		created, err := pub.CreateOrUpdate(ref.NewLocator(p.Name, p.Access), p.Traits)
		if err != nil {
			return res, fmt.Errorf("replay seq %d: %w", p.Seq, err)
		}
		if got := created.VersionTag(); got != p.Version {
			return res, &DivergenceError{Publication: p, Got: got}
		}

		res.Applied++
		res.LastSeq = p.Seq
	}
	return res, nil
}
