package manager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/bal/internal/engine"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/store"
	"github.com/roach88/bal/internal/trait"
)

// batch carries the per-call context shared by every element.
type batch struct {
	id     string
	logger *slog.Logger
	engine *engine.Engine
	snap   *engine.Snapshot
	codec  *ref.Codec
}

// begin checks the manager can serve op, applies the simulated latency
// and captures the snapshot the whole batch resolves against.
func (m *Manager) begin(ctx context.Context, op string, c Capability, count int) (*batch, error) {
	st, err := m.current()
	if err != nil {
		return nil, err
	}
	if !st.caps[c] {
		return nil, notSupported(c)
	}

	id := m.ids.Generate()
	logger := m.logger.With("batch_id", id, "op", op)
	logger.Debug("batch started", "count", count)

	if err := m.sleep(ctx, latency(st.latency)); err != nil {
		return nil, err
	}

	return &batch{
		id:     id,
		logger: logger,
		engine: st.engine,
		snap:   st.engine.Snapshot(),
		codec:  st.codec,
	}, nil
}

// fail reports err for element idx, or returns it when it is not a
// per-element error.
func (b *batch) fail(idx int, err error, onError ErrorFunc) error {
	be, ok := toElementError(err)
	if !ok {
		b.logger.Error("batch aborted", "index", idx, "error", err)
		return err
	}
	b.logger.Debug("element failed", "index", idx, "code", string(be.Code), "error", be.Message)
	onError(idx, be)
	return nil
}

// IsEntityReference reports whether s carries the configured prefix. It
// does not check that s is well formed.
func (m *Manager) IsEntityReference(s string) (bool, error) {
	st, err := m.current()
	if err != nil {
		return false, err
	}
	if !st.caps[CapEntityReferenceIdentification] {
		return false, notSupported(CapEntityReferenceIdentification)
	}
	return st.codec.IsReference(s), nil
}

// EntityExists reports, per reference, whether it addresses an existing
// entity.
func (m *Manager) EntityExists(ctx context.Context, refs []string, access ref.Access,
	onSuccess func(idx int, exists bool), onError ErrorFunc) error {
	b, err := m.begin(ctx, "entityExists", CapExistenceQueries, len(refs))
	if err != nil {
		return err
	}

	for idx, s := range refs {
		loc, err := b.codec.Parse(s, access)
		if err != nil {
			if err := b.fail(idx, err, onError); err != nil {
				return err
			}
			continue
		}
		onSuccess(idx, b.snap.Exists(loc))
	}
	return nil
}

// Resolve returns the requested traits of each entity. Entities are
// read-only: with write-like access every element fails.
func (m *Manager) Resolve(ctx context.Context, refs []string, traitSet trait.Set, access ref.Access,
	onSuccess func(idx int, data trait.Data), onError ErrorFunc) error {
	b, err := m.begin(ctx, "resolve", CapResolution, len(refs))
	if err != nil {
		return err
	}
	// Callers may pass sets built by hand.
	traitSet = trait.NewSet(traitSet...)

	if access.IsWrite() {
		readOnly := BatchElementError{Code: ErrEntityAccessError, Message: "BAL entities are read-only"}
		for idx := range refs {
			onError(idx, readOnly)
		}
		return nil
	}

	for idx, s := range refs {
		loc, err := b.codec.Parse(s, access)
		if err == nil {
			var resolved *engine.Resolved
			resolved, err = b.snap.Resolve(loc)
			if err == nil {
				onSuccess(idx, resolved.TraitsFor(traitSet))
				continue
			}
		}
		if err := b.fail(idx, err, onError); err != nil {
			return err
		}
	}
	return nil
}

// Preflight checks each reference can be published with the trait set of
// its hint, returning the reference unchanged on success.
func (m *Manager) Preflight(ctx context.Context, refs []string, hints []trait.Data, access ref.Access,
	onSuccess func(idx int, reference string), onError ErrorFunc) error {
	if len(hints) != len(refs) {
		return fmt.Errorf("preflight: %d references but %d trait hints", len(refs), len(hints))
	}
	b, err := m.begin(ctx, "preflight", CapPublishing, len(refs))
	if err != nil {
		return err
	}

	for idx, s := range refs {
		loc, err := b.codec.Parse(s, access)
		if err == nil {
			if hints[idx] == nil {
				onError(idx, BatchElementError{Code: ErrInvalidPreflightHint, Message: "missing traits hint"})
				continue
			}
			err = b.snap.ValidatePublish(loc, hints[idx])
			if err == nil {
				onSuccess(idx, s)
				continue
			}
		}
		if err := b.fail(idx, err, onError); err != nil {
			return err
		}
	}
	return nil
}

// Register publishes data as a new version of each entity and returns the
// reference to that version. Each element is validated against the
// library as it stands after the previous element. With a journal, a
// version only becomes visible once it has been journaled.
func (m *Manager) Register(ctx context.Context, refs []string, data []trait.Data, access ref.Access,
	onSuccess func(idx int, reference string), onError ErrorFunc) error {
	if len(data) != len(refs) {
		return fmt.Errorf("register: %d references but %d trait datas", len(refs), len(data))
	}
	b, err := m.begin(ctx, "register", CapPublishing, len(refs))
	if err != nil {
		return err
	}

	for idx, s := range refs {
		loc, err := b.codec.Parse(s, access)
		if err == nil {
			err = b.engine.Snapshot().ValidatePublish(loc, data[idx])
		}
		if err != nil {
			if err := b.fail(idx, err, onError); err != nil {
				return err
			}
			continue
		}

		var commit engine.CommitFunc
		if m.journal != nil {
			commit = func(created ref.Locator) error {
				p := store.Publication{
					BatchID: b.id,
					Name:    created.Name,
					Version: created.VersionTag(),
					Access:  created.Access,
					Traits:  data[idx],
				}
				if _, err := m.journal.Append(ctx, p); err != nil {
					return fmt.Errorf("journal %s: %w", created, err)
				}
				return nil
			}
		}
		created, err := b.engine.Publish(loc, data[idx], commit)
		if err != nil {
			return err
		}
		b.logger.Info("entity registered", "entity", created.Name, "version", created.VersionTag())
		onSuccess(idx, b.codec.Format(created))
	}
	return nil
}

// ManagementPolicy returns the policy for each trait set. A missing policy
// table fails the whole call.
func (m *Manager) ManagementPolicy(ctx context.Context, sets []trait.Set, access ref.Access) ([]trait.Data, error) {
	b, err := m.begin(ctx, "managementPolicy", CapManagementPolicyQueries, len(sets))
	if err != nil {
		return nil, err
	}

	out := make([]trait.Data, len(sets))
	for i, set := range sets {
		policy, err := b.snap.ManagementPolicy(trait.NewSet(set...), access)
		if err != nil {
			return nil, err
		}
		out[i] = policy
	}
	return out, nil
}

// EntityTraits reports each entity's trait set for access. For write-like
// access an entity with nothing published yields an empty set, meaning
// any traits may be published.
func (m *Manager) EntityTraits(ctx context.Context, refs []string, access ref.Access,
	onSuccess func(idx int, set trait.Set), onError ErrorFunc) error {
	b, err := m.begin(ctx, "entityTraits", CapEntityTraitIntrospection, len(refs))
	if err != nil {
		return err
	}

	for idx, s := range refs {
		loc, err := b.codec.Parse(s, access)
		if err == nil {
			var set trait.Set
			set, _, err = b.snap.EntityTraits(loc)
			if err == nil {
				if set == nil {
					set = trait.Set{}
				}
				onSuccess(idx, set)
				continue
			}
		}
		if err := b.fail(idx, err, onError); err != nil {
			return err
		}
	}
	return nil
}

// DefaultEntityReference returns the default entity reference for each
// trait set.
func (m *Manager) DefaultEntityReference(ctx context.Context, sets []trait.Set, access ref.Access,
	onSuccess func(idx int, reference string), onError ErrorFunc) error {
	b, err := m.begin(ctx, "defaultEntityReference", CapDefaultEntityReferences, len(sets))
	if err != nil {
		return err
	}

	for idx, set := range sets {
		loc, err := b.snap.DefaultEntity(trait.NewSet(set...), access)
		if err != nil {
			if err := b.fail(idx, err, onError); err != nil {
				return err
			}
			continue
		}
		onSuccess(idx, b.codec.Format(loc))
	}
	return nil
}

// GetWithRelationship queries one relationship for many references.
func (m *Manager) GetWithRelationship(ctx context.Context, refs []string, relationship trait.Data,
	pageSize int, access ref.Access, resultTraitSet trait.Set,
	onSuccess func(idx int, pager *Pager), onError ErrorFunc) error {
	if pageSize < 1 {
		return fmt.Errorf("page size must be greater than zero, got %d", pageSize)
	}
	b, err := m.begin(ctx, "getWithRelationship", CapRelationshipQueries, len(refs))
	if err != nil {
		return err
	}

	for idx, s := range refs {
		if err := b.related(idx, s, relationship, pageSize, access, resultTraitSet, onSuccess, onError); err != nil {
			return err
		}
	}
	return nil
}

// GetWithRelationships queries many relationships for one reference.
// Callbacks are indexed by relationship.
func (m *Manager) GetWithRelationships(ctx context.Context, reference string, relationships []trait.Data,
	pageSize int, access ref.Access, resultTraitSet trait.Set,
	onSuccess func(idx int, pager *Pager), onError ErrorFunc) error {
	if pageSize < 1 {
		return fmt.Errorf("page size must be greater than zero, got %d", pageSize)
	}
	b, err := m.begin(ctx, "getWithRelationships", CapRelationshipQueries, len(relationships))
	if err != nil {
		return err
	}

	for idx, relationship := range relationships {
		if err := b.related(idx, reference, relationship, pageSize, access, resultTraitSet, onSuccess, onError); err != nil {
			return err
		}
	}
	return nil
}

func (b *batch) related(idx int, reference string, relationship trait.Data, pageSize int,
	access ref.Access, resultTraitSet trait.Set,
	onSuccess func(int, *Pager), onError ErrorFunc) error {
	loc, err := b.codec.Parse(reference, access)
	if err == nil {
		var related []ref.Locator
		related, err = b.snap.Related(loc, relationship, trait.NewSet(resultTraitSet...))
		if err == nil {
			refs := make([]string, len(related))
			for i, l := range related {
				refs[i] = b.codec.Format(l)
			}
			onSuccess(idx, newPager(refs, pageSize))
			return nil
		}
	}
	return b.fail(idx, err, onError)
}
