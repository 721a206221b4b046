package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bal/internal/engine"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

func TestIsEntityReference(t *testing.T) {
	f := newInitialized(t)

	ok, err := f.m.IsEntityReference("bal:///anAsset")
	require.NoError(t, err)
	assert.True(t, ok)

	// Prefix only; well-formedness is not checked
	ok, err = f.m.IsEntityReference("bal:///")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.m.IsEntityReference("bal://anAsset")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, f.sleeper.Calls())
}

func TestEntityExists(t *testing.T) {
	f := newInitialized(t)
	r := newResults[bool]()

	err := f.m.EntityExists(context.Background(), []string{
		"bal:///anAsset",
		"bal:///missing",
		"bal:///inaccessible",
		"bal:///anAsset?v=9",
		"bal:///",
	}, ref.Read, r.success, r.failure)
	require.NoError(t, err)

	assert.Equal(t, map[int]bool{0: true, 1: false, 2: true, 3: false}, r.ok)
	require.Contains(t, r.errs, 4)
	assert.Equal(t, ErrMalformedEntityReference, r.errs[4].Code)
}

func TestResolve(t *testing.T) {
	f := newInitialized(t)
	r := newResults[trait.Data]()

	err := f.m.Resolve(context.Background(), []string{
		"bal:///anAsset",
		"bal:///anAsset?v=1",
		"bal:///anAsset?v=3",
		"bal:///missing",
		"bal:///inaccessible",
		"bal:///",
	}, trait.NewSet("string", "image"), ref.Read, r.success, r.failure)
	require.NoError(t, err)

	assert.True(t, stringTrait("v2").Equal(r.ok[0]), "got %v", r.ok[0])
	assert.True(t, stringTrait("v1").Equal(r.ok[1]), "got %v", r.ok[1])

	assert.Equal(t, map[int]BatchElementError{
		2: {Code: ErrEntityResolutionError, Message: "Entity 'anAsset' does not have a version 3"},
		3: {Code: ErrEntityResolutionError, Message: "Entity 'missing' not found"},
		4: {Code: ErrEntityAccessError, Message: "Entity 'inaccessible' is inaccessible for read"},
		5: {Code: ErrMalformedEntityReference, Message: "Malformed BAL reference: Missing entity name in path component 'bal:///'"},
	}, r.errs)
}

func TestResolveVersionTrait(t *testing.T) {
	f := newInitialized(t)
	r := newResults[trait.Data]()

	err := f.m.Resolve(context.Background(), []string{"bal:///anAsset", "bal:///anAsset?v=1"},
		trait.NewSet(engine.TraitVersion), ref.Read, r.success, r.failure)
	require.NoError(t, err)
	require.Empty(t, r.errs)

	stable, _ := r.ok[0].GetString(engine.TraitVersion, engine.PropStableTag)
	specified, _ := r.ok[0].GetString(engine.TraitVersion, engine.PropSpecifiedTag)
	assert.Equal(t, "2", stable)
	assert.Equal(t, "latest", specified)

	stable, _ = r.ok[1].GetString(engine.TraitVersion, engine.PropStableTag)
	specified, _ = r.ok[1].GetString(engine.TraitVersion, engine.PropSpecifiedTag)
	assert.Equal(t, "1", stable)
	assert.Equal(t, "1", specified)
}

func TestTraitSetsNeedNotBeSorted(t *testing.T) {
	f := newInitialized(t)
	ctx := context.Background()

	r := newResults[trait.Data]()
	require.NoError(t, f.m.Resolve(ctx, []string{"bal:///anAsset"},
		trait.Set{"string", engine.TraitVersion}, ref.Read, r.success, r.failure))
	stable, ok := r.ok[0].GetString(engine.TraitVersion, engine.PropStableTag)
	require.True(t, ok)
	assert.Equal(t, "2", stable)
	assert.True(t, r.ok[0].Has("string"))

	got, err := f.m.ManagementPolicy(ctx, []trait.Set{{"unmanaged", "unmanaged"}}, ref.Write)
	require.NoError(t, err)
	assert.Equal(t, trait.Data{}, got[0])

	d := newResults[string]()
	require.NoError(t, f.m.DefaultEntityReference(ctx, []trait.Set{{"string", "string"}}, ref.Read, d.success, d.failure))
	assert.Equal(t, map[int]string{0: "bal:///anAsset"}, d.ok)

	p := newResults[*Pager]()
	require.NoError(t, f.m.GetWithRelationship(ctx, []string{"bal:///anAsset"},
		trait.Data{"proxy": {}}, 10, ref.Read, trait.Set{"string", "image"}, p.success, p.failure))
	assert.Equal(t, []string{"bal:///proxyA"}, p.ok[0].All())
}

func TestResolveWriteIsReadOnly(t *testing.T) {
	f := newInitialized(t)
	r := newResults[trait.Data]()

	err := f.m.Resolve(context.Background(), []string{"bal:///anAsset", "bal:///"},
		trait.NewSet("string"), ref.Write, r.success, r.failure)
	require.NoError(t, err)

	assert.Empty(t, r.ok)
	for idx := range 2 {
		assert.Equal(t, BatchElementError{Code: ErrEntityAccessError, Message: "BAL entities are read-only"}, r.errs[idx])
	}
}

func TestBatchLatencyAppliedOncePerCall(t *testing.T) {
	f := newInitialized(t)
	r := newResults[trait.Data]()

	err := f.m.Resolve(context.Background(), []string{"bal:///anAsset", "bal:///proxyA", "bal:///proxyB"},
		trait.NewSet("string"), ref.Read, r.success, r.failure)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, f.sleeper.Calls())

	require.NoError(t, f.m.Initialize(map[string]any{SettingSimulatedQueryLatency: 2.5}))
	f.sleeper.Reset()

	_, err = f.m.ManagementPolicy(context.Background(), []trait.Set{trait.NewSet("string")}, ref.Read)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2500 * time.Microsecond}, f.sleeper.Calls())
}

func TestBatchCanceledContext(t *testing.T) {
	f := newInitialized(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := f.m.Resolve(ctx, []string{"bal:///anAsset"}, nil, ref.Read,
		func(int, trait.Data) { called = true }, func(int, BatchElementError) { called = true })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestPreflight(t *testing.T) {
	f := newInitialized(t)
	r := newResults[string]()

	refs := []string{"bal:///newThing", "bal:///anAsset", "bal:///readOnly", "bal:///x", "bal:///"}
	hints := []trait.Data{stringTrait("a"), stringTrait("b"), stringTrait("c"), nil, stringTrait("d")}

	err := f.m.Preflight(context.Background(), refs, hints, ref.Write, r.success, r.failure)
	require.NoError(t, err)

	assert.Equal(t, map[int]string{0: "bal:///newThing"}, r.ok)
	assert.Equal(t, ErrInvalidTraitSet, r.errs[1].Code)
	assert.Equal(t, "Cannot publish {string} to 'anAsset': missing traits {number} held by the existing entity", r.errs[1].Message)
	assert.Equal(t, ErrEntityAccessError, r.errs[2].Code)
	assert.Equal(t, ErrInvalidPreflightHint, r.errs[3].Code)
	assert.Equal(t, ErrMalformedEntityReference, r.errs[4].Code)

	// Preflight never publishes
	assert.Empty(t, f.journal.pubs)
	assert.False(t, f.m.Engine().Snapshot().Exists(ref.NewLocator("newThing", ref.Read)))
}

func TestPreflightHintCountMismatch(t *testing.T) {
	f := newInitialized(t)

	err := f.m.Preflight(context.Background(), []string{"bal:///a"}, nil, ref.Write,
		func(int, string) {}, func(int, BatchElementError) {})
	assert.ErrorContains(t, err, "1 references but 0 trait hints")
}

func TestRegister(t *testing.T) {
	f := newInitialized(t)
	r := newResults[string]()

	v3 := stringTrait("v3")
	v3.Set("number", "value", trait.Int(3))

	refs := []string{"bal:///anAsset", "bal:///anAsset", "bal:///brandNew", "bal:///readOnly", "bal:///x"}
	data := []trait.Data{v3, stringTrait("short"), stringTrait("new"), stringTrait("ro"), {"unmanaged": {}}}

	err := f.m.Register(context.Background(), refs, data, ref.Write, r.success, r.failure)
	require.NoError(t, err)

	assert.Equal(t, map[int]string{0: "bal:///anAsset?v=3", 2: "bal:///brandNew?v=1"}, r.ok)
	assert.Equal(t, map[int]BatchElementError{
		1: {Code: ErrInvalidTraitSet, Message: "Cannot publish {string} to 'anAsset': missing traits {number} held by the existing entity"},
		3: {Code: ErrEntityAccessError, Message: "Entity 'readOnly' is inaccessible for write"},
		4: {Code: ErrInvalidTraitSet, Message: "Cannot publish {unmanaged} to 'x': trait set is not managed for writing"},
	}, r.errs)

	require.Len(t, f.journal.pubs, 2)
	assert.Equal(t, "test-batch-0001", f.journal.pubs[0].BatchID)
	assert.Equal(t, "anAsset", f.journal.pubs[0].Name)
	assert.Equal(t, 3, f.journal.pubs[0].Version)
	assert.Equal(t, ref.Write, f.journal.pubs[0].Access)
	assert.Equal(t, "brandNew", f.journal.pubs[1].Name)
	assert.Equal(t, 1, f.journal.pubs[1].Version)

	// Published versions are visible to later batches
	resolved := newResults[trait.Data]()
	err = f.m.Resolve(context.Background(), []string{"bal:///anAsset", "bal:///brandNew"},
		trait.NewSet("string"), ref.Read, resolved.success, resolved.failure)
	require.NoError(t, err)
	assert.True(t, stringTrait("v3").Equal(resolved.ok[0]))
	assert.True(t, stringTrait("new").Equal(resolved.ok[1]))
}

func TestRegisterSeesEarlierElements(t *testing.T) {
	f := newInitialized(t)
	r := newResults[string]()

	withNumber := stringTrait("one")
	withNumber.Set("number", "value", trait.Int(1))

	err := f.m.Register(context.Background(),
		[]string{"bal:///fresh", "bal:///fresh"},
		[]trait.Data{withNumber, stringTrait("two")},
		ref.Write, r.success, r.failure)
	require.NoError(t, err)

	assert.Equal(t, map[int]string{0: "bal:///fresh?v=1"}, r.ok)
	assert.Equal(t, ErrInvalidTraitSet, r.errs[1].Code)
}

func TestRegisterJournalFailureAborts(t *testing.T) {
	f := newInitialized(t)
	f.journal.err = errors.New("disk full")

	err := f.m.Register(context.Background(), []string{"bal:///brandNew"}, []trait.Data{stringTrait("x")},
		ref.Write, func(int, string) {}, func(int, BatchElementError) {})
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, f.journal.pubs)

	r := newResults[bool]()
	require.NoError(t, f.m.EntityExists(context.Background(), []string{"bal:///brandNew"}, ref.Read, r.success, r.failure))
	assert.Equal(t, map[int]bool{0: false}, r.ok)

	// The tag is not consumed: the next publish is still version 1.
	f.journal.err = nil
	refs := newResults[string]()
	require.NoError(t, f.m.Register(context.Background(), []string{"bal:///brandNew"}, []trait.Data{stringTrait("y")},
		ref.Write, refs.success, refs.failure))
	assert.Equal(t, map[int]string{0: "bal:///brandNew?v=1"}, refs.ok)
	require.Len(t, f.journal.pubs, 1)
	assert.Equal(t, 1, f.journal.pubs[0].Version)
}

func TestRegisterDataCountMismatch(t *testing.T) {
	f := newInitialized(t)

	err := f.m.Register(context.Background(), []string{"bal:///a", "bal:///b"}, []trait.Data{{}}, ref.Write,
		func(int, string) {}, func(int, BatchElementError) {})
	assert.ErrorContains(t, err, "2 references but 1 trait datas")
}

func TestManagementPolicy(t *testing.T) {
	f := newInitialized(t)

	got, err := f.m.ManagementPolicy(context.Background(),
		[]trait.Set{trait.NewSet("string"), trait.NewSet("unmanaged")}, ref.Write)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Has(engine.TraitManaged))
	assert.Equal(t, trait.Data{}, got[1])

	// managerDriven falls back to the write policy
	got, err = f.m.ManagementPolicy(context.Background(), []trait.Set{trait.NewSet("unmanaged")}, ref.ManagerDriven)
	require.NoError(t, err)
	assert.Equal(t, trait.Data{}, got[0])
}

func TestManagementPolicyMissingFailsCall(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Initialize(map[string]any{
		SettingLibraryJSON: `{"managementPolicy": {"write": {"default": {}}}, "entities": {}}`,
	}))

	_, err := f.m.ManagementPolicy(context.Background(), []trait.Set{trait.NewSet("string")}, ref.Read)
	require.Error(t, err)
	assert.True(t, engine.IsPolicyConfigError(err))
	assert.Contains(t, err.Error(), "missing a managementPolicy for 'read'")
}

func TestEntityTraits(t *testing.T) {
	f := newInitialized(t)

	r := newResults[trait.Set]()
	err := f.m.EntityTraits(context.Background(),
		[]string{"bal:///anAsset", "bal:///anAsset?v=1", "bal:///missing", "bal:///inaccessible"},
		ref.Read, r.success, r.failure)
	require.NoError(t, err)
	assert.Equal(t, trait.NewSet("number", "string", engine.TraitVersion), r.ok[0])
	assert.Equal(t, trait.NewSet("string", engine.TraitVersion), r.ok[1])
	assert.Equal(t, ErrEntityResolutionError, r.errs[2].Code)
	assert.Equal(t, ErrEntityAccessError, r.errs[3].Code)

	w := newResults[trait.Set]()
	err = f.m.EntityTraits(context.Background(),
		[]string{"bal:///anAsset", "bal:///brandNew", "bal:///readOnly"},
		ref.Write, w.success, w.failure)
	require.NoError(t, err)
	assert.Equal(t, trait.NewSet("number", "string"), w.ok[0])
	assert.Equal(t, trait.Set{}, w.ok[1])
	assert.Equal(t, ErrEntityAccessError, w.errs[2].Code)
}

func TestDefaultEntityReference(t *testing.T) {
	f := newInitialized(t)

	r := newResults[string]()
	err := f.m.DefaultEntityReference(context.Background(),
		[]trait.Set{trait.NewSet("string"), trait.NewSet("image")}, ref.Read, r.success, r.failure)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "bal:///anAsset"}, r.ok)
	assert.Equal(t, BatchElementError{Code: ErrInvalidTraitSet, Message: "Unknown trait set {image}"}, r.errs[1])

	w := newResults[string]()
	err = f.m.DefaultEntityReference(context.Background(),
		[]trait.Set{trait.NewSet("string")}, ref.Write, w.success, w.failure)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "bal:///newThing"}, w.ok)
}

func TestGetWithRelationshipPages(t *testing.T) {
	f := newInitialized(t)
	r := newResults[*Pager]()

	err := f.m.GetWithRelationship(context.Background(),
		[]string{"bal:///anAsset", "bal:///proxyA", "bal:///missing"},
		trait.Data{"proxy": {}}, 1, ref.Read, nil, r.success, r.failure)
	require.NoError(t, err)

	p := r.ok[0]
	require.NotNil(t, p)
	assert.Equal(t, []string{"bal:///proxyA"}, p.Get())
	assert.True(t, p.HasNext())
	p.Next()
	assert.Equal(t, []string{"bal:///proxyB"}, p.Get())
	assert.False(t, p.HasNext())

	assert.Empty(t, r.ok[1].All())
	assert.Equal(t, ErrEntityResolutionError, r.errs[2].Code)
}

func TestGetWithRelationshipResultFilter(t *testing.T) {
	f := newInitialized(t)
	r := newResults[*Pager]()

	err := f.m.GetWithRelationship(context.Background(), []string{"bal:///anAsset"},
		trait.Data{"proxy": {}}, 10, ref.Read, trait.NewSet("image"), r.success, r.failure)
	require.NoError(t, err)
	assert.Equal(t, []string{"bal:///proxyA"}, r.ok[0].All())
}

func TestGetWithRelationshipVersions(t *testing.T) {
	f := newInitialized(t)
	r := newResults[*Pager]()

	err := f.m.GetWithRelationship(context.Background(), []string{"bal:///anAsset"},
		trait.Data{engine.TraitRelationship: {}, engine.TraitVersion: {}}, 10, ref.Read, nil, r.success, r.failure)
	require.NoError(t, err)
	assert.Equal(t, []string{"bal:///anAsset", "bal:///anAsset?v=2", "bal:///anAsset?v=1"}, r.ok[0].All())
}

func TestGetWithRelationships(t *testing.T) {
	f := newInitialized(t)
	r := newResults[*Pager]()

	err := f.m.GetWithRelationships(context.Background(), "bal:///anAsset",
		[]trait.Data{{"proxy": {}}, {"sibling": {}}, {"missing": {}}},
		10, ref.Read, nil, r.success, r.failure)
	require.NoError(t, err)

	assert.Equal(t, []string{"bal:///proxyA", "bal:///proxyB"}, r.ok[0].All())
	assert.Equal(t, []string{"bal:///proxyB"}, r.ok[1].All())
	assert.Empty(t, r.ok[2].All())
	assert.Empty(t, r.errs)
}

func TestGetWithRelationshipsMalformedFailsEveryElement(t *testing.T) {
	f := newInitialized(t)
	r := newResults[*Pager]()

	err := f.m.GetWithRelationships(context.Background(), "bal:///",
		[]trait.Data{{"proxy": {}}, {"sibling": {}}}, 10, ref.Read, nil, r.success, r.failure)
	require.NoError(t, err)
	assert.Empty(t, r.ok)
	assert.Len(t, r.errs, 2)
	assert.Equal(t, ErrMalformedEntityReference, r.errs[1].Code)
}

func TestGetWithRelationshipPageSize(t *testing.T) {
	f := newInitialized(t)

	err := f.m.GetWithRelationship(context.Background(), []string{"bal:///anAsset"},
		trait.Data{}, 0, ref.Read, nil, func(int, *Pager) {}, func(int, BatchElementError) {})
	assert.ErrorContains(t, err, "page size must be greater than zero")

	err = f.m.GetWithRelationships(context.Background(), "bal:///anAsset",
		nil, -1, ref.Read, nil, func(int, *Pager) {}, func(int, BatchElementError) {})
	assert.ErrorContains(t, err, "page size must be greater than zero")
}
