package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bal/internal/library"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

func TestManagementPolicy(t *testing.T) {
	snap := testSnapshot(t)

	tests := []struct {
		name    string
		set     trait.Set
		access  ref.Access
		managed bool
	}{
		{"read default", trait.NewSet("string"), ref.Read, true},
		{"read exact override", trait.NewSet("ignored"), ref.Read, false},
		{"override is not a superset match", trait.NewSet("ignored", "string"), ref.Read, true},
		{"write default", trait.NewSet("string"), ref.Write, true},
		{"write override", trait.NewSet("unmanaged"), ref.Write, false},
		{"required uses read rules", trait.NewSet("ignored"), ref.Required, false},
		{"managerDriven uses write rules", trait.NewSet("unmanaged"), ref.ManagerDriven, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := snap.ManagementPolicy(tt.set, tt.access)
			require.NoError(t, err)
			assert.Equal(t, tt.managed, policy.Has(TraitManaged))
		})
	}
}

func TestManagementPolicyReturnsCopy(t *testing.T) {
	snap := testSnapshot(t)

	policy, err := snap.ManagementPolicy(trait.NewSet("string"), ref.Read)
	require.NoError(t, err)
	policy.Add("mutated")

	again, err := snap.ManagementPolicy(trait.NewSet("string"), ref.Read)
	require.NoError(t, err)
	assert.False(t, again.Has("mutated"))
}

func TestManagementPolicyMissingIsConfigError(t *testing.T) {
	lib, err := library.Parse([]byte(`{"managementPolicy": {"read": {"overrideByTraitSet": [
		{"traitSet": ["a"], "policy": {}}
	]}}}`))
	require.NoError(t, err)
	snap := newTestEngine(t, lib).Snapshot()

	_, err = snap.ManagementPolicy(trait.NewSet("a"), ref.Read)
	assert.NoError(t, err)

	_, err = snap.ManagementPolicy(trait.NewSet("b"), ref.Read)
	require.Error(t, err)
	assert.True(t, IsPolicyConfigError(err))
	assert.False(t, IsPerElement(err))
	assert.Contains(t, err.Error(), "missing a managementPolicy for 'read'")

	_, err = snap.ManagementPolicy(trait.NewSet("a"), ref.Write)
	assert.True(t, IsPolicyConfigError(err))
	assert.Contains(t, err.Error(), "'write'")
}

func TestManagementPolicyExactRulesFallThroughToScope(t *testing.T) {
	lib, err := library.Parse([]byte(`{"managementPolicy": {
		"write": {"default": {"scope": {}}},
		"managerDriven": {"overrideByTraitSet": [{"traitSet": ["a"], "policy": {"exact": {}}}]}
	}}`))
	require.NoError(t, err)
	snap := newTestEngine(t, lib).Snapshot()

	policy, err := snap.ManagementPolicy(trait.NewSet("a"), ref.ManagerDriven)
	require.NoError(t, err)
	assert.True(t, policy.Has("exact"))

	policy, err = snap.ManagementPolicy(trait.NewSet("b"), ref.ManagerDriven)
	require.NoError(t, err)
	assert.True(t, policy.Has("scope"))
}

func TestDefaultEntity(t *testing.T) {
	snap := testSnapshot(t)

	loc, err := snap.DefaultEntity(trait.NewSet("string"), ref.Read)
	require.NoError(t, err)
	assert.Equal(t, read("anAsset"), loc)

	loc, err = snap.DefaultEntity(trait.NewSet("number", "string"), ref.Read)
	require.NoError(t, err)
	assert.Equal(t, "proxyA", loc.Name)

	loc, err = snap.DefaultEntity(trait.NewSet("string"), ref.Write)
	require.NoError(t, err)
	assert.Equal(t, write("newThing"), loc)

	_, err = snap.DefaultEntity(trait.NewSet("a", "b"), ref.Read)
	require.Error(t, err)
	assert.True(t, IsUnknownTraitSet(err))
	assert.Equal(t, "Unknown trait set {a, b}", err.Error())

	_, err = snap.DefaultEntity(trait.NewSet("string"), ref.ManagerDriven)
	assert.True(t, IsUnknownTraitSet(err))
}

func TestValidatePublish(t *testing.T) {
	snap := testSnapshot(t)

	tests := []struct {
		name   string
		loc    ref.Locator
		traits trait.Data
		check  func(error) bool
	}{
		{"new entity", write("brandNew"), trait.NewData("string"), nil},
		{"entity with no versions", write("noVersions"), trait.NewData("anything"), nil},
		{"same traits", write("anAsset"), trait.NewData("string", "number"), nil},
		{"extra traits", write("anAsset"), trait.NewData("string", "number", "extra"), nil},
		{"missing existing trait", write("anAsset"), trait.NewData("string"), IsInvalidTraitSetForPublish},
		{"unmanaged trait set", write("brandNew"), trait.NewData("unmanaged"), IsInvalidTraitSetForPublish},
		{"write blocked", write("readOnly"), trait.NewData("string"), IsInaccessibleEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := snap.ValidatePublish(tt.loc, tt.traits)
			if tt.check == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestValidatePublishMessage(t *testing.T) {
	err := testSnapshot(t).ValidatePublish(write("anAsset"), trait.NewData("string"))
	require.Error(t, err)
	assert.Equal(t, "Cannot publish {string} to 'anAsset': missing traits {number} held by the existing entity", err.Error())
}

func TestValidatePublishWithoutPolicy(t *testing.T) {
	snap := newTestEngine(t, library.Empty()).Snapshot()
	err := snap.ValidatePublish(write("x"), trait.NewData("string"))
	assert.True(t, IsPolicyConfigError(err))
}
