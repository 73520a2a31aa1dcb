package identity_test

import (
	"testing"

	"github.com/jrsteele09/go-session-client/identity"
	"github.com/stretchr/testify/require"
)

func TestIsInTierHierarchy(t *testing.T) {
	premiumUser := &identity.Identity{
		User: &identity.User{ID: "user-1"},
		Tier: identity.TierPremium,
	}

	tests := []struct {
		tier     identity.TierType
		expected bool
	}{
		{identity.TierFree, true},
		{identity.TierBasic, true},
		{identity.TierPremium, true},
		{identity.TierProfessional, false},
		{identity.TierEnterprise, false},
		{identity.TierAdmin, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.tier), func(t *testing.T) {
			require.Equal(t, tc.expected, premiumUser.IsInTier(tc.tier))
		})
	}
}

func TestIsInTierUnknownTier(t *testing.T) {
	id := &identity.Identity{Tier: identity.TierAdmin}
	require.False(t, id.IsInTier("platinum"))
}

func TestEffectiveTierDerivedFromRoles(t *testing.T) {
	id := &identity.Identity{Roles: []string{"uploader", "premium", "basic"}}
	require.Equal(t, identity.TierPremium, id.EffectiveTier())
	require.True(t, id.IsInTier(identity.TierBasic))
	require.False(t, id.IsInTier(identity.TierEnterprise))
}

func TestEffectiveTierDefaultsToFree(t *testing.T) {
	id := &identity.Identity{Roles: []string{"uploader"}}
	require.Equal(t, identity.TierFree, id.EffectiveTier())

	var nilID *identity.Identity
	require.Equal(t, identity.TierFree, nilID.EffectiveTier())
}

func TestHasRoleAndPermission(t *testing.T) {
	id := &identity.Identity{
		Roles:       []string{"admin", "uploader"},
		Permissions: []string{"files:write", "files:read"},
	}

	require.True(t, id.HasRole("uploader"))
	require.False(t, id.HasRole("auditor"))
	require.True(t, id.HasPermission("files:read"))
	require.False(t, id.HasPermission("files:delete"))

	var nilID *identity.Identity
	require.False(t, nilID.HasRole("admin"))
	require.False(t, nilID.HasPermission("files:read"))
}

func TestClone(t *testing.T) {
	id := &identity.Identity{
		User:        &identity.User{ID: "user-1", Email: "john.doe@example.com"},
		Roles:       []string{"premium"},
		Permissions: []string{"files:read"},
		Tier:        identity.TierPremium,
	}

	clone := id.Clone()
	require.Equal(t, id, clone)

	clone.User.Email = "changed@example.com"
	clone.Roles[0] = "admin"
	require.Equal(t, "john.doe@example.com", id.User.Email)
	require.Equal(t, "premium", id.Roles[0])
}
