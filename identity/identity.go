// Package identity models the authenticated user record the identity
// endpoint returns: who the user is, the roles and permissions granted
// to them, and the subscription tier used for feature gating.
package identity

import "time"

// TierType represents an ordered membership level.
type TierType string

const (
	TierFree         TierType = "free"
	TierBasic        TierType = "basic"
	TierPremium      TierType = "premium"
	TierProfessional TierType = "professional"
	TierEnterprise   TierType = "enterprise"
	TierAdmin        TierType = "admin"
)

// tierLevels orders tiers from least to most privileged. A user at a
// given level satisfies every level at or below their own.
var tierLevels = map[TierType]int{
	TierFree:         0,
	TierBasic:        1,
	TierPremium:      2,
	TierProfessional: 3,
	TierEnterprise:   4,
	TierAdmin:        5,
}

// User is the profile portion of the identity record.
type User struct {
	ID        string    `json:"id,omitempty"`         // Unique identifier for the user
	Email     string    `json:"email,omitempty"`      // User's email address
	Username  string    `json:"username,omitempty"`   // Unique username
	FirstName string    `json:"first_name,omitempty"` // First name of the user
	LastName  string    `json:"last_name,omitempty"`  // Last name of the user
	LastLogin time.Time `json:"last_login,omitempty"` // Last time the user logged in
}

// Identity is the authoritative role/permission record fetched with the
// current credential. It lives exactly as long as the credential that
// produced it and is discarded wholesale on logout or refresh failure.
type Identity struct {
	User        *User    `json:"user,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Tier        TierType `json:"tier,omitempty"`
}

// HasRole reports whether the identity carries the given role.
// Role order is irrelevant.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the identity carries the given permission.
func (id *Identity) HasPermission(permission string) bool {
	if id == nil {
		return false
	}
	for _, p := range id.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// EffectiveTier returns the identity's tier, deriving it from roles when
// the server omitted an explicit tier: the highest role that names a
// tier wins, defaulting to free.
func (id *Identity) EffectiveTier() TierType {
	if id == nil {
		return TierFree
	}
	if id.Tier != "" {
		return id.Tier
	}
	tier := TierFree
	for _, r := range id.Roles {
		if level, ok := tierLevels[TierType(r)]; ok && level > tierLevels[tier] {
			tier = TierType(r)
		}
	}
	return tier
}

// IsInTier reports whether the identity's tier satisfies the requested
// tier: membership at a level includes every level below it. An unknown
// requested tier is never satisfied.
func (id *Identity) IsInTier(tier TierType) bool {
	required, ok := tierLevels[tier]
	if !ok {
		return false
	}
	level, ok := tierLevels[id.EffectiveTier()]
	if !ok {
		return false
	}
	return level >= required
}

// Clone returns a deep copy sharing no memory with the receiver.
func (id *Identity) Clone() *Identity {
	if id == nil {
		return nil
	}
	out := &Identity{
		Roles:       append([]string(nil), id.Roles...),
		Permissions: append([]string(nil), id.Permissions...),
		Tier:        id.Tier,
	}
	if id.User != nil {
		u := *id.User
		out.User = &u
	}
	return out
}
