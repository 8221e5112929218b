// Package state holds the immutable resource snapshots shared by every stage
// of a reconciliation run: the effective desired state produced by the config
// merger and the remote state observed by the fetcher have the same shape.
package state

import (
	"strings"
)

// Kind is a resource kind.
type Kind string

// Resource kinds.
const (
	KindOrganization     Kind = "organization"
	KindRepository       Kind = "repository"
	KindTeam             Kind = "team"
	KindUser             Kind = "user"
	KindWebhook          Kind = "webhook"
	KindBranchProtection Kind = "branch-protection"
	KindAssignment       Kind = "assignment"
)

// Kinds lists every kind in dependency order.
var Kinds = []Kind{
	KindOrganization,
	KindRepository,
	KindTeam,
	KindUser,
	KindWebhook,
	KindBranchProtection,
	KindAssignment,
}

// Class is a dependency tier. Every entry of a lower class is issued before
// any entry of a higher class.
type Class int

// Dependency classes.
const (
	ClassOrganization Class = iota
	ClassRepository
	ClassTeam
	ClassUser
	ClassAttachment
	ClassAssignment
)

func (c Class) String() string {
	switch c {
	case ClassOrganization:
		return "organization"
	case ClassRepository:
		return "repository"
	case ClassTeam:
		return "team"
	case ClassUser:
		return "user"
	case ClassAttachment:
		return "webhook/branch-protection"
	case ClassAssignment:
		return "assignment"
	}
	return "unknown"
}

// Class returns the dependency tier of k.
func (k Kind) Class() Class {
	switch k {
	case KindOrganization:
		return ClassOrganization
	case KindRepository:
		return ClassRepository
	case KindTeam:
		return ClassTeam
	case KindUser:
		return ClassUser
	case KindWebhook, KindBranchProtection:
		return ClassAttachment
	case KindAssignment:
		return ClassAssignment
	}
	return ClassAssignment + 1
}

// Identity returns the key names whose values, joined with "/", form an
// instance's natural id.
func (k Kind) Identity() []string {
	switch k {
	case KindOrganization:
		return []string{KeyOrg}
	case KindRepository:
		return []string{KeyRepo}
	case KindTeam:
		return []string{KeyTeam}
	case KindUser:
		return []string{KeyUser}
	case KindWebhook:
		return []string{KeyRepo, KeyURL}
	case KindBranchProtection:
		return []string{KeyRepo, KeyBranch}
	case KindAssignment:
		return []string{KeyRepo, KeyTeam}
	}
	return nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k.Class() <= ClassAssignment
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// Placeholder keys available to locator templates.
const (
	KeyOrg      = "org"
	KeyRepo     = "repo"
	KeyTeam     = "team"
	KeyTeamSlug = "team_slug"
	KeyUser     = "user"
	KeyURL      = "url"
	KeyBranch   = "branch"
)

// ID joins identity values into a natural id.
func ID(parts ...string) string {
	return strings.Join(parts, "/")
}

// Slug converts a team name into the URL slug GitHub derives from it.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
