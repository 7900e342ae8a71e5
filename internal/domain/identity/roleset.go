package identity

// RoleSet is the ordered list of roles an identity holds.
// It is stored as a text[] column and is never empty: USER is the floor,
// and holding AUTHOR or APP_ADMIN always implies USER.
type RoleSet []string

func DefaultRoles() RoleSet {
	return RoleSet{RoleUser}
}

func (s RoleSet) Has(role string) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// Normalize repairs a set read from storage: guarantees USER is present and
// drops anything outside the canonical three. Order is USER, AUTHOR, APP_ADMIN.
func (s RoleSet) Normalize() RoleSet {
	out := RoleSet{RoleUser}

	if s.Has(RoleAuthor) {
		out = append(out, RoleAuthor)
	}

	if s.Has(RoleAppAdmin) {
		out = append(out, RoleAppAdmin)
	}

	return out
}

// AssignCanonical applies one of the three named role targets and returns the
// resulting set. The receiver is not mutated.
//
//   - AUTHOR grants AUTHOR and guarantees USER; APP_ADMIN is kept if already held.
//   - APP_ADMIN is purely additive.
//   - USER demotes to the baseline {USER}, stripping everything else.
//
// Any other target yields ErrInvalidRole.
func (s RoleSet) AssignCanonical(target string) (RoleSet, error) {
	switch target {
	case RoleAuthor:
		out := RoleSet{RoleUser, RoleAuthor}
		if s.Has(RoleAppAdmin) {
			out = append(out, RoleAppAdmin)
		}
		return out, nil

	case RoleAppAdmin:
		out := s.Normalize()
		if !out.Has(RoleAppAdmin) {
			out = append(out, RoleAppAdmin)
		}
		return out, nil

	case RoleUser:
		return RoleSet{RoleUser}, nil

	default:
		return nil, ErrInvalidRole
	}
}
