package identity

import (
	"reflect"
	"testing"
)

func TestAssignCanonical(t *testing.T) {
	tests := []struct {
		name    string
		start   RoleSet
		target  string
		want    RoleSet
		wantErr error
	}{
		{
			name:   "author_from_baseline",
			start:  RoleSet{RoleUser},
			target: RoleAuthor,
			want:   RoleSet{RoleUser, RoleAuthor},
		},
		{
			name:   "author_keeps_admin",
			start:  RoleSet{RoleUser, RoleAppAdmin},
			target: RoleAuthor,
			want:   RoleSet{RoleUser, RoleAuthor, RoleAppAdmin},
		},
		{
			name:   "admin_is_additive",
			start:  RoleSet{RoleUser, RoleAuthor},
			target: RoleAppAdmin,
			want:   RoleSet{RoleUser, RoleAuthor, RoleAppAdmin},
		},
		{
			name:   "admin_idempotent",
			start:  RoleSet{RoleUser, RoleAppAdmin},
			target: RoleAppAdmin,
			want:   RoleSet{RoleUser, RoleAppAdmin},
		},
		{
			name:   "user_demotes_to_baseline",
			start:  RoleSet{RoleUser, RoleAuthor, RoleAppAdmin},
			target: RoleUser,
			want:   RoleSet{RoleUser},
		},
		{
			name:    "unknown_target_rejected",
			start:   RoleSet{RoleUser},
			target:  "SUPERUSER",
			wantErr: ErrInvalidRole,
		},
		{
			// a set read from a bad row still comes out with USER present
			name:   "author_repairs_missing_user",
			start:  RoleSet{},
			target: RoleAuthor,
			want:   RoleSet{RoleUser, RoleAuthor},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.start.AssignCanonical(tt.target)

			if err != tt.wantErr {
				t.Fatalf("got err %v, want %v", err, tt.wantErr)
			}

			if tt.wantErr != nil {
				return
			}

			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// promote then demote always lands back on exactly {USER}
func TestAssignCanonicalDemoteAfterPromote(t *testing.T) {
	s := DefaultRoles()

	s, err := s.AssignCanonical(RoleAuthor)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}

	s, err = s.AssignCanonical(RoleUser)
	if err != nil {
		t.Fatalf("demote: %v", err)
	}

	if !reflect.DeepEqual(s, RoleSet{RoleUser}) {
		t.Fatalf("got %v, want exactly {USER}", s)
	}
}

func TestNormalize(t *testing.T) {
	got := RoleSet{"moderator", RoleAppAdmin}.Normalize()

	want := RoleSet{RoleUser, RoleAppAdmin}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
