package identity

import "testing"

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleDoctor, RolePatient} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	for _, r := range []Role{"", "superuser", "Doctor", "ADMIN"} {
		if r.Valid() {
			t.Errorf("%q should be invalid", r)
		}
	}
}
