package user

import (
	"testing"

	"github.com/geocoder89/househub/internal/auth"
)

func TestPatch_Apply(t *testing.T) {
	u := User{ID: 1, Username: "ada", Email: "ada@example.com", Role: auth.RoleUser}

	if !(Patch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}

	email := "new@example.com"
	role := auth.RoleOwner
	got := Patch{Email: &email, Role: &role}.Apply(u)

	if got.Email != email || got.Role != auth.RoleOwner {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.Username != "ada" {
		t.Fatalf("untouched field changed: %+v", got)
	}
}

func TestUser_Claims(t *testing.T) {
	c := User{ID: 9, Username: "sam", Email: "s@example.com", Phone: "1", Role: auth.RoleAdmin}.Claims()

	if c.UserID != 9 || c.Role != auth.RoleAdmin || c.Email != "s@example.com" {
		t.Fatalf("unexpected claims %+v", c)
	}
}
