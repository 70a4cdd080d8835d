package profiles

import (
	"context"
	"testing"
)

func TestAdminChecker(t *testing.T) {
	repo := NewMemoryRepo(
		Profile{ID: "admin", IsAdmin: true},
		Profile{ID: "member"},
	)
	chk := AdminChecker{Repo: repo}
	ctx := context.Background()

	cases := map[string]bool{"admin": true, "member": false, "missing": false}
	for uid, want := range cases {
		got, err := chk.IsAdmin(ctx, uid)
		if err != nil {
			t.Fatalf("%s: %v", uid, err)
		}
		if got != want {
			t.Fatalf("%s: expected %v, got %v", uid, want, got)
		}
	}
}
