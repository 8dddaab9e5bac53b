package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/trailheadapp/trailhead-server/internal/store"
)

func TestUserInsertGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := makeTestUser(t, s, "Ada Lovelace", "Ada@Example.com")

	got, err := s.Users().Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Name != "Ada Lovelace" || got.Email != "Ada@Example.com" {
		t.Errorf("round trip: %+v", got)
	}
	if !got.Active {
		t.Error("expected active user")
	}
}

func TestUserGetByEmailCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	u := makeTestUser(t, s, "Ada", "Ada@Example.com")

	got, err := s.Users().GetByEmail(context.Background(), "ada@example.COM")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("got wrong user: %s", got.ID)
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)

	makeTestUser(t, s, "First", "same@example.com")

	u := makeTestUser(t, s, "Other", "other@example.com")
	u.Email = "SAME@example.com"
	u.Touch()
	if err := s.Users().Update(context.Background(), u); err != store.ErrDuplicate {
		t.Fatalf("expected ErrDuplicate on update, got %v", err)
	}
}

func TestDeactivatedUserIsInvisible(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := makeTestUser(t, s, "Ghost", "ghost@example.com")
	u.Active = false
	u.Touch()
	if err := s.Users().Update(ctx, u); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := s.Users().Get(ctx, u.ID); err != store.ErrNotFound {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Users().GetByEmail(ctx, "ghost@example.com"); err != store.ErrNotFound {
		t.Errorf("GetByEmail: expected ErrNotFound, got %v", err)
	}

	users, err := s.Users().List(ctx, store.ListQuery{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, got := range users {
		if got.ID == u.ID {
			t.Error("deactivated user appeared in listing")
		}
	}
}

func TestUserResetTokenLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := makeTestUser(t, s, "Resetter", "reset@example.com")
	expires := time.Now().Add(10 * time.Minute)
	u.PasswordResetToken = "deadbeefhash"
	u.PasswordResetExpires = &expires
	u.Touch()
	if err := s.Users().Update(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.Users().GetByResetToken(ctx, "deadbeefhash")
	if err != nil {
		t.Fatalf("get by reset token: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("got wrong user: %s", got.ID)
	}
	if got.PasswordResetExpires == nil || !got.PasswordResetExpires.After(time.Now()) {
		t.Errorf("expiry not persisted: %v", got.PasswordResetExpires)
	}

	if _, err := s.Users().GetByResetToken(ctx, "wronghash"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserHardDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := makeTestUser(t, s, "Doomed", "doomed@example.com")
	if err := s.Users().Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Users().Delete(ctx, u.ID); err != store.ErrNotFound {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestUserListFilterByRole(t *testing.T) {
	s := newTestStore(t)

	makeTestUser(t, s, "Plain", "plain@example.com")
	admin := makeTestUser(t, s, "Boss", "boss@example.com")
	admin.Role = "admin"
	admin.Touch()
	if err := s.Users().Update(context.Background(), admin); err != nil {
		t.Fatalf("update: %v", err)
	}

	q := store.ListQuery{
		Conditions: []store.Condition{{Field: "role", Op: store.OpEq, Value: "admin"}},
		Page:       1, Limit: 10,
	}
	users, err := s.Users().List(context.Background(), q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 || users[0].ID != admin.ID {
		t.Errorf("role filter: got %d users", len(users))
	}
}
