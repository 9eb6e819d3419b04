package usecase

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/team"
	"github.com/kfcrebrand/registration/internal/infrastructure/repository/memory"
)

func testPolicy() team.RosterPolicy {
	policy := team.DefaultPolicy()
	policy.RegistrationStart = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	policy.SelectionEnd = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return policy
}

func openWindowNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func rawList(ids ...int64) json.RawMessage {
	if ids == nil {
		ids = []int64{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		panic(err)
	}
	return encoded
}

func TestRosterService_ApplyMembership(t *testing.T) {
	store := memory.SeedStore()
	service := NewRosterService(store.Teams(), testPolicy(), discardLogger())
	service.now = openWindowNow

	membership, err := service.ApplyMembership(t.Context(), "CA", MembershipUpdate{
		Players: rawList(1, 2, 3, 4, 5, 6),
		Backups: rawList(7, 8),
		Captain: json.RawMessage("1"),
	})
	if err != nil {
		t.Fatalf("apply membership failed: %v", err)
	}

	if len(membership.Roster) != 6 {
		t.Fatalf("expected 6 roster members, got %d", len(membership.Roster))
	}
	if len(membership.Backups) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(membership.Backups))
	}
	if len(membership.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(membership.Candidates))
	}

	captain, ok := membership.Captain()
	if !ok || captain.ID != 1 {
		t.Fatalf("expected captain 1, got %+v ok=%v", captain, ok)
	}

	// Shrinking the roster clears flags on dropped members.
	membership, err = service.ApplyMembership(t.Context(), "CA", MembershipUpdate{
		Players: rawList(1, 2, 3, 4, 5, 9),
		Backups: rawList(7),
		Captain: json.RawMessage("1"),
	})
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	if len(membership.Roster) != 6 || len(membership.Backups) != 1 {
		t.Fatalf("unexpected sizes after shrink: roster=%d backups=%d", len(membership.Roster), len(membership.Backups))
	}
	for _, p := range membership.Candidates {
		if p.ID == 6 && (p.InRoster || p.InBackupRoster || p.IsCaptain) {
			t.Fatalf("expected dropped member 6 to be cleared, got %+v", p)
		}
	}
}

func TestRosterService_ApplyMembership_CaptainHandling(t *testing.T) {
	store := memory.SeedStore()
	service := NewRosterService(store.Teams(), testPolicy(), discardLogger())
	service.now = openWindowNow

	// Captain outside the requested roster resolves to no captain.
	membership, err := service.ApplyMembership(t.Context(), "CA", MembershipUpdate{
		Players: rawList(1, 2, 3, 4, 5, 6),
		Backups: rawList(),
		Captain: json.RawMessage("9"),
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if _, ok := membership.Captain(); ok {
		t.Fatal("expected no captain when requested id is outside the roster")
	}

	// Explicit null clears an existing captain.
	if _, err := service.ApplyMembership(t.Context(), "CA", MembershipUpdate{
		Players: rawList(1, 2, 3, 4, 5, 6),
		Backups: rawList(),
		Captain: json.RawMessage("1"),
	}); err != nil {
		t.Fatalf("set captain failed: %v", err)
	}
	membership, err = service.ApplyMembership(t.Context(), "CA", MembershipUpdate{
		Players: rawList(1, 2, 3, 4, 5, 6),
		Backups: rawList(),
		Captain: json.RawMessage("null"),
	})
	if err != nil {
		t.Fatalf("clear captain failed: %v", err)
	}
	if _, ok := membership.Captain(); ok {
		t.Fatal("expected captain cleared by null")
	}

	// Omitting the key clears as well.
	membership, err = service.ApplyMembership(t.Context(), "CA", MembershipUpdate{
		Players: rawList(1, 2, 3, 4, 5, 6),
		Backups: rawList(),
	})
	if err != nil {
		t.Fatalf("omit captain failed: %v", err)
	}
	if _, ok := membership.Captain(); ok {
		t.Fatal("expected captain cleared when key omitted")
	}

	if _, err := service.ApplyMembership(t.Context(), "CA", MembershipUpdate{
		Players: rawList(1, 2, 3, 4, 5, 6),
		Backups: rawList(),
		Captain: json.RawMessage(`"one"`),
	}); !errors.Is(err, ErrInvalidCaptainType) {
		t.Fatalf("expected ErrInvalidCaptainType, got %v", err)
	}
}

func TestRosterService_ApplyMembership_Validation(t *testing.T) {
	store := memory.SeedStore()
	service := NewRosterService(store.Teams(), testPolicy(), discardLogger())
	service.now = openWindowNow

	cases := []struct {
		name     string
		update   MembershipUpdate
		sentinel error
		contains string
	}{
		{
			name:     "both fields missing",
			update:   MembershipUpdate{},
			sentinel: ErrMissingField,
			contains: "players, backups",
		},
		{
			name:     "backups missing",
			update:   MembershipUpdate{Players: rawList(1)},
			sentinel: ErrMissingField,
			contains: "backups",
		},
		{
			name:     "players not a list",
			update:   MembershipUpdate{Players: json.RawMessage(`"nope"`), Backups: rawList()},
			sentinel: ErrInvalidFieldType,
		},
		{
			name:     "players null",
			update:   MembershipUpdate{Players: json.RawMessage("null"), Backups: rawList()},
			sentinel: ErrInvalidFieldType,
		},
		{
			name:     "roster too large",
			update:   MembershipUpdate{Players: rawList(1, 2, 3, 4, 5, 6, 7, 8, 9), Backups: rawList()},
			sentinel: ErrRosterSizeExceeded,
		},
		{
			name:     "too many backups",
			update:   MembershipUpdate{Players: rawList(1, 2, 3, 4, 5, 6), Backups: rawList(7, 8, 9)},
			sentinel: ErrRosterSizeExceeded,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.ApplyMembership(t.Context(), "CA", tc.update)
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("expected %v, got %v", tc.sentinel, err)
			}
			if tc.contains != "" && !strings.Contains(err.Error(), tc.contains) {
				t.Fatalf("expected error to mention %q, got %q", tc.contains, err.Error())
			}
		})
	}
}

func TestRosterService_ApplyMembership_ConflictRollsBack(t *testing.T) {
	store := memory.SeedStore()
	service := NewRosterService(store.Teams(), testPolicy(), discardLogger())
	service.now = openWindowNow

	before, err := service.ApplyMembership(t.Context(), "CA", MembershipUpdate{
		Players: rawList(1, 2, 3, 4, 5, 6),
		Backups: rawList(7),
	})
	if err != nil {
		t.Fatalf("setup apply failed: %v", err)
	}

	_, err = service.ApplyMembership(t.Context(), "CA", MembershipUpdate{
		Players: rawList(1, 2, 3, 4, 5, 6),
		Backups: rawList(6),
	})
	if !errors.Is(err, team.ErrConflictingMembership) {
		t.Fatalf("expected ErrConflictingMembership, got %v", err)
	}

	after, err := service.Membership(t.Context(), "CA")
	if err != nil {
		t.Fatalf("membership read failed: %v", err)
	}
	if len(after.Roster) != len(before.Roster) || len(after.Backups) != len(before.Backups) {
		t.Fatalf("expected state unchanged after rejected edit: before roster=%d backups=%d, after roster=%d backups=%d",
			len(before.Roster), len(before.Backups), len(after.Roster), len(after.Backups))
	}
}

func TestRosterService_ApplyMembership_Window(t *testing.T) {
	store := memory.SeedStore()
	policy := testPolicy()
	service := NewRosterService(store.Teams(), policy, discardLogger())

	update := MembershipUpdate{Players: rawList(1, 2, 3, 4, 5, 6), Backups: rawList()}

	service.now = func() time.Time { return policy.RegistrationStart.Add(-26 * time.Hour) }
	_, err := service.ApplyMembership(t.Context(), "CA", update)
	if !errors.Is(err, ErrNotYetOpen) {
		t.Fatalf("expected ErrNotYetOpen, got %v", err)
	}
	if !strings.Contains(err.Error(), "Registration opens in") {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	service.now = func() time.Time { return policy.SelectionEnd.Add(90 * time.Minute) }
	_, err = service.ApplyMembership(t.Context(), "CA", update)
	if !errors.Is(err, ErrSelectionClosed) {
		t.Fatalf("expected ErrSelectionClosed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Roster selection ended") || !strings.Contains(err.Error(), "ago") {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	// The window check fires before payload validation.
	_, err = service.ApplyMembership(t.Context(), "CA", MembershipUpdate{})
	if !errors.Is(err, ErrSelectionClosed) {
		t.Fatalf("expected window error before validation, got %v", err)
	}

	// Reads stay open regardless of the window.
	if _, err := service.Membership(t.Context(), "CA"); err != nil {
		t.Fatalf("membership read failed: %v", err)
	}
}

func TestRosterService_ApplyMembership_OpenAfterRegistrationEnd(t *testing.T) {
	store := memory.SeedStore()
	policy := testPolicy()
	registrationEnd := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	policy.RegistrationEnd = &registrationEnd
	service := NewRosterService(store.Teams(), policy, discardLogger())

	// Sign-ups are closed but roster selection is still running; edits
	// must go through until SelectionEnd.
	service.now = func() time.Time { return registrationEnd.Add(72 * time.Hour) }

	if _, err := service.ApplyMembership(t.Context(), "CA", MembershipUpdate{
		Players: rawList(1, 2, 3, 4, 5, 6),
		Backups: rawList(),
	}); err != nil {
		t.Fatalf("edit between registration end and selection end failed: %v", err)
	}
}

func TestRosterService_UnknownTeam(t *testing.T) {
	store := memory.SeedStore()
	service := NewRosterService(store.Teams(), testPolicy(), discardLogger())
	service.now = openWindowNow

	if _, err := service.Membership(t.Context(), "ZZ"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err := service.ApplyMembership(t.Context(), "ZZ", MembershipUpdate{
		Players: rawList(1),
		Backups: rawList(),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
