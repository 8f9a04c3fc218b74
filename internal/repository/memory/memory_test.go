package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/exqlabs/roster/internal/domain"
	"github.com/exqlabs/roster/internal/repository"
)

func TestConditionalAddMemberStopsAtCapacity(t *testing.T) {
	store := New()
	ctx := context.Background()
	err := store.CreateTeam(ctx, &domain.Team{
		ID:         "t1",
		Name:       "Alpha",
		LeaderID:   "s1",
		Members:    []string{"s1"},
		MaxMembers: 3,
	})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	for i, studentID := range []string{"s2", "s3"} {
		applied, count, err := store.ConditionalAddMember(ctx, "t1", studentID)
		if err != nil {
			t.Fatalf("add %s: %v", studentID, err)
		}
		if !applied || count != i+2 {
			t.Fatalf("add %s: applied=%v count=%d", studentID, applied, count)
		}
	}

	applied, _, err := store.ConditionalAddMember(ctx, "t1", "s4")
	if err != nil {
		t.Fatalf("add past capacity: %v", err)
	}
	if applied {
		t.Fatal("write applied past capacity")
	}

	// Duplicate admits are refused even with free capacity.
	if err := store.SetMemberList(ctx, "t1", []string{"s1"}); err != nil {
		t.Fatalf("reset members: %v", err)
	}
	applied, _, err = store.ConditionalAddMember(ctx, "t1", "s1")
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if applied {
		t.Fatal("duplicate member write applied")
	}
}

func TestConditionalAddMemberMissingTeam(t *testing.T) {
	store := New()
	applied, _, err := store.ConditionalAddMember(context.Background(), "ghost", "s1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing team, got %v", err)
	}
	if applied {
		t.Fatal("write applied against a missing team")
	}
}

func TestCreateTeamRejectsDuplicateName(t *testing.T) {
	store := New()
	ctx := context.Background()
	if err := store.CreateTeam(ctx, &domain.Team{ID: "t1", Name: "Alpha", MaxMembers: 4}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := store.CreateTeam(ctx, &domain.Team{ID: "t2", Name: "Alpha", MaxMembers: 4})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAddTeamToStudentIsIdempotent(t *testing.T) {
	store := New()
	ctx := context.Background()
	err := store.CreateStudent(ctx, &domain.Student{ID: "s1", Email: "s1@test.com", Role: domain.RoleStudent})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.AddTeamToStudent(ctx, "s1", "t1"); err != nil {
			t.Fatalf("add team ref: %v", err)
		}
	}
	student, err := store.GetStudentByID(ctx, "s1")
	if err != nil {
		t.Fatalf("load student: %v", err)
	}
	if len(student.Teams) != 1 {
		t.Fatalf("student holds %d team refs, want 1", len(student.Teams))
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	store := New()
	ctx := context.Background()
	err := store.CreateTeam(ctx, &domain.Team{ID: "t1", Name: "Alpha", Members: []string{"s1"}, MaxMembers: 4})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	team, err := store.GetTeamByID(ctx, "t1")
	if err != nil {
		t.Fatalf("load team: %v", err)
	}
	team.Members = append(team.Members, "intruder")

	reloaded, err := store.GetTeamByID(ctx, "t1")
	if err != nil {
		t.Fatalf("reload team: %v", err)
	}
	if len(reloaded.Members) != 1 {
		t.Fatal("mutating a returned snapshot leaked into the store")
	}
}
