package join

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"log/slog"

	"github.com/exqlabs/roster/internal/domain"
	"github.com/exqlabs/roster/internal/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedStore(t *testing.T, store *memory.Store, team *domain.Team, studentIDs ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range studentIDs {
		err := store.CreateStudent(ctx, &domain.Student{
			ID:    id,
			Name:  id,
			Email: id + "@test.com",
			Role:  domain.RoleStudent,
		})
		if err != nil {
			t.Fatalf("seed student %s: %v", id, err)
		}
	}
	if team != nil {
		if err := store.CreateTeam(ctx, team); err != nil {
			t.Fatalf("seed team: %v", err)
		}
		for _, id := range team.Members {
			if err := store.AddTeamToStudent(ctx, id, team.ID); err != nil {
				t.Fatalf("link member: %v", err)
			}
		}
	}
}

func TestTryJoinAdmitsThenRejectsAtCapacity(t *testing.T) {
	store := memory.New()
	seedStore(t, store, &domain.Team{
		ID:         "team-1",
		Name:       "CodeMasters",
		LeaderID:   "s1",
		Members:    []string{"s1", "s2", "s3"},
		MaxMembers: 4,
	}, "s1", "s2", "s3", "s4", "s5")

	svc := New(store, store, testLogger())
	ctx := context.Background()

	res, err := svc.TryJoin(ctx, "s4", "CodeMasters")
	if err != nil {
		t.Fatalf("TryJoin returned error: %v", err)
	}
	if res.Outcome != Admitted {
		t.Fatalf("expected Admitted, got %s", res.Outcome)
	}
	if res.MemberCount != 4 {
		t.Fatalf("expected 4 members after admit, got %d", res.MemberCount)
	}

	res, err = svc.TryJoin(ctx, "s5", "CodeMasters")
	if err != nil {
		t.Fatalf("TryJoin returned error: %v", err)
	}
	if res.Outcome != RejectedNoCapacity {
		t.Fatalf("expected RejectedNoCapacity, got %s", res.Outcome)
	}

	team, err := store.GetTeamByName(ctx, "CodeMasters")
	if err != nil {
		t.Fatalf("reload team: %v", err)
	}
	if len(team.Members) != team.MaxMembers {
		t.Fatalf("team has %d members, want %d", len(team.Members), team.MaxMembers)
	}
	assertBidirectional(t, store, team.ID, "s4", true)
	assertBidirectional(t, store, team.ID, "s5", false)
}

func TestTryJoinTeamNotFound(t *testing.T) {
	store := memory.New()
	seedStore(t, store, nil, "s1")

	svc := New(store, store, testLogger())
	res, err := svc.TryJoin(context.Background(), "s1", "NoSuchTeam")
	if err != nil {
		t.Fatalf("TryJoin returned error: %v", err)
	}
	if res.Outcome != RejectedTeamNotFound {
		t.Fatalf("expected RejectedTeamNotFound, got %s", res.Outcome)
	}
}

func TestTryJoinAlreadyMemberHealsStudentSide(t *testing.T) {
	store := memory.New()
	seedStore(t, store, &domain.Team{
		ID:         "team-1",
		Name:       "Data Wizards",
		LeaderID:   "s1",
		Members:    []string{"s1", "s2"},
		MaxMembers: 4,
	}, "s1", "s2")

	ctx := context.Background()
	// Simulate an interrupted earlier join: team side written, student
	// side missing.
	if err := store.RemoveTeamFromStudent(ctx, "s2", "team-1"); err != nil {
		t.Fatalf("detach student side: %v", err)
	}

	svc := New(store, store, testLogger())
	res, err := svc.TryJoin(ctx, "s2", "Data Wizards")
	if err != nil {
		t.Fatalf("TryJoin returned error: %v", err)
	}
	if res.Outcome != RejectedAlreadyMember {
		t.Fatalf("expected RejectedAlreadyMember, got %s", res.Outcome)
	}
	assertBidirectional(t, store, "team-1", "s2", true)
}

// vanishingStore deletes the team as soon as it is looked up, modeling
// a deletion that lands between the name lookup and the member write.
type vanishingStore struct {
	*memory.Store
}

func (v *vanishingStore) GetTeamByName(ctx context.Context, name string) (*domain.Team, error) {
	team, err := v.Store.GetTeamByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := v.Store.DeleteTeam(ctx, team.ID); err != nil {
		return nil, err
	}
	return team, nil
}

func TestTryJoinTeamDeletedBetweenLookupAndWrite(t *testing.T) {
	store := memory.New()
	seedStore(t, store, &domain.Team{
		ID:         "team-1",
		Name:       "Ephemeral",
		LeaderID:   "s1",
		Members:    []string{"s1"},
		MaxMembers: 4,
	}, "s1", "s2")

	svc := New(&vanishingStore{Store: store}, store, testLogger())
	res, err := svc.TryJoin(context.Background(), "s2", "Ephemeral")
	if err != nil {
		t.Fatalf("TryJoin returned error: %v", err)
	}
	if res.Outcome != RejectedTeamNotFound {
		t.Fatalf("expected RejectedTeamNotFound, got %s", res.Outcome)
	}
	student, err := store.GetStudentByID(context.Background(), "s2")
	if err != nil {
		t.Fatalf("load student: %v", err)
	}
	if student.HasTeam("team-1") {
		t.Fatal("rejected join left a student-side team reference")
	}
}

func TestTryJoinConcurrentAdmitsExactlyRemainingSlots(t *testing.T) {
	const attempts = 10

	store := memory.New()
	team := &domain.Team{
		ID:         "team-1",
		Name:       "AI Innovators",
		LeaderID:   "s0",
		Members:    []string{"s0"},
		MaxMembers: 4,
	}
	ids := []string{"s0"}
	for i := 1; i <= attempts; i++ {
		ids = append(ids, fmt.Sprintf("j%d", i))
	}
	seedStore(t, store, team, ids...)
	remaining := team.MaxMembers - len(team.Members)

	svc := New(store, store, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	outcomes := make([]Outcome, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.TryJoin(ctx, fmt.Sprintf("j%d", i+1), "AI Innovators")
			if err != nil {
				t.Errorf("TryJoin %d returned error: %v", i, err)
				return
			}
			outcomes[i] = res.Outcome
		}(i)
	}
	wg.Wait()

	admitted, rejected := 0, 0
	for _, o := range outcomes {
		switch o {
		case Admitted:
			admitted++
		case RejectedNoCapacity:
			rejected++
		default:
			t.Fatalf("unexpected outcome %s", o)
		}
	}
	if admitted != remaining {
		t.Fatalf("admitted %d, want exactly %d", admitted, remaining)
	}
	if rejected != attempts-remaining {
		t.Fatalf("rejected %d, want %d", rejected, attempts-remaining)
	}

	final, err := store.GetTeamByID(ctx, "team-1")
	if err != nil {
		t.Fatalf("reload team: %v", err)
	}
	if len(final.Members) != final.MaxMembers {
		t.Fatalf("team has %d members, want %d", len(final.Members), final.MaxMembers)
	}
	for _, id := range final.Members {
		assertBidirectional(t, store, final.ID, id, true)
	}
}

// assertBidirectional verifies the two views of the membership agree.
func assertBidirectional(t *testing.T, store *memory.Store, teamID, studentID string, want bool) {
	t.Helper()
	ctx := context.Background()
	team, err := store.GetTeamByID(ctx, teamID)
	if err != nil {
		t.Fatalf("load team: %v", err)
	}
	student, err := store.GetStudentByID(ctx, studentID)
	if err != nil {
		t.Fatalf("load student: %v", err)
	}
	if got := team.IsMember(studentID); got != want {
		t.Fatalf("team.IsMember(%s) = %v, want %v", studentID, got, want)
	}
	if got := student.HasTeam(teamID); got != want {
		t.Fatalf("student.HasTeam(%s) = %v, want %v", teamID, got, want)
	}
}
