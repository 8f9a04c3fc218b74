package allocate

import (
	"context"
	"errors"
	"math/rand"
	"sort"

	"log/slog"

	"github.com/exqlabs/roster/internal/domain"
	"github.com/exqlabs/roster/internal/repository"
)

// ErrNoTeams is returned when a batch pass finds no teams to assign into.
var ErrNoTeams = errors.New("no teams available for assignment")

// DualTarget is the membership count the dual-assignment pass drives
// every student toward.
const DualTarget = 2

// SingleReport summarizes a single-assignment pass.
type SingleReport struct {
	Assigned          int
	AlreadyHadTeam    int
	SkippedNoCapacity int
	Processed         int
}

// DualReport summarizes a dual-assignment pass. PerStudent records the
// team ids actually assigned during the pass for every student that was
// considered; partial assignment (0 or 1 teams) is a first-class
// outcome, not a failure.
type DualReport struct {
	PerStudent map[string][]string
	Fully      int
	Partial    int
	Unassigned int
	Skipped    int
}

// Service runs batch membership allocation over a snapshot of teams.
// Each pass owns a local snapshot and discards it at the end; the
// write-time capacity recheck in the repository is the safety net
// against the snapshot going stale under concurrent writers.
type Service struct {
	teams    repository.TeamRepository
	students repository.StudentRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(teams repository.TeamRepository, students repository.StudentRepository, logger *slog.Logger) Service {
	return Service{teams: teams, students: students, logger: logger}
}

// teamState is the allocator's mutable view of one team during a pass.
type teamState struct {
	id         string
	name       string
	members    []string
	maxMembers int
}

func (t *teamState) hasCapacity() bool { return len(t.members) < t.maxMembers }

func (t *teamState) hasMember(studentID string) bool {
	for _, id := range t.members {
		if id == studentID {
			return true
		}
	}
	return false
}

// snapshot loads all teams into pass-local state, preserving the
// repository's stable name order so first-fit is deterministic.
func (s Service) snapshot(ctx context.Context) ([]*teamState, error) {
	teams, err := s.teams.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	states := make([]*teamState, 0, len(teams))
	for _, t := range teams {
		states = append(states, &teamState{
			id:         t.ID,
			name:       t.Name,
			members:    append([]string(nil), t.Members...),
			maxMembers: t.MaxMembers,
		})
	}
	return states, nil
}

// RunSingle assigns every student who has no team to one team.
//
// Target selection is first-fit over the stable team order; when no
// team has a free slot the least-loaded team is nominated to keep load
// balanced, but the write still goes through the conditional add and is
// skipped, never forced, if it would exceed capacity.
func (s Service) RunSingle(ctx context.Context) (SingleReport, error) {
	var report SingleReport

	states, err := s.snapshot(ctx)
	if err != nil {
		return report, err
	}
	if len(states) == 0 {
		return report, ErrNoTeams
	}

	students, err := s.students.ListStudentsByRole(ctx, domain.RoleStudent)
	if err != nil {
		return report, err
	}

	for i := range students {
		student := &students[i]
		report.Processed++

		if student.TeamCount() > 0 {
			report.AlreadyHadTeam++
			continue
		}

		target := firstFit(states)
		if target == nil {
			target = leastLoaded(states, nil)
		}

		applied, _, err := s.teams.ConditionalAddMember(ctx, target.id, student.ID)
		if err != nil {
			// Non-fatal: report the record and keep the pass going.
			s.logger.Warn("assignment write failed", "team", target.name, "student", student.Email, "error", err)
			continue
		}
		if !applied {
			report.SkippedNoCapacity++
			s.logger.Warn("assignment skipped, team at capacity", "team", target.name, "student", student.Email)
			continue
		}

		target.members = append(target.members, student.ID)
		if err := s.students.AddTeamToStudent(ctx, student.ID, target.id); err != nil {
			s.logger.Warn("student team reference not written", "team", target.name, "student", student.Email, "error", err)
		}
		report.Assigned++
		s.logger.Info("assigned student to team", "team", target.name, "student", student.Email)
	}

	s.logger.Info("single assignment complete",
		"assigned", report.Assigned,
		"already_had_team", report.AlreadyHadTeam,
		"skipped_no_capacity", report.SkippedNoCapacity,
		"processed", report.Processed)
	return report, nil
}

// RunDual drives every student toward exactly two team memberships.
//
// Candidate teams with free slots are shuffled with the provided seed
// so repeated runs with the same seed pick the same teams; the shuffle
// affects distribution fairness only, never correctness. Students
// already holding two or more teams are skipped.
func (s Service) RunDual(ctx context.Context, seed int64) (DualReport, error) {
	report := DualReport{PerStudent: make(map[string][]string)}

	states, err := s.snapshot(ctx)
	if err != nil {
		return report, err
	}
	if len(states) == 0 {
		return report, ErrNoTeams
	}

	students, err := s.students.ListStudentsByRole(ctx, domain.RoleStudent)
	if err != nil {
		return report, err
	}

	rng := rand.New(rand.NewSource(seed))

	for i := range students {
		student := &students[i]

		if student.TeamCount() >= DualTarget {
			report.Skipped++
			s.logger.Info("skipping student, already at target", "student", student.Email, "teams", student.TeamCount())
			continue
		}

		want := DualTarget - student.TeamCount()
		picked := s.pickTeams(states, student, want, rng)

		assigned := make([]string, 0, len(picked))
		for _, target := range picked {
			applied, _, err := s.teams.ConditionalAddMember(ctx, target.id, student.ID)
			if err != nil {
				s.logger.Warn("assignment write failed", "team", target.name, "student", student.Email, "error", err)
				continue
			}
			if !applied {
				s.logger.Warn("assignment skipped, team at capacity", "team", target.name, "student", student.Email)
				continue
			}
			target.members = append(target.members, student.ID)
			assigned = append(assigned, target.id)
		}

		for _, teamID := range assigned {
			if err := s.students.AddTeamToStudent(ctx, student.ID, teamID); err != nil {
				s.logger.Warn("student team reference not written", "team_id", teamID, "student", student.Email, "error", err)
			}
		}

		report.PerStudent[student.ID] = assigned
		switch {
		case student.TeamCount()+len(assigned) >= DualTarget:
			report.Fully++
		case len(assigned) > 0:
			report.Partial++
			s.logger.Info("student partially assigned", "student", student.Email, "assigned", len(assigned))
		default:
			report.Unassigned++
			s.logger.Warn("student could not be assigned, no capacity", "student", student.Email)
		}
	}

	s.logger.Info("dual assignment complete",
		"fully_assigned", report.Fully,
		"partially_assigned", report.Partial,
		"unassigned", report.Unassigned,
		"skipped", report.Skipped)
	return report, nil
}

// pickTeams selects up to want distinct teams for the student: shuffled
// teams with free slots first, then a least-loaded backfill. Teams the
// student is already on are never candidates.
func (s Service) pickTeams(states []*teamState, student *domain.Student, want int, rng *rand.Rand) []*teamState {
	available := make([]*teamState, 0, len(states))
	for _, t := range states {
		if t.hasCapacity() && !t.hasMember(student.ID) && !student.HasTeam(t.id) {
			available = append(available, t)
		}
	}
	rng.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})

	picked := make([]*teamState, 0, want)
	for _, t := range available {
		if len(picked) >= want {
			break
		}
		picked = append(picked, t)
	}

	for len(picked) < want {
		next := leastLoaded(states, func(t *teamState) bool {
			return t.hasCapacity() && !t.hasMember(student.ID) && !student.HasTeam(t.id) && !contains(picked, t)
		})
		if next == nil {
			break
		}
		picked = append(picked, next)
	}
	return picked
}

// firstFit returns the first team in stable order with a free slot.
func firstFit(states []*teamState) *teamState {
	for _, t := range states {
		if t.hasCapacity() {
			return t
		}
	}
	return nil
}

// leastLoaded returns the admissible team with the fewest members,
// breaking ties by stable order. A nil filter admits every team.
func leastLoaded(states []*teamState, filter func(*teamState) bool) *teamState {
	candidates := make([]*teamState, 0, len(states))
	for _, t := range states {
		if filter == nil || filter(t) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].members) < len(candidates[j].members)
	})
	return candidates[0]
}

func contains(picked []*teamState, t *teamState) bool {
	for _, p := range picked {
		if p.id == t.id {
			return true
		}
	}
	return false
}
