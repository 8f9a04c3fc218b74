package join

import (
	"context"
	"errors"

	"log/slog"

	"github.com/exqlabs/roster/internal/domain"
	"github.com/exqlabs/roster/internal/repository"
)

// Outcome is the terminal state of a join request. Capacity exhaustion
// and prior membership are expected user-facing outcomes, not errors.
type Outcome string

const (
	Admitted              Outcome = "admitted"
	RejectedAlreadyMember Outcome = "rejected_already_member"
	RejectedNoCapacity    Outcome = "rejected_no_capacity"
	RejectedTeamNotFound  Outcome = "rejected_team_not_found"
)

// Result reports how a join request terminated. Team is populated for
// every outcome except RejectedTeamNotFound; MemberCount holds the
// team's size after an admit.
type Result struct {
	Outcome     Outcome
	Team        *domain.Team
	MemberCount int
}

// Service admits one student into one named team without a race window
// between the capacity check and the membership write.
type Service struct {
	teams    repository.TeamRepository
	students repository.StudentRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(teams repository.TeamRepository, students repository.StudentRepository, logger *slog.Logger) Service {
	return Service{teams: teams, students: students, logger: logger}
}

// TryJoin resolves the named team and attempts to admit the student.
//
// The capacity check is not performed here; it is embedded in the
// repository's conditional write so that simultaneous requests cannot
// both pass a stale check and overshoot capacity. The student-side
// reference is only written after the team-side write applied, so a
// team-updated/student-not state is never left behind by a rejection.
func (s Service) TryJoin(ctx context.Context, studentID, teamName string) (Result, error) {
	team, err := s.teams.GetTeamByName(ctx, teamName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result{Outcome: RejectedTeamNotFound}, nil
		}
		return Result{}, err
	}

	if team.IsMember(studentID) {
		// Re-issue the idempotent student-side add so a join that was
		// interrupted between the two writes heals on retry.
		if err := s.students.AddTeamToStudent(ctx, studentID, team.ID); err != nil {
			return Result{}, err
		}
		return Result{Outcome: RejectedAlreadyMember, Team: team, MemberCount: len(team.Members)}, nil
	}

	applied, newCount, err := s.teams.ConditionalAddMember(ctx, team.ID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Deleted between the name lookup and the write.
			return Result{Outcome: RejectedTeamNotFound}, nil
		}
		return Result{}, err
	}
	if !applied {
		// Full, or the row changed since the snapshot was read.
		s.logger.Info("join rejected", "team", team.Name, "student_id", studentID, "members", len(team.Members), "max_members", team.MaxMembers)
		return Result{Outcome: RejectedNoCapacity, Team: team, MemberCount: len(team.Members)}, nil
	}

	if err := s.students.AddTeamToStudent(ctx, studentID, team.ID); err != nil {
		// The team-side write committed; the add is idempotent, so the
		// caller may retry to converge the student side.
		s.logger.Warn("student team reference not written", "team", team.Name, "student_id", studentID, "error", err)
		return Result{}, err
	}

	s.logger.Info("student joined team", "team", team.Name, "student_id", studentID, "members", newCount)
	return Result{Outcome: Admitted, Team: team, MemberCount: newCount}, nil
}
