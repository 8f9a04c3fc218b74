package repair

import (
	"context"

	"log/slog"

	"github.com/exqlabs/roster/internal/domain"
	"github.com/exqlabs/roster/internal/repository"
)

// TeamPlan is the correction computed for one oversized team: the
// ordered member list to keep and the members to evict.
type TeamPlan struct {
	TeamID   string
	TeamName string
	Kept     []string
	Removed  []string
}

// Plan is the full correction for one repair pass. A team appears only
// when it violates its capacity, so a pass over an already-repaired
// store yields an empty plan.
type Plan struct {
	Teams []TeamPlan
}

// Service scans teams for capacity violations and trims them back to
// their bound. Violations can arise from historical bugs, a schema
// change lowering max_members, or races that predate the guarded join
// path.
type Service struct {
	teams    repository.TeamRepository
	students repository.StudentRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(teams repository.TeamRepository, students repository.StudentRepository, logger *slog.Logger) Service {
	return Service{teams: teams, students: students, logger: logger}
}

// Run computes the correction plan for every oversized team and, unless
// dryRun is set, applies it. Dry-run and mutating mode share the same
// selection path, so the reported and applied outcomes never diverge.
// Re-running after an interrupted pass is safe: a team trimmed to its
// bound no longer matches and produces no further changes.
func (s Service) Run(ctx context.Context, dryRun bool) (Plan, error) {
	var plan Plan

	teams, err := s.teams.ListTeams(ctx)
	if err != nil {
		return plan, err
	}

	for i := range teams {
		team := &teams[i]
		if len(team.Members) <= team.MaxMembers {
			continue
		}

		tp := planTeam(team)
		plan.Teams = append(plan.Teams, tp)
		s.logger.Info("team over capacity",
			"team", team.Name,
			"members", len(team.Members),
			"max_members", team.MaxMembers,
			"evicting", len(tp.Removed))

		if dryRun {
			continue
		}

		if err := s.teams.SetMemberList(ctx, team.ID, tp.Kept); err != nil {
			// Non-fatal: leave this team for a later pass.
			s.logger.Warn("member list not trimmed", "team", team.Name, "error", err)
			continue
		}
		for _, studentID := range tp.Removed {
			if err := s.students.RemoveTeamFromStudent(ctx, studentID, team.ID); err != nil {
				s.logger.Warn("team reference not removed from student", "team", team.Name, "student_id", studentID, "error", err)
				continue
			}
			s.logger.Info("removed student from team", "team", team.Name, "student_id", studentID)
		}
	}

	s.logger.Info("capacity repair complete", "teams_fixed", len(plan.Teams), "dry_run", dryRun)
	return plan, nil
}

// planTeam orders the members with the leader forced to the front, then
// keeps the first max_members entries in their original relative order.
// The leader is never evicted.
func planTeam(team *domain.Team) TeamPlan {
	ordered := make([]string, 0, len(team.Members))
	if team.LeaderID != "" && team.IsMember(team.LeaderID) {
		ordered = append(ordered, team.LeaderID)
	}
	for _, id := range team.Members {
		if id != team.LeaderID {
			ordered = append(ordered, id)
		}
	}

	return TeamPlan{
		TeamID:   team.ID,
		TeamName: team.Name,
		Kept:     ordered[:team.MaxMembers],
		Removed:  ordered[team.MaxMembers:],
	}
}
