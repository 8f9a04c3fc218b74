package team

import (
	"context"
	"errors"
	"strings"

	"log/slog"

	"github.com/google/uuid"

	"github.com/exqlabs/roster/internal/domain"
	"github.com/exqlabs/roster/internal/repository"
)

var (
	ErrInvalidName     = errors.New("team name is required")
	ErrNameTaken       = errors.New("team name already exists")
	ErrInvalidCapacity = errors.New("team capacity outside allowed bound")
	ErrNotMember       = errors.New("student is not a member of the team")
	ErrNotFaculty      = errors.New("assigned mentor must hold the faculty role")
)

// Service handles interactive team workflows: creation, leaving, and
// mentor assignment. Member admission goes through the join service,
// never through here.
type Service struct {
	teams    repository.TeamRepository
	students repository.StudentRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(teams repository.TeamRepository, students repository.StudentRepository, logger *slog.Logger) Service {
	return Service{teams: teams, students: students, logger: logger}
}

// NewTeam carries the creator-supplied fields for a team.
type NewTeam struct {
	Name        string
	Description string
	MaxMembers  int
	Department  string
}

// Create registers a team with the creator as leader and sole member.
// A zero MaxMembers takes the default; anything outside the allowed
// bound is rejected rather than silently corrected.
func (s Service) Create(ctx context.Context, leaderID string, nt NewTeam) (*domain.Team, error) {
	name := strings.TrimSpace(nt.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if nt.MaxMembers == 0 {
		nt.MaxMembers = domain.DefaultTeamCapacity
	}
	if !domain.ValidCapacity(nt.MaxMembers) {
		return nil, ErrInvalidCapacity
	}
	if _, err := s.students.GetStudentByID(ctx, leaderID); err != nil {
		return nil, err
	}

	team := &domain.Team{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(nt.Description),
		LeaderID:    leaderID,
		Members:     []string{leaderID},
		MaxMembers:  nt.MaxMembers,
		Department:  strings.TrimSpace(nt.Department),
		IsActive:    true,
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	if err := s.students.AddTeamToStudent(ctx, leaderID, team.ID); err != nil {
		return nil, err
	}

	s.logger.Info("team created", "team", team.Name, "leader_id", leaderID, "max_members", team.MaxMembers)
	return team, nil
}

// Leave removes the student from the team. A departing leader hands
// leadership to the next member; the last member leaving deletes the
// team entirely.
func (s Service) Leave(ctx context.Context, studentID, teamID string) error {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	if !team.IsMember(studentID) {
		return ErrNotMember
	}

	switch {
	case team.LeaderID == studentID && len(team.Members) > 1:
		next := nextLeader(team, studentID)
		if err := s.teams.SetLeader(ctx, team.ID, next); err != nil {
			return err
		}
		if err := s.teams.RemoveMember(ctx, team.ID, studentID); err != nil {
			return err
		}
		s.logger.Info("leadership transferred", "team", team.Name, "new_leader_id", next)
	case team.LeaderID == studentID:
		if err := s.teams.DeleteTeam(ctx, team.ID); err != nil {
			return err
		}
		s.logger.Info("team deleted, last member left", "team", team.Name)
	default:
		if err := s.teams.RemoveMember(ctx, team.ID, studentID); err != nil {
			return err
		}
	}

	if err := s.students.RemoveTeamFromStudent(ctx, studentID, teamID); err != nil {
		return err
	}
	s.logger.Info("student left team", "team", team.Name, "student_id", studentID)
	return nil
}

// ListMine returns the teams the student currently belongs to. Stale
// references to since-deleted teams are skipped, not fatal.
func (s Service) ListMine(ctx context.Context, studentID string) ([]domain.Team, error) {
	student, err := s.students.GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	teams := make([]domain.Team, 0, len(student.Teams))
	for _, teamID := range student.Teams {
		team, err := s.teams.GetTeamByID(ctx, teamID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("student holds reference to missing team", "student_id", studentID, "team_id", teamID)
				continue
			}
			return nil, err
		}
		teams = append(teams, *team)
	}
	return teams, nil
}

// AssignFaculty records a faculty mentor for the team.
func (s Service) AssignFaculty(ctx context.Context, teamID, facultyID string) error {
	faculty, err := s.students.GetStudentByID(ctx, facultyID)
	if err != nil {
		return err
	}
	if faculty.Role != domain.RoleFaculty {
		return ErrNotFaculty
	}
	if err := s.teams.SetAssignedFaculty(ctx, teamID, facultyID); err != nil {
		return err
	}
	s.logger.Info("faculty assigned to team", "team_id", teamID, "faculty_id", facultyID)
	return nil
}

// SetDomain assigns a subject domain to the named team. It reports
// whether a team matched.
func (s Service) SetDomain(ctx context.Context, name, teamDomain string) (bool, error) {
	return s.teams.SetTeamDomain(ctx, name, teamDomain)
}

// nextLeader picks the earliest member other than the departing leader.
func nextLeader(team *domain.Team, departing string) string {
	for _, id := range team.Members {
		if id != departing {
			return id
		}
	}
	return ""
}
