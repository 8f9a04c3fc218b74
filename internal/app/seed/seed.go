package seed

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/google/uuid"

	"github.com/exqlabs/roster/internal/domain"
	"github.com/exqlabs/roster/internal/repository"
	"github.com/exqlabs/roster/pkg/crypto"
)

// Seeder populates demo data. It is append-only: existing records are
// reused by email or team name and never deleted, so re-running it is
// safe at any time.
type Seeder struct {
	teams    repository.TeamRepository
	students repository.StudentRepository
	password string
	logger   *slog.Logger
}

// New constructs a Seeder. password is the plaintext assigned to every
// seeded demo account.
func New(teams repository.TeamRepository, students repository.StudentRepository, password string, logger *slog.Logger) Seeder {
	return Seeder{teams: teams, students: students, password: password, logger: logger}
}

const studentCount = 16

var facultyNames = []string{
	"Prof. Rajesh Kumar",
	"Prof. Priya Sharma",
	"Prof. Karan Mehta",
	"Prof. Sangeeta Rao",
}

var teamSeeds = []struct {
	name   string
	domain string
}{
	{"CodeMasters", "Data Structures"},
	{"WebDevelopers", "Web Development"},
	{"AI Innovators", "Machine Learning"},
	{"Data Wizards", "Database Design"},
}

// Run ensures the demo admin, faculty, students, and teams exist.
func (s Seeder) Run(ctx context.Context) error {
	hash, err := crypto.HashPassword(s.password)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	if _, err := s.ensureStudent(ctx, domain.Student{
		Name:       "Admin User",
		Email:      "admin@test.com",
		Role:       domain.RoleAdmin,
		Department: "Administration",
	}, hash); err != nil {
		return err
	}

	faculty := make([]domain.Student, 0, len(facultyNames))
	for i, name := range facultyNames {
		f, err := s.ensureStudent(ctx, domain.Student{
			Name:       name,
			Email:      fmt.Sprintf("faculty%d@test.com", i+1),
			Role:       domain.RoleFaculty,
			Department: "Computer Science",
		}, hash)
		if err != nil {
			return err
		}
		faculty = append(faculty, *f)
	}

	students := make([]domain.Student, 0, studentCount)
	for i := 1; i <= studentCount; i++ {
		dept := "Computer Science"
		if i > studentCount/2 {
			dept = "Information Technology"
		}
		st, err := s.ensureStudent(ctx, domain.Student{
			Name:       fmt.Sprintf("Student %d", i),
			Email:      fmt.Sprintf("student%d@test.com", i),
			Role:       domain.RoleStudent,
			RollNumber: fmt.Sprintf("20210%03d", i),
			Department: dept,
			Year:       (i % 4) + 1,
		}, hash)
		if err != nil {
			return err
		}
		students = append(students, *st)
	}

	for i, ts := range teamSeeds {
		leader := students[i%len(students)]
		members := []string{
			leader.ID,
			students[(i+1)%len(students)].ID,
			students[(i+2)%len(students)].ID,
		}
		mentor := ""
		if len(faculty) > 0 {
			mentor = faculty[i%len(faculty)].ID
		}
		if err := s.ensureTeam(ctx, domain.Team{
			Name:            ts.name,
			Description:     ts.name + " working on projects",
			LeaderID:        leader.ID,
			Members:         members,
			MaxMembers:      domain.DefaultTeamCapacity,
			Department:      leader.Department,
			Domain:          ts.domain,
			AssignedFaculty: mentor,
			IsActive:        true,
		}); err != nil {
			return err
		}
	}

	s.logger.Info("seed complete", "students", len(students), "faculty", len(faculty), "teams", len(teamSeeds))
	return nil
}

func (s Seeder) ensureStudent(ctx context.Context, st domain.Student, hash []byte) (*domain.Student, error) {
	existing, err := s.students.GetStudentByEmail(ctx, st.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	st.ID = uuid.NewString()
	st.PasswordHash = hash
	if err := s.students.CreateStudent(ctx, &st); err != nil {
		return nil, fmt.Errorf("create %s: %w", st.Email, err)
	}
	s.logger.Info("seeded account", "email", st.Email, "role", st.Role)
	return &st, nil
}

func (s Seeder) ensureTeam(ctx context.Context, t domain.Team) error {
	_, err := s.teams.GetTeamByName(ctx, t.Name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	t.ID = uuid.NewString()
	if err := s.teams.CreateTeam(ctx, &t); err != nil {
		return fmt.Errorf("create team %s: %w", t.Name, err)
	}
	for _, memberID := range t.Members {
		if err := s.students.AddTeamToStudent(ctx, memberID, t.ID); err != nil {
			return fmt.Errorf("link member to team %s: %w", t.Name, err)
		}
	}
	s.logger.Info("seeded team", "team", t.Name, "members", len(t.Members))
	return nil
}
