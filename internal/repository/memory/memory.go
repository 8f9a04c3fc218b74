// Package memory provides a mutex-guarded in-memory implementation of
// the repository interfaces for tests and local development. Its
// conditional-add semantics match the Postgres adapter: the capacity
// check and the append happen under one lock.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/exqlabs/roster/internal/domain"
	"github.com/exqlabs/roster/internal/repository"
)

// Store holds teams and students in process memory.
type Store struct {
	mu       sync.Mutex
	teams    map[string]*domain.Team
	students map[string]*domain.Student
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		teams:    make(map[string]*domain.Team),
		students: make(map[string]*domain.Student),
	}
}

var (
	_ repository.TeamRepository    = (*Store)(nil)
	_ repository.StudentRepository = (*Store)(nil)
)

// CreateTeam inserts a team, rejecting duplicate ids or names.
func (s *Store) CreateTeam(_ context.Context, team *domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, t := range s.teams {
		if t.Name == team.Name {
			return repository.ErrDuplicate
		}
	}
	cp := cloneTeam(team)
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.teams[cp.ID] = cp
	return nil
}

// GetTeamByID returns a copy of the stored team.
func (s *Store) GetTeamByID(_ context.Context, teamID string) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTeam(t), nil
}

// GetTeamByName returns a copy of the team with the given name.
func (s *Store) GetTeamByName(_ context.Context, name string) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	for _, t := range s.teams {
		if t.Name == name {
			return cloneTeam(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListTeams returns copies of all teams in stable name order.
func (s *Store) ListTeams(_ context.Context) ([]domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teams := make([]domain.Team, 0, len(s.teams))
	for _, t := range s.teams {
		teams = append(teams, *cloneTeam(t))
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

// DeleteTeam removes a team record.
func (s *Store) DeleteTeam(_ context.Context, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.teams, teamID)
	return nil
}

// ConditionalAddMember admits the student only while the team is below
// capacity, as one indivisible operation.
func (s *Store) ConditionalAddMember(_ context.Context, teamID, studentID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return false, 0, repository.ErrNotFound
	}
	if t.IsMember(studentID) || len(t.Members) >= t.MaxMembers {
		return false, 0, nil
	}
	t.Members = append(t.Members, studentID)
	t.UpdatedAt = time.Now().UTC()
	return true, len(t.Members), nil
}

// SetMemberList replaces the team's member list wholesale.
func (s *Store) SetMemberList(_ context.Context, teamID string, orderedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return repository.ErrNotFound
	}
	t.Members = append([]string(nil), orderedIDs...)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveMember strips the student from the team's member list.
func (s *Store) RemoveMember(_ context.Context, teamID, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return repository.ErrNotFound
	}
	members := t.Members[:0]
	for _, id := range t.Members {
		if id != studentID {
			members = append(members, id)
		}
	}
	t.Members = members
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetLeader updates the team's leader reference.
func (s *Store) SetLeader(_ context.Context, teamID, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return repository.ErrNotFound
	}
	t.LeaderID = studentID
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetTeamDomain assigns a subject domain to the named team.
func (s *Store) SetTeamDomain(_ context.Context, name, teamDomain string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.Name == name {
			t.Domain = teamDomain
			t.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}

// SetAssignedFaculty records the mentoring faculty member for a team.
func (s *Store) SetAssignedFaculty(_ context.Context, teamID, facultyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return repository.ErrNotFound
	}
	t.AssignedFaculty = facultyID
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateStudent inserts a student, rejecting duplicate ids or emails.
func (s *Store) CreateStudent(_ context.Context, student *domain.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[student.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, st := range s.students {
		if st.Email == student.Email {
			return repository.ErrDuplicate
		}
	}
	cp := cloneStudent(student)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.students[cp.ID] = cp
	return nil
}

// GetStudentByID returns a copy of the stored student.
func (s *Store) GetStudentByID(_ context.Context, studentID string) (*domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneStudent(st), nil
}

// GetStudentByEmail returns a copy of the student with the given email.
func (s *Store) GetStudentByEmail(_ context.Context, email string) (*domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, st := range s.students {
		if st.Email == email {
			return cloneStudent(st), nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListStudentsByRole returns copies of accounts holding the role,
// oldest first.
func (s *Store) ListStudentsByRole(_ context.Context, role string) ([]domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	students := make([]domain.Student, 0)
	for _, st := range s.students {
		if st.Role == role {
			students = append(students, *cloneStudent(st))
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].CreatedAt.Equal(students[j].CreatedAt) {
			return students[i].ID < students[j].ID
		}
		return students[i].CreatedAt.Before(students[j].CreatedAt)
	})
	return students, nil
}

// AddTeamToStudent appends the team reference with set-union semantics.
func (s *Store) AddTeamToStudent(_ context.Context, studentID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return nil
	}
	if !st.HasTeam(teamID) {
		st.Teams = append(st.Teams, teamID)
	}
	return nil
}

// RemoveTeamFromStudent strips the team reference from the student.
func (s *Store) RemoveTeamFromStudent(_ context.Context, studentID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return nil
	}
	teams := st.Teams[:0]
	for _, id := range st.Teams {
		if id != teamID {
			teams = append(teams, id)
		}
	}
	st.Teams = teams
	return nil
}

func cloneTeam(t *domain.Team) *domain.Team {
	cp := *t
	cp.Members = append([]string(nil), t.Members...)
	return &cp
}

func cloneStudent(st *domain.Student) *domain.Student {
	cp := *st
	cp.Teams = append([]string(nil), st.Teams...)
	cp.PasswordHash = append([]byte(nil), st.PasswordHash...)
	return &cp
}
