package domain

import "time"

// Roles a platform account can hold. The allocator only ever touches
// student accounts.
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

// Student is a platform user who can belong to zero or more teams.
// Teams mirrors the membership stored on each Team; the two views are
// kept consistent by the allocation and join paths.
type Student struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Role         string
	RollNumber   string
	Department   string
	Year         int
	Teams        []string
	CreatedAt    time.Time
}

// HasTeam reports whether the student already belongs to the team.
func (s *Student) HasTeam(teamID string) bool {
	for _, id := range s.Teams {
		if id == teamID {
			return true
		}
	}
	return false
}

// TeamCount returns how many teams the student currently belongs to.
func (s *Student) TeamCount() int {
	return len(s.Teams)
}
