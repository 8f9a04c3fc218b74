package domain

import "time"

// Capacity bounds enforced at team creation.
const (
	MinTeamCapacity = 3
	MaxTeamCapacity = 4

	// DefaultTeamCapacity is used when a team is created without an
	// explicit capacity.
	DefaultTeamCapacity = 4
)

// Team is a bounded-capacity group of students with one leader.
// Members is ordered; the relative order matters to capacity repair,
// which keeps the earliest entries when trimming an oversized team.
type Team struct {
	ID              string
	Name            string
	Description     string
	LeaderID        string
	Members         []string
	MaxMembers      int
	Department      string
	Domain          string
	AssignedFaculty string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasCapacity reports whether the team can admit one more member.
func (t *Team) HasCapacity() bool {
	return len(t.Members) < t.MaxMembers
}

// RemainingSlots returns how many more members the team can admit.
func (t *Team) RemainingSlots() int {
	return t.MaxMembers - len(t.Members)
}

// IsMember reports whether the student is currently on the team.
func (t *Team) IsMember(studentID string) bool {
	for _, id := range t.Members {
		if id == studentID {
			return true
		}
	}
	return false
}

// ValidCapacity reports whether a requested capacity is inside the
// allowed domain bound.
func ValidCapacity(maxMembers int) bool {
	return maxMembers >= MinTeamCapacity && maxMembers <= MaxTeamCapacity
}
