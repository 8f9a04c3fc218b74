package repository

import (
	"context"

	"github.com/exqlabs/roster/internal/domain"
)

// TeamRepository manages teams and their member lists.
//
// ConditionalAddMember is the only legal capacity-affecting mutation
// path for concurrent callers: the capacity check is part of the write's
// precondition, evaluated and applied as one indivisible operation by
// the store. Read-count-then-write must never be used to admit members.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team) error
	GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error)
	GetTeamByName(ctx context.Context, name string) (*domain.Team, error)
	ListTeams(ctx context.Context) ([]domain.Team, error)
	DeleteTeam(ctx context.Context, teamID string) error

	// ConditionalAddMember appends the student to the team's member
	// list if and only if the team is still below capacity and the
	// student is not already on it. It reports whether the write was
	// applied and, when applied, the resulting member count. A team
	// that no longer exists is ErrNotFound, not a refused write.
	ConditionalAddMember(ctx context.Context, teamID, studentID string) (applied bool, newCount int, err error)

	// SetMemberList replaces the team's member list wholesale. Used
	// only by offline maintenance (capacity repair), never by the
	// interactive join path.
	SetMemberList(ctx context.Context, teamID string, orderedIDs []string) error

	RemoveMember(ctx context.Context, teamID, studentID string) error
	SetLeader(ctx context.Context, teamID, studentID string) error
	SetTeamDomain(ctx context.Context, name, teamDomain string) (updated bool, err error)
	SetAssignedFaculty(ctx context.Context, teamID, facultyID string) error
}

// StudentRepository persists students and their team references.
type StudentRepository interface {
	CreateStudent(ctx context.Context, student *domain.Student) error
	GetStudentByID(ctx context.Context, studentID string) (*domain.Student, error)
	GetStudentByEmail(ctx context.Context, email string) (*domain.Student, error)
	ListStudentsByRole(ctx context.Context, role string) ([]domain.Student, error)

	// AddTeamToStudent appends the team reference with set-union
	// semantics; re-adding an existing reference is a no-op.
	AddTeamToStudent(ctx context.Context, studentID, teamID string) error
	RemoveTeamFromStudent(ctx context.Context, studentID, teamID string) error
}
