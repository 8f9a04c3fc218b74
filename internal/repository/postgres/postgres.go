package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exqlabs/roster/internal/domain"
	"github.com/exqlabs/roster/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
//
// Team membership and a student's team references are stored as ordered
// text[] columns, which keeps the member order stable for capacity
// repair and lets the conditional admit run as a single guarded UPDATE.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.TeamRepository    = (*Repository)(nil)
	_ repository.StudentRepository = (*Repository)(nil)
)

// CreateTeam inserts a team record.
func (r *Repository) CreateTeam(ctx context.Context, team *domain.Team) error {
	if team == nil {
		return fmt.Errorf("team required")
	}
	const query = `INSERT INTO teams (id, name, description, leader_id, members, max_members, department, domain, assigned_faculty, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`
	_, err := r.pool.Exec(ctx, query,
		team.ID,
		team.Name,
		nilIfEmpty(team.Description),
		team.LeaderID,
		textArray(team.Members),
		team.MaxMembers,
		nilIfEmpty(team.Department),
		nilIfEmpty(team.Domain),
		nilIfEmpty(team.AssignedFaculty),
		team.IsActive,
	)
	return mapPgError(err)
}

const teamColumns = `id, name, COALESCE(description, ''), leader_id, members, max_members,
	COALESCE(department, ''), COALESCE(domain, ''), COALESCE(assigned_faculty, ''), is_active, created_at, updated_at`

// GetTeamByID fetches a team by identifier.
func (r *Repository) GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return r.scanTeam(r.pool.QueryRow(ctx, query, teamID))
}

// GetTeamByName fetches a team by its unique name.
func (r *Repository) GetTeamByName(ctx context.Context, name string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE name = $1`
	return r.scanTeam(r.pool.QueryRow(ctx, query, strings.TrimSpace(name)))
}

// ListTeams returns all teams in stable name order.
func (r *Repository) ListTeams(ctx context.Context) ([]domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Description,
			&t.LeaderID,
			&t.Members,
			&t.MaxMembers,
			&t.Department,
			&t.Domain,
			&t.AssignedFaculty,
			&t.IsActive,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// DeleteTeam removes a team record.
func (r *Repository) DeleteTeam(ctx context.Context, teamID string) error {
	const query = `DELETE FROM teams WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, teamID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ConditionalAddMember admits the student only while the team is below
// capacity. The capacity predicate lives in the UPDATE's WHERE clause,
// so concurrent joins re-evaluate it against the committed row and at
// most max_members writes can ever apply.
func (r *Repository) ConditionalAddMember(ctx context.Context, teamID, studentID string) (bool, int, error) {
	const query = `UPDATE teams
		SET members = array_append(members, $2), updated_at = NOW()
		WHERE id = $1
			AND NOT (members @> ARRAY[$2])
			AND cardinality(members) < max_members
		RETURNING cardinality(members)`
	var newCount int
	err := r.pool.QueryRow(ctx, query, teamID, studentID).Scan(&newCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the guard refused the write or the team row is
			// gone; only the latter is a not-found condition.
			var exists bool
			if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, teamID).Scan(&exists); err != nil {
				return false, 0, err
			}
			if !exists {
				return false, 0, repository.ErrNotFound
			}
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, newCount, nil
}

// SetMemberList replaces the team's member list wholesale.
func (r *Repository) SetMemberList(ctx context.Context, teamID string, orderedIDs []string) error {
	const query = `UPDATE teams SET members = $2, updated_at = NOW() WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, teamID, textArray(orderedIDs))
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RemoveMember strips the student from the team's member list.
func (r *Repository) RemoveMember(ctx context.Context, teamID, studentID string) error {
	const query = `UPDATE teams SET members = array_remove(members, $2), updated_at = NOW() WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, teamID, studentID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetLeader updates the team's leader reference.
func (r *Repository) SetLeader(ctx context.Context, teamID, studentID string) error {
	const query = `UPDATE teams SET leader_id = $2, updated_at = NOW() WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, teamID, studentID)
	if err != nil {
		return mapPgError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetTeamDomain assigns a subject domain to the named team.
func (r *Repository) SetTeamDomain(ctx context.Context, name, teamDomain string) (bool, error) {
	const query = `UPDATE teams SET domain = $2, updated_at = NOW() WHERE name = $1`
	cmdTag, err := r.pool.Exec(ctx, query, name, teamDomain)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

// SetAssignedFaculty records the mentoring faculty member for a team.
func (r *Repository) SetAssignedFaculty(ctx context.Context, teamID, facultyID string) error {
	const query = `UPDATE teams SET assigned_faculty = $2, updated_at = NOW() WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, teamID, nilIfEmpty(facultyID))
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateStudent inserts a student record.
func (r *Repository) CreateStudent(ctx context.Context, student *domain.Student) error {
	if student == nil {
		return fmt.Errorf("student required")
	}
	const query = `INSERT INTO students (id, name, email, password_hash, role, roll_number, department, year, teams, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`
	_, err := r.pool.Exec(ctx, query,
		student.ID,
		student.Name,
		student.Email,
		student.PasswordHash,
		student.Role,
		nilIfEmpty(student.RollNumber),
		nilIfEmpty(student.Department),
		student.Year,
		textArray(student.Teams),
	)
	return mapPgError(err)
}

const studentColumns = `id, name, email, password_hash, role,
	COALESCE(roll_number, ''), COALESCE(department, ''), year, teams, created_at`

// GetStudentByID retrieves a student by identifier.
func (r *Repository) GetStudentByID(ctx context.Context, studentID string) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	return r.scanStudent(r.pool.QueryRow(ctx, query, studentID))
}

// GetStudentByEmail retrieves a student by email.
func (r *Repository) GetStudentByEmail(ctx context.Context, email string) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE email = $1`
	return r.scanStudent(r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

// ListStudentsByRole returns accounts holding the given role, oldest first.
func (r *Repository) ListStudentsByRole(ctx context.Context, role string) ([]domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE role = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]domain.Student, 0)
	for rows.Next() {
		var s domain.Student
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Email,
			&s.PasswordHash,
			&s.Role,
			&s.RollNumber,
			&s.Department,
			&s.Year,
			&s.Teams,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// AddTeamToStudent appends the team reference with set-union semantics.
func (r *Repository) AddTeamToStudent(ctx context.Context, studentID, teamID string) error {
	const query = `UPDATE students SET teams = array_append(teams, $2)
		WHERE id = $1 AND NOT (teams @> ARRAY[$2])`
	_, err := r.pool.Exec(ctx, query, studentID, teamID)
	return err
}

// RemoveTeamFromStudent strips the team reference from the student.
func (r *Repository) RemoveTeamFromStudent(ctx context.Context, studentID, teamID string) error {
	const query = `UPDATE students SET teams = array_remove(teams, $2) WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, studentID, teamID)
	return err
}

func (r *Repository) scanTeam(row pgx.Row) (*domain.Team, error) {
	var t domain.Team
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.LeaderID,
		&t.Members,
		&t.MaxMembers,
		&t.Department,
		&t.Domain,
		&t.AssignedFaculty,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repository) scanStudent(row pgx.Row) (*domain.Student, error) {
	var s domain.Student
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.PasswordHash,
		&s.Role,
		&s.RollNumber,
		&s.Department,
		&s.Year,
		&s.Teams,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repository.ErrDuplicate
		case "23503":
			return repository.ErrNotFound
		case "23514", "22P02":
			return repository.ErrInvalidArgument
		}
	}
	return err
}

func nilIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func textArray(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
