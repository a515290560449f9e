package postgres

import (
	"context"
	"database/sql"

	"crewsight/models"
	"crewsight/ports"

	"github.com/jmoiron/sqlx"
)

// CrewRepositoryImpl implements CrewRepository for PostgreSQL
type CrewRepositoryImpl struct {
	db *sqlx.DB
}

// NewCrewRepository creates a new PostgreSQL crew repository
func NewCrewRepository(db *sqlx.DB) ports.CrewRepository {
	return &CrewRepositoryImpl{db: db}
}

const crewColumns = `id, employee_code, full_name, rank, department, vessel, status, hired_at`

// GetByID retrieves a crew member by internal id. Missing subjects are not
// an error: callers receive (nil, nil).
func (r *CrewRepositoryImpl) GetByID(ctx context.Context, id int64) (*models.CrewMember, error) {
	var member models.CrewMember
	err := r.db.GetContext(ctx, &member, `
		SELECT `+crewColumns+`
		FROM crew_members
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByEmployeeCode retrieves a crew member by employee code
func (r *CrewRepositoryImpl) GetByEmployeeCode(ctx context.Context, code string) (*models.CrewMember, error) {
	var member models.CrewMember
	err := r.db.GetContext(ctx, &member, `
		SELECT `+crewColumns+`
		FROM crew_members
		WHERE employee_code = $1
	`, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// SearchByName performs a case-insensitive substring search over full names,
// best matches (shortest names) first.
func (r *CrewRepositoryImpl) SearchByName(ctx context.Context, query string) ([]models.CrewMember, error) {
	var members []models.CrewMember
	err := r.db.SelectContext(ctx, &members, `
		SELECT `+crewColumns+`
		FROM crew_members
		WHERE full_name ILIKE '%' || $1 || '%'
		ORDER BY length(full_name) ASC, full_name ASC
		LIMIT 10
	`, query)
	if err != nil {
		return nil, err
	}
	return members, nil
}

// ListIDs returns every crew member id in stable order
func (r *CrewRepositoryImpl) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id FROM crew_members ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Sample returns up to limit crew members for heuristic fleet scans
func (r *CrewRepositoryImpl) Sample(ctx context.Context, limit int) ([]models.CrewMember, error) {
	var members []models.CrewMember
	err := r.db.SelectContext(ctx, &members, `
		SELECT `+crewColumns+`
		FROM crew_members
		WHERE status != 'signed_off'
		ORDER BY id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return members, nil
}
