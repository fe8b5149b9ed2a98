package repository

import (
	"context"
	"errors"
	"time"

	"leadlift_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("lead not found")
	ErrDuplicateEmail = errors.New("lead email already exists")
)

const uniqueViolationCode = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, first_name, last_name, email, phone, company, website,
	project_type, budget, timeline, project_description, source, preferred_contact_method,
	lead_status, score, budget_score, timeline_score, complexity_score, quality_score,
	contacted_at, qualified_at, created_at, updated_at`

type CreateLeadParams struct {
	FirstName              string
	LastName               string
	Email                  string
	Phone                  *string
	Company                *string
	Website                *string
	ProjectType            string
	Budget                 string
	Timeline               string
	ProjectDescription     string
	Source                 string
	PreferredContactMethod string
	Score                  float64
	BudgetScore            float64
	TimelineScore          float64
	ComplexityScore        float64
	QualityScore           float64
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			first_name, last_name, email, phone, company, website,
			project_type, budget, timeline, project_description, source, preferred_contact_method,
			lead_status, score, budget_score, timeline_score, complexity_score, quality_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING `+leadColumns,
		params.FirstName, params.LastName, params.Email, params.Phone, params.Company, params.Website,
		params.ProjectType, params.Budget, params.Timeline, params.ProjectDescription, params.Source, params.PreferredContactMethod,
		int(domain.StatusPending), params.Score, params.BudgetScore, params.TimelineScore, params.ComplexityScore, params.QualityScore,
	)

	lead, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.Lead{}, ErrDuplicateEmail
		}
		return domain.Lead{}, err
	}

	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	return lead, nil
}

type UpdateStatusParams struct {
	Status      domain.LeadStatus
	ContactedAt *time.Time
	QualifiedAt *time.Time
}

// UpdateStatus persists a lifecycle transition. ContactedAt/QualifiedAt are
// written only when provided, so existing stamps are never cleared.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, params UpdateStatusParams) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			lead_status = $2,
			contacted_at = COALESCE($3, contacted_at),
			qualified_at = COALESCE($4, qualified_at),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, int(params.Status), params.ContactedAt, params.QualifiedAt,
	)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	return lead, nil
}

// UpdateScores rewrites the persisted score columns. Callers must pass the
// scoring engine's output; scores are never set independently of it.
func (r *Repository) UpdateScores(ctx context.Context, id uuid.UUID, total, budget, timeline, complexity, quality float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			score = $2, budget_score = $3, timeline_score = $4,
			complexity_score = $5, quality_score = $6, updated_at = now()
		WHERE id = $1`,
		id, total, budget, timeline, complexity, quality,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a lead. Sync records, sequences, and analytics cascade via
// foreign keys.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var lead domain.Lead
	var status int
	err := row.Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone, &lead.Company, &lead.Website,
		&lead.ProjectType, &lead.Budget, &lead.Timeline, &lead.ProjectDescription, &lead.Source, &lead.PreferredContactMethod,
		&status, &lead.Score, &lead.BudgetScore, &lead.TimelineScore, &lead.ComplexityScore, &lead.QualityScore,
		&lead.ContactedAt, &lead.QualifiedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.LeadStatus(status)
	return lead, nil
}
