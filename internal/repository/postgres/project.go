package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/repository"
	apperrors "github.com/smartdoc/tracker-api/pkg/errors"
)

type projectRepository struct {
	BaseRepository
}

func NewProjectRepository(base BaseRepository) repository.ProjectRepository {
	return &projectRepository{base}
}

func (r *projectRepository) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	query := `SELECT * FROM projects WHERE id = $1`

	var project model.Project
	if err := r.GetDB().GetContext(ctx, &project, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("project", err)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

func (r *projectRepository) GetForDocument(ctx context.Context, documentID uuid.UUID) (*model.Project, error) {
	query := `
        SELECT p.* FROM projects p
        JOIN documents d ON d.project_id = p.id
        WHERE d.id = $1
    `

	var project model.Project
	if err := r.GetDB().GetContext(ctx, &project, query, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("project for document", err)
		}
		return nil, fmt.Errorf("failed to resolve project for document: %w", err)
	}

	return &project, nil
}

// ListAudience resolves owner + accepted members in one query. UNION
// deduplicates a user who is both owner and member, which matches the
// one-reminder-per-user guarantee upstream of the dedup ledger.
func (r *projectRepository) ListAudience(ctx context.Context, projectID uuid.UUID) ([]*model.Profile, error) {
	query := `
        SELECT pr.id, pr.email, pr.full_name, pr.chat_user_id,
               pr.chat_verification_code, pr.chat_code_expires_at,
               pr.created_at, pr.updated_at
        FROM profiles pr
        JOIN projects p ON p.owner_id = pr.id
        WHERE p.id = $1
        UNION
        SELECT pr.id, pr.email, pr.full_name, pr.chat_user_id,
               pr.chat_verification_code, pr.chat_code_expires_at,
               pr.created_at, pr.updated_at
        FROM profiles pr
        JOIN project_members m ON m.user_id = pr.id
        WHERE m.project_id = $1 AND m.status = $2
    `

	var audience []*model.Profile
	if err := r.GetDB().SelectContext(ctx, &audience, query, projectID, model.MemberStatusAccepted); err != nil {
		return nil, fmt.Errorf("failed to resolve audience: %w", err)
	}

	return audience, nil
}
