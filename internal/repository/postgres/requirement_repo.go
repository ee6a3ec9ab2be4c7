package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sentinelai/compliance-console/internal/domain"
)

// FetchRequirementStatuses возвращает статусы всех контролей для одного
// AWS-аккаунта. Сортировка по requirement_id — строковая, как в хранилище:
// "1.10" идет раньше "1.2". Это осознанно сохраненное поведение,
// закрепленное тестом (см. dashboard пакет).
func (r *ConsoleRepo) FetchRequirementStatuses(ctx context.Context, accountID string) ([]domain.RequirementStatus, error) {
	query := `
		SELECT id, requirement_id, requirement_description, status, aws_account_id,
		       control_id, last_evaluated, evidence_url, remediation_notes,
		       created_at, updated_at
		FROM requirement_status
		WHERE aws_account_id = $1
		ORDER BY requirement_id ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to fetch requirement statuses: %w", err)
	}
	defer rows.Close()

	var statuses []domain.RequirementStatus
	for rows.Next() {
		var s domain.RequirementStatus
		var evidenceURL, remediationNotes sql.NullString // evidence_url и remediation_notes в схеме NULLable

		err := rows.Scan(
			&s.ID,
			&s.RequirementID,
			&s.RequirementDescription,
			&s.Status,
			&s.AWSAccountID,
			&s.ControlID,
			&s.LastEvaluated,
			&evidenceURL,
			&remediationNotes,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan requirement status: %w", err)
		}

		if evidenceURL.Valid {
			val := evidenceURL.String
			s.EvidenceURL = &val
		}
		if remediationNotes.Valid {
			val := remediationNotes.String
			s.RemediationNotes = &val
		}

		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: requirement statuses iteration failed: %w", err)
	}
	return statuses, nil
}
