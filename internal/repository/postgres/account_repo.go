package postgres

import (
	"context"
	"fmt"

	"github.com/sentinelai/compliance-console/internal/domain"
)

// FetchUserAccounts возвращает все назначения аудиторов на аккаунты,
// отсортированные по auditor_id. Пагинации нет: список назначений мал
// и фильтруется уже на стороне view-model.
func (r *ConsoleRepo) FetchUserAccounts(ctx context.Context) ([]domain.UserAccount, error) {
	query := `
		SELECT id, auditor_id, aws_account_id, account_name, status
		FROM user_accounts
		ORDER BY auditor_id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to fetch user accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.UserAccount
	for rows.Next() {
		var a domain.UserAccount
		if err := rows.Scan(&a.ID, &a.AuditorID, &a.AWSAccountID, &a.AccountName, &a.Status); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan user account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: user accounts iteration failed: %w", err)
	}
	return accounts, nil
}
