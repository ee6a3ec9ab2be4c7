package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinelai/compliance-console/internal/audittrail"
)

// WriteRunBatch пакетно вставляет события журнала запусков.
// Единственный write-путь консоли: комплаенс-таблицы остаются read-only.
func (r *ConsoleRepo) WriteRunBatch(ctx context.Context, events []audittrail.RunEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице audit_runs
	numFields := 9
	placeholderStr := ""
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9)

		vals = append(vals,
			e.ID, e.TraceID, e.RequirementID, e.AWSAccountID,
			e.Outcome, e.ExitCode, e.DurationMs, e.Timestamp, e.Error,
		)
	}

	// Убираем лишнюю запятую в конце
	query := fmt.Sprintf(
		"INSERT INTO audit_runs (id, trace_id, requirement_id, aws_account_id, outcome, exit_code, duration_ms, timestamp, error) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.db.ExecContext(ctx, query, vals...)
	return err
}
