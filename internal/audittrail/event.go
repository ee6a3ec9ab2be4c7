package audittrail

import "time"

// RunEvent — запись журнала об одном запуске аудит-агента.
// Фиксирует сам факт вызова и его исход; состояние комплаенса
// (requirement_status) журнал не трогает — его пишет агент.
type RunEvent struct {
	ID            string    `json:"id"`             // UUID запуска
	TraceID       string    `json:"trace_id"`       // Сквозной ID HTTP-запроса
	RequirementID string    `json:"requirement_id"` // Какой контроль проверяли
	AWSAccountID  string    `json:"aws_account_id"` // Для какого аккаунта
	Outcome       string    `json:"outcome"`        // "SUCCESS", "FAILED", "TIMEOUT", "REJECTED"
	ExitCode      int       `json:"exit_code"`
	DurationMs    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
	Error         string    `json:"error"`
}

// Исходы запуска в журнале.
const (
	OutcomeSuccess  = "SUCCESS"
	OutcomeFailed   = "FAILED"
	OutcomeTimeout  = "TIMEOUT"
	OutcomeRejected = "REJECTED" // Не дошло до спавна: валидация, limiter, breaker
)
