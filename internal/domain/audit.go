package domain

// AuditResult — результат одного запуска внешнего аудит-агента.
// Живет только в ответе API, никуда не персистится: все изменения
// requirement_status делает сам агент в своей транзакции.
type AuditResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	RequirementID string `json:"requirement_id"`
	Output        string `json:"output"`                 // stdout (trimmed)
	ErrorOutput   string `json:"error_output,omitempty"` // stderr, только при сбое
	ExitCode      *int   `json:"exit_code,omitempty"`    // Только при сбое
}
