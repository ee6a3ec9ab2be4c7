package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "sentinel"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanAuditCompleted — канал, куда шлюз публикует итог каждого запуска
	// аудит-агента. Формат payload: "requirement_id:aws_account_id:ok|failed".
	// Подписчики (реплики консоли, вебсокет-мосты) по нему понимают,
	// что requirement_status для аккаунта пора перечитать.
	RedisChanAuditCompleted = RedisNamespace + ":audits:completed"
)

// AuditCompletionPayload собирает payload сигнала в канонической форме.
func AuditCompletionPayload(requirementID, accountID string, ok bool) string {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	return fmt.Sprintf("%s:%s:%s", requirementID, accountID, outcome)
}
