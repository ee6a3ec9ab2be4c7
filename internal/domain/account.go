package domain

// UserAccount — назначение аудитора на наблюдаемый AWS-аккаунт.
// Связь many-to-many: один аудитор ведет несколько аккаунтов,
// один аккаунт может быть у нескольких аудиторов (повторные строки).
type UserAccount struct {
	ID           string `json:"id"`
	AuditorID    string `json:"auditor_id"`
	AWSAccountID string `json:"aws_account_id"`
	AccountName  string `json:"account_name"`
	Status       string `json:"status"` // Свободный текст, консоль его не интерпретирует
}
