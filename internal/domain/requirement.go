package domain

import "time"

// ComplianceStatus — закрытое перечисление состояний контроля.
// Любое другое значение в БД считается неизвестным и в категории не попадает.
type ComplianceStatus string

const (
	StatusCompliant     ComplianceStatus = "compliant"      // Требование выполнено
	StatusNonCompliant  ComplianceStatus = "non_compliant"  // Найдены нарушения
	StatusPending       ComplianceStatus = "pending"        // Оценка еще не проводилась
	StatusNotApplicable ComplianceStatus = "not_applicable" // Не применимо к аккаунту
)

// RequirementStatus — текущее состояние одного контроля PCI DSS
// для конкретного наблюдаемого AWS-аккаунта. Строки создает и обновляет
// внешний аудит-движок; консоль их только читает.
type RequirementStatus struct {
	ID                     string           `json:"id"`
	RequirementID          string           `json:"requirement_id"`          // Например "1.2.5"
	RequirementDescription string           `json:"requirement_description"` // Текст требования
	Status                 ComplianceStatus `json:"status"`
	AWSAccountID           string           `json:"aws_account_id"`
	ControlID              string           `json:"control_id"` // Ключ для запуска аудита
	LastEvaluated          time.Time        `json:"last_evaluated"`
	EvidenceURL            *string          `json:"evidence_url,omitempty"`
	RemediationNotes       *string          `json:"remediation_notes,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// StatusCounts — сводка по категориям для карточек дашборда.
// Total — длина исходного списка, включая неизвестные статусы.
type StatusCounts struct {
	Compliant     int `json:"compliant"`
	NonCompliant  int `json:"non_compliant"`
	Pending       int `json:"pending"`
	NotApplicable int `json:"not_applicable"`
	Total         int `json:"total"`
}
