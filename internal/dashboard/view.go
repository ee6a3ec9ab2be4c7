package dashboard

import (
	"strings"

	"github.com/sentinelai/compliance-console/internal/domain"
)

// EllipsisMarker — значение в окне пагинации на месте пропущенных страниц.
// Фронт рисует по нему "...". Значение -1 исторически зашито в клиенте.
const EllipsisMarker = -1

// DefaultPageSize страниц дашборда.
const DefaultPageSize = 10

// DefaultMaxVisible — сколько номеров страниц показываем без схлопывания.
const DefaultMaxVisible = 5

// DeriveAuditors возвращает уникальные auditor_id в порядке появления.
// Источник отсортирован по auditor_id, так что порядок фактически возрастающий.
func DeriveAuditors(accounts []domain.UserAccount) []string {
	seen := make(map[string]struct{}, len(accounts))
	auditors := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if _, ok := seen[a.AuditorID]; ok {
			continue
		}
		seen[a.AuditorID] = struct{}{}
		auditors = append(auditors, a.AuditorID)
	}
	return auditors
}

// AccountsForAuditor отбирает назначения одного аудитора.
func AccountsForAuditor(auditorID string, accounts []domain.UserAccount) []domain.UserAccount {
	filtered := make([]domain.UserAccount, 0, len(accounts))
	for _, a := range accounts {
		if a.AuditorID == auditorID {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// ApplySearch фильтрует статусы по подстроке без учета регистра.
// Ищем в requirement_id, requirement_description и control_id (OR).
// Пустой запрос возвращает исходный список как есть.
func ApplySearch(statuses []domain.RequirementStatus, term string) []domain.RequirementStatus {
	if term == "" {
		return statuses
	}

	needle := strings.ToLower(term)
	filtered := make([]domain.RequirementStatus, 0, len(statuses))
	for _, s := range statuses {
		if strings.Contains(strings.ToLower(s.RequirementID), needle) ||
			strings.Contains(strings.ToLower(s.RequirementDescription), needle) ||
			strings.Contains(strings.ToLower(s.ControlID), needle) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// CountStatuses считает сводку за один проход.
// Неизвестные значения статуса в категории не попадают, но входят в Total.
func CountStatuses(statuses []domain.RequirementStatus) domain.StatusCounts {
	counts := domain.StatusCounts{Total: len(statuses)}
	for _, s := range statuses {
		switch s.Status {
		case domain.StatusCompliant:
			counts.Compliant++
		case domain.StatusNonCompliant:
			counts.NonCompliant++
		case domain.StatusPending:
			counts.Pending++
		case domain.StatusNotApplicable:
			counts.NotApplicable++
		}
	}
	return counts
}

// PaginationWindow строит список номеров страниц для отрисовки.
// При totalPages <= maxVisible возвращаются все страницы подряд.
// Иначе окно из maxVisible страниц центрируется на currentPage, первая и
// последняя страницы присутствуют всегда, а разрывы больше одной страницы
// схлопываются в EllipsisMarker.
func PaginationWindow(currentPage, totalPages, maxVisible int) []int {
	pages := make([]int, 0, maxVisible+4)

	if totalPages <= maxVisible {
		for i := 1; i <= totalPages; i++ {
			pages = append(pages, i)
		}
		return pages
	}

	half := maxVisible / 2
	start := currentPage - half
	if start < 1 {
		start = 1
	}
	end := start + maxVisible - 1
	if end > totalPages {
		end = totalPages
	}
	// Окно уперлось в правый край — сдвигаем левую границу обратно
	if end-start < maxVisible-1 {
		start = end - maxVisible + 1
		if start < 1 {
			start = 1
		}
	}

	if start > 1 {
		pages = append(pages, 1)
		if start > 2 {
			pages = append(pages, EllipsisMarker)
		}
	}
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	if end < totalPages {
		if end < totalPages-1 {
			pages = append(pages, EllipsisMarker)
		}
		pages = append(pages, totalPages)
	}

	return pages
}
