package dashboard

import "github.com/sentinelai/compliance-console/internal/domain"

// Tracker — состояние одной сессии дашборда: загруженный список статусов,
// поисковый запрос и текущая страница. Никаких побочных эффектов:
// это чистая трансформация "данные + выбор пользователя -> что рисовать".
type Tracker struct {
	statuses []domain.RequirementStatus // Полный список для выбранного аккаунта
	filtered []domain.RequirementStatus // После ApplySearch
	term     string
	page     int
	pageSize int
}

// Snapshot — все, что нужно для отрисовки текущего состояния.
type Snapshot struct {
	Items      []domain.RequirementStatus `json:"items"`
	Counts     domain.StatusCounts        `json:"counts"`
	Page       int                        `json:"page"`
	TotalPages int                        `json:"total_pages"`
	TotalItems int                        `json:"total_items"`
	Pages      []int                      `json:"pages"` // Окно пагинации, -1 = многоточие
}

func NewTracker() *Tracker {
	return &Tracker{page: 1, pageSize: DefaultPageSize}
}

// SetStatuses загружает свежевычитанный список и переприменяет текущий поиск.
// Страница сбрасывается на первую: набор данных сменился.
func (t *Tracker) SetStatuses(statuses []domain.RequirementStatus) {
	t.statuses = statuses
	t.filtered = ApplySearch(statuses, t.term)
	t.page = 1
}

// SetSearch меняет поисковый запрос и сбрасывает страницу на первую.
func (t *Tracker) SetSearch(term string) {
	t.term = term
	t.filtered = ApplySearch(t.statuses, term)
	t.page = 1
}

// GoToPage переходит на страницу. Выход за границы — no-op:
// текущая страница не меняется.
func (t *Tracker) GoToPage(page int) {
	if page < 1 || page > t.TotalPages() {
		return
	}
	t.page = page
}

// Clear сбрасывает состояние в "ничего не выбрано": пустой список,
// нулевые счетчики. Используется и при ошибке чтения из БД, чтобы
// не оставить на экране смесь старых данных с новыми фильтрами.
func (t *Tracker) Clear() {
	t.statuses = nil
	t.filtered = nil
	t.page = 1
}

// Page текущая страница (начиная с 1).
func (t *Tracker) Page() int { return t.page }

// TotalPages — число страниц после фильтрации.
func (t *Tracker) TotalPages() int {
	if len(t.filtered) == 0 {
		return 0
	}
	return (len(t.filtered) + t.pageSize - 1) / t.pageSize
}

// Snapshot собирает view для отрисовки: срез текущей страницы,
// счетчики по ПОЛНОМУ списку (карточки не зависят от поиска) и окно пагинации.
func (t *Tracker) Snapshot() Snapshot {
	start := (t.page - 1) * t.pageSize
	end := start + t.pageSize
	if start > len(t.filtered) {
		start = len(t.filtered)
	}
	if end > len(t.filtered) {
		end = len(t.filtered)
	}

	items := t.filtered[start:end]
	if items == nil {
		// Фронт всегда получает [], а не null
		items = []domain.RequirementStatus{}
	}

	return Snapshot{
		Items:      items,
		Counts:     CountStatuses(t.statuses),
		Page:       t.page,
		TotalPages: t.TotalPages(),
		TotalItems: len(t.filtered),
		Pages:      PaginationWindow(t.page, t.TotalPages(), DefaultMaxVisible),
	}
}
