package calendar

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// Page описывает одну страницу элементов в терминах offset/limit.
type Page[T any] struct {
	Items   []T   // элементы на текущей странице
	Offset  int   // смещение первого элемента
	Limit   int   // размер страницы
	Total   int64 // общее количество элементов
	HasNext bool
	HasPrev bool
}

// NormalizeLimits приводит offset/limit к допустимым значениям.
func NormalizeLimits(offset, limit int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

// NewPage собирает страницу из уже выбранных элементов и общего количества.
func NewPage[T any](items []T, offset, limit int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Offset:  offset,
		Limit:   limit,
		Total:   total,
		HasPrev: offset > 0,
		HasNext: int64(offset+len(items)) < total,
	}
}
