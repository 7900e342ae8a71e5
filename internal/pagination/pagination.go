package pagination

import "strconv"

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Params is the shared page/limit contract every listing endpoint uses.
type Params struct {
	Page  int
	Limit int
}

// FromQuery parses raw query values, falling back to safe defaults on
// anything unparseable. The limit is clamped to MaxLimit, never rejected.
func FromQuery(pageRaw, limitRaw string) Params {
	page, err := strconv.Atoi(pageRaw)

	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(limitRaw)

	if err != nil || limit < 1 {
		limit = DefaultLimit
	}

	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit}
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is the response envelope: total is the full count for the resolved
// filter, independent of page and limit; data carries at most limit items.
type Page[T any] struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Data  []T `json:"data"`
}

func NewPage[T any](params Params, total int, data []T) Page[T] {
	if data == nil {
		data = []T{}
	}

	return Page[T]{
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
		Data:  data,
	}
}
