package store

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// NormalizePage applies the listing defaults: page starts at 1, a missing
// limit falls back to DefaultPageLimit and larger ones clamp to MaxPageLimit.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func Offset(page, limit int) int {
	return (page - 1) * limit
}

func TotalPages(total int64, limit int) int {
	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}
	return totalPages
}
