package pagination

import (
	"errors"
	"strconv"
)

// Page is one page of a server-side search: the total number of matches and
// the entries of the requested page.
type Page[T any] struct {
	Count int `json:"count"`
	List  []T `json:"list"`
}

var (
	ErrInvalidPage = errors.New("invalid page number")
)

// Exhausted reports whether every match has been loaded.
func Exhausted(count, loaded int) bool {
	return loaded >= count
}

// TotalPages returns how many pages of size hold count entries.
func TotalPages(count, size int) int {
	if size <= 0 || count <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

// ParsePage parses a 1-indexed page number; empty means page 1.
func ParsePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, ErrInvalidPage
	}
	return page, nil
}
