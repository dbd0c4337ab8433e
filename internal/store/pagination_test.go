package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, DefaultPageLimit},
		{-3, 5, 1, 5},
		{2, 25, 2, 25},
		{4, 1000, 4, MaxPageLimit},
		{1, MaxPageLimit + 1, 1, MaxPageLimit},
	}

	for _, c := range cases {
		page, limit := NormalizePage(c.page, c.limit)
		if page != c.wantPage || limit != c.wantLimit {
			t.Errorf("NormalizePage(%d, %d) = (%d, %d), want (%d, %d)",
				c.page, c.limit, page, limit, c.wantPage, c.wantLimit)
		}
	}
}

func TestTotalPages(t *testing.T) {
	if got := TotalPages(0, 10); got != 0 {
		t.Errorf("Expected 0 pages, got %d", got)
	}
	if got := TotalPages(10, 10); got != 1 {
		t.Errorf("Expected 1 page, got %d", got)
	}
	if got := TotalPages(11, 10); got != 2 {
		t.Errorf("Expected 2 pages, got %d", got)
	}
	if got := Offset(3, 10); got != 20 {
		t.Errorf("Expected offset 20, got %d", got)
	}
}

func TestDuplicateErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("create user: %w", &DuplicateError{Field: "email"})

	if !errors.Is(err, ErrDuplicate) {
		t.Error("Expected errors.Is(err, ErrDuplicate)")
	}

	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Errorf("Expected duplicate email, got %v", err)
	}
}
