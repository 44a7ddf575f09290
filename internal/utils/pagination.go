package utils

import (
	"errors"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit far from int overflow.
	MaxPage = 1_000_000
)

var ErrInvalidPage = errors.New("page and limit must be positive integers, page at most 1000000")

type Page struct {
	Page  int
	Limit int
}

// ParsePage reads raw page/limit query values. Empty values take the defaults,
// anything that is not a positive integer or a page above MaxPage is
// rejected, and limit is capped.
func ParsePage(pageRaw, limitRaw string) (Page, error) {
	page, err := positiveOr(pageRaw, DefaultPage)
	if err != nil {
		return Page{}, err
	}
	if page > MaxPage {
		return Page{}, ErrInvalidPage
	}

	limit, err := positiveOr(limitRaw, DefaultLimit)
	if err != nil {
		return Page{}, err
	}

	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Page{Page: page, Limit: limit}, nil
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages is ceil(total/limit).
func (p Page) TotalPages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// RemainingPages counts the pages after this one, never below zero.
func (p Page) RemainingPages(total int) int {
	remaining := p.TotalPages(total) - p.Page
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Window returns the [start, end) slice bounds of this page over n items.
func (p Page) Window(n int) (int, int) {
	start := p.Offset()
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

func positiveOr(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrInvalidPage
	}
	return n, nil
}
