package services

import (
	"context"
	"fmt"
	"strings"

	"finledger/internal/core"
)

// Resolver assigns categories to transactions from per-user keyword
// rules when the caller does not pick one explicitly.
type Resolver struct {
	rules CategoryRuleReader
}

func NewResolver(rules CategoryRuleReader) *Resolver {
	return &Resolver{rules: rules}
}

// Resolve returns the category for a transaction. An explicit given
// category other than the fallback always wins. Otherwise the rule
// whose keyword is the longest case-insensitive substring of the
// description decides; with no match the given category (or the
// fallback) is returned.
func (r *Resolver) Resolve(ctx context.Context, userID int64, description, given string) (string, error) {
	given = strings.TrimSpace(given)
	if given != "" && given != core.FallbackCategory {
		return given, nil
	}
	if given == "" {
		given = core.FallbackCategory
	}

	rules, err := r.rules.ListCategoryRules(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list category rules: %w", err)
	}

	lowered := strings.ToLower(description)
	best := ""
	bestLen := 0
	for _, rule := range rules {
		kw := strings.ToLower(strings.TrimSpace(rule.Keyword))
		if kw == "" {
			continue
		}
		// Longest keyword wins so the most specific rule takes priority.
		if strings.Contains(lowered, kw) && len(kw) > bestLen {
			best = rule.Category
			bestLen = len(kw)
		}
	}
	if best != "" {
		return best, nil
	}
	return given, nil
}
