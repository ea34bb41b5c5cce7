package blog

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

const maxSlugAttempts = 1000

type slugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// slugify lowers the title and collapses everything that is not a letter or
// digit into single hyphens.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// uniqueSlug appends -1, -2, ... until the slug is free.
func uniqueSlug(ctx context.Context, checker slugChecker, title string) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "post"
	}

	candidate := base
	for n := 1; n <= maxSlugAttempts; n++ {
		taken, err := checker.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}
