package blog

import (
	"context"
	"testing"
)

func TestSlugify(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"Spring Lawn Care", "spring-lawn-care"},
		{"  Hello,   World!  ", "hello-world"},
		{"100% Organic Fertilizer", "100-organic-fertilizer"},
		{"---", ""},
		{"Ünïcode Tîtle", "ünïcode-tîtle"},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

type fakeSlugChecker struct {
	taken map[string]bool
}

func (f fakeSlugChecker) SlugExists(ctx context.Context, slug string) (bool, error) {
	return f.taken[slug], nil
}

func TestUniqueSlugSuffixes(t *testing.T) {
	t.Parallel()

	checker := fakeSlugChecker{taken: map[string]bool{}}
	got, err := uniqueSlug(context.Background(), checker, "Spring Lawn Care")
	if err != nil {
		t.Fatalf("unique slug: %v", err)
	}
	if got != "spring-lawn-care" {
		t.Fatalf("expected base slug, got %q", got)
	}

	// The first collision gets -1, later collisions count up from there.
	checker.taken["spring-lawn-care"] = true
	if got, _ = uniqueSlug(context.Background(), checker, "Spring Lawn Care"); got != "spring-lawn-care-1" {
		t.Fatalf("expected spring-lawn-care-1, got %q", got)
	}
	checker.taken["spring-lawn-care-1"] = true
	if got, _ = uniqueSlug(context.Background(), checker, "Spring Lawn Care"); got != "spring-lawn-care-2" {
		t.Fatalf("expected spring-lawn-care-2, got %q", got)
	}

	// An all-punctuation title still slugs.
	if got, _ = uniqueSlug(context.Background(), checker, "---"); got != "post" {
		t.Fatalf("expected fallback slug post, got %q", got)
	}
}
