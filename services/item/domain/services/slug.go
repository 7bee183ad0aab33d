package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	itemdomain "github.com/ghuser/inventory/services/item/domain"
)

const (
	// MaxSlugLength caps the base slug; suffixes may extend it slightly.
	MaxSlugLength = 96

	// maxSlugSuffix bounds AssignUniqueSlug so a pathological store cannot
	// keep it looping.
	maxSlugSuffix = 10_000
)

// letters that do not decompose under NFD but have a conventional ASCII spelling.
var foldedLetters = map[rune]string{
	'ß': "ss", 'æ': "ae", 'œ': "oe", 'ø': "o", 'đ': "d", 'ð': "d", 'ł': "l", 'þ': "th", 'ı': "i",
}

// SlugLookup reports which live item, if any, currently holds slug.
type SlugLookup func(ctx context.Context, slug string) (itemID int64, found bool, err error)

// NormalizeSlug lower-cases name, strips diacritics and collapses every run of
// other characters into a single hyphen. Apostrophes are dropped so "Bob's"
// becomes "bobs". Returns a *ValidationError when nothing usable remains.
func NormalizeSlug(name string) (string, error) {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, strings.ToLower(name))
	if err != nil {
		return "", itemdomain.NewValidationError("name cannot be converted to a slug")
	}

	var b strings.Builder
	hyphen := false
	write := func(s string) {
		if hyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		hyphen = false
		b.WriteString(s)
	}
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			write(string(r))
		case r == '\'' || r == '’':
		default:
			if s, ok := foldedLetters[r]; ok {
				write(s)
				continue
			}
			hyphen = true
		}
	}

	slug := b.String()
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	if slug == "" {
		return "", itemdomain.NewValidationError("name must contain at least one letter or digit")
	}
	return slug, nil
}

// SlugCandidate returns the n-th disambiguation of base: base, base-1, base-2, ...
func SlugCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// AssignUniqueSlug returns the first candidate of base that lookup reports as
// free. A candidate held by excludeID counts as free so an item never collides
// with itself; pass 0 when no item is being updated.
//
// The result is only a prediction: the store's unique constraint is the
// authority and callers must handle ErrSlugTaken on write.
func AssignUniqueSlug(ctx context.Context, base string, excludeID int64, lookup SlugLookup) (string, error) {
	for n := 0; n <= maxSlugSuffix; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := SlugCandidate(base, n)
		id, found, err := lookup(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("lookup slug %q: %w", candidate, err)
		}
		if !found || (excludeID != 0 && id == excludeID) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q exhausted %d suffixes", itemdomain.ErrSlugConflict, base, maxSlugSuffix)
}
