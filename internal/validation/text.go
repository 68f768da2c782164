package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9_-]{1,50}$`)

// Slugs that would shadow top-level routes when used in /group/<slug>/ links.
var reservedSlugs = map[string]struct{}{
	"admin":  {},
	"auth":   {},
	"create": {},
	"follow": {},
	"media":  {},
	"static": {},
}

// NotBlank fails when text is empty or only whitespace.
func NotBlank(field, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	return nil
}

// ValidateSlug validates group slug format and reserved names.
func ValidateSlug(slug string) error {
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 1-50 characters and contain only lowercase letters, numbers, underscores and hyphens")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}

	if _, exists := reservedSlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}

// ValidateTitle checks a group title.
func ValidateTitle(title string) error {
	if err := NotBlank("title", title); err != nil {
		return err
	}
	if len([]rune(title)) > 200 {
		return fmt.Errorf("title must not exceed 200 characters")
	}
	return nil
}
