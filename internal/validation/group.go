package validation

import (
	"errors"
	"regexp"
)

var groupSlugRegex = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

var reservedGroupSlugs = map[string]struct{}{
	"admin":  {},
	"auth":   {},
	"create": {},
	"follow": {},
	"media":  {},
	"static": {},
}

// ValidateGroupSlug checks a group slug for URL safety and reserved names.
func ValidateGroupSlug(slug string) error {
	if len(slug) < 2 || len(slug) > 255 {
		return errors.New("slug must be 2-255 characters")
	}
	if !groupSlugRegex.MatchString(slug) {
		return errors.New("slug may contain only lowercase letters, numbers, hyphens and underscores")
	}
	if _, reserved := reservedGroupSlugs[slug]; reserved {
		return errors.New("slug is reserved")
	}
	return nil
}
