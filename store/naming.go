package store

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	slugDropRe  = regexp.MustCompile(`[^a-z0-9_\s]+`)
	slugSpaceRe = regexp.MustCompile(`\s+`)
)

// SanitizeToolName normalizes a tool name or question into a safe slug:
// lowercase, underscore-separated, no punctuation. Empty input slugs to
// "recipe"; a leading digit gets an "r_" prefix so the result stays a
// valid identifier.
func SanitizeToolName(name string) string {
	slug := strings.ToLower(name)
	slug = slugDropRe.ReplaceAllString(slug, "")
	slug = slugSpaceRe.ReplaceAllString(strings.TrimSpace(slug), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return "recipe"
	}
	if slug[0] >= '0' && slug[0] <= '9' {
		slug = "r_" + slug
	}
	return slug
}

// DeduplicateToolName ensures a unique tool name against seen, appending
// an incrementing numeric suffix on collision, and records the result.
func DeduplicateToolName(base string, seen map[string]struct{}) string {
	name := base
	for counter := 2; ; counter++ {
		if _, taken := seen[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", base, counter)
	}
	seen[name] = struct{}{}
	return name
}
