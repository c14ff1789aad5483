package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"pillar/internal/entity"
)

const (
	maxProjectIDLen = 20
	maxIssueSlugLen = 40
)

// ValidateProjectID checks a user-supplied project identifier: letters,
// digits, '-' and '_' only, at most 20 characters.
func ValidateProjectID(id string) error {
	if id == "" {
		return &entity.ValidationError{Field: "project id", Msg: "required"}
	}

	if len(id) > maxProjectIDLen {
		return &entity.ValidationError{Field: "project id", Msg: fmt.Sprintf("longer than %d characters", maxProjectIDLen)}
	}

	for i := 0; i < len(id); i++ {
		c := id[i]
		if isAlnum(c) || c == '-' || c == '_' {
			continue
		}

		return &entity.ValidationError{Field: "project id", Msg: fmt.Sprintf("invalid character %q", c)}
	}

	return nil
}

// DeriveProjectID builds an identifier from a project name: the uppercase
// acronym of a multi-word name, or the uppercase 4-character prefix of a
// single-word one ("Alpha" -> "ALPH"). taken maps identifiers already in use;
// on collision a numeric suffix is appended ("ALPH-2", "ALPH-3", ...).
func DeriveProjectID(name string, taken map[string]bool) (string, error) {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	})

	var raw []byte

	if len(words) > 1 {
		for _, word := range words {
			if len(raw) == 4 {
				break
			}

			for i := 0; i < len(word); i++ {
				if isAlnum(word[i]) {
					raw = append(raw, word[i])

					break
				}
			}
		}
	} else {
		for i := 0; i < len(name) && len(raw) < 4; i++ {
			if isAlnum(name[i]) {
				raw = append(raw, name[i])
			}
		}
	}

	if len(raw) == 0 {
		return "", &entity.ValidationError{Field: "name", Msg: "no usable characters for an identifier"}
	}

	id := strings.ToUpper(string(raw))
	if !taken[id] {
		return id, nil
	}

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", id, n)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

// Slug converts a title to a filename-safe form: lowercase, runs of
// non-alphanumeric characters collapsed to single hyphens, trimmed, and cut
// at maxLen (0 means unlimited).
func Slug(title string, maxLen int) string {
	var out []byte

	for i := 0; i < len(title); i++ {
		c := title[i]

		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+'a'-'A')
		case isAlnum(c):
			out = append(out, c)
		default:
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}

	slug := strings.Trim(string(out), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.Trim(slug[:maxLen], "-")
	}

	if slug == "" {
		slug = "untitled"
	}

	return slug
}

// IssueFileName builds the "NNN-slug.md" filename for an issue.
func IssueFileName(number int, title string) string {
	return fmt.Sprintf("%03d-%s.md", number, Slug(title, maxIssueSlugLen))
}

// ParseIssueNumber extracts the numeric prefix from an issue filename.
// Returns false when the name does not follow the "NNN-slug.md" form.
func ParseIssueNumber(name string) (int, bool) {
	digits := 0
	for digits < len(name) && name[digits] >= '0' && name[digits] <= '9' {
		digits++
	}

	if digits == 0 || digits >= len(name) || name[digits] != '-' {
		return 0, false
	}

	number, err := strconv.Atoi(name[:digits])
	if err != nil || number <= 0 {
		return 0, false
	}

	return number, true
}

// NextIssueNumber scans a project's issues directory and returns the highest
// existing number plus one. The number is never persisted anywhere else, so
// two concurrent creates can race to the same number; the loser's write then
// fails the exists check.
func (s *Store) NextIssueNumber(project string) (int, error) {
	entries, err := os.ReadDir(s.IssuesDir(project))
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}

		return 0, fmt.Errorf("read issues of %s: %w", project, err)
	}

	max := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		if number, ok := ParseIssueNumber(entry.Name()); ok && number > max {
			max = number
		}
	}

	return max + 1, nil
}

// takenProjectIDs lists the directory names already present under base.
func (s *Store) takenProjectIDs() (map[string]bool, error) {
	entries, err := os.ReadDir(s.Base)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}

		return nil, fmt.Errorf("read base directory: %w", err)
	}

	taken := make(map[string]bool, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			taken[entry.Name()] = true
		}
	}

	return taken, nil
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
