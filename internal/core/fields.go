package core

import (
	"strings"
	"unicode"
)

const maxFieldKeyLength = 40

// ParseFields collects "Key: value" lines of a response. Lines that do not
// start a new key are appended to the previous one. A key with no inline
// value opens a section: its bullet or indented lines belong to it even when
// they contain a colon themselves.
func ParseFields(text string) map[string]string {
	fields := make(map[string]string)
	current := ""
	section := false

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		item := isListItem(raw)
		line := strings.TrimSpace(raw)
		line = strings.TrimLeft(line, "-*+#> \t")
		line = strings.ReplaceAll(line, "**", "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !(section && item) {
			if key, value, ok := splitField(line); ok {
				current = key
				fields[key] = value
				section = value == ""
				continue
			}
		}
		if current != "" {
			if fields[current] == "" {
				fields[current] = line
			} else {
				fields[current] += "\n" + line
			}
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// isListItem reports whether raw is indented or starts with a "-", "*" or "+" bullet
func isListItem(raw string) bool {
	if strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t") {
		return strings.TrimSpace(raw) != ""
	}
	for _, marker := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(raw, marker) {
			return true
		}
	}
	return false
}

func splitField(line string) (string, string, bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" || len(key) > maxFieldKeyLength || len(strings.Fields(key)) > 5 {
		return "", "", false
	}
	if first := []rune(key)[0]; !unicode.IsLetter(first) {
		return "", "", false
	}
	if strings.Contains(strings.ToLower(key), "http") {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}
