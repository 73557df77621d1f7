// Package scenes extracts scene records from free-form model output.
package scenes

import (
	"regexp"
	"strconv"
	"strings"
)

// Scene is one entry of a generated video script
type Scene struct {
	Number      int    `json:"number"`
	Title       string `json:"title,omitempty"`
	Script      string `json:"script,omitempty"`
	ImagePrompt string `json:"imagePrompt,omitempty"`
	Narration   string `json:"narration,omitempty"`
}

type field int

const (
	fieldNone field = iota
	fieldTitle
	fieldScript
	fieldImagePrompt
	fieldNarration
)

var headerPattern = regexp.MustCompile(`(?i)^scene\s*(\d*)\s*(.*)$`)

var prefixes = []struct {
	prefix string
	field  field
}{
	{"script:", fieldScript},
	{"image prompt:", fieldImagePrompt},
	{"image_prompt:", fieldImagePrompt},
	{"imageprompt:", fieldImagePrompt},
	{"narration:", fieldNarration},
	{"title:", fieldTitle},
}

// Parse splits text into scenes. It never fails; fields that are not
// present in the text stay empty.
func Parse(text string) []Scene {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	hasHeader := false
	hasPrefix := false
	for _, raw := range lines {
		line := clean(raw)
		if _, _, ok := parseHeader(line); ok {
			hasHeader = true
			break
		}
		if f, _ := matchPrefix(line); f != fieldNone {
			hasPrefix = true
		}
	}
	if !hasHeader && !hasPrefix {
		return nil
	}

	var result []*Scene
	var current *Scene
	last := fieldNone
	if !hasHeader {
		current = &Scene{Number: 1}
		result = append(result, current)
	}

	for _, raw := range lines {
		line := clean(raw)
		if line == "" {
			continue
		}
		if number, title, ok := parseHeader(line); ok {
			if number == 0 {
				number = len(result) + 1
			}
			current = &Scene{Number: number, Title: title}
			result = append(result, current)
			last = fieldNone
			continue
		}
		if current == nil {
			continue
		}
		if f, rest := matchPrefix(line); f != fieldNone {
			set(current, f, rest)
			last = f
			continue
		}
		if last != fieldNone {
			appendTo(current, last, line)
		}
	}

	scenes := make([]Scene, 0, len(result))
	for _, s := range result {
		scenes = append(scenes, *s)
	}
	return scenes
}

func clean(line string) string {
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "*#_ \t")
	line = strings.ReplaceAll(line, "**", "")
	line = strings.ReplaceAll(line, "__", "")
	return strings.TrimSpace(line)
}

// parseHeader accepts "Scene", "Scene: x", "Scene 3", "Scene 3: x" and "Scene 3 - x".
func parseHeader(line string) (int, string, bool) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	digits, rest := m[1], strings.TrimSpace(m[2])
	if digits == "" && rest != "" && !strings.HasPrefix(rest, ":") {
		return 0, "", false
	}

	number := 0
	if digits != "" {
		n, err := strconv.Atoi(digits)
		if err == nil {
			number = n
		}
	}

	title := ""
	if idx := strings.IndexAny(rest, ":-"); idx >= 0 {
		title = strings.TrimSpace(rest[idx+1:])
	}
	return number, title, true
}

func matchPrefix(line string) (field, string) {
	for _, p := range prefixes {
		n := len(p.prefix)
		if len(line) >= n && strings.EqualFold(line[:n], p.prefix) {
			return p.field, strings.TrimSpace(strings.TrimLeft(line[n:], "*_ \t"))
		}
	}
	return fieldNone, ""
}

func set(s *Scene, f field, value string) {
	switch f {
	case fieldTitle:
		s.Title = value
	case fieldScript:
		s.Script = value
	case fieldImagePrompt:
		s.ImagePrompt = value
	case fieldNarration:
		s.Narration = value
	}
}

func appendTo(s *Scene, f field, line string) {
	join := func(existing string) string {
		if existing == "" {
			return line
		}
		return existing + "\n" + line
	}
	switch f {
	case fieldTitle:
		s.Title = join(s.Title)
	case fieldScript:
		s.Script = join(s.Script)
	case fieldImagePrompt:
		s.ImagePrompt = join(s.ImagePrompt)
	case fieldNarration:
		s.Narration = join(s.Narration)
	}
}
