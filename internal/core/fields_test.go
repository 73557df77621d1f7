package core

import (
	"reflect"
	"testing"
)

func TestParseFields(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{name: "empty", text: "", want: nil},
		{name: "no fields", text: "Just a sentence without structure", want: nil},
		{
			name: "simple",
			text: "Title: Sunsail\nSummary: A solar powered boat.",
			want: map[string]string{"Title": "Sunsail", "Summary": "A solar powered boat."},
		},
		{
			name: "markdown decorations",
			text: "**Title:** Sunsail\n- **Target Audience:** Sailors",
			want: map[string]string{"Title": "Sunsail", "Target Audience": "Sailors"},
		},
		{
			name: "continuation lines",
			text: "Key Features:\n- Solar panels\n- Quiet motor\nNext Steps: Prototype",
			want: map[string]string{"Key Features": "Solar panels\nQuiet motor", "Next Steps": "Prototype"},
		},
		{
			name: "bullets with colons stay in their section",
			text: "Title: Plant Pal\nKey Features:\n- Smart watering: waters on schedule\n- Light sensor: tracks sun\nNext Steps: build MVP",
			want: map[string]string{
				"Title":        "Plant Pal",
				"Key Features": "Smart watering: waters on schedule\nLight sensor: tracks sun",
				"Next Steps":   "build MVP",
			},
		},
		{
			name: "indented items and bold section header",
			text: "**Key Features:**\n  Sensor: soil moisture\n  App: reminders\n**Next Steps:**\n* Survey: ask 20 gardeners",
			want: map[string]string{
				"Key Features": "Sensor: soil moisture\nApp: reminders",
				"Next Steps":   "Survey: ask 20 gardeners",
			},
		},
		{
			name: "preamble ignored and urls are not keys",
			text: "Here you go!\nTitle: Site\nhttps://example.com is the link",
			want: map[string]string{"Title": "Site\nhttps://example.com is the link"},
		},
		{
			name: "long prose with colon is a continuation",
			text: "Summary: short\nThis sentence is far too long to be a key even though it has: a colon",
			want: map[string]string{"Summary": "short\nThis sentence is far too long to be a key even though it has: a colon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFields(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseFields() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
