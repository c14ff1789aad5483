package cli

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func Test_Truncate_CutsOnRunes_NotBytes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		max  int
		want string
	}{
		{name: "short ascii untouched", text: "Fix login", max: 42, want: "Fix login"},
		{name: "long ascii cut", text: strings.Repeat("a", 50), max: 10, want: "aaaaaaa..."},
		{name: "exactly max untouched", text: strings.Repeat("b", 10), max: 10, want: strings.Repeat("b", 10)},
		{name: "multibyte cut between runes", text: "Überlänge in größerem Ausmaß überall", max: 10, want: "Überlän..."},
		{name: "cjk cut between runes", text: "日本語のタイトルがとても長い場合", max: 8, want: "日本語のタ..."},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := truncate(tc.text, tc.max)

			if got != tc.want {
				t.Fatalf("truncate(%q, %d) = %q, want %q", tc.text, tc.max, got, tc.want)
			}

			if !utf8.ValidString(got) {
				t.Fatalf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}

func Test_Pad_CountsRunes_NotBytes(t *testing.T) {
	t.Parallel()

	got := pad("größe", 8)

	if got != "größe   " {
		t.Fatalf("pad() = %q", got)
	}

	if utf8.RuneCountInString(got) != 8 {
		t.Fatalf("padded width = %d runes, want 8", utf8.RuneCountInString(got))
	}

	if pad("already wide enough", 5) != "already wide enough" {
		t.Fatalf("pad shortened text above width")
	}
}
