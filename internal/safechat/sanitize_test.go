package safechat

import "testing"

func TestSanitizeStripsBoldMarkers(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "call **911** now", want: "call 911 now"},
		{in: "**a** and **b**", want: "a and b"},
		{in: "no markers", want: "no markers"},
		{in: "unbalanced ** stays", want: "unbalanced ** stays"},
		{in: "", want: ""},
	}
	for _, item := range cases {
		if got := Sanitize(item.in); got != item.want {
			t.Fatalf("Sanitize(%q) = %q, want %q", item.in, got, item.want)
		}
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"call **911** now",
		"**bold** plain **bold**",
		"****",
		"* single * stars *",
		"nested **outer **inner** tail**",
	}
	for _, input := range inputs {
		once := Sanitize(input)
		twice := Sanitize(once)
		if once != twice {
			t.Fatalf("expected idempotence for %q: once=%q twice=%q", input, once, twice)
		}
	}
}
