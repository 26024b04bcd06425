package server

import (
	"testing"
	"time"
)

func TestNormalizeAgeGroup(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "5-10", want: "5-10", ok: true},
		{input: " 11-15 ", want: "11-15", ok: true},
		{input: "16-19", want: "16-19", ok: true},
		{input: "5-8", ok: false},
		{input: "20-25", ok: false},
		{input: "", ok: false},
	}
	for _, tc := range cases {
		got, ok := normalizeAgeGroup(tc.input)
		if ok != tc.ok {
			t.Fatalf("normalizeAgeGroup(%q) ok=%v, want %v", tc.input, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("normalizeAgeGroup(%q)=%q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestAgeGroupForAge(t *testing.T) {
	cases := []struct {
		age  int
		want string
		ok   bool
	}{
		{age: 5, want: "5-10", ok: true},
		{age: 10, want: "5-10", ok: true},
		{age: 11, want: "11-15", ok: true},
		{age: 15, want: "11-15", ok: true},
		{age: 16, want: "16-19", ok: true},
		{age: 19, want: "16-19", ok: true},
		{age: 4, ok: false},
		{age: 20, ok: false},
		{age: 0, ok: false},
	}
	for _, tc := range cases {
		got, ok := ageGroupForAge(tc.age)
		if ok != tc.ok {
			t.Fatalf("ageGroupForAge(%d) ok=%v, want %v", tc.age, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ageGroupForAge(%d)=%q, want %q", tc.age, got, tc.want)
		}
	}
}

func TestAgeGroupLabel(t *testing.T) {
	if got := ageGroupLabel(nil); got != nil {
		t.Fatalf("ageGroupLabel(nil)=%v, want nil", got)
	}
	age := 22
	if got := ageGroupLabel(&age); got != nil {
		t.Fatalf("ageGroupLabel(22)=%v, want nil", got)
	}
	age = 12
	if got := ageGroupLabel(&age); got != "11-15" {
		t.Fatalf("ageGroupLabel(12)=%v, want 11-15", got)
	}
}

func TestParseJSONStringSlice(t *testing.T) {
	got := parseJSONStringSlice([]byte(`["a","b","c"]`))
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected slice: %v", got)
	}
	if got := parseJSONStringSlice(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := parseJSONStringSlice([]byte(`{"not":"a list"}`)); got != nil {
		t.Fatalf("expected nil for non-list JSON, got %v", got)
	}
}

func TestDayKeyAndStartOfUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 01:30 on March 2 in UTC+9 is still March 1 in UTC.
	local := time.Date(2026, 3, 2, 1, 30, 0, 0, loc)
	if got := dayKey(local); got != "2026-03-01" {
		t.Fatalf("dayKey=%q, want 2026-03-01", got)
	}
	start := startOfUTCDay(local)
	if start.Hour() != 0 || start.Minute() != 0 || start.Day() != 1 {
		t.Fatalf("unexpected start of day: %v", start)
	}
	if start.Location() != time.UTC {
		t.Fatalf("start of day not in UTC: %v", start.Location())
	}
}

func TestClaimHasAudience(t *testing.T) {
	if !claimHasAudience("authenticated", "authenticated") {
		t.Fatal("string audience should match")
	}
	if !claimHasAudience([]any{"other", "authenticated"}, "authenticated") {
		t.Fatal("list audience should match")
	}
	if claimHasAudience([]any{"other"}, "authenticated") {
		t.Fatal("non-matching list should not match")
	}
	if claimHasAudience(nil, "authenticated") {
		t.Fatal("nil audience should not match")
	}
}

func TestProviderFromClaim(t *testing.T) {
	if got := providerFromClaim("google"); got != "google" {
		t.Fatalf("providerFromClaim(google)=%q", got)
	}
	if got := providerFromClaim("unknown"); got != "email" {
		t.Fatalf("providerFromClaim(unknown)=%q, want email", got)
	}
	if got := providerFromClaim(nil); got != "email" {
		t.Fatalf("providerFromClaim(nil)=%q, want email", got)
	}
}

func TestAgeFromClaim(t *testing.T) {
	if got := ageFromClaim(float64(9)); got == nil || *got != 9 {
		t.Fatalf("ageFromClaim(9.0)=%v, want 9", got)
	}
	if got := ageFromClaim(12); got == nil || *got != 12 {
		t.Fatalf("ageFromClaim(12)=%v, want 12", got)
	}
	if got := ageFromClaim(float64(0)); got != nil {
		t.Fatalf("ageFromClaim(0)=%v, want nil", got)
	}
	if got := ageFromClaim("12"); got != nil {
		t.Fatalf("ageFromClaim(string)=%v, want nil", got)
	}
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	lastWeek := now.AddDate(0, 0, -7)

	if got := nextStreak(0, nil, now); got != 1 {
		t.Fatalf("first activity streak=%d, want 1", got)
	}
	if got := nextStreak(3, &now, now); got != 3 {
		t.Fatalf("same-day streak=%d, want 3", got)
	}
	if got := nextStreak(3, &yesterday, now); got != 4 {
		t.Fatalf("consecutive-day streak=%d, want 4", got)
	}
	if got := nextStreak(3, &lastWeek, now); got != 1 {
		t.Fatalf("gap streak=%d, want 1", got)
	}
	if got := nextStreak(0, &now, now); got != 1 {
		t.Fatalf("same-day zero streak=%d, want 1", got)
	}
}

func TestParseLessonJSON(t *testing.T) {
	title, summary, content, ok := parseLessonJSON(`{"title":"T","summary":"S","content":"C"}`)
	if !ok || title != "T" || summary != "S" || content != "C" {
		t.Fatalf("plain JSON parse failed: %q %q %q %v", title, summary, content, ok)
	}

	fenced := "```json\n{\"title\":\"T\",\"summary\":\"S\",\"content\":\"**C**\"}\n```"
	title, _, content, ok = parseLessonJSON(fenced)
	if !ok || title != "T" {
		t.Fatalf("fenced JSON parse failed: %q %v", title, ok)
	}
	if content != "C" {
		t.Fatalf("content not sanitized: %q", content)
	}

	wrapped := "Here is your lesson: {\"title\":\"T\",\"summary\":\"\",\"content\":\"C\"} hope it helps"
	if _, _, _, ok := parseLessonJSON(wrapped); !ok {
		t.Fatal("JSON embedded in prose should parse")
	}

	if _, _, _, ok := parseLessonJSON("not json at all"); ok {
		t.Fatal("plain prose should not parse")
	}
	if _, _, _, ok := parseLessonJSON(`{"title":"","summary":"s","content":"c"}`); ok {
		t.Fatal("missing title should not parse")
	}
	if _, _, _, ok := parseLessonJSON(""); ok {
		t.Fatal("empty answer should not parse")
	}
}

func TestTruncateForLog(t *testing.T) {
	if got := truncateForLog("  hello  ", 10); got != "hello" {
		t.Fatalf("truncateForLog trim failed: %q", got)
	}
	if got := truncateForLog("abcdefghij", 4); got != "abcd...(truncated)" {
		t.Fatalf("truncateForLog cut failed: %q", got)
	}
}
