package oracle

import "testing"

func TestExtractJSON(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		if got := ExtractJSON(`{"Sunday":{}}`); got != `{"Sunday":{}}` {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("json fence", func(t *testing.T) {
		raw := "Here is your timetable:\n```json\n{\"Sunday\":{}}\n```\nEnjoy!"
		if got := ExtractJSON(raw); got != `{"Sunday":{}}` {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("plain fence", func(t *testing.T) {
		raw := "```\n{\"Sunday\":{}}\n```"
		if got := ExtractJSON(raw); got != `{"Sunday":{}}` {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("prose around object", func(t *testing.T) {
		raw := `Sure! {"Sunday":{"08:00":{"courses":[]}}} hope this helps`
		if got := ExtractJSON(raw); got != `{"Sunday":{"08:00":{"courses":[]}}}` {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("no object", func(t *testing.T) {
		if got := ExtractJSON("I cannot do that"); got != "" {
			t.Fatalf("got %q, want empty", got)
		}
	})

	t.Run("malformed object", func(t *testing.T) {
		if got := ExtractJSON(`{"Sunday":`); got != "" {
			t.Fatalf("got %q, want empty", got)
		}
	})
}
