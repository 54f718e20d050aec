package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/in-nis/timetable-back/internal/grid"
	"github.com/in-nis/timetable-back/internal/models"
)

// ProposeGrid asks the generative model for a candidate weekly grid. The
// model is an untrusted oracle: its output is decoded here and must still
// pass the constraint validator before anything is persisted.
func ProposeGrid(ctx context.Context, apiKey string, level int, required []models.CourseRequirement, fixed []models.FixedReservation) (grid.Grid, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-1.5-flash")
	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(level, required, fixed)))
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	var raw strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				raw.WriteString(string(text))
			}
		}
	}

	payload := ExtractJSON(raw.String())
	if payload == "" {
		return nil, fmt.Errorf("oracle response contained no JSON grid")
	}

	var g grid.Grid
	if err := json.Unmarshal([]byte(payload), &g); err != nil {
		return nil, fmt.Errorf("failed to decode oracle grid: %w", err)
	}
	return g, nil
}

func buildPrompt(level int, required []models.CourseRequirement, fixed []models.FixedReservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a weekly course timetable for academic level %d as a single JSON object.\n", level)
	b.WriteString("Keys are the days ")
	for i, d := range grid.Days {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(d))
	}
	b.WriteString("; each day maps slot labels ")
	for i, s := range grid.Slots {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(s))
	}
	b.WriteString(" to {\"courses\":[{\"course_code\",\"display_name\",\"location\"}]}. Leave free slots out.\n")
	b.WriteString("Every day key must be present even if it has no courses.\n\n")

	b.WriteString("Required weekly occurrences (exact):\n")
	for _, r := range required {
		fmt.Fprintf(&b, "- %s (%s): %d\n", r.CourseCode, r.DisplayName, r.Duration)
	}
	if len(fixed) > 0 {
		b.WriteString("\nFixed sections that must sit at exactly these coordinates:\n")
		for _, f := range fixed {
			fmt.Fprintf(&b, "- %s at %s %s\n", f.CourseCode, f.Day, f.Slot)
		}
	}
	b.WriteString("\nRespond with the JSON object only.")
	return b.String()
}

// ExtractJSON finds the first complete JSON object in a raw model reply,
// cutting it out of markdown fences and any surrounding prose.
func ExtractJSON(raw string) string {
	if jsonBlockStart := strings.Index(raw, "```json"); jsonBlockStart != -1 {
		raw = raw[jsonBlockStart+7:]
		if jsonBlockEnd := strings.Index(raw, "```"); jsonBlockEnd != -1 {
			raw = raw[:jsonBlockEnd]
		}
	} else if blockStart := strings.Index(raw, "```"); blockStart != -1 {
		raw = raw[blockStart+3:]
		if blockEnd := strings.Index(raw, "```"); blockEnd != -1 {
			raw = raw[:blockEnd]
		}
	}

	start := strings.Index(raw, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(raw, "}")
	if end == -1 || end < start {
		return ""
	}

	potential := raw[start : end+1]
	if json.Valid([]byte(potential)) {
		return potential
	}

	log.Printf("⚠️ Oracle reply held a malformed JSON object: %.80q\n", potential)
	return ""
}
