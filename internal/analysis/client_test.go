package analysis

import (
	"strings"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Verdict
		wantErr bool
	}{
		{
			name: "PlainJSON",
			raw:  `{"evaluation": "positive", "reasoning": "strong results", "confidence": 0.9}`,
			want: Verdict{Evaluation: "positive", Reasoning: "strong results", Confidence: 0.9},
		},
		{
			name: "FencedJSON",
			raw:  "```json\n{\"evaluation\": \"neutral\", \"reasoning\": \"routine filing\", \"confidence\": 0.5}\n```",
			want: Verdict{Evaluation: "neutral", Reasoning: "routine filing", Confidence: 0.5},
		},
		{
			name: "FenceWithoutLanguage",
			raw:  "```\n{\"evaluation\": \"negative\", \"confidence\": 0.7}\n```",
			want: Verdict{Evaluation: "negative", Confidence: 0.7},
		},
		{
			name:    "NotJSON",
			raw:     "The stock will probably go up.",
			wantErr: true,
		},
		{
			name:    "MissingEvaluation",
			raw:     `{"reasoning": "hmm", "confidence": 0.4}`,
			wantErr: true,
		},
		{
			name:    "ConfidenceOutOfRange",
			raw:     `{"evaluation": "positive", "confidence": 1.5}`,
			wantErr: true,
		},
		{
			name:    "Empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseVerdict(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVerdict(%q): %v", tt.raw, err)
			}
			if *got != tt.want {
				t.Errorf("ParseVerdict() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParseVerdictErrorTruncatesRawText(t *testing.T) {
	raw := strings.Repeat("x", 1000)
	_, err := ParseVerdict(raw)
	if err == nil {
		t.Fatal("ParseVerdict should fail")
	}
	if len(err.Error()) > 400 {
		t.Errorf("Error message too long (%d chars), raw reply should be truncated", len(err.Error()))
	}
}

func TestStripCodeFence(t *testing.T) {
	got := stripCodeFence("```json\n{\"a\":1}\n```")
	if got != `{"a":1}` {
		t.Errorf("stripCodeFence = %q", got)
	}
	// No fence, untouched.
	if got := stripCodeFence(`{"a":1}`); got != `{"a":1}` {
		t.Errorf("stripCodeFence without fence = %q", got)
	}
}
