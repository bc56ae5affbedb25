package chat

import (
	"context"
	"testing"
)

func TestRouterHeuristics(t *testing.T) {
	r := NewRouter(nil)

	tests := []struct {
		name     string
		query    string
		ready    int
		explicit Intent
		intent   Intent
		source   string
	}{
		{
			name:     "explicit intent wins",
			query:    "summarize everything",
			ready:    1,
			explicit: IntentRAG,
			intent:   IntentRAG,
			source:   "explicit",
		},
		{
			name:     "invalid explicit falls through",
			query:    "give me a summary",
			ready:    1,
			explicit: Intent("bogus"),
			intent:   IntentSummary,
			source:   "heuristic",
		},
		{
			name:   "compare keyword with two videos",
			query:  "compare the two talks",
			ready:  2,
			intent: IntentCompare,
			source: "heuristic",
		},
		{
			name:   "compare keyword with one video stays rag",
			query:  "compare the approaches mentioned",
			ready:  1,
			intent: IntentRAG,
			source: "heuristic",
		},
		{
			name:   "versus maps to compare",
			query:  "video one vs video two, which is better",
			ready:  2,
			intent: IntentCompare,
			source: "heuristic",
		},
		{
			name:   "summary keyword",
			query:  "can you give me a recap",
			ready:  1,
			intent: IntentSummary,
			source: "heuristic",
		},
		{
			name:   "summary of both videos",
			query:  "summarize both videos for me",
			ready:  2,
			intent: IntentDualSummary,
			source: "heuristic",
		},
		{
			name:   "tldr maps to summary",
			query:  "tl;dr please",
			ready:  1,
			intent: IntentSummary,
			source: "heuristic",
		},
		{
			name:   "plain question is rag",
			query:  "what does the speaker say about pricing",
			ready:  1,
			intent: IntentRAG,
			source: "heuristic",
		},
		{
			name:   "two videos without classifier falls back to rag",
			query:  "what does the speaker say about pricing",
			ready:  2,
			intent: IntentRAG,
			source: "heuristic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, source := r.Route(context.Background(), tt.query, tt.ready, tt.explicit)
			if intent != tt.intent || source != tt.source {
				t.Errorf("Route(%q, ready=%d) = (%s, %s), want (%s, %s)",
					tt.query, tt.ready, intent, source, tt.intent, tt.source)
			}
		})
	}
}

func TestIntentIsValid(t *testing.T) {
	for _, in := range []Intent{IntentRAG, IntentSummary, IntentCompare, IntentDualSummary} {
		if !in.IsValid() {
			t.Errorf("%s should be valid", in)
		}
	}
	if Intent("").IsValid() || Intent("chitchat").IsValid() {
		t.Error("unknown intents must be invalid")
	}
}
