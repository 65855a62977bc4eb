package rag

import "testing"

func TestGateScreen(t *testing.T) {
	g := NewGate(GateConfig{})

	tests := []struct {
		name       string
		question   string
		ctx        string
		generative bool
		want       string
	}{
		{
			name:     "empty context",
			question: "anything",
			ctx:      "   ",
			want:     CheckEmptyContext,
		},
		{
			name:     "no overlap",
			question: "quantum entanglement",
			ctx:      "Cheese ripens in caves.",
			want:     CheckLexicalOverlap,
		},
		{
			name:     "direct overlap",
			question: "where does cheese ripen",
			ctx:      "Cheese ripens in caves.",
			want:     "",
		},
		{
			name:     "fuzzy overlap via shared prefix",
			question: "explain routage",
			ctx:      "Le routeur choisit le chemin.",
			want:     "",
		},
		{
			name:     "accent folded overlap",
			question: "c'est quoi un réseau",
			ctx:      "Un reseau relie des machines.",
			want:     "",
		},
		{
			name:       "uncovered strong keyword in generative mode",
			question:   "what does kubernetes orchestrate",
			ctx:        "This chapter covers what containers do.",
			generative: true,
			want:       CheckStrongKeywords,
		},
		{
			name:       "stopwords never count as strong",
			question:   "explain the definition of containers",
			ctx:        "Containers package software.",
			generative: true,
			want:       "",
		},
		{
			name:     "uncovered strong keyword tolerated in extractive mode",
			question: "what does kubernetes do with containers",
			ctx:      "This chapter covers what containers do.",
			want:     "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Screen(tt.question, tt.ctx, tt.generative); got != tt.want {
				t.Errorf("Screen() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGateInspect(t *testing.T) {
	g := NewGate(GateConfig{})

	tests := []struct {
		name   string
		answer string
		ctx    string
		want   string
	}{
		{
			name:   "no numbers passes",
			answer: "Paris is the capital.",
			ctx:    "Paris is the capital of France since 987.",
			want:   "",
		},
		{
			name:   "consistent numbers pass",
			answer: "The port is 80.",
			ctx:    "The HTTP default port is 80.",
			want:   "",
		},
		{
			name:   "fabricated number rejected",
			answer: "The port is 443.",
			ctx:    "The HTTP default port is 80.",
			want:   CheckNumericConsistency,
		},
		{
			name:   "refusal echo rejected",
			answer: "I don't know, sorry.",
			ctx:    "The HTTP default port is 80.",
			want:   CheckRefusalEcho,
		},
		{
			name:   "sentinel echo rejected",
			answer: "The answer is not in the internal documents.",
			ctx:    "The HTTP default port is 80.",
			want:   CheckRefusalEcho,
		},
		{
			name:   "refusal checked before numbers",
			answer: "I do not know about port 9999.",
			ctx:    "The HTTP default port is 80.",
			want:   CheckRefusalEcho,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Inspect(tt.answer, tt.ctx); got != tt.want {
				t.Errorf("Inspect() = %q, want %q", got, tt.want)
			}
		})
	}
}
