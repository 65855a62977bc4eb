package domain

// Sentinel is the fixed refusal text returned whenever the relevance gate
// rejects a query. Callers compare against it verbatim.
const Sentinel = "The answer is not in the internal documents."

// AnswerRecord is the result of one answered question.
//
// Invariants:
//   - Grounded == false implies Sources is empty and AnswerText == Sentinel.
//   - Grounded == true implies Sources is non-empty and every integer token
//     in AnswerText also occurs in the consolidated context it was built from.
type AnswerRecord struct {
	AnswerText string
	Sources    []Chunk
	Grounded   bool
}

// NotFound returns the canonical "not in the documents" record.
func NotFound() AnswerRecord {
	return AnswerRecord{AnswerText: Sentinel, Sources: nil, Grounded: false}
}

// Message is one prior conversation turn, passed in by the caller.
// History is input only: the generative backend may use it for coreference,
// never as a source of facts.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
