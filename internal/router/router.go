// Package router classifies free-text queries into handler intents. Pure
// regex heuristics, no model calls: misrouting to the RAG default is always
// safe because the relevance gate refuses what the corpus cannot answer.
package router

import (
	"regexp"
	"strings"
)

// Intent names a query handler.
type Intent string

const (
	IntentWeather   Intent = "weather"
	IntentCalc      Intent = "calc"
	IntentTodo      Intent = "todo"
	IntentWeb       Intent = "web"
	IntentSmalltalk Intent = "smalltalk"
	IntentRAG       Intent = "rag"
)

var (
	weatherRe = regexp.MustCompile(`(?i)\b(meteo|météo|weather|temperature|température|forecast)\b`)
	webRe     = regexp.MustCompile(`(?i)\b(cherche|recherche|search|google)\b`)

	todoAddRe   = regexp.MustCompile(`(?i)\b(ajoute|ajouter|add)\b`)
	todoDoneRe  = regexp.MustCompile(`(?i)\b(termine|finis|fini|done|complete)\b`)
	todoListRe  = regexp.MustCompile(`(?i)\b(liste|list|tasks|taches|tâches|todo)\b`)
	todoClearRe = regexp.MustCompile(`(?i)\b(vide tout|vide la liste|reset|clear|efface tout|supprime tout)\b`)

	mathOperatorRe = regexp.MustCompile(`[+\-*/%^]`)
	mathHintRe     = regexp.MustCompile(`[0-9+\-*/%^()]`)
	// No trailing \b: inline forms like "sqrt16" put a digit right after
	// the function name.
	mathFuncRe = regexp.MustCompile(`(?i)\b(sin|cos|tan|sqrt|log10|log|ln|exp|pi|π)`)
	digitRe    = regexp.MustCompile(`[0-9]`)
)

var greetings = map[string]struct{}{
	"bonjour": {}, "salut": {}, "hello": {}, "hi": {}, "hey": {},
	"good morning": {}, "good evening": {},
}

// Route returns the intent for a query and the payload to hand to the
// handler. Priority: weather, calculator, todo, explicit web search,
// smalltalk, then the RAG default.
func Route(text string) (Intent, string) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return IntentSmalltalk, text
	}

	if weatherRe.MatchString(t) {
		return IntentWeather, t
	}
	if looksLikeMath(text) {
		return IntentCalc, text
	}
	if todoAddRe.MatchString(t) || todoDoneRe.MatchString(t) ||
		todoListRe.MatchString(t) || todoClearRe.MatchString(t) {
		return IntentTodo, text
	}
	if webRe.MatchString(t) {
		return IntentWeb, text
	}
	if _, ok := greetings[t]; ok {
		return IntentSmalltalk, text
	}
	return IntentRAG, text
}

// looksLikeMath is deliberately strict: a digit AND an operator or math
// function must both be present. "the 7 layers of the OSI model" contains a
// digit but no operator, so it stays out of the calculator.
func looksLikeMath(text string) bool {
	if text == "" {
		return false
	}
	t := strings.ToLower(strings.ReplaceAll(text, " ", ""))

	if !digitRe.MatchString(t) {
		return false
	}
	if !mathOperatorRe.MatchString(t) && !mathFuncRe.MatchString(t) {
		return false
	}
	return mathHintRe.MatchString(text)
}
