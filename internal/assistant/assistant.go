// Package assistant orchestrates the chat surface: it routes each query to
// the calculator, weather, todo, web search, or smalltalk handler, and falls
// back to document QA. When document QA cannot ground an answer, the reply
// offers a web search; consent is resolved statelessly from the history on
// the next turn.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/atelier-labs/docent/internal/domain"
	"github.com/atelier-labs/docent/internal/logger"
	"github.com/atelier-labs/docent/internal/router"
	"github.com/atelier-labs/docent/internal/tools"
)

// WebConsentOffer is appended to an ungrounded document answer. Its presence
// in the last assistant turn is how a following yes/no is interpreted.
const WebConsentOffer = "Would you like me to search the web instead? (yes/no)"

const smalltalkPrompt = "You are a friendly assistant for a document question-answering service. Reply briefly and warmly, in the user's language. Do not invent facts."

var (
	yesRe = regexp.MustCompile(`(?i)^\s*(?:oui|ouais|o|yes|yep|y)\b`)
	noRe  = regexp.MustCompile(`(?i)^\s*(?:non|n|no|nope)\b`)
)

// Answerer is the document QA contract the assistant depends on.
type Answerer interface {
	AnswerQuestion(ctx context.Context, question string, history []domain.Message) (domain.AnswerRecord, error)
}

// WeatherProvider resolves a city from free text and reports conditions.
type WeatherProvider interface {
	Current(ctx context.Context, freeText string) (tools.WeatherReport, error)
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]tools.SearchResult, error)
}

// TodoHandler executes a natural language task-list command.
type TodoHandler interface {
	Handle(text string) (string, error)
}

// MailSender delivers a plain text message.
type MailSender interface {
	Send(to, subject, body string) error
}

// Reply is one assistant turn. The transport layer owns the wire shape.
type Reply struct {
	Text     string
	Mode     string
	Sources  []domain.Chunk
	Grounded bool
}

// Assistant wires the router, the tools, and the QA engine together. All
// handlers except the QA engine are optional; a missing handler degrades to
// an explanatory reply instead of an error.
type Assistant struct {
	engine    Answerer
	weather   WeatherProvider
	searcher  Searcher
	todos     TodoHandler
	mailer    MailSender
	generator domain.Generator
	logger    *zap.Logger
}

// New creates an assistant around a QA engine.
func New(engine Answerer, log *zap.Logger) *Assistant {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assistant{engine: engine, logger: log}
}

// WithWeather attaches the weather handler.
func (a *Assistant) WithWeather(w WeatherProvider) *Assistant { a.weather = w; return a }

// WithSearcher attaches the web search handler.
func (a *Assistant) WithSearcher(s Searcher) *Assistant { a.searcher = s; return a }

// WithTodos attaches the task-list handler.
func (a *Assistant) WithTodos(t TodoHandler) *Assistant { a.todos = t; return a }

// WithMailer attaches the outbound mail handler.
func (a *Assistant) WithMailer(m MailSender) *Assistant { a.mailer = m; return a }

// WithGenerator attaches the backend used for smalltalk replies.
func (a *Assistant) WithGenerator(g domain.Generator) *Assistant { a.generator = g; return a }

// Chat handles one user turn. History is input only; the caller owns it.
func (a *Assistant) Chat(ctx context.Context, text string, history []domain.Message) (Reply, error) {
	log := logger.FromContext(ctx)

	if addr, ok := tools.DetectEmailCommand(text); ok {
		return a.emailLastAnswer(log, addr, history)
	}

	if pending, offered := pendingWebQuestion(history); offered {
		if yesRe.MatchString(text) {
			return a.webSearch(ctx, log, pending)
		}
		if noRe.MatchString(text) {
			return Reply{Text: "Understood, staying with the internal documents.", Mode: "rag"}, nil
		}
	}

	intent, payload := router.Route(text)
	log.Debug("query routed", zap.String("intent", string(intent)))

	switch intent {
	case router.IntentWeather:
		return a.weatherReply(ctx, payload)
	case router.IntentCalc:
		return a.calcReply(payload)
	case router.IntentTodo:
		return a.todoReply(payload)
	case router.IntentWeb:
		return a.webSearch(ctx, log, payload)
	case router.IntentSmalltalk:
		return a.smalltalk(ctx, payload, history)
	default:
		return a.documentAnswer(ctx, payload, history)
	}
}

func (a *Assistant) documentAnswer(ctx context.Context, question string, history []domain.Message) (Reply, error) {
	rec, err := a.engine.AnswerQuestion(ctx, question, history)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Text: rec.AnswerText, Mode: "rag", Sources: rec.Sources, Grounded: rec.Grounded}
	if !rec.Grounded && a.searcher != nil {
		reply.Text = rec.AnswerText + " " + WebConsentOffer
	}
	return reply, nil
}

func (a *Assistant) weatherReply(ctx context.Context, text string) (Reply, error) {
	if a.weather == nil {
		return Reply{Text: "The weather service is not available here.", Mode: "weather"}, nil
	}
	rep, err := a.weather.Current(ctx, text)
	if err != nil {
		a.logger.Warn("weather lookup failed", zap.Error(err))
		return Reply{Text: "Sorry, I could not fetch the weather right now.", Mode: "weather"}, nil
	}
	return Reply{
		Text: fmt.Sprintf("Current weather in %s: %.1f°C, wind %.1f km/h.", rep.City, rep.TemperatureC, rep.WindKmh),
		Mode: "weather",
	}, nil
}

func (a *Assistant) calcReply(text string) (Reply, error) {
	calc, err := tools.Calculate(text)
	if err != nil {
		return Reply{Text: fmt.Sprintf("I could not compute that: %v.", err), Mode: "calc"}, nil
	}
	return Reply{Text: fmt.Sprintf("%s = %s", calc.Expression, calc.Result), Mode: "calc"}, nil
}

func (a *Assistant) todoReply(text string) (Reply, error) {
	if a.todos == nil {
		return Reply{Text: "The task list is not available here.", Mode: "todo"}, nil
	}
	out, err := a.todos.Handle(text)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: out, Mode: "todo"}, nil
}

func (a *Assistant) webSearch(ctx context.Context, log *zap.Logger, query string) (Reply, error) {
	if a.searcher == nil {
		return Reply{Text: "Web search is not available here.", Mode: "web"}, nil
	}
	results, err := a.searcher.Search(ctx, query)
	if err != nil {
		log.Warn("web search failed", zap.Error(err))
		return Reply{Text: "Sorry, the web search failed.", Mode: "web"}, nil
	}
	if len(results) == 0 {
		return Reply{Text: "The web search returned no results.", Mode: "web"}, nil
	}

	var b strings.Builder
	b.WriteString("Here is what I found on the web:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s (%s)", r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, ": %s", r.Snippet)
		}
		b.WriteString("\n")
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n"), Mode: "web"}, nil
}

func (a *Assistant) smalltalk(ctx context.Context, text string, history []domain.Message) (Reply, error) {
	if a.generator == nil {
		return Reply{Text: "Hello! Ask me anything about the documents.", Mode: "smalltalk"}, nil
	}
	msgs := append(append([]domain.Message{}, history...), domain.Message{Role: "user", Content: text})
	out, err := a.generator.Generate(ctx, smalltalkPrompt, msgs)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: out, Mode: "smalltalk"}, nil
}

func (a *Assistant) emailLastAnswer(log *zap.Logger, addr string, history []domain.Message) (Reply, error) {
	last := lastAssistantAnswer(history)
	if last == "" {
		return Reply{Text: "There is no previous answer to send.", Mode: "email"}, nil
	}
	if a.mailer == nil {
		return Reply{Text: "Email is not configured on this server.", Mode: "email"}, nil
	}
	if err := a.mailer.Send(addr, "Assistant answer", last); err != nil {
		if errors.Is(err, tools.ErrMailerNotConfigured) {
			return Reply{Text: "Email is not configured on this server.", Mode: "email"}, nil
		}
		log.Warn("email delivery failed", zap.String("to", addr), zap.Error(err))
		return Reply{Text: "Sorry, the email could not be sent.", Mode: "email"}, nil
	}
	return Reply{Text: fmt.Sprintf("Answer sent to %s.", addr), Mode: "email"}, nil
}

// pendingWebQuestion returns the question awaiting web-search consent: the
// last user turn before an assistant turn ending with the consent offer.
func pendingWebQuestion(history []domain.Message) (string, bool) {
	idx := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" {
			if strings.Contains(history[i].Content, WebConsentOffer) {
				idx = i
			}
			break
		}
	}
	if idx < 0 {
		return "", false
	}
	for i := idx - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return history[i].Content, true
		}
	}
	return "", false
}

// lastAssistantAnswer returns the most recent assistant turn that is not
// itself a consent offer shell.
func lastAssistantAnswer(history []domain.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" && strings.TrimSpace(history[i].Content) != "" {
			return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(history[i].Content), WebConsentOffer))
		}
	}
	return ""
}
