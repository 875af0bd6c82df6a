package prompt

import (
	"strings"
	"unicode"

	"essay-coach-be/pkg/llm"
)

type Mode string

const (
	ModeCoaching Mode = "coaching"
	ModeReview   Mode = "review"
)

// Budget bounds one model call.
type Budget struct {
	MaxTokens   int
	WindowTurns int
}

type Config struct {
	PersonaInstructions string
	ReviewInstructions  string
	Greeting            string
	Disclaimer          string
	Keywords            []string
	Coaching            Budget
	Review              Budget
}

// Prompt is the ordered model input for one turn.
type Prompt struct {
	Mode     Mode
	Budget   Budget
	Messages []llm.Message
}

// Assembler builds model input from the session log. It holds no per-turn
// state and is safe for concurrent use.
type Assembler struct {
	cfg      Config
	keywords map[string]struct{}
}

func NewAssembler(cfg Config) *Assembler {
	keywords := make(map[string]struct{}, len(cfg.Keywords))
	for _, k := range cfg.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords[k] = struct{}{}
		}
	}
	return &Assembler{cfg: cfg, keywords: keywords}
}

// Greeting returns the synthesized assistant message that opens every session.
func (a *Assembler) Greeting() llm.Message {
	return llm.Message{Role: "assistant", Content: a.cfg.Greeting}
}

func (a *Assembler) IsGreeting(m llm.Message) bool {
	return m.Role == "assistant" && m.Content == a.cfg.Greeting
}

// DetectMode reports review mode when any configured keyword occurs in text
// as a whole word, ignoring case.
func (a *Assembler) DetectMode(text string) Mode {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := a.keywords[w]; ok {
			return ModeReview
		}
	}
	return ModeCoaching
}

func (a *Assembler) BudgetFor(mode Mode) Budget {
	if mode == ModeReview {
		return a.cfg.Review
	}
	return a.cfg.Coaching
}

// Assemble orders the model input as: persona, rubric (review only), greeting,
// the last WindowTurns turns of history, then the new user message.
func (a *Assembler) Assemble(history []llm.Message, userText string) Prompt {
	mode := a.DetectMode(userText)
	budget := a.BudgetFor(mode)

	window := a.window(history, budget.WindowTurns)

	messages := make([]llm.Message, 0, len(window)+4)
	messages = append(messages, llm.Message{Role: "system", Content: a.cfg.PersonaInstructions})
	if mode == ModeReview {
		messages = append(messages, llm.Message{Role: "system", Content: a.cfg.ReviewInstructions})
	}
	messages = append(messages, a.Greeting())
	messages = append(messages, window...)
	messages = append(messages, llm.Message{Role: "user", Content: userText})

	return Prompt{Mode: mode, Budget: budget, Messages: messages}
}

func (a *Assembler) window(history []llm.Message, turns int) []llm.Message {
	filtered := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if a.IsGreeting(m) {
			continue
		}
		filtered = append(filtered, m)
	}
	if turns < 0 {
		turns = 0
	}
	if limit := turns * 2; len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}

// Finalize applies reply post-processing. Review replies get the disclaimer
// as their own trailing paragraph.
func (a *Assembler) Finalize(mode Mode, reply string) string {
	if mode != ModeReview {
		return reply
	}
	return reply + "\n\n" + a.cfg.Disclaimer
}
