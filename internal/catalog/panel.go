package catalog

import "strings"

// PanelAction is what pressing Enter in the search box resolved to.
type PanelAction string

const (
	PanelNone   PanelAction = "none"
	PanelSelect PanelAction = "select"
	PanelSearch PanelAction = "search"
)

// PanelResult describes the navigation triggered by Enter.
type PanelResult struct {
	Action    PanelAction
	Selection Selection
	Query     string
}

// SuggestionPanel is the state behind the search box dropdown. Cursor is -1 when no suggestion is
// highlighted (free-text mode) and is always clamped to [-1, len(Items)-1].
type SuggestionPanel struct {
	Text   string
	Open   bool
	Cursor int
	Items  []Suggestion

	suggest func(query string) []Suggestion
}

// NewSuggestionPanel creates a closed panel that recomputes suggestions through suggest.
func NewSuggestionPanel(suggest func(query string) []Suggestion) *SuggestionPanel {
	return &SuggestionPanel{Cursor: -1, suggest: suggest}
}

// Type records a keystroke: suggestions are recomputed synchronously and the cursor resets.
func (p *SuggestionPanel) Type(text string) {
	p.Text = text
	p.Cursor = -1
	if strings.TrimSpace(text) == "" {
		p.Items = nil
		p.Open = false
		return
	}
	p.Items = p.suggest(text)
	p.Open = len(p.Items) > 0
}

// Down moves the highlight one suggestion down, stopping at the last one. On a hidden panel it
// reopens the list first so the highlighted suggestion is always visible.
func (p *SuggestionPanel) Down() {
	if len(p.Items) == 0 {
		p.Cursor = -1
		return
	}
	if !p.Open {
		p.Open = true
		p.Cursor = -1
	}
	if p.Cursor < len(p.Items)-1 {
		p.Cursor++
	}
}

// Up moves the highlight up, returning to free-text mode above the first suggestion.
func (p *SuggestionPanel) Up() {
	if p.Open && p.Cursor > -1 {
		p.Cursor--
	}
}

// Enter selects the highlighted suggestion or, in free-text mode or with the panel hidden, submits
// the typed text.
func (p *SuggestionPanel) Enter() PanelResult {
	if p.Open && p.Cursor >= 0 && p.Cursor < len(p.Items) {
		selection := Select(p.Items[p.Cursor])
		p.Text = selection.QueryText
		p.close()
		return PanelResult{Action: PanelSelect, Selection: selection, Query: p.Text}
	}

	p.close()
	if strings.TrimSpace(p.Text) == "" {
		return PanelResult{Action: PanelNone}
	}
	return PanelResult{Action: PanelSearch, Query: strings.TrimSpace(p.Text)}
}

// Escape hides the panel without touching the typed text.
func (p *SuggestionPanel) Escape() {
	p.close()
}

// Dismiss handles interaction outside the panel. The typed text is preserved.
func (p *SuggestionPanel) Dismiss() {
	p.close()
}

func (p *SuggestionPanel) close() {
	p.Open = false
	p.Cursor = -1
}
