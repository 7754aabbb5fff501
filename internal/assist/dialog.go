package assist

// The shopping-assistant chat is a fixed script, not a dialogue engine: a
// linear sequence of prompts ending in a recommendation.

// DialogState is a step of the scripted assistant conversation.
type DialogState string

const (
	DialogGreeting    DialogState = "greeting"
	DialogAskCategory DialogState = "ask_category"
	DialogAskBudget   DialogState = "ask_budget"
	DialogRecommend   DialogState = "recommend"
	DialogDone        DialogState = "done"
)

// dialogTransitions is the full transition table. Every state except the
// terminal one has exactly one successor.
var dialogTransitions = map[DialogState]DialogState{
	DialogGreeting:    DialogAskCategory,
	DialogAskCategory: DialogAskBudget,
	DialogAskBudget:   DialogRecommend,
	DialogRecommend:   DialogDone,
}

// dialogPrompts is what the assistant says on entering each state.
var dialogPrompts = map[DialogState]string{
	DialogGreeting:    "Karibu! I can help you find the right gadget. Ready to start?",
	DialogAskCategory: "What kind of gadget are you looking for? (phone, laptop, audio, accessory)",
	DialogAskBudget:   "What's your budget in KES?",
	DialogRecommend:   "Here are my top picks for you.",
	DialogDone:        "Happy shopping! Ask me again anytime.",
}

// Dialog tracks one shopper's position in the script and the answers
// collected so far.
type Dialog struct {
	State   DialogState       `json:"state"`
	Answers map[string]string `json:"answers"`
}

// NewDialog starts the script at the greeting.
func NewDialog() *Dialog {
	return &Dialog{State: DialogGreeting, Answers: make(map[string]string)}
}

// Prompt returns the assistant's line for the current state.
func (d *Dialog) Prompt() string {
	return dialogPrompts[d.State]
}

// Advance records the shopper's answer for the current state and moves to the
// next one. Advancing a finished dialog is a no-op.
func (d *Dialog) Advance(answer string) DialogState {
	next, ok := dialogTransitions[d.State]
	if !ok {
		return d.State
	}
	if answer != "" {
		d.Answers[string(d.State)] = answer
	}
	d.State = next
	return d.State
}

// Preferences flattens the collected answers into a free-text preference
// string for the recommender.
func (d *Dialog) Preferences() string {
	category := d.Answers[string(DialogAskCategory)]
	budget := d.Answers[string(DialogAskBudget)]
	switch {
	case category != "" && budget != "":
		return "category: " + category + ", budget KES " + budget
	case category != "":
		return "category: " + category
	case budget != "":
		return "budget KES " + budget
	default:
		return ""
	}
}
