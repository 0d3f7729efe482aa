package session

import "github.com/avvvet/monopoly-services/internal/comm"

// ActionKind is the closed set of in-room actions. Anything the transport
// cannot map decodes to ActionUnknown and is ignored.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionRoll
	ActionPromptBuy
	ActionBuy
)

func ParseActionKind(s string) ActionKind {
	switch s {
	case "roll":
		return ActionRoll
	case "prompt_buy":
		return ActionPromptBuy
	case "buy":
		return ActionBuy
	default:
		return ActionUnknown
	}
}

func (k ActionKind) String() string {
	switch k {
	case ActionRoll:
		return "roll"
	case ActionPromptBuy:
		return "prompt_buy"
	case ActionBuy:
		return "buy"
	default:
		return "unknown"
	}
}

// Action is one decoded turn action.
type Action struct {
	Kind     ActionKind
	PlayerId int64
}

func ActionFromMessage(m comm.ActionMessage) Action {
	return Action{
		Kind:     ParseActionKind(m.Action),
		PlayerId: m.PlayerId,
	}
}
