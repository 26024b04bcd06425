package safechat

import "context"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is immutable once created.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// History is the ordered, append-only conversation log. It is owned by the
// caller, who must retain the updated copy returned from Dispatch and supply
// it on the next call; nothing is persisted server side. No truncation is
// applied before forwarding to the model.
type History []Turn

// Result is constructed fresh per call and not retained by the dispatcher.
type Result struct {
	ResponseText   string
	UpdatedHistory History
}

// Completer is the opaque generative model boundary.
type Completer interface {
	Complete(ctx context.Context, systemPreamble string, turns History, newMessage string) (string, error)
}

// GenerationFailure wraps an error from the generative model call. The
// dispatcher performs no retries and generates no fallback text; the caller
// decides how to present the failure.
type GenerationFailure struct {
	Err error
}

func (e *GenerationFailure) Error() string {
	return "generative completion failed: " + e.Err.Error()
}

func (e *GenerationFailure) Unwrap() error {
	return e.Err
}

// modelAcknowledgment is the canned model turn placed between the system
// instruction and the prior history on the generative path.
const modelAcknowledgment = "Got it. I'll keep our chat friendly, age-appropriate, and focused on staying safe."

type Dispatcher struct {
	contacts  *ContactDirectory
	completer Completer
}

func NewDispatcher(contacts *ContactDirectory, completer Completer) *Dispatcher {
	return &Dispatcher{contacts: contacts, completer: completer}
}

// Dispatch runs one message through the pipeline: emergency-contact requests
// short-circuit to the deterministic lookup, everything else goes to the
// generative model under the age band's system instruction. On every
// successful outcome the returned history is the input history plus exactly
// the new user turn and the model turn; the input slice is never mutated.
func (d *Dispatcher) Dispatch(ctx context.Context, message string, age int, history History) (Result, error) {
	if IsEmergencyRequest(message) {
		key, explicit, _ := d.contacts.ExtractCountry(message)
		response := d.contacts.FormatContacts(key, explicit)
		return Result{
			ResponseText:   response,
			UpdatedHistory: extendHistory(history, message, response),
		}, nil
	}

	band := ResolveBand(age)
	if band.Unsupported() {
		return Result{
			ResponseText:   UnsupportedAgeMessage,
			UpdatedHistory: extendHistory(history, message, UnsupportedAgeMessage),
		}, nil
	}

	turns := make(History, 0, len(history)+1)
	turns = append(turns, Turn{Role: RoleModel, Text: modelAcknowledgment})
	turns = append(turns, history...)

	raw, err := d.completer.Complete(ctx, band.SystemInstruction(), turns, message)
	if err != nil {
		return Result{}, &GenerationFailure{Err: err}
	}

	response := Sanitize(raw)
	return Result{
		ResponseText:   response,
		UpdatedHistory: extendHistory(history, message, response),
	}, nil
}

func extendHistory(history History, userText, modelText string) History {
	updated := make(History, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated,
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleModel, Text: modelText},
	)
	return updated
}
