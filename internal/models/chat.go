package models

// PredictRequest is the body the widget sends to the prediction endpoint.
type PredictRequest struct {
	Message string `json:"message"`
}

// PredictResponse is the body the prediction endpoint answers with. Only Success and Response are part
// of the contract the widget relies on; the rest is informational.
type PredictResponse struct {
	Success    bool    `json:"success"`
	Response   string  `json:"response,omitempty"`
	Tag        string  `json:"tag,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Intent is one entry of the intent catalogue: example phrasings and the canned answers for them.
type Intent struct {
	Tag       string   `json:"tag" yaml:"tag"`
	Patterns  []string `json:"patterns" yaml:"patterns"`
	Responses []string `json:"responses" yaml:"responses"`
}

// IntentCatalogue is the on-disk shape of the intent file.
type IntentCatalogue struct {
	Intents []Intent `json:"intents" yaml:"intents"`
}

// Prediction is the intent model's answer for one message.
type Prediction struct {
	Tag        string
	Response   string
	Confidence float64
}

// Session is the server-side conversation memory of one visitor.
type Session struct {
	ID      string
	History []Turn
	LastTag string
}

// Turn is one entry of a session history.
type Turn struct {
	Role string
	Text string
	Tag  string
}

const (
	// TurnRoleUser marks a turn written by the visitor.
	TurnRoleUser = "user"
	// TurnRoleBot marks a turn answered by the endpoint.
	TurnRoleBot = "bot"
)
