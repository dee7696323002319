package cloudcode

// Wire types for the CloudCode generate-content API. Field names follow the
// backend's JSON exactly; optional fields are omitted when empty so request
// payloads stay minimal.

// Request type discriminators carried in the envelope.
const (
	RequestTypeGenerate = "generateContent"
	RequestTypeStream   = "streamGenerateContent"
)

// Content roles on the backend wire. The backend knows only two
// conversational roles; assistant turns travel as "model".
const (
	roleUser  = "user"
	roleModel = "model"
)

// Candidate finish reasons.
const (
	FinishStop       = "STOP"
	FinishMaxTokens  = "MAX_TOKENS"
	FinishSafety     = "SAFETY"
	FinishRecitation = "RECITATION"
)

// GenerateRequest is the outer request envelope. The inner payload is
// wrapped together with routing metadata: the project, the resolved backend
// model, and the request type discriminator.
type GenerateRequest struct {
	Project     string       `json:"project"`
	Model       string       `json:"model"`
	RequestType string       `json:"requestType"`
	Request     InnerRequest `json:"request"`
}

// InnerRequest is the generate-content payload inside the envelope.
type InnerRequest struct {
	Contents          []Content        `json:"contents"`
	SystemInstruction *Content         `json:"systemInstruction,omitempty"`
	Tools             []Tool           `json:"tools,omitempty"`
	GenerationConfig  GenerationConfig `json:"generationConfig"`
}

// Content is one conversational turn: a role plus an ordered list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a union: exactly one of Text, FunctionCall, or FunctionResponse is
// populated. The backend distinguishes variants by which key is present, so
// all fields carry omitempty.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall is a model-initiated tool invocation.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries a tool result back to the model. The backend
// expects the payload wrapped in a response object keyed by "result".
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Tool groups function declarations. The backend accepts a list of tool
// entries, each holding its own declarations; the translator always emits a
// single entry.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// FunctionDeclaration describes one callable function.
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// GenerationConfig carries the sampling parameters.
type GenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

// GenerateResponse is a backend response, either complete or one streamed
// chunk.
type GenerateResponse struct {
	Candidates    []Candidate    `json:"candidates,omitempty"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ResponseID    string         `json:"responseId,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

// Candidate is one generated alternative. Only the first candidate is ever
// translated; the backend is asked for a single one.
type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
	Index        int      `json:"index,omitempty"`
}

// UsageMetadata reports token accounting.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}

// streamFrame is the payload of one SSE data line on the streaming endpoint:
// a response chunk plus the stream-wide response id.
type streamFrame struct {
	Response   *GenerateResponse `json:"response"`
	ResponseID string            `json:"responseId"`
}
