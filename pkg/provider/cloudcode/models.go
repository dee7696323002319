package cloudcode

import "strings"

// Default backend models used when an id has no exact alias.
const (
	DefaultModel      = "claude-sonnet-4-5"
	DefaultFlashModel = "gemini-2.5-flash"
)

type modelAlias struct {
	from string
	to   string
}

// modelAliases maps client-facing model ids to backend ids. Exact matches
// are tried in order before any fallback heuristics. Every target appears as
// its own source so resolution is idempotent.
var modelAliases = []modelAlias{
	// Current Claude ids pass through.
	{"claude-sonnet-4-5", "claude-sonnet-4-5"},
	{"claude-sonnet-4-5-thinking", "claude-sonnet-4-5-thinking"},
	{"claude-opus-4-5-thinking", "claude-opus-4-5-thinking"},

	// Opus is only served in its thinking variant.
	{"claude-opus-4-5", "claude-opus-4-5-thinking"},

	// Legacy Claude snapshots resolve to the current sonnet.
	{"claude-3-5-sonnet-20241022", "claude-sonnet-4-5"},
	{"claude-3-5-sonnet-20240620", "claude-sonnet-4-5"},
	{"claude-3-7-sonnet-20250219", "claude-sonnet-4-5"},

	// Gemini ids.
	{"gemini-2.5-flash", "gemini-2.5-flash"},
	{"gemini-3-pro-high", "gemini-3-pro-high"},
	{"gemini-3-pro-preview", "gemini-3-pro-high"},
}

// lightweightMarkers flag ids that name a small or fast tier. Such ids are
// served by the flash model when no exact alias matches.
var lightweightMarkers = []string{"turbo", "mini", "nano", "haiku", "3.5"}

// MapModel resolves a client-facing model id to the backend model id. Exact
// aliases win; otherwise lightweight-tier ids resolve to DefaultFlashModel
// and everything else, GPT-family ids included, resolves to DefaultModel.
// MapModel is total: it never fails, and mapping an already-resolved id
// returns the same id.
func MapModel(id string) string {
	for _, a := range modelAliases {
		if a.from == id {
			return a.to
		}
	}

	lower := strings.ToLower(id)
	for _, marker := range lightweightMarkers {
		if strings.Contains(lower, marker) {
			return DefaultFlashModel
		}
	}
	return DefaultModel
}

// KnownModels returns the client-facing ids with an exact alias, in table
// order. This is the model list the gateway advertises.
func KnownModels() []string {
	ids := make([]string, 0, len(modelAliases))
	for _, a := range modelAliases {
		ids = append(ids, a.from)
	}
	return ids
}
