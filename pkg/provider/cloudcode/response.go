package cloudcode

import (
	"github.com/rhuss/dolmetsch/pkg/api"
)

// TranslateResponse converts a complete backend response into a messages
// response. Only the first candidate is translated. The returned usage is
// also embedded in the response; it is returned separately so callers can
// record it without re-reading the response.
func TranslateResponse(resp *GenerateResponse, responseID, model string) (*api.MessagesResponse, *api.Usage, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, nil, api.NewAPIErrorf("backend response contains no candidates")
	}
	cand := resp.Candidates[0]

	out := api.NewMessagesResponse(responseID, model)

	sawToolUse := false
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				id := part.FunctionCall.ID
				if id == "" {
					id = api.NewToolUseID()
				}
				out.Content = append(out.Content,
					api.NewToolUseBlock(id, part.FunctionCall.Name, part.FunctionCall.Args))
				sawToolUse = true

			case part.FunctionResponse != nil:
				// Echoed tool results are not assistant output.

			case part.Text != "":
				out.Content = append(out.Content, api.NewTextBlock(part.Text))
			}
		}
	}

	// Claude responses always carry at least one block.
	if len(out.Content) == 0 {
		out.Content = []api.ContentBlock{api.NewTextBlock("")}
	}

	out.StopReason = mapFinishReason(cand.FinishReason, sawToolUse)

	usage := usageFromMetadata(resp.UsageMetadata)
	if usage == nil {
		usage = &api.Usage{}
	}
	out.Usage = *usage
	return out, usage, nil
}

// mapFinishReason maps a backend finish reason to a stop reason. A response
// that invoked a tool reports tool_use rather than end_turn; running out of
// tokens is reported either way.
func mapFinishReason(reason string, sawToolUse bool) api.StopReason {
	var stop api.StopReason
	switch reason {
	case FinishMaxTokens:
		stop = api.StopMaxTokens
	default:
		// STOP, SAFETY, RECITATION, and anything unknown end the turn.
		stop = api.StopEndTurn
	}
	if sawToolUse && stop == api.StopEndTurn {
		stop = api.StopToolUse
	}
	return stop
}

func usageFromMetadata(m *UsageMetadata) *api.Usage {
	if m == nil {
		return nil
	}
	return &api.Usage{
		InputTokens:  m.PromptTokenCount,
		OutputTokens: m.CandidatesTokenCount,
	}
}
