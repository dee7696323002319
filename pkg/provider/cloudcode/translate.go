package cloudcode

import (
	"fmt"

	"github.com/rhuss/dolmetsch/pkg/api"
)

// TranslateRequest converts a messages request into a backend request
// envelope. The model must already be resolved via MapModel; TranslateRequest
// stamps it into the envelope as-is. Translation is pure: the input request
// is not modified and no network calls are made.
//
// Messages map one-to-one onto contents entries, with the assistant role
// renamed to "model". Tool results become functionResponse parts whose
// function name is resolved from the matching tool_use block earlier in the
// conversation, falling back to the tool_use_id when no match exists.
func TranslateRequest(req *api.MessagesRequest, project, model string) (*GenerateRequest, error) {
	if len(req.Messages) == 0 {
		return nil, api.NewInvalidRequestError("messages", "messages must not be empty")
	}
	if req.MaxTokens <= 0 {
		return nil, api.NewInvalidRequestError("max_tokens", "max_tokens must be a positive integer")
	}

	inner := InnerRequest{
		GenerationConfig: GenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			StopSequences:   req.StopSequences,
		},
	}

	if req.System != "" {
		inner.SystemInstruction = &Content{
			Parts: []Part{{Text: string(req.System)}},
		}
	}

	// Tool names seen so far, keyed by tool_use id. Used to resolve the
	// function name on later tool_result blocks.
	toolNames := make(map[string]string)

	for i, msg := range req.Messages {
		role := roleUser
		if msg.Role == api.RoleAssistant {
			role = roleModel
		}

		parts := make([]Part, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch block.Type {
			case api.BlockTypeText:
				parts = append(parts, Part{Text: block.Text})

			case api.BlockTypeToolUse:
				toolNames[block.ID] = block.Name
				parts = append(parts, Part{FunctionCall: &FunctionCall{
					ID:   block.ID,
					Name: block.Name,
					Args: block.Input,
				}})

			case api.BlockTypeToolResult:
				name := toolNames[block.ToolUseID]
				if name == "" {
					name = block.ToolUseID
				}
				parts = append(parts, Part{FunctionResponse: &FunctionResponse{
					ID:   block.ToolUseID,
					Name: name,
					Response: map[string]any{
						"result": block.ResultText(),
					},
				}})

			default:
				return nil, api.NewInvalidRequestError(
					fmt.Sprintf("messages[%d].content", i),
					fmt.Sprintf("unsupported content block type %q", block.Type))
			}
		}

		if len(parts) == 0 {
			continue
		}
		inner.Contents = append(inner.Contents, Content{Role: role, Parts: parts})
	}

	if len(req.Tools) > 0 {
		decls := make([]FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			decls = append(decls, FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  CleanSchema(tool.InputSchema),
			})
		}
		inner.Tools = []Tool{{FunctionDeclarations: decls}}
	}

	requestType := RequestTypeGenerate
	if req.Stream {
		requestType = RequestTypeStream
	}

	return &GenerateRequest{
		Project:     project,
		Model:       model,
		RequestType: requestType,
		Request:     inner,
	}, nil
}
