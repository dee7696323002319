// Command mock-backend runs a deterministic generate-content server for
// conformance testing. It classifies each request and answers predictably:
// declared tools trigger a functionCall, a "MAX_TOKENS" marker in the last
// user text triggers a truncated answer, and anything else echoes that text
// back.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1internal:generateContent", handleGenerate)
	mux.HandleFunc("POST /v1internal:streamGenerateContent", handleStreamGenerate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types ---

type generateRequest struct {
	Project     string       `json:"project"`
	Model       string       `json:"model"`
	RequestType string       `json:"requestType"`
	Request     innerRequest `json:"request"`
}

type innerRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Tools             []tool    `json:"tools,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text         string        `json:"text,omitempty"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name string `json:"name"`
}

// --- Response types ---

type generateResponse struct {
	Candidates    []candidate    `json:"candidates,omitempty"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	ResponseID    string         `json:"responseId,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

type candidate struct {
	Content      *content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
	Index        int      `json:"index"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// truncatedText reads as cut off; paired with finishReason MAX_TOKENS.
const truncatedText = "This answer keeps going and going and"

// --- Handlers ---

func handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEnvelope(w, r, "generateContent")
	if !ok {
		return
	}

	resp := classifyAndRespond(req)
	resp.ModelVersion = req.Model

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func classifyAndRespond(req *generateRequest) *generateResponse {
	// Declared tools win: the mock always calls the first one.
	if name, ok := firstDeclaredTool(req); ok {
		return toolCallResponse(name)
	}

	text := lastUserText(req)
	if strings.Contains(text, "MAX_TOKENS") {
		return textResponse("genmock-trunc", truncatedText, "MAX_TOKENS", &usageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 30,
			TotalTokenCount:      40,
		})
	}

	if text == "" {
		text = "Hello world!"
	}
	return textResponse("genmock-text", text, "STOP", &usageMetadata{
		PromptTokenCount:     10,
		CandidatesTokenCount: 5,
		TotalTokenCount:      15,
	})
}

func textResponse(id, text, finish string, usage *usageMetadata) *generateResponse {
	return &generateResponse{
		ResponseID: id,
		Candidates: []candidate{
			{
				Content: &content{
					Role:  "model",
					Parts: []part{{Text: text}},
				},
				FinishReason: finish,
			},
		},
		UsageMetadata: usage,
	}
}

func toolCallResponse(name string) *generateResponse {
	return &generateResponse{
		ResponseID: "genmock-tool",
		Candidates: []candidate{
			{
				Content: &content{
					Role: "model",
					Parts: []part{
						{
							FunctionCall: &functionCall{
								Name: name,
								Args: map[string]any{"location": "San Francisco", "unit": "celsius"},
							},
						},
					},
				},
				FinishReason: "STOP",
			},
		},
		UsageMetadata: &usageMetadata{
			PromptTokenCount:     20,
			CandidatesTokenCount: 15,
			TotalTokenCount:      35,
		},
	}
}

// --- Streaming ---

func handleStreamGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEnvelope(w, r, "streamGenerateContent")
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeBackendError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	const responseID = "genmock-stream"

	if name, ok := firstDeclaredTool(req); ok {
		writeFrame(w, responseID, &generateResponse{
			Candidates: []candidate{
				{
					Content: &content{
						Role: "model",
						Parts: []part{
							{
								FunctionCall: &functionCall{
									Name: name,
									Args: map[string]any{"location": "San Francisco", "unit": "celsius"},
								},
							},
						},
					},
				},
			},
			UsageMetadata: &usageMetadata{PromptTokenCount: 20},
		})
		flusher.Flush()

		writeFrame(w, responseID, &generateResponse{
			Candidates: []candidate{{FinishReason: "STOP"}},
			UsageMetadata: &usageMetadata{
				PromptTokenCount:     20,
				CandidatesTokenCount: 15,
				TotalTokenCount:      35,
			},
		})
		flusher.Flush()
		return
	}

	text := lastUserText(req)
	finish := "STOP"
	if strings.Contains(text, "MAX_TOKENS") {
		text = truncatedText
		finish = "MAX_TOKENS"
	} else if text == "" {
		text = "Hello world!"
	}

	frags := splitFragments(text)

	// The first frame carries the prompt usage, the final frame the finish
	// reason and the full counts.
	for i, frag := range frags {
		resp := &generateResponse{
			Candidates: []candidate{
				{
					Content: &content{
						Role:  "model",
						Parts: []part{{Text: frag}},
					},
				},
			},
		}
		if i == 0 {
			resp.UsageMetadata = &usageMetadata{PromptTokenCount: 10}
		}
		writeFrame(w, responseID, resp)
		flusher.Flush()
	}

	writeFrame(w, responseID, &generateResponse{
		Candidates: []candidate{{FinishReason: finish}},
		UsageMetadata: &usageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: len(frags),
			TotalTokenCount:      10 + len(frags),
		},
	})
	flusher.Flush()
}

func writeFrame(w io.Writer, responseID string, resp *generateResponse) {
	frame := map[string]any{
		"response":   resp,
		"responseId": responseID,
	}
	data, _ := json.Marshal(frame)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// splitFragments splits text into word fragments, the separating space
// attached to the following fragment: "Hello world!" becomes
// ["Hello", " world!"].
func splitFragments(text string) []string {
	words := strings.Split(text, " ")
	frags := make([]string, 0, len(words))
	for i, word := range words {
		if i == 0 {
			frags = append(frags, word)
			continue
		}
		frags = append(frags, " "+word)
	}
	return frags
}

// --- Helpers ---

func decodeEnvelope(w http.ResponseWriter, r *http.Request, wantType string) (*generateRequest, bool) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBackendError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return nil, false
	}
	if req.Project == "" {
		writeBackendError(w, http.StatusBadRequest, "project is required")
		return nil, false
	}
	if req.RequestType != wantType {
		writeBackendError(w, http.StatusBadRequest,
			fmt.Sprintf("requestType %q does not match endpoint", req.RequestType))
		return nil, false
	}
	return &req, true
}

// writeBackendError emits the backend error envelope the gateway parses.
func writeBackendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
			"status":  http.StatusText(status),
		},
	})
}

func lastUserText(req *generateRequest) string {
	for i := len(req.Request.Contents) - 1; i >= 0; i-- {
		c := req.Request.Contents[i]
		if c.Role != "user" {
			continue
		}
		for _, p := range c.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

func firstDeclaredTool(req *generateRequest) (string, bool) {
	for _, t := range req.Request.Tools {
		for _, d := range t.FunctionDeclarations {
			if d.Name != "" {
				return d.Name, true
			}
		}
	}
	return "", false
}
