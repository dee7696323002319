package api

// Usage holds token accounting for a request: input (prompt) and output
// (completion) token counts.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Merge folds another usage reading into u. Backends report usage in
// fragments across a stream, sometimes repeating earlier numbers and
// sometimes omitting a field entirely; a field updates only when the
// incoming value is non-zero, so a previously recorded count is never
// lowered back to zero by a later fragment that lacks it.
func (u *Usage) Merge(in *Usage) {
	if in == nil {
		return
	}
	if in.InputTokens != 0 {
		u.InputTokens = in.InputTokens
	}
	if in.OutputTokens != 0 {
		u.OutputTokens = in.OutputTokens
	}
}
