package types

// ProviderRequest is the normalized request sent to a vendor adapter.
type ProviderRequest struct {
	Model       string
	Prompt      string
	Context     string // supplementary text, sent as the system turn
	Temperature *float64
	MaxTokens   int
	TopP        *float64
}

// ProviderResponse is the normalized adapter result.
type ProviderResponse struct {
	Content        string
	Model          string
	Usage          TokenUsage
	Cost           float64
	UsageEstimated bool // true when the vendor sent no usage payload
}
