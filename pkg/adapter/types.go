package adapter

// Request is a provider-neutral generation request.
type Request struct {
	Model        string   `json:"model"`
	Prompt       string   `json:"prompt"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    int      `json:"maxTokens,omitempty"`
}

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Normalize fills TotalTokens when a vendor only reports the parts.
func (u *Usage) Normalize() *Usage {
	if u == nil {
		return nil
	}
	if u.TotalTokens == 0 && (u.PromptTokens > 0 || u.CompletionTokens > 0) {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

// Cost captures normalized cost estimates.
type Cost struct {
	Currency     string  `json:"currency"`
	Amount       float64 `json:"amount"`
	IsEstimate   bool    `json:"isEstimate"`
	PricingModel string  `json:"pricingModel,omitempty"`
}

// CallReport captures what happened to one candidate model of a call.
type CallReport struct {
	Provider     Provider  `json:"provider"`
	Model        string    `json:"model"`
	OperationID  string    `json:"operationId"`
	Attempts     int       `json:"attempts"`
	Retries      int       `json:"retries"`
	Exhausted    bool      `json:"exhausted"`
	Usage        Usage     `json:"usage"`
	Cost         Cost      `json:"cost"`
	FallbackUsed bool      `json:"fallbackUsed"`
	ErrorKind    ErrorKind `json:"errorKind,omitempty"`
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"durationMs"`
}

// Response wraps an adapter output and optional usage data.
type Response struct {
	Content string
	Usage   *Usage
}
