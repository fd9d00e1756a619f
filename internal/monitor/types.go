package monitor

import "time"

// EventType 表示监控事件类型。
type EventType string

const (
	EventRunSummary  EventType = "run_summary"
	EventAnchor      EventType = "anchor"
	EventOffer       EventType = "offer"
	EventError       EventType = "error"
	EventIdleWarning EventType = "idle_warning"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AnchorPayload 记录本轮锚定利率的解析结果。
type AnchorPayload struct {
	Strategy string  `json:"strategy"`
	Rate     string  `json:"rate"`
	APY      float64 `json:"apy"`
}

// OfferPayload 记录一笔已提交的放贷委托。
type OfferPayload struct {
	Phase  string `json:"phase"`
	Kind   string `json:"kind"`
	Amount string `json:"amount"`
	Rate   string `json:"rate"`
	Period int    `json:"period"`
}

// RunSummaryPayload 记录一轮放贷的整体结果。
type RunSummaryPayload struct {
	Asset       string `json:"asset"`
	FreeBalance string `json:"free_balance"`
	Deployed    string `json:"deployed"`
	Remaining   string `json:"remaining"`
	Offers      int    `json:"offers"`
	Note        string `json:"note,omitempty"`
}

// IdleWarningPayload 记录兜底之后仍然闲置的余额。
type IdleWarningPayload struct {
	Remaining string `json:"remaining"`
	Threshold string `json:"threshold"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
