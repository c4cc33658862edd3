// Package llamaapi implements [scry.Agent] for the LlamaAI chat agent API.
//
// It performs the authenticated streaming request, hands the response body to
// the wire decoder, and implements the stop and restore control endpoints.
// The distinguished USAGE_LIMIT_EXCEEDED quota failure is detected here,
// before generic HTTP error handling, and surfaced as [scry.RateLimitError].
package llamaapi

import "encoding/json"

const (
	defaultBaseURL = "https://api.llamaai.com"
	agentPath      = "/chatbot-agent"
	stopPath       = "/chatbot-agent/stop"
	sessionsPath   = "/chatbot-agent/sessions/"

	usageLimitCode = "USAGE_LIMIT_EXCEEDED"
)

// apiRequest is the JSON body sent to the streaming endpoint.
type apiRequest struct {
	Message             string               `json:"message"`
	Stream              bool                 `json:"stream"`
	Mode                string               `json:"mode"`
	Timezone            string               `json:"timezone"`
	SessionID           string               `json:"sessionId,omitempty"`
	CreateNewSession    bool                 `json:"createNewSession,omitempty"`
	Resume              bool                 `json:"resume,omitempty"`
	SuggestionContext   json.RawMessage      `json:"suggestionContext,omitempty"`
	PreResolvedEntities []apiEntity          `json:"preResolvedEntities,omitempty"`
	ForceIntent         string               `json:"forceIntent,omitempty"`
	Images              []apiImageAttachment `json:"images,omitempty"`
}

type apiEntity struct {
	Term string `json:"term"`
	Slug string `json:"slug"`
}

type apiImageAttachment struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename,omitempty"`
}

// apiStopRequest is the body of the best-effort stop control request.
type apiStopRequest struct {
	SessionID string `json:"sessionId"`
}

// apiErrorResponse is the JSON body of a non-2xx response. Details is only
// populated for the quota error.
type apiErrorResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details apiquotaDetails `json:"details"`
}

type apiquotaDetails struct {
	Period    string `json:"period"`
	Limit     int    `json:"limit"`
	ResetTime string `json:"resetTime"`
}

// apiRestoreResponse is the body of the restore-session lookup.
type apiRestoreResponse struct {
	Streaming struct {
		Status  string            `json:"status"`
		Content string            `json:"content"`
		Result  *apiRestoreResult `json:"result"`
	} `json:"streaming"`
}

type apiRestoreResult struct {
	Content   string          `json:"content"`
	Title     string          `json:"title"`
	Citations []string        `json:"citations"`
	Metadata  json.RawMessage `json:"metadata"`
}
