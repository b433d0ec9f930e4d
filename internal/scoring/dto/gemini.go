package dto

// GeminiAPIRequest is the request payload for the Gemini API.
type GeminiAPIRequest struct {
	SystemInstruction *Content        `json:"systemInstruction,omitempty"`
	Contents          []Content       `json:"contents"`
	GenerationConfig  *GenerationConf `json:"generationConfig,omitempty"`
}

// GenerationConf bounds the generated answer.
type GenerationConf struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

// Content represents the content of a request or response.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a part of the content.
type Part struct {
	Text string `json:"text"`
}

// GeminiAPIResponse is the response from the Gemini API.
type GeminiAPIResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is a candidate response from the Gemini API.
type Candidate struct {
	Content Content `json:"content"`
}
