package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/focusflowhq/focusflow/pkg/errorsx"
	"github.com/focusflowhq/focusflow/pkg/llm"
	"github.com/focusflowhq/focusflow/pkg/resilience"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"
)

// Adapter talks to the Gemini generateContent REST endpoint. It carries a
// circuit breaker so a rate-limited key fails fast instead of stacking up
// doomed requests from every chat turn.
type Adapter struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
	Breaker *resilience.CircuitBreaker
}

func NewAdapter(apiKey, model string) *Adapter {
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: DefaultBaseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
		Breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
	}
}

func (a *Adapter) Name() string { return "gemini" }

// Wire types for the generateContent request and response. Gemini has no
// dedicated tool role; tool results go back as user-role functionResponse
// parts, and the assistant is called "model".
type part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type functionDeclaration struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type toolSpec struct {
	FunctionDeclarations []functionDeclaration `json:"function_declarations"`
}

type generateRequest struct {
	SystemInstruction *content   `json:"system_instruction,omitempty"`
	Contents          []content  `json:"contents"`
	Tools             []toolSpec `json:"tools,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (a *Adapter) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	if a.Breaker != nil && !a.Breaker.Allow() {
		return llm.Response{}, errorsx.Wrap(fmt.Errorf("gemini circuit open"), errorsx.ReasonLLMCircuitOpen)
	}

	reqBody := a.buildRequest(input)
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Response{}, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.BaseURL, a.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return llm.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.APIKey)

	resp, err := a.client().Do(req)
	if err != nil {
		return llm.Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		rlErr := resilience.RateLimitError{Provider: "gemini", Message: string(body)}
		if a.Breaker != nil {
			a.Breaker.OnError(rlErr)
		}
		return llm.Response{}, errorsx.Wrap(rlErr, errorsx.ReasonLLMRateLimit)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return llm.Response{}, fmt.Errorf("gemini status %d: %s", resp.StatusCode, body)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return llm.Response{}, err
	}
	if a.Breaker != nil {
		a.Breaker.OnSuccess()
	}
	return fromWire(decoded)
}

func (a *Adapter) buildRequest(input llm.Context) generateRequest {
	req := generateRequest{}
	if input.System != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: input.System}}}
	}
	for _, msg := range input.Messages {
		req.Contents = append(req.Contents, toContent(msg))
	}
	if len(input.Tools) > 0 {
		spec := toolSpec{}
		for _, t := range input.Tools {
			spec.FunctionDeclarations = append(spec.FunctionDeclarations, functionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			})
		}
		req.Tools = []toolSpec{spec}
	}
	return req
}

func toContent(msg llm.Message) content {
	switch msg.Role {
	case llm.RoleAssistant:
		c := content{Role: "model"}
		if msg.Content != "" {
			c.Parts = append(c.Parts, part{Text: msg.Content})
		}
		for _, call := range msg.ToolCalls {
			c.Parts = append(c.Parts, part{FunctionCall: &functionCall{Name: call.Name, Args: call.Arguments}})
		}
		if len(c.Parts) == 0 {
			c.Parts = []part{{Text: ""}}
		}
		return c
	case llm.RoleTool:
		c := content{Role: "user"}
		for _, tr := range msg.ToolResults {
			c.Parts = append(c.Parts, part{FunctionResponse: &functionResponse{
				Name:     tr.Tool,
				Response: map[string]any{"result": tr.Result},
			}})
		}
		return c
	default:
		return content{Role: "user", Parts: []part{{Text: msg.Content}}}
	}
}

func fromWire(decoded generateResponse) (llm.Response, error) {
	if len(decoded.Candidates) == 0 {
		return llm.Response{}, errors.New("gemini returned no candidates")
	}
	candidate := decoded.Candidates[0]
	out := llm.Response{
		FinishReason: candidate.FinishReason,
		Usage: llm.Usage{
			PromptTokens:     decoded.UsageMetadata.PromptTokenCount,
			CompletionTokens: decoded.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      decoded.UsageMetadata.TotalTokenCount,
		},
	}
	for _, p := range candidate.Content.Parts {
		if p.FunctionCall != nil {
			args := p.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{Name: p.FunctionCall.Name, Arguments: args})
			continue
		}
		out.Text += p.Text
	}
	return out, nil
}

func (a *Adapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}
