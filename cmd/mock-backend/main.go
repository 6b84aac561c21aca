// Command mock-backend runs a deterministic Chat Completions server for
// offline demos of the orchestration strategies. Every model answers in
// its own recognizable voice, so synthesis, debate, and consensus output
// visibly combine distinct responses. Classification requests get a
// valid JSON classification so the specialist strategy routes.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
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
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
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

// --- Wire types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// modelIDs mirrors the default model ranking so requests without an
// explicit model list resolve against this backend.
var modelIDs = []string{
	"openai/gpt-4o",
	"openai/gpt-4o-mini",
	"anthropic/claude-3.5-sonnet",
	"google/gemini-pro-1.5",
	"meta-llama/llama-3.1-70b-instruct",
	"mistralai/mistral-large",
}

// --- Handlers ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	prompt := lastUserMessage(&req)
	text := respond(model, prompt)

	resp := chatResponse{
		ID:     fmt.Sprintf("chatcmpl-mock-%08x", hash(model+prompt)),
		Object: "chat.completion",
		Model:  model,
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMsg{Role: "assistant", Content: text},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(text) / 4,
			TotalTokens:      (len(prompt) + len(text)) / 4,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	data := make([]map[string]any, 0, len(modelIDs))
	for _, id := range modelIDs {
		data = append(data, map[string]any{
			"id": id, "object": "model", "owned_by": "ensemble-mock",
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
}

// --- Response generation ---

// respond produces a deterministic answer for the given model and
// prompt. Classification, synthesis, and debate prompts are recognized
// by their instruction text so each strategy's folding step behaves.
func respond(model, prompt string) string {
	lower := strings.ToLower(prompt)

	switch {
	case strings.HasPrefix(prompt, "Classify the following request"):
		return classificationFor(prompt)
	case strings.Contains(lower, "synthesize these responses"):
		return fmt.Sprintf("Combined answer (synthesized by %s): the responses agree on the core approach and differ only in emphasis.", model)
	case strings.Contains(lower, "a consensus statement"):
		return fmt.Sprintf("Consensus (per %s): all models share the same position on the main question.", model)
	case strings.Contains(lower, "provide a conclusion"):
		return fmt.Sprintf("Conclusion (per %s): the debate converged; the practical approach is the one raised in round 1.", model)
	}

	return fmt.Sprintf("%s %s", voiceFor(model), topicOf(prompt))
}

// voiceFor gives each model a recognizable opening so multi-model output
// is visibly distinct.
func voiceFor(model string) string {
	switch {
	case strings.HasPrefix(model, "openai/"):
		return "Here is a precise take on"
	case strings.HasPrefix(model, "anthropic/"):
		return "Let me think carefully about"
	case strings.HasPrefix(model, "google/"):
		return "Considering several angles on"
	case strings.HasPrefix(model, "meta-llama/"):
		return "A direct answer regarding"
	case strings.HasPrefix(model, "mistralai/"):
		return "Briefly, on the matter of"
	default:
		return "Responding to"
	}
}

// topicOf extracts the leading words of the user's actual question,
// skipping the framing that refinement and debate prompts prepend.
func topicOf(prompt string) string {
	for _, prefix := range []string{"Original question: ", "Debate topic: "} {
		if rest, ok := strings.CutPrefix(prompt, prefix); ok {
			prompt = rest
			break
		}
	}
	if i := strings.IndexByte(prompt, '\n'); i >= 0 {
		prompt = prompt[:i]
	}

	words := strings.Fields(prompt)
	if len(words) > 12 {
		words = words[:12]
	}
	return strings.Join(words, " ") + "."
}

// classificationFor returns a valid classification object, varying the
// category with the request content so routing is observable. Keywords
// are matched against the embedded request line only; the instruction
// text itself names every category.
func classificationFor(prompt string) string {
	request := prompt
	if _, after, ok := strings.Cut(prompt, "Request: "); ok {
		request = after
	}
	if i := strings.IndexByte(request, '\n'); i >= 0 {
		request = request[:i]
	}

	lower := strings.ToLower(request)
	primary := "analysis"
	complexity := "medium"

	switch {
	case strings.Contains(lower, "bug") || strings.Contains(lower, "error"):
		primary = "debugging"
	case strings.Contains(lower, "design") || strings.Contains(lower, "architecture"):
		primary = "architecture"
		complexity = "high"
	case strings.Contains(lower, "write") || strings.Contains(lower, "implement"):
		primary = "coding"
	case strings.Contains(lower, "plan") || strings.Contains(lower, "roadmap"):
		primary = "planning"
	case strings.Contains(lower, "story") || strings.Contains(lower, "poem"):
		primary = "creative"
		complexity = "low"
	}

	return fmt.Sprintf(`{"primary": %q, "secondary": "analysis", "complexity": %q}`, primary, complexity)
}

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

func hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
