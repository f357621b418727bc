// Package main implements a mock LLM server for exercising the content
// workflow without a real model. It serves OpenAI-compatible
// /v1/chat/completions responses, routing by workflow phase detected from
// the system prompt, so a full run (plan, research, positioning, draft,
// critique, image prompt) completes offline and deterministically.
//
// Usage:
//
//	mock-llm -port 11434 [-fixtures /path/to/fixtures]
//
// Built-in responses cover every phase. A fixtures directory overrides them:
// a file named "<phase>.txt" (e.g. "planner.txt") is returned verbatim for
// that phase. Numbered files ("planner.1.txt", "planner.2.txt") are served
// in sequence, after which the last one repeats. That enables testing the
// clarifying-question loop: the first planner call asks questions, the
// second produces the plan.
//
// Point inkwell at it with an endpoint config:
//
//	model:
//	  endpoints:
//	    mock: {provider: openai, url: "http://localhost:11434/v1", model: mock}
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// phase markers looked for in the system message, checked in order. The
// critic review marker must precede the critic marker: both prompts open
// with the same editor persona.
var phaseMarkers = []struct {
	phase  string
	marker string
}{
	{"planner", "content planning assistant"},
	{"research", "research assistant"},
	{"positioning", "content strategist"},
	{"critic-review", "List the specific improvements"},
	{"critic", "exacting editor"},
	{"image", "image generation model"},
	{"agent", "posts end to end"},
	{"draft", "professional writer"},
}

func detectPhase(messages []chatMessage) string {
	for _, m := range messages {
		if m.Role != "system" {
			continue
		}
		for _, pm := range phaseMarkers {
			if strings.Contains(m.Content, pm.marker) {
				return pm.phase
			}
		}
	}
	return "draft"
}

// Built-in responses producing one coherent run about a fixed topic.
var defaults = map[string][]string{
	"planner": {`{
  "plan": {
    "topic": "Why boring technology wins",
    "angle": "Novelty is a cost you pay with reliability",
    "audience": "engineers choosing a stack",
    "key_points": ["operational burden compounds", "hiring follows familiarity", "innovation tokens are scarce"],
    "tone": "practical",
    "research_tasks": ["find production incident postmortems caused by immature tooling"]
  }
}`},
	"research": {`{
  "summary": "Incident reports repeatedly trace outages to operational immaturity of newly adopted tools.",
  "facts": ["Most published postmortems cite operational gaps, not algorithmic bugs."],
  "claims": ["Teams underestimate the carrying cost of unfamiliar infrastructure."],
  "sources": [{"title": "Postmortem index", "url": "https://example.com/postmortems"}]
}`},
	"positioning": {`{
  "angle": "Novelty is a cost you pay with reliability",
  "audience": "engineers choosing a stack",
  "pain_points": ["3am pages from tools nobody understands"],
  "tone": "practical"
}`},
	"draft": {"Every new tool in your stack is a loan against your future attention.\n\n" +
		"Boring technology wins because its failure modes are documented, its hiring pool is deep, " +
		"and its sharp edges were filed down years before you arrived. Spend your innovation " +
		"tokens where they buy differentiation, not where they buy pages at 3am."},
	"critic": {"Every new tool in your stack is a loan, and the interest is paid in attention.\n\n" +
		"Boring technology wins because its failure modes are documented, its hiring pool is deep, " +
		"and its sharp edges were filed down long before you arrived. Spend innovation tokens " +
		"where they buy differentiation, never where they buy 3am pages."},
	"critic-review": {`{"improvements": [{"id": "i1", "text": "Tighten the opening metaphor"}, {"id": "i2", "text": "Cut the second paragraph's hedging"}]}`},
	"image": {"A sturdy cast-iron bridge beside a flashy rope bridge, morning fog, muted colors"},
	"agent": {"Draft recorded. The post argues that boring technology wins on reliability."},
}

// capturedRequest stores the key fields of an incoming request so tests can
// verify prompt construction via the /requests endpoint.
type capturedRequest struct {
	Phase     string        `json:"phase"`
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	CallIndex int           `json:"call_index"`
	Timestamp int64         `json:"timestamp"`
}

type server struct {
	mu        sync.Mutex
	overrides map[string][]string // phase -> ordered responses
	counts    map[string]int      // phase -> calls served
	requests  []capturedRequest
}

func newServer(overrides map[string][]string) *server {
	return &server{
		overrides: overrides,
		counts:    make(map[string]int),
	}
}

// respond picks the response for a phase: fixture sequence if present,
// built-in otherwise. The last entry of a sequence repeats.
func (s *server) respond(phase string, req chatRequest) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.counts[phase]
	s.counts[phase]++
	s.requests = append(s.requests, capturedRequest{
		Phase:     phase,
		Model:     req.Model,
		Messages:  req.Messages,
		CallIndex: idx + 1,
		Timestamp: time.Now().UnixMilli(),
	})

	seq, ok := s.overrides[phase]
	if !ok {
		seq = defaults[phase]
	}
	if len(seq) == 0 {
		return defaults["draft"][0]
	}
	if idx >= len(seq) {
		idx = len(seq) - 1
	}
	return seq[idx]
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	phase := detectPhase(req.Messages)
	content := s.respond(phase, req)
	log.Printf("phase=%s model=%s messages=%d -> %d bytes", phase, req.Model, len(req.Messages), len(content))

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     len(content) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      len(content) / 2,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.counts)
}

func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.requests
	if phase := r.URL.Query().Get("phase"); phase != "" {
		out = nil
		for _, cr := range s.requests {
			if cr.Phase == phase {
				out = append(out, cr)
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

var seqFile = regexp.MustCompile(`^([a-z-]+)\.(\d+)\.txt$`)

// loadFixtures reads "<phase>.txt" and "<phase>.N.txt" files. Numbered
// files order the sequence; the unnumbered file, when present, is appended
// as the repeating tail.
func loadFixtures(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type numbered struct {
		n       int
		content string
	}
	seqs := make(map[string][]numbered)
	tails := make(map[string]string)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", name, err)
		}
		if m := seqFile.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[2])
			seqs[m[1]] = append(seqs[m[1]], numbered{n: n, content: string(data)})
			continue
		}
		if phase, ok := strings.CutSuffix(name, ".txt"); ok {
			tails[phase] = string(data)
		}
	}

	out := make(map[string][]string)
	for phase, seq := range seqs {
		sort.Slice(seq, func(i, j int) bool { return seq[i].n < seq[j].n })
		for _, s := range seq {
			out[phase] = append(out[phase], s.content)
		}
	}
	for phase, tail := range tails {
		out[phase] = append(out[phase], tail)
	}
	return out, nil
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory of response override files")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	overrides := map[string][]string{}
	if *fixtureDir != "" {
		var err error
		overrides, err = loadFixtures(*fixtureDir)
		if err != nil {
			log.Fatalf("Failed to load fixtures from %s: %v", *fixtureDir, err)
		}
		for phase, seq := range overrides {
			log.Printf("fixture override: %s (%d response(s))", phase, len(seq))
		}
	}

	s := newServer(overrides)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/requests", s.handleRequests)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock LLM server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
