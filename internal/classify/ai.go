package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/llm"
	"github.com/alexanderramin/smeta/internal/logger"
)

const aiSystemPrompt = `You classify rows of a Russian construction cost estimate.
Every row gets exactly one label: work, material, equipment or labor.
Reply with a single JSON object and nothing else. Keys are the row indices
as strings. Each value is either a label string or an object
{"type": "<label>", "confidence": <0..1>}.`

// AIConfig tunes the AI fallback.
type AIConfig struct {
	Enabled bool
	// ChunkSize caps the rows sent in one prompt.
	ChunkSize int
	// DefaultConfidence applies when the provider omits a confidence.
	DefaultConfidence float64
}

// AIStrategy is the last-resort classifier backed by a chat model. Provider
// failures and unparsable replies resolve nothing; they never fail the batch.
type AIStrategy struct {
	client llm.Client
	cfg    AIConfig
	log    *logger.Logger
}

func NewAIStrategy(client llm.Client, cfg AIConfig, log *logger.Logger) *AIStrategy {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 200
	}
	if cfg.DefaultConfidence <= 0 || cfg.DefaultConfidence > 1 {
		cfg.DefaultConfidence = 0.7
	}
	return &AIStrategy{client: client, cfg: cfg, log: log.With("strategy", "ai")}
}

func (*AIStrategy) Name() string { return "ai" }

func (s *AIStrategy) Classify(ctx context.Context, row Row) (*domain.ClassificationResult, error) {
	out, _ := s.ClassifyBatch(ctx, []Row{row}, nil)
	if r, ok := out[0]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *AIStrategy) ClassifyBatch(ctx context.Context, rows []Row, _ *Memo) (map[int]domain.ClassificationResult, error) {
	out := make(map[int]domain.ClassificationResult)
	if !s.cfg.Enabled || s.client == nil || len(rows) == 0 {
		return out, nil
	}
	for start := 0; start < len(rows); start += s.cfg.ChunkSize {
		end := min(start+s.cfg.ChunkSize, len(rows))
		for local, r := range s.classifyChunk(ctx, rows[start:end]) {
			out[start+local] = r
		}
	}
	return out, nil
}

type promptRow struct {
	Index int    `json:"i"`
	Code  string `json:"code,omitempty"`
	Name  string `json:"name"`
	Unit  string `json:"unit,omitempty"`
}

func (s *AIStrategy) classifyChunk(ctx context.Context, rows []Row) map[int]domain.ClassificationResult {
	payload := make([]promptRow, len(rows))
	for i, r := range rows {
		payload[i] = promptRow{Index: i, Code: domain.NormalizeCode(r.Code), Name: strings.TrimSpace(r.Name), Unit: r.Unit}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("encoding ai prompt", "rows", len(rows), "error", err)
		return nil
	}

	resp, err := s.client.Chat(ctx, llm.ChatRequest{
		Task: llm.TaskClassify,
		Messages: []llm.Message{
			{Role: "system", Content: aiSystemPrompt},
			{Role: "user", Content: string(data)},
		},
		JSONMode: true,
	})
	if err != nil {
		s.log.Warn("ai classification unavailable", "rows", len(rows), "error", err)
		return nil
	}

	parsed, err := parseAIReply(resp.Content, len(rows), s.cfg.DefaultConfidence)
	if err != nil {
		s.log.Warn("ai reply rejected", "rows", len(rows), "error", err)
		return nil
	}
	return parsed
}

type aiLabel struct {
	Type       string   `json:"type"`
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
}

// parseAIReply decodes the first JSON object of the reply into results for
// indices in [0, n). Entries with unusable keys or values are skipped.
func parseAIReply(content string, n int, defaultConfidence float64) (map[int]domain.ClassificationResult, error) {
	raw, err := llm.ExtractJSON[map[string]json.RawMessage](content, nil)
	if err != nil {
		return nil, err
	}

	out := make(map[int]domain.ClassificationResult, len(raw))
	for key, value := range raw {
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || idx < 0 || idx >= n {
			continue
		}
		text, confidence, ok := decodeAILabel(value)
		if !ok {
			continue
		}
		if confidence == nil || *confidence <= 0 || *confidence > 1 {
			confidence = &defaultConfidence
		}
		out[idx] = domain.ClassificationResult{
			Label:      domain.NormalizeLabel(text),
			Confidence: *confidence,
			Source:     domain.SourceAI,
		}
	}
	if len(raw) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable row entries", llm.ErrInvalidOutput)
	}
	return out, nil
}

func decodeAILabel(value json.RawMessage) (string, *float64, bool) {
	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		return text, nil, true
	}
	var obj aiLabel
	if err := json.Unmarshal(value, &obj); err != nil {
		return "", nil, false
	}
	if obj.Type == "" {
		obj.Type = obj.Label
	}
	return obj.Type, obj.Confidence, true
}
