package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/simplebiz/concierge/pkg/logging"
)

const classifierPrompt = `You are an intent classifier for an appointment booking assistant.

Analyze the customer message and extract:
1. Intent: book/inquire/cancel/reschedule/faq/other
2. Entities: service, date, time, duration, guests
3. Confidence: 0-1

Respond with JSON only:
{
  "intent": "...",
  "confidence": 0.0,
  "entities": {
    "service": "...",
    "date": "...",
    "time": "...",
    "duration": 0,
    "guests": 0
  }
}`

// The model wraps its JSON in prose often enough that we fish the object out
// instead of trusting the raw response.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// GeminiClassifier implements Classifier using Google's Gemini API.
type GeminiClassifier struct {
	client  *genai.Client
	modelID string
	logger  *logging.Logger
}

// NewGeminiClassifier creates a classifier backed by the Gemini API.
func NewGeminiClassifier(ctx context.Context, apiKey, modelID string, logger *logging.Logger) (*GeminiClassifier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}
	return &GeminiClassifier{client: client, modelID: modelID, logger: logger}, nil
}

// Classify asks Gemini for an intent verdict. Any failure along the way
// degrades to IntentOther with zero confidence so the dialogue keeps moving.
func (c *GeminiClassifier) Classify(ctx context.Context, message string, history []Message) Classification {
	fallback := Classification{Intent: IntentOther, Confidence: 0, RawText: message}

	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(500)
	model.SystemInstruction = genai.NewUserContent(genai.Text(classifierPrompt))

	cs := model.StartChat()
	// Last five turns give the model enough context to disambiguate
	// follow-ups like "the second one".
	start := len(history) - 5
	if start < 0 {
		start = 0
	}
	for _, msg := range history[start:] {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		c.logger.Warn("intent classification failed, degrading to other", "error", err)
		return fallback
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		c.logger.Warn("gemini returned no candidates, degrading to other")
		return fallback
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	raw := jsonObjectRe.FindString(text.String())
	if raw == "" {
		c.logger.Warn("no JSON object in classifier response, degrading to other")
		return fallback
	}

	var result Classification
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.Warn("classifier response did not parse, degrading to other", "error", err)
		return fallback
	}
	if result.Intent == "" {
		result.Intent = IntentOther
	}
	result.RawText = message
	return result
}

// Close releases the underlying Gemini client.
func (c *GeminiClassifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
