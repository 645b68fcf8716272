package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/halcyonworks/agentroute"
)

// DefaultVisionModel is used when no vision model is configured.
const DefaultVisionModel = "llava"

const visionPrompt = "Describe this image in two or three sentences."

// Vision implements agentroute.Vision via the Ollama generate API with an
// image-capable model.
type Vision struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewVision creates a vision adapter. Empty arguments select the defaults.
func NewVision(baseURL, model string) *Vision {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultVisionModel
	}
	return &Vision{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

// generateRequest is the Ollama generate API request with image support.
type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

// generateResponse is the Ollama generate API response.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Describe captions the image and derives coarse tags from the caption.
func (v *Vision) Describe(ctx context.Context, image []byte) (agentroute.ImageDescription, error) {
	var empty agentroute.ImageDescription

	if len(image) == 0 {
		return empty, agentroute.NewVisionError("no image data", nil)
	}

	reqBody := generateRequest{
		Model:  v.model,
		Prompt: visionPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return empty, agentroute.NewVisionError("marshaling vision request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return empty, agentroute.NewVisionError("creating vision request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return empty, agentroute.NewBackendUnavailableError("vision", "ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return empty, agentroute.NewBackendUnavailableError("vision", "ollama",
			fmt.Errorf("ollama returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return empty, agentroute.NewVisionError(fmt.Sprintf("ollama returned status %d", resp.StatusCode), nil)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return empty, agentroute.NewVisionError("decoding vision response", err)
	}

	caption := strings.TrimSpace(genResp.Response)
	return agentroute.ImageDescription{
		Caption: caption,
		Tags:    tagsFromCaption(caption),
	}, nil
}

var captionWordPattern = regexp.MustCompile(`[a-z]{4,}`)

// captionStopwords are common caption filler words that make poor tags.
var captionStopwords = map[string]bool{
	"this": true, "that": true, "with": true, "there": true, "image": true,
	"picture": true, "photo": true, "shows": true, "appears": true,
	"background": true, "foreground": true, "visible": true, "which": true,
	"their": true, "some": true, "several": true, "features": true,
}

// tagsFromCaption extracts up to five distinct content words as coarse tags.
func tagsFromCaption(caption string) []string {
	words := captionWordPattern.FindAllString(strings.ToLower(caption), -1)

	seen := make(map[string]bool)
	var tags []string
	for _, word := range words {
		if captionStopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		tags = append(tags, word)
	}

	// Longer words first; they tend to name objects rather than glue.
	sort.SliceStable(tags, func(i, j int) bool {
		return len(tags[i]) > len(tags[j])
	})
	if len(tags) > 5 {
		tags = tags[:5]
	}
	return tags
}
