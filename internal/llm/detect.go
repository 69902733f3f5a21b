package llm

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"docagent/internal/config"
)

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListOllamaModels queries the local Ollama server for available model tags.
// Returns an empty list when the server is unreachable.
func ListOllamaModels(baseURL string) []string {
	url := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if url == "" {
		url = config.DefaultOllamaBaseURL
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url + "/api/tags")
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	var parsed ollamaTagsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}

	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names
}

// DetectDefault picks the best available provider automatically: the first
// local Ollama model when one exists, otherwise the default Gemini model.
func DetectDefault(ollamaBaseURL string) (provider, model string) {
	if local := ListOllamaModels(ollamaBaseURL); len(local) > 0 {
		return "ollama", local[0]
	}
	return "gemini", config.DefaultGeminiModel
}
