// hint/http_provider.go
package hint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wfunc/guessgame/logger"
)

const defaultGenerateURL = "https://api.openai.com/v1/responses"

// HTTPConfig 文本生成服务的接入配置
type HTTPConfig struct {
	URL        string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTPProvider 调用外部文本生成服务产生提示，任何失败都降级到固定表
type HTTPProvider struct {
	cfg HTTPConfig
}

func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = defaultGenerateURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &HTTPProvider{cfg: cfg}
}

func (p *HTTPProvider) Hint(ctx context.Context, target int) string {
	text, err := p.generate(ctx, target)
	if err != nil {
		logger.Log.Warnf("Hint generation failed, using fallback: %v", err)
		return Fallback(target)
	}
	return text
}

func (p *HTTPProvider) generate(ctx context.Context, target int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	requestBody, err := json.Marshal(map[string]any{
		"model": p.cfg.Model,
		"input": Prompt(target),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(requestBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	res, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("hint request status %d", res.StatusCode)
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", err
	}

	text := strings.TrimSpace(payload.OutputText)
	if text == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					text = strings.TrimSpace(content.Text)
					break
				}
			}
			if text != "" {
				break
			}
		}
	}
	if text == "" {
		return "", errors.New("hint response missing output text")
	}
	return text, nil
}
