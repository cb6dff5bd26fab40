package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/minios-linux/lehrer/langmeta"
)

// ---------------------------------------------------------------------------
// Google (free web endpoint, no key)
// ---------------------------------------------------------------------------

type googleTranslator struct {
	c *client
}

func (g *googleTranslator) Name() string { return ProviderGoogle }

func (g *googleTranslator) Translate(ctx context.Context, text string, pair LangPair) (string, error) {
	source := pair.Source
	if source == "" {
		source = "auto"
	}
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", pair.Target)
	q.Set("dt", "t")
	q.Set("q", text)
	endpoint := strings.TrimRight(g.c.prov.BaseURL, "/") + "/translate_a/single?" + q.Encode()

	body, err := g.c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return "", err
	}
	return parseGoogleResponse(body)
}

// parseGoogleResponse joins the translated segments of a response shaped
// like [[["Hallo","Hello",...],["Welt","world",...]], null, "en", ...].
func parseGoogleResponse(body []byte) (string, error) {
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty response")
	}
	segments, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 200))
	}

	var sb strings.Builder
	for _, s := range segments {
		seg, ok := s.([]any)
		if !ok || len(seg) == 0 {
			continue
		}
		if text, ok := seg[0].(string); ok {
			sb.WriteString(text)
		}
	}
	return sb.String(), nil
}

// ---------------------------------------------------------------------------
// DeepL
// ---------------------------------------------------------------------------

type deeplTranslator struct {
	c *client
}

func (d *deeplTranslator) Name() string { return ProviderDeepL }

func (d *deeplTranslator) Translate(ctx context.Context, text string, pair LangPair) (string, error) {
	form := url.Values{}
	form.Add("text", text)
	form.Set("target_lang", deeplLangCode(pair.Target))
	if pair.Source != "" {
		form.Set("source_lang", strings.ToUpper(pair.Source))
	}
	endpoint := strings.TrimRight(d.c.prov.BaseURL, "/") + "/v2/translate"

	body, err := d.c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "DeepL-Auth-Key "+d.c.prov.APIKey)
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(resp.Translations) == 0 {
		return "", fmt.Errorf("DeepL returned no translations")
	}
	return resp.Translations[0].Text, nil
}

// deeplLangCode converts ISO 639-1 target codes to DeepL format.
func deeplLangCode(code string) string {
	mapping := map[string]string{
		"en": "EN-US",
		"pt": "PT-BR",
		"zh": "ZH-HANS",
	}
	if mapped, ok := mapping[strings.ToLower(code)]; ok {
		return mapped
	}
	return strings.ToUpper(code)
}

// ---------------------------------------------------------------------------
// OpenAI-compatible chat endpoint
// ---------------------------------------------------------------------------

// SystemPrompt is the instruction sent with every chat request.
// {{sourceLang}} and {{targetLang}} are replaced with English language names.
const SystemPrompt = `You are a professional translator preparing a bilingual study text.
Translate the user's sentence from {{sourceLang}} into {{targetLang}}.
Keep the meaning and register; translate naturally, not word-for-word.
Return ONLY the translated sentence, without quotes, notes or explanations.`

type openAITranslator struct {
	c *client
}

func (o *openAITranslator) Name() string { return ProviderOpenAI }

func (o *openAITranslator) Translate(ctx context.Context, text string, pair LangPair) (string, error) {
	source := "the detected source language"
	if pair.Source != "" {
		source = langmeta.EnglishName(pair.Source)
	}
	prompt := strings.NewReplacer(
		"{{sourceLang}}", source,
		"{{targetLang}}", langmeta.EnglishName(pair.Target),
	).Replace(SystemPrompt)

	reqBody, err := buildOpenAIChatRequest(o.c.prov.Model, prompt, text, 0.3)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	baseURL := strings.TrimRight(o.c.prov.BaseURL, "/")
	endpoint := baseURL
	if !strings.HasSuffix(baseURL, "/chat/completions") {
		endpoint = baseURL + "/chat/completions"
	}

	body, err := o.c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if o.c.prov.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+o.c.prov.APIKey)
		}
		return req, nil
	})
	if err != nil {
		return "", err
	}
	return extractResponseText(body)
}

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	return json.Marshal(req)
}

// extractResponseText returns choices[0].message.content, or the API error
// message when the body carries one.
func extractResponseText(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
	}
	return strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"`), nil
}
