// Package translate implements the translation preference chain: an
// ordered list of external services tried in turn until one reports
// success, per spec's provider-preference-chain design note.
package translate

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Hurricane0017/agri-advisor/internal/httpclient"
)

// Result is one chunk's translation outcome.
type Result struct {
	TranslatedText string
	Service        string
	Success        bool
}

// Provider translates text from source to target language.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (Result, error)
}

// Chain tries providers in configured preference order, returning the
// first success; if every provider fails, the caller is expected to fall
// back to the offline phrase table (see Phrasebook).
type Chain struct {
	providers []Provider
}

// NewChain builds a Chain over providers in preference order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Translate tries each provider in order, returning the first success.
// If every provider fails, it returns the last error.
func (c *Chain) Translate(ctx context.Context, text, source, target string) (Result, error) {
	var lastErr error
	for _, p := range c.providers {
		res, err := p.Translate(ctx, text, source, target)
		if err != nil {
			lastErr = err
			continue
		}
		if res.Success {
			return res, nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("translate: no provider configured")
	}
	return Result{}, lastErr
}

// ByName builds an ordered Chain from configured service names, skipping
// any name not recognised (§6 lists google_cloud, free_google, mymemory,
// libretranslate, pons).
func ByName(names []string, timeout time.Duration) *Chain {
	var providers []Provider
	for _, name := range names {
		switch name {
		case "mymemory":
			providers = append(providers, NewMyMemory(timeout))
		case "libretranslate":
			providers = append(providers, NewLibreTranslate(timeout))
		case "free_google":
			providers = append(providers, NewFreeGoogle(timeout))
		case "google_cloud":
			providers = append(providers, NewGoogleCloud(timeout))
		case "pons":
			providers = append(providers, NewPons())
		}
	}
	return NewChain(providers...)
}

// MyMemory calls the free MyMemory translation API.
type MyMemory struct{ client *httpclient.Client }

func NewMyMemory(timeout time.Duration) *MyMemory {
	return &MyMemory{client: httpclient.New(
		httpclient.WithBaseURL("https://api.mymemory.translated.net"),
		httpclient.WithTimeout(timeout),
		httpclient.WithRetries(1),
	)}
}

func (m *MyMemory) Name() string { return "mymemory" }

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus int `json:"responseStatus"`
}

func (m *MyMemory) Translate(ctx context.Context, text, source, target string) (Result, error) {
	path := fmt.Sprintf("/get?q=%s&langpair=%s|%s", url.QueryEscape(text), source, target)
	resp, err := httpclient.DoJSON[myMemoryResponse](ctx, m.client, "GET", path, nil)
	if err != nil {
		return Result{}, fmt.Errorf("translate: mymemory: %w", err)
	}
	if resp.ResponseStatus != 200 || resp.ResponseData.TranslatedText == "" {
		return Result{Service: m.Name()}, fmt.Errorf("translate: mymemory: status %d", resp.ResponseStatus)
	}
	return Result{TranslatedText: resp.ResponseData.TranslatedText, Service: m.Name(), Success: true}, nil
}

// LibreTranslate calls a LibreTranslate-compatible instance.
type LibreTranslate struct{ client *httpclient.Client }

func NewLibreTranslate(timeout time.Duration) *LibreTranslate {
	return &LibreTranslate{client: httpclient.New(
		httpclient.WithBaseURL("https://libretranslate.com"),
		httpclient.WithTimeout(timeout),
		httpclient.WithRetries(1),
	)}
}

func (l *LibreTranslate) Name() string { return "libretranslate" }

type libreTranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type libreTranslateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (l *LibreTranslate) Translate(ctx context.Context, text, source, target string) (Result, error) {
	resp, err := httpclient.DoJSON[libreTranslateResponse](ctx, l.client, "POST", "/translate", libreTranslateRequest{
		Q: text, Source: source, Target: target, Format: "text",
	})
	if err != nil {
		return Result{Service: l.Name()}, fmt.Errorf("translate: libretranslate: %w", err)
	}
	if resp.TranslatedText == "" {
		return Result{Service: l.Name()}, fmt.Errorf("translate: libretranslate: empty response")
	}
	return Result{TranslatedText: resp.TranslatedText, Service: l.Name(), Success: true}, nil
}

// FreeGoogle calls the unofficial, keyless Google Translate web endpoint.
// It is unsupported and rate-limited, hence its low place in most
// preference orders, but requires no credentials for local development.
type FreeGoogle struct{ client *httpclient.Client }

func NewFreeGoogle(timeout time.Duration) *FreeGoogle {
	return &FreeGoogle{client: httpclient.New(
		httpclient.WithBaseURL("https://translate.googleapis.com"),
		httpclient.WithTimeout(timeout),
	)}
}

func (g *FreeGoogle) Name() string { return "free_google" }

func (g *FreeGoogle) Translate(ctx context.Context, text, source, target string) (Result, error) {
	path := fmt.Sprintf("/translate_a/single?client=gtx&sl=%s&tl=%s&dt=t&q=%s", source, target, url.QueryEscape(text))

	// The gtx endpoint replies with a nested JSON array, not an object;
	// decode into the loosely-typed shape and take the first segment.
	resp, err := httpclient.DoJSON[[][]any](ctx, g.client, "GET", path, nil)
	if err != nil {
		return Result{Service: g.Name()}, fmt.Errorf("translate: free_google: %w", err)
	}
	if len(resp) == 0 || len(resp[0]) == 0 {
		return Result{Service: g.Name()}, fmt.Errorf("translate: free_google: empty response")
	}
	var out string
	for _, segment := range resp[0] {
		parts, ok := segment.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		piece, _ := parts[0].(string)
		out += piece
	}
	if out == "" {
		return Result{Service: g.Name()}, fmt.Errorf("translate: free_google: could not assemble translation")
	}
	return Result{TranslatedText: out, Service: g.Name(), Success: true}, nil
}

// GoogleCloud calls the paid Google Cloud Translation API. APIKey must be
// supplied via the provider's conventional env var (GOOGLE_TRANSLATE_API_KEY).
type GoogleCloud struct {
	client *httpclient.Client
	apiKey string
}

func NewGoogleCloud(timeout time.Duration) *GoogleCloud {
	return &GoogleCloud{client: httpclient.New(
		httpclient.WithBaseURL("https://translation.googleapis.com"),
		httpclient.WithTimeout(timeout),
	)}
}

// WithAPIKey sets the Google Cloud API key used for requests.
func (g *GoogleCloud) WithAPIKey(key string) *GoogleCloud {
	g.apiKey = key
	return g
}

func (g *GoogleCloud) Name() string { return "google_cloud" }

type googleCloudRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type googleCloudResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (g *GoogleCloud) Translate(ctx context.Context, text, source, target string) (Result, error) {
	if g.apiKey == "" {
		return Result{Service: g.Name()}, fmt.Errorf("translate: google_cloud: no API key configured")
	}
	path := fmt.Sprintf("/language/translate/v2?key=%s", url.QueryEscape(g.apiKey))
	resp, err := httpclient.DoJSON[googleCloudResponse](ctx, g.client, "POST", path, googleCloudRequest{
		Q: text, Source: source, Target: target, Format: "text",
	})
	if err != nil {
		return Result{Service: g.Name()}, fmt.Errorf("translate: google_cloud: %w", err)
	}
	if len(resp.Data.Translations) == 0 {
		return Result{Service: g.Name()}, fmt.Errorf("translate: google_cloud: empty response")
	}
	return Result{TranslatedText: resp.Data.Translations[0].TranslatedText, Service: g.Name(), Success: true}, nil
}

// Pons has no public translation API (it is a dictionary site); it always
// declines so the chain moves on to the next configured provider.
type Pons struct{}

func NewPons() *Pons { return &Pons{} }

func (p *Pons) Name() string { return "pons" }

func (p *Pons) Translate(ctx context.Context, text, source, target string) (Result, error) {
	return Result{Service: p.Name()}, fmt.Errorf("translate: pons: no programmatic translation endpoint available")
}
