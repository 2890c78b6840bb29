package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

const (
	defaultTextModel  = "gemini-2.5-flash"
	defaultImageModel = "gemini-2.5-flash-image"
	defaultTTSModel   = "gemini-2.5-flash-preview-tts"
	defaultRetries    = 2
	defaultSampleRate = 24000
)

type Image struct {
	Data     []byte
	MimeType string
}

type SpeakerVoice struct {
	Name  string
	Voice string
}

type SpeechRequest struct {
	Transcript string
	Style      string
	// Speakers holds one voice for narration or two for a dialogue.
	Speakers []SpeakerVoice
}

// Speech is raw 16-bit little-endian mono PCM.
type Speech struct {
	PCM        []byte
	SampleRate int
}

type Client interface {
	GenerateText(ctx context.Context, system, user string, jsonMode bool) (string, error)
	GenerateImage(ctx context.Context, prompt string, refs []Image) (Image, error)
	GenerateSpeech(ctx context.Context, req SpeechRequest) (Speech, error)
	TextModel() string
}

type client struct {
	log        *logger.Logger
	api        *genai.Client
	textModel  string
	imageModel string
	ttsModel   string
	retries    int
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// NewClient reads GEMINI_API_KEY and the GEMINI_*_MODEL overrides.
func NewClient(ctx context.Context, log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	api, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	retries := defaultRetries
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv("GEMINI_MAX_RETRIES"))); err == nil && v >= 0 {
		retries = v
	}
	c := &client{
		log:        log.With("client", "GeminiClient"),
		api:        api,
		textModel:  envOr("GEMINI_TEXT_MODEL", defaultTextModel),
		imageModel: envOr("GEMINI_IMAGE_MODEL", defaultImageModel),
		ttsModel:   envOr("GEMINI_TTS_MODEL", defaultTTSModel),
		retries:    retries,
	}
	c.log.Info("Gemini client ready", "text_model", c.textModel, "image_model", c.imageModel, "tts_model", c.ttsModel)
	return c, nil
}

func (c *client) TextModel() string { return c.textModel }

// generate retries transport failures with a linear backoff.
func (c *client) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		resp, err := c.api.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		c.log.Warn("Gemini call failed", "model", model, "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("gemini %s: %w", model, lastErr)
}

func (c *client) GenerateText(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}
	resp, err := c.generate(ctx, c.textModel, genai.Text(user), cfg)
	if err != nil {
		return "", err
	}
	out := resp.Text()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("gemini %s: empty text response", c.textModel)
	}
	return out, nil
}

func (c *client) GenerateImage(ctx context.Context, prompt string, refs []Image) (Image, error) {
	parts := make([]*genai.Part, 0, len(refs)+1)
	for _, r := range refs {
		parts = append(parts, genai.NewPartFromBytes(r.Data, r.MimeType))
	}
	if len(refs) > 0 {
		prompt += "\nKeep the people consistent with the reference images."
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	resp, err := c.generate(ctx, c.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}})
	if err != nil {
		return Image{}, err
	}
	if blob := firstInline(resp, "image/"); blob != nil {
		return Image{Data: blob.Data, MimeType: blob.MIMEType}, nil
	}
	return Image{}, fmt.Errorf("gemini %s: response carried no image", c.imageModel)
}

func (c *client) GenerateSpeech(ctx context.Context, req SpeechRequest) (Speech, error) {
	if len(req.Speakers) == 0 || len(req.Speakers) > 2 {
		return Speech{}, fmt.Errorf("gemini tts: want 1 or 2 speakers, got %d", len(req.Speakers))
	}
	speech := &genai.SpeechConfig{}
	if len(req.Speakers) == 1 {
		speech.VoiceConfig = prebuilt(req.Speakers[0].Voice)
	} else {
		multi := &genai.MultiSpeakerVoiceConfig{}
		for _, s := range req.Speakers {
			multi.SpeakerVoiceConfigs = append(multi.SpeakerVoiceConfigs, &genai.SpeakerVoiceConfig{
				Speaker:     s.Name,
				VoiceConfig: prebuilt(s.Voice),
			})
		}
		speech.MultiSpeakerVoiceConfig = multi
	}
	text := req.Transcript
	if req.Style != "" {
		text = req.Style + "\n\n" + text
	}

	resp, err := c.generate(ctx, c.ttsModel, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig:       speech,
	})
	if err != nil {
		return Speech{}, err
	}
	blob := firstInline(resp, "audio/")
	if blob == nil || len(blob.Data) == 0 {
		return Speech{}, fmt.Errorf("gemini %s: response carried no audio", c.ttsModel)
	}
	return Speech{PCM: blob.Data, SampleRate: sampleRate(blob.MIMEType)}, nil
}

func prebuilt(voice string) *genai.VoiceConfig {
	return &genai.VoiceConfig{PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice}}
}

func firstInline(resp *genai.GenerateContentResponse, prefix string) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil && p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, prefix) {
				return p.InlineData
			}
		}
	}
	return nil
}

// sampleRate reads the rate parameter of a mime such as "audio/L16;codec=pcm;rate=24000".
func sampleRate(mime string) int {
	for _, field := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(field), "=")
		if ok && strings.EqualFold(k, "rate") {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return defaultSampleRate
}
