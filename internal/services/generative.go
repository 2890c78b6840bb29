package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/steps"
	"github.com/yungbote/storyforge-backend/internal/observability"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/gemini"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

// TextModel is satisfied by both the Gemini and the OpenAI clients.
type TextModel interface {
	GenerateText(ctx context.Context, system, user string, jsonMode bool) (string, error)
}

type MediaModel interface {
	GenerateImage(ctx context.Context, prompt string, refs []gemini.Image) (gemini.Image, error)
	GenerateSpeech(ctx context.Context, req gemini.SpeechRequest) (gemini.Speech, error)
}

// ReferenceFetcher loads a stored portrait so it can be sent back as an image reference.
type ReferenceFetcher func(ctx context.Context, url string) (gemini.Image, error)

const maxReferenceBytes = 8 << 20

type generativeService struct {
	log    *logger.Logger
	text   TextModel
	media  MediaModel
	blobs  steps.BlobStore
	fetch  ReferenceFetcher
	tracer trace.Tracer
}

func NewGenerativeService(baseLog *logger.Logger, text TextModel, media MediaModel, blobs steps.BlobStore, fetch ReferenceFetcher) (steps.Generative, error) {
	if text == nil || media == nil || blobs == nil {
		return nil, fmt.Errorf("generative service: text, media and blob backends are required")
	}
	if fetch == nil {
		fetch = HTTPReferenceFetcher(&http.Client{Timeout: 30 * time.Second})
	}
	return &generativeService{
		log:    baseLog.With("service", "GenerativeService"),
		text:   text,
		media:  media,
		blobs:  blobs,
		fetch:  fetch,
		tracer: otel.Tracer("storyforge/generative"),
	}, nil
}

func (s *generativeService) GenerateText(ctx context.Context, p prompts.Prompt) (string, error) {
	ctx, span := s.tracer.Start(ctx, "generative.text", trace.WithAttributes(
		attribute.String("prompt", p.Name),
		attribute.Int("prompt.version", p.Version),
	))
	defer span.End()

	start := time.Now()
	out, err := s.text.GenerateText(ctx, p.System, p.User, p.JSON())
	observability.Current().ObserveGenerator("text", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return "", apperr.Wrap(apperr.ErrExternalService, "generate_text["+p.Name+"]", err)
	}
	s.log.Debug("Text generated", "prompt_name", p.Name, "fingerprint", p.Fingerprint(), "ms", time.Since(start).Milliseconds())
	return out, nil
}

func (s *generativeService) GenerateImage(ctx context.Context, prompt string, references []string) (steps.ImageResult, error) {
	ctx, span := s.tracer.Start(ctx, "generative.image", trace.WithAttributes(
		attribute.Int("references", len(references)),
	))
	defer span.End()

	refs := make([]gemini.Image, 0, len(references))
	for _, url := range references {
		if strings.TrimSpace(url) == "" {
			continue
		}
		img, err := s.fetch(ctx, url)
		if err != nil {
			return steps.ImageResult{}, apperr.Wrap(apperr.ErrExternalService, "generate_image.reference", err)
		}
		refs = append(refs, img)
	}
	start := time.Now()
	img, err := s.media.GenerateImage(ctx, prompt, refs)
	observability.Current().ObserveGenerator("image", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return steps.ImageResult{}, apperr.Wrap(apperr.ErrExternalService, "generate_image", err)
	}
	return steps.ImageResult{Data: img.Data, MimeType: img.MimeType}, nil
}

// GenerateAudio synthesizes PCM speech, wraps it as WAV and uploads it under req.Key.
func (s *generativeService) GenerateAudio(ctx context.Context, req steps.AudioRequest) (steps.AudioResult, error) {
	ctx, span := s.tracer.Start(ctx, "generative.audio", trace.WithAttributes(
		attribute.Int("speakers", len(req.Speakers)),
		attribute.Int("transcript.len", len(req.Transcript)),
	))
	defer span.End()

	if strings.TrimSpace(req.Key) == "" {
		return steps.AudioResult{}, apperr.Newf(apperr.ErrInvalidArgument, "generate_audio", "storage key required")
	}
	speakers := make([]gemini.SpeakerVoice, 0, len(req.Speakers))
	for _, sp := range req.Speakers {
		speakers = append(speakers, gemini.SpeakerVoice{Name: sp.Name, Voice: sp.Voice})
	}
	start := time.Now()
	speech, err := s.media.GenerateSpeech(ctx, gemini.SpeechRequest{
		Transcript: req.Transcript,
		Style:      req.Style,
		Speakers:   speakers,
	})
	observability.Current().ObserveGenerator("audio", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return steps.AudioResult{}, apperr.Wrap(apperr.ErrExternalService, "generate_audio", err)
	}

	wav := EncodeWAV(speech.PCM, speech.SampleRate)
	url, err := s.blobs.Upload(ctx, req.Key, wav, "audio/wav")
	if err != nil {
		return steps.AudioResult{}, apperr.Wrap(apperr.ErrExternalService, "generate_audio.upload", err)
	}
	s.log.Debug("Audio stored", "key", req.Key, "bytes", len(wav))
	return steps.AudioResult{URL: url, StorageKey: req.Key, MimeType: "audio/wav"}, nil
}

func HTTPReferenceFetcher(hc *http.Client) ReferenceFetcher {
	return func(ctx context.Context, url string) (gemini.Image, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return gemini.Image{}, err
		}
		resp, err := hc.Do(req)
		if err != nil {
			return gemini.Image{}, fmt.Errorf("fetch %s: %w", url, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return gemini.Image{}, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes))
		if err != nil {
			return gemini.Image{}, fmt.Errorf("read %s: %w", url, err)
		}
		mime := resp.Header.Get("Content-Type")
		if mime == "" || !strings.HasPrefix(mime, "image/") {
			mime = http.DetectContentType(data)
		}
		return gemini.Image{Data: data, MimeType: mime}, nil
	}
}
