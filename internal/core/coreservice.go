package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdhtml "html"
	"log/slog"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/jo-hoe/visionassist/internal/analysis"
	"github.com/jo-hoe/visionassist/internal/backend/commands"
	"github.com/jo-hoe/visionassist/internal/backend/commandstructure"
	"github.com/jo-hoe/visionassist/internal/backend/credentials"
	"github.com/jo-hoe/visionassist/internal/backend/database"
	"github.com/jo-hoe/visionassist/internal/backend/generator"
	"github.com/jo-hoe/visionassist/internal/export"
	"github.com/jo-hoe/visionassist/internal/scenes"
)

const mimePNG = "image/png"

// GeneratorFactory creates a generator once an API key is known
type GeneratorFactory func(apiKey string) (generator.Generator, error)

// Upload is one image file as received from a client
type Upload struct {
	Filename string
	Data     []byte
}

// ProcessedImage is an upload after the pipeline, with a display thumbnail
type ProcessedImage struct {
	Filename  string
	Data      []byte
	Thumbnail []byte
}

// AnalysisResult is returned by Analyze
type AnalysisResult struct {
	Record   *database.Record
	Mode     string
	HTML     string
	Summary  string
	Keywords string
	Scenes   []scenes.Scene
	Images   []ProcessedImage
}

// IdeaResult is returned by RefineIdea
type IdeaResult struct {
	Record *database.Record
	HTML   string
}

type CoreService struct {
	config           *ServiceConfig
	databaseService  database.HistoryService
	credentials      credentials.Source
	newGenerator     GeneratorFactory
	pipeline         *commandstructure.CommandInvoker
	thumbnailCommand commandstructure.Command
	markdown         goldmark.Markdown

	generatorMu  sync.Mutex
	generator    generator.Generator
	generatorKey string
}

// NewCoreService wires the configured history backend, credentials source and generator
func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}
	source, err := credentials.NewSource(ctx, config.Credentials)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize credentials: %w", err)
	}
	factory := func(apiKey string) (generator.Generator, error) {
		return generator.New(config.Generator, apiKey)
	}
	return NewCoreServiceWith(config, databaseService, source, factory)
}

// NewCoreServiceWith builds a service from already constructed dependencies
func NewCoreServiceWith(config *ServiceConfig, databaseService database.HistoryService, source credentials.Source, factory GeneratorFactory) (*CoreService, error) {
	pipeline, err := commandstructure.NewCommandInvokerFromConfig(commandstructure.DefaultRegistry, config.ImagePipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to build image pipeline: %w", err)
	}
	thumbnailCommand, err := commands.NewPixelScaleCommand(map[string]any{"width": config.ThumbnailWidth})
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail command: %w", err)
	}
	slog.Info("image pipeline configured", "commands", pipeline.Names())

	return &CoreService{
		config:           config,
		databaseService:  databaseService,
		credentials:      source,
		newGenerator:     factory,
		pipeline:         pipeline,
		thumbnailCommand: thumbnailCommand,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}, nil
}

func getDatabaseService(config *ServiceConfig) (database.HistoryService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString, config.Database.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

func (service *CoreService) Close() error {
	return service.databaseService.Close()
}

// Ping reports whether the history backend is reachable
func (service *CoreService) Ping() bool {
	return service.databaseService.DoesDatabaseExist()
}

func (service *CoreService) Assistants() []AssistantConfig {
	return service.config.Assistants
}

func (service *CoreService) Assistant(name string) (AssistantConfig, bool) {
	for _, assistant := range service.config.Assistants {
		if assistant.Name == name {
			return assistant, true
		}
	}
	return AssistantConfig{}, false
}

// MissingKeyMessage returns the notice shown while no API key is configured,
// or "" when a key is available. Lookup failures such as an unreachable
// parameter store are logged but not reported as a missing key.
func (service *CoreService) MissingKeyMessage(ctx context.Context) string {
	_, err := service.credentials.APIKey(ctx)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, credentials.ErrMissingAPIKey):
		return credentials.MissingMessage(service.credentials)
	default:
		slog.Warn("failed to look up API key", "source", service.credentials.Describe(), "error", err)
		return ""
	}
}

// Analyze runs an analysis or scenes assistant on the question and uploads
func (service *CoreService) Analyze(ctx context.Context, sessionID, assistantName, mode, question string, uploads []Upload) (*AnalysisResult, error) {
	assistant, err := service.lookup(assistantName, database.KindAnalysis, database.KindScenes)
	if err != nil {
		return nil, err
	}
	gen, err := service.generatorFor(ctx)
	if err != nil {
		return nil, err
	}
	if assistant.RequireImage && len(uploads) == 0 {
		return nil, ErrNoImage
	}
	mode, err = pickOption(assistant.Modes, mode, "mode")
	if err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	if question == "" {
		question = fillTemplate(assistant.DefaultQuestion, map[string]string{"mode": strings.ToLower(mode)})
	}
	prompt := strings.TrimSpace(fillTemplate(assistant.Prompt, map[string]string{"mode": mode}) + "\nUser question: " + question)

	images, err := service.processUploads(uploads)
	if err != nil {
		return nil, err
	}
	request := generator.Request{Prompt: prompt}
	for _, img := range images {
		request.Images = append(request.Images, generator.Image{MimeType: mimePNG, Data: img.Data})
	}

	response, err := service.generate(ctx, gen, request, assistant.Name)
	if err != nil {
		return nil, err
	}

	record, err := service.databaseService.AppendRecord(ctx, sessionID, &database.Record{
		Assistant: assistant.Name,
		Kind:      assistant.Kind,
		Prompt:    question,
		Response:  response,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store history record: %w", err)
	}

	result := &AnalysisResult{
		Record: record,
		Mode:   mode,
		HTML:   service.RenderMarkdown(response),
		Images: images,
	}
	switch assistant.Kind {
	case database.KindAnalysis:
		result.Summary = analysis.Summary(response)
		result.Keywords = analysis.Keywords(response, service.config.KeywordCount)
	case database.KindScenes:
		result.Scenes = scenes.Parse(response)
	}
	return result, nil
}

// RefineIdea runs an idea assistant and stores the structured result
func (service *CoreService) RefineIdea(ctx context.Context, sessionID, assistantName, idea, category, tone string) (*IdeaResult, error) {
	assistant, err := service.lookup(assistantName, database.KindIdea)
	if err != nil {
		return nil, err
	}
	gen, err := service.generatorFor(ctx)
	if err != nil {
		return nil, err
	}
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return nil, ErrEmptyInput
	}
	if category, err = pickOption(assistant.Categories, category, "category"); err != nil {
		return nil, err
	}
	if tone, err = pickOption(assistant.Tones, tone, "tone"); err != nil {
		return nil, err
	}

	prompt := fillTemplate(assistant.Prompt, map[string]string{"category": category, "tone": tone, "idea": idea})
	if !strings.Contains(assistant.Prompt, "{idea}") {
		prompt += "\nIdea: " + idea
	}

	response, err := service.generate(ctx, gen, generator.Request{Prompt: strings.TrimSpace(prompt)}, assistant.Name)
	if err != nil {
		return nil, err
	}

	record, err := service.databaseService.AppendRecord(ctx, sessionID, &database.Record{
		Assistant: assistant.Name,
		Kind:      database.KindIdea,
		Prompt:    idea,
		Response:  response,
		Category:  category,
		Tone:      tone,
		Fields:    ParseFields(response),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store history record: %w", err)
	}
	return &IdeaResult{Record: record, HTML: service.RenderMarkdown(response)}, nil
}

func (service *CoreService) History(ctx context.Context, sessionID string) ([]*database.Record, error) {
	return service.databaseService.GetRecords(ctx, sessionID)
}

func (service *CoreService) DeleteHistory(ctx context.Context, sessionID string, index int) error {
	if err := service.databaseService.DeleteRecord(ctx, sessionID, index); err != nil {
		return err
	}
	slog.Debug("history record deleted", "session_id", sessionID, "index", index)
	return nil
}

func (service *CoreService) ClearHistory(ctx context.Context, sessionID string) error {
	if err := service.databaseService.ClearRecords(ctx, sessionID); err != nil {
		return err
	}
	slog.Debug("history cleared", "session_id", sessionID)
	return nil
}

// Export renders the session history in the named format
func (service *CoreService) Export(ctx context.Context, sessionID, formatName string) (*export.File, error) {
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	records, err := service.databaseService.GetRecords(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return export.Render(format, records)
}

// RenderMarkdown converts model output to HTML. Raw HTML in the input is not passed through.
func (service *CoreService) RenderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := service.markdown.Convert([]byte(text), &buf); err != nil {
		slog.Warn("markdown rendering failed, falling back to plain text", "error", err)
		return "<pre>" + stdhtml.EscapeString(text) + "</pre>"
	}
	return buf.String()
}

func (service *CoreService) lookup(name string, kinds ...database.Kind) (AssistantConfig, error) {
	assistant, ok := service.Assistant(name)
	if !ok {
		return AssistantConfig{}, fmt.Errorf("%w: %s", ErrUnknownAssistant, name)
	}
	for _, kind := range kinds {
		if assistant.Kind == kind {
			return assistant, nil
		}
	}
	return AssistantConfig{}, fmt.Errorf("%w: %s is a %s assistant", ErrWrongKind, name, assistant.Kind)
}

// generatorFor resolves the API key and reuses the generator while the key is unchanged
func (service *CoreService) generatorFor(ctx context.Context) (generator.Generator, error) {
	apiKey, err := service.credentials.APIKey(ctx)
	if err != nil {
		return nil, err
	}

	service.generatorMu.Lock()
	defer service.generatorMu.Unlock()
	if service.generator != nil && service.generatorKey == apiKey {
		return service.generator, nil
	}
	gen, err := service.newGenerator(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	service.generator = gen
	service.generatorKey = apiKey
	return gen, nil
}

func (service *CoreService) generate(ctx context.Context, gen generator.Generator, request generator.Request, assistant string) (string, error) {
	if timeout := service.config.Generator.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	response, err := gen.Generate(ctx, request)
	if err != nil {
		slog.Error("generator call failed",
			"assistant", assistant,
			"generator", gen.Name(),
			"image_count", len(request.Images),
			"error", err)
		return "", &GenerationError{Err: err}
	}
	slog.Info("generator call succeeded",
		"assistant", assistant,
		"generator", gen.Name(),
		"image_count", len(request.Images),
		"response_length", len(response))
	return response, nil
}

func (service *CoreService) processUploads(uploads []Upload) ([]ProcessedImage, error) {
	images := make([]ProcessedImage, 0, len(uploads))
	for _, upload := range uploads {
		processed, err := service.pipeline.Execute(upload.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidImage, upload.Filename, err)
		}
		thumbnail, err := service.thumbnailCommand.Execute(processed)
		if err != nil {
			slog.Warn("failed to generate thumbnail", "filename", upload.Filename, "error", err)
			thumbnail = nil
		}
		images = append(images, ProcessedImage{Filename: upload.Filename, Data: processed, Thumbnail: thumbnail})
	}
	return images, nil
}

// pickOption returns value if it is one of options, the first option if value is empty,
// and value unchanged when no options are configured.
func pickOption(options []string, value, label string) (string, error) {
	value = strings.TrimSpace(value)
	if len(options) == 0 {
		return value, nil
	}
	if value == "" {
		return options[0], nil
	}
	for _, option := range options {
		if strings.EqualFold(option, value) {
			return option, nil
		}
	}
	return "", fmt.Errorf("%w: %s %q", ErrInvalidOption, label, value)
}

func fillTemplate(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
