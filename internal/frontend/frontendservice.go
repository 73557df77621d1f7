package frontend

import (
	"encoding/base64"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/visionassist/internal/backend/database"
	"github.com/jo-hoe/visionassist/internal/common"
	"github.com/jo-hoe/visionassist/internal/core"
	"github.com/jo-hoe/visionassist/internal/export"
	"github.com/jo-hoe/visionassist/internal/scenes"
)

const (
	MainPageName = "index.html"
	imagesField  = "images"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type indexView struct {
	Assistants []core.AssistantConfig
	Active     core.AssistantConfig
	MissingKey string
	History    historyView
}

type historyItem struct {
	Index  int
	Number int
	Record *database.Record
}

type historyView struct {
	Records []historyItem
	Formats []export.Format
}

type thumbnailView struct {
	Filename string
	DataURI  template.URL
}

type resultView struct {
	Assistant string
	HTML      template.HTML
	Summary   string
	Keywords  string
	Scenes    []scenes.Scene
	Fields    map[string]string
	Images    []thumbnailView
	History   historyView
}

type errorView struct {
	Message string
	Details string
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.indexHandler, withSession)
	e.POST("/htmx/assistant/:name", service.htmxAssistantHandler, withSession)

	// history panel
	e.GET("/htmx/history", service.htmxListHistoryHandler, withSession)
	e.DELETE("/htmx/history", service.htmxClearHistoryHandler, withSession)
	e.DELETE("/htmx/history/:index", service.htmxDeleteHistoryHandler, withSession)
	e.GET("/history/download", service.downloadHistoryHandler, withSession)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	history, err := service.buildHistoryView(ctx)
	if err != nil {
		slog.Error("indexHandler: failed to load history",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load history")
	}

	assistants := service.coreService.Assistants()
	view := indexView{
		Assistants: assistants,
		MissingKey: service.coreService.MissingKeyMessage(ctx.Request().Context()),
		History:    history,
	}
	if len(assistants) > 0 {
		view.Active = assistants[0]
	}
	if tab := ctx.QueryParam("tab"); tab != "" {
		if assistant, ok := service.coreService.Assistant(tab); ok {
			view.Active = assistant
		}
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, MainPageName, view)
}

func (service *FrontendService) htmxAssistantHandler(ctx echo.Context) error {
	name := ctx.Param("name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	assistant, ok := service.coreService.Assistant(name)
	if !ok {
		return service.renderError(ctx, "htmxAssistantHandler", core.ErrUnknownAssistant)
	}

	requestCtx := ctx.Request().Context()
	sessionID := getSessionID(ctx)
	view := resultView{Assistant: assistant.Name}

	if assistant.Kind == database.KindIdea {
		result, err := service.coreService.RefineIdea(requestCtx, sessionID, assistant.Name,
			ctx.FormValue("idea"), ctx.FormValue("category"), ctx.FormValue("tone"))
		if err != nil {
			return service.renderError(ctx, "htmxAssistantHandler", err)
		}
		view.HTML = template.HTML(result.HTML)
		view.Fields = result.Record.Fields
	} else {
		uploads, err := service.readUploads(ctx)
		if err != nil {
			slog.Error("htmxAssistantHandler: failed to read uploaded files",
				"status", http.StatusBadRequest, "error", err)
			return ctx.String(http.StatusBadRequest, "Failed to read uploaded files")
		}
		result, err := service.coreService.Analyze(requestCtx, sessionID, assistant.Name,
			ctx.FormValue("mode"), ctx.FormValue("question"), uploads)
		if err != nil {
			return service.renderError(ctx, "htmxAssistantHandler", err)
		}
		view.HTML = template.HTML(result.HTML)
		view.Summary = result.Summary
		view.Keywords = result.Keywords
		view.Scenes = result.Scenes
		for _, img := range result.Images {
			if len(img.Thumbnail) == 0 {
				continue
			}
			view.Images = append(view.Images, thumbnailView{
				Filename: img.Filename,
				DataURI:  template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(img.Thumbnail)),
			})
		}
	}

	history, err := service.buildHistoryView(ctx)
	if err != nil {
		slog.Error("htmxAssistantHandler: failed to list history for OOB update",
			"status", http.StatusInternalServerError, "error", err)
	}
	view.History = history

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "result", view)
}

func (service *FrontendService) htmxListHistoryHandler(ctx echo.Context) error {
	return service.renderHistory(ctx, "htmxListHistoryHandler")
}

func (service *FrontendService) htmxClearHistoryHandler(ctx echo.Context) error {
	if err := service.coreService.ClearHistory(ctx.Request().Context(), getSessionID(ctx)); err != nil {
		return service.renderError(ctx, "htmxClearHistoryHandler", err)
	}
	return service.renderHistory(ctx, "htmxClearHistoryHandler")
}

func (service *FrontendService) htmxDeleteHistoryHandler(ctx echo.Context) error {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		slog.Warn("htmxDeleteHistoryHandler: invalid index",
			"status", http.StatusBadRequest, "index", ctx.Param("index"))
		return ctx.String(http.StatusBadRequest, "Invalid history index")
	}
	if err := service.coreService.DeleteHistory(ctx.Request().Context(), getSessionID(ctx), index); err != nil {
		return service.renderError(ctx, "htmxDeleteHistoryHandler", err)
	}
	return service.renderHistory(ctx, "htmxDeleteHistoryHandler")
}

func (service *FrontendService) downloadHistoryHandler(ctx echo.Context) error {
	file, err := service.coreService.Export(ctx.Request().Context(), getSessionID(ctx), ctx.QueryParam("format"))
	if err != nil {
		status := common.StatusCode(err)
		slog.Warn("downloadHistoryHandler: export failed", "status", status, "error", err)
		return ctx.String(status, core.UserMessage(err, service.config.ErrorDetailsEnabled()))
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+file.Filename+`"`)
	service.setNoCache(ctx)
	return ctx.Blob(http.StatusOK, file.ContentType, file.Data)
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}

func (service *FrontendService) renderHistory(ctx echo.Context, handler string) error {
	history, err := service.buildHistoryView(ctx)
	if err != nil {
		slog.Error(handler+": failed to list history",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list history")
	}
	// Prevent caching so the latest history is always shown
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "history", history)
}

// renderError answers with an error fragment. The page swaps error responses
// into the target as well, so the status code stays meaningful.
func (service *FrontendService) renderError(ctx echo.Context, handler string, err error) error {
	status := common.StatusCode(err)
	if status >= http.StatusInternalServerError {
		slog.Error(handler+": request failed", "status", status, "error", err)
	} else {
		slog.Warn(handler+": request rejected", "status", status, "error", err)
	}

	view := errorView{Message: core.UserMessage(err, false)}
	var genErr *core.GenerationError
	if errors.As(err, &genErr) && service.config.ErrorDetailsEnabled() {
		view.Details = genErr.Err.Error()
	}
	return ctx.Render(status, "error", view)
}

func (service *FrontendService) buildHistoryView(ctx echo.Context) (historyView, error) {
	view := historyView{Formats: export.Formats()}
	records, err := service.coreService.History(ctx.Request().Context(), getSessionID(ctx))
	if err != nil {
		return view, err
	}
	for i, record := range records {
		view.Records = append(view.Records, historyItem{Index: i, Number: i + 1, Record: record})
	}
	return view, nil
}

func (service *FrontendService) readUploads(ctx echo.Context) ([]core.Upload, error) {
	form, err := ctx.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	files := form.File[imagesField]
	uploads := make([]core.Upload, 0, len(files))
	for _, file := range files {
		data, err := readFile(file)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		uploads = append(uploads, core.Upload{Filename: file.Filename, Data: data})
	}
	return uploads, nil
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("readFile: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()
	return io.ReadAll(src)
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}
