package backend

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/visionassist/internal/backend/database"
	"github.com/jo-hoe/visionassist/internal/common"
	"github.com/jo-hoe/visionassist/internal/core"
	"github.com/jo-hoe/visionassist/internal/scenes"
)

const (
	APIPrefix      = "/api/v1"
	SessionHeader  = "X-Session-ID"
	sessionContext = "session_id"
)

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
}

type assistantResponse struct {
	Name         string        `json:"name"`
	Kind         database.Kind `json:"kind"`
	Description  string        `json:"description,omitempty"`
	RequireImage bool          `json:"requireImage"`
	Modes        []string      `json:"modes,omitempty"`
	Categories   []string      `json:"categories,omitempty"`
	Tones        []string      `json:"tones,omitempty"`
}

type imagePayload struct {
	Filename string `json:"filename"`
	Data     string `json:"data" validate:"required,base64"`
}

type analyzeRequest struct {
	Mode     string         `json:"mode"`
	Question string         `json:"question" validate:"max=4000"`
	Images   []imagePayload `json:"images" validate:"max=10,dive"`
}

type analyzeResponse struct {
	Record   *database.Record `json:"record"`
	Mode     string           `json:"mode,omitempty"`
	HTML     string           `json:"html"`
	Summary  string           `json:"summary,omitempty"`
	Keywords string           `json:"keywords,omitempty"`
	Scenes   []scenes.Scene   `json:"scenes,omitempty"`
}

type refineRequest struct {
	Idea     string `json:"idea" validate:"required,max=4000"`
	Category string `json:"category"`
	Tone     string `json:"tone"`
}

type refineResponse struct {
	Record *database.Record `json:"record"`
	HTML   string           `json:"html"`
}

type sessionRequest struct {
	SessionID string `validate:"required,max=128"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", s.probeHandler)

	api := e.Group(APIPrefix)
	api.GET("/assistants", s.listAssistantsHandler)

	api.POST("/assistants/:name/analyze", s.analyzeHandler, s.requireSession)
	api.POST("/assistants/:name/refine", s.refineHandler, s.requireSession)
	api.GET("/history", s.listHistoryHandler, s.requireSession)
	api.DELETE("/history", s.clearHistoryHandler, s.requireSession)
	api.DELETE("/history/:index", s.deleteHistoryHandler, s.requireSession)
	api.GET("/history/export", s.exportHistoryHandler, s.requireSession)
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	if !s.coreService.Ping() {
		return ctx.String(http.StatusServiceUnavailable, "history backend unavailable")
	}
	return ctx.String(http.StatusOK, "ok")
}

// requireSession reads and validates the session header for every history scoped route
func (s *APIService) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		request := sessionRequest{SessionID: ctx.Request().Header.Get(SessionHeader)}
		if err := ctx.Validate(&request); err != nil {
			slog.Warn("api: missing or invalid session header", "route", ctx.Path())
			return ctx.JSON(http.StatusBadRequest, errorResponse{Error: SessionHeader + " header is required"})
		}
		ctx.Set(sessionContext, request.SessionID)
		return next(ctx)
	}
}

func (s *APIService) listAssistantsHandler(ctx echo.Context) error {
	assistants := s.coreService.Assistants()
	response := make([]assistantResponse, 0, len(assistants))
	for _, a := range assistants {
		response = append(response, assistantResponse{
			Name:         a.Name,
			Kind:         a.Kind,
			Description:  a.Description,
			RequireImage: a.RequireImage,
			Modes:        a.Modes,
			Categories:   a.Categories,
			Tones:        a.Tones,
		})
	}
	return ctx.JSON(http.StatusOK, response)
}

func (s *APIService) analyzeHandler(ctx echo.Context) error {
	var request analyzeRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if err := ctx.Validate(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	uploads := make([]core.Upload, 0, len(request.Images))
	for i, img := range request.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "image " + strconv.Itoa(i) + " is not valid base64"})
		}
		uploads = append(uploads, core.Upload{Filename: img.Filename, Data: data})
	}

	result, err := s.coreService.Analyze(ctx.Request().Context(), sessionID(ctx), assistantParam(ctx), request.Mode, request.Question, uploads)
	if err != nil {
		return s.writeError(ctx, "analyzeHandler", err)
	}
	return ctx.JSON(http.StatusOK, analyzeResponse{
		Record:   result.Record,
		Mode:     result.Mode,
		HTML:     result.HTML,
		Summary:  result.Summary,
		Keywords: result.Keywords,
		Scenes:   result.Scenes,
	})
}

func (s *APIService) refineHandler(ctx echo.Context) error {
	var request refineRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if err := ctx.Validate(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	result, err := s.coreService.RefineIdea(ctx.Request().Context(), sessionID(ctx), assistantParam(ctx), request.Idea, request.Category, request.Tone)
	if err != nil {
		return s.writeError(ctx, "refineHandler", err)
	}
	return ctx.JSON(http.StatusOK, refineResponse{Record: result.Record, HTML: result.HTML})
}

func (s *APIService) listHistoryHandler(ctx echo.Context) error {
	records, err := s.coreService.History(ctx.Request().Context(), sessionID(ctx))
	if err != nil {
		return s.writeError(ctx, "listHistoryHandler", err)
	}
	if records == nil {
		records = []*database.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *APIService) clearHistoryHandler(ctx echo.Context) error {
	if err := s.coreService.ClearHistory(ctx.Request().Context(), sessionID(ctx)); err != nil {
		return s.writeError(ctx, "clearHistoryHandler", err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *APIService) deleteHistoryHandler(ctx echo.Context) error {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "index must be an integer"})
	}
	if err := s.coreService.DeleteHistory(ctx.Request().Context(), sessionID(ctx), index); err != nil {
		return s.writeError(ctx, "deleteHistoryHandler", err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *APIService) exportHistoryHandler(ctx echo.Context) error {
	file, err := s.coreService.Export(ctx.Request().Context(), sessionID(ctx), ctx.QueryParam("format"))
	if err != nil {
		return s.writeError(ctx, "exportHistoryHandler", err)
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+file.Filename+`"`)
	return ctx.Blob(http.StatusOK, file.ContentType, file.Data)
}

func (s *APIService) writeError(ctx echo.Context, handler string, err error) error {
	status := common.StatusCode(err)
	if status >= http.StatusInternalServerError {
		slog.Error("api: "+handler+" failed", "status", status, "route", ctx.Path(), "error", err)
	} else {
		slog.Warn("api: "+handler+" rejected request", "status", status, "route", ctx.Path(), "error", err)
	}
	return ctx.JSON(status, errorResponse{Error: core.UserMessage(err, s.config.ErrorDetailsEnabled())})
}

func sessionID(ctx echo.Context) string {
	id, _ := ctx.Get(sessionContext).(string)
	return id
}

func assistantParam(ctx echo.Context) string {
	name := ctx.Param("name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}
