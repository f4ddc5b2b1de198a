package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/usecase"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
)

const (
	internalServerErrorText = "the server encountered an error and could not process your request"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type TileGetter interface {
	GetTile(ctx context.Context, t entity.TileIndex) ([]byte, error)
}

type MosaicAssembler interface {
	Assemble(ctx context.Context, a, b entity.GeoPoint, zoom int) (*usecase.Mosaic, error)
}

type Handler struct {
	validate    *validator.Validate
	tiles       TileGetter
	mosaics     MosaicAssembler
	jpegQuality int
}

func NewHandler(v *validator.Validate, tiles TileGetter, mosaics MosaicAssembler, jpegQuality int) *Handler {
	return &Handler{
		validate:    v,
		tiles:       tiles,
		mosaics:     mosaics,
		jpegQuality: jpegQuality,
	}
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context, err error) {
	requestLogger(c).Error("internal http_server error",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"user_agent", c.Request.UserAgent(),
		"ip", c.ClientIP(),
		"error", err,
	)

	h.RespondWithJSON(c, http.StatusInternalServerError, internalServerErrorText, nil)
}

func (h *Handler) RespondWithError(c *gin.Context, code int, err error) {
	if code >= 500 {
		requestLogger(c).Error("http_server error",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", code,
			"error", err,
		)
	}
	h.RespondWithJSON(c, code, err.Error(), nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	success := code < 400

	r := response{
		Success: success,
		Message: message,
		Data:    data,
	}

	c.JSON(code, r)
}

func requestLogger(c *gin.Context) logger.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(logger.Logger); ok {
			return l
		}
	}
	return logger.FromContext(c.Request.Context())
}
