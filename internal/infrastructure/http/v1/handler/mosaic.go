package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/raster"
)

type mosaicQuery struct {
	Top    *float64 `form:"top" validate:"required"`
	Bottom *float64 `form:"bottom" validate:"required"`
	Left   *float64 `form:"left" validate:"required"`
	Right  *float64 `form:"right" validate:"required"`
	Zoom   *int     `form:"zoom" validate:"required"`
	Format string   `form:"format" validate:"omitempty,oneof=png jpg jpeg tif tiff"`
}

func (h *Handler) Mosaic(c *gin.Context) {
	l := requestLogger(c)

	var q mosaicQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, &entity.InputError{Reason: err.Error()})
		return
	}
	if err := h.validate.Struct(q); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, &entity.InputError{Reason: err.Error()})
		return
	}

	format, err := raster.ParseFormat(q.Format)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, err)
		return
	}

	topLeft := entity.GeoPoint{Lat: *q.Top, Lon: *q.Left}
	bottomRight := entity.GeoPoint{Lat: *q.Bottom, Lon: *q.Right}

	m, err := h.mosaics.Assemble(c.Request.Context(), topLeft, bottomRight, *q.Zoom)
	if err != nil {
		if code, ok := statusFor(err); ok {
			h.RespondWithError(c, code, err)
			return
		}
		h.RespondWithInternalServerError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := raster.Encode(&buf, m.Image, format, h.jpegQuality); err != nil {
		h.RespondWithInternalServerError(c, err)
		return
	}

	failed := make([]string, 0, len(m.Failed))
	for _, fe := range m.Failed {
		failed = append(failed, fe.Tile.String())
	}

	l.Info("mosaic served",
		"rect", m.Rect.String(),
		"format", format,
		"size", buf.Len(),
		"failed", len(failed),
	)

	c.Header("X-Mosaic-Rect", m.Rect.String())
	c.Header("X-Mosaic-Tiles", strconv.Itoa(m.Rect.Count()))
	if len(failed) > 0 {
		c.Header("X-Mosaic-Failed-Tiles", strings.Join(failed, ","))
	}
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
