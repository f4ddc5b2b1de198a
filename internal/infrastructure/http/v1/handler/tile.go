package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/slippy"
)

func (h *Handler) Tile(c *gin.Context) {
	l := requestLogger(c)

	x, err := strconv.Atoi(c.Param("x"))
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, errors.New("x should be integer"))
		return
	}

	y, err := strconv.Atoi(c.Param("y"))
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, errors.New("y should be integer"))
		return
	}

	z, err := strconv.Atoi(c.Param("z"))
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, errors.New("z should be integer"))
		return
	}

	idx := entity.TileIndex{X: x, Y: y, Z: z}
	if err := slippy.ValidateZoom(z); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, err)
		return
	}
	if !slippy.InGrid(idx) {
		h.RespondWithError(c, http.StatusBadRequest, &entity.InputError{
			Field:  "tile",
			Reason: idx.String() + " is outside the grid",
		})
		return
	}

	data, err := h.tiles.GetTile(c.Request.Context(), idx)
	if err != nil {
		if code, ok := statusFor(err); ok {
			h.RespondWithError(c, code, err)
			return
		}
		h.RespondWithInternalServerError(c, err)
		return
	}

	l.Debug("tile served", "tile", idx.String(), "size", len(data))

	c.Header("Cache-Control", "public, max-age=604800")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
