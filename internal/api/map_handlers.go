package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/annel0/hexvoxel/internal/app"
	"github.com/annel0/hexvoxel/internal/hexgrid"
	"github.com/annel0/hexvoxel/internal/landmass"
)

// StatusRequest - тело PUT /api/landmasses/:id/status
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TileInfo - ответ на запросы тайла: координаты, упакованный id и, если тайл на суше, его владелец
type TileInfo struct {
	TileID     hexgrid.TileID `json:"tileId"`
	X          int            `json:"x"`
	Z          int            `json:"z"`
	Land       bool           `json:"land"`
	LandmassID string         `json:"landmassId,omitempty"`
	Index      int            `json:"index"`
	Level      uint8          `json:"level"`
}

func (rs *RestServer) handleListLandmasses(c *gin.Context) {
	summaries := rs.maps.Summaries()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список суши",
		Data: map[string]interface{}{
			"landmasses": summaries,
			"total":      len(summaries),
		},
	})
}

func (rs *RestServer) handleGetLandmass(c *gin.Context) {
	lm, err := rs.maps.Get(c.Param("id"))
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Суша", Data: lm})
}

// handleSetStatus меняет статус суши; рендер перезапрашивает геометрию
func (rs *RestServer) handleSetStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса",
		})
		return
	}
	status, err := landmass.ParseStatus(req.Status)
	if err != nil {
		rs.fail(c, err)
		return
	}

	lm, err := rs.maps.SetStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Статус изменён", Data: lm.Summary()})
}

func (rs *RestServer) handleMesh(c *gin.Context) {
	kind, err := app.ParseMeshKind(c.Query("kind"))
	if err != nil {
		rs.fail(c, err)
		return
	}

	data, err := rs.maps.Mesh(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: string(kind),
		Data:    json.RawMessage(data),
	})
}

// handleTileByID раскрывает упакованный id тайла
func (rs *RestServer) handleTileByID(c *gin.Context) {
	raw, err := strconv.ParseUint(c.Param("tileID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "tileID должен быть целым числом uint32",
		})
		return
	}
	rs.respondTile(c, hexgrid.TileID(raw))
}

// handleTileAt упаковывает координаты ?x=&z= и ищет тайл на карте
func (rs *RestServer) handleTileAt(c *gin.Context) {
	x, errX := strconv.Atoi(c.Query("x"))
	z, errZ := strconv.Atoi(c.Query("z"))
	if errX != nil || errZ != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Нужны целые параметры x и z",
		})
		return
	}

	id, err := hexgrid.Encode(x, z)
	if err != nil {
		rs.fail(c, err)
		return
	}
	rs.respondTile(c, id)
}

func (rs *RestServer) respondTile(c *gin.Context, id hexgrid.TileID) {
	coord := hexgrid.Decode(id)
	info := TileInfo{TileID: id, X: coord.X, Z: coord.Z}

	if ref, ok := rs.maps.Map().TileAt(id); ok {
		info.Land = true
		info.LandmassID = ref.LandmassID
		info.Index = ref.Index
		info.Level = ref.Level
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: id.String(), Data: info})
}

// fail переводит доменные ошибки в HTTP-статусы
func (rs *RestServer) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, landmass.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, landmass.ErrInvalidStatus),
		errors.Is(err, app.ErrUnknownMeshKind),
		errors.Is(err, hexgrid.ErrOutOfRange):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		rs.logger.Error("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		_ = c.Error(err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}
