package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appRxn "github.com/turtacn/ARChemistry/internal/application/reaction"
	"github.com/turtacn/ARChemistry/internal/infrastructure/codec"
	"github.com/turtacn/ARChemistry/internal/rendering"
)

// Graph response formats selected by ?format=.
const (
	FormatStructure = "structure"
	FormatScene     = "scene"
	FormatSnapshot  = "snapshot"
)

// GraphHandler serves stored reactant and product graphs.
type GraphHandler struct {
	svc appRxn.Service
}

// NewGraphHandler creates a GraphHandler.
func NewGraphHandler(svc appRxn.Service) *GraphHandler {
	return &GraphHandler{svc: svc}
}

// RegisterRoutes registers the graph routes on rg.
func (h *GraphHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/graphs", h.List)
	rg.GET("/graphs/:key", h.Get)
	rg.DELETE("/graphs/:key", h.Delete)
}

// GraphQuery holds the query parameters of GET /graphs/:key.
type GraphQuery struct {
	Format     string  `form:"format" binding:"omitempty,oneof=structure scene snapshot"`
	Scale      float64 `form:"scale" binding:"omitempty,gt=0,lte=100"`
	BondRadius float64 `form:"bond_radius" binding:"omitempty,gt=0,lte=10"`
}

// ListQuery holds the query parameters of GET /graphs.
type ListQuery struct {
	Prefix string `form:"prefix" binding:"omitempty,max=64"`
}

// GraphResponse is the structure view of a stored graph.
type GraphResponse struct {
	Key       string               `json:"key"`
	Formula   string               `json:"formula"`
	Structure *codec.StructureData `json:"structure"`
	Summary   []string             `json:"summary"`
}

// ListResponse is the body of GET /graphs.
type ListResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// Get handles GET /graphs/:key.
func (h *GraphHandler) Get(c *gin.Context) {
	var q GraphQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeAppError(c, bindError(err))
		return
	}
	key := c.Param("key")
	ctx := c.Request.Context()

	if q.Format == FormatScene {
		opts := rendering.DefaultOptions()
		if q.Scale > 0 {
			opts.Scale = q.Scale
		}
		if q.BondRadius > 0 {
			opts.BondRadius = q.BondRadius
		}
		scene, err := h.svc.Scene(ctx, key, opts)
		if err != nil {
			writeAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, scene)
		return
	}

	g, err := h.svc.LoadGraph(ctx, key)
	if err != nil {
		writeAppError(c, err)
		return
	}
	if q.Format == FormatSnapshot {
		c.Data(http.StatusOK, "application/octet-stream", codec.Encode(g))
		return
	}
	c.JSON(http.StatusOK, GraphResponse{
		Key:       key,
		Formula:   g.Formula(),
		Structure: codec.FromGraph(g),
		Summary:   rendering.Describe(g),
	})
}

// List handles GET /graphs?prefix=.
func (h *GraphHandler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeAppError(c, bindError(err))
		return
	}
	keys, err := h.svc.ListGraphs(c.Request.Context(), q.Prefix)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Keys: keys, Count: len(keys)})
}

// Delete handles DELETE /graphs/:key.
func (h *GraphHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteGraph(c.Request.Context(), c.Param("key")); err != nil {
		writeAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
