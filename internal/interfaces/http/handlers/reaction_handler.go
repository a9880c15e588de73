package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appRxn "github.com/turtacn/ARChemistry/internal/application/reaction"
	domainRxn "github.com/turtacn/ARChemistry/internal/domain/reaction"
	"github.com/turtacn/ARChemistry/internal/infrastructure/codec"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/internal/infrastructure/recognition"
	"github.com/turtacn/ARChemistry/internal/interfaces/http/middleware"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// DefaultMaxImageSize bounds the uploaded image for POST /process_image.
const DefaultMaxImageSize int64 = 10 << 20

// ReactionHandler serves the reagent catalog and the reaction endpoints.
type ReactionHandler struct {
	svc          appRxn.Service
	logger       logging.Logger
	maxImageSize int64
}

// NewReactionHandler creates a ReactionHandler.  A non-positive maxImageSize
// selects DefaultMaxImageSize.
func NewReactionHandler(svc appRxn.Service, logger logging.Logger, maxImageSize int64) *ReactionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if maxImageSize <= 0 {
		maxImageSize = DefaultMaxImageSize
	}
	return &ReactionHandler{svc: svc, logger: logger.Named("reaction_handler"), maxImageSize: maxImageSize}
}

// RegisterRoutes registers the reaction routes on rg.
func (h *ReactionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reagents", h.ListReagents)
	rg.POST("/reactions", h.React)
	rg.POST("/process_image", h.ProcessImage)
}

// ReactRequest is the body of POST /reactions.
type ReactRequest struct {
	Reactant    *codec.StructureData `json:"reactant" binding:"required"`
	ReagentName string               `json:"reagent_name" binding:"required,max=128"`
	Persist     bool                 `json:"persist"`
	Strict      bool                 `json:"strict"`
}

// ImageForm holds the non-file fields of POST /process_image.
type ImageForm struct {
	ReagentName string `form:"reagent_name" binding:"required,max=128"`
	Persist     bool   `form:"persist"`
	Strict      bool   `form:"strict"`
}

// ReactionResponse is returned by both reaction endpoints.  Reactant and
// Product use the structure payload, so the body is also a valid
// recognition-backend response.
type ReactionResponse struct {
	RequestID     string               `json:"request_id"`
	Reactant      *codec.StructureData `json:"reactant"`
	Product       *codec.StructureData `json:"product"`
	RemoteProduct *codec.StructureData `json:"remote_product,omitempty"`
	ReactantKey   string               `json:"reactant_key,omitempty"`
	ProductKey    string               `json:"product_key,omitempty"`
	Report        domainRxn.Report     `json:"report"`
	CacheHit      bool                 `json:"cache_hit"`
}

// ReagentsResponse is the body of GET /reagents.
type ReagentsResponse struct {
	Reagents []domainRxn.Reagent `json:"reagents"`
}

// ListReagents handles GET /reagents.
func (h *ReactionHandler) ListReagents(c *gin.Context) {
	c.JSON(http.StatusOK, ReagentsResponse{Reagents: h.svc.Reagents(c.Request.Context())})
}

// React handles POST /reactions.
func (h *ReactionHandler) React(c *gin.Context) {
	var req ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAppError(c, bindError(err))
		return
	}

	reactant, err := codec.ToGraph(req.Reactant)
	if err != nil {
		writeAppError(c, asValidation(err))
		return
	}

	res, err := h.svc.React(c.Request.Context(), &appRxn.ReactInput{
		Reactant:    reactant,
		ReagentName: req.ReagentName,
		Persist:     req.Persist,
		Strict:      req.Strict,
		RequestID:   c.GetString(middleware.RequestIDKey),
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReactionResponse(res))
}

// ProcessImage handles POST /process_image, a multipart upload with an
// "image" file part and a reagent_name field.
func (h *ReactionHandler) ProcessImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageSize)

	var form ImageForm
	if err := c.ShouldBind(&form); err != nil {
		writeAppError(c, bindError(err))
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		writeAppError(c, errors.New(errors.ErrCodeValidation, "invalid request").WithDetail("image file part is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeAppError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "unreadable image upload"))
		return
	}
	defer f.Close()

	res, err := h.svc.ProcessImage(c.Request.Context(), &appRxn.ProcessImageInput{
		Image:       recognition.Image{Filename: fh.Filename, Data: f},
		ReagentName: form.ReagentName,
		Persist:     form.Persist,
		Strict:      form.Strict,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReactionResponse(res))
}

func toReactionResponse(res *appRxn.ReactResult) ReactionResponse {
	resp := ReactionResponse{
		RequestID:   res.RequestID,
		Reactant:    codec.FromGraph(res.Reactant),
		Product:     codec.FromGraph(res.Product),
		ReactantKey: res.ReactantKey,
		ProductKey:  res.ProductKey,
		Report:      res.Report,
		CacheHit:    res.CacheHit,
	}
	if res.RemoteProduct != nil {
		resp.RemoteProduct = codec.FromGraph(res.RemoteProduct)
	}
	return resp
}

// asValidation reclassifies a structure decoding failure in a request body as
// a client validation error.
func asValidation(err error) error {
	if errors.IsCode(err, errors.ErrCodeRecognitionIncomplete) {
		return errors.Wrap(err, errors.ErrCodeValidation, "reactant structure is incomplete")
	}
	return err
}
