package submission

import (
	"errors"

	"github.com/aquabrain57/procollekt/internal/middleware"
	"github.com/aquabrain57/procollekt/internal/pkg/pagination"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, deviceMW gin.HandlerFunc) {
	g := rg.Group("/submissions")
	g.GET("", authMW, h.list)
	g.POST("", deviceMW, h.create)
	g.GET("/:id", authMW, h.get)

	rg.GET("/surveys/:id/stats", authMW, h.surveyStats)
}

// POST /submissions
func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// A credential-authenticated device submits as its own badge.
	if bid := middleware.CurrentBadgeID(c); bid != "" {
		dto.BadgeID = bid
	}
	if dto.BadgeID == "" {
		response.BadRequest(c, "badge_id is required")
		return
	}
	sub, err := h.svc.Create(&dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownSurvey), errors.Is(err, ErrUnknownBadge):
			response.NotFoundMsg(c, err.Error())
		case errors.Is(err, ErrSurveyNotActive), errors.Is(err, ErrBadgeNotActive),
			errors.Is(err, ErrPartialGeotag):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrMissingAnswer):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, sub)
}

// GET /submissions
func (h *Handler) list(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	subs, pag, err := h.svc.List(pagination.FromContext(c), lq)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, subs, pag)
}

// GET /submissions/:id
func (h *Handler) get(c *gin.Context) {
	sub, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if sub == nil {
		response.NotFoundMsg(c, "submission not found")
		return
	}
	response.OK(c, sub)
}

// GET /surveys/:id/stats
func (h *Handler) surveyStats(c *gin.Context) {
	stats, err := h.svc.StatsForSurvey(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, stats)
}
