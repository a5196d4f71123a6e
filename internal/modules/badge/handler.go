package badge

import (
	"errors"

	"github.com/aquabrain57/procollekt/internal/middleware"
	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/pkg/pagination"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, deviceMW gin.HandlerFunc) {
	g := rg.Group("/badges", authMW)
	g.GET("", h.list)
	g.POST("", h.issue)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/rotate", h.rotate)

	// Device-side resolution of a scanned badge QR code. The credential in
	// the path doubles as the caller's auth.
	rg.GET("/badges/resolve/:credential", deviceMW, h.resolve)
}

// GET /badges
func (h *Handler) list(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	badges, pag, err := h.svc.List(middleware.CurrentUserID(c), pagination.FromContext(c), lq)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	views := make([]badgeView, 0, len(badges))
	for _, b := range badges {
		views = append(views, toView(b))
	}
	response.Paged(c, views, pag)
}

// POST /badges
func (h *Handler) issue(c *gin.Context) {
	var dto IssueDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	badge, err := h.svc.Issue(middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, ErrDuplicateSurveyor) {
			response.Conflict(c, "surveyor already has a badge")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, toView(*badge))
}

// GET /badges/:id
func (h *Handler) get(c *gin.Context) {
	badge, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if badge == nil {
		response.NotFoundMsg(c, "badge not found")
		return
	}
	response.OK(c, toView(*badge))
}

// PATCH /badges/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.Update(c.Param("id"), &dto); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "badge not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

// DELETE /badges/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "badge not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// POST /badges/:id/rotate
func (h *Handler) rotate(c *gin.Context) {
	badge, err := h.svc.Rotate(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "badge not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, toView(*badge))
}

// GET /badges/resolve/:credential
func (h *Handler) resolve(c *gin.Context) {
	badge, err := h.svc.GetByCredential(c.Param("credential"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if badge == nil {
		response.NotFoundMsg(c, "badge not recognized")
		return
	}
	// Scanning devices only need the identity, not the location cache.
	response.OK(c, gin.H{
		"id":          badge.ID,
		"surveyor_id": badge.SurveyorID,
		"name":        badge.Name,
		"status":      models.BadgeStatus(badge.Status),
	})
}
