package presence

import (
	"errors"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db  *gorm.DB
	svc *Service
	hub *gateway.Hub
	reg *Registry
}

func NewHandler(db *gorm.DB, svc *Service, hub *gateway.Hub, reg *Registry) *Handler {
	return &Handler{db: db, svc: svc, hub: hub, reg: reg}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/surveyors", authMW)
	g.GET("/:badgeID/status", h.status)
}

// GET /surveyors/:badgeID/status
//
// The first request for a badge starts its live monitor; afterwards the
// endpoint reads the continuously maintained derived view instead of
// rebuilding it from scratch.
func (h *Handler) status(c *gin.Context) {
	var badge models.SurveyorBadgeModel
	if err := h.db.First(&badge, "id = ?", c.Param("badgeID")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "badge not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	if h.reg != nil {
		if m := h.reg.Monitor(badge.ID, badge.SurveyorID, badge.LastLocationAt); m != nil {
			m.RefreshFreshness()
			response.OK(c, h.svc.viewOf(&badge, m.State(), time.Now()))
			return
		}
	}

	memberCount := 0
	if h.hub != nil {
		memberCount = h.hub.MemberCount(gateway.SurveyorRoom(badge.SurveyorID))
	}
	response.OK(c, h.svc.StatusFor(&badge, memberCount))
}
