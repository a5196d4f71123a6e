package location

import (
	"github.com/aquabrain57/procollekt/internal/middleware"
	"github.com/aquabrain57/procollekt/internal/pkg/pagination"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
	mgr *Manager
}

func NewHandler(svc *Service, mgr *Manager) *Handler {
	return &Handler{svc: svc, mgr: mgr}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, deviceMW gin.HandlerFunc) {
	rg.POST("/locations", deviceMW, h.ingest)

	g := rg.Group("/badges", authMW)
	g.GET("/:id/locations", h.listSamples)
	g.GET("/:id/tracking", h.trackingStatus)
	g.POST("/:id/tracking/start", h.startTracking)
	g.POST("/:id/tracking/stop", h.stopTracking)
	g.POST("/:id/tracking/refresh", h.refreshTracking)
}

// POST /locations
func (h *Handler) ingest(c *gin.Context) {
	var dto IngestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid location payload")
		return
	}

	// A credential-authenticated device may only write samples for its own
	// badge; owner tokens may name any badge in the payload.
	badgeID := dto.BadgeID
	if bid := middleware.CurrentBadgeID(c); bid != "" {
		badgeID = bid
	}
	if badgeID == "" {
		response.BadRequest(c, "badge_id is required")
		return
	}

	badge, err := h.svc.BadgeByID(c.Request.Context(), badgeID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if badge == nil {
		response.NotFoundMsg(c, "badge not found")
		return
	}

	pos := Position{Latitude: dto.Latitude, Longitude: dto.Longitude}
	if dto.RecordedAt != nil {
		pos.RecordedAt = *dto.RecordedAt
	}

	// When a tracker holds a watch for this badge the sample flows through
	// its loop, which performs the write pair itself. Otherwise persist
	// directly.
	if h.mgr != nil && h.mgr.Push(badge.ID, pos) {
		response.OK(c, gin.H{"routed": true})
		return
	}
	sample := h.svc.Ingest(c.Request.Context(), badge, pos)
	if sample == nil {
		response.OK(c, gin.H{"routed": false, "stored": false})
		return
	}
	response.Created(c, toSampleRow(*sample))
}

// GET /badges/:id/locations
func (h *Handler) listSamples(c *gin.Context) {
	badge, err := h.svc.BadgeByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if badge == nil {
		response.NotFoundMsg(c, "badge not found")
		return
	}

	samples, err := h.svc.RecentSamples(c.Request.Context(), badge.ID, pagination.FromContext(c).Size)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	rows := make([]sampleRow, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, toSampleRow(s))
	}
	response.OK(c, rows)
}

// GET /badges/:id/tracking
func (h *Handler) trackingStatus(c *gin.Context) {
	badge, err := h.svc.BadgeByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if badge == nil {
		response.NotFoundMsg(c, "badge not found")
		return
	}
	t := h.mgr.Tracker(badge.ID, badge.SurveyorID)
	response.OK(c, t.Snapshot())
}

// POST /badges/:id/tracking/start
func (h *Handler) startTracking(c *gin.Context) {
	badge, err := h.svc.BadgeByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if badge == nil {
		response.NotFoundMsg(c, "badge not found")
		return
	}
	t := h.mgr.Tracker(badge.ID, badge.SurveyorID)
	t.StartTracking(h.mgr.Context())
	t.FetchLocations(c.Request.Context())
	response.OK(c, t.Snapshot())
}

// POST /badges/:id/tracking/stop
func (h *Handler) stopTracking(c *gin.Context) {
	badge, err := h.svc.BadgeByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if badge == nil {
		response.NotFoundMsg(c, "badge not found")
		return
	}
	t := h.mgr.Tracker(badge.ID, badge.SurveyorID)
	t.StopTracking()
	response.OK(c, t.Snapshot())
}

// POST /badges/:id/tracking/refresh
func (h *Handler) refreshTracking(c *gin.Context) {
	badge, err := h.svc.BadgeByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if badge == nil {
		response.NotFoundMsg(c, "badge not found")
		return
	}
	t := h.mgr.Tracker(badge.ID, badge.SurveyorID)
	t.FetchLocations(c.Request.Context())
	response.OK(c, t.Snapshot())
}
