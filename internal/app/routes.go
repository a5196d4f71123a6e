package app

import (
	"context"

	"github.com/aquabrain57/procollekt/internal/middleware"
	"github.com/aquabrain57/procollekt/internal/modules/auth"
	"github.com/aquabrain57/procollekt/internal/modules/badge"
	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"github.com/aquabrain57/procollekt/internal/modules/location"
	"github.com/aquabrain57/procollekt/internal/modules/presence"
	"github.com/aquabrain57/procollekt/internal/modules/submission"
	"github.com/aquabrain57/procollekt/internal/modules/survey"
	"github.com/aquabrain57/procollekt/internal/modules/system"
	"github.com/aquabrain57/procollekt/internal/modules/tasks"
	pkgredis "github.com/aquabrain57/procollekt/internal/pkg/redis"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	"github.com/aquabrain57/procollekt/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(ctx context.Context, rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)
	deviceMW := middleware.DeviceAuth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw()))
	r.Use(middleware.Idempotence(rc.Raw()))

	taskSvc := taskqueue.NewService(rc)

	// Realtime gateway at the root, outside the versioned API.
	root := r.Group("")
	gateway.RegisterRoutes(root, a.hub)

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))

	auth.NewHandler(auth.NewService(db)).RegisterRoutes(api, authMW)
	survey.NewHandler(survey.NewService(db)).RegisterRoutes(api, authMW, deviceMW)
	badge.NewHandler(badge.NewService(db)).RegisterRoutes(api, authMW, deviceMW)
	submission.NewHandler(submission.NewService(db, a.hub)).RegisterRoutes(api, authMW, deviceMW)

	presenceSvc := presence.NewService(db, a.cfg.Tracking.FreshnessWindow)
	a.monitors = presence.NewRegistry(ctx, presenceSvc, a.hub, a.logger)
	presence.NewHandler(db, presenceSvc, a.hub, a.monitors).RegisterRoutes(api, authMW)

	locationSvc := location.NewService(db, a.hub, taskSvc, a.logger)
	a.trackers = location.NewManager(ctx, locationSvc, a.hub, a.logger, a.cfg.Tracking)
	location.NewHandler(locationSvc, a.trackers).RegisterRoutes(api, authMW, deviceMW)

	system.RegisterRoutes(api, db, rc, a.sched, a.hub, authMW)
	tasks.RegisterRoutes(api, taskSvc, authMW)
}
