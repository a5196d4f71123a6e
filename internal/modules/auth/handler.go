package auth

import (
	"errors"
	"strings"

	"github.com/aquabrain57/procollekt/internal/middleware"
	jwtpkg "github.com/aquabrain57/procollekt/internal/pkg/jwt"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	sessionpkg "github.com/aquabrain57/procollekt/internal/pkg/session"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/login", h.login)
	a.POST("/register", h.register)
	a.POST("/logout", h.logout)
	a.GET("/check", middleware.OptionalAuth(h.svc.db), h.check)
	a.GET("/profile", authMW, h.profile)
	a.PATCH("/profile", authMW, h.updateProfile)

	a.GET("/sessions", authMW, h.listSessions)
	a.POST("/sessions/revoke", authMW, h.revokeSession)
	a.POST("/sessions/revoke-others", authMW, h.revokeOtherSessions)

	tok := a.Group("/tokens", authMW)
	tok.GET("", h.listTokens)
	tok.POST("", h.createToken)
	tok.DELETE("/:id", h.deleteToken)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, errUserNotFound) || errors.Is(err, errWrongPassword) {
			response.ForbiddenMsg(c, "invalid username or password")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token})
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		if errors.Is(err, errOwnerAlreadyExists) {
			response.BadRequest(c, "owner already registered")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"id": u.ID, "username": u.Username})
}

func (h *Handler) logout(c *gin.Context) {
	if token := middleware.NormalizeToken(c.GetHeader("Authorization")); token != "" {
		if claims, err := jwtpkg.Parse(token); err == nil {
			sessionID := strings.TrimSpace(claims.SessionID)
			userID := strings.TrimSpace(claims.UserID)
			if sessionID != "" && userID != "" {
				_ = sessionpkg.Revoke(h.svc.db, userID, sessionID)
			}
		}
	}
	response.OK(c, gin.H{"success": true})
}

// GET /auth/check reports whether the presented credential is valid without
// requiring one.
func (h *Handler) check(c *gin.Context) {
	response.OK(c, gin.H{"ok": middleware.IsAuthenticated(c)})
}

func (h *Handler) profile(c *gin.Context) {
	u, err := h.svc.Profile(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, u)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.UpdateProfile(middleware.CurrentUserID(c), &dto); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := sessionpkg.ListActive(h.svc.db, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, gin.H{
			"id":         s.ID,
			"ip":         s.IP,
			"ua":         s.UA,
			"expires_at": s.ExpiresAt,
			"created_at": s.CreatedAt,
			"current":    s.ID == middleware.CurrentSessionID(c),
		})
	}
	response.OK(c, items)
}

func (h *Handler) revokeSession(c *gin.Context) {
	var body struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := sessionpkg.Revoke(h.svc.db, middleware.CurrentUserID(c), body.ID); err != nil {
		response.NotFoundMsg(c, "session not found")
		return
	}
	response.OK(c, gin.H{"success": true})
}

func (h *Handler) revokeOtherSessions(c *gin.Context) {
	if err := sessionpkg.RevokeAllExcept(h.svc.db, middleware.CurrentUserID(c), middleware.CurrentSessionID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

func (h *Handler) listTokens(c *gin.Context) {
	tokens, err := h.svc.ListTokens(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]tokenResponse, len(tokens))
	for i, t := range tokens {
		items[i] = tokenResponse{
			ID: t.ID, Name: t.Name, Token: t.Token,
			Expired: t.ExpiredAt, Created: t.CreatedAt,
		}
	}
	response.OK(c, items)
}

func (h *Handler) createToken(c *gin.Context) {
	var dto CreateTokenDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.CreateToken(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, tokenResponse{
		ID: t.ID, Name: t.Name, Token: t.Token,
		Expired: t.ExpiredAt, Created: t.CreatedAt,
	})
}

func (h *Handler) deleteToken(c *gin.Context) {
	if err := h.svc.DeleteToken(middleware.CurrentUserID(c), c.Param("id")); err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.NoContent(c)
}
