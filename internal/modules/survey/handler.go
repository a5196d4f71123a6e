package survey

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
	g := rg.Group("/surveys", authMW)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/activate", h.activate)
	g.POST("/:id/close", h.close)
	g.POST("/:id/questions", h.addQuestion)
	g.DELETE("/:id/questions/:qid", h.deleteQuestion)

	// Fill-in clients fetch the definition with a badge credential.
	rg.GET("/surveys/:id/definition", deviceMW, h.definition)
}

// GET /surveys/:id/definition
func (h *Handler) definition(c *gin.Context) {
	survey, err := h.svc.GetActive(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if survey == nil {
		response.NotFoundMsg(c, "survey not found")
		return
	}
	response.OK(c, survey)
}

// GET /surveys
func (h *Handler) list(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	surveys, pag, err := h.svc.List(middleware.CurrentUserID(c), pagination.FromContext(c), lq)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, surveys, pag)
}

// POST /surveys
func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	survey, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, survey)
}

// GET /surveys/:id
func (h *Handler) get(c *gin.Context) {
	survey, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if survey == nil {
		response.NotFoundMsg(c, "survey not found")
		return
	}
	response.OK(c, survey)
}

// PATCH /surveys/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.Update(c.Param("id"), &dto); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "survey not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

// DELETE /surveys/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "survey not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// POST /surveys/:id/activate
func (h *Handler) activate(c *gin.Context) {
	h.setStatus(c, models.SurveyActive)
}

// POST /surveys/:id/close
func (h *Handler) close(c *gin.Context) {
	h.setStatus(c, models.SurveyClosed)
}

func (h *Handler) setStatus(c *gin.Context, status models.SurveyStatus) {
	if err := h.svc.SetStatus(c.Param("id"), status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "survey not found")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, gin.H{"status": status})
}

// POST /surveys/:id/questions
func (h *Handler) addQuestion(c *gin.Context) {
	var dto QuestionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	question, err := h.svc.AddQuestion(c.Param("id"), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, question)
}

// DELETE /surveys/:id/questions/:qid
func (h *Handler) deleteQuestion(c *gin.Context) {
	if err := h.svc.DeleteQuestion(c.Param("id"), c.Param("qid")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "question not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
