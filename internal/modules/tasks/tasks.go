package tasks

import (
	"strings"

	"github.com/aquabrain57/procollekt/internal/pkg/pagination"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	"github.com/aquabrain57/procollekt/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the background-task audit trail. Failed durable
// writes from the location pipeline land here for the owner to inspect.
func RegisterRoutes(rg *gin.RouterGroup, svc *taskqueue.Service, authMW gin.HandlerFunc) {
	g := rg.Group("/tasks", authMW)

	g.GET("", func(c *gin.Context) {
		q := pagination.FromContext(c)

		var taskType *string
		if v := strings.TrimSpace(c.Query("type")); v != "" {
			taskType = &v
		}
		var status *taskqueue.TaskStatus
		if v := strings.TrimSpace(c.Query("status")); v != "" {
			s := taskqueue.TaskStatus(v)
			status = &s
		}

		items, total, err := svc.List(c.Request.Context(), q.Page, q.Size, taskType, status)
		if err != nil {
			response.InternalError(c, err)
			return
		}

		totalPage := int(total) / q.Size
		if int(total)%q.Size > 0 {
			totalPage++
		}
		response.Paged(c, items, response.Pagination{
			Total:       total,
			CurrentPage: q.Page,
			TotalPage:   totalPage,
			Size:        q.Size,
			HasNextPage: q.Page < totalPage,
		})
	})

	g.GET("/:id", func(c *gin.Context) {
		task, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.InternalError(c, err)
			return
		}
		if task == nil {
			response.NotFoundMsg(c, "task not found")
			return
		}
		response.OK(c, task)
	})

	g.DELETE("/:id", func(c *gin.Context) {
		if err := svc.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
			response.NotFoundMsg(c, "task not found")
			return
		}
		response.NoContent(c)
	})
}
