package survey

import "github.com/aquabrain57/procollekt/internal/models"

type CreateDTO struct {
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	Settings    map[string]interface{} `json:"settings"`
	Questions   []QuestionDTO          `json:"questions"`
}

type UpdateDTO struct {
	Title       *string                 `json:"title"`
	Description *string                 `json:"description"`
	Settings    *map[string]interface{} `json:"settings"`
}

type QuestionDTO struct {
	Label    string              `json:"label" binding:"required"`
	Kind     models.QuestionKind `json:"kind"  binding:"required,oneof=text number select location photo"`
	Options  []string            `json:"options"`
	Required bool                `json:"required"`
	Order    int                 `json:"order"`
}

type ListQuery struct {
	Status *models.SurveyStatus `form:"status" binding:"omitempty,oneof=draft active closed"`
}
