package models

// SurveyStatus is the lifecycle state of a survey.
type SurveyStatus string

const (
	SurveyDraft  SurveyStatus = "draft"
	SurveyActive SurveyStatus = "active"
	SurveyClosed SurveyStatus = "closed"
)

// SurveyModel is a collection form designed by the owner and distributed to
// field surveyors.
type SurveyModel struct {
	Base
	OwnerID     string                 `json:"owner_id"    gorm:"index;not null"`
	Title       string                 `json:"title"       gorm:"not null"`
	Description string                 `json:"description" gorm:"type:text"`
	Status      SurveyStatus           `json:"status"      gorm:"index;default:'draft'"`
	Settings    map[string]interface{} `json:"settings"    gorm:"type:longtext;serializer:json"`
	Questions   []QuestionModel        `json:"questions,omitempty" gorm:"foreignKey:SurveyID"`
}

func (SurveyModel) TableName() string { return "surveys" }

// QuestionKind enumerates the supported form field types.
type QuestionKind string

const (
	QuestionText     QuestionKind = "text"
	QuestionNumber   QuestionKind = "number"
	QuestionSelect   QuestionKind = "select"
	QuestionLocation QuestionKind = "location"
	QuestionPhoto    QuestionKind = "photo"
)

// QuestionModel is one form field of a survey.
type QuestionModel struct {
	Base
	SurveyID string       `json:"survey_id" gorm:"index;not null"`
	Label    string       `json:"label"     gorm:"not null"`
	Kind     QuestionKind `json:"kind"      gorm:"not null;default:'text'"`
	Options  []string     `json:"options"   gorm:"type:longtext;serializer:json"`
	Required bool         `json:"required"`
	Order    int          `json:"order"     gorm:"column:sort_order;index;not null;default:0"`
}

func (QuestionModel) TableName() string { return "questions" }
