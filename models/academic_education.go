package models

import "time"

// EducationType classifies a degree (Graduação, Mestrado, Doutorado...).
type EducationType struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

func (EducationType) TableName() string { return "education_types" }

// AcademicEducation records one degree of a researcher as declared in the
// curriculum source.
type AcademicEducation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ResearcherID    uint `json:"researcher_id" gorm:"index;not null"`
	EducationTypeID uint `json:"education_type_id" gorm:"index;not null"`
	InstitutionID   uint `json:"institution_id" gorm:"index"`

	Title       string `json:"title,omitempty"`
	StartYear   int    `json:"start_year,omitempty"`
	EndYear     *int   `json:"end_year,omitempty"` // nil while ongoing ("Atual")
	ThesisTitle string `json:"thesis_title,omitempty" gorm:"type:text"`

	AdvisorID   *uint `json:"advisor_id,omitempty"`
	CoAdvisorID *uint `json:"co_advisor_id,omitempty"`
}

func (AcademicEducation) TableName() string { return "academic_educations" }

// EducationKnowledgeArea links a degree to a knowledge area.
type EducationKnowledgeArea struct {
	AcademicEducationID uint `json:"academic_education_id" gorm:"primaryKey;autoIncrement:false"`
	KnowledgeAreaID     uint `json:"knowledge_area_id" gorm:"primaryKey;autoIncrement:false"`
}

func (EducationKnowledgeArea) TableName() string { return "education_knowledge_areas" }
