package models

import (
	"time"

	"gorm.io/datatypes"
)

// Canonical initiative type names. They are created on demand.
const (
	TypeResearchProject    = "Research Project"
	TypeExtensionProject   = "Extension Project"
	TypeDevelopmentProject = "Development Project"
	TypeAdvisorship        = "Advisorship"
)

// Initiative statuses after source normalization.
const (
	StatusActive    = "Active"
	StatusConcluded = "Concluded"
)

// InitiativeType classifies an initiative (research, extension,
// development, advisorship).
type InitiativeType struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

func (InitiativeType) TableName() string { return "initiative_types" }

// Initiative is the base entity for every research, extension or
// development activity. Upserts are keyed by the full name.
type Initiative struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string     `json:"name" gorm:"uniqueIndex;size:500;not null"`
	Status      string     `json:"status" gorm:"index"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Description string     `json:"description,omitempty" gorm:"type:text"`

	TypeID         uint  `json:"type_id" gorm:"index;not null"`
	OrganizationID uint  `json:"organization_id" gorm:"index"`
	ParentID       *uint `json:"parent_id,omitempty" gorm:"index"`

	// Free-form attributes carried over from the mapping strategy
	// (approved budget, funding agency, source campus and the like).
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
}

func (Initiative) TableName() string { return "initiatives" }

// Advisorship extends Initiative with the supervised-student attributes.
// It shares the initiative's primary key.
type Advisorship struct {
	InitiativeID uint  `json:"initiative_id" gorm:"primaryKey;autoIncrement:false"`
	SupervisorID *uint `json:"supervisor_id,omitempty" gorm:"index"`
	StudentID    *uint `json:"student_id,omitempty" gorm:"index"`
	FellowshipID *uint `json:"fellowship_id,omitempty" gorm:"index"`
}

func (Advisorship) TableName() string { return "advisorships" }

// Fellowship is a named funding program with a nominal monthly value.
// Keyed by the upper-cased program name.
type Fellowship struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string  `json:"name" gorm:"uniqueIndex;not null"`
	Value       float64 `json:"value"`
	Description string  `json:"description,omitempty" gorm:"type:text"`
}

func (Fellowship) TableName() string { return "fellowships" }
