package models

import "time"

// KnowledgeArea is a research topic derived from keywords, CNPq research
// lines or curriculum metadata. Unique up to accent-insensitive uppercase.
type KnowledgeArea struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

func (KnowledgeArea) TableName() string { return "knowledge_areas" }

// InitiativeKnowledgeArea links an initiative to a knowledge area.
type InitiativeKnowledgeArea struct {
	InitiativeID    uint `json:"initiative_id" gorm:"primaryKey;autoIncrement:false"`
	KnowledgeAreaID uint `json:"knowledge_area_id" gorm:"primaryKey;autoIncrement:false"`
}

func (InitiativeKnowledgeArea) TableName() string { return "initiative_knowledge_areas" }

// GroupKnowledgeArea links a research group to a knowledge area.
type GroupKnowledgeArea struct {
	ResearchGroupID uint `json:"research_group_id" gorm:"primaryKey;autoIncrement:false"`
	KnowledgeAreaID uint `json:"knowledge_area_id" gorm:"primaryKey;autoIncrement:false"`
}

func (GroupKnowledgeArea) TableName() string { return "research_group_knowledge_areas" }

// ResearcherKnowledgeArea links a person to a knowledge area.
type ResearcherKnowledgeArea struct {
	PersonID        uint `json:"person_id" gorm:"primaryKey;autoIncrement:false"`
	KnowledgeAreaID uint `json:"knowledge_area_id" gorm:"primaryKey;autoIncrement:false"`
}

func (ResearcherKnowledgeArea) TableName() string { return "researcher_knowledge_areas" }
