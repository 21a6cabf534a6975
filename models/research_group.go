package models

import "time"

// ResearchGroup is a named cohort of researchers tied to an organization
// and campus. Its membership lives in the backing team; the mirror URL
// points at the crawlable CNPq page.
type ResearchGroup struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name      string `json:"name" gorm:"index;not null"`
	ShortName string `json:"short_name,omitempty"`

	OrganizationID uint `json:"organization_id" gorm:"index"`
	CampusID       uint `json:"campus_id" gorm:"index"`

	TeamID uint `json:"team_id" gorm:"uniqueIndex;not null"`

	MirrorURL string     `json:"mirror_url,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

func (ResearchGroup) TableName() string { return "research_groups" }
