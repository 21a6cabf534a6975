package models

import "time"

// Organization is an institution (university, federal institute, funding
// agency) referenced by initiatives, groups and academic degrees.
type Organization struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name      string `json:"name" gorm:"uniqueIndex;not null"`
	ShortName string `json:"short_name,omitempty"`
}

func (Organization) TableName() string { return "organizations" }

// Campus is a physical unit of an organization. Rows without a campus fall
// back to the sentinel "Reitoria".
type Campus struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name           string `json:"name" gorm:"index;not null"`
	OrganizationID uint   `json:"organization_id" gorm:"index;not null"`
}

func (Campus) TableName() string { return "campuses" }
