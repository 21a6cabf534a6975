package models

import "time"

// Team is the membership container for an initiative's working team or a
// research group's member set.
type Team struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `json:"name" gorm:"size:200;index;not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`
}

func (Team) TableName() string { return "teams" }

// TeamMembership ties a person with a role to a team. The unique key is
// (team, person, role, start).
type TeamMembership struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TeamID    uint       `json:"team_id" gorm:"index:idx_membership_unique,unique;not null"`
	PersonID  uint       `json:"person_id" gorm:"index:idx_membership_unique,unique;not null"`
	RoleID    uint       `json:"role_id" gorm:"index:idx_membership_unique,unique;not null"`
	StartDate *time.Time `json:"start_date,omitempty" gorm:"index:idx_membership_unique,unique"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

func (TeamMembership) TableName() string { return "team_memberships" }

// InitiativeTeam links an initiative to one of its teams.
type InitiativeTeam struct {
	InitiativeID uint `json:"initiative_id" gorm:"primaryKey;autoIncrement:false"`
	TeamID       uint `json:"team_id" gorm:"primaryKey;autoIncrement:false"`
}

func (InitiativeTeam) TableName() string { return "initiative_teams" }
