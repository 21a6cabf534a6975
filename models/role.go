package models

// Role names are stored in the source language; translation to English
// happens only at the canonical-export boundary.
const (
	RoleCoordinator = "Coordenador"
	RoleResearcher  = "Pesquisador"
	RoleStudent     = "Estudante"
	RoleLeader      = "Líder"
	RoleMember      = "Membro"
)

// Role is a function a person performs inside a team.
type Role struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

func (Role) TableName() string { return "roles" }
