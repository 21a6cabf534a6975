package services

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"research-hub/models"
)

// MemberSpec is one desired membership: a resolved person, a role name and
// an optional start date.
type MemberSpec struct {
	Person *models.Person
	Role   string
	Start  *time.Time
}

// TeamSynchronizer converges the memberships of a team to exactly the
// source-provided set. Per-member failures are logged and do not abort the
// sync.
type TeamSynchronizer struct {
	db       *gorm.DB
	log      *zap.Logger
	entities *EntityManager
}

// NewTeamSynchronizer wires a synchronizer over the shared entity manager.
func NewTeamSynchronizer(db *gorm.DB, logger *zap.Logger, entities *EntityManager) *TeamSynchronizer {
	return &TeamSynchronizer{db: db, log: logger, entities: entities}
}

type memberKey struct {
	personID uint
	roleID   uint
}

// SynchronizeMembers makes the team's (person, role) pairs equal the
// desired set. Entries with a nil person or an unresolvable role are
// dropped. Additions preserve start dates; a second run with the same
// input is a no-op.
func (s *TeamSynchronizer) SynchronizeMembers(teamID uint, desired []MemberSpec) {
	log := s.log.With(zap.Uint("team_id", teamID))

	want := make(map[memberKey]*time.Time, len(desired))
	for _, spec := range desired {
		if spec.Person == nil {
			continue
		}
		role := s.entities.EnsureRole(spec.Role)
		if role == nil {
			continue
		}
		key := memberKey{personID: spec.Person.ID, roleID: role.ID}
		if _, dup := want[key]; !dup {
			want[key] = spec.Start
		}
	}

	var current []models.TeamMembership
	if err := s.db.Where("team_id = ?", teamID).Find(&current).Error; err != nil {
		log.Error("Failed to list team members", zap.Error(err))
		return
	}

	for key, start := range want {
		present := false
		for i := range current {
			if current[i].PersonID == key.personID && current[i].RoleID == key.roleID && SameDay(current[i].StartDate, start) {
				present = true
				break
			}
		}
		if present {
			continue
		}
		membership := models.TeamMembership{
			TeamID:    teamID,
			PersonID:  key.personID,
			RoleID:    key.roleID,
			StartDate: start,
		}
		if err := s.db.Create(&membership).Error; err != nil {
			log.Warn("Failed to add team member",
				zap.Uint("person_id", key.personID),
				zap.Uint("role_id", key.roleID),
				zap.Error(err))
		}
	}

	// Remove memberships whose (person, role) pair is no longer desired.
	var after []models.TeamMembership
	if err := s.db.Where("team_id = ?", teamID).Find(&after).Error; err != nil {
		log.Error("Failed to re-list team members", zap.Error(err))
		return
	}
	for i := range after {
		key := memberKey{personID: after[i].PersonID, roleID: after[i].RoleID}
		if _, ok := want[key]; ok {
			continue
		}
		if err := s.db.Delete(&models.TeamMembership{}, after[i].ID).Error; err != nil {
			log.Warn("Failed to remove obsolete team member",
				zap.Uint("person_id", after[i].PersonID),
				zap.Uint("role_id", after[i].RoleID),
				zap.Error(err))
		}
	}
}
