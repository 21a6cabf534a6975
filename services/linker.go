package services

import (
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"research-hub/models"
)

// maxTeamNameLen matches the teams.name column size.
const maxTeamNameLen = 200

// InitiativeLinker ties a persisted initiative to its team, its research
// group and the knowledge areas derived from keywords.
type InitiativeLinker struct {
	db       *gorm.DB
	log      *zap.Logger
	entities *EntityManager
	resolver *IdentityResolver
	teams    *TeamSynchronizer

	groupsByName map[string]*models.ResearchGroup // normalized name -> group
}

// NewInitiativeLinker creates a linker with an empty group cache.
func NewInitiativeLinker(db *gorm.DB, logger *zap.Logger, entities *EntityManager, resolver *IdentityResolver, teams *TeamSynchronizer) *InitiativeLinker {
	return &InitiativeLinker{
		db:           db,
		log:          logger,
		entities:     entities,
		resolver:     resolver,
		teams:        teams,
		groupsByName: make(map[string]*models.ResearchGroup),
	}
}

// PreloadGroups fills the group cache from the store.
func (l *InitiativeLinker) PreloadGroups() error {
	var groups []models.ResearchGroup
	if err := l.db.Find(&groups).Error; err != nil {
		return err
	}
	for i := range groups {
		key := NormalizeName(groups[i].Name)
		if _, seen := l.groupsByName[key]; !seen {
			l.groupsByName[key] = &groups[i]
		}
	}
	return nil
}

// CreateInitiativeTeam ensures a team named after the initiative, converges
// its membership to the row's coordinator, researchers and students, and
// links the team to the initiative.
func (l *InitiativeLinker) CreateInitiativeTeam(init *models.Initiative, data *ProjectData) {
	teamName := Truncate(init.Name, maxTeamNameLen)

	var team models.Team
	err := l.db.Where("name = ?", teamName).First(&team).Error
	if err == gorm.ErrRecordNotFound {
		team = models.Team{Name: teamName, Description: data.Description}
		err = l.db.Create(&team).Error
	}
	if err != nil {
		l.log.Warn("Failed to ensure initiative team",
			zap.String("team", teamName), zap.Error(err))
		return
	}

	desired := l.desiredMembers(data)
	l.teams.SynchronizeMembers(team.ID, desired)
	l.linkInitiativeTeam(init.ID, team.ID)
}

// desiredMembers builds the membership list for a mapped row. Researchers
// and students are matched strictly; a person that cannot be resolved is
// skipped.
func (l *InitiativeLinker) desiredMembers(data *ProjectData) []MemberSpec {
	var desired []MemberSpec
	if coordinator := l.resolver.Resolve(data.CoordinatorName, data.CoordinatorEmail, true); coordinator != nil {
		desired = append(desired, MemberSpec{Person: coordinator, Role: models.RoleCoordinator, Start: data.StartDate})
	}
	for _, name := range data.ResearcherNames {
		if p := l.resolver.Resolve(name, "", true); p != nil {
			desired = append(desired, MemberSpec{Person: p, Role: models.RoleResearcher})
		}
	}
	for i, name := range data.StudentNames {
		email := ""
		if i < len(data.StudentEmails) {
			email = data.StudentEmails[i]
		}
		if p := l.resolver.Resolve(name, email, true); p != nil {
			desired = append(desired, MemberSpec{Person: p, Role: models.RoleStudent})
		}
	}
	return desired
}

// LinkResearchGroup attaches the initiative to the research group named in
// the row's metadata, creating the group (and its backing team) on first
// sight. When the campus cannot be resolved the link is skipped.
func (l *InitiativeLinker) LinkResearchGroup(init *models.Initiative, data *ProjectData) *models.ResearchGroup {
	name := strings.TrimSpace(data.ResearchGroupName)
	if name == "" {
		return nil
	}
	key := NormalizeName(name)

	group, ok := l.groupsByName[key]
	if !ok {
		orgID := l.entities.EnsureDefaultOrganization()
		campusID := l.entities.EnsureCampus(data.CampusName, orgID)
		if campusID == 0 {
			l.log.Warn("Skipping research-group link: campus unresolved",
				zap.String("group", name), zap.String("campus", data.CampusName))
			return nil
		}

		team := models.Team{Name: Truncate(name, maxTeamNameLen), Description: data.Description}
		if err := l.db.Create(&team).Error; err != nil {
			l.log.Warn("Failed to create group team", zap.String("group", name), zap.Error(err))
			return nil
		}
		group = &models.ResearchGroup{
			Name:           name,
			OrganizationID: orgID,
			CampusID:       campusID,
			TeamID:         team.ID,
		}
		if err := l.db.Create(group).Error; err != nil {
			l.log.Warn("Failed to create research group", zap.String("group", name), zap.Error(err))
			return nil
		}
		l.groupsByName[key] = group

		// Seed the brand-new group's membership from the row.
		seed := l.desiredMembers(data)
		for i := range seed {
			if seed[i].Role == models.RoleCoordinator {
				seed[i].Role = models.RoleResearcher
			}
		}
		l.teams.SynchronizeMembers(group.TeamID, seed)
	}

	l.linkInitiativeTeam(init.ID, group.TeamID)
	return group
}

// AssociateKeywordAreas parses the keywords cell (split on ';' when
// present, else ',') and links each resulting area to the initiative, the
// group and the coordinating researcher.
func (l *InitiativeLinker) AssociateKeywordAreas(init *models.Initiative, data *ProjectData, group *models.ResearchGroup) {
	keywords := strings.TrimSpace(data.Keywords)
	if keywords == "" {
		return
	}
	sep := ","
	if strings.Contains(keywords, ";") {
		sep = ";"
	}

	var coordinator *models.Person
	if data.CoordinatorName != "" {
		coordinator = l.resolver.Resolve(data.CoordinatorName, data.CoordinatorEmail, true)
	}

	for _, kw := range strings.Split(keywords, sep) {
		areaID := l.entities.EnsureKnowledgeArea(kw)
		if areaID == 0 {
			continue
		}
		l.insertIgnoring(&models.InitiativeKnowledgeArea{InitiativeID: init.ID, KnowledgeAreaID: areaID})
		if group != nil {
			l.insertIgnoring(&models.GroupKnowledgeArea{ResearchGroupID: group.ID, KnowledgeAreaID: areaID})
		}
		if coordinator != nil {
			l.insertIgnoring(&models.ResearcherKnowledgeArea{PersonID: coordinator.ID, KnowledgeAreaID: areaID})
		}
	}
}

// linkInitiativeTeam inserts the initiative/team edge if absent.
func (l *InitiativeLinker) linkInitiativeTeam(initiativeID, teamID uint) {
	l.insertIgnoring(&models.InitiativeTeam{InitiativeID: initiativeID, TeamID: teamID})
}

// insertIgnoring creates a link-table row, ignoring duplicate-key
// conflicts so every edge insert stays idempotent.
func (l *InitiativeLinker) insertIgnoring(value any) {
	if err := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(value).Error; err != nil {
		l.log.Warn("Failed to insert link row", zap.Error(err))
	}
}
