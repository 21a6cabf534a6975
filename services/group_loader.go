package services

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"research-hub/models"
)

// leaderRe captures "Name (email)" items in the free-text leaders cell.
var leaderRe = regexp.MustCompile(`^(.*?)\s*\(([^)]*)\)\s*$`)

// GroupLoader ingests the research-group spreadsheet: one row per group
// with its campus, knowledge area, mirror URL and free-text leader list.
type GroupLoader struct {
	db  *gorm.DB
	log *zap.Logger

	entities *EntityManager
	resolver *IdentityResolver
	linker   *InitiativeLinker
	teams    *TeamSynchronizer

	Counters LoaderCounters
}

// NewGroupLoader wires a group loader over the shared collaborators.
func NewGroupLoader(db *gorm.DB, logger *zap.Logger, entities *EntityManager, resolver *IdentityResolver, linker *InitiativeLinker, teams *TeamSynchronizer) *GroupLoader {
	return &GroupLoader{
		db:       db,
		log:      logger,
		entities: entities,
		resolver: resolver,
		linker:   linker,
		teams:    teams,
	}
}

// Run loads every group row.
func (gl *GroupLoader) Run(ctx context.Context, rows []map[string]string) error {
	if err := gl.resolver.Preload(); err != nil {
		return err
	}
	if err := gl.linker.PreloadGroups(); err != nil {
		return err
	}
	gl.log.Info("Starting group load", zap.Int("rows", len(rows)))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		gl.loadRow(row)
	}

	gl.log.Info("Group load finished",
		zap.Int("created", gl.Counters.Created),
		zap.Int("updated", gl.Counters.Updated),
		zap.Int("skipped", gl.Counters.Skipped))
	return nil
}

func (gl *GroupLoader) loadRow(row map[string]string) {
	name := pick(row, "Nome")
	if name == "" {
		gl.Counters.Skipped++
		rowsSkippedCounter.Inc()
		gl.log.Warn("Skipping group row without a name")
		return
	}
	log := gl.log.With(zap.String("group", name))

	orgID := gl.entities.EnsureDefaultOrganization()
	campusID := gl.entities.EnsureCampus(pick(row, "Unidade"), orgID)
	if campusID == 0 {
		gl.Counters.Skipped++
		rowsSkippedCounter.Inc()
		log.Warn("Skipping group: campus unresolved", zap.String("campus", pick(row, "Unidade")))
		return
	}

	key := NormalizeName(name)
	group := gl.linker.groupsByName[key]
	if group == nil {
		team := models.Team{Name: Truncate(name, maxTeamNameLen)}
		if err := gl.db.Create(&team).Error; err != nil {
			gl.Counters.Skipped++
			log.Warn("Failed to create group team", zap.Error(err))
			return
		}
		group = &models.ResearchGroup{
			Name:           name,
			ShortName:      pick(row, "Sigla"),
			OrganizationID: orgID,
			CampusID:       campusID,
			TeamID:         team.ID,
			MirrorURL:      pick(row, "Column1"),
		}
		if err := gl.db.Create(group).Error; err != nil {
			gl.Counters.Skipped++
			log.Warn("Failed to create research group", zap.Error(err))
			return
		}
		gl.linker.groupsByName[key] = group
		gl.Counters.Created++
	} else {
		group.ShortName = pick(row, "Sigla")
		if mirror := pick(row, "Column1"); mirror != "" {
			group.MirrorURL = mirror
		}
		group.OrganizationID = orgID
		group.CampusID = campusID
		if err := gl.db.Save(group).Error; err != nil {
			log.Warn("Failed to update research group", zap.Error(err))
		}
		gl.Counters.Updated++
	}

	if areaID := gl.entities.EnsureKnowledgeArea(pick(row, "AreaConhecimento")); areaID != 0 {
		gl.linker.insertIgnoring(&models.GroupKnowledgeArea{ResearchGroupID: group.ID, KnowledgeAreaID: areaID})
	}

	// Leaders come as free text; resolution is non-strict because the
	// cell carries no authoritative identifier.
	for _, leader := range ParseLeaders(pick(row, "Lideres")) {
		person := gl.resolver.Resolve(leader.Name, leader.Email, false)
		if person == nil {
			continue
		}
		role := gl.entities.EnsureRole(models.RoleLeader)
		if role == nil {
			continue
		}
		var count int64
		gl.db.Model(&models.TeamMembership{}).
			Where("team_id = ? AND person_id = ? AND role_id = ?", group.TeamID, person.ID, role.ID).
			Count(&count)
		if count > 0 {
			continue
		}
		membership := models.TeamMembership{TeamID: group.TeamID, PersonID: person.ID, RoleID: role.ID}
		if err := gl.db.Create(&membership).Error; err != nil {
			log.Warn("Failed to add group leader", zap.String("leader", leader.Name), zap.Error(err))
		}
	}
}

// Leader is one parsed entry of the free-text leaders cell.
type Leader struct {
	Name  string
	Email string
}

// ParseLeaders splits a "Name (email)" list separated by ';' or ','.
func ParseLeaders(s string) []Leader {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	var out []Leader
	for _, item := range strings.Split(s, sep) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if m := leaderRe.FindStringSubmatch(item); m != nil {
			out = append(out, Leader{Name: strings.TrimSpace(m[1]), Email: strings.TrimSpace(m[2])})
		} else {
			out = append(out, Leader{Name: item})
		}
	}
	return out
}
