package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"research-hub/models"
	"research-hub/sources/cnpq"
)

// cnpqPlaceholder is the branding string some mirror pages return instead
// of the group's canonical name. It must never overwrite a stored name.
const cnpqPlaceholder = "CNPQ"

// alumniSuffix marks members found in the mirror's alumni section.
const alumniSuffix = " (Egresso)"

// CnpqSync reconciles locally-stored research groups with the external
// CNPq mirror: group name, members, leaders and research lines.
type CnpqSync struct {
	db  *gorm.DB
	log *zap.Logger

	fetcher  *cnpq.Fetcher
	entities *EntityManager
	resolver *IdentityResolver
	linker   *InitiativeLinker

	Synced int
	Failed int
}

// NewCnpqSync wires a sync driver over the shared collaborators.
func NewCnpqSync(db *gorm.DB, logger *zap.Logger, fetcher *cnpq.Fetcher, entities *EntityManager, resolver *IdentityResolver, linker *InitiativeLinker) *CnpqSync {
	return &CnpqSync{
		db:       db,
		log:      logger,
		fetcher:  fetcher,
		entities: entities,
		resolver: resolver,
		linker:   linker,
	}
}

// Run reconciles every group carrying a mirror URL, optionally filtered by
// campus name. A failing group does not abort the batch.
func (s *CnpqSync) Run(ctx context.Context, campusFilter string) error {
	if err := s.resolver.Preload(); err != nil {
		return err
	}

	query := s.db.Where("mirror_url <> ''")
	if campusFilter != "" {
		var campuses []models.Campus
		if err := s.db.Find(&campuses).Error; err != nil {
			return err
		}
		var ids []uint
		want := NormalizeName(campusFilter)
		for i := range campuses {
			if NormalizeName(campuses[i].Name) == want {
				ids = append(ids, campuses[i].ID)
			}
		}
		query = query.Where("campus_id IN ?", ids)
	}

	var groups []models.ResearchGroup
	if err := query.Find(&groups).Error; err != nil {
		return err
	}
	s.log.Info("Starting CNPq sync", zap.Int("groups", len(groups)))

	for i := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.syncGroup(ctx, &groups[i]); err != nil {
			s.Failed++
			s.log.Error("Group sync failed",
				zap.String("group", groups[i].Name), zap.Error(err))
			continue
		}
		s.Synced++
		groupsSyncedCounter.Inc()
	}

	s.log.Info("CNPq sync finished", zap.Int("synced", s.Synced), zap.Int("failed", s.Failed))
	return nil
}

// sourceMember is a de-duplicated mirror member with its assigned role.
type sourceMember struct {
	Name     string
	Role     string
	LattesID string
	Since    string
}

func (s *CnpqSync) syncGroup(ctx context.Context, group *models.ResearchGroup) error {
	log := s.log.With(zap.String("group", group.Name))

	payload, err := s.fetcher.FetchGroup(ctx, group.MirrorURL)
	if err != nil {
		return err
	}

	s.maybeRename(group, payload.Identificacao.NomeDoGrupo)
	s.maybeSetStartDate(group, payload.Identificacao.AnoFormacao)

	members := collectMembers(payload)
	log.Info("Mirror payload extracted", zap.Int("members", len(members)))

	// Batch-level transaction; per-member work runs in a nested
	// savepoint so one bad member does not poison the group.
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range members {
			member := m
			err := tx.Transaction(func(inner *gorm.DB) error {
				return s.syncMember(inner, group, member)
			})
			if err != nil {
				log.Warn("Skipping mirror member",
					zap.String("name", member.Name),
					zap.String("role", member.Role),
					zap.Error(err))
			}
		}
		for _, line := range payload.LinhasDePesquisa.Linhas {
			if areaID := s.entities.EnsureKnowledgeArea(line.Nome); areaID != 0 {
				s.linker.insertIgnoring(&models.GroupKnowledgeArea{ResearchGroupID: group.ID, KnowledgeAreaID: areaID})
			}
		}
		return nil
	})
}

// maybeRename updates the stored group name when the mirror carries a
// different canonical one. The rename runs as a bare column update so the
// group's relationships are left untouched.
func (s *CnpqSync) maybeRename(group *models.ResearchGroup, mirrorName string) {
	mirrorName = strings.TrimSpace(mirrorName)
	if mirrorName == "" || strings.EqualFold(mirrorName, cnpqPlaceholder) {
		return
	}
	if mirrorName == group.Name {
		return
	}
	err := s.db.Model(&models.ResearchGroup{}).
		Where("id = ?", group.ID).
		Update("name", mirrorName).Error
	if err != nil {
		s.log.Warn("Failed to rename group",
			zap.String("old", group.Name), zap.String("new", mirrorName), zap.Error(err))
		return
	}
	s.log.Info("Group renamed from mirror",
		zap.String("old", group.Name), zap.String("new", mirrorName))
	group.Name = mirrorName
}

// maybeSetStartDate fills the group's start date from the mirror's
// formation year. A stored date is never overwritten and an unparsable
// year is ignored.
func (s *CnpqSync) maybeSetStartDate(group *models.ResearchGroup, formationYear string) {
	if group.StartDate != nil {
		return
	}
	year, err := strconv.Atoi(strings.TrimSpace(formationYear))
	if err != nil || year < 1900 || year > time.Now().Year()+1 {
		return
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	err = s.db.Model(&models.ResearchGroup{}).
		Where("id = ?", group.ID).
		Update("start_date", start).Error
	if err != nil {
		s.log.Warn("Failed to set group start date",
			zap.String("group", group.Name), zap.Error(err))
		return
	}
	group.StartDate = &start
}

// collectMembers flattens the four role sections plus the leaders into a
// list de-duplicated by (normalized name, role).
func collectMembers(payload *cnpq.GroupPayload) []sourceMember {
	var out []sourceMember
	seen := make(map[string]bool)
	add := func(items []cnpq.Member, role string) {
		for _, item := range items {
			name := strings.TrimSpace(item.Nome)
			if name == "" {
				continue
			}
			key := NormalizeName(name) + "|" + role
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, sourceMember{
				Name:     name,
				Role:     role,
				LattesID: strings.TrimSpace(item.IDLattes),
				Since:    item.DataInclusao,
			})
		}
	}
	add(payload.RecursosHumanos.Pesquisadores, models.RoleResearcher)
	add(payload.RecursosHumanos.Estudantes, models.RoleStudent)
	add(payload.RecursosHumanos.Tecnicos, "Técnico")
	add(payload.RecursosHumanos.Egressos, models.RoleResearcher+alumniSuffix)
	add(payload.Identificacao.LideresDoGrupo, models.RoleLeader)
	return out
}

// syncMember resolves the person, ensures the role and adds the
// membership when it is not already associated.
func (s *CnpqSync) syncMember(tx *gorm.DB, group *models.ResearchGroup, m sourceMember) error {
	person := s.resolver.Resolve(m.Name, "", true)
	if person == nil && m.LattesID != "" {
		// Create collided with an existing row; fall back to the
		// curriculum identifier.
		var byLattes models.Person
		if err := tx.Where("lattes_id = ?", m.LattesID).First(&byLattes).Error; err == nil {
			person = &byLattes
		}
	}
	if person == nil {
		return gorm.ErrRecordNotFound
	}
	if m.LattesID != "" && person.LattesID == "" {
		person.LattesID = m.LattesID
		if err := tx.Save(person).Error; err != nil {
			return err
		}
	}

	role := s.entities.EnsureRole(m.Role)
	if role == nil {
		return gorm.ErrRecordNotFound
	}

	var count int64
	if err := tx.Model(&models.TeamMembership{}).
		Where("team_id = ? AND person_id = ? AND role_id = ?", group.TeamID, person.ID, role.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	since := ParseCnpqDate(m.Since)
	membership := models.TeamMembership{
		TeamID:    group.TeamID,
		PersonID:  person.ID,
		RoleID:    role.ID,
		StartDate: &since,
	}
	return tx.Create(&membership).Error
}
