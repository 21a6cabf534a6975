package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"research-hub/config"
	"research-hub/models"
	"research-hub/storage"
)

// roleTranslations maps internal (source-language) role names onto the
// canonical English names used in exports. Unknown roles pass through.
var roleTranslations = map[string]string{
	models.RoleCoordinator: "Coordinator",
	models.RoleResearcher:  "Researcher",
	models.RoleStudent:     "Student",
	models.RoleLeader:      "Leader",
	models.RoleMember:      "Member",
}

// TranslateRole maps an internal role name to its export form.
func TranslateRole(name string) string {
	if t, ok := roleTranslations[name]; ok {
		return t
	}
	return name
}

// Canonical export shapes. Dates are ISO-8601 strings; enums export as
// their string values.

type OrganizationExport struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
}

type CampusExport struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	OrganizationID uint   `json:"organization_id"`
}

type KnowledgeAreaExport struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type InitiativeTypeExport struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type FellowshipExport struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Description string  `json:"description,omitempty"`
}

// TeamMemberExport is one person on an initiative's team with the union
// of their roles.
type TeamMemberExport struct {
	PersonID uint     `json:"person_id"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
}

type InitiativeExport struct {
	ID             uint               `json:"id"`
	Name           string             `json:"name"`
	Status         string             `json:"status"`
	StartDate      string             `json:"start_date,omitempty"`
	EndDate        string             `json:"end_date,omitempty"`
	Description    string             `json:"description,omitempty"`
	Type           string             `json:"type"`
	Organization   string             `json:"organization,omitempty"`
	ParentID       *uint              `json:"parent_id,omitempty"`
	Team           []TeamMemberExport `json:"team"`
	ResearchGroup  string             `json:"research_group,omitempty"`
	KnowledgeAreas []string           `json:"knowledge_areas"`
}

// ResearcherInitiativeRef is one initiative a researcher takes part in.
type ResearcherInitiativeRef struct {
	ID    uint     `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type ResearcherExport struct {
	ID             uint                      `json:"id"`
	Name           string                    `json:"name"`
	LattesID       string                    `json:"lattes_id,omitempty"`
	Emails         []string                  `json:"emails,omitempty"`
	Initiatives    []ResearcherInitiativeRef `json:"initiatives"`
	ResearchGroups []string                  `json:"research_groups"`
	KnowledgeAreas []string                  `json:"knowledge_areas"`
}

// AdvisorshipChildExport is one supervised engagement under a parent
// project.
type AdvisorshipChildExport struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Student    string  `json:"student,omitempty"`
	Supervisor string  `json:"supervisor,omitempty"`
	Program    string  `json:"program,omitempty"`
	Value      float64 `json:"value"`
	Volunteer  bool    `json:"volunteer"`
}

// AdvisorshipProjectExport groups the children of one parent project. The
// bucket without a parent uses a zero project id.
type AdvisorshipProjectExport struct {
	ProjectID    uint                     `json:"project_id"`
	ProjectName  string                   `json:"project_name"`
	Status       string                   `json:"status,omitempty"`
	TeamSize     int                      `json:"team_size"`
	Advisorships []AdvisorshipChildExport `json:"advisorships"`
}

// noParentBucket labels advisorships without a parent project.
const noParentBucket = "Sem Projeto"

// CanonicalExporter reads the consolidated store, joins across entities
// and writes one JSON snapshot per entity kind plus the marts' inputs.
type CanonicalExporter struct {
	db  *gorm.DB
	log *zap.Logger
	cfg *config.Config

	uploader *storage.Uploader // nil when S3 is disabled
}

// NewCanonicalExporter creates an exporter. The uploader may be nil.
func NewCanonicalExporter(cfg *config.Config, db *gorm.DB, logger *zap.Logger, uploader *storage.Uploader) *CanonicalExporter {
	return &CanonicalExporter{db: db, log: logger, cfg: cfg, uploader: uploader}
}

// Export writes every canonical file into outDir.
func (e *CanonicalExporter) Export(ctx context.Context, outDir string) error {
	if outDir == "" {
		outDir = e.cfg.OutputDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	snap, err := e.loadSnapshot()
	if err != nil {
		return err
	}

	files := map[string]any{
		"organizations_canonical.json":    snap.organizations(),
		"campuses_canonical.json":         snap.campuses(),
		"knowledge_areas_canonical.json":  snap.knowledgeAreas(),
		"initiative_types_canonical.json": snap.initiativeTypes(),
		"fellowships_canonical.json":      snap.fellowshipExports(),
		"initiatives_canonical.json":      snap.initiativeExports(),
		"researchers_canonical.json":      snap.researcherExports(),
		"advisorships_canonical.json":     snap.advisorshipExports(),
	}

	for name, payload := range files {
		if err := e.writeJSON(ctx, outDir, name, payload); err != nil {
			return err
		}
	}
	e.log.Info("Canonical export finished", zap.String("dir", outDir), zap.Int("files", len(files)))
	return nil
}

func (e *CanonicalExporter) writeJSON(ctx context.Context, outDir, name string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	path := filepath.Join(outDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if e.uploader != nil {
		if link, err := e.uploader.Upload(ctx, name, data); err != nil {
			e.log.Warn("Failed to upload export artifact", zap.String("file", name), zap.Error(err))
		} else {
			e.log.Info("Export artifact uploaded", zap.String("link", link))
		}
	}
	return nil
}

// snapshot is the fully-loaded store image the exporter joins over.
type snapshot struct {
	orgs        []models.Organization
	campusRows  []models.Campus
	areas       []models.KnowledgeArea
	types       []models.InitiativeType
	fellowships []models.Fellowship
	people      []models.Person
	roles       []models.Role
	initiatives []models.Initiative
	advRecords  []models.Advisorship
	teams       []models.Team
	memberships []models.TeamMembership
	groups      []models.ResearchGroup

	initTeams  []models.InitiativeTeam
	initAreas  []models.InitiativeKnowledgeArea
	groupAreas []models.GroupKnowledgeArea
	persAreas  []models.ResearcherKnowledgeArea
}

func (e *CanonicalExporter) loadSnapshot() (*snapshot, error) {
	s := &snapshot{}
	for _, step := range []struct {
		name string
		dest any
	}{
		{"organizations", &s.orgs},
		{"campuses", &s.campusRows},
		{"knowledge areas", &s.areas},
		{"initiative types", &s.types},
		{"fellowships", &s.fellowships},
		{"people", &s.people},
		{"roles", &s.roles},
		{"initiatives", &s.initiatives},
		{"advisorships", &s.advRecords},
		{"teams", &s.teams},
		{"memberships", &s.memberships},
		{"research groups", &s.groups},
		{"initiative teams", &s.initTeams},
		{"initiative areas", &s.initAreas},
		{"group areas", &s.groupAreas},
		{"researcher areas", &s.persAreas},
	} {
		if err := e.db.Find(step.dest).Error; err != nil {
			return nil, fmt.Errorf("loading %s: %w", step.name, err)
		}
	}
	return s, nil
}

func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func (s *snapshot) organizations() []OrganizationExport {
	out := make([]OrganizationExport, 0, len(s.orgs))
	for _, o := range s.orgs {
		out = append(out, OrganizationExport{ID: o.ID, Name: o.Name, ShortName: o.ShortName})
	}
	return out
}

func (s *snapshot) campuses() []CampusExport {
	out := make([]CampusExport, 0, len(s.campusRows))
	for _, c := range s.campusRows {
		out = append(out, CampusExport{ID: c.ID, Name: c.Name, OrganizationID: c.OrganizationID})
	}
	return out
}

func (s *snapshot) knowledgeAreas() []KnowledgeAreaExport {
	out := make([]KnowledgeAreaExport, 0, len(s.areas))
	for _, a := range s.areas {
		out = append(out, KnowledgeAreaExport{ID: a.ID, Name: a.Name})
	}
	return out
}

func (s *snapshot) initiativeTypes() []InitiativeTypeExport {
	out := make([]InitiativeTypeExport, 0, len(s.types))
	for _, t := range s.types {
		out = append(out, InitiativeTypeExport{ID: t.ID, Name: t.Name})
	}
	return out
}

func (s *snapshot) fellowshipExports() []FellowshipExport {
	out := make([]FellowshipExport, 0, len(s.fellowships))
	for _, f := range s.fellowships {
		out = append(out, FellowshipExport{ID: f.ID, Name: f.Name, Value: f.Value, Description: f.Description})
	}
	return out
}

// groupTeamIDs returns the set of teams that back a research group. Those
// teams surface as an initiative's research_group, never as its team.
func (s *snapshot) groupTeamIDs() map[uint]*models.ResearchGroup {
	out := make(map[uint]*models.ResearchGroup, len(s.groups))
	for i := range s.groups {
		out[s.groups[i].TeamID] = &s.groups[i]
	}
	return out
}

func (s *snapshot) personByID() map[uint]*models.Person {
	out := make(map[uint]*models.Person, len(s.people))
	for i := range s.people {
		out[s.people[i].ID] = &s.people[i]
	}
	return out
}

func (s *snapshot) roleByID() map[uint]string {
	out := make(map[uint]string, len(s.roles))
	for _, r := range s.roles {
		out[r.ID] = r.Name
	}
	return out
}

func (s *snapshot) membersByTeam() map[uint][]models.TeamMembership {
	out := make(map[uint][]models.TeamMembership)
	for _, m := range s.memberships {
		out[m.TeamID] = append(out[m.TeamID], m)
	}
	return out
}

func (s *snapshot) initiativeExports() []InitiativeExport {
	typeByID := make(map[uint]string, len(s.types))
	for _, t := range s.types {
		typeByID[t.ID] = t.Name
	}
	orgByID := make(map[uint]string, len(s.orgs))
	for _, o := range s.orgs {
		orgByID[o.ID] = o.Name
	}
	areaByID := make(map[uint]string, len(s.areas))
	for _, a := range s.areas {
		areaByID[a.ID] = a.Name
	}
	groupTeams := s.groupTeamIDs()
	people := s.personByID()
	roles := s.roleByID()
	members := s.membersByTeam()

	teamsByInit := make(map[uint][]uint)
	for _, link := range s.initTeams {
		teamsByInit[link.InitiativeID] = append(teamsByInit[link.InitiativeID], link.TeamID)
	}
	areasByInit := make(map[uint][]string)
	for _, link := range s.initAreas {
		if name, ok := areaByID[link.KnowledgeAreaID]; ok {
			areasByInit[link.InitiativeID] = append(areasByInit[link.InitiativeID], name)
		}
	}

	out := make([]InitiativeExport, 0, len(s.initiatives))
	for _, init := range s.initiatives {
		exp := InitiativeExport{
			ID:             init.ID,
			Name:           init.Name,
			Status:         init.Status,
			StartDate:      isoDate(init.StartDate),
			EndDate:        isoDate(init.EndDate),
			Description:    init.Description,
			Type:           typeByID[init.TypeID],
			Organization:   orgByID[init.OrganizationID],
			ParentID:       init.ParentID,
			Team:           []TeamMemberExport{},
			KnowledgeAreas: areasByInit[init.ID],
		}
		if exp.KnowledgeAreas == nil {
			exp.KnowledgeAreas = []string{}
		}

		// Union roles per person across the initiative's own teams. A
		// research group's backing team is exposed only through the
		// research_group field.
		byPerson := make(map[uint]map[string]bool)
		var order []uint
		for _, teamID := range teamsByInit[init.ID] {
			if group, isGroup := groupTeams[teamID]; isGroup {
				exp.ResearchGroup = group.Name
				continue
			}
			for _, m := range members[teamID] {
				if _, ok := byPerson[m.PersonID]; !ok {
					byPerson[m.PersonID] = make(map[string]bool)
					order = append(order, m.PersonID)
				}
				byPerson[m.PersonID][TranslateRole(roles[m.RoleID])] = true
			}
		}
		for _, personID := range order {
			person := people[personID]
			if person == nil {
				continue
			}
			var roleNames []string
			for name := range byPerson[personID] {
				roleNames = append(roleNames, name)
			}
			sort.Strings(roleNames)
			exp.Team = append(exp.Team, TeamMemberExport{PersonID: personID, Name: person.Name, Roles: roleNames})
		}
		out = append(out, exp)
	}
	return out
}

func (s *snapshot) researcherExports() []ResearcherExport {
	groupTeams := s.groupTeamIDs()
	roles := s.roleByID()
	members := s.membersByTeam()
	areaByID := make(map[uint]string, len(s.areas))
	for _, a := range s.areas {
		areaByID[a.ID] = a.Name
	}

	initByTeam := make(map[uint][]*models.Initiative)
	initByID := make(map[uint]*models.Initiative, len(s.initiatives))
	for i := range s.initiatives {
		initByID[s.initiatives[i].ID] = &s.initiatives[i]
	}
	for _, link := range s.initTeams {
		if init := initByID[link.InitiativeID]; init != nil {
			initByTeam[link.TeamID] = append(initByTeam[link.TeamID], init)
		}
	}

	type refKey struct {
		personID     uint
		initiativeID uint
	}
	initRoles := make(map[refKey]map[string]bool)
	groupsByPerson := make(map[uint]map[string]bool)

	for teamID, teamMembers := range members {
		if group, isGroup := groupTeams[teamID]; isGroup {
			for _, m := range teamMembers {
				if groupsByPerson[m.PersonID] == nil {
					groupsByPerson[m.PersonID] = make(map[string]bool)
				}
				groupsByPerson[m.PersonID][group.Name] = true
			}
			continue
		}
		for _, init := range initByTeam[teamID] {
			for _, m := range teamMembers {
				key := refKey{personID: m.PersonID, initiativeID: init.ID}
				if initRoles[key] == nil {
					initRoles[key] = make(map[string]bool)
				}
				initRoles[key][TranslateRole(roles[m.RoleID])] = true
			}
		}
	}

	areasByPerson := make(map[uint][]string)
	for _, link := range s.persAreas {
		if name, ok := areaByID[link.KnowledgeAreaID]; ok {
			areasByPerson[link.PersonID] = append(areasByPerson[link.PersonID], name)
		}
	}

	out := make([]ResearcherExport, 0, len(s.people))
	for _, p := range s.people {
		exp := ResearcherExport{
			ID:             p.ID,
			Name:           p.Name,
			LattesID:       p.LattesID,
			Emails:         p.EmailList(),
			Initiatives:    []ResearcherInitiativeRef{},
			ResearchGroups: []string{},
			KnowledgeAreas: areasByPerson[p.ID],
		}
		if exp.KnowledgeAreas == nil {
			exp.KnowledgeAreas = []string{}
		}
		for key, roleSet := range initRoles {
			if key.personID != p.ID {
				continue
			}
			init := initByID[key.initiativeID]
			if init == nil {
				continue
			}
			var roleNames []string
			for name := range roleSet {
				roleNames = append(roleNames, name)
			}
			sort.Strings(roleNames)
			exp.Initiatives = append(exp.Initiatives, ResearcherInitiativeRef{ID: init.ID, Name: init.Name, Roles: roleNames})
		}
		sort.Slice(exp.Initiatives, func(i, j int) bool { return exp.Initiatives[i].ID < exp.Initiatives[j].ID })
		for name := range groupsByPerson[p.ID] {
			exp.ResearchGroups = append(exp.ResearchGroups, name)
		}
		sort.Strings(exp.ResearchGroups)
		out = append(out, exp)
	}
	return out
}

func (s *snapshot) advisorshipExports() []AdvisorshipProjectExport {
	people := s.personByID()
	initByID := make(map[uint]*models.Initiative, len(s.initiatives))
	for i := range s.initiatives {
		initByID[s.initiatives[i].ID] = &s.initiatives[i]
	}
	fellowshipByID := make(map[uint]*models.Fellowship, len(s.fellowships))
	for i := range s.fellowships {
		fellowshipByID[s.fellowships[i].ID] = &s.fellowships[i]
	}
	members := s.membersByTeam()
	teamsByInit := make(map[uint][]uint)
	for _, link := range s.initTeams {
		teamsByInit[link.InitiativeID] = append(teamsByInit[link.InitiativeID], link.TeamID)
	}
	groupTeams := s.groupTeamIDs()

	buckets := make(map[uint]*AdvisorshipProjectExport)
	var order []uint

	for _, adv := range s.advRecords {
		init := initByID[adv.InitiativeID]
		if init == nil {
			continue
		}
		child := AdvisorshipChildExport{
			ID:     init.ID,
			Name:   init.Name,
			Status: init.Status,
		}
		if adv.StudentID != nil {
			if p := people[*adv.StudentID]; p != nil {
				child.Student = p.Name
			}
		}
		if adv.SupervisorID != nil {
			if p := people[*adv.SupervisorID]; p != nil {
				child.Supervisor = p.Name
			}
		}
		child.Volunteer = true
		if adv.FellowshipID != nil {
			if f := fellowshipByID[*adv.FellowshipID]; f != nil {
				child.Program = f.Name
				child.Value = f.Value
				child.Volunteer = f.Value == 0
			}
		}

		parentID := uint(0)
		if init.ParentID != nil {
			parentID = *init.ParentID
		}
		bucket, ok := buckets[parentID]
		if !ok {
			bucket = &AdvisorshipProjectExport{ProjectID: parentID, ProjectName: noParentBucket}
			if parent := initByID[parentID]; parent != nil {
				bucket.ProjectName = parent.Name
				bucket.Status = parent.Status
				seen := make(map[uint]bool)
				for _, teamID := range teamsByInit[parentID] {
					if _, isGroup := groupTeams[teamID]; isGroup {
						continue
					}
					for _, m := range members[teamID] {
						seen[m.PersonID] = true
					}
				}
				bucket.TeamSize = len(seen)
			}
			buckets[parentID] = bucket
			order = append(order, parentID)
		}
		bucket.Advisorships = append(bucket.Advisorships, child)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]AdvisorshipProjectExport, 0, len(order))
	for _, id := range order {
		out = append(out, *buckets[id])
	}
	return out
}
