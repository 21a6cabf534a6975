package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"research-hub/models"
)

func TestTranslateRole(t *testing.T) {
	assert.Equal(t, "Coordinator", TranslateRole(models.RoleCoordinator))
	assert.Equal(t, "Researcher", TranslateRole(models.RoleResearcher))
	assert.Equal(t, "Student", TranslateRole(models.RoleStudent))
	assert.Equal(t, "Leader", TranslateRole(models.RoleLeader))
	assert.Equal(t, "Member", TranslateRole(models.RoleMember))
	assert.Equal(t, "Técnico", TranslateRole("Técnico"))
}

// seedExportFixture builds one project with its own team, a research group
// with a backing team, and one funded advisorship under the project.
func seedExportFixture(t *testing.T, db *gorm.DB) {
	t.Helper()

	org := models.Organization{Name: "Instituto Federal", ShortName: "IF"}
	require.NoError(t, db.Create(&org).Error)

	ana := models.Person{Name: "Ana Lima", Emails: "ana@example.edu"}
	bruno := models.Person{Name: "Bruno Souza"}
	carla := models.Person{Name: "Carla Mendes"}
	require.NoError(t, db.Create(&ana).Error)
	require.NoError(t, db.Create(&bruno).Error)
	require.NoError(t, db.Create(&carla).Error)

	coordinator := models.Role{Name: models.RoleCoordinator}
	leader := models.Role{Name: models.RoleLeader}
	require.NoError(t, db.Create(&coordinator).Error)
	require.NoError(t, db.Create(&leader).Error)

	projType := models.InitiativeType{Name: models.TypeResearchProject}
	advType := models.InitiativeType{Name: models.TypeAdvisorship}
	require.NoError(t, db.Create(&projType).Error)
	require.NoError(t, db.Create(&advType).Error)

	projectTeam := models.Team{Name: "Projeto Solo Vivo"}
	groupTeam := models.Team{Name: "Grupo Solo Vivo"}
	require.NoError(t, db.Create(&projectTeam).Error)
	require.NoError(t, db.Create(&groupTeam).Error)

	require.NoError(t, db.Create(&models.TeamMembership{TeamID: projectTeam.ID, PersonID: ana.ID, RoleID: coordinator.ID}).Error)
	require.NoError(t, db.Create(&models.TeamMembership{TeamID: groupTeam.ID, PersonID: bruno.ID, RoleID: leader.ID}).Error)

	group := models.ResearchGroup{Name: "Grupo Solo Vivo", OrganizationID: org.ID, TeamID: groupTeam.ID}
	require.NoError(t, db.Create(&group).Error)

	start := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	project := models.Initiative{
		Name:           "Projeto Solo Vivo",
		Status:         models.StatusActive,
		StartDate:      &start,
		TypeID:         projType.ID,
		OrganizationID: org.ID,
	}
	require.NoError(t, db.Create(&project).Error)
	require.NoError(t, db.Create(&models.InitiativeTeam{InitiativeID: project.ID, TeamID: projectTeam.ID}).Error)
	require.NoError(t, db.Create(&models.InitiativeTeam{InitiativeID: project.ID, TeamID: groupTeam.ID}).Error)

	fellowship := models.Fellowship{Name: "PIBIC", Value: 400}
	require.NoError(t, db.Create(&fellowship).Error)

	child := models.Initiative{
		Name:           "Orientacao Solo Vivo",
		Status:         models.StatusActive,
		TypeID:         advType.ID,
		OrganizationID: org.ID,
		ParentID:       &project.ID,
	}
	require.NoError(t, db.Create(&child).Error)
	require.NoError(t, db.Create(&models.Advisorship{
		InitiativeID: child.ID,
		SupervisorID: &ana.ID,
		StudentID:    &carla.ID,
		FellowshipID: &fellowship.ID,
	}).Error)
}

func readExport[T any](t *testing.T, dir, name string) []T {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	var out []T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestCanonicalExport(t *testing.T) {
	db := newTestDB(t)
	seedExportFixture(t, db)

	dir := t.TempDir()
	exporter := NewCanonicalExporter(newTestConfig(), db, zap.NewNop(), nil)
	require.NoError(t, exporter.Export(context.Background(), dir))

	for _, name := range []string{
		"organizations_canonical.json", "campuses_canonical.json",
		"knowledge_areas_canonical.json", "researchers_canonical.json",
		"initiatives_canonical.json", "initiative_types_canonical.json",
		"advisorships_canonical.json", "fellowships_canonical.json",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	initiatives := readExport[InitiativeExport](t, dir, "initiatives_canonical.json")
	require.Len(t, initiatives, 2)

	var project *InitiativeExport
	for i := range initiatives {
		if initiatives[i].Name == "Projeto Solo Vivo" {
			project = &initiatives[i]
		}
	}
	require.NotNil(t, project)
	assert.Equal(t, models.TypeResearchProject, project.Type)
	assert.Equal(t, "2023-03-01", project.StartDate)

	// The group-backing team surfaces as research_group; its members never
	// appear in the project team, and the role is translated.
	assert.Equal(t, "Grupo Solo Vivo", project.ResearchGroup)
	require.Len(t, project.Team, 1)
	assert.Equal(t, "Ana Lima", project.Team[0].Name)
	assert.Equal(t, []string{"Coordinator"}, project.Team[0].Roles)

	researchers := readExport[ResearcherExport](t, dir, "researchers_canonical.json")
	byName := make(map[string]ResearcherExport, len(researchers))
	for _, r := range researchers {
		byName[r.Name] = r
	}
	require.Len(t, byName["Ana Lima"].Initiatives, 1)
	assert.Equal(t, []string{"Coordinator"}, byName["Ana Lima"].Initiatives[0].Roles)
	assert.Empty(t, byName["Bruno Souza"].Initiatives)
	assert.Equal(t, []string{"Grupo Solo Vivo"}, byName["Bruno Souza"].ResearchGroups)

	buckets := readExport[AdvisorshipProjectExport](t, dir, "advisorships_canonical.json")
	require.Len(t, buckets, 1)
	assert.Equal(t, "Projeto Solo Vivo", buckets[0].ProjectName)
	assert.Equal(t, 1, buckets[0].TeamSize)
	require.Len(t, buckets[0].Advisorships, 1)

	child := buckets[0].Advisorships[0]
	assert.Equal(t, "Carla Mendes", child.Student)
	assert.Equal(t, "Ana Lima", child.Supervisor)
	assert.Equal(t, "PIBIC", child.Program)
	assert.Equal(t, 400.0, child.Value)
	assert.False(t, child.Volunteer)
}
