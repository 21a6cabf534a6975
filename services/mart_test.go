package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"research-hub/models"
)

// scenarioBuckets models two parent projects: P1 with one active funded
// advisorship and one concluded volunteer, P2 with one active funded one.
func scenarioBuckets() []AdvisorshipProjectExport {
	return []AdvisorshipProjectExport{
		{
			ProjectID:   1,
			ProjectName: "Agroecologia no Semiarido",
			Status:      models.StatusActive,
			TeamSize:    4,
			Advisorships: []AdvisorshipChildExport{
				{ID: 10, Name: "Orientacao A1", Status: models.StatusActive, Supervisor: "Ana Lima", Program: "PIBITI", Value: 700, Volunteer: false},
				{ID: 11, Name: "Orientacao A2", Status: models.StatusConcluded, Supervisor: "Ana Lima", Program: "VOLUNTÁRIO", Value: 0, Volunteer: true},
			},
		},
		{
			ProjectID:   2,
			ProjectName: "Bioinsumos para Caatinga",
			Status:      models.StatusActive,
			TeamSize:    2,
			Advisorships: []AdvisorshipChildExport{
				{ID: 12, Name: "Orientacao B1", Status: models.StatusActive, Supervisor: "Bruno Souza", Program: "PIBITI", Value: 700, Volunteer: false},
			},
		},
	}
}

func TestComputeAdvisorshipAnalytics(t *testing.T) {
	got := ComputeAdvisorshipAnalytics(scenarioBuckets())

	assert.Equal(t, 2, got.TotalProjects)
	assert.Equal(t, 3, got.TotalAdvisorships)
	assert.Equal(t, 2, got.TotalActiveAdvisorships)
	assert.Equal(t, 1400.0, got.TotalMonthlyInvestment)
	assert.Equal(t, 1, got.VolunteerCount)
	assert.Equal(t, 1.5, got.ParticipationRatio)
	assert.Equal(t, 33.33, got.VolunteerPercentage)

	assert.Equal(t, map[string]int{"PIBITI": 2, "VOLUNTÁRIO": 1}, got.ProgramDistribution)
	assert.Equal(t, map[string]float64{"PIBITI": 1400, "VOLUNTÁRIO": 0}, got.InvestmentPerProgram)

	require.NotEmpty(t, got.TopSupervisors)
	assert.Equal(t, "Ana Lima", got.TopSupervisors[0].Name)
	assert.Equal(t, 2, got.TopSupervisors[0].Advisorships)

	require.NotEmpty(t, got.TopProjects)
	assert.Equal(t, "Agroecologia no Semiarido", got.TopProjects[0].Name)
	assert.Equal(t, 700.0, got.TopProjects[0].Investment)

	require.Len(t, got.Projects, 2)
	p1 := got.Projects[0]
	assert.Equal(t, 2, p1.TotalStudents)
	assert.Equal(t, 1, p1.ActiveStudents)
	assert.Equal(t, 700.0, p1.MonthlyInvestment)
	assert.Equal(t, "PIBITI", p1.MainProgram)
	assert.Equal(t, 4, p1.TeamSize)
}

func TestComputeAdvisorshipAnalyticsDeterministic(t *testing.T) {
	first := ComputeAdvisorshipAnalytics(scenarioBuckets())
	second := ComputeAdvisorshipAnalytics(scenarioBuckets())

	assert.Equal(t, first.TotalMonthlyInvestment, second.TotalMonthlyInvestment)
	assert.Equal(t, first.ProgramDistribution, second.ProgramDistribution)
	assert.Equal(t, first.TopSupervisors, second.TopSupervisors)
	assert.Equal(t, first.TopProjects, second.TopProjects)
}

func TestComputeAdvisorshipAnalyticsEmpty(t *testing.T) {
	got := ComputeAdvisorshipAnalytics(nil)
	assert.Equal(t, 0, got.TotalProjects)
	assert.Equal(t, 0.0, got.ParticipationRatio)
	assert.Equal(t, 0.0, got.VolunteerPercentage)
}

func TestComputeAdvisorshipAnalyticsNoParentBucket(t *testing.T) {
	buckets := []AdvisorshipProjectExport{
		{
			ProjectID:   0,
			ProjectName: "Sem Projeto",
			Advisorships: []AdvisorshipChildExport{
				{ID: 20, Name: "Orientacao Solta", Status: models.StatusActive, Volunteer: true},
			},
		},
	}
	got := ComputeAdvisorshipAnalytics(buckets)

	// Orphan advisorships count, but the bucket is not a project.
	assert.Equal(t, 0, got.TotalProjects)
	assert.Equal(t, 1, got.TotalAdvisorships)
	assert.Equal(t, 0.0, got.ParticipationRatio)
	assert.Empty(t, got.Projects)
}

func TestBuildAdvisorshipMartFromFile(t *testing.T) {
	dir := t.TempDir()
	raw, err := json.MarshalIndent(scenarioBuckets(), "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "advisorships_canonical.json"), raw, 0o644))

	builder := NewMartBuilder(newTestConfig(), nil, zap.NewNop(), nil)
	require.NoError(t, builder.BuildAdvisorshipMart(context.Background(), dir))

	data, err := os.ReadFile(filepath.Join(dir, "advisorship_analytics.json"))
	require.NoError(t, err)

	var analytics AdvisorshipAnalytics
	require.NoError(t, json.Unmarshal(data, &analytics))
	assert.Equal(t, 2, analytics.TotalProjects)
	assert.Equal(t, 1400.0, analytics.TotalMonthlyInvestment)
	assert.Equal(t, 33.33, analytics.VolunteerPercentage)
}

func TestBuildKnowledgeAreasMart(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()

	area := models.KnowledgeArea{Name: "Agroecologia"}
	require.NoError(t, db.Create(&area).Error)
	require.NoError(t, db.Create(&models.InitiativeKnowledgeArea{InitiativeID: 1, KnowledgeAreaID: area.ID}).Error)
	require.NoError(t, db.Create(&models.InitiativeKnowledgeArea{InitiativeID: 2, KnowledgeAreaID: area.ID}).Error)
	require.NoError(t, db.Create(&models.ResearcherKnowledgeArea{PersonID: 1, KnowledgeAreaID: area.ID}).Error)

	builder := NewMartBuilder(newTestConfig(), db, zap.NewNop(), nil)
	require.NoError(t, builder.BuildKnowledgeAreasMart(context.Background(), dir))

	data, err := os.ReadFile(filepath.Join(dir, "knowledge_areas_mart.json"))
	require.NoError(t, err)

	var mart KnowledgeAreasMart
	require.NoError(t, json.Unmarshal(data, &mart))
	assert.Equal(t, 1, mart.TotalAreas)
	require.Len(t, mart.Areas, 1)
	assert.Equal(t, 2, mart.Areas[0].Initiatives)
	assert.Equal(t, 0, mart.Areas[0].Groups)
	assert.Equal(t, 1, mart.Areas[0].Researchers)
}
