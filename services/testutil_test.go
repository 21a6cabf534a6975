package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"research-hub/config"
	"research-hub/models"
)

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Organization{}, &models.Campus{},
		&models.Person{}, &models.Role{},
		&models.KnowledgeArea{}, &models.InitiativeKnowledgeArea{},
		&models.GroupKnowledgeArea{}, &models.ResearcherKnowledgeArea{},
		&models.InitiativeType{}, &models.Initiative{}, &models.Advisorship{},
		&models.Fellowship{},
		&models.Team{}, &models.TeamMembership{}, &models.InitiativeTeam{},
		&models.ResearchGroup{},
		&models.EducationType{}, &models.AcademicEducation{}, &models.EducationKnowledgeArea{},
		&models.Article{}, &models.ArticleAuthor{},
	))
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		InstitutionName:      "Instituto Federal",
		InstitutionShortName: "IF",
		OutputDir:            "export",
	}
}

// newTestServices wires the collaborator chain most tests need.
func newTestServices(t *testing.T, db *gorm.DB) (*EntityManager, *IdentityResolver, *TeamSynchronizer, *InitiativeLinker) {
	t.Helper()
	log := zap.NewNop()
	entities := NewEntityManager(newTestConfig(), db, log)
	resolver := NewIdentityResolver(db, log)
	teams := NewTeamSynchronizer(db, log, entities)
	linker := NewInitiativeLinker(db, log, entities, resolver, teams)
	return entities, resolver, teams, linker
}
