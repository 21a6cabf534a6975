package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-hub/models"
)

func TestEnsureOrganizationAccentInsensitive(t *testing.T) {
	db := newTestDB(t)
	entities, _, _, _ := newTestServices(t, db)

	first := entities.EnsureOrganization("Instituição Federal do Sertão", "IFS")
	require.NotZero(t, first)

	// Accent and case variants resolve to the same record.
	assert.Equal(t, first, entities.EnsureOrganization("INSTITUICAO FEDERAL DO SERTAO", ""))
	assert.Equal(t, first, entities.EnsureOrganization("IFS", ""))

	var count int64
	db.Model(&models.Organization{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestEnsureDefaultOrganization(t *testing.T) {
	db := newTestDB(t)
	entities, _, _, _ := newTestServices(t, db)

	id := entities.EnsureDefaultOrganization()
	require.NotZero(t, id)
	assert.Equal(t, id, entities.EnsureOrganization("", ""))
}

func TestEnsureCampusSentinelAndGuard(t *testing.T) {
	db := newTestDB(t)
	entities, _, _, _ := newTestServices(t, db)
	orgID := entities.EnsureDefaultOrganization()

	// Blank campus falls back to the sentinel.
	id := entities.EnsureCampus("", orgID)
	require.NotZero(t, id)
	var campus models.Campus
	require.NoError(t, db.First(&campus, id).Error)
	assert.Equal(t, sentinelCampus, campus.Name)

	// Junk-length names are never created.
	assert.Zero(t, entities.EnsureCampus("xy", orgID))

	// But an existing short name still resolves.
	require.NoError(t, db.Create(&models.Campus{Name: "Sul", OrganizationID: orgID}).Error)
	assert.NotZero(t, entities.EnsureCampus("SUL", orgID))
}

func TestEnsureKnowledgeAreaIdempotent(t *testing.T) {
	db := newTestDB(t)
	entities, _, _, _ := newTestServices(t, db)

	first := entities.EnsureKnowledgeArea("Ciência da Computação")
	require.NotZero(t, first)
	assert.Equal(t, first, entities.EnsureKnowledgeArea("ciencia da computacao"))
	assert.Zero(t, entities.EnsureKnowledgeArea("  "))

	var count int64
	db.Model(&models.KnowledgeArea{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestEnsureRoles(t *testing.T) {
	db := newTestDB(t)
	entities, _, _, _ := newTestServices(t, db)

	roles := entities.EnsureRoles()
	for _, name := range []string{models.RoleCoordinator, models.RoleResearcher, models.RoleStudent, models.RoleLeader} {
		require.Contains(t, roles, name)
		assert.NotZero(t, roles[name].ID)
	}

	// Ad-hoc roles are created on demand and cached.
	tech := entities.EnsureRole("Técnico")
	require.NotNil(t, tech)
	assert.Equal(t, tech.ID, entities.EnsureRole("Técnico").ID)
}

func TestEnsureInitiativeType(t *testing.T) {
	db := newTestDB(t)
	entities, _, _, _ := newTestServices(t, db)

	typ := entities.EnsureInitiativeType(models.TypeAdvisorship)
	require.NotNil(t, typ)
	assert.Equal(t, typ.ID, entities.EnsureInitiativeType(models.TypeAdvisorship).ID)
}
