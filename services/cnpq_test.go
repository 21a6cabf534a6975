package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"research-hub/models"
	"research-hub/sources/cnpq"
)

func newTestCnpqSync(t *testing.T) (*CnpqSync, *models.ResearchGroup) {
	t.Helper()
	db := newTestDB(t)
	entities, resolver, _, linker := newTestServices(t, db)
	sync := NewCnpqSync(db, zap.NewNop(), nil, entities, resolver, linker)

	team := &models.Team{Name: "Grupo de Pesquisa em Solos"}
	require.NoError(t, db.Create(team).Error)
	group := &models.ResearchGroup{Name: "Grupo de Pesquisa em Solos", TeamID: team.ID, MirrorURL: "http://dgp.cnpq.br/x"}
	require.NoError(t, db.Create(group).Error)
	return sync, group
}

func TestMaybeRenameSkipsPlaceholder(t *testing.T) {
	sync, group := newTestCnpqSync(t)

	sync.maybeRename(group, "CNPQ")
	sync.maybeRename(group, "cnpq")
	sync.maybeRename(group, "   ")

	var stored models.ResearchGroup
	require.NoError(t, sync.db.First(&stored, group.ID).Error)
	assert.Equal(t, "Grupo de Pesquisa em Solos", stored.Name)
}

func TestMaybeRenameAppliesMirrorName(t *testing.T) {
	sync, group := newTestCnpqSync(t)

	sync.maybeRename(group, "Grupo de Pesquisa em Solos e Nutrição")

	assert.Equal(t, "Grupo de Pesquisa em Solos e Nutrição", group.Name)
	var stored models.ResearchGroup
	require.NoError(t, sync.db.First(&stored, group.ID).Error)
	assert.Equal(t, "Grupo de Pesquisa em Solos e Nutrição", stored.Name)
}

func TestMaybeSetStartDateFromFormationYear(t *testing.T) {
	sync, group := newTestCnpqSync(t)

	sync.maybeSetStartDate(group, " 1998 ")

	require.NotNil(t, group.StartDate)
	assert.Equal(t, 1998, group.StartDate.Year())
	assert.Equal(t, time.January, group.StartDate.Month())

	var stored models.ResearchGroup
	require.NoError(t, sync.db.First(&stored, group.ID).Error)
	require.NotNil(t, stored.StartDate)
	assert.Equal(t, 1998, stored.StartDate.Year())
}

func TestMaybeSetStartDateIgnoresJunkYear(t *testing.T) {
	sync, group := newTestCnpqSync(t)

	sync.maybeSetStartDate(group, "n/d")
	sync.maybeSetStartDate(group, "")
	sync.maybeSetStartDate(group, "1742")

	assert.Nil(t, group.StartDate)
}

func TestMaybeSetStartDateKeepsStoredDate(t *testing.T) {
	sync, group := newTestCnpqSync(t)
	existing := time.Date(2005, time.March, 1, 0, 0, 0, 0, time.UTC)
	group.StartDate = &existing
	require.NoError(t, sync.db.Save(group).Error)

	sync.maybeSetStartDate(group, "1998")

	assert.Equal(t, 2005, group.StartDate.Year())
}

func TestCollectMembers(t *testing.T) {
	payload := &cnpq.GroupPayload{}
	payload.Identificacao.LideresDoGrupo = []cnpq.Member{
		{Nome: "Ana Lima", DataInclusao: "02/05/2019"},
	}
	payload.RecursosHumanos.Pesquisadores = []cnpq.Member{
		{Nome: "Ana Lima"},
		{Nome: "ANA   LIMA"}, // duplicate after normalization
		{Nome: "Bruno Souza", IDLattes: "1234567890"},
	}
	payload.RecursosHumanos.Estudantes = []cnpq.Member{
		{Nome: "Carla Mendes"},
		{Nome: ""},
	}
	payload.RecursosHumanos.Egressos = []cnpq.Member{
		{Nome: "Diego Alves"},
	}

	members := collectMembers(payload)
	require.Len(t, members, 5)

	roles := make(map[string]string, len(members))
	for _, m := range members {
		roles[m.Name+"|"+m.Role] = m.Role
	}
	assert.Contains(t, roles, "Ana Lima|"+models.RoleResearcher)
	assert.Contains(t, roles, "Ana Lima|"+models.RoleLeader)
	assert.Contains(t, roles, "Bruno Souza|"+models.RoleResearcher)
	assert.Contains(t, roles, "Carla Mendes|"+models.RoleStudent)
	assert.Contains(t, roles, "Diego Alves|"+models.RoleResearcher+alumniSuffix)
}

func TestSyncMemberAddsOnce(t *testing.T) {
	sync, group := newTestCnpqSync(t)
	require.NoError(t, sync.resolver.Preload())

	member := sourceMember{Name: "Bruno Souza", Role: models.RoleResearcher, LattesID: "1234567890", Since: "02/05/2019"}
	require.NoError(t, sync.syncMember(sync.db, group, member))
	require.NoError(t, sync.syncMember(sync.db, group, member))

	var count int64
	sync.db.Model(&models.TeamMembership{}).Where("team_id = ?", group.TeamID).Count(&count)
	assert.EqualValues(t, 1, count)

	var person models.Person
	require.NoError(t, sync.db.Where("name = ?", "Bruno Souza").First(&person).Error)
	assert.Equal(t, "1234567890", person.LattesID)
}
