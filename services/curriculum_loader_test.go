package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"research-hub/models"
	"research-hub/sources/lattes"
)

func loadCurriculum(t *testing.T, raw string) *lattes.Curriculum {
	t.Helper()
	var c lattes.Curriculum
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	return &c
}

func TestCurriculumLoaderRun(t *testing.T) {
	db := newTestDB(t)
	entities, resolver, _, linker := newTestServices(t, db)
	projects := NewProjectLoader(db, zap.NewNop(), entities, resolver, linker)
	loader := NewCurriculumLoader(db, zap.NewNop(), entities, resolver, projects)

	c := loadCurriculum(t, `{
		"informacoes_pessoais": {
			"nome": "Rafael Costa",
			"id_lattes": "9876543210",
			"email": "rafael@example.edu"
		},
		"projetos_pesquisa": [
			{"nome": "Sensores de baixo custo", "situacao": "EM ANDAMENTO", "ano_inicio": 2022, "ano_fim": "Atual"}
		],
		"orientacoes": {
			"concluidas": {
				"iniciacao_cientifica": [
					{"titulo": "Calibracao de sensores", "orientado": "Carla Mendes", "ano": 2023}
				]
			}
		},
		"formacao_academica": [
			{
				"tipo": "Doutorado",
				"curso": "Engenharia Agricola",
				"instituicao": "Universidade Estadual",
				"ano_inicio": 2015,
				"ano_conclusao": 2019,
				"titulo_trabalho": "Automacao de irrigacao",
				"orientador": "Helena Prado",
				"areas_atuacao": ["Instrumentação"]
			}
		],
		"producao_bibliografica": {
			"artigos_periodicos": [
				{"titulo": "Low-cost soil sensing", "ano": 2023, "periodico": "Sensors", "autores": ["Carla Mendes"]}
			]
		}
	}`)

	require.NoError(t, loader.Run(context.Background(), []*lattes.Curriculum{c}))

	// The owner is enriched with the curriculum id and e-mail.
	var owner models.Person
	require.NoError(t, db.Where("name = ?", "Rafael Costa").First(&owner).Error)
	assert.Equal(t, "9876543210", owner.LattesID)
	assert.Contains(t, owner.EmailList(), "rafael@example.edu")

	// The project flows through the standard upsert path with the owner
	// as coordinator.
	var project models.Initiative
	require.NoError(t, db.Where("name = ?", "Sensores de baixo custo").First(&project).Error)
	assert.Equal(t, models.StatusActive, project.Status)
	require.NotNil(t, project.StartDate)
	assert.Equal(t, "2022-01-01", project.StartDate.Format("2006-01-02"))
	assert.Nil(t, project.EndDate)

	// The advisorship is created with the owner as supervisor.
	var advInit models.Initiative
	require.NoError(t, db.Where("name = ?", "Calibracao de sensores").First(&advInit).Error)
	assert.Equal(t, models.StatusConcluded, advInit.Status)

	var adv models.Advisorship
	require.NoError(t, db.Where("initiative_id = ?", advInit.ID).First(&adv).Error)
	require.NotNil(t, adv.SupervisorID)
	assert.Equal(t, owner.ID, *adv.SupervisorID)
	require.NotNil(t, adv.StudentID)

	// Education: the degree is upserted with a nil end year only when
	// ongoing; here it concluded in 2019.
	var edu models.AcademicEducation
	require.NoError(t, db.Where("researcher_id = ?", owner.ID).First(&edu).Error)
	assert.Equal(t, "Engenharia Agricola", edu.Title)
	require.NotNil(t, edu.EndYear)
	assert.Equal(t, 2019, *edu.EndYear)
	require.NotNil(t, edu.AdvisorID)

	// Articles: owner plus listed co-authors are linked.
	var article models.Article
	require.NoError(t, db.Where("title = ?", "Low-cost soil sensing").First(&article).Error)
	assert.Equal(t, models.ArticleJournal, article.Kind)
	assert.Equal(t, "Sensors", article.Venue)

	var authors int64
	db.Model(&models.ArticleAuthor{}).Where("article_id = ?", article.ID).Count(&authors)
	assert.EqualValues(t, 2, authors)
}

func TestCurriculumLoaderIdempotent(t *testing.T) {
	db := newTestDB(t)
	entities, resolver, _, linker := newTestServices(t, db)
	projects := NewProjectLoader(db, zap.NewNop(), entities, resolver, linker)
	loader := NewCurriculumLoader(db, zap.NewNop(), entities, resolver, projects)

	raw := `{
		"informacoes_pessoais": {"nome": "Rafael Costa"},
		"projetos_pesquisa": [{"nome": "Sensores de baixo custo", "situacao": "EM ANDAMENTO"}]
	}`

	require.NoError(t, loader.Run(context.Background(), []*lattes.Curriculum{loadCurriculum(t, raw)}))
	require.NoError(t, loader.Run(context.Background(), []*lattes.Curriculum{loadCurriculum(t, raw)}))

	var people, initiatives int64
	db.Model(&models.Person{}).Count(&people)
	db.Model(&models.Initiative{}).Count(&initiatives)
	assert.EqualValues(t, 1, people)
	assert.EqualValues(t, 1, initiatives)
}
