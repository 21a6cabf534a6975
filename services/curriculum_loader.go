package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"research-hub/models"
	"research-hub/sources/lattes"
)

// CurriculumLoader ingests researcher curricula: personal info, projects,
// advisorships, academic education and bibliographic production.
type CurriculumLoader struct {
	db  *gorm.DB
	log *zap.Logger

	entities *EntityManager
	resolver *IdentityResolver
	projects *ProjectLoader
}

// NewCurriculumLoader wires a curriculum loader on top of the project
// loader so curriculum projects flow through the same upsert path as
// spreadsheet rows.
func NewCurriculumLoader(db *gorm.DB, logger *zap.Logger, entities *EntityManager, resolver *IdentityResolver, projects *ProjectLoader) *CurriculumLoader {
	return &CurriculumLoader{
		db:       db,
		log:      logger,
		entities: entities,
		resolver: resolver,
		projects: projects,
	}
}

// Run loads every curriculum in order.
func (cl *CurriculumLoader) Run(ctx context.Context, curricula []*lattes.Curriculum) error {
	if err := cl.projects.Preload(); err != nil {
		return err
	}
	for _, c := range curricula {
		if err := ctx.Err(); err != nil {
			return err
		}
		cl.loadOne(c)
	}
	cl.log.Info("Curriculum load finished",
		zap.Int("curricula", len(curricula)),
		zap.Int("created", cl.projects.Counters.Created),
		zap.Int("updated", cl.projects.Counters.Updated),
		zap.Int("skipped", cl.projects.Counters.Skipped))
	return nil
}

func (cl *CurriculumLoader) loadOne(c *lattes.Curriculum) {
	ownerName := strings.TrimSpace(c.InformacoesPessoais.Nome)
	if ownerName == "" {
		cl.log.Warn("Skipping curriculum without owner name")
		return
	}
	log := cl.log.With(zap.String("researcher", ownerName))

	owner := cl.resolver.Resolve(ownerName, c.InformacoesPessoais.Email, false)
	if owner == nil {
		log.Warn("Skipping curriculum: owner unresolvable")
		return
	}
	cl.updateOwner(owner, c)

	cl.loadProjects(owner, c.ProjetosPesquisa, models.TypeResearchProject)
	cl.loadProjects(owner, c.ProjetosExtensao, models.TypeExtensionProject)
	cl.loadProjects(owner, c.ProjetosDesenvolvimento, models.TypeDevelopmentProject)
	cl.loadAdvisorships(owner, c)
	cl.loadEducation(owner, c.FormacaoAcademica)
	cl.loadArticles(owner, c.ProducaoBibliografica.ArtigosPeriodicos, models.ArticleJournal)
	cl.loadArticles(owner, c.ProducaoBibliografica.TrabalhosCompletosCongresso, models.ArticleConference)
}

// updateOwner backfills the curriculum id and e-mail on the person.
func (cl *CurriculumLoader) updateOwner(owner *models.Person, c *lattes.Curriculum) {
	changed := false
	if id := strings.TrimSpace(c.InformacoesPessoais.IDLattes); id != "" && owner.LattesID != id {
		owner.LattesID = id
		changed = true
	}
	if email := strings.ToLower(strings.TrimSpace(c.InformacoesPessoais.Email)); email != "" {
		known := false
		for _, e := range owner.EmailList() {
			if strings.ToLower(e) == email {
				known = true
				break
			}
		}
		if !known {
			if owner.Emails == "" {
				owner.Emails = email
			} else {
				owner.Emails += ";" + email
			}
			changed = true
		}
	}
	if changed {
		cl.resolver.Update(owner)
	}
}

func (cl *CurriculumLoader) loadProjects(owner *models.Person, items []lattes.ProjectItem, typeName string) {
	for _, item := range items {
		title := item.Nome.String()
		if title == "" {
			continue
		}
		data := &ProjectData{
			Title:           title,
			Status:          NormalizeStatus(item.Situacao),
			Description:     item.Descricao.String(),
			StartDate:       yearStart(int(item.AnoInicio)),
			EndDate:         yearEnd(int(item.AnoFim)),
			TypeName:        typeName,
			CoordinatorName: owner.Name,
		}
		cl.projects.LoadOne(data)
	}
}

func (cl *CurriculumLoader) loadAdvisorships(owner *models.Person, c *lattes.Curriculum) {
	items := c.Advisorships()
	for _, item := range items {
		status := models.StatusActive
		if item.Concluded {
			status = models.StatusConcluded
		}
		data := &ProjectData{
			Title:           item.Title,
			Status:          status,
			TypeName:        models.TypeAdvisorship,
			CoordinatorName: owner.Name,
			Advisorship:     true,
			StartDate:       yearStart(item.Year),
		}
		if item.Student != "" {
			data.StudentNames = []string{item.Student}
			data.StudentEmails = []string{""}
		}
		if item.SubType != "" {
			data.Metadata = map[string]any{"sub_type": item.SubType}
		}
		cl.projects.LoadOne(data)
	}
	if len(items) > 0 {
		cl.projects.RecomputeParents()
	}
}

func (cl *CurriculumLoader) loadEducation(owner *models.Person, items []lattes.EducationItem) {
	for _, item := range items {
		typeID := cl.entities.EnsureEducationType(item.Tipo)
		if typeID == 0 {
			continue
		}
		title := item.Curso.String()

		var existing models.AcademicEducation
		err := cl.db.Where("researcher_id = ? AND education_type_id = ? AND title = ?",
			owner.ID, typeID, title).First(&existing).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			cl.log.Warn("Failed to look up degree", zap.Error(err))
			continue
		}

		edu := &existing
		if err == gorm.ErrRecordNotFound {
			edu = &models.AcademicEducation{
				ResearcherID:    owner.ID,
				EducationTypeID: typeID,
				Title:           title,
			}
		}
		edu.InstitutionID = cl.entities.EnsureOrganization(item.Instituicao, "")
		edu.StartYear = int(item.AnoInicio)
		if y := int(item.AnoConclusao); y > 0 {
			edu.EndYear = &y
		} else {
			edu.EndYear = nil // "Atual": still ongoing
		}
		edu.ThesisTitle = item.TituloTese.String()
		if advisor := cl.resolver.Resolve(item.Orientador, "", false); advisor != nil {
			edu.AdvisorID = &advisor.ID
		}
		if co := cl.resolver.Resolve(item.Coorientador, "", false); co != nil {
			edu.CoAdvisorID = &co.ID
		}

		if err := cl.db.Save(edu).Error; err != nil {
			cl.log.Warn("Failed to save degree", zap.String("title", title), zap.Error(err))
			continue
		}
		for _, area := range item.AreasAtuacao {
			if areaID := cl.entities.EnsureKnowledgeArea(area); areaID != 0 {
				cl.insertIgnoring(&models.EducationKnowledgeArea{AcademicEducationID: edu.ID, KnowledgeAreaID: areaID})
				cl.insertIgnoring(&models.ResearcherKnowledgeArea{PersonID: owner.ID, KnowledgeAreaID: areaID})
			}
		}
	}
}

func (cl *CurriculumLoader) loadArticles(owner *models.Person, items []lattes.ArticleItem, kind string) {
	for _, item := range items {
		title := item.Titulo.String()
		if title == "" {
			continue
		}

		var article models.Article
		err := cl.db.Where("title = ?", title).First(&article).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			cl.log.Warn("Failed to look up article", zap.Error(err))
			continue
		}
		if err == gorm.ErrRecordNotFound {
			article = models.Article{Title: title, Kind: kind}
		}
		article.Year = int(item.Ano)
		article.Venue = item.Venue()
		article.Volume = strings.TrimSpace(item.Volume)
		article.Pages = strings.TrimSpace(item.Paginas)
		article.DOI = strings.TrimSpace(item.DOI)

		if err := cl.db.Save(&article).Error; err != nil {
			cl.log.Warn("Failed to save article", zap.String("title", title), zap.Error(err))
			continue
		}

		cl.insertIgnoring(&models.ArticleAuthor{ArticleID: article.ID, PersonID: owner.ID})
		for _, author := range item.Autores {
			if p := cl.resolver.Resolve(author, "", false); p != nil {
				cl.insertIgnoring(&models.ArticleAuthor{ArticleID: article.ID, PersonID: p.ID})
			}
		}
	}
}

func (cl *CurriculumLoader) insertIgnoring(value any) {
	cl.projects.linker.insertIgnoring(value)
}

// yearStart converts a bare year into a January 1st date.
func yearStart(year int) *time.Time {
	if year <= 0 {
		return nil
	}
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

// yearEnd converts a bare year into a December 31st date.
func yearEnd(year int) *time.Time {
	if year <= 0 {
		return nil
	}
	t := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return &t
}
