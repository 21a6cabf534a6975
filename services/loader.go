package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"research-hub/models"
)

// LoaderCounters tracks the outcome of one loader run.
type LoaderCounters struct {
	Created int
	Updated int
	Skipped int
}

// ProjectLoader drives one source table through the mapping strategy, the
// polymorphic handlers and the linker. Rows are processed in source order;
// a row completes before the next begins.
type ProjectLoader struct {
	db  *gorm.DB
	log *zap.Logger

	entities *EntityManager
	resolver *IdentityResolver
	linker   *InitiativeLinker
	standard *StandardProjectHandler
	advisor  *AdvisorshipHandler

	byName map[string]*models.Initiative // exact name -> initiative

	Counters LoaderCounters
}

// NewProjectLoader wires a loader over the shared collaborators.
func NewProjectLoader(db *gorm.DB, logger *zap.Logger, entities *EntityManager, resolver *IdentityResolver, linker *InitiativeLinker) *ProjectLoader {
	return &ProjectLoader{
		db:       db,
		log:      logger,
		entities: entities,
		resolver: resolver,
		linker:   linker,
		standard: NewStandardProjectHandler(db, logger),
		advisor:  NewAdvisorshipHandler(db, logger, resolver),
		byName:   make(map[string]*models.Initiative),
	}
}

// Preload fills the by-name initiative index and the collaborator caches.
func (pl *ProjectLoader) Preload() error {
	var initiatives []models.Initiative
	if err := pl.db.Find(&initiatives).Error; err != nil {
		return err
	}
	for i := range initiatives {
		pl.byName[initiatives[i].Name] = &initiatives[i]
	}
	if err := pl.resolver.Preload(); err != nil {
		return err
	}
	if err := pl.advisor.PreloadFellowships(); err != nil {
		return err
	}
	if err := pl.linker.PreloadGroups(); err != nil {
		return err
	}
	pl.log.Info("Loader caches preloaded", zap.Int("initiatives", len(initiatives)))
	return nil
}

// Run maps and loads every row of the source table, then recomputes the
// parent aggregates for advisorships.
func (pl *ProjectLoader) Run(ctx context.Context, rows []map[string]string, strategy MappingStrategy) error {
	log := pl.log.With(zap.String("strategy", strategy.Name()))
	log.Info("Starting load", zap.Int("rows", len(rows)))

	sawAdvisorships := false
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := strategy.Map(row)
		if err != nil || data == nil || strings.TrimSpace(data.Title) == "" {
			pl.Counters.Skipped++
			rowsSkippedCounter.Inc()
			log.Warn("Skipping malformed row", zap.Error(err))
			continue
		}
		if data.Advisorship {
			sawAdvisorships = true
		}
		pl.LoadOne(data)
	}

	if sawAdvisorships {
		pl.RecomputeParents()
	}

	log.Info("Load finished",
		zap.Int("created", pl.Counters.Created),
		zap.Int("updated", pl.Counters.Updated),
		zap.Int("skipped", pl.Counters.Skipped))
	return nil
}

// LoadOne upserts a single mapped record and links its team, group and
// knowledge areas. Errors inside the handler are counted as skipped and
// logged with the title to aid postmortem.
func (pl *ProjectLoader) LoadOne(data *ProjectData) {
	title := strings.TrimSpace(data.Title)
	if title == "" {
		pl.Counters.Skipped++
		rowsSkippedCounter.Inc()
		return
	}
	data.Title = title

	existing := pl.byName[title]

	typ := pl.entities.EnsureInitiativeType(data.TypeName)
	if typ == nil {
		pl.Counters.Skipped++
		rowsSkippedCounter.Inc()
		pl.log.Warn("Skipping row: initiative type unresolved",
			zap.String("title", title), zap.String("type", data.TypeName))
		return
	}

	var parentID *uint
	if data.ParentTitle != "" {
		if parent := pl.byName[strings.TrimSpace(data.ParentTitle)]; parent != nil {
			parentID = &parent.ID
		}
	}

	orgID := pl.entities.EnsureDefaultOrganization()

	var handler InitiativeHandler = pl.standard
	if data.Advisorship {
		handler = pl.advisor
	}

	init, err := handler.Upsert(data, existing, typ, orgID, parentID)
	if err != nil {
		pl.Counters.Skipped++
		rowsSkippedCounter.Inc()
		pl.log.Warn("Skipping row: handler failed",
			zap.String("title", title), zap.Error(err))
		return
	}
	if existing != nil {
		pl.Counters.Updated++
		initiativesUpdatedCounter.Inc()
	} else {
		pl.Counters.Created++
		initiativesCreatedCounter.Inc()
	}
	pl.byName[init.Name] = init

	pl.linker.CreateInitiativeTeam(init, data)
	group := pl.linker.LinkResearchGroup(init, data)
	pl.linker.AssociateKeywordAreas(init, data, group)
}

// RecomputeParents refreshes each parent initiative that has child
// advisorships: the date range becomes the min/max of the children and the
// status is Active while any child is Active.
func (pl *ProjectLoader) RecomputeParents() {
	var children []models.Initiative
	err := pl.db.
		Joins("JOIN advisorships ON advisorships.initiative_id = initiatives.id").
		Where("initiatives.parent_id IS NOT NULL").
		Find(&children).Error
	if err != nil {
		pl.log.Error("Failed to list child advisorships", zap.Error(err))
		return
	}

	byParent := make(map[uint][]*models.Initiative)
	for i := range children {
		byParent[*children[i].ParentID] = append(byParent[*children[i].ParentID], &children[i])
	}

	for parentID, kids := range byParent {
		status := models.StatusConcluded
		var start, end *time.Time
		for _, kid := range kids {
			if kid.Status == models.StatusActive {
				status = models.StatusActive
			}
			if kid.StartDate != nil && (start == nil || kid.StartDate.Before(*start)) {
				start = kid.StartDate
			}
			if kid.EndDate != nil && (end == nil || kid.EndDate.After(*end)) {
				end = kid.EndDate
			}
		}
		updates := map[string]any{"status": status}
		if start != nil {
			updates["start_date"] = start
		}
		if end != nil {
			updates["end_date"] = end
		}
		if err := pl.db.Model(&models.Initiative{}).Where("id = ?", parentID).Updates(updates).Error; err != nil {
			pl.log.Warn("Failed to recompute parent aggregate",
				zap.Uint("parent_id", parentID), zap.Error(err))
		}
	}
	pl.log.Info("Parent aggregates recomputed", zap.Int("parents", len(byParent)))
}
