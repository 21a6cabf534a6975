package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"research-hub/config"
	"research-hub/models"
	"research-hub/services"
	"research-hub/sources/cnpq"
	"research-hub/sources/lattes"
	"research-hub/sources/xlsx"
	"research-hub/storage"
)

var pipelineRunsCounter prometheus.Counter

func init() {
	pipelineRunsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of completed full pipeline runs.",
		},
	)
	prometheus.MustRegister(pipelineRunsCounter)
}

// app bundles everything a command needs after setup.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *gorm.DB
	uploader *storage.Uploader

	entities *services.EntityManager
	resolver *services.IdentityResolver
	teams    *services.TeamSynchronizer
	linker   *services.InitiativeLinker
	projects *services.ProjectLoader
	groups   *services.GroupLoader
	exporter *services.CanonicalExporter
	marts    *services.MartBuilder
}

func newApp() (*app, error) {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(
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
	); err != nil {
		return nil, fmt.Errorf("auto-migration failed: %w", err)
	}

	var uploader *storage.Uploader
	if cfg.S3Enabled() {
		uploader, err = storage.NewUploader(cfg)
		if err != nil {
			return nil, fmt.Errorf("S3 client creation failed: %w", err)
		}
	}

	a := &app{cfg: cfg, log: logging, db: db, uploader: uploader}
	a.entities = services.NewEntityManager(cfg, db, logging)
	a.resolver = services.NewIdentityResolver(db, logging)
	a.teams = services.NewTeamSynchronizer(db, logging, a.entities)
	a.linker = services.NewInitiativeLinker(db, logging, a.entities, a.resolver, a.teams)
	a.projects = services.NewProjectLoader(db, logging, a.entities, a.resolver, a.linker)
	a.groups = services.NewGroupLoader(db, logging, a.entities, a.resolver, a.linker, a.teams)
	a.exporter = services.NewCanonicalExporter(cfg, db, logging, uploader)
	a.marts = services.NewMartBuilder(cfg, db, logging, uploader)

	// Seeding
	a.entities.EnsureDefaultOrganization()
	a.entities.EnsureRoles()
	for _, name := range []string{
		models.TypeResearchProject, models.TypeExtensionProject,
		models.TypeDevelopmentProject, models.TypeAdvisorship,
	} {
		a.entities.EnsureInitiativeType(name)
	}

	return a, nil
}

func (a *app) preload() error {
	if err := a.resolver.Preload(); err != nil {
		return err
	}
	if err := a.projects.Preload(); err != nil {
		return err
	}
	return a.linker.PreloadGroups()
}

func (a *app) runGroups(ctx context.Context) error {
	rows, err := xlsx.NewReader(a.log).ReadTable(a.cfg.GroupsFile)
	if err != nil {
		return fmt.Errorf("reading groups file: %w", err)
	}
	return a.groups.Run(ctx, rows)
}

func (a *app) runProjects(ctx context.Context) error {
	rows, err := xlsx.NewReader(a.log).ReadTable(a.cfg.ProjectsFile)
	if err != nil {
		return fmt.Errorf("reading projects file: %w", err)
	}
	return a.projects.Run(ctx, rows, &services.ProjectMapping{TypeName: models.TypeResearchProject})
}

func (a *app) runAdvisorships(ctx context.Context) error {
	rows, err := xlsx.NewReader(a.log).ReadTable(a.cfg.AdvisorshipsFile)
	if err != nil {
		return fmt.Errorf("reading advisorships file: %w", err)
	}
	return a.projects.Run(ctx, rows, &services.AdvisorshipMapping{})
}

func (a *app) runCurricula(ctx context.Context) error {
	curricula, err := lattes.NewReader(a.log).ReadDir(a.cfg.CurriculaDir)
	if err != nil {
		return fmt.Errorf("reading curricula dir: %w", err)
	}
	loader := services.NewCurriculumLoader(a.db, a.log, a.entities, a.resolver, a.projects)
	return loader.Run(ctx, curricula)
}

func (a *app) runCnpq(ctx context.Context, campusFilter string) error {
	fetcher := cnpq.NewFetcher(a.cfg, a.log)
	sync := services.NewCnpqSync(a.db, a.log, fetcher, a.entities, a.resolver, a.linker)
	return sync.Run(ctx, campusFilter)
}

func (a *app) runExport(ctx context.Context, outDir string) error {
	return a.exporter.Export(ctx, outDir)
}

func (a *app) runMarts(ctx context.Context, outDir string) error {
	if err := a.marts.BuildAdvisorshipMart(ctx, outDir); err != nil {
		return err
	}
	return a.marts.BuildKnowledgeAreasMart(ctx, outDir)
}

// runPipeline executes the full ingestion, export and mart chain.
func (a *app) runPipeline(ctx context.Context, campusFilter, outDir string) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"groups", a.runGroups},
		{"projects", a.runProjects},
		{"advisorships", a.runAdvisorships},
		{"curricula", a.runCurricula},
		{"cnpq", func(ctx context.Context) error { return a.runCnpq(ctx, campusFilter) }},
		{"export", func(ctx context.Context) error { return a.runExport(ctx, outDir) }},
		{"marts", func(ctx context.Context) error { return a.runMarts(ctx, outDir) }},
	}
	for _, step := range steps {
		a.log.Info("Pipeline step starting", zap.String("step", step.name))
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("pipeline step %s: %w", step.name, err)
		}
	}
	pipelineRunsCounter.Inc()
	return nil
}

// serve runs the pipeline on a cron schedule and exposes /metrics and
// /healthz. There is no further request handling.
func (a *app) serve(campusFilter, outDir string) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(a.cfg.CronSchedule, func() {
		a.log.Info("Running scheduled pipeline...")
		if err := a.preload(); err != nil {
			a.log.Error("Scheduled preload failed", zap.Error(err))
			return
		}
		if err := a.runPipeline(context.Background(), campusFilter, outDir); err != nil {
			a.log.Error("Scheduled pipeline failed", zap.Error(err))
		} else {
			a.log.Info("Scheduled pipeline completed")
		}
	}); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", a.cfg.CronSchedule, err)
	}
	scheduler.Start()

	router := gin.Default()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	a.log.Info("Starting server", zap.String("port", a.cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return srv.ListenAndServe()
}

func main() {
	var campusFilter string
	var outDir string

	var a *app

	root := &cobra.Command{
		Use:           "research-hub",
		Short:         "Consolidates institutional research data and emits canonical JSON artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp()
			return err
		},
	}
	root.PersistentFlags().StringVar(&campusFilter, "campus", "", "restrict CNPq sync to one campus")
	root.PersistentFlags().StringVar(&outDir, "out", "", "output directory for exports and marts")

	// ingestion commands preload the caches before running
	withPreload := func(fn func(ctx context.Context) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := a.preload(); err != nil {
				return err
			}
			return fn(cmd.Context())
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "pipeline",
			Short: "Run the full ingestion, export and mart chain",
			RunE: withPreload(func(ctx context.Context) error {
				return a.runPipeline(ctx, campusFilter, outDir)
			}),
		},
		&cobra.Command{
			Use:   "groups",
			Short: "Ingest the research groups spreadsheet",
			RunE:  withPreload(func(ctx context.Context) error { return a.runGroups(ctx) }),
		},
		&cobra.Command{
			Use:   "projects",
			Short: "Ingest the projects spreadsheet",
			RunE:  withPreload(func(ctx context.Context) error { return a.runProjects(ctx) }),
		},
		&cobra.Command{
			Use:   "advisorships",
			Short: "Ingest the advisorships spreadsheet",
			RunE:  withPreload(func(ctx context.Context) error { return a.runAdvisorships(ctx) }),
		},
		&cobra.Command{
			Use:   "curricula",
			Short: "Ingest curriculum JSON files",
			RunE:  withPreload(func(ctx context.Context) error { return a.runCurricula(ctx) }),
		},
		&cobra.Command{
			Use:   "cnpq",
			Short: "Synchronize research groups against the CNPq mirror",
			RunE: withPreload(func(ctx context.Context) error {
				return a.runCnpq(ctx, campusFilter)
			}),
		},
		&cobra.Command{
			Use:   "export",
			Short: "Write the canonical JSON snapshot",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runExport(cmd.Context(), outDir)
			},
		},
		&cobra.Command{
			Use:   "mart",
			Short: "Build the advisorship analytics mart from the canonical export",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.marts.BuildAdvisorshipMart(cmd.Context(), outDir)
			},
		},
		&cobra.Command{
			Use:   "ka-mart",
			Short: "Build the knowledge areas mart",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.marts.BuildKnowledgeAreasMart(cmd.Context(), outDir)
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Run the pipeline on a schedule and expose metrics",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.serve(campusFilter, outDir)
			},
		},
	)

	if err := root.Execute(); err != nil {
		if a != nil {
			a.log.Error("Command failed", zap.Error(err))
			_ = a.log.Sync()
		} else {
			log.Printf("command failed: %v", err)
		}
		os.Exit(1)
	}
	if a != nil {
		_ = a.log.Sync()
	}
}
