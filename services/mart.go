package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
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

// SupervisorRank is one entry of the supervisors-by-advisorship ranking.
type SupervisorRank struct {
	Name         string `json:"name"`
	Advisorships int    `json:"advisorships"`
}

// ProjectRank is one entry of the projects-by-investment ranking.
type ProjectRank struct {
	Name       string  `json:"name"`
	Investment float64 `json:"investment"`
}

// ProjectAnalytics aggregates the advisorships of one parent project.
type ProjectAnalytics struct {
	ProjectID         uint    `json:"project_id"`
	ProjectName       string  `json:"project_name"`
	TotalStudents     int     `json:"total_students"`
	ActiveStudents    int     `json:"active_students"`
	MonthlyInvestment float64 `json:"monthly_investment"`
	MainProgram       string  `json:"main_program,omitempty"`
	TeamSize          int     `json:"team_size"`
}

// AdvisorshipAnalytics is the analytics-ready view over all advisorships.
type AdvisorshipAnalytics struct {
	GeneratedAt             string             `json:"generated_at"`
	TotalProjects           int                `json:"total_projects"`
	TotalAdvisorships       int                `json:"total_advisorships"`
	TotalActiveAdvisorships int                `json:"total_active_advisorships"`
	TotalMonthlyInvestment  float64            `json:"total_monthly_investment"`
	ProgramDistribution     map[string]int     `json:"program_distribution"`
	InvestmentPerProgram    map[string]float64 `json:"investment_per_program"`
	VolunteerCount          int                `json:"volunteer_count"`
	VolunteerPercentage     float64            `json:"volunteer_percentage"`
	ParticipationRatio      float64            `json:"participation_ratio"`
	TopSupervisors          []SupervisorRank   `json:"top_supervisors"`
	TopProjects             []ProjectRank      `json:"top_projects"`
	Projects                []ProjectAnalytics `json:"projects"`
}

// KnowledgeAreaStats counts the entities attached to one knowledge area.
type KnowledgeAreaStats struct {
	Name        string `json:"name"`
	Initiatives int    `json:"initiatives"`
	Groups      int    `json:"groups"`
	Researchers int    `json:"researchers"`
}

// KnowledgeAreasMart is the per-area aggregation artifact.
type KnowledgeAreasMart struct {
	GeneratedAt string               `json:"generated_at"`
	TotalAreas  int                  `json:"total_areas"`
	Areas       []KnowledgeAreaStats `json:"areas"`
}

// MartBuilder derives analytics artifacts from the canonical export and
// the consolidated store.
type MartBuilder struct {
	db  *gorm.DB
	log *zap.Logger
	cfg *config.Config

	uploader *storage.Uploader // nil when S3 is disabled
}

func NewMartBuilder(cfg *config.Config, db *gorm.DB, logger *zap.Logger, uploader *storage.Uploader) *MartBuilder {
	return &MartBuilder{db: db, log: logger, cfg: cfg, uploader: uploader}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeAdvisorshipAnalytics aggregates the canonical advisorship
// buckets. The function is pure so the same input always yields the same
// numbers.
func ComputeAdvisorshipAnalytics(buckets []AdvisorshipProjectExport) *AdvisorshipAnalytics {
	out := &AdvisorshipAnalytics{
		GeneratedAt:          time.Now().UTC().Format(time.RFC3339),
		ProgramDistribution:  make(map[string]int),
		InvestmentPerProgram: make(map[string]float64),
		TopSupervisors:       []SupervisorRank{},
		TopProjects:          []ProjectRank{},
		Projects:             []ProjectAnalytics{},
	}

	bySupervisor := make(map[string]int)

	for _, bucket := range buckets {
		hasParent := bucket.ProjectID != 0
		if hasParent && len(bucket.Advisorships) > 0 {
			out.TotalProjects++
		}

		proj := ProjectAnalytics{
			ProjectID:   bucket.ProjectID,
			ProjectName: bucket.ProjectName,
			TeamSize:    bucket.TeamSize,
		}
		projectPrograms := make(map[string]int)

		for _, child := range bucket.Advisorships {
			out.TotalAdvisorships++
			proj.TotalStudents++
			if child.Status == models.StatusActive {
				out.TotalActiveAdvisorships++
				proj.ActiveStudents++
			}
			out.TotalMonthlyInvestment += child.Value
			proj.MonthlyInvestment += child.Value
			if child.Program != "" {
				out.ProgramDistribution[child.Program]++
				out.InvestmentPerProgram[child.Program] += child.Value
				projectPrograms[child.Program]++
			}
			if child.Volunteer {
				out.VolunteerCount++
			}
			if child.Supervisor != "" {
				bySupervisor[child.Supervisor]++
			}
		}

		proj.MainProgram = argmaxProgram(projectPrograms)
		proj.MonthlyInvestment = round2(proj.MonthlyInvestment)
		if hasParent {
			out.Projects = append(out.Projects, proj)
		}
	}

	out.TotalMonthlyInvestment = round2(out.TotalMonthlyInvestment)
	if out.TotalProjects > 0 {
		out.ParticipationRatio = round2(float64(out.TotalAdvisorships) / float64(out.TotalProjects))
	}
	if out.TotalAdvisorships > 0 {
		out.VolunteerPercentage = round2(100 * float64(out.VolunteerCount) / float64(out.TotalAdvisorships))
	}

	for name, count := range bySupervisor {
		out.TopSupervisors = append(out.TopSupervisors, SupervisorRank{Name: name, Advisorships: count})
	}
	sort.Slice(out.TopSupervisors, func(i, j int) bool {
		if out.TopSupervisors[i].Advisorships != out.TopSupervisors[j].Advisorships {
			return out.TopSupervisors[i].Advisorships > out.TopSupervisors[j].Advisorships
		}
		return out.TopSupervisors[i].Name < out.TopSupervisors[j].Name
	})
	if len(out.TopSupervisors) > 10 {
		out.TopSupervisors = out.TopSupervisors[:10]
	}

	for _, proj := range out.Projects {
		out.TopProjects = append(out.TopProjects, ProjectRank{Name: proj.ProjectName, Investment: proj.MonthlyInvestment})
	}
	sort.Slice(out.TopProjects, func(i, j int) bool {
		if out.TopProjects[i].Investment != out.TopProjects[j].Investment {
			return out.TopProjects[i].Investment > out.TopProjects[j].Investment
		}
		return out.TopProjects[i].Name < out.TopProjects[j].Name
	})
	if len(out.TopProjects) > 10 {
		out.TopProjects = out.TopProjects[:10]
	}

	return out
}

// argmaxProgram picks the most frequent program, alphabetical on ties.
func argmaxProgram(counts map[string]int) string {
	best := ""
	bestCount := 0
	for name, count := range counts {
		if count > bestCount || (count == bestCount && (best == "" || name < best)) {
			best = name
			bestCount = count
		}
	}
	return best
}

// BuildAdvisorshipMart reads advisorships_canonical.json from outDir and
// writes advisorship_analytics.json next to it.
func (m *MartBuilder) BuildAdvisorshipMart(ctx context.Context, outDir string) error {
	if outDir == "" {
		outDir = m.cfg.OutputDir
	}
	source := filepath.Join(outDir, "advisorships_canonical.json")
	raw, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("reading canonical advisorships: %w", err)
	}
	var buckets []AdvisorshipProjectExport
	if err := json.Unmarshal(raw, &buckets); err != nil {
		return fmt.Errorf("decoding canonical advisorships: %w", err)
	}

	analytics := ComputeAdvisorshipAnalytics(buckets)
	if err := m.writeJSON(ctx, outDir, "advisorship_analytics.json", analytics); err != nil {
		return err
	}
	m.log.Info("Advisorship mart written",
		zap.Int("projects", analytics.TotalProjects),
		zap.Int("advisorships", analytics.TotalAdvisorships),
		zap.Float64("monthly_investment", analytics.TotalMonthlyInvestment))
	return nil
}

// BuildKnowledgeAreasMart aggregates per-area counts straight from the
// store and writes knowledge_areas_mart.json.
func (m *MartBuilder) BuildKnowledgeAreasMart(ctx context.Context, outDir string) error {
	if outDir == "" {
		outDir = m.cfg.OutputDir
	}

	var areas []models.KnowledgeArea
	if err := m.db.Find(&areas).Error; err != nil {
		return fmt.Errorf("loading knowledge areas: %w", err)
	}

	mart := &KnowledgeAreasMart{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		TotalAreas:  len(areas),
		Areas:       []KnowledgeAreaStats{},
	}
	for _, area := range areas {
		stats := KnowledgeAreaStats{Name: area.Name}
		var n int64
		if err := m.db.Model(&models.InitiativeKnowledgeArea{}).Where("knowledge_area_id = ?", area.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("counting initiatives for area %q: %w", area.Name, err)
		}
		stats.Initiatives = int(n)
		if err := m.db.Model(&models.GroupKnowledgeArea{}).Where("knowledge_area_id = ?", area.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("counting groups for area %q: %w", area.Name, err)
		}
		stats.Groups = int(n)
		if err := m.db.Model(&models.ResearcherKnowledgeArea{}).Where("knowledge_area_id = ?", area.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("counting researchers for area %q: %w", area.Name, err)
		}
		stats.Researchers = int(n)
		mart.Areas = append(mart.Areas, stats)
	}
	sort.Slice(mart.Areas, func(i, j int) bool { return mart.Areas[i].Name < mart.Areas[j].Name })

	if err := m.writeJSON(ctx, outDir, "knowledge_areas_mart.json", mart); err != nil {
		return err
	}
	m.log.Info("Knowledge areas mart written", zap.Int("areas", mart.TotalAreas))
	return nil
}

func (m *MartBuilder) writeJSON(ctx context.Context, outDir, name string, payload any) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if m.uploader != nil {
		if link, err := m.uploader.Upload(ctx, name, data); err != nil {
			m.log.Warn("Failed to upload mart artifact", zap.String("file", name), zap.Error(err))
		} else {
			m.log.Info("Mart artifact uploaded", zap.String("link", link))
		}
	}
	return nil
}
