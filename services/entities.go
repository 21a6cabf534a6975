package services

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"research-hub/config"
	"research-hub/models"
)

// sentinelCampus is used when a source row carries no campus.
const sentinelCampus = "Reitoria"

// minCampusNameLen guards against junk cells becoming campuses.
const minCampusNameLen = 4

// EntityManager is the idempotent getter/creator for the small reference
// entities. Each ensure consults the in-memory cache, then the store with
// an accent-insensitive uppercase match, then creates. A create error is
// logged and surfaces as a zero id; callers skip the link and keep going.
type EntityManager struct {
	db  *gorm.DB
	log *zap.Logger
	cfg *config.Config

	orgs     map[string]uint // normalized name or short name -> id
	campuses map[string]uint // orgID|normalized name -> id
	areas    map[string]uint
	types    map[string]*models.InitiativeType
	roles    map[string]*models.Role
	eduTypes map[string]uint
}

// NewEntityManager creates a manager with empty caches.
func NewEntityManager(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *EntityManager {
	return &EntityManager{
		db:       db,
		log:      logger,
		cfg:      cfg,
		orgs:     make(map[string]uint),
		campuses: make(map[string]uint),
		areas:    make(map[string]uint),
		types:    make(map[string]*models.InitiativeType),
		roles:    make(map[string]*models.Role),
		eduTypes: make(map[string]uint),
	}
}

// EnsureDefaultOrganization resolves the institution's own organization.
func (m *EntityManager) EnsureDefaultOrganization() uint {
	return m.EnsureOrganization(m.cfg.InstitutionName, m.cfg.InstitutionShortName)
}

// EnsureOrganization returns the id of the organization matching name (or
// short name), creating it if absent.
func (m *EntityManager) EnsureOrganization(name, shortName string) uint {
	name = strings.TrimSpace(name)
	if name == "" {
		name = m.cfg.InstitutionName
		shortName = m.cfg.InstitutionShortName
	}
	key := NormalizeName(name)
	if id, ok := m.orgs[key]; ok {
		return id
	}

	var orgs []models.Organization
	if err := m.db.Find(&orgs).Error; err != nil {
		m.log.Warn("Failed to list organizations", zap.Error(err))
		return 0
	}
	for i := range orgs {
		if NormalizeName(orgs[i].Name) == key || (orgs[i].ShortName != "" && NormalizeName(orgs[i].ShortName) == key) {
			m.orgs[key] = orgs[i].ID
			return orgs[i].ID
		}
	}

	org := models.Organization{Name: name, ShortName: strings.TrimSpace(shortName)}
	if err := m.db.Create(&org).Error; err != nil {
		m.log.Warn("Failed to create organization", zap.String("name", name), zap.Error(err))
		return 0
	}
	m.orgs[key] = org.ID
	return org.ID
}

// EnsureCampus returns the id of the campus within the organization,
// defaulting to the sentinel campus when the row has none. Names shorter
// than four characters are never created.
func (m *EntityManager) EnsureCampus(name string, orgID uint) uint {
	name = strings.TrimSpace(name)
	if name == "" {
		name = sentinelCampus
	}
	key := NormalizeName(name)
	cacheKey := fmt.Sprintf("%d|%s", orgID, key)
	if id, ok := m.campuses[cacheKey]; ok {
		return id
	}

	var campuses []models.Campus
	if err := m.db.Where("organization_id = ?", orgID).Find(&campuses).Error; err != nil {
		m.log.Warn("Failed to list campuses", zap.Error(err))
		return 0
	}
	for i := range campuses {
		if NormalizeName(campuses[i].Name) == key {
			m.campuses[cacheKey] = campuses[i].ID
			return campuses[i].ID
		}
	}

	if len([]rune(name)) < minCampusNameLen {
		m.log.Warn("Refusing to create campus with suspicious name", zap.String("name", name))
		return 0
	}
	campus := models.Campus{Name: name, OrganizationID: orgID}
	if err := m.db.Create(&campus).Error; err != nil {
		m.log.Warn("Failed to create campus", zap.String("name", name), zap.Error(err))
		return 0
	}
	m.campuses[cacheKey] = campus.ID
	return campus.ID
}

// EnsureKnowledgeArea returns the id of the area, matching accents
// insensitively but storing the original spelling.
func (m *EntityManager) EnsureKnowledgeArea(name string) uint {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0
	}
	key := NormalizeName(name)
	if key == "" {
		return 0
	}
	if id, ok := m.areas[key]; ok {
		return id
	}

	var areas []models.KnowledgeArea
	if err := m.db.Find(&areas).Error; err != nil {
		m.log.Warn("Failed to list knowledge areas", zap.Error(err))
		return 0
	}
	for i := range areas {
		k := NormalizeName(areas[i].Name)
		if _, seen := m.areas[k]; !seen {
			m.areas[k] = areas[i].ID
		}
	}
	if id, ok := m.areas[key]; ok {
		return id
	}

	area := models.KnowledgeArea{Name: name}
	if err := m.db.Create(&area).Error; err != nil {
		m.log.Warn("Failed to create knowledge area", zap.String("name", name), zap.Error(err))
		return 0
	}
	m.areas[key] = area.ID
	return area.ID
}

// EnsureInitiativeType returns the type with the given canonical name,
// creating it on demand.
func (m *EntityManager) EnsureInitiativeType(name string) *models.InitiativeType {
	if t, ok := m.types[name]; ok {
		return t
	}
	var t models.InitiativeType
	err := m.db.Where("name = ?", name).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		t = models.InitiativeType{Name: name}
		err = m.db.Create(&t).Error
	}
	if err != nil {
		m.log.Warn("Failed to ensure initiative type", zap.String("name", name), zap.Error(err))
		return nil
	}
	m.types[name] = &t
	return &t
}

// EnsureRoles populates and returns the mandatory role set, keyed by name.
func (m *EntityManager) EnsureRoles() map[string]*models.Role {
	mandatory := []string{
		models.RoleCoordinator,
		models.RoleResearcher,
		models.RoleStudent,
		models.RoleLeader,
	}
	for _, name := range mandatory {
		m.EnsureRole(name)
	}
	return m.roles
}

// EnsureRole returns the role with the given name, creating it if absent.
func (m *EntityManager) EnsureRole(name string) *models.Role {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if r, ok := m.roles[name]; ok {
		return r
	}
	var r models.Role
	err := m.db.Where("name = ?", name).First(&r).Error
	if err == gorm.ErrRecordNotFound {
		r = models.Role{Name: name}
		err = m.db.Create(&r).Error
	}
	if err != nil {
		m.log.Warn("Failed to ensure role", zap.String("name", name), zap.Error(err))
		return nil
	}
	m.roles[name] = &r
	return &r
}

// EnsureEducationType returns the id of the degree type, creating it if
// absent.
func (m *EntityManager) EnsureEducationType(name string) uint {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0
	}
	if id, ok := m.eduTypes[name]; ok {
		return id
	}
	var t models.EducationType
	err := m.db.Where("name = ?", name).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		t = models.EducationType{Name: name}
		err = m.db.Create(&t).Error
	}
	if err != nil {
		m.log.Warn("Failed to ensure education type", zap.String("name", name), zap.Error(err))
		return 0
	}
	m.eduTypes[name] = t.ID
	return t.ID
}
