package services

import (
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"research-hub/models"
)

// fuzzyAcceptScore is the minimum token-sort similarity accepted in
// non-strict mode.
const fuzzyAcceptScore = 90

// IdentityResolver maps incoming names to persons, creating them on miss.
// The cache lives for exactly one ingestion run.
type IdentityResolver struct {
	db  *gorm.DB
	log *zap.Logger

	// normalized name -> person. Several raw spellings may collapse onto
	// the same entry; the first one wins.
	byNorm  map[string]*models.Person
	byEmail map[string]*models.Person
}

// NewIdentityResolver creates a resolver with an empty cache.
func NewIdentityResolver(db *gorm.DB, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{
		db:      db,
		log:     logger,
		byNorm:  make(map[string]*models.Person),
		byEmail: make(map[string]*models.Person),
	}
}

// Preload fills the cache with every stored person.
func (r *IdentityResolver) Preload() error {
	var people []models.Person
	if err := r.db.Find(&people).Error; err != nil {
		return err
	}
	for i := range people {
		r.add(&people[i])
	}
	r.log.Info("Identity cache preloaded", zap.Int("people", len(people)))
	return nil
}

func (r *IdentityResolver) add(p *models.Person) {
	key := NormalizeName(p.Name)
	if key == "" {
		return
	}
	if _, exists := r.byNorm[key]; !exists {
		r.byNorm[key] = p
	}
	for _, email := range p.EmailList() {
		r.byEmail[strings.ToLower(email)] = p
	}
}

// ByEmail looks up a person by a known e-mail address.
func (r *IdentityResolver) ByEmail(email string) *models.Person {
	return r.byEmail[strings.ToLower(strings.TrimSpace(email))]
}

// Resolve returns the person matching the incoming name, creating one when
// no acceptable match exists. An exact normalized-name hit wins first, then
// a known e-mail address. In strict mode only an exact normalized match is
// accepted beyond that; otherwise a token-sort similarity >= 90 wins. Returns nil
// when the name is blank or the create fails; callers skip the membership
// in that case.
func (r *IdentityResolver) Resolve(name, email string, strict bool) *models.Person {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	incoming := NormalizeName(name)
	if incoming == "" {
		return nil
	}

	if p, ok := r.byNorm[incoming]; ok {
		return p
	}
	if email = strings.TrimSpace(email); email != "" {
		if p := r.ByEmail(email); p != nil {
			return p
		}
	}

	// Ties at the best score resolve to the lowest person id so the same
	// incoming name always maps to the same person within a run.
	var best *models.Person
	bestScore := 0
	for cached, p := range r.byNorm {
		s := TokenSortRatio(incoming, cached)
		if s > bestScore || (s == bestScore && best != nil && p.ID < best.ID) {
			bestScore = s
			best = p
		}
	}
	if best != nil {
		if strict && bestScore == 100 {
			return best
		}
		if !strict && bestScore >= fuzzyAcceptScore {
			return best
		}
	}

	person := &models.Person{Name: name}
	if email != "" {
		person.Emails = email
	}
	if err := r.db.Create(person).Error; err != nil {
		r.log.Warn("Failed to create person", zap.String("name", name), zap.Error(err))
		return nil
	}
	r.add(person)
	personsCreatedCounter.Inc()
	return person
}

// Update persists changed person attributes (curriculum id, new e-mails)
// and refreshes the e-mail index.
func (r *IdentityResolver) Update(p *models.Person) {
	if err := r.db.Save(p).Error; err != nil {
		r.log.Warn("Failed to update person", zap.Uint("id", p.ID), zap.Error(err))
		return
	}
	for _, email := range p.EmailList() {
		r.byEmail[strings.ToLower(email)] = p
	}
}
