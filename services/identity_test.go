package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"research-hub/models"
)

func seedPerson(t *testing.T, r *IdentityResolver, name string) *models.Person {
	t.Helper()
	p := &models.Person{Name: name}
	require.NoError(t, r.db.Create(p).Error)
	require.NoError(t, r.Preload())
	return p
}

func TestResolveFuzzyNonStrict(t *testing.T) {
	db := newTestDB(t)
	r := NewIdentityResolver(db, zap.NewNop())
	seeded := seedPerson(t, r, "Paulo Sergio Junior")

	// An accented re-spelling collapses onto the cached person.
	got := r.Resolve("Pãulo Sérgio Junior", "", false)
	require.NotNil(t, got)
	assert.Equal(t, seeded.ID, got.ID)

	var count int64
	db.Model(&models.Person{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestResolveStrictRejectsNearMatch(t *testing.T) {
	db := newTestDB(t)
	r := NewIdentityResolver(db, zap.NewNop())
	seeded := seedPerson(t, r, "Jose Silva")

	got := r.Resolve("Jose da Silva", "", true)
	require.NotNil(t, got)
	assert.NotEqual(t, seeded.ID, got.ID)
	assert.Equal(t, "Jose da Silva", got.Name)

	var count int64
	db.Model(&models.Person{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestResolveNonStrictAcceptsNearMatch(t *testing.T) {
	db := newTestDB(t)
	r := NewIdentityResolver(db, zap.NewNop())
	seeded := seedPerson(t, r, "Ana Carolina Pereira Santos")

	// A single-letter typo stays above the acceptance score.
	got := r.Resolve("Ana Carolina Perleira Santos", "", false)
	require.NotNil(t, got)
	assert.Equal(t, seeded.ID, got.ID)
}

func TestResolveDeterministic(t *testing.T) {
	db := newTestDB(t)
	r := NewIdentityResolver(db, zap.NewNop())
	seedPerson(t, r, "Paulo Sergio Junior")
	seedPerson(t, r, "Paula Sergia Junqueira")

	first := r.Resolve("Paulo Sergio Junior", "", false)
	second := r.Resolve("Paulo Sergio Junior", "", false)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveFuzzyTieBreaksOnLowestID(t *testing.T) {
	db := newTestDB(t)
	r := NewIdentityResolver(db, zap.NewNop())
	lower := seedPerson(t, r, "Joao Silva Xac")
	seedPerson(t, r, "Joao Silva Xab")

	// Both cached names score the same against the incoming one; the
	// winner must always be the person with the lower id.
	for i := 0; i < 50; i++ {
		got := r.Resolve("Joao Silva Xaa", "", false)
		require.NotNil(t, got)
		assert.Equal(t, lower.ID, got.ID)
	}

	var count int64
	db.Model(&models.Person{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestResolveMatchesByEmail(t *testing.T) {
	db := newTestDB(t)
	r := NewIdentityResolver(db, zap.NewNop())
	p := &models.Person{Name: "Maria Clara Nunes", Emails: "mclara@example.edu"}
	require.NoError(t, db.Create(p).Error)
	require.NoError(t, r.Preload())

	// A maiden-name spelling misses the name cache but hits the e-mail
	// index before any fuzzy scan.
	got := r.Resolve("Maria Clara Azevedo", "MClara@example.edu", true)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)

	var count int64
	db.Model(&models.Person{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestResolveCreatesWithEmail(t *testing.T) {
	db := newTestDB(t)
	r := NewIdentityResolver(db, zap.NewNop())

	got := r.Resolve("Nova Pessoa", "nova@example.edu", true)
	require.NotNil(t, got)
	assert.Equal(t, []string{"nova@example.edu"}, got.EmailList())

	// Freshly created people are immediately indexed by e-mail.
	assert.Equal(t, got.ID, r.ByEmail("NOVA@example.edu").ID)
}

func TestResolveBlankName(t *testing.T) {
	db := newTestDB(t)
	r := NewIdentityResolver(db, zap.NewNop())

	assert.Nil(t, r.Resolve("", "", false))
	assert.Nil(t, r.Resolve("   ", "", true))
	assert.Nil(t, r.Resolve("1234", "", false))
}
