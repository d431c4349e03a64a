package repositories

import (
	"testing"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestManageFilter_NoSearch(t *testing.T) {
	q := models.NewSearchQuery("", "", models.LevelManager, 1, 10)

	where, args := manageFilter(q)

	assert.Equal(t, "user_level < $1", where)
	assert.Equal(t, []any{int16(6)}, args)
}

func TestManageFilter_Search(t *testing.T) {
	q := models.NewSearchQuery("last_name", "O'Neil", models.LevelAdmin, 3, 10)

	where, args := manageFilter(q)

	assert.Equal(t, "user_level < $1 AND last_name ILIKE $2", where)
	assert.Equal(t, []any{int16(9), "%O'Neil%"}, args)
}

func TestManageFilter_DroppedFieldIsUnfiltered(t *testing.T) {
	q := models.NewSearchQuery("bogus_field", "x", models.LevelAdmin, 1, 10)

	where, args := manageFilter(q)

	assert.Equal(t, "user_level < $1", where)
	assert.Len(t, args, 1)
}

func TestManageFilter_UnvalidatedFieldNeverReachesSQL(t *testing.T) {
	// A query constructed without NewSearchQuery still cannot inject a column
	q := models.SearchQuery{SearchIn: "password_hash", SearchFor: "x", ActorLevel: models.LevelAdmin, Page: 1, PerPage: 10}

	where, _ := manageFilter(q)

	assert.NotContains(t, where, "password_hash")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_a\\b`, escapeLike(`100%_a\b`))
}
