package activity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMarshalFragmentRoundTrip(t *testing.T) {
	rec := validRecord()
	rec.Events[0].Timeline = append(rec.Events[0].Timeline,
		Deadline{Deadline: "2025-09-30T23:59:59", Comment: "final results"})

	fragment := MarshalFragment(rec)

	var parsed []Record
	require.NoError(t, yaml.Unmarshal([]byte(fragment), &parsed))
	require.Len(t, parsed, 1)

	got := parsed[0]
	assert.Equal(t, rec.Title, got.Title)
	assert.Equal(t, rec.Description, got.Description)
	assert.Equal(t, rec.Category, got.Category)
	assert.Equal(t, rec.Tags, got.Tags)
	require.Len(t, got.Events, 1)
	assert.Equal(t, rec.Events[0].Year, got.Events[0].Year)
	assert.Equal(t, rec.Events[0].ID, got.Events[0].ID)
	assert.Equal(t, rec.Events[0].Link, got.Events[0].Link)
	assert.Equal(t, rec.Events[0].Timezone, got.Events[0].Timezone)
	assert.Equal(t, rec.Events[0].Date, got.Events[0].Date)
	assert.Equal(t, rec.Events[0].Place, got.Events[0].Place)
	assert.Equal(t, rec.Events[0].Timeline, got.Events[0].Timeline)
}

func TestMarshalFragmentShape(t *testing.T) {
	fragment := MarshalFragment(validRecord())

	assert.True(t, strings.HasPrefix(fragment, "- title: OpenConf 2025\n"))
	assert.NotContains(t, fragment, "---", "fragment must not carry document markers")
	assert.False(t, strings.HasSuffix(fragment, "\n"))
	assert.Contains(t, fragment, "        - deadline: '2025-06-01T18:00:00'\n")
	assert.Contains(t, fragment, "          comment: 'CFP closes'\n")
	// Unquoted scalars outside of timeline entries.
	assert.Contains(t, fragment, "      timezone: Europe/Berlin\n")
}

func TestMarshalFragmentEscapesQuotes(t *testing.T) {
	rec := validRecord()
	rec.Events[0].Timeline[0].Comment = "maintainers' review"

	fragment := MarshalFragment(rec)
	assert.Contains(t, fragment, "comment: 'maintainers'' review'")

	var parsed []Record
	require.NoError(t, yaml.Unmarshal([]byte(fragment), &parsed))
	assert.Equal(t, "maintainers' review", parsed[0].Events[0].Timeline[0].Comment)
}

func TestMarshalFragmentDeterministic(t *testing.T) {
	rec := validRecord()
	assert.Equal(t, MarshalFragment(rec), MarshalFragment(rec))
}
