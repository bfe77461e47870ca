package programme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinimalSparseWeek(t *testing.T) {
	csv := "week,day,title,category\n" +
		"1,1,Flatwork basics,flatwork\n" +
		"1,2,Hack out,hacking\n" +
		"1,4,Pole work,jumping\n" +
		"1,5,Lunge,groundwork\n" +
		"1,6,Long hack,hacking\n"

	res := Parse(csv)
	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
	assert.Equal(t, 1, res.NumWeeks)
	require.Len(t, res.Entries, 7)

	// Days 3 and 7 were absent and must be auto-filled as rest days.
	byDay := map[int]int{}
	for i, e := range res.Entries {
		byDay[e.Day] = i
	}
	for _, day := range []int{3, 7} {
		e := res.Entries[byDay[day]]
		assert.Equal(t, "Rest", e.Title)
		assert.Equal(t, "rest", e.Category)
		assert.True(t, e.IsRestDay())
		require.Len(t, e.Blocks, 1)
		assert.Equal(t, "Rest", e.Blocks[0].Name)
	}
}

func TestParseMissingRequiredColumn(t *testing.T) {
	csv := "week,day,title\n1,1,Flatwork\n"

	res := Parse(csv)
	assert.False(t, res.OK())
	assert.Empty(t, res.Entries)
	assert.Zero(t, res.NumWeeks)
	assert.Contains(t, res.Diagnostics, `Missing required column: "category"`)
}

func TestParseAllMissingColumnsReported(t *testing.T) {
	res := Parse("foo,bar\n1,2\n")
	assert.False(t, res.OK())

	var fatals []string
	for _, d := range res.Diagnostics {
		if !strings.HasPrefix(d, "Warning:") {
			fatals = append(fatals, d)
		}
	}
	// All four required columns are reported at once, not one per parse attempt.
	assert.Len(t, fatals, 4)
}

func TestParseHeaderAliases(t *testing.T) {
	csv := "Week #,Day of Week,Session,Type,Duration (min),RPE\n" +
		"Week 1,Mon,Canter sets,conditioning,45,6\n"

	res := Parse(csv)
	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
	require.Len(t, res.Entries, 7)

	e := res.Entries[0]
	assert.Equal(t, 1, e.Week)
	assert.Equal(t, 1, e.Day)
	assert.Equal(t, "Canter sets", e.Title)
	assert.Equal(t, "conditioning", e.Category)
	require.NotNil(t, e.DurationMin)
	assert.Equal(t, 45, *e.DurationMin)
	require.NotNil(t, e.IntensityRpeMin)
	assert.Equal(t, 6, *e.IntensityRpeMin)
}

func TestParseSemicolonDelimiter(t *testing.T) {
	csv := "week;day;title;category\n1;1;Schooling;flatwork\n"

	res := Parse(csv)
	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
	assert.Equal(t, "Schooling", res.Entries[0].Title)
}

func TestParseTabDelimiter(t *testing.T) {
	csv := "week\tday\ttitle\tcategory\n1\t1\tHill work\tconditioning\n"

	res := Parse(csv)
	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
	assert.Equal(t, "Hill work", res.Entries[0].Title)
}

func TestSniffDelimiterIgnoresQuoted(t *testing.T) {
	// The semicolons inside the quoted field must not outvote the commas.
	assert.Equal(t, ',', sniffDelimiter(`week,day,"notes; with; semis",category`))
	assert.Equal(t, ';', sniffDelimiter(`week;day;title;category`))
	assert.Equal(t, '\t', sniffDelimiter("week\tday\ttitle"))
}

func TestParseQuotedFields(t *testing.T) {
	csv := "week,day,title,category,blocks\n" +
		`1,1,"Grid work, raised poles",jumping,"Warm-up: walk, trot | Main: grid ""A"" twice"` + "\n"

	res := Parse(csv)
	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)

	e := res.Entries[0]
	assert.Equal(t, "Grid work, raised poles", e.Title)
	require.Len(t, e.Blocks, 2)
	assert.Equal(t, "Warm-up", e.Blocks[0].Name)
	assert.Equal(t, "walk, trot", e.Blocks[0].Text)
	assert.Equal(t, `grid "A" twice`, e.Blocks[1].Text)
}

func TestParseBlockWithoutColonBecomesMain(t *testing.T) {
	csv := "week,day,title,category,blocks\n1,1,Hack,hacking,steady 40 minutes\n"

	res := Parse(csv)
	require.True(t, res.OK())
	require.Len(t, res.Entries[0].Blocks, 1)
	assert.Equal(t, "Main", res.Entries[0].Blocks[0].Name)
	assert.Equal(t, "steady 40 minutes", res.Entries[0].Blocks[0].Text)
}

func TestParseStripsBOM(t *testing.T) {
	csv := "\uFEFFweek,day,title,category\n1,1,Flatwork,flatwork\n"

	res := Parse(csv)
	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
}

func TestParseSkipsBlankRows(t *testing.T) {
	csv := "week,day,title,category\n1,1,Flatwork,flatwork\n\n   ,,,\n1,2,Hack,hacking\n"

	res := Parse(csv)
	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
	assert.Len(t, res.Entries, 7)
}

func TestParseDuplicateWeekDayFatal(t *testing.T) {
	csv := "week,day,title,category\n1,1,Flatwork,flatwork\n1,1,Hack,hacking\n"

	res := Parse(csv)
	assert.False(t, res.OK())
	assert.Empty(t, res.Entries)
	assert.Contains(t, res.Diagnostics, "Duplicate entry for week 1 day 1")
}

func TestParseUnknownColumnWarns(t *testing.T) {
	csv := "week,day,title,category,horse colour\n1,1,Flatwork,flatwork,bay\n"

	res := Parse(csv)
	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
	require.Len(t, res.Warnings(), 1)
	assert.Contains(t, res.Warnings()[0], "unknown column")
	assert.Len(t, res.Entries, 7)
}

func TestParseBadWeekAndDayFatal(t *testing.T) {
	csv := "week,day,title,category\nsoon,someday,Flatwork,flatwork\n"

	res := Parse(csv)
	assert.False(t, res.OK())
	assert.Empty(t, res.Entries)
	// Both problems on the row are reported.
	joined := strings.Join(res.Diagnostics, "\n")
	assert.Contains(t, joined, "week")
	assert.Contains(t, joined, "day")
}

func TestParseRpeOutOfRangeFatal(t *testing.T) {
	csv := "week,day,title,category,rpe\n1,1,Gallop,conditioning,14\n"

	res := Parse(csv)
	assert.False(t, res.OK())
	assert.Empty(t, res.Entries)
}

func TestParseLenientOptionalInts(t *testing.T) {
	csv := "week,day,title,category,duration\n1,1,Hack,hacking,about forty\n"

	res := Parse(csv)
	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
	assert.Nil(t, res.Entries[0].DurationMin)
}

func TestParseWeekHumanForms(t *testing.T) {
	for _, form := range []string{"3", "Week 3", "week 3", "W3", "#3", " wk 3 "} {
		week, err := parseWeek(form)
		require.NoError(t, err, "form %q", form)
		assert.Equal(t, 3, week, "form %q", form)
	}
	for _, bad := range []string{"", "zero", "0", "53", "-2"} {
		_, err := parseWeek(bad)
		assert.Error(t, err, "form %q", bad)
	}
}

func TestParseDayForms(t *testing.T) {
	cases := map[string]int{"1": 1, "Mon": 1, "monday": 1, "WED": 3, "Sun": 7, "7": 7}
	for form, want := range cases {
		day, err := parseDay(form)
		require.NoError(t, err, "form %q", form)
		assert.Equal(t, want, day, "form %q", form)
	}
	for _, bad := range []string{"", "0", "8", "midweek"} {
		_, err := parseDay(bad)
		assert.Error(t, err, "form %q", bad)
	}
}

func TestParseEmptyTitleOrCategoryFatal(t *testing.T) {
	res := Parse("week,day,title,category\n1,1,,flatwork\n")
	assert.False(t, res.OK())

	res = Parse("week,day,title,category\n1,1,Hack,\n")
	assert.False(t, res.OK())
}

func TestParseDeterministicOrder(t *testing.T) {
	csv := "week,day,title,category\n" +
		"2,3,B,flatwork\n" +
		"1,5,A,hacking\n" +
		"2,1,C,jumping\n"

	first := Parse(csv)
	second := Parse(csv)
	require.True(t, first.OK())
	require.Equal(t, first.Entries, second.Entries)

	// Sorted by (week, day), every week complete.
	assert.Equal(t, 2, first.NumWeeks)
	require.Len(t, first.Entries, 14)
	for i, e := range first.Entries {
		assert.Equal(t, i/7+1, e.Week)
		assert.Equal(t, i%7+1, e.Day)
	}
}

func TestParseEmptyInput(t *testing.T) {
	res := Parse("")
	assert.False(t, res.OK())
	assert.Empty(t, res.Entries)
}
