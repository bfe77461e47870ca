package programme

import (
	"encoding/csv"
	"fmt"
	"mhollis/stable-app/internal/domain"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MaxWeeks bounds how long a single programme may run.
const MaxWeeks = 52

// Canonical column names after header normalization and alias resolution.
const (
	colWeek            = "week"
	colDay             = "day"
	colTitle           = "title"
	colCategory        = "category"
	colDurationMin     = "duration_min"
	colDurationMax     = "duration_max"
	colIntensityLabel  = "intensity_label"
	colIntensityRpeMin = "intensity_rpe_min"
	colIntensityRpeMax = "intensity_rpe_max"
	colBlocks          = "blocks"
	colSubstitution    = "substitution"
	colManualRef       = "manual_ref"
)

// requiredColumns must all be present after alias resolution or parsing fails
// before any row is looked at.
var requiredColumns = []string{colWeek, colDay, colTitle, colCategory}

// headerAliases maps normalized header names to canonical column names.
// Kept as a flat lookup table so adding a spreadsheet dialect is a one-line change.
var headerAliases = map[string]string{
	"week":              colWeek,
	"wk":                colWeek,
	"week_no":           colWeek,
	"week_number":       colWeek,
	"day":               colDay,
	"day_of_week":       colDay,
	"weekday":           colDay,
	"dow":               colDay,
	"title":             colTitle,
	"session":           colTitle,
	"session_title":     colTitle,
	"name":              colTitle,
	"workout":           colTitle,
	"category":          colCategory,
	"type":              colCategory,
	"session_type":      colCategory,
	"discipline":        colCategory,
	"duration":          colDurationMin,
	"duration_min":      colDurationMin,
	"min_duration":      colDurationMin,
	"time":              colDurationMin,
	"duration_max":      colDurationMax,
	"max_duration":      colDurationMax,
	"intensity":         colIntensityLabel,
	"intensity_label":   colIntensityLabel,
	"effort":            colIntensityLabel,
	"rpe":               colIntensityRpeMin,
	"rpe_min":           colIntensityRpeMin,
	"min_rpe":           colIntensityRpeMin,
	"intensity_rpe_min": colIntensityRpeMin,
	"rpe_max":           colIntensityRpeMax,
	"max_rpe":           colIntensityRpeMax,
	"intensity_rpe_max": colIntensityRpeMax,
	"blocks":            colBlocks,
	"segments":          colBlocks,
	"structure":         colBlocks,
	"substitution":      colSubstitution,
	"substitute":        colSubstitution,
	"alternative":       colSubstitution,
	"alt":               colSubstitution,
	"manual_ref":        colManualRef,
	"manual_reference":  colManualRef,
	"manual":            colManualRef,
	"reference":         colManualRef,
	"ref":               colManualRef,
}

// dayNames resolves day-of-week words to 1 (Mon) - 7 (Sun).
var dayNames = map[string]int{
	"mon": 1, "monday": 1,
	"tue": 2, "tues": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thur": 4, "thurs": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
	"sun": 7, "sunday": 7,
}

var headerSeparators = regexp.MustCompile(`[\s-]+`)

// Result is the outcome of parsing one spreadsheet. Parsing is all-or-nothing:
// if any diagnostic is fatal, Entries is empty and NumWeeks is zero.
type Result struct {
	Entries     []domain.DayEntry
	NumWeeks    int
	Diagnostics []string
}

// OK reports whether the parse succeeded (warnings only).
func (r Result) OK() bool {
	for _, d := range r.Diagnostics {
		if !strings.HasPrefix(d, "Warning:") {
			return false
		}
	}
	return true
}

// Warnings returns the non-fatal diagnostics.
func (r Result) Warnings() []string {
	var w []string
	for _, d := range r.Diagnostics {
		if strings.HasPrefix(d, "Warning:") {
			w = append(w, d)
		}
	}
	return w
}

// Parse converts a raw, human-authored programme spreadsheet (CSV, semicolon-
// or tab-separated) into a sorted list of day entries. Sparse weeks are
// completed with synthesized rest days so authors only have to list training
// days. Fatal diagnostics are collected, not short-circuited, so the author
// sees every problem in one pass.
func Parse(raw string) Result {
	raw = strings.TrimPrefix(raw, "\ufeff") // strip UTF-8 BOM

	if strings.TrimSpace(raw) == "" {
		return failure("Input is empty")
	}

	delim := sniffDelimiter(headerLine(raw))

	reader := csv.NewReader(strings.NewReader(raw))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return failure(fmt.Sprintf("Malformed input: %v", err))
	}
	if len(records) == 0 {
		return failure("Input is empty")
	}

	columns, diags := resolveHeader(records[0])

	// Required columns are checked before any row work; all misses are reported together.
	fatalHeader := false
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			diags = append(diags, fmt.Sprintf("Missing required column: %q", required))
			fatalHeader = true
		}
	}
	if fatalHeader {
		return Result{Diagnostics: diags}
	}

	entries, rowDiags := parseRows(records[1:], columns)
	diags = append(diags, rowDiags...)

	for _, d := range diags {
		if !strings.HasPrefix(d, "Warning:") {
			return Result{Diagnostics: diags}
		}
	}

	entries, numWeeks := fillRestDays(entries)
	sortEntries(entries)

	return Result{Entries: entries, NumWeeks: numWeeks, Diagnostics: diags}
}

func failure(msg string) Result {
	return Result{Diagnostics: []string{msg}}
}

// headerLine returns the first physical line of the input, used only for
// delimiter sniffing.
func headerLine(raw string) string {
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSuffix(raw, "\r")
}

// sniffDelimiter picks the delimiter by counting unquoted occurrences in the
// header line. Tabs win when present and at least as frequent as the others;
// a semicolon beats a comma only when strictly more frequent.
func sniffDelimiter(header string) rune {
	var commas, semis, tabs int
	inQuotes := false
	for _, r := range header {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case r == ',':
			commas++
		case r == ';':
			semis++
		case r == '\t':
			tabs++
		}
	}
	if tabs > 0 && tabs >= commas && tabs >= semis {
		return '\t'
	}
	if semis > commas {
		return ';'
	}
	return ','
}

// normalizeHeader canonicalizes one raw header cell: lower-case, trim, strip a
// trailing "#", strip any parenthetical suffix like "(min)", and collapse
// whitespace/hyphens to underscores.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSpace(strings.TrimSuffix(h, "#"))
	if i := strings.IndexByte(h, '('); i >= 0 {
		h = strings.TrimSpace(h[:i])
	}
	return headerSeparators.ReplaceAllString(h, "_")
}

// resolveHeader maps canonical column names to their index in each record.
// Unknown columns produce warnings, never errors.
func resolveHeader(header []string) (map[string]int, []string) {
	columns := make(map[string]int, len(header))
	var diags []string
	for i, cell := range header {
		normalized := normalizeHeader(cell)
		if normalized == "" {
			continue
		}
		canonical, ok := headerAliases[normalized]
		if !ok {
			diags = append(diags, fmt.Sprintf("Warning: unknown column %q ignored", strings.TrimSpace(cell)))
			continue
		}
		if _, dup := columns[canonical]; dup {
			diags = append(diags, fmt.Sprintf("Warning: duplicate column %q ignored", strings.TrimSpace(cell)))
			continue
		}
		columns[canonical] = i
	}
	return columns, diags
}

func parseRows(records [][]string, columns map[string]int) ([]domain.DayEntry, []string) {
	var entries []domain.DayEntry
	var diags []string
	seen := make(map[[2]int]bool)

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	for n, record := range records {
		rowNum := n + 2 // 1-based, counting the header line
		if isBlankRow(record) {
			continue
		}

		rowOK := true
		fatal := func(format string, args ...any) {
			diags = append(diags, fmt.Sprintf("Row %d: ", rowNum)+fmt.Sprintf(format, args...))
			rowOK = false
		}

		week, err := parseWeek(field(record, colWeek))
		if err != nil {
			fatal("%v", err)
		}
		day, err := parseDay(field(record, colDay))
		if err != nil {
			fatal("%v", err)
		}

		title := field(record, colTitle)
		if title == "" {
			fatal("title must not be empty")
		}
		category := strings.ToLower(field(record, colCategory))
		if category == "" {
			fatal("category must not be empty")
		}

		rpeMin, err := parseRpe(field(record, colIntensityRpeMin))
		if err != nil {
			fatal("%v", err)
		}
		rpeMax, err := parseRpe(field(record, colIntensityRpeMax))
		if err != nil {
			fatal("%v", err)
		}

		if !rowOK {
			continue
		}

		if seen[[2]int{week, day}] {
			diags = append(diags, fmt.Sprintf("Duplicate entry for week %d day %d", week, day))
			continue
		}
		seen[[2]int{week, day}] = true

		entry := domain.DayEntry{
			Week:            week,
			Day:             day,
			Title:           title,
			Category:        category,
			DurationMin:     lenientInt(field(record, colDurationMin)),
			DurationMax:     lenientInt(field(record, colDurationMax)),
			IntensityLabel:  field(record, colIntensityLabel),
			IntensityRpeMin: rpeMin,
			IntensityRpeMax: rpeMax,
			Substitution:    field(record, colSubstitution),
			ManualRef:       field(record, colManualRef),
		}
		entry.Blocks = parseBlocks(field(record, colBlocks), entry)
		entries = append(entries, entry)
	}
	return entries, diags
}

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseWeek accepts bare integers and human forms: "Week 3", "W3", "#3".
func parseWeek(s string) (int, error) {
	cleaned := strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range []string{"week", "wk", "w", "#"} {
		if rest, ok := strings.CutPrefix(cleaned, prefix); ok {
			cleaned = strings.TrimSpace(rest)
			break
		}
	}
	week, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("unrecognized week value %q", s)
	}
	if week < 1 || week > MaxWeeks {
		return 0, fmt.Errorf("week %d out of range 1-%d", week, MaxWeeks)
	}
	return week, nil
}

// parseDay accepts 1-7 or day-of-week names, case-insensitive.
func parseDay(s string) (int, error) {
	cleaned := strings.ToLower(strings.TrimSpace(s))
	if day, ok := dayNames[cleaned]; ok {
		return day, nil
	}
	day, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("unrecognized day value %q", s)
	}
	if day < 1 || day > 7 {
		return 0, fmt.Errorf("day %d out of range 1-7", day)
	}
	return day, nil
}

// lenientInt parses optional numeric fields: leading digits are taken, so
// "45 min" reads as 45. Unparsable values become nil, never an error.
func lenientInt(s string) *int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// parseRpe is lenient like lenientInt, but a value that does parse must land
// in the 1-10 RPE scale.
func parseRpe(s string) (*int, error) {
	n := lenientInt(s)
	if n == nil {
		return nil, nil
	}
	if *n < 1 || *n > 10 {
		return nil, fmt.Errorf("RPE value %d out of range 1-10", *n)
	}
	return n, nil
}

// parseBlocks splits a pipe-separated blocks cell into named segments.
// "Warm-up: walk 10 | Main: trot sets" gives two named blocks; a segment
// without a colon becomes an unnamed "Main" block. An empty cell synthesizes a
// single default block from the entry's title.
func parseBlocks(s string, entry domain.DayEntry) []domain.Block {
	if strings.TrimSpace(s) == "" {
		name := "Main"
		if entry.IsRestDay() {
			name = "Rest"
		}
		return []domain.Block{{Name: name, Text: entry.Title}}
	}

	var blocks []domain.Block
	for _, segment := range strings.Split(s, "|") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		name, text, found := strings.Cut(segment, ":")
		if !found {
			blocks = append(blocks, domain.Block{Name: "Main", Text: segment})
			continue
		}
		blocks = append(blocks, domain.Block{
			Name: strings.TrimSpace(name),
			Text: strings.TrimSpace(text),
		})
	}
	return blocks
}

// fillRestDays completes every week from 1 to the observed maximum so that all
// seven days are present, synthesizing rest entries for the gaps. Sparse
// "training days only" spreadsheets become fully specified without the author
// having to enumerate rest days.
func fillRestDays(entries []domain.DayEntry) ([]domain.DayEntry, int) {
	numWeeks := 0
	present := make(map[[2]int]bool, len(entries))
	for _, e := range entries {
		if e.Week > numWeeks {
			numWeeks = e.Week
		}
		present[[2]int{e.Week, e.Day}] = true
	}

	for week := 1; week <= numWeeks; week++ {
		for day := 1; day <= 7; day++ {
			if present[[2]int{week, day}] {
				continue
			}
			entries = append(entries, domain.DayEntry{
				Week:     week,
				Day:      day,
				Title:    "Rest",
				Category: "rest",
				Blocks:   []domain.Block{{Name: "Rest", Text: "Rest"}},
			})
		}
	}
	return entries, numWeeks
}

func sortEntries(entries []domain.DayEntry) {
	// week then day; deterministic output is part of the contract.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Week != entries[j].Week {
			return entries[i].Week < entries[j].Week
		}
		return entries[i].Day < entries[j].Day
	})
}
