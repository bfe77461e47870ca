package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleStatus type for the schedule publishing lifecycle
type ScheduleStatus string

const (
	ScheduleDraft     ScheduleStatus = "draft"
	SchedulePublished ScheduleStatus = "published" // Immutable; can be applied to horses
	ScheduleArchived  ScheduleStatus = "archived"
)

// Block is one named text segment inside a day entry (e.g. warm-up / main / cool-down).
type Block struct {
	Name string `bson:"name" json:"name"`
	Text string `bson:"text" json:"text"`
}

// DayEntry is one scheduled day inside a programme, keyed by (week, day).
// The bson/json field names are the persisted wire format for schedule content
// and for work-item baseline/current snapshots, and must stay stable so content
// round-trips exactly through parse, storage and amended-repeat reconstruction.
type DayEntry struct {
	Week            int     `bson:"week" json:"week"`
	Day             int     `bson:"day" json:"day"` // 1 (Mon) - 7 (Sun)
	Title           string  `bson:"title" json:"title"`
	Category        string  `bson:"category" json:"category"` // Lower-cased, e.g. "flatwork", "hacking", "rest"
	DurationMin     *int    `bson:"durationMin,omitempty" json:"durationMin,omitempty"`
	DurationMax     *int    `bson:"durationMax,omitempty" json:"durationMax,omitempty"`
	IntensityLabel  string  `bson:"intensityLabel,omitempty" json:"intensityLabel,omitempty"`
	IntensityRpeMin *int    `bson:"intensityRpeMin,omitempty" json:"intensityRpeMin,omitempty"` // 1-10
	IntensityRpeMax *int    `bson:"intensityRpeMax,omitempty" json:"intensityRpeMax,omitempty"` // 1-10
	Blocks          []Block `bson:"blocks" json:"blocks"`
	Substitution    string  `bson:"substitution,omitempty" json:"substitution,omitempty"` // Alternate activity if the day can't run
	ManualRef       string  `bson:"manualRef,omitempty" json:"manualRef,omitempty"`       // Reference into the yard manual
}

// IsRestDay reports whether this entry is a rest/recovery day. All call sites
// derive rest behaviour through this predicate so they cannot disagree.
func (e DayEntry) IsRestDay() bool {
	switch e.Category {
	case "rest", "recovery":
		return true
	}
	return strings.EqualFold(e.Title, "rest")
}

// Schedule is one version of a training programme: an ordered set of day entries
// covering numWeeks full weeks. Published schedules are never edited; amended
// repeats fork a new version instead.
type Schedule struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	Version      int                 `bson:"version" json:"version"`
	Status       ScheduleStatus      `bson:"status" json:"status"`
	NumWeeks     int                 `bson:"numWeeks" json:"numWeeks"`
	Entries      []DayEntry          `bson:"entries" json:"entries"`
	ForkedFromID *primitive.ObjectID `bson:"forkedFromId,omitempty" json:"forkedFromId,omitempty"` // Source version for amended forks
	// Object key of the archived original spreadsheet file, if one was uploaded.
	SourceObjectKey string             `bson:"sourceObjectKey,omitempty" json:"-"`
	CreatedBy       primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsPublished reports whether the schedule can be applied to a horse.
func (s *Schedule) IsPublished() bool {
	return s.Status == SchedulePublished
}
