package service

import (
	"context"
	"mhollis/stable-app/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const oneWeekCSV = `week,day,title,category,duration_min,duration_max,rpe,rpe_max
1,1,Flatwork basics,flatwork,30,45,4,6
1,2,Hacking out,hacking,60,,3,
1,4,Pole work,polework,40,,5,7
1,6,Lunging,groundwork,25,35,4,
`

type schedFixture struct {
	db      *memDB
	svc     ScheduleService
	logSvc  LogService
	manager primitive.ObjectID
	horse   *domain.Horse
}

func newSchedFixture(t *testing.T) *schedFixture {
	t.Helper()
	db := newMemDB()
	horseRepo := &fakeHorseRepo{db}
	workItemRepo := &fakeWorkItemRepo{db}
	calendarRepo := &fakeCalendarRepo{db}
	logRepo := &fakeLogRepo{db}

	manager := primitive.NewObjectID()
	horse := &domain.Horse{OwnerID: manager, Name: "Copper"}
	_, err := horseRepo.Create(context.Background(), horse)
	require.NoError(t, err)

	svc := NewScheduleService(
		&fakeScheduleRepo{db},
		&fakePlanRepo{db},
		workItemRepo,
		calendarRepo,
		logRepo,
		horseRepo,
		&fakeUploadRepo{db},
		&fakeStorage{},
		&fakeTxn{db},
	)
	logSvc := NewLogService(logRepo, calendarRepo, workItemRepo, horseRepo)
	return &schedFixture{db: db, svc: svc, logSvc: logSvc, manager: manager, horse: horse}
}

// publishedSchedule creates and publishes a one-week schedule for the fixture manager.
func (f *schedFixture) publishedSchedule(t *testing.T) *domain.Schedule {
	t.Helper()
	ctx := context.Background()
	schedule, result, err := f.svc.CreateSchedule(ctx, f.manager, "Autumn fitness", oneWeekCSV)
	require.NoError(t, err)
	require.True(t, result.OK())
	schedule, err = f.svc.PublishSchedule(ctx, f.manager, schedule.ID)
	require.NoError(t, err)
	return schedule
}

func monday() time.Time {
	return time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC) // a Monday
}

func TestApplyScheduleMaterializesFullWeek(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)

	result, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.NoError(t, err)
	assert.Equal(t, 7, result.WorkItemCount, "rest autofill should pad the week to 7 items")
	assert.Zero(t, result.ForkedScheduleVersion)

	items, err := f.svc.GetWorkItems(ctx, f.manager, result.PlanID)
	require.NoError(t, err)
	require.Len(t, items, 7)

	for i, item := range items {
		assert.Equal(t, 1, item.Week)
		assert.Equal(t, i+1, item.Day)
		require.NotNil(t, item.ScheduledDate)
		assert.Equal(t, monday().AddDate(0, 0, i), *item.ScheduledDate)
		assert.Equal(t, domain.SlotAM, item.Slot)
		assert.Equal(t, item.BaselineData, item.CurrentData)
	}
	// Day 3 was absent from the sheet, so it materializes as a rest item.
	assert.False(t, items[0].IsRest)
	assert.True(t, items[2].IsRest)
	assert.Equal(t, "Rest", items[2].CurrentData.Title)

	records, err := f.svc.GetCalendar(ctx, f.manager, f.horse.ID, monday(), monday().AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, records, 7)
	assert.Equal(t, "Flatwork basics", records[0].Label)
	require.NotNil(t, records[0].DurationMinutes)
	assert.Equal(t, 30, *records[0].DurationMinutes, "calendar carries the range minimum")
	require.NotNil(t, records[0].IntensityRpe)
	assert.Equal(t, 4, *records[0].IntensityRpe)

	plans, err := f.svc.GetPlansForHorse(ctx, f.manager, f.horse.ID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, domain.PlanActive, plans[0].Status)
	assert.Equal(t, schedule.ID, plans[0].ScheduleID)
	assert.Equal(t, 1, plans[0].ScheduleVersion)
	assert.Nil(t, plans[0].SourcePlanID)
}

func TestApplyScheduleNormalizesStartDateToUTCMidnight(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)

	zoned := time.Date(2026, 9, 7, 22, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	result, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, zoned)
	require.NoError(t, err)

	items, err := f.svc.GetWorkItems(ctx, f.manager, result.PlanID)
	require.NoError(t, err)
	assert.Equal(t, monday(), *items[0].ScheduledDate)
}

func TestApplyScheduleConflictReportsDatesAndWritesNothing(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)

	// Occupy Wednesday and Tuesday AM of the target week, out of order.
	calendarRepo := &fakeCalendarRepo{f.db}
	for _, offset := range []int{2, 1} {
		_, err := calendarRepo.Create(ctx, &domain.CalendarRecord{
			HorseID: f.horse.ID,
			Date:    monday().AddDate(0, 0, offset),
			Slot:    domain.SlotAM,
			Label:   "Vet visit",
		})
		require.NoError(t, err)
	}

	_, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	var conflict *ScheduleConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"2026-09-08", "2026-09-09"}, conflict.Dates)

	assert.Empty(t, f.db.plans, "a conflicting apply must not create a plan")
	assert.Empty(t, f.db.items)
	assert.Len(t, f.db.records, 2, "only the pre-existing records remain")
}

func TestApplyScheduleRejectsDraft(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule, _, err := f.svc.CreateSchedule(ctx, f.manager, "Draft only", oneWeekCSV)
	require.NoError(t, err)

	_, err = f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	assert.ErrorIs(t, err, ErrScheduleNotPublished)
}

func TestApplyScheduleRejectsForeignHorse(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)

	other := &domain.Horse{OwnerID: primitive.NewObjectID(), Name: "Not mine"}
	_, err := (&fakeHorseRepo{f.db}).Create(ctx, other)
	require.NoError(t, err)

	_, err = f.svc.ApplySchedule(ctx, f.manager, schedule.ID, other.ID, monday())
	assert.ErrorIs(t, err, ErrHorseAccessDenied)
}

func TestApplyScheduleRollsBackOnStoreFailure(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)

	f.db.failRecordLabel = "Pole work"
	_, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.Error(t, err)

	assert.Empty(t, f.db.plans, "partial materialization must be rolled back")
	assert.Empty(t, f.db.items)
	assert.Empty(t, f.db.records)
}

func TestCreateScheduleRejectsUnparsableSheet(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()

	_, result, err := f.svc.CreateSchedule(ctx, f.manager, "Broken", "day,title,category\n1,Hack,hacking\n")
	assert.ErrorIs(t, err, ErrScheduleParseFailed)
	assert.False(t, result.OK())
	assert.Empty(t, f.db.schedules)
}

func TestRepeatPlanOriginalReusesScheduleVersion(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)

	first, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.NoError(t, err)

	nextWeek := monday().AddDate(0, 0, 7)
	repeat, err := f.svc.RepeatPlan(ctx, f.manager, first.PlanID, nextWeek, false)
	require.NoError(t, err)
	assert.Equal(t, 7, repeat.WorkItemCount)
	assert.Zero(t, repeat.ForkedScheduleVersion)
	assert.Len(t, f.db.schedules, 1, "original repeat must not fork a new version")

	plan, ok := f.db.plans[repeat.PlanID]
	require.True(t, ok)
	assert.Equal(t, schedule.ID, plan.ScheduleID)
	assert.Equal(t, 1, plan.ScheduleVersion)
	require.NotNil(t, plan.SourcePlanID)
	assert.Equal(t, first.PlanID, *plan.SourcePlanID)
	assert.Equal(t, nextWeek, plan.StartDate)
}

func TestRepeatPlanAmendedWithoutEditsForksEquivalentSchedule(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)

	first, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.NoError(t, err)

	repeat, err := f.svc.RepeatPlan(ctx, f.manager, first.PlanID, monday().AddDate(0, 0, 7), true)
	require.NoError(t, err)
	assert.Equal(t, 2, repeat.ForkedScheduleVersion)

	source, err := f.svc.GetSchedule(ctx, f.manager, schedule.ID)
	require.NoError(t, err)
	plan := f.db.plans[repeat.PlanID]
	fork, err := f.svc.GetSchedule(ctx, f.manager, plan.ScheduleID)
	require.NoError(t, err)

	assert.Equal(t, source.Name, fork.Name)
	assert.Equal(t, 2, fork.Version)
	assert.Equal(t, domain.SchedulePublished, fork.Status)
	require.NotNil(t, fork.ForkedFromID)
	assert.Equal(t, source.ID, *fork.ForkedFromID)
	assert.Equal(t, source.NumWeeks, fork.NumWeeks)
	// No edits were made, so the fork's content is equivalent to the source.
	assert.Equal(t, source.Entries, fork.Entries)
}

func TestRepeatPlanAmendedCarriesWorkItemEdits(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)

	first, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.NoError(t, err)

	items, err := f.svc.GetWorkItems(ctx, f.manager, first.PlanID)
	require.NoError(t, err)
	edited := items[1].CurrentData
	edited.Title = "Long hack with hills"
	edited.Category = "Hacking"
	_, err = f.svc.UpdateWorkItem(ctx, f.manager, items[1].ID, edited)
	require.NoError(t, err)

	repeat, err := f.svc.RepeatPlan(ctx, f.manager, first.PlanID, monday().AddDate(0, 0, 7), true)
	require.NoError(t, err)

	plan := f.db.plans[repeat.PlanID]
	fork, err := f.svc.GetSchedule(ctx, f.manager, plan.ScheduleID)
	require.NoError(t, err)
	assert.Equal(t, "Long hack with hills", fork.Entries[1].Title)
	assert.Equal(t, "hacking", fork.Entries[1].Category, "category is stored lower-cased")
	assert.Equal(t, 1, fork.Entries[1].Week)
	assert.Equal(t, 2, fork.Entries[1].Day)

	// The new plan's items take the edited content as their baseline.
	newItems, err := f.svc.GetWorkItems(ctx, f.manager, repeat.PlanID)
	require.NoError(t, err)
	assert.Equal(t, "Long hack with hills", newItems[1].BaselineData.Title)
}

func TestRepeatPlanConflictLeavesNoForkBehind(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)

	first, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.NoError(t, err)

	// Repeating onto the same week collides with the first plan's records.
	_, err = f.svc.RepeatPlan(ctx, f.manager, first.PlanID, monday(), true)
	var conflict *ScheduleConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Len(t, conflict.Dates, 7)
	assert.Len(t, f.db.schedules, 1, "aborted amended repeat must not persist a fork")
}

func TestRepeatPlanUnknownPlan(t *testing.T) {
	f := newSchedFixture(t)
	_, err := f.svc.RepeatPlan(context.Background(), f.manager, primitive.NewObjectID(), monday(), false)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSetPlanStatusTransitions(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)
	result, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.NoError(t, err)

	err = f.svc.SetPlanStatus(ctx, f.manager, result.PlanID, domain.PlanActive)
	assert.ErrorIs(t, err, ErrInvalidPlanStatus, "active is not a valid target")

	require.NoError(t, f.svc.SetPlanStatus(ctx, f.manager, result.PlanID, domain.PlanCompleted))
	assert.Equal(t, domain.PlanCompleted, f.db.plans[result.PlanID].Status)

	err = f.svc.SetPlanStatus(ctx, f.manager, result.PlanID, domain.PlanCancelled)
	assert.ErrorIs(t, err, ErrPlanNotActive, "terminal states admit no further transitions")
}

func TestRemoveAppliedPlanKeepsLogsAndIsIdempotent(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)
	result, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.NoError(t, err)

	// A rider files a log against Monday's session before the plan is removed.
	require.NoError(t, (&fakeHorseRepo{f.db}).AddRider(ctx, f.horse.ID, primitive.NewObjectID()))
	riderID := f.db.horses[f.horse.ID].RiderIDs[0]
	records, err := f.svc.GetCalendar(ctx, f.manager, f.horse.ID, monday(), monday())
	require.NoError(t, err)
	require.Len(t, records, 1)
	notes := "Forward and relaxed"
	log, err := f.logSvc.LogSession(ctx, riderID, records[0].ID, LogInput{Notes: notes}, false)
	require.NoError(t, err)
	require.NotNil(t, log.CalendarRecordID)

	removed, err := f.svc.RemoveAppliedPlan(ctx, f.manager, result.PlanID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, removed)
	assert.Empty(t, f.db.plans)
	assert.Empty(t, f.db.items)
	assert.Empty(t, f.db.records)

	// The log survives with its calendar back-reference nulled out.
	kept := f.db.logs[log.ID]
	assert.Nil(t, kept.CalendarRecordID)
	assert.Equal(t, notes, kept.Notes)

	// Removing again is a no-op, not an error.
	removed, err = f.svc.RemoveAppliedPlan(ctx, f.manager, result.PlanID)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestUpdateWorkItemReprojectsCalendarRecord(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)
	result, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.NoError(t, err)

	items, err := f.svc.GetWorkItems(ctx, f.manager, result.PlanID)
	require.NoError(t, err)
	original := items[0]

	edited := original.CurrentData
	edited.Title = "Transitions session"
	edited.DurationMin = intPtr(20)
	edited.DurationMax = intPtr(30)
	edited.Week = 9 // Must be ignored; position is immutable.
	edited.Day = 9

	updated, err := f.svc.UpdateWorkItem(ctx, f.manager, original.ID, edited)
	require.NoError(t, err)
	assert.Equal(t, original.Week, updated.CurrentData.Week)
	assert.Equal(t, original.Day, updated.CurrentData.Day)
	assert.Equal(t, "Flatwork basics", updated.BaselineData.Title, "baseline never changes")

	records, err := f.svc.GetCalendar(ctx, f.manager, f.horse.ID, monday(), monday())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Transitions session", records[0].Label)
	require.NotNil(t, records[0].DurationMinutes)
	assert.Equal(t, 20, *records[0].DurationMinutes)

	// Reset restores both the item and its record from the baseline.
	reset, err := f.svc.ResetWorkItem(ctx, f.manager, original.ID)
	require.NoError(t, err)
	assert.Equal(t, reset.BaselineData, reset.CurrentData)
	records, err = f.svc.GetCalendar(ctx, f.manager, f.horse.ID, monday(), monday())
	require.NoError(t, err)
	assert.Equal(t, "Flatwork basics", records[0].Label)
	assert.Equal(t, 30, *records[0].DurationMinutes)
}

func TestUpdateWorkItemValidatesContent(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)
	result, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.NoError(t, err)

	items, err := f.svc.GetWorkItems(ctx, f.manager, result.PlanID)
	require.NoError(t, err)
	blank := items[0].CurrentData
	blank.Title = ""
	_, err = f.svc.UpdateWorkItem(ctx, f.manager, items[0].ID, blank)
	assert.Error(t, err)
}

func TestScheduleLifecycle(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()

	schedule, _, err := f.svc.CreateSchedule(ctx, f.manager, "Winter base", oneWeekCSV)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleDraft, schedule.Status)
	assert.Equal(t, 1, schedule.Version)
	assert.Equal(t, 1, schedule.NumWeeks)
	require.Len(t, schedule.Entries, 7)

	_, err = f.svc.ArchiveSchedule(ctx, f.manager, schedule.ID)
	assert.ErrorIs(t, err, ErrScheduleNotPublished, "drafts cannot be archived")

	published, err := f.svc.PublishSchedule(ctx, f.manager, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SchedulePublished, published.Status)

	_, err = f.svc.PublishSchedule(ctx, f.manager, schedule.ID)
	assert.ErrorIs(t, err, ErrScheduleNotDraft)

	archived, err := f.svc.ArchiveSchedule(ctx, f.manager, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleArchived, archived.Status)

	_, err = f.svc.GetSchedule(ctx, primitive.NewObjectID(), schedule.ID)
	assert.ErrorIs(t, err, ErrScheduleAccessDenied)
}

func TestScheduleSourceArchiveRoundTrip(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)

	_, err := f.svc.GetSourceDownloadURL(ctx, f.manager, schedule.ID)
	assert.Error(t, err, "no source sheet has been archived yet")

	resp, err := f.svc.GenerateSourceUploadURL(ctx, f.manager, schedule.ID, "text/csv")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.UploadURL)
	assert.NotEmpty(t, resp.ObjectKey)

	err = f.svc.ConfirmSourceUpload(ctx, f.manager, schedule.ID, resp.ObjectKey, "autumn.csv", 512, "text/csv")
	require.NoError(t, err)

	url, err := f.svc.GetSourceDownloadURL(ctx, f.manager, schedule.ID)
	require.NoError(t, err)
	assert.Contains(t, url, resp.ObjectKey)

	require.Len(t, f.db.uploads, 1)
	for _, up := range f.db.uploads {
		assert.Equal(t, domain.UploadSpreadsheet, up.Purpose)
		assert.Equal(t, resp.ObjectKey, up.S3ObjectKey)
	}
}

func TestLogSessionFillPlannedUsesRangeMidpoint(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()
	schedule := f.publishedSchedule(t)
	_, err := f.svc.ApplySchedule(ctx, f.manager, schedule.ID, f.horse.ID, monday())
	require.NoError(t, err)

	records, err := f.svc.GetCalendar(ctx, f.manager, f.horse.ID, monday(), monday())
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Monday is "Flatwork basics": duration 30-45, RPE 4-6.
	log, err := f.logSvc.LogSession(ctx, f.manager, records[0].ID, LogInput{}, true)
	require.NoError(t, err)
	require.NotNil(t, log.DurationMinutes)
	assert.Equal(t, 37, *log.DurationMinutes)
	require.NotNil(t, log.Rpe)
	assert.Equal(t, 5, *log.Rpe)

	// Explicit input always wins over the planned fill.
	log, err = f.logSvc.LogSession(ctx, f.manager, records[0].ID, LogInput{DurationMinutes: intPtr(50)}, true)
	require.NoError(t, err)
	assert.Equal(t, 50, *log.DurationMinutes)
	assert.Equal(t, 5, *log.Rpe)
}

func intPtr(v int) *int { return &v }
