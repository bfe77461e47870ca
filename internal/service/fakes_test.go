package service

import (
	"context"
	"errors"
	"mhollis/stable-app/internal/domain"
	"mhollis/stable-app/internal/repository"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memDB is a value-typed in-memory stand-in for the mongo collections the
// scheduler touches. The fake transaction runner snapshots and restores it, so
// rollback semantics can be asserted without a real store.
type memDB struct {
	schedules map[primitive.ObjectID]domain.Schedule
	plans     map[primitive.ObjectID]domain.AppliedPlan
	items     map[primitive.ObjectID]domain.WorkItem
	records   map[primitive.ObjectID]domain.CalendarRecord
	logs      map[primitive.ObjectID]domain.SessionLog
	horses    map[primitive.ObjectID]domain.Horse
	uploads   map[primitive.ObjectID]domain.Upload

	// When set, calendar-record creation fails for this label, to simulate a
	// store failure mid-materialization.
	failRecordLabel string
}

func newMemDB() *memDB {
	return &memDB{
		schedules: map[primitive.ObjectID]domain.Schedule{},
		plans:     map[primitive.ObjectID]domain.AppliedPlan{},
		items:     map[primitive.ObjectID]domain.WorkItem{},
		records:   map[primitive.ObjectID]domain.CalendarRecord{},
		logs:      map[primitive.ObjectID]domain.SessionLog{},
		horses:    map[primitive.ObjectID]domain.Horse{},
		uploads:   map[primitive.ObjectID]domain.Upload{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memSnapshot struct {
	schedules map[primitive.ObjectID]domain.Schedule
	plans     map[primitive.ObjectID]domain.AppliedPlan
	items     map[primitive.ObjectID]domain.WorkItem
	records   map[primitive.ObjectID]domain.CalendarRecord
	logs      map[primitive.ObjectID]domain.SessionLog
}

func (db *memDB) snapshot() memSnapshot {
	return memSnapshot{
		schedules: copyMap(db.schedules),
		plans:     copyMap(db.plans),
		items:     copyMap(db.items),
		records:   copyMap(db.records),
		logs:      copyMap(db.logs),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.schedules = s.schedules
	db.plans = s.plans
	db.items = s.items
	db.records = s.records
	db.logs = s.logs
}

// fakeTxn implements repository.TxnRunner with snapshot-on-begin,
// restore-on-error semantics.
type fakeTxn struct{ db *memDB }

func (t *fakeTxn) WithTransaction(_ context.Context, fn func(ctx context.Context) error) error {
	snap := t.db.snapshot()
	if err := fn(context.Background()); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

// --- Repository fakes ---

type fakeScheduleRepo struct{ db *memDB }

func (r *fakeScheduleRepo) Create(_ context.Context, s *domain.Schedule) (primitive.ObjectID, error) {
	s.ID = primitive.NewObjectID()
	r.db.schedules[s.ID] = *s
	return s.ID, nil
}

func (r *fakeScheduleRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Schedule, error) {
	s, ok := r.db.schedules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *fakeScheduleRepo) GetByCreator(_ context.Context, creatorID primitive.ObjectID) ([]domain.Schedule, error) {
	var out []domain.Schedule
	for _, s := range r.db.schedules {
		if s.CreatedBy == creatorID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) SetStatus(_ context.Context, id primitive.ObjectID, from, to domain.ScheduleStatus) error {
	s, ok := r.db.schedules[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.Status != from {
		return repository.ErrConflict
	}
	s.Status = to
	r.db.schedules[id] = s
	return nil
}

func (r *fakeScheduleRepo) SetSourceObjectKey(_ context.Context, id primitive.ObjectID, objectKey string) error {
	s, ok := r.db.schedules[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.SourceObjectKey = objectKey
	r.db.schedules[id] = s
	return nil
}

type fakePlanRepo struct{ db *memDB }

func (r *fakePlanRepo) Create(_ context.Context, p *domain.AppliedPlan) (primitive.ObjectID, error) {
	p.ID = primitive.NewObjectID()
	r.db.plans[p.ID] = *p
	return p.ID, nil
}

func (r *fakePlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.AppliedPlan, error) {
	p, ok := r.db.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *fakePlanRepo) GetByHorseID(_ context.Context, horseID primitive.ObjectID) ([]domain.AppliedPlan, error) {
	var out []domain.AppliedPlan
	for _, p := range r.db.plans {
		if p.HorseID == horseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status domain.PlanStatus) error {
	p, ok := r.db.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status != domain.PlanActive {
		return repository.ErrConflict
	}
	p.Status = status
	r.db.plans[id] = p
	return nil
}

func (r *fakePlanRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := r.db.plans[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.plans, id)
	return nil
}

type fakeWorkItemRepo struct{ db *memDB }

func (r *fakeWorkItemRepo) Create(_ context.Context, item *domain.WorkItem) (primitive.ObjectID, error) {
	item.ID = primitive.NewObjectID()
	r.db.items[item.ID] = *item
	return item.ID, nil
}

func (r *fakeWorkItemRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkItem, error) {
	item, ok := r.db.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (r *fakeWorkItemRepo) GetByPlanID(_ context.Context, planID primitive.ObjectID) ([]domain.WorkItem, error) {
	var out []domain.WorkItem
	for _, item := range r.db.items {
		if item.PlanID == planID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Week != out[j].Week {
			return out[i].Week < out[j].Week
		}
		return out[i].Day < out[j].Day
	})
	return out, nil
}

func (r *fakeWorkItemRepo) UpdateCurrentData(_ context.Context, id primitive.ObjectID, data domain.DayEntry) error {
	item, ok := r.db.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	item.CurrentData = data
	r.db.items[id] = item
	return nil
}

func (r *fakeWorkItemRepo) DeleteByPlanID(_ context.Context, planID primitive.ObjectID) (int64, error) {
	var n int64
	for id, item := range r.db.items {
		if item.PlanID == planID {
			delete(r.db.items, id)
			n++
		}
	}
	return n, nil
}

type fakeCalendarRepo struct{ db *memDB }

func (r *fakeCalendarRepo) Create(_ context.Context, record *domain.CalendarRecord) (primitive.ObjectID, error) {
	if r.db.failRecordLabel != "" && record.Label == r.db.failRecordLabel {
		return primitive.NilObjectID, errors.New("simulated store failure")
	}
	// Mirror of the unique (horseId, slot, date) index.
	for _, existing := range r.db.records {
		if existing.HorseID == record.HorseID && existing.Slot == record.Slot && existing.Date.Equal(record.Date) {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	record.ID = primitive.NewObjectID()
	r.db.records[record.ID] = *record
	return record.ID, nil
}

func (r *fakeCalendarRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.CalendarRecord, error) {
	record, ok := r.db.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &record, nil
}

func (r *fakeCalendarRepo) GetByWorkItemID(_ context.Context, workItemID primitive.ObjectID) (*domain.CalendarRecord, error) {
	for _, record := range r.db.records {
		if record.WorkItemID != nil && *record.WorkItemID == workItemID {
			rec := record
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCalendarRepo) FindByHorseSlotDates(_ context.Context, horseID primitive.ObjectID, slot domain.Slot, dates []time.Time) ([]domain.CalendarRecord, error) {
	var out []domain.CalendarRecord
	for _, record := range r.db.records {
		if record.HorseID != horseID || record.Slot != slot {
			continue
		}
		for _, d := range dates {
			if record.Date.Equal(d) {
				out = append(out, record)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeCalendarRepo) GetByHorseAndRange(_ context.Context, horseID primitive.ObjectID, from, to time.Time) ([]domain.CalendarRecord, error) {
	var out []domain.CalendarRecord
	for _, record := range r.db.records {
		if record.HorseID == horseID && !record.Date.Before(from) && !record.Date.After(to) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *fakeCalendarRepo) Update(_ context.Context, record *domain.CalendarRecord) error {
	if _, ok := r.db.records[record.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.records[record.ID] = *record
	return nil
}

func (r *fakeCalendarRepo) GetIDsByPlanID(_ context.Context, planID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	for id, record := range r.db.records {
		if record.PlanID != nil && *record.PlanID == planID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeCalendarRepo) DeleteByPlanID(_ context.Context, planID primitive.ObjectID) (int64, error) {
	var n int64
	for id, record := range r.db.records {
		if record.PlanID != nil && *record.PlanID == planID {
			delete(r.db.records, id)
			n++
		}
	}
	return n, nil
}

type fakeLogRepo struct{ db *memDB }

func (r *fakeLogRepo) Create(_ context.Context, log *domain.SessionLog) (primitive.ObjectID, error) {
	log.ID = primitive.NewObjectID()
	r.db.logs[log.ID] = *log
	return log.ID, nil
}

func (r *fakeLogRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.SessionLog, error) {
	log, ok := r.db.logs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &log, nil
}

func (r *fakeLogRepo) GetByHorseID(_ context.Context, horseID primitive.ObjectID) ([]domain.SessionLog, error) {
	var out []domain.SessionLog
	for _, log := range r.db.logs {
		if log.HorseID == horseID {
			out = append(out, log)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) ClearCalendarRefs(_ context.Context, recordIDs []primitive.ObjectID) (int64, error) {
	var n int64
	for id, log := range r.db.logs {
		if log.CalendarRecordID == nil {
			continue
		}
		for _, recordID := range recordIDs {
			if *log.CalendarRecordID == recordID {
				log.CalendarRecordID = nil
				r.db.logs[id] = log
				n++
				break
			}
		}
	}
	return n, nil
}

type fakeHorseRepo struct{ db *memDB }

func (r *fakeHorseRepo) Create(_ context.Context, horse *domain.Horse) (primitive.ObjectID, error) {
	horse.ID = primitive.NewObjectID()
	r.db.horses[horse.ID] = *horse
	return horse.ID, nil
}

func (r *fakeHorseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Horse, error) {
	horse, ok := r.db.horses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &horse, nil
}

func (r *fakeHorseRepo) GetByOwnerID(_ context.Context, ownerID primitive.ObjectID) ([]domain.Horse, error) {
	var out []domain.Horse
	for _, horse := range r.db.horses {
		if horse.OwnerID == ownerID {
			out = append(out, horse)
		}
	}
	return out, nil
}

func (r *fakeHorseRepo) GetSharedWithRider(_ context.Context, riderID primitive.ObjectID) ([]domain.Horse, error) {
	var out []domain.Horse
	for _, horse := range r.db.horses {
		for _, id := range horse.RiderIDs {
			if id == riderID {
				out = append(out, horse)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeHorseRepo) Update(_ context.Context, horse *domain.Horse) error {
	if _, ok := r.db.horses[horse.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.horses[horse.ID] = *horse
	return nil
}

func (r *fakeHorseRepo) Delete(_ context.Context, id, ownerID primitive.ObjectID) error {
	horse, ok := r.db.horses[id]
	if !ok || horse.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(r.db.horses, id)
	return nil
}

func (r *fakeHorseRepo) AddRider(_ context.Context, horseID, riderID primitive.ObjectID) error {
	horse, ok := r.db.horses[horseID]
	if !ok {
		return repository.ErrNotFound
	}
	horse.RiderIDs = append(horse.RiderIDs, riderID)
	r.db.horses[horseID] = horse
	return nil
}

type fakeUploadRepo struct{ db *memDB }

func (r *fakeUploadRepo) Create(_ context.Context, upload *domain.Upload) (primitive.ObjectID, error) {
	upload.ID = primitive.NewObjectID()
	r.db.uploads[upload.ID] = *upload
	return upload.ID, nil
}

func (r *fakeUploadRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Upload, error) {
	upload, ok := r.db.uploads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &upload, nil
}

// fakeStorage hands out deterministic URLs and records deletions.
type fakeStorage struct {
	deleted []string
}

func (s *fakeStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	return "https://storage.test/upload/" + objectKey, nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.test/download/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	return nil
}
