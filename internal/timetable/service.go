package timetable

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/in-nis/timetable-back/internal/grid"
	"github.com/in-nis/timetable-back/internal/models"
	"github.com/in-nis/timetable-back/internal/validate"
)

// Notifier is the publish fan-out sink. Fire-and-forget: a failed
// notification never fails the publish.
type Notifier interface {
	TimetablePublished(ctx context.Context, t *models.Timetable, audience string) error
}

// Service owns the versioned timetable store: the lifecycle record, the
// append-only ledger and the restore path. Every mutation of a timetable's
// grid goes through record, which bumps the edit counter and inserts the
// matching history row in one transaction.
type Service struct {
	DB       *gorm.DB
	Notifier Notifier
}

// SummaryInitial is the history summary of the creation entry.
const SummaryInitial = "Initial Generation"

// lockedTimetable loads the timetable row for update inside tx. Postgres
// serializes concurrent mutations on the row lock; sqlite (tests) has a
// single writer anyway.
func lockedTimetable(tx *gorm.DB, id uuid.UUID) (*models.Timetable, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var t models.Timetable
	if err := q.First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// Get returns the current timetable record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Timetable, error) {
	var t models.Timetable
	if err := s.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns timetables, optionally filtered by level and section, that
// have reached the given publish counter. minPublish 0 lists drafts too.
func (s *Service) List(ctx context.Context, level int, section string, minPublish int) ([]models.Timetable, error) {
	q := s.DB.WithContext(ctx).Where("publish_counter >= ?", minPublish)
	if level != 0 {
		q = q.Where("level = ?", level)
	}
	if section != "" {
		q = q.Where("section = ?", section)
	}
	var out []models.Timetable
	if err := q.Order("level, section").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateGrid runs the constraint validator against the level's stored
// requirements and reservations.
func (s *Service) ValidateGrid(ctx context.Context, level int, g grid.Grid) (validate.Result, error) {
	var reqs []models.CourseRequirement
	if err := s.DB.WithContext(ctx).Where("level = ?", level).Order("course_code").Find(&reqs).Error; err != nil {
		return validate.Result{}, err
	}
	var fixed []models.FixedReservation
	if err := s.DB.WithContext(ctx).Where("level = ?", level).Order("day, slot").Find(&fixed).Error; err != nil {
		return validate.Result{}, err
	}
	return validate.Grid(g, reqs, fixed), nil
}

// Create validates a freshly generated grid and, if it passes, persists the
// timetable as a draft. The ledger is seeded with version 1: the delta from
// the all-empty grid to the initial one, so history is never empty.
func (s *Service) Create(ctx context.Context, level int, section string, g grid.Grid, authorID string) (*models.Timetable, error) {
	res, err := s.ValidateGrid(ctx, level, g)
	if err != nil {
		return nil, err
	}
	if !res.IsValid {
		return nil, &ValidationError{Errors: res.Errors}
	}

	t := &models.Timetable{
		Level:          level,
		Section:        section,
		Grid:           g,
		EditCounter:    1,
		PublishCounter: 0,
		Status:         models.StatusDraft,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		entry := &models.TimetableHistory{
			TimetableID:    t.ID,
			HistoryVersion: 1,
			Delta:          grid.Diff(grid.New(), g),
			Timestamp:      time.Now().UTC(),
			AuthorID:       authorID,
			Summary:        SummaryInitial,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// record is the single write path of the ledger. In one transaction it
// locks the timetable, diffs the current grid against newGrid, inserts the
// history entry at editCounter+1 and advances the grid and counter. The
// entry and the counter bump commit together or not at all.
func (s *Service) record(ctx context.Context, id uuid.UUID, newGrid grid.Grid, authorID, summary string) (*models.TimetableHistory, error) {
	// Manual edits skip the full constraint validator, but a grid with
	// coordinates outside the week domain can never round-trip through
	// the delta engine, so the ledger refuses it outright.
	if stray := newGrid.StrayCoordinates(); len(stray) > 0 {
		msgs := make([]string, len(stray))
		for i, c := range stray {
			msgs[i] = "grid addresses coordinate outside the school week: " + c
		}
		return nil, &ValidationError{Errors: msgs}
	}

	var entry *models.TimetableHistory
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := lockedTimetable(tx, id)
		if err != nil {
			return err
		}
		if t.Status == models.StatusArchived {
			return ErrTimetableArchived
		}

		delta := grid.Diff(t.Grid, newGrid)
		if delta.IsEmpty() {
			return ErrNoOpEdit
		}

		next := t.EditCounter + 1
		entry = &models.TimetableHistory{
			TimetableID:    t.ID,
			HistoryVersion: next,
			Delta:          delta,
			Timestamp:      time.Now().UTC(),
			AuthorID:       authorID,
			Summary:        summary,
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.Timetable{}).Where("id = ?", t.ID).
			Updates(map[string]interface{}{
				"grid":         newGrid,
				"edit_counter": next,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Edit records a manual grid change. Manual edits by committee members are
// trusted and not re-validated here; callers that want the constraint check
// run Validate first (see the edit handler's validate flag).
func (s *Service) Edit(ctx context.Context, id uuid.UUID, newGrid grid.Grid, authorID, summary string) (*models.TimetableHistory, error) {
	if summary == "" {
		summary = "Manual Grid Edit"
	}
	return s.record(ctx, id, newGrid, authorID, summary)
}

// History lists the ledger newest first. Limit <= 0 means no limit.
func (s *Service) History(ctx context.Context, id uuid.UUID, limit, offset int) ([]models.TimetableHistory, error) {
	q := s.DB.WithContext(ctx).
		Where("timetable_id = ?", id).
		Order("history_version DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []models.TimetableHistory
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Reconstruct derives the grid exactly as it existed right after edit
// targetVersion: start from the current grid and reverse-apply every newer
// delta, newest first.
func (s *Service) Reconstruct(ctx context.Context, id uuid.UUID, targetVersion int) (grid.Grid, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if targetVersion < 1 || targetVersion > t.EditCounter {
		return nil, fmt.Errorf("%w: version %d, timetable is at %d", ErrVersionNotFound, targetVersion, t.EditCounter)
	}

	var newer []models.TimetableHistory
	err = s.DB.WithContext(ctx).
		Where("timetable_id = ? AND history_version > ?", id, targetVersion).
		Order("history_version DESC").
		Find(&newer).Error
	if err != nil {
		return nil, err
	}

	g := t.Grid
	for _, e := range newer {
		g = grid.ApplyReverse(g, e.Delta)
	}
	return g, nil
}

// Restore makes a historical state the new current state by recording a
// fresh forward delta. History before the restore stays untouched, so a
// restore is itself auditable and restorable.
func (s *Service) Restore(ctx context.Context, id uuid.UUID, targetVersion int, authorID string) (*models.TimetableHistory, error) {
	reconstructed, err := s.Reconstruct(ctx, id, targetVersion)
	if err != nil {
		return nil, err
	}

	summary := fmt.Sprintf("Restored to version %d", targetVersion)
	entry, err := s.record(ctx, id, reconstructed, authorID, summary)
	if errors.Is(err, ErrNoOpEdit) {
		return nil, ErrRestoreNoOp
	}
	return entry, err
}

// Publish bumps the publish counter and marks the current edit state as
// externally visible. The grid and the ledger are never touched; the
// counter is a visibility gate independent of edit history.
func (s *Service) Publish(ctx context.Context, id uuid.UUID) (*models.Timetable, error) {
	var t *models.Timetable
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		t, err = lockedTimetable(tx, id)
		if err != nil {
			return err
		}
		if t.Status == models.StatusArchived {
			return ErrTimetableArchived
		}
		now := time.Now().UTC()
		t.PublishCounter++
		t.PublishedAt = &now
		t.Status = models.StatusPublished
		return tx.Model(&models.Timetable{}).Where("id = ?", t.ID).
			Updates(map[string]interface{}{
				"publish_counter": t.PublishCounter,
				"published_at":    now,
				"status":          models.StatusPublished,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		audience := "internal"
		if t.PublishCounter >= 2 {
			audience = "general"
		}
		snapshot := *t
		go func() {
			if err := s.Notifier.TimetablePublished(context.Background(), &snapshot, audience); err != nil {
				log.Println("⚠️ publish notification failed:", err)
			}
		}()
	}
	return t, nil
}

// Archive is terminal; archived timetables reject edits, publishes and
// restores.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) (*models.Timetable, error) {
	var t *models.Timetable
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		t, err = lockedTimetable(tx, id)
		if err != nil {
			return err
		}
		t.Status = models.StatusArchived
		return tx.Model(&models.Timetable{}).Where("id = ?", t.ID).
			Update("status", models.StatusArchived).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// AuditLedger sweeps every timetable and reports integrity findings: a gap
// or duplicate in the history version sequence (an unrecoverable bug if it
// ever appears, per the ledger invariant) and occurrence counts drifting
// from the level's requirements after unvalidated manual edits.
func (s *Service) AuditLedger(ctx context.Context) ([]string, error) {
	var timetables []models.Timetable
	if err := s.DB.WithContext(ctx).Find(&timetables).Error; err != nil {
		return nil, err
	}

	var findings []string
	for _, t := range timetables {
		var versions []int
		err := s.DB.WithContext(ctx).Model(&models.TimetableHistory{}).
			Where("timetable_id = ?", t.ID).
			Order("history_version").
			Pluck("history_version", &versions).Error
		if err != nil {
			return nil, err
		}

		if len(versions) != t.EditCounter {
			findings = append(findings, fmt.Sprintf(
				"timetable %s: %d history entries, edit counter %d", t.ID, len(versions), t.EditCounter))
		}
		for i, v := range versions {
			if v != i+1 {
				findings = append(findings, fmt.Sprintf(
					"timetable %s: history version sequence broken at position %d (got %d)", t.ID, i, v))
				break
			}
		}

		res, err := s.ValidateGrid(ctx, t.Level, t.Grid)
		if err != nil {
			return nil, err
		}
		if !res.IsValid {
			findings = append(findings, fmt.Sprintf(
				"timetable %s (level %d%s): current grid violates constraints: %v", t.ID, t.Level, t.Section, res.Errors))
		}
	}
	return findings, nil
}
