package repository

import (
	"database/sql"

	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

func (r *Repository) InsertTimetable(timetable *domain.Timetable) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO timetables (name, fitness, hard_conflicts, soft_conflicts, generations)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`
	args := []any{timetable.Name, timetable.Fitness, timetable.HardConflicts, timetable.SoftConflicts, timetable.Generations}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&timetable.ID, &timetable.CreatedAt, &timetable.Version); err != nil {
		return err
	}

	for _, a := range timetable.Allocations {
		query := `
			INSERT INTO timetable_allocations (timetable_id, course_id, section_id, room_id, professor_id, day_of_week, timeslot_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		args := []any{timetable.ID, a.CourseID, a.SectionID, a.RoomID, a.ProfessorID, a.Day, a.TimeslotID}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	for _, p := range timetable.Unscheduled {
		query := `
			INSERT INTO timetable_unscheduled (timetable_id, course_id, section_id)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, timetable.ID, p.CourseID, p.SectionID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetAllTimetables 只返回课表的元数据，不包含具体的排课
func (r *Repository) GetAllTimetables() ([]*domain.Timetable, error) {
	query := `
		SELECT id, name, fitness, hard_conflicts, soft_conflicts, generations, created_at, version
		FROM timetables ORDER BY created_at DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	timetables := make([]*domain.Timetable, 0)
	for rows.Next() {
		tt := &domain.Timetable{}
		dst := []any{&tt.ID, &tt.Name, &tt.Fitness, &tt.HardConflicts, &tt.SoftConflicts, &tt.Generations, &tt.CreatedAt, &tt.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		timetables = append(timetables, tt)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return timetables, nil
}

func (r *Repository) GetTimetableByID(id int64) (*domain.Timetable, error) {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	tt := &domain.Timetable{
		ID:          id,
		Allocations: make([]domain.Allocation, 0),
		Unscheduled: make([]domain.UnscheduledPairing, 0),
	}

	query := `
		SELECT name, fitness, hard_conflicts, soft_conflicts, generations, created_at, version
		FROM timetables WHERE id = $1
	`
	dst := []any{&tt.Name, &tt.Fitness, &tt.HardConflicts, &tt.SoftConflicts, &tt.Generations, &tt.CreatedAt, &tt.Version}
	if err := tx.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	query = `
		SELECT course_id, section_id, room_id, professor_id, day_of_week, timeslot_id
		FROM timetable_allocations WHERE timetable_id = $1
		ORDER BY day_of_week, timeslot_id, section_id
	`
	rows, err := tx.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Allocation
		if err := rows.Scan(&a.CourseID, &a.SectionID, &a.RoomID, &a.ProfessorID, &a.Day, &a.TimeslotID); err != nil {
			return nil, err
		}
		tt.Allocations = append(tt.Allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query = `
		SELECT course_id, section_id FROM timetable_unscheduled
		WHERE timetable_id = $1 ORDER BY course_id, section_id
	`
	unscheduledRows, err := tx.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer unscheduledRows.Close()

	for unscheduledRows.Next() {
		var p domain.UnscheduledPairing
		if err := unscheduledRows.Scan(&p.CourseID, &p.SectionID); err != nil {
			return nil, err
		}
		tt.Unscheduled = append(tt.Unscheduled, p)
	}
	if err := unscheduledRows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return tt, nil
}

func (r *Repository) DeleteTimetable(id int64) error {
	query := `
		DELETE FROM timetables WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}
