package repository

import (
	"context"
	"database/sql"

	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

// GetCatalog 在一个只读事务中读取排课所需的全部实体，保证读到的是同一时刻的快照
func (r *Repository) GetCatalog() (*domain.Catalog, error) {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	catalog := &domain.Catalog{
		Days: append([]domain.Day{}, domain.Weekdays...),
	}

	if catalog.Courses, err = getAllCourses(ctx, tx); err != nil {
		return nil, err
	}
	if catalog.Professors, err = getAllProfessors(ctx, tx); err != nil {
		return nil, err
	}
	if catalog.Rooms, err = getAllRooms(ctx, tx); err != nil {
		return nil, err
	}
	if catalog.Sections, err = getAllSections(ctx, tx); err != nil {
		return nil, err
	}
	if catalog.Timeslots, err = getAllTimeslots(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return catalog, nil
}

func getAllCourses(ctx context.Context, tx *sql.Tx) ([]domain.Course, error) {
	query := `
		SELECT c.id, c.code, c.name, c.kind, c.created_at, c.version, cp.professor_id
		FROM courses c
		LEFT JOIN course_professors cp ON c.id = cp.course_id
		ORDER BY c.id, cp.professor_id
	`

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := make([]domain.Course, 0)
	for rows.Next() {
		var row struct {
			course      domain.Course
			professorID sql.NullInt64
		}

		dst := []any{&row.course.ID, &row.course.Code, &row.course.Name, &row.course.Kind, &row.course.CreatedAt, &row.course.Version, &row.professorID}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		// 按 id 排序，所以同一门课程的行总是连续的
		if len(courses) == 0 || courses[len(courses)-1].ID != row.course.ID {
			row.course.ProfessorIDs = make([]int64, 0)
			courses = append(courses, row.course)
		}

		if !row.professorID.Valid {
			// 说明这门课还没有可以授课的教师
			continue
		}

		last := &courses[len(courses)-1]
		last.ProfessorIDs = append(last.ProfessorIDs, row.professorID.Int64)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return courses, nil
}

func getAllProfessors(ctx context.Context, tx *sql.Tx) ([]domain.Professor, error) {
	query := `
		SELECT id, username, full_name, email, max_courses, created_at, version
		FROM professors ORDER BY id
	`

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	professors := make([]domain.Professor, 0)
	for rows.Next() {
		var p domain.Professor
		if err := rows.Scan(&p.ID, &p.Username, &p.FullName, &p.Email, &p.MaxCourses, &p.CreatedAt, &p.Version); err != nil {
			return nil, err
		}
		professors = append(professors, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return professors, nil
}

func getAllRooms(ctx context.Context, tx *sql.Tx) ([]domain.Room, error) {
	query := `SELECT id, code, kind, capacity, created_at, version FROM rooms ORDER BY id`

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0)
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.Code, &room.Kind, &room.Capacity, &room.CreatedAt, &room.Version); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rooms, nil
}

func getAllSections(ctx context.Context, tx *sql.Tx) ([]domain.Section, error) {
	query := `SELECT id, name, strength, max_courses, created_at, version FROM sections ORDER BY id`

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := make([]domain.Section, 0)
	for rows.Next() {
		var section domain.Section
		if err := rows.Scan(&section.ID, &section.Name, &section.Strength, &section.MaxCourses, &section.CreatedAt, &section.Version); err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sections, nil
}

func getAllTimeslots(ctx context.Context, tx *sql.Tx) ([]domain.Timeslot, error) {
	query := `SELECT id, position, start_time, end_time, created_at, version FROM timeslots ORDER BY position`

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	timeslots := make([]domain.Timeslot, 0)
	for rows.Next() {
		var ts domain.Timeslot
		if err := rows.Scan(&ts.ID, &ts.Position, &ts.StartTime, &ts.EndTime, &ts.CreatedAt, &ts.Version); err != nil {
			return nil, err
		}
		timeslots = append(timeslots, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return timeslots, nil
}

func (r *Repository) CreateCourse(course *domain.Course) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertCourse(ctx, tx, course); err != nil {
		return err
	}

	return tx.Commit()
}

func insertCourse(ctx context.Context, tx *sql.Tx, course *domain.Course) error {
	query := `
		INSERT INTO courses (code, name, kind)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`
	if err := tx.QueryRowContext(ctx, query, course.Code, course.Name, course.Kind).Scan(&course.ID, &course.CreatedAt, &course.Version); err != nil {
		return err
	}

	for _, professorID := range course.ProfessorIDs {
		query := `
			INSERT INTO course_professors (course_id, professor_id)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, course.ID, professorID); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) CreateProfessor(professor *domain.Professor) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	return insertProfessor(ctx, r.dbpool, professor)
}

// queryRower 同时被 *sql.DB 与 *sql.Tx 实现
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertProfessor(ctx context.Context, q queryRower, professor *domain.Professor) error {
	query := `
		INSERT INTO professors (username, full_name, email, max_courses)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, version
	`
	args := []any{professor.Username, professor.FullName, professor.Email, professor.MaxCourses}
	return q.QueryRowContext(ctx, query, args...).Scan(&professor.ID, &professor.CreatedAt, &professor.Version)
}

func (r *Repository) CreateRoom(room *domain.Room) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	return insertRoom(ctx, r.dbpool, room)
}

func insertRoom(ctx context.Context, q queryRower, room *domain.Room) error {
	query := `
		INSERT INTO rooms (code, kind, capacity)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`
	return q.QueryRowContext(ctx, query, room.Code, room.Kind, room.Capacity).Scan(&room.ID, &room.CreatedAt, &room.Version)
}

func (r *Repository) CreateSection(section *domain.Section) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	return insertSection(ctx, r.dbpool, section)
}

func insertSection(ctx context.Context, q queryRower, section *domain.Section) error {
	query := `
		INSERT INTO sections (name, strength, max_courses)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`
	return q.QueryRowContext(ctx, query, section.Name, section.Strength, section.MaxCourses).Scan(&section.ID, &section.CreatedAt, &section.Version)
}

func (r *Repository) CreateTimeslot(ts *domain.Timeslot) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	return insertTimeslot(ctx, r.dbpool, ts)
}

func insertTimeslot(ctx context.Context, q queryRower, ts *domain.Timeslot) error {
	query := `
		INSERT INTO timeslots (position, start_time, end_time)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`
	return q.QueryRowContext(ctx, query, ts.Position, ts.StartTime, ts.EndTime).Scan(&ts.ID, &ts.CreatedAt, &ts.Version)
}

// CreateTimeslots 一次性插入整张课时表
func (r *Repository) CreateTimeslots(timeslots []domain.Timeslot) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := range timeslots {
		if err := insertTimeslot(ctx, tx, &timeslots[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// InsertCatalog 在同一个事务中插入一整份目录
// 目录中的 ID 只在目录内部有意义，插入后课程引用的教师 ID 会被换成数据库中的 ID
func (r *Repository) InsertCatalog(catalog *domain.Catalog) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	professorIDs := make(map[int64]int64, len(catalog.Professors)) // 目录中的 ID -> 数据库中的 ID
	for i := range catalog.Professors {
		oldID := catalog.Professors[i].ID
		if err := insertProfessor(ctx, tx, &catalog.Professors[i]); err != nil {
			return err
		}
		professorIDs[oldID] = catalog.Professors[i].ID
	}

	for i := range catalog.Courses {
		course := &catalog.Courses[i]
		for j, professorID := range course.ProfessorIDs {
			course.ProfessorIDs[j] = professorIDs[professorID]
		}
		if err := insertCourse(ctx, tx, course); err != nil {
			return err
		}
	}

	for i := range catalog.Rooms {
		if err := insertRoom(ctx, tx, &catalog.Rooms[i]); err != nil {
			return err
		}
	}

	for i := range catalog.Sections {
		if err := insertSection(ctx, tx, &catalog.Sections[i]); err != nil {
			return err
		}
	}

	for i := range catalog.Timeslots {
		if err := insertTimeslot(ctx, tx, &catalog.Timeslots[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}
