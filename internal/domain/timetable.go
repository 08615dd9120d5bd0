package domain

import "time"

// Allocation 表示一次占用一个课时的排课结果
type Allocation struct {
	CourseID    int64 `json:"courseID"`
	SectionID   int64 `json:"sectionID"`
	RoomID      int64 `json:"roomID"`
	ProfessorID int64 `json:"professorID"`
	Day         Day   `json:"day"`
	TimeslotID  int64 `json:"timeslotID"`
}

// UnscheduledPairing 表示在有限次尝试内都没能排进课表的 (课程, 班级) 组合
type UnscheduledPairing struct {
	CourseID  int64 `json:"courseID"`
	SectionID int64 `json:"sectionID"`
}

type Timetable struct {
	ID            int64                `json:"id"`
	Name          string               `json:"name"`
	Fitness       int                  `json:"fitness"`
	HardConflicts int                  `json:"hardConflicts"`
	SoftConflicts int                  `json:"softConflicts"`
	Generations   int                  `json:"generations"`
	Allocations   []Allocation         `json:"allocations"`
	Unscheduled   []UnscheduledPairing `json:"unscheduled"`
	CreatedAt     time.Time            `json:"createdAt"`
	Version       int32                `json:"-"`
}
