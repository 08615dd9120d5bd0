package domain

import (
	"fmt"
	"time"
)

type CourseKind string

const (
	CourseKindTheory CourseKind = "theory"
	CourseKindLab    CourseKind = "lab"
)

type RoomKind string

const (
	RoomKindClassroom RoomKind = "classroom"
	RoomKindLab       RoomKind = "lab"
)

// 每门课程（理论课或实验课）每个班级每周需要占用的课时数
const RequiredSlotsPerCourse = 2

type Course struct {
	ID           int64      `json:"id"`
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	Kind         CourseKind `json:"kind"`
	ProfessorIDs []int64    `json:"professorIDs"` // 可以担任这门课的教师
	CreatedAt    time.Time  `json:"createdAt"`
	Version      int32      `json:"-"`
}

func (c *Course) IsLab() bool {
	return c.Kind == CourseKindLab
}

func (c *Course) RequiredSlots() int {
	return RequiredSlotsPerCourse
}

type Professor struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	MaxCourses int32     `json:"maxCourses"` // 为 0 时表示使用排班参数中的默认上限
	CreatedAt  time.Time `json:"createdAt"`
	Version    int32     `json:"-"`
}

type Room struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Kind      RoomKind  `json:"kind"`
	Capacity  int32     `json:"capacity"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}

type Section struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Strength   int32     `json:"strength"`
	MaxCourses int32     `json:"maxCourses"` // 为 0 时表示不限制
	CreatedAt  time.Time `json:"createdAt"`
	Version    int32     `json:"-"`
}

type Timeslot struct {
	ID        int64     `json:"id"`
	Position  int32     `json:"position"` // 在一天中的顺序，从 0 开始
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}

func (ts *Timeslot) Label() string {
	return fmt.Sprintf("%s-%s", trimSeconds(ts.StartTime), trimSeconds(ts.EndTime))
}

func trimSeconds(t string) string {
	if len(t) == len("15:04:05") {
		return t[:5]
	}
	return t
}

// Day 表示一周中的某一天，1 为周一，5 为周五
type Day int32

const (
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

var dayNames = map[Day]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
}

func (d Day) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Day(%d)", int32(d))
}

// Catalog 是排课所需的全部实体，在排课开始后不允许再被修改
type Catalog struct {
	Courses    []Course    `json:"courses"`
	Professors []Professor `json:"professors"`
	Rooms      []Room      `json:"rooms"`
	Sections   []Section   `json:"sections"`
	Timeslots  []Timeslot  `json:"timeslots"`
	Days       []Day       `json:"days"`
}

// Clone 深拷贝整个目录，保证排课过程中调用方对原目录的修改不会影响排课
func (c *Catalog) Clone() *Catalog {
	clone := &Catalog{
		Courses:    make([]Course, len(c.Courses)),
		Professors: append([]Professor{}, c.Professors...),
		Rooms:      append([]Room{}, c.Rooms...),
		Sections:   append([]Section{}, c.Sections...),
		Timeslots:  append([]Timeslot{}, c.Timeslots...),
		Days:       append([]Day{}, c.Days...),
	}

	for i, course := range c.Courses {
		clone.Courses[i] = course
		clone.Courses[i].ProfessorIDs = append([]int64{}, course.ProfessorIDs...)
	}

	return clone
}
