package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/utils"
)

func newCatalog() *domain.Catalog {
	return &domain.Catalog{
		Courses: []domain.Course{
			{ID: 1, Code: "C1", Name: "数据结构", Kind: domain.CourseKindTheory, ProfessorIDs: []int64{1}},
		},
		Professors: []domain.Professor{{ID: 1, FullName: "张三"}},
		Rooms:      []domain.Room{{ID: 1, Code: "R1", Kind: domain.RoomKindClassroom, Capacity: 40}},
		Sections:   []domain.Section{{ID: 1, Name: "S1", Strength: 30}, {ID: 2, Name: "S2", Strength: 30}},
		Timeslots:  utils.DefaultTimeslots(),
		Days:       []domain.Day{domain.Monday, domain.Tuesday},
	}
}

// TestBuildWorkbook 测试每天一张工作表，冲突的排课写在同一个格子里
func TestBuildWorkbook(t *testing.T) {
	catalog := newCatalog()
	timetable := &domain.Timetable{
		Allocations: []domain.Allocation{
			{CourseID: 1, SectionID: 1, RoomID: 1, ProfessorID: 1, Day: domain.Monday, TimeslotID: 1},
			{CourseID: 1, SectionID: 2, RoomID: 1, ProfessorID: 1, Day: domain.Monday, TimeslotID: 1},
			{CourseID: 1, SectionID: 1, RoomID: 1, ProfessorID: 1, Day: domain.Tuesday, TimeslotID: 3},
		},
		Unscheduled: []domain.UnscheduledPairing{{CourseID: 1, SectionID: 2}},
	}

	f, err := BuildWorkbook(timetable, catalog)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"周一", "周二", "未排入"}, f.GetSheetList())

	header, err := f.GetCellValue("周一", "B1")
	require.NoError(t, err)
	assert.Equal(t, "R1", header)

	label, err := f.GetCellValue("周一", "A2")
	require.NoError(t, err)
	assert.Equal(t, "08:30-09:50", label)

	monday, err := f.GetCellValue("周一", "B2")
	require.NoError(t, err)
	assert.Equal(t, "C1 数据结构 / S1 / 张三\nC1 数据结构 / S2 / 张三", monday)

	tuesday, err := f.GetCellValue("周二", "B4")
	require.NoError(t, err)
	assert.Equal(t, "C1 数据结构 / S1 / 张三", tuesday)

	section, err := f.GetCellValue("未排入", "B2")
	require.NoError(t, err)
	assert.Equal(t, "S2", section)
}

// TestBuildWorkbook_UnknownTimeslot 测试引用不存在的课时
func TestBuildWorkbook_UnknownTimeslot(t *testing.T) {
	timetable := &domain.Timetable{
		Allocations: []domain.Allocation{{CourseID: 1, SectionID: 1, RoomID: 1, ProfessorID: 1, Day: domain.Monday, TimeslotID: 99}},
	}

	_, err := BuildWorkbook(timetable, newCatalog())
	assert.Error(t, err)
}
