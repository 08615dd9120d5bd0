package utils

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

// 二进制编码中每个字段只有 8 位
const maxCatalogEntries = 256

func ValidateTimeslotTime(ts *domain.Timeslot) error {
	startTime, err := time.Parse("15:04:05", ts.StartTime)
	if err != nil {
		return fmt.Errorf("课时 %d 的开始时间格式错误", ts.ID)
	}
	endTime, err := time.Parse("15:04:05", ts.EndTime)
	if err != nil {
		return fmt.Errorf("课时 %d 的结束时间格式错误", ts.ID)
	}
	if !endTime.After(startTime) {
		return fmt.Errorf("课时 %d 的结束时间必须晚于开始时间", ts.ID)
	}
	return nil
}

func ValidateCatalog(catalog *domain.Catalog) error {
	switch {
	case len(catalog.Courses) == 0:
		return errors.New("目录中没有任何课程")
	case len(catalog.Professors) == 0:
		return errors.New("目录中没有任何教师")
	case len(catalog.Rooms) == 0:
		return errors.New("目录中没有任何教室")
	case len(catalog.Sections) == 0:
		return errors.New("目录中没有任何班级")
	case len(catalog.Timeslots) == 0:
		return errors.New("目录中没有任何课时")
	case len(catalog.Days) == 0:
		return errors.New("目录中没有任何上课日")
	}

	for _, entry := range []struct {
		name string
		n    int
	}{
		{"课程", len(catalog.Courses)},
		{"教师", len(catalog.Professors)},
		{"教室", len(catalog.Rooms)},
		{"班级", len(catalog.Sections)},
		{"课时", len(catalog.Timeslots)},
	} {
		if entry.n > maxCatalogEntries {
			return fmt.Errorf("%s数量 %d 超过了上限 %d", entry.name, entry.n, maxCatalogEntries)
		}
	}

	// 检查教师
	professorIDs := make(map[int64]bool)
	for _, professor := range catalog.Professors {
		if professorIDs[professor.ID] {
			return fmt.Errorf("教师 %d 重复", professor.ID)
		}
		professorIDs[professor.ID] = true
		if professor.MaxCourses < 0 {
			return fmt.Errorf("教师 %d 的授课上限不能为负数", professor.ID)
		}
	}

	// 检查课程
	courseIDs := make(map[int64]bool)
	for _, course := range catalog.Courses {
		if courseIDs[course.ID] {
			return fmt.Errorf("课程 %d 重复", course.ID)
		}
		courseIDs[course.ID] = true

		if course.Kind != domain.CourseKindTheory && course.Kind != domain.CourseKindLab {
			return fmt.Errorf("课程 %d 的类型 %q 无效", course.ID, course.Kind)
		}
		if len(course.ProfessorIDs) == 0 {
			return fmt.Errorf("课程 %d 没有可以授课的教师", course.ID)
		}
		seen := make(map[int64]bool)
		for _, professorID := range course.ProfessorIDs {
			if !professorIDs[professorID] {
				return fmt.Errorf("课程 %d 引用了不存在的教师 %d", course.ID, professorID)
			}
			if seen[professorID] {
				return fmt.Errorf("课程 %d 中的教师 %d 重复", course.ID, professorID)
			}
			seen[professorID] = true
		}
	}

	// 检查教室
	roomIDs := make(map[int64]bool)
	for _, room := range catalog.Rooms {
		if roomIDs[room.ID] {
			return fmt.Errorf("教室 %d 重复", room.ID)
		}
		roomIDs[room.ID] = true

		if room.Kind != domain.RoomKindClassroom && room.Kind != domain.RoomKindLab {
			return fmt.Errorf("教室 %d 的类型 %q 无效", room.ID, room.Kind)
		}
		if room.Capacity <= 0 {
			return fmt.Errorf("教室 %d 的容量必须大于 0", room.ID)
		}
	}

	// 检查班级
	sectionIDs := make(map[int64]bool)
	for _, section := range catalog.Sections {
		if sectionIDs[section.ID] {
			return fmt.Errorf("班级 %d 重复", section.ID)
		}
		sectionIDs[section.ID] = true

		if section.Strength <= 0 {
			return fmt.Errorf("班级 %d 的人数必须大于 0", section.ID)
		}
		if section.MaxCourses < 0 {
			return fmt.Errorf("班级 %d 的课程上限不能为负数", section.ID)
		}
	}

	// 检查课时：位置必须恰好是 0..n-1
	positions := make([]int32, 0, len(catalog.Timeslots))
	timeslotIDs := make(map[int64]bool)
	for _, ts := range catalog.Timeslots {
		if timeslotIDs[ts.ID] {
			return fmt.Errorf("课时 %d 重复", ts.ID)
		}
		timeslotIDs[ts.ID] = true

		if err := ValidateTimeslotTime(&ts); err != nil {
			return err
		}
		positions = append(positions, ts.Position)
	}
	slices.Sort(positions)
	for i, pos := range positions {
		if pos != int32(i) {
			return fmt.Errorf("课时的位置必须从 0 开始连续编号，缺少位置 %d", i)
		}
	}

	// 检查上课日
	seenDays := make(map[domain.Day]bool)
	for _, day := range catalog.Days {
		if !slices.Contains(domain.Weekdays, day) {
			return fmt.Errorf("上课日 %d 无效", day)
		}
		if seenDays[day] {
			return fmt.Errorf("上课日 %s 重复", day)
		}
		seenDays[day] = true
	}

	return nil
}

// ValidateTimetableWithCatalog 检查课表中引用的实体是否都存在于目录中
// 冲突本身不在这里检查，冲突是排课要尽量减少的量，而不是错误
func ValidateTimetableWithCatalog(timetable *domain.Timetable, catalog *domain.Catalog) error {
	courses := make(map[int64]*domain.Course)
	for i := range catalog.Courses {
		courses[catalog.Courses[i].ID] = &catalog.Courses[i]
	}
	sections := make(map[int64]bool)
	for _, section := range catalog.Sections {
		sections[section.ID] = true
	}
	rooms := make(map[int64]domain.RoomKind)
	for _, room := range catalog.Rooms {
		rooms[room.ID] = room.Kind
	}
	professors := make(map[int64]bool)
	for _, professor := range catalog.Professors {
		professors[professor.ID] = true
	}
	timeslots := make(map[int64]bool)
	for _, ts := range catalog.Timeslots {
		timeslots[ts.ID] = true
	}

	for i, allocation := range timetable.Allocations {
		course, ok := courses[allocation.CourseID]
		if !ok {
			return fmt.Errorf("第 %d 项排课的课程 %d 不存在", i+1, allocation.CourseID)
		}
		if !sections[allocation.SectionID] {
			return fmt.Errorf("第 %d 项排课的班级 %d 不存在", i+1, allocation.SectionID)
		}
		roomKind, ok := rooms[allocation.RoomID]
		if !ok {
			return fmt.Errorf("第 %d 项排课的教室 %d 不存在", i+1, allocation.RoomID)
		}
		if course.IsLab() != (roomKind == domain.RoomKindLab) {
			return fmt.Errorf("第 %d 项排课的课程 %d 与教室 %d 的类型不匹配", i+1, course.ID, allocation.RoomID)
		}
		if !professors[allocation.ProfessorID] {
			return fmt.Errorf("第 %d 项排课的教师 %d 不存在", i+1, allocation.ProfessorID)
		}
		if !slices.Contains(course.ProfessorIDs, allocation.ProfessorID) {
			return fmt.Errorf("第 %d 项排课的教师 %d 不能担任课程 %d", i+1, allocation.ProfessorID, course.ID)
		}
		if !slices.Contains(catalog.Days, allocation.Day) {
			return fmt.Errorf("第 %d 项排课的上课日 %d 无效", i+1, allocation.Day)
		}
		if !timeslots[allocation.TimeslotID] {
			return fmt.Errorf("第 %d 项排课的课时 %d 不存在", i+1, allocation.TimeslotID)
		}
	}

	for _, pairing := range timetable.Unscheduled {
		if _, ok := courses[pairing.CourseID]; !ok {
			return fmt.Errorf("未排入的课程 %d 不存在", pairing.CourseID)
		}
		if !sections[pairing.SectionID] {
			return fmt.Errorf("未排入的班级 %d 不存在", pairing.SectionID)
		}
	}

	return nil
}
