package export

import (
	"fmt"
	"strings"

	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/xuri/excelize/v2"
)

var dayNames = map[domain.Day]string{
	domain.Monday:    "周一",
	domain.Tuesday:   "周二",
	domain.Wednesday: "周三",
	domain.Thursday:  "周四",
	domain.Friday:    "周五",
}

const unscheduledSheet = "未排入"

func SheetName(day domain.Day) string {
	if name, ok := dayNames[day]; ok {
		return name
	}
	return day.String()
}

// BuildWorkbook 把课表导出为 Excel，每一天一张工作表
// 行是课时，列是教室，同一个格子里有多条排课说明存在冲突，用换行分隔
func BuildWorkbook(timetable *domain.Timetable, catalog *domain.Catalog) (*excelize.File, error) {
	courses := make(map[int64]domain.Course, len(catalog.Courses))
	for _, c := range catalog.Courses {
		courses[c.ID] = c
	}
	sections := make(map[int64]string, len(catalog.Sections))
	for _, s := range catalog.Sections {
		sections[s.ID] = s.Name
	}
	professors := make(map[int64]string, len(catalog.Professors))
	for _, p := range catalog.Professors {
		professors[p.ID] = p.FullName
	}
	rowOf := make(map[int64]int, len(catalog.Timeslots))
	for i, ts := range catalog.Timeslots {
		rowOf[ts.ID] = i + 2 // 第一行是表头
	}
	colOf := make(map[int64]int, len(catalog.Rooms))
	for i, room := range catalog.Rooms {
		colOf[room.ID] = i + 2 // 第一列是课时
	}

	f := excelize.NewFile()

	// 每个格子中的内容：day -> 单元格 -> 若干行
	cells := make(map[domain.Day]map[string][]string)
	for _, a := range timetable.Allocations {
		row, ok := rowOf[a.TimeslotID]
		if !ok {
			return nil, fmt.Errorf("课时 %d 不存在", a.TimeslotID)
		}
		col, ok := colOf[a.RoomID]
		if !ok {
			return nil, fmt.Errorf("教室 %d 不存在", a.RoomID)
		}

		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return nil, err
		}
		if cells[a.Day] == nil {
			cells[a.Day] = make(map[string][]string)
		}
		course := courses[a.CourseID]
		cells[a.Day][cell] = append(cells[a.Day][cell], fmt.Sprintf("%s %s / %s / %s", course.Code, course.Name, sections[a.SectionID], professors[a.ProfessorID]))
	}

	for i, day := range catalog.Days {
		sheet := SheetName(day)
		if i == 0 {
			// 新建的文件自带一张 Sheet1
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}

		if err := writeHeader(f, sheet, catalog); err != nil {
			return nil, err
		}
		for cell, lines := range cells[day] {
			if err := f.SetCellValue(sheet, cell, strings.Join(lines, "\n")); err != nil {
				return nil, err
			}
		}
	}

	if len(timetable.Unscheduled) > 0 {
		if _, err := f.NewSheet(unscheduledSheet); err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(unscheduledSheet, "A1", &[]any{"课程", "班级"}); err != nil {
			return nil, err
		}
		for i, p := range timetable.Unscheduled {
			course := courses[p.CourseID]
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(unscheduledSheet, cell, &[]any{course.Code + " " + course.Name, sections[p.SectionID]}); err != nil {
				return nil, err
			}
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeHeader(f *excelize.File, sheet string, catalog *domain.Catalog) error {
	header := []any{"课时"}
	for _, room := range catalog.Rooms {
		header = append(header, room.Code)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, ts := range catalog.Timeslots {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, ts.Label()); err != nil {
			return err
		}
	}

	return nil
}
