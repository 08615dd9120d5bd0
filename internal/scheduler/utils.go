package scheduler

import "github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"

// slotKey 表示某个实体（教师、教室或班级）在某天某个课时的占用
type slotKey struct {
	id   int
	day  domain.Day
	slot int
}

// occupancy 记录已经被占用的 (教师, 天, 课时)、(教室, 天, 课时) 与 (班级, 天, 课时)
type occupancy struct {
	professors map[slotKey]struct{}
	rooms      map[slotKey]struct{}
	sections   map[slotKey]struct{}
}

func newOccupancy(capacity int) *occupancy {
	return &occupancy{
		professors: make(map[slotKey]struct{}, capacity),
		rooms:      make(map[slotKey]struct{}, capacity),
		sections:   make(map[slotKey]struct{}, capacity),
	}
}

func professorKey(g Gene) slotKey { return slotKey{g.professor, g.day, g.slot} }
func roomKey(g Gene) slotKey      { return slotKey{g.room, g.day, g.slot} }
func sectionKey(g Gene) slotKey   { return slotKey{g.section, g.day, g.slot} }

// occupy 占用基因对应的三个位置，并返回其中已经被占用的个数
func (o *occupancy) occupy(g Gene) int {
	conflicts := 0
	for _, set := range []struct {
		m   map[slotKey]struct{}
		key slotKey
	}{
		{o.professors, professorKey(g)},
		{o.rooms, roomKey(g)},
		{o.sections, sectionKey(g)},
	} {
		if _, exists := set.m[set.key]; exists {
			conflicts++
		}
		set.m[set.key] = struct{}{}
	}
	return conflicts
}

func (o *occupancy) collides(g Gene) bool {
	if _, exists := o.professors[professorKey(g)]; exists {
		return true
	}
	if _, exists := o.rooms[roomKey(g)]; exists {
		return true
	}
	_, exists := o.sections[sectionKey(g)]
	return exists
}

// clashes 判断两个基因是否在同一天同一课时占用了同一个教师、教室或班级
func clashes(a, b Gene) bool {
	if a.day != b.day || a.slot != b.slot {
		return false
	}
	return a.professor == b.professor || a.room == b.room || a.section == b.section
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
