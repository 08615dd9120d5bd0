package scheduler

import (
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

// buildState 保存构造一个染色体过程中的计数器
// 每次构造都重新创建，避免不同染色体之间共享状态
type buildState struct {
	occupied        *occupancy
	professorLoad   map[int64]int                // professorID -> 已经分配的 (课程, 班级) 数
	professorCourse map[int64]map[int64]int      // professorID -> courseID -> 已经分配的班级数
	sectionCourses  map[int64]int                // sectionID -> 已经排入的课程数
	sectionDayCount map[int64]map[domain.Day]int // sectionID -> day -> 当天的课程数
}

func newBuildState() *buildState {
	return &buildState{
		occupied:        newOccupancy(0),
		professorLoad:   make(map[int64]int),
		professorCourse: make(map[int64]map[int64]int),
		sectionCourses:  make(map[int64]int),
		sectionDayCount: make(map[int64]map[domain.Day]int),
	}
}

// randomInitChromosome 贪心地随机构造一个染色体
// 实验课先于理论课排入，因为实验课需要连续的两个课时，约束更强
func (s *Scheduler) randomInitChromosome() *Chromosome {
	state := newBuildState()
	ch := &Chromosome{}

	for _, ci := range s.courseOrder {
		course := &s.catalog.Courses[ci]

		for si := range s.catalog.Sections {
			section := &s.catalog.Sections[si]

			if section.MaxCourses > 0 && state.sectionCourses[section.ID] >= int(section.MaxCourses) {
				ch.unscheduled = append(ch.unscheduled, pairing{course: ci, section: si})
				continue
			}

			rooms := s.roomCandidates(course, section)
			professors := s.professorCandidates(course, state)
			if len(rooms) == 0 || len(professors) == 0 {
				ch.unscheduled = append(ch.unscheduled, pairing{course: ci, section: si})
				continue
			}

			genes, ok := s.placePairing(ci, si, rooms, professors, state)
			if !ok {
				// 在有限次尝试内没有找到合适的位置，放弃这个组合
				ch.unscheduled = append(ch.unscheduled, pairing{course: ci, section: si})
				continue
			}

			// 更新计数器
			professorID := s.catalog.Professors[genes[0].professor].ID
			state.professorLoad[professorID]++
			if _, exists := state.professorCourse[professorID]; !exists {
				state.professorCourse[professorID] = make(map[int64]int)
			}
			state.professorCourse[professorID][course.ID]++
			state.sectionCourses[section.ID]++
			if _, exists := state.sectionDayCount[section.ID]; !exists {
				state.sectionDayCount[section.ID] = make(map[domain.Day]int)
			}
			state.sectionDayCount[section.ID][genes[0].day]++
			if genes[1].day != genes[0].day {
				state.sectionDayCount[section.ID][genes[1].day]++
			}

			for _, gene := range genes {
				state.occupied.occupy(gene)
			}
			ch.genes = append(ch.genes, genes[:]...)
		}
	}

	return ch
}

// roomCandidates 选出类型匹配且容量足够的教室
func (s *Scheduler) roomCandidates(course *domain.Course, section *domain.Section) []int {
	wantKind := domain.RoomKindClassroom
	if course.IsLab() {
		wantKind = domain.RoomKindLab
	}

	candidates := []int{}
	for i, room := range s.catalog.Rooms {
		if room.Kind == wantKind && room.Capacity >= section.Strength {
			candidates = append(candidates, i)
		}
	}
	return candidates
}

// professorCandidates 选出可以担任这门课且还没有达到授课上限的教师
func (s *Scheduler) professorCandidates(course *domain.Course, state *buildState) []int {
	candidates := []int{}
	for _, professorID := range course.ProfessorIDs {
		pi, exists := s.professorIndex[professorID]
		if !exists {
			continue
		}

		if state.professorLoad[professorID] >= s.professorLimit(pi) {
			continue
		}
		if state.professorCourse[professorID][course.ID] >= int(s.parameters.MaxSectionsPerCourse) {
			continue
		}

		candidates = append(candidates, pi)
	}
	return candidates
}

// professorLimit 返回教师的授课上限，没有设置时使用默认值
func (s *Scheduler) professorLimit(pi int) int {
	if limit := int(s.catalog.Professors[pi].MaxCourses); limit > 0 {
		return limit
	}
	return int(s.parameters.DefaultProfessorLoad)
}

// freeDays 返回这个班级当天课程数还没有达到上限的日子
func (s *Scheduler) freeDays(section *domain.Section, state *buildState) []domain.Day {
	days := []domain.Day{}
	for _, day := range s.catalog.Days {
		if state.sectionDayCount[section.ID][day] < int(s.parameters.MaxCoursesPerDay) {
			days = append(days, day)
		}
	}
	return days
}

// placePairing 在有限次尝试内为 (课程, 班级) 组合寻找没有冲突的两个课时
func (s *Scheduler) placePairing(ci, si int, rooms, professors []int, state *buildState) ([2]Gene, bool) {
	course := &s.catalog.Courses[ci]
	section := &s.catalog.Sections[si]
	attempts := int(s.parameters.MaxPlacementAttempts)
	slotCount := len(s.catalog.Timeslots)

	days := s.freeDays(section, state)
	if len(days) == 0 {
		return [2]Gene{}, false
	}
	if course.IsLab() && len(s.labStarts) == 0 {
		return [2]Gene{}, false
	}
	if !course.IsLab() && slotCount < 2 && len(days) < 2 {
		return [2]Gene{}, false
	}

	for attempt := 0; attempt < attempts; attempt++ {
		lastAttempt := attempt == attempts-1

		base := Gene{
			course:    ci,
			section:   si,
			room:      rooms[s.rng.Intn(len(rooms))],
			professor: professors[s.rng.Intn(len(professors))],
		}

		var genes [2]Gene
		if course.IsLab() {
			// 实验课占用同一天中相邻的两个课时
			day := days[s.rng.Intn(len(days))]
			start := s.labStarts[s.rng.Intn(len(s.labStarts))]

			genes[0], genes[1] = base, base
			genes[0].day, genes[0].slot = day, start
			genes[1].day, genes[1].slot = day, start+1
		} else {
			// 理论课的两次课可以在不同的日子，尽量不要相邻
			genes[0], genes[1] = base, base
			genes[0].day, genes[0].slot = days[s.rng.Intn(len(days))], s.rng.Intn(slotCount)
			genes[1].day, genes[1].slot = days[s.rng.Intn(len(days))], s.rng.Intn(slotCount)

			if genes[0].day == genes[1].day {
				if genes[0].slot == genes[1].slot {
					continue
				}
				if abs(genes[0].slot-genes[1].slot) == 1 && !lastAttempt {
					continue
				}
			}

			if genes[1].day < genes[0].day || (genes[1].day == genes[0].day && genes[1].slot < genes[0].slot) {
				genes[0], genes[1] = genes[1], genes[0]
			}
		}

		if state.occupied.collides(genes[0]) || state.occupied.collides(genes[1]) || clashes(genes[0], genes[1]) {
			continue
		}

		return genes, true
	}

	return [2]Gene{}, false
}
