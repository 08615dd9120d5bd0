package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

// newTestCatalog 两门理论课、一门实验课、两位教师、一间教室与一间实验室、两个班级
// 教师 1 最多教 2 个组合，教师 2 最多教 1 个组合，所以最多只能排入 3 个组合，也就是 6 个基因
func newTestCatalog() *domain.Catalog {
	return &domain.Catalog{
		Courses: []domain.Course{
			{ID: 11, Code: "C1", Name: "数据结构", Kind: domain.CourseKindTheory, ProfessorIDs: []int64{1, 2}},
			{ID: 12, Code: "C2", Name: "操作系统", Kind: domain.CourseKindTheory, ProfessorIDs: []int64{1, 2}},
			{ID: 13, Code: "C3", Name: "操作系统实验", Kind: domain.CourseKindLab, ProfessorIDs: []int64{1}},
		},
		Professors: []domain.Professor{
			{ID: 1, Username: "zhangsan", FullName: "张三", MaxCourses: 2},
			{ID: 2, Username: "lisi", FullName: "李四", MaxCourses: 1},
		},
		Rooms: []domain.Room{
			{ID: 21, Code: "R1", Kind: domain.RoomKindClassroom, Capacity: 40},
			{ID: 22, Code: "L1", Kind: domain.RoomKindLab, Capacity: 30},
		},
		Sections: []domain.Section{
			{ID: 31, Name: "S1", Strength: 25},
			{ID: 32, Name: "S2", Strength: 20},
		},
		Timeslots: []domain.Timeslot{
			{ID: 41, Position: 0, StartTime: "08:30:00", EndTime: "09:50:00"},
			{ID: 42, Position: 1, StartTime: "10:00:00", EndTime: "11:20:00"},
			{ID: 43, Position: 2, StartTime: "11:30:00", EndTime: "12:50:00"},
			{ID: 44, Position: 3, StartTime: "13:00:00", EndTime: "14:20:00"},
			{ID: 45, Position: 4, StartTime: "14:30:00", EndTime: "15:50:00"},
			{ID: 46, Position: 5, StartTime: "16:00:00", EndTime: "17:20:00"},
		},
		Days: append([]domain.Day{}, domain.Weekdays...),
	}
}

func newTestParameters() *Parameters {
	p := DefaultParameters()
	p.PopulationSize = 10
	p.MaxGenerations = 20
	p.Seed = 42
	return p
}

func newTestScheduler(t *testing.T, modify func(p *Parameters)) *Scheduler {
	t.Helper()

	p := newTestParameters()
	if modify != nil {
		modify(p)
	}
	s, err := New(p, newTestCatalog())
	require.NoError(t, err)
	return s
}

// TestSchedule_EndToEnd 测试小目录上的完整排课流程
func TestSchedule_EndToEnd(t *testing.T) {
	s := newTestScheduler(t, nil)

	result, err := s.Schedule(context.Background())
	require.NoError(t, err)

	assert.LessOrEqual(t, len(result.Allocations), 6)
	assert.Equal(t, 0, len(result.Allocations)%2)
	assert.LessOrEqual(t, result.Fitness, 0)
	assert.Equal(t, 20, result.Generations)
	assert.Equal(t, StopReasonCompleted, result.StopReason)
	assert.Equal(t, 10*21, result.Evaluations)

	// 已排入的组合数 + 未排入的组合数 = 课程数 * 班级数
	assert.Equal(t, 6, len(result.Allocations)/2+len(result.Unscheduled))
}

// TestSchedule_Reproducible 测试相同种子的两次运行结果完全一致
func TestSchedule_Reproducible(t *testing.T) {
	for _, strategy := range []Strategy{StrategySequence, StrategyDay} {
		t.Run(string(strategy), func(t *testing.T) {
			run := func() *Result {
				s := newTestScheduler(t, func(p *Parameters) {
					p.Strategy = strategy
					p.MutationRate = 0.3
				})
				result, err := s.Schedule(context.Background())
				require.NoError(t, err)
				return result
			}

			first, second := run(), run()
			assert.Equal(t, first.Allocations, second.Allocations)
			assert.Equal(t, first.Unscheduled, second.Unscheduled)
			assert.Equal(t, first.Fitness, second.Fitness)
			assert.Equal(t, first.HardConflicts, second.HardConflicts)
			assert.Equal(t, first.SoftConflicts, second.SoftConflicts)
		})
	}
}

// TestSchedule_ParallelEvaluation 测试并发计算适应度不会改变结果
func TestSchedule_ParallelEvaluation(t *testing.T) {
	sequential := newTestScheduler(t, nil)
	parallel := newTestScheduler(t, func(p *Parameters) { p.Workers = 4 })

	r1, err := sequential.Schedule(context.Background())
	require.NoError(t, err)
	r2, err := parallel.Schedule(context.Background())
	require.NoError(t, err)

	assert.Equal(t, r1.Allocations, r2.Allocations)
	assert.Equal(t, r1.Fitness, r2.Fitness)
}

// TestSchedule_WithGenomeCodec 测试子代经过编解码后仍然可以正常排课
func TestSchedule_WithGenomeCodec(t *testing.T) {
	s := newTestScheduler(t, func(p *Parameters) {
		p.UseGenomeCodec = true
		p.Strategy = StrategyDay
	})

	result, err := s.Schedule(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Allocations), 6)
	assert.LessOrEqual(t, result.Fitness, 0)
	assertCompleteResult(t, result)
}

// assertCompleteResult 检查每个输出的组合都排满了课时，并且不会同时出现在未排入列表中
func assertCompleteResult(t *testing.T, result *Result) {
	t.Helper()

	type key struct{ course, section int64 }
	counts := make(map[key]int)
	for _, a := range result.Allocations {
		counts[key{a.CourseID, a.SectionID}]++
	}
	for k, n := range counts {
		assert.Equal(t, domain.RequiredSlotsPerCourse, n, "组合 %v 只输出了部分课时", k)
	}
	for _, u := range result.Unscheduled {
		assert.NotContains(t, counts, key{u.CourseID, u.SectionID})
	}
	assert.Equal(t, 6, len(counts)+len(result.Unscheduled))
}

// TestSchedule_DayStrategy 测试按天策略下的完整排课流程
func TestSchedule_DayStrategy(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 42} {
		s := newTestScheduler(t, func(p *Parameters) {
			p.Strategy = StrategyDay
			p.CrossoverRate = 1
			p.MutationRate = 0.5
			p.Seed = seed
		})

		result, err := s.Schedule(context.Background())
		require.NoError(t, err)
		assert.LessOrEqual(t, len(result.Allocations), 6)
		assert.Equal(t, 0, len(result.Allocations)%2)
		assertCompleteResult(t, result)
	}
}

// TestBuildResult_IncompletePairing 测试没有排满课时的组合不会输出分配结果
func TestBuildResult_IncompletePairing(t *testing.T) {
	s := newTestScheduler(t, nil)

	ch := &Chromosome{genes: []Gene{
		{course: 0, section: 0, room: 0, professor: 0, day: domain.Monday, slot: 0},
		{course: 0, section: 0, room: 0, professor: 0, day: domain.Tuesday, slot: 1},
		{course: 1, section: 1, room: 0, professor: 1, day: domain.Monday, slot: 2},
	}}

	result := s.buildResult(ch)
	require.Len(t, result.Allocations, 2)
	for _, a := range result.Allocations {
		assert.Equal(t, int64(11), a.CourseID)
		assert.Equal(t, int64(31), a.SectionID)
	}
	assert.Len(t, result.Unscheduled, 5)
	assert.Contains(t, result.Unscheduled, domain.UnscheduledPairing{CourseID: 12, SectionID: 32})
	assertCompleteResult(t, result)
}

// TestSchedule_StopOnPerfect 测试找到完美课表后提前结束
func TestSchedule_StopOnPerfect(t *testing.T) {
	// 初始化时不会产生硬冲突，忽略软冲突后初始种群就是完美的
	s := newTestScheduler(t, func(p *Parameters) {
		p.SoftConflictWeight = 0
		p.StopOnPerfect = true
	})

	result, err := s.Schedule(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopReasonPerfect, result.StopReason)
	assert.Equal(t, 0, result.Generations)
	assert.Equal(t, 0, result.Fitness)
}

// TestSchedule_Deadline 测试超时后返回目前为止的最优课表
func TestSchedule_Deadline(t *testing.T) {
	s := newTestScheduler(t, nil)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	result, err := s.Schedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopReasonDeadline, result.StopReason)
	assert.Equal(t, 0, result.Generations)
	assert.LessOrEqual(t, result.Fitness, 0)
}

// TestSchedule_Canceled 测试取消时返回错误
func TestSchedule_Canceled(t *testing.T) {
	s := newTestScheduler(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Schedule(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestSchedule_EmptyPopulation 测试没有任何教室能容纳班级时返回错误
func TestSchedule_EmptyPopulation(t *testing.T) {
	catalog := newTestCatalog()
	for i := range catalog.Rooms {
		catalog.Rooms[i].Capacity = 1
	}

	s, err := New(newTestParameters(), catalog)
	require.NoError(t, err)

	_, err = s.Schedule(context.Background())
	assert.ErrorIs(t, err, ErrEmptyPopulation)
}

// TestNew_InvalidParameters 测试非法参数
func TestNew_InvalidParameters(t *testing.T) {
	cases := map[string]func(p *Parameters){
		"种群为空":      func(p *Parameters) { p.PopulationSize = 0 },
		"迭代次数为负":    func(p *Parameters) { p.MaxGenerations = -1 },
		"锦标赛规模为 0":  func(p *Parameters) { p.TournamentSize = 0 },
		"交叉概率大于 1":  func(p *Parameters) { p.CrossoverRate = 1.5 },
		"变异概率为负":    func(p *Parameters) { p.MutationRate = -0.1 },
		"精英数量过多":    func(p *Parameters) { p.EliteCount = 11 },
		"未知策略":      func(p *Parameters) { p.Strategy = "unknown" },
		"实验课开始位置越界": func(p *Parameters) { p.LabStartPositions = []int32{5} },
	}

	for name, modify := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestParameters()
			modify(p)
			_, err := New(p, newTestCatalog())
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

// TestNew_CatalogIsCopied 测试排课器不会受到外部修改目录的影响
func TestNew_CatalogIsCopied(t *testing.T) {
	catalog := newTestCatalog()
	s, err := New(newTestParameters(), catalog)
	require.NoError(t, err)

	catalog.Courses[0].ProfessorIDs[0] = 999
	catalog.Rooms[0].Capacity = 1

	assert.Equal(t, int64(1), s.catalog.Courses[0].ProfessorIDs[0])
	assert.Equal(t, int32(40), s.catalog.Rooms[0].Capacity)
}

// TestNew_LabsFirst 测试实验课排在理论课之前
func TestNew_LabsFirst(t *testing.T) {
	s := newTestScheduler(t, nil)
	assert.Equal(t, []int{2, 0, 1}, s.courseOrder)
	assert.Equal(t, []int{0, 2, 4}, s.labStarts)
}
