package scheduler

import (
	"errors"
	"fmt"

	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

// Gene: 表示某个 (课程, 班级) 在某一天的某个课时上的一次占用
// 所有字段都是排课器内部目录切片中的下标，而不是数据库 ID
type Gene struct {
	course    int
	section   int
	room      int
	professor int
	day       domain.Day
	slot      int // 课时在一天中的位置
}

// pairing: 一个 (课程, 班级) 组合
type pairing struct {
	course  int
	section int
}

// Chromosome: 整个课表
type Chromosome struct {
	genes       []Gene
	fitness     int
	hard        int // 硬冲突次数
	soft        int // 软冲突次数
	unscheduled []pairing
}

// clone 深拷贝染色体，交叉和变异都只作用在拷贝上，不会修改父代
func (ch *Chromosome) clone() *Chromosome {
	return &Chromosome{
		genes:       append([]Gene(nil), ch.genes...),
		fitness:     ch.fitness,
		hard:        ch.hard,
		soft:        ch.soft,
		unscheduled: append([]pairing(nil), ch.unscheduled...),
	}
}

// pairingsByDay 把基因按 (课程, 班级) 组合分组，每个组合归到它第一个基因所在的那一天
// 同一个组合的基因在交叉时总是一起移动，返回的组合按第一次出现的顺序排列
func (ch *Chromosome) pairingsByDay() (map[domain.Day][]pairing, map[pairing][]Gene) {
	days := make(map[domain.Day][]pairing)
	genes := make(map[pairing][]Gene)
	for _, gene := range ch.genes {
		p := pairing{course: gene.course, section: gene.section}
		if _, exists := genes[p]; !exists {
			days[gene.day] = append(days[gene.day], p)
		}
		genes[p] = append(genes[p], gene)
	}
	return days, genes
}

type Strategy string

const (
	// 把染色体视为基因序列：单点交叉 + 逐基因变异
	StrategySequence Strategy = "sequence"
	// 把染色体视为按天分桶的课表：按天交叉 + 在某一天内变异
	StrategyDay Strategy = "day"
)

var ErrInvalidParameters = errors.New("排课参数不合法")

// 遗传算法参数
type Parameters struct {
	PopulationSize       int32    // 种群大小
	MaxGenerations       int32    // 最大迭代次数
	TournamentSize       int32    // 锦标赛规模
	CrossoverRate        float64  // 交叉概率
	MutationRate         float64  // 变异概率
	EliteCount           int32    // 精英数量，第一个位置永远留给历史最优
	HardConflictWeight   int32    // 硬冲突权重
	SoftConflictWeight   int32    // 软冲突权重
	MaxPlacementAttempts int32    // 初始化时每个 (课程, 班级) 组合的最大尝试次数
	MaxCoursesPerDay     int32    // 每个班级每天最多的课程数
	DefaultProfessorLoad int32    // 教师没有设置上限时的默认授课数量上限
	MaxSectionsPerCourse int32    // 同一个教师同一门课最多可以教的班级数
	SoftSlotThreshold    int32    // 理论课位于此位置及之后、实验课位于此位置之前都算软冲突
	LabStartPositions    []int32  // 实验课可以开始的课时位置，为空时使用所有偶数位置
	Strategy             Strategy // 交叉与变异所使用的染色体视角
	UseGenomeCodec       bool     // 是否让每个子代都经过一次二进制编码与解码
	Workers              int32    // 计算适应度的并发数
	Seed                 int64    // 随机种子，为 0 时使用当前时间
	StopOnPerfect        bool     // 找到没有任何冲突的课表后是否提前结束
}

func DefaultParameters() *Parameters {
	return &Parameters{
		PopulationSize:       50,
		MaxGenerations:       100,
		TournamentSize:       3,
		CrossoverRate:        0.8,
		MutationRate:         0.02,
		EliteCount:           1,
		HardConflictWeight:   10,
		SoftConflictWeight:   1,
		MaxPlacementAttempts: 50,
		MaxCoursesPerDay:     3,
		DefaultProfessorLoad: 3,
		MaxSectionsPerCourse: 1,
		SoftSlotThreshold:    4,
		Strategy:             StrategySequence,
		Workers:              1,
	}
}

func (p *Parameters) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: 参数为空", ErrInvalidParameters)
	}
	if p.PopulationSize <= 0 {
		return fmt.Errorf("%w: 种群大小必须大于 0（当前为 %d）", ErrInvalidParameters, p.PopulationSize)
	}
	if p.MaxGenerations <= 0 {
		return fmt.Errorf("%w: 迭代次数必须大于 0（当前为 %d）", ErrInvalidParameters, p.MaxGenerations)
	}
	if p.TournamentSize < 1 {
		return fmt.Errorf("%w: 锦标赛规模必须至少为 1（当前为 %d）", ErrInvalidParameters, p.TournamentSize)
	}
	if p.CrossoverRate < 0 || p.CrossoverRate > 1 {
		return fmt.Errorf("%w: 交叉概率必须在 [0, 1] 之间（当前为 %f）", ErrInvalidParameters, p.CrossoverRate)
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return fmt.Errorf("%w: 变异概率必须在 [0, 1] 之间（当前为 %f）", ErrInvalidParameters, p.MutationRate)
	}
	if p.EliteCount < 1 || p.EliteCount > p.PopulationSize {
		return fmt.Errorf("%w: 精英数量必须在 [1, %d] 之间（当前为 %d）", ErrInvalidParameters, p.PopulationSize, p.EliteCount)
	}
	if p.HardConflictWeight < 0 || p.SoftConflictWeight < 0 {
		return fmt.Errorf("%w: 冲突权重不能为负数", ErrInvalidParameters)
	}
	if p.MaxPlacementAttempts <= 0 {
		return fmt.Errorf("%w: 最大尝试次数必须大于 0（当前为 %d）", ErrInvalidParameters, p.MaxPlacementAttempts)
	}
	if p.MaxCoursesPerDay <= 0 {
		return fmt.Errorf("%w: 每天最多课程数必须大于 0（当前为 %d）", ErrInvalidParameters, p.MaxCoursesPerDay)
	}
	if p.DefaultProfessorLoad <= 0 {
		return fmt.Errorf("%w: 教师默认授课上限必须大于 0（当前为 %d）", ErrInvalidParameters, p.DefaultProfessorLoad)
	}
	if p.MaxSectionsPerCourse <= 0 {
		return fmt.Errorf("%w: 同一门课的班级上限必须大于 0（当前为 %d）", ErrInvalidParameters, p.MaxSectionsPerCourse)
	}
	if p.SoftSlotThreshold < 0 {
		return fmt.Errorf("%w: 软约束阈值不能为负数（当前为 %d）", ErrInvalidParameters, p.SoftSlotThreshold)
	}
	if p.Strategy != StrategySequence && p.Strategy != StrategyDay {
		return fmt.Errorf("%w: 未知的策略 %q", ErrInvalidParameters, p.Strategy)
	}
	if p.Workers < 1 {
		return fmt.Errorf("%w: 并发数必须至少为 1（当前为 %d）", ErrInvalidParameters, p.Workers)
	}
	for _, pos := range p.LabStartPositions {
		if pos < 0 {
			return fmt.Errorf("%w: 实验课开始位置不能为负数（当前为 %d）", ErrInvalidParameters, pos)
		}
	}
	return nil
}
