package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/utils"
	"golang.org/x/sync/errgroup"
)

var ErrEmptyPopulation = errors.New("初始种群中的课表全部为空，请检查目录是否过于受限（例如没有任何教室能容纳班级）")

const (
	StopReasonCompleted = "completed"
	StopReasonPerfect   = "perfect"
	StopReasonDeadline  = "deadline"
)

type Scheduler struct {
	parameters     *Parameters
	catalog        *domain.Catalog // 排课期间只读
	professorIndex map[int64]int   // professorID -> 下标
	courseOrder    []int           // 实验课在前
	labStarts      []int
	codec          *genomeCodec // 只有 UseGenomeCodec 时才不为 nil
	rng            *rand.Rand
	logger         *slog.Logger
}

// Result 是排课得到的最优课表
type Result struct {
	Allocations   []domain.Allocation
	Unscheduled   []domain.UnscheduledPairing
	Fitness       int
	HardConflicts int
	SoftConflicts int
	Generations   int
	Evaluations   int
	Duration      time.Duration
	StopReason    string
}

func New(parameters *Parameters, catalog *domain.Catalog) (*Scheduler, error) {
	if err := parameters.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, errors.New("目录为空")
	}
	if err := utils.ValidateCatalog(catalog); err != nil {
		return nil, err
	}

	// 拷贝一份目录，保证排课过程中目录不会被外部修改
	catalog = catalog.Clone()
	sort.SliceStable(catalog.Timeslots, func(i, j int) bool {
		return catalog.Timeslots[i].Position < catalog.Timeslots[j].Position
	})

	s := &Scheduler{
		parameters:     parameters,
		catalog:        catalog,
		professorIndex: make(map[int64]int, len(catalog.Professors)),
		courseOrder:    make([]int, 0, len(catalog.Courses)),
		logger:         slog.Default(),
	}

	for i, professor := range catalog.Professors {
		s.professorIndex[professor.ID] = i
	}

	for i := range catalog.Courses {
		if catalog.Courses[i].IsLab() {
			s.courseOrder = append(s.courseOrder, i)
		}
	}
	for i := range catalog.Courses {
		if !catalog.Courses[i].IsLab() {
			s.courseOrder = append(s.courseOrder, i)
		}
	}

	// 实验课需要占用 start 与 start+1 两个课时
	slotCount := len(catalog.Timeslots)
	if len(parameters.LabStartPositions) == 0 {
		for p := 0; p+1 < slotCount; p += 2 {
			s.labStarts = append(s.labStarts, p)
		}
	} else {
		for _, p := range parameters.LabStartPositions {
			if int(p)+1 >= slotCount {
				return nil, fmt.Errorf("%w: 实验课开始位置 %d 之后没有相邻的课时", ErrInvalidParameters, p)
			}
			s.labStarts = append(s.labStarts, int(p))
		}
	}

	if parameters.UseGenomeCodec {
		codec, err := newGenomeCodec(catalog, dayEncoded, nil)
		if err != nil {
			return nil, err
		}
		s.codec = codec
	}

	seed := parameters.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed))

	return s, nil
}

func (s *Scheduler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Schedule 运行遗传算法
// ctx 只在每一代开始前检查：取消时返回错误，超时时返回目前为止的最优课表
func (s *Scheduler) Schedule(ctx context.Context) (*Result, error) {
	start := time.Now()
	size := int(s.parameters.PopulationSize)

	// 生成初始种群
	pop := make([]*Chromosome, size)
	allEmpty := true
	for i := 0; i < size; i++ {
		pop[i] = s.randomInitChromosome()
		if len(pop[i].genes) > 0 {
			allEmpty = false
		}
	}
	if allEmpty {
		return nil, ErrEmptyPopulation
	}

	if err := s.evaluatePopulation(ctx, pop); err != nil {
		return nil, err
	}
	evaluations := size

	// 这里需要使用深拷贝，防止后续繁殖的过程中导致最优个体被修改
	bestChromosomeEver := pop[bestIndex(pop)].clone()

	stopReason := StopReasonCompleted
	gen := 0
	for ; gen < int(s.parameters.MaxGenerations); gen++ {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				stopReason = StopReasonDeadline
				break
			}
			return nil, err
		}
		if s.parameters.StopOnPerfect && bestChromosomeEver.fitness == 0 {
			stopReason = StopReasonPerfect
			break
		}

		// 繁殖
		newPop := make([]*Chromosome, 0, size)

		// 保留精英：第一个位置留给历史最优，其余位置留给本代最好的个体
		newPop = append(newPop, bestChromosomeEver.clone())
		if s.parameters.EliteCount > 1 {
			ranked := make([]*Chromosome, len(pop))
			copy(ranked, pop)
			sort.SliceStable(ranked, func(i, j int) bool {
				return ranked[i].fitness > ranked[j].fitness
			})
			for _, ch := range ranked[:int(s.parameters.EliteCount)-1] {
				newPop = append(newPop, ch.clone())
			}
		}

		// 在剩余的位置中进行交叉和变异
		for len(newPop) < size {
			// 选择两个父本
			p1 := s.selectByTournament(pop)
			p2 := s.selectByTournament(pop)

			child1, child2 := s.crossover(p1, p2)
			s.mutate(child1)
			s.mutate(child2)

			if s.codec != nil {
				var err error
				if child1, err = s.codec.decode(s.codec.encode(child1)); err != nil {
					return nil, err
				}
				if child2, err = s.codec.decode(s.codec.encode(child2)); err != nil {
					return nil, err
				}
			}

			newPop = append(newPop, child1)
			if len(newPop) < size {
				newPop = append(newPop, child2)
			}
		}

		if err := s.evaluatePopulation(ctx, newPop); err != nil {
			return nil, err
		}
		evaluations += len(newPop)
		pop = newPop

		// 只有严格更优时才替换历史最优，保证相同适应度下结果稳定
		genBest := pop[bestIndex(pop)]
		if genBest.fitness > bestChromosomeEver.fitness {
			bestChromosomeEver = genBest.clone()
		}

		s.logger.Debug("完成一代繁殖", "generation", gen+1, "genBestFitness", genBest.fitness, "bestFitness", bestChromosomeEver.fitness)
	}

	result := s.buildResult(bestChromosomeEver)
	result.Generations = gen
	result.Evaluations = evaluations
	result.Duration = time.Since(start)
	result.StopReason = stopReason

	// 还需要检查一下结果是否和目录对得上
	if err := utils.ValidateTimetableWithCatalog(&domain.Timetable{Allocations: result.Allocations}, s.catalog); err != nil {
		return nil, err
	}

	s.logger.Info("排课完成",
		"fitness", result.Fitness,
		"hardConflicts", result.HardConflicts,
		"softConflicts", result.SoftConflicts,
		"unscheduled", len(result.Unscheduled),
		"generations", result.Generations,
		"stopReason", result.StopReason,
		"duration", result.Duration,
	)

	return result, nil
}

// evaluatePopulation 计算整个种群的适应度
// 每个个体的计算相互独立，全部完成后才会开始下一步的选择
func (s *Scheduler) evaluatePopulation(ctx context.Context, pop []*Chromosome) error {
	if s.parameters.Workers <= 1 {
		for _, ch := range pop {
			s.calcFitness(ch)
		}
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(int(s.parameters.Workers))
	for _, ch := range pop {
		g.Go(func() error {
			s.calcFitness(ch)
			return nil
		})
	}
	return g.Wait()
}

// bestIndex 返回种群中第一个适应度最高的个体的下标
func bestIndex(pop []*Chromosome) int {
	best := 0
	for i := 1; i < len(pop); i++ {
		if pop[i].fitness > pop[best].fitness {
			best = i
		}
	}
	return best
}

// buildResult 把基因中的下标换回数据库 ID
func (s *Scheduler) buildResult(ch *Chromosome) *Result {
	result := &Result{
		Allocations:   make([]domain.Allocation, 0, len(ch.genes)),
		Unscheduled:   make([]domain.UnscheduledPairing, 0),
		Fitness:       ch.fitness,
		HardConflicts: ch.hard,
		SoftConflicts: ch.soft,
	}

	placed := make(map[pairing]int)
	for _, gene := range ch.genes {
		placed[pairing{course: gene.course, section: gene.section}]++
	}

	// 只有排满课时的组合才会输出，其余的 (课程, 班级) 组合都算作未排入
	for _, gene := range ch.genes {
		if placed[pairing{course: gene.course, section: gene.section}] != s.catalog.Courses[gene.course].RequiredSlots() {
			continue
		}
		result.Allocations = append(result.Allocations, domain.Allocation{
			CourseID:    s.catalog.Courses[gene.course].ID,
			SectionID:   s.catalog.Sections[gene.section].ID,
			RoomID:      s.catalog.Rooms[gene.room].ID,
			ProfessorID: s.catalog.Professors[gene.professor].ID,
			Day:         gene.day,
			TimeslotID:  s.catalog.Timeslots[gene.slot].ID,
		})
	}

	for _, ci := range s.courseOrder {
		course := &s.catalog.Courses[ci]
		for si, section := range s.catalog.Sections {
			if placed[pairing{course: ci, section: si}] != course.RequiredSlots() {
				result.Unscheduled = append(result.Unscheduled, domain.UnscheduledPairing{
					CourseID:  course.ID,
					SectionID: section.ID,
				})
			}
		}
	}

	return result
}
