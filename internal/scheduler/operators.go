package scheduler

import "github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"

// 使用锦标赛来进行选择
// 有放回地抽取 TournamentSize 个个体，返回其中适应度最高的；适应度相同时保留先抽到的
func (s *Scheduler) selectByTournament(pop []*Chromosome) *Chromosome {
	k := int(s.parameters.TournamentSize)

	if k >= len(pop) {
		// 锦标赛规模不小于种群时，直接返回整个种群中第一个最优的个体
		best := pop[0]
		for _, ch := range pop[1:] {
			if ch.fitness > best.fitness {
				best = ch
			}
		}
		return best
	}

	best := pop[s.rng.Intn(len(pop))]
	for i := 1; i < k; i++ {
		candidate := pop[s.rng.Intn(len(pop))]
		if candidate.fitness > best.fitness {
			best = candidate
		}
	}
	return best
}

// crossover 根据策略选择交叉方式，返回的两个子代都是新的染色体
func (s *Scheduler) crossover(p1, p2 *Chromosome) (*Chromosome, *Chromosome) {
	if s.parameters.Strategy == StrategyDay {
		return s.dayCrossover(p1, p2)
	}
	return s.singlePointCrossover(p1, p2)
}

// 单点交叉
// 把两个父代看作基因序列，在 [1, min(len1, len2) - 1] 中随机选一个切点
func (s *Scheduler) singlePointCrossover(p1, p2 *Chromosome) (*Chromosome, *Chromosome) {
	length1 := len(p1.genes)
	length2 := len(p2.genes)

	if s.rng.Float64() >= s.parameters.CrossoverRate || length1 <= 1 || length2 <= 1 {
		return p1.clone(), p2.clone()
	}

	point := s.rng.Intn(min(length1, length2)-1) + 1

	child1 := &Chromosome{genes: make([]Gene, 0, length2)}
	child1.genes = append(child1.genes, p1.genes[:point]...)
	child1.genes = append(child1.genes, p2.genes[point:]...)

	child2 := &Chromosome{genes: make([]Gene, 0, length1)}
	child2.genes = append(child2.genes, p2.genes[:point]...)
	child2.genes = append(child2.genes, p1.genes[point:]...)

	return child1, child2
}

// 按天交叉
// 在天的序列上随机选一个切点，切点之前的日子来自一个父代，之后的日子来自另一个父代
// 组合按第一个基因所在的天归类，两个基因总是一起移动
// 子代已经持有的组合，以及会让教师超过授课上限的组合都会被跳过
func (s *Scheduler) dayCrossover(p1, p2 *Chromosome) (*Chromosome, *Chromosome) {
	if s.rng.Float64() >= s.parameters.CrossoverRate {
		return p1.clone(), p2.clone()
	}

	point := s.rng.Intn(len(s.catalog.Days) + 1)

	days1, genes1 := p1.pairingsByDay()
	days2, genes2 := p2.pairingsByDay()

	child1 := s.assembleByDay(point, len(p1.genes), days1, genes1, days2, genes2)
	child2 := s.assembleByDay(point, len(p2.genes), days2, genes2, days1, genes1)

	return child1, child2
}

// assembleByDay 切点之前的日子取 head 中的组合，切点及之后的日子取 tail 中的组合
func (s *Scheduler) assembleByDay(
	point int,
	size int,
	headDays map[domain.Day][]pairing,
	headGenes map[pairing][]Gene,
	tailDays map[domain.Day][]pairing,
	tailGenes map[pairing][]Gene,
) *Chromosome {
	child := &Chromosome{genes: make([]Gene, 0, size)}
	held := make(map[pairing]bool)
	load := make(map[int]int)          // 教师下标 -> 组合数
	courseLoad := make(map[[2]int]int) // (教师下标, 课程下标) -> 班级数

	for i, day := range s.catalog.Days {
		days, genes := headDays, headGenes
		if i >= point {
			days, genes = tailDays, tailGenes
		}

		for _, p := range days[day] {
			if held[p] {
				continue
			}

			professor := genes[p][0].professor
			taught := [2]int{professor, p.course}
			if load[professor] >= s.professorLimit(professor) || courseLoad[taught] >= int(s.parameters.MaxSectionsPerCourse) {
				continue
			}

			held[p] = true
			load[professor]++
			courseLoad[taught]++
			child.genes = append(child.genes, genes[p]...)
		}
	}

	return child
}

// mutate 根据策略对染色体进行变异，只会修改传入的染色体
func (s *Scheduler) mutate(ch *Chromosome) {
	if s.parameters.Strategy == StrategyDay {
		s.mutateWithinDay(ch)
		return
	}
	s.mutateGenes(ch)
}

// 逐基因变异
// 每个基因都有一定概率被移动到新的天和课时，只有不引入新冲突时才接受
func (s *Scheduler) mutateGenes(ch *Chromosome) {
	for i := range ch.genes {
		if s.rng.Float64() >= s.parameters.MutationRate {
			continue
		}

		candidate := ch.genes[i]
		candidate.day = s.catalog.Days[s.rng.Intn(len(s.catalog.Days))]
		candidate.slot = s.rng.Intn(len(s.catalog.Timeslots))

		if s.acceptable(ch.genes, i, candidate) {
			ch.genes[i] = candidate
		}
	}
}

// 在某一天内变异
// 随机选一天中的一个基因，给它换一个课时，冲突检查只在这一天内进行
func (s *Scheduler) mutateWithinDay(ch *Chromosome) {
	if s.rng.Float64() >= s.parameters.MutationRate {
		return
	}

	day := s.catalog.Days[s.rng.Intn(len(s.catalog.Days))]
	indexes := []int{}
	for i, gene := range ch.genes {
		if gene.day == day {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) == 0 {
		return
	}

	i := indexes[s.rng.Intn(len(indexes))]
	candidate := ch.genes[i]
	candidate.slot = s.rng.Intn(len(s.catalog.Timeslots))

	if s.acceptable(ch.genes, i, candidate) {
		ch.genes[i] = candidate
	}
}

// acceptable 判断把第 i 个基因替换为 candidate 之后是否不会让适应度变差
// 新位置不能和任何其他基因发生硬冲突，软冲突也不能增加
func (s *Scheduler) acceptable(genes []Gene, i int, candidate Gene) bool {
	if s.softPenalty(candidate) > s.softPenalty(genes[i]) {
		return false
	}
	for j, other := range genes {
		if j == i {
			continue
		}
		if clashes(candidate, other) {
			return false
		}
	}
	return true
}
