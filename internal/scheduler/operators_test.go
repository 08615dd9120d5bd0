package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

// randomChromosome 生成一个完全随机的染色体，可能包含任意多的冲突
func randomChromosome(s *Scheduler, rng *rand.Rand, n int) *Chromosome {
	ch := &Chromosome{genes: make([]Gene, n)}
	for i := range ch.genes {
		ch.genes[i] = Gene{
			course:    rng.Intn(len(s.catalog.Courses)),
			section:   rng.Intn(len(s.catalog.Sections)),
			room:      rng.Intn(len(s.catalog.Rooms)),
			professor: rng.Intn(len(s.catalog.Professors)),
			day:       s.catalog.Days[rng.Intn(len(s.catalog.Days))],
			slot:      rng.Intn(len(s.catalog.Timeslots)),
		}
	}
	return ch
}

func withFitness(values ...int) []*Chromosome {
	pop := make([]*Chromosome, len(values))
	for i, v := range values {
		pop[i] = &Chromosome{fitness: v}
	}
	return pop
}

// TestSelectByTournament_WholePopulation 测试锦标赛规模等于种群大小时总是返回第一个最优个体
func TestSelectByTournament_WholePopulation(t *testing.T) {
	s := newTestScheduler(t, func(p *Parameters) { p.TournamentSize = 4 })
	pop := withFitness(-5, -1, -1, -3)

	for i := 0; i < 20; i++ {
		assert.Same(t, pop[1], s.selectByTournament(pop))
	}
}

// TestSelectByTournament_Uniform 测试锦标赛规模为 1 时退化为均匀随机选择
func TestSelectByTournament_Uniform(t *testing.T) {
	s := newTestScheduler(t, func(p *Parameters) { p.TournamentSize = 1 })
	pop := withFitness(-5, -1, -3, -2)

	hits := make(map[*Chromosome]int)
	for i := 0; i < 4000; i++ {
		hits[s.selectByTournament(pop)]++
	}

	require.Len(t, hits, len(pop))
	for _, ch := range pop {
		assert.InDelta(t, 1000, hits[ch], 200)
	}
}

// TestCrossover_ZeroRate 测试交叉概率为 0 时返回父代的拷贝
func TestCrossover_ZeroRate(t *testing.T) {
	for _, strategy := range []Strategy{StrategySequence, StrategyDay} {
		t.Run(string(strategy), func(t *testing.T) {
			s := newTestScheduler(t, func(p *Parameters) {
				p.CrossoverRate = 0
				p.Strategy = strategy
			})
			rng := rand.New(rand.NewSource(1))

			for i := 0; i < 50; i++ {
				p1 := randomChromosome(s, rng, 6)
				p2 := randomChromosome(s, rng, 4)

				c1, c2 := s.crossover(p1, p2)
				assert.Equal(t, p1.genes, c1.genes)
				assert.Equal(t, p2.genes, c2.genes)
				assert.NotSame(t, p1, c1)
				assert.NotSame(t, p2, c2)

				// 修改子代不会影响父代
				c1.genes[0].slot = -1
				assert.NotEqual(t, -1, p1.genes[0].slot)
			}
		})
	}
}

// TestSinglePointCrossover_PreservesLength 测试单点交叉不改变基因总数
func TestSinglePointCrossover_PreservesLength(t *testing.T) {
	s := newTestScheduler(t, func(p *Parameters) { p.CrossoverRate = 1 })
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 100; i++ {
		p1 := randomChromosome(s, rng, rng.Intn(8))
		p2 := randomChromosome(s, rng, rng.Intn(8))

		c1, c2 := s.singlePointCrossover(p1, p2)
		assert.Equal(t, len(p1.genes)+len(p2.genes), len(c1.genes)+len(c2.genes))
		assert.ElementsMatch(t, append(append([]Gene{}, p1.genes...), p2.genes...), append(append([]Gene{}, c1.genes...), c2.genes...))
	}
}

// TestDayCrossover_KeepsPairingsWhole 测试按天交叉时每个组合的基因都完整地来自同一个父代
func TestDayCrossover_KeepsPairingsWhole(t *testing.T) {
	s := newTestScheduler(t, func(p *Parameters) {
		p.CrossoverRate = 1
		p.Strategy = StrategyDay
	})
	rng := rand.New(rand.NewSource(3))

	genesOf := func(ch *Chromosome) map[pairing][]Gene {
		genes := make(map[pairing][]Gene)
		for _, gene := range ch.genes {
			p := pairing{course: gene.course, section: gene.section}
			genes[p] = append(genes[p], gene)
		}
		return genes
	}

	check := func(p1, p2 *Chromosome) {
		from1, from2 := genesOf(p1), genesOf(p2)

		c1, c2 := s.dayCrossover(p1, p2)
		for _, child := range []*Chromosome{c1, c2} {
			for p, genes := range genesOf(child) {
				if !assert.ObjectsAreEqual(from1[p], genes) {
					assert.Equal(t, from2[p], genes, "组合 %v 的基因来自两个父代", p)
				}
			}
		}
	}

	// 随机染色体中一个组合可能有任意多个基因
	for i := 0; i < 200; i++ {
		check(randomChromosome(s, rng, 10), randomChromosome(s, rng, 10))
	}

	// 初始化出来的染色体中，子代的每个组合都必须排满课时
	for i := 0; i < 500; i++ {
		p1, p2 := s.randomInitChromosome(), s.randomInitChromosome()
		check(p1, p2)

		c1, c2 := s.dayCrossover(p1, p2)
		for _, child := range []*Chromosome{c1, c2} {
			load := make(map[int]int)
			for p, genes := range genesOf(child) {
				course := s.catalog.Courses[p.course]
				assert.Len(t, genes, course.RequiredSlots(), "组合 %v 只有部分课时", p)
				load[genes[0].professor]++
			}
			for pi, n := range load {
				assert.LessOrEqual(t, n, s.professorLimit(pi), "教师 %d 超过了授课上限", pi)
			}
			assert.LessOrEqual(t, len(child.genes), 6)
		}
	}
}

// TestDayCrossover_DaysFromOneParent 测试切点前后的日子分别来自不同的父代
func TestDayCrossover_DaysFromOneParent(t *testing.T) {
	p := newTestParameters()
	p.CrossoverRate = 1
	p.Strategy = StrategyDay
	p.MaxSectionsPerCourse = 2

	// 放宽教师上限，让两个父代的组合可以全部留在子代中
	catalog := newTestCatalog()
	catalog.Professors[0].MaxCourses = 4
	s, err := New(p, catalog)
	require.NoError(t, err)

	// 每个组合的两个基因都在同一天，不会出现被跳过的组合
	p1 := &Chromosome{genes: []Gene{
		{course: 0, section: 0, day: domain.Monday, slot: 0},
		{course: 0, section: 0, day: domain.Monday, slot: 1},
		{course: 1, section: 0, day: domain.Friday, slot: 0},
		{course: 1, section: 0, day: domain.Friday, slot: 1},
	}}
	p2 := &Chromosome{genes: []Gene{
		{course: 0, section: 1, day: domain.Monday, slot: 2},
		{course: 0, section: 1, day: domain.Monday, slot: 3},
		{course: 1, section: 1, day: domain.Friday, slot: 2},
		{course: 1, section: 1, day: domain.Friday, slot: 3},
	}}

	seen := make(map[int]bool)
	for i := 0; i < 100; i++ {
		c1, c2 := s.dayCrossover(p1, p2)
		assert.Equal(t, len(p1.genes)+len(p2.genes), len(c1.genes)+len(c2.genes))
		assert.ElementsMatch(t, append(append([]Gene{}, p1.genes...), p2.genes...), append(append([]Gene{}, c1.genes...), c2.genes...))

		// 星期一的课表来自 p1 时，子代 1 一定以 p1 的基因开头
		if c1.genes[0] == p1.genes[0] {
			seen[0] = true
		} else {
			assert.Equal(t, p2.genes[0], c1.genes[0])
			seen[1] = true
		}
	}
	assert.Len(t, seen, 2)
}

// TestMutate_NeverDecreasesFitness 测试变异不会让适应度变差
func TestMutate_NeverDecreasesFitness(t *testing.T) {
	for _, strategy := range []Strategy{StrategySequence, StrategyDay} {
		t.Run(string(strategy), func(t *testing.T) {
			s := newTestScheduler(t, func(p *Parameters) {
				p.MutationRate = 1
				p.Strategy = strategy
			})
			rng := rand.New(rand.NewSource(4))

			for i := 0; i < 300; i++ {
				var ch *Chromosome
				if i%2 == 0 {
					ch = s.randomInitChromosome()
				} else {
					ch = randomChromosome(s, rng, 12)
				}

				s.calcFitness(ch)
				before := ch.fitness

				s.mutate(ch)
				s.calcFitness(ch)
				assert.GreaterOrEqual(t, ch.fitness, before)
			}
		})
	}
}

// TestMutate_KeepsIdentity 测试变异只会移动基因的天和课时
func TestMutate_KeepsIdentity(t *testing.T) {
	s := newTestScheduler(t, func(p *Parameters) { p.MutationRate = 1 })
	rng := rand.New(rand.NewSource(5))

	ch := randomChromosome(s, rng, 12)
	before := ch.clone()
	s.mutate(ch)

	require.Len(t, ch.genes, len(before.genes))
	for i := range ch.genes {
		a, b := ch.genes[i], before.genes[i]
		assert.Equal(t, []int{a.course, a.section, a.room, a.professor}, []int{b.course, b.section, b.room, b.professor})
	}
}

// TestChromosome_Clone 测试深拷贝
func TestChromosome_Clone(t *testing.T) {
	ch := &Chromosome{
		genes:       []Gene{{course: 1, day: domain.Monday, slot: 2}},
		fitness:     -3,
		unscheduled: []pairing{{course: 0, section: 1}},
	}

	clone := ch.clone()
	assert.Equal(t, ch, clone)

	clone.genes[0].slot = 5
	clone.unscheduled[0].section = 0
	assert.Equal(t, 2, ch.genes[0].slot)
	assert.Equal(t, 1, ch.unscheduled[0].section)
}

// TestChromosome_PairingsByDay 测试组合归到第一个基因所在的天
func TestChromosome_PairingsByDay(t *testing.T) {
	ch := &Chromosome{genes: []Gene{
		{course: 0, section: 0, day: domain.Tuesday, slot: 1},
		{course: 1, section: 0, day: domain.Monday, slot: 0},
		{course: 0, section: 0, day: domain.Friday, slot: 3},
		{course: 1, section: 0, day: domain.Monday, slot: 2},
		{course: 0, section: 1, day: domain.Tuesday, slot: 4},
	}}

	days, genes := ch.pairingsByDay()
	assert.Equal(t, []pairing{{course: 1, section: 0}}, days[domain.Monday])
	assert.Equal(t, []pairing{{course: 0, section: 0}, {course: 0, section: 1}}, days[domain.Tuesday])
	assert.Empty(t, days[domain.Friday])

	assert.Equal(t, []Gene{ch.genes[0], ch.genes[2]}, genes[pairing{course: 0, section: 0}])
	assert.Equal(t, []Gene{ch.genes[1], ch.genes[3]}, genes[pairing{course: 1, section: 0}])
	assert.Equal(t, []Gene{ch.genes[4]}, genes[pairing{course: 0, section: 1}])
}
