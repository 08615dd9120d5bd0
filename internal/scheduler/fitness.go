package scheduler

/**
 * 计算染色体的适应度
 * fitness = - HardConflictWeight * hard - SoftConflictWeight * soft
 * 其中:
 * 		1. hard 为硬冲突次数：某个 (教师/教室/班级, 天, 课时) 每多出现一次就记一次
 * 		2. soft 为软冲突次数：理论课排得太晚或者实验课排得太早
 * 没有任何冲突的课表适应度为 0，适应度越小越差
 */
func (s *Scheduler) calcFitness(ch *Chromosome) {
	hard, soft := s.countConflicts(ch.genes)
	ch.hard = hard
	ch.soft = soft
	ch.fitness = -(hard*int(s.parameters.HardConflictWeight) + soft*int(s.parameters.SoftConflictWeight))
}

// countConflicts 只扫描一遍基因
// 冲突在某个位置第二次（及以后）出现时才计数，第一个占用者不会被追溯惩罚
func (s *Scheduler) countConflicts(genes []Gene) (hard int, soft int) {
	occupied := newOccupancy(len(genes))

	for _, gene := range genes {
		hard += occupied.occupy(gene)
		soft += s.softPenalty(gene)
	}

	return hard, soft
}

// softPenalty 理论课排在靠后的课时、实验课排在靠前的课时都算一次软冲突
func (s *Scheduler) softPenalty(g Gene) int {
	threshold := int(s.parameters.SoftSlotThreshold)
	if s.catalog.Courses[g.course].IsLab() {
		if g.slot < threshold {
			return 1
		}
		return 0
	}
	if g.slot >= threshold {
		return 1
	}
	return 0
}
