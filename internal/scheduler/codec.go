package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

const (
	fieldBits = 8
	// 每个目录最多只能有 256 个实体，下标才能放进 8 位
	maxCatalogEntries = 1 << fieldBits
)

var (
	ErrCatalogTooLarge = errors.New("目录中的实体数量超过了编码上限")
	ErrCodecMalformed  = errors.New("无法解码基因串")
)

type dayMode int

const (
	// 每个基因额外用 8 位保存天数，编码是无损的
	dayEncoded dayMode = iota
	// 每个基因只保存 40 位，解码时通过 dayPolicy 确定性地还原天数
	dayFromPolicy
)

// dayPolicy 根据基因在串中的位置以及解码出来的其余字段决定它所在的天
type dayPolicy func(index int, g Gene) domain.Day

// genomeCodec 在染色体与定长二进制串之间互相转换
// 每个基因依次为 课程、班级、课时、教室、教师 的下标，每个字段 8 位
type genomeCodec struct {
	mode   dayMode
	policy dayPolicy
	limits [5]int // 各字段下标的上限，顺序同编码顺序
	days   map[domain.Day]struct{}
}

func newGenomeCodec(catalog *domain.Catalog, mode dayMode, policy dayPolicy) (*genomeCodec, error) {
	limits := [5]int{
		len(catalog.Courses),
		len(catalog.Sections),
		len(catalog.Timeslots),
		len(catalog.Rooms),
		len(catalog.Professors),
	}
	for _, n := range limits {
		if n > maxCatalogEntries {
			return nil, fmt.Errorf("%w: %d > %d", ErrCatalogTooLarge, n, maxCatalogEntries)
		}
	}
	if mode == dayFromPolicy && policy == nil {
		return nil, errors.New("不编码天数时必须提供还原天数的策略")
	}

	days := make(map[domain.Day]struct{}, len(catalog.Days))
	for _, day := range catalog.Days {
		days[day] = struct{}{}
	}

	return &genomeCodec{
		mode:   mode,
		policy: policy,
		limits: limits,
		days:   days,
	}, nil
}

func (c *genomeCodec) recordBits() int {
	if c.mode == dayEncoded {
		return fieldBits * 6
	}
	return fieldBits * 5
}

func (c *genomeCodec) encode(ch *Chromosome) string {
	var sb strings.Builder
	sb.Grow(len(ch.genes) * c.recordBits())

	for _, gene := range ch.genes {
		fields := []int{gene.course, gene.section, gene.slot, gene.room, gene.professor}
		if c.mode == dayEncoded {
			fields = append(fields, int(gene.day))
		}
		for _, v := range fields {
			fmt.Fprintf(&sb, "%08b", v)
		}
	}

	return sb.String()
}

func (c *genomeCodec) decode(encoded string) (*Chromosome, error) {
	step := c.recordBits()
	if len(encoded)%step != 0 {
		return nil, fmt.Errorf("%w: 长度 %d 不是 %d 的整数倍", ErrCodecMalformed, len(encoded), step)
	}

	ch := &Chromosome{genes: make([]Gene, 0, len(encoded)/step)}
	for i := 0; i < len(encoded); i += step {
		var fields [6]int
		for f := 0; f < step/fieldBits; f++ {
			start := i + f*fieldBits
			v, err := strconv.ParseUint(encoded[start:start+fieldBits], 2, fieldBits)
			if err != nil {
				return nil, fmt.Errorf("%w: 第 %d 位开始的字段无效", ErrCodecMalformed, start)
			}
			fields[f] = int(v)
		}

		for f, limit := range c.limits {
			if fields[f] >= limit {
				return nil, fmt.Errorf("%w: 第 %d 个基因的第 %d 个字段越界", ErrCodecMalformed, len(ch.genes), f)
			}
		}

		gene := Gene{
			course:    fields[0],
			section:   fields[1],
			slot:      fields[2],
			room:      fields[3],
			professor: fields[4],
		}
		if c.mode == dayEncoded {
			gene.day = domain.Day(fields[5])
		} else {
			gene.day = c.policy(len(ch.genes), gene)
		}
		if _, ok := c.days[gene.day]; !ok {
			return nil, fmt.Errorf("%w: 第 %d 个基因的天数 %d 无效", ErrCodecMalformed, len(ch.genes), gene.day)
		}

		ch.genes = append(ch.genes, gene)
	}

	return ch, nil
}
