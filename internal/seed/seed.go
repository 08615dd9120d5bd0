package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"

	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/repository"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/utils"
)

// SeedRandomCatalog 插入一份随机目录，includeTimeslots 为 false 时不插入课时
func SeedRandomCatalog(r *repository.Repository, rng *rand.Rand, opts utils.CatalogOptions, includeTimeslots bool) (*domain.Catalog, error) {
	catalog := utils.GenerateRandomCatalog(rng, opts)
	if !includeTimeslots {
		catalog.Timeslots = nil
	}

	if err := r.InsertCatalog(catalog); err != nil {
		return nil, err
	}

	slog.Info("插入随机目录成功",
		"courses", len(catalog.Courses),
		"professors", len(catalog.Professors),
		"rooms", len(catalog.Rooms),
		"sections", len(catalog.Sections),
		"timeslots", len(catalog.Timeslots),
	)
	return catalog, nil
}

// SeedUsers 在同一个事务中插入 n 个随机教务员
func SeedUsers(r *repository.Repository, rng *rand.Rand, n int, password string, emailDomainName string) ([]*domain.User, error) {
	if n <= 0 {
		return nil, errors.New("请输入合法的用户数量")
	}

	users := make([]*domain.User, 0, n)
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(rng, password, emailDomainName)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := r.CreateUsers(users); err != nil {
		return nil, err
	}

	slog.Info("插入用户成功", slog.Int("count", len(users)))
	return users, nil
}

func SeedDefaultTimeslots(r *repository.Repository) error {
	timeslots := utils.DefaultTimeslots()
	if err := r.CreateTimeslots(timeslots); err != nil {
		return err
	}

	slog.Info("插入默认课时成功", slog.Int("count", len(timeslots)))
	return nil
}

// CourseRecord 是课程表格中的一行
type CourseRecord struct {
	Code       string
	Name       string
	Kind       domain.CourseKind
	Professors []string // 教师姓名
}

var courseHeaders = []string{"课程代码", "课程名称", "类型", "教师"}

var courseKindNames = map[string]domain.CourseKind{
	"理论": domain.CourseKindTheory,
	"实验": domain.CourseKindLab,
}

// ParseCoursesCSV 读取课程表格，多个教师之间用顿号分隔
func ParseCoursesCSV(in io.Reader) ([]CourseRecord, error) {
	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	columns := make(map[string]int, len(headers))
	for i, header := range headers {
		columns[strings.TrimSpace(header)] = i
	}
	for _, header := range courseHeaders {
		if _, ok := columns[header]; !ok {
			return nil, fmt.Errorf("没有找到列 %q", header)
		}
	}

	records := make([]CourseRecord, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("读取第 %d 行失败: %w", line, err)
		}

		kind, ok := courseKindNames[strings.TrimSpace(row[columns["类型"]])]
		if !ok {
			return nil, fmt.Errorf("第 %d 行的课程类型 %q 无效", line, row[columns["类型"]])
		}

		record := CourseRecord{
			Code: strings.TrimSpace(row[columns["课程代码"]]),
			Name: strings.TrimSpace(row[columns["课程名称"]]),
			Kind: kind,
		}
		for _, name := range strings.Split(row[columns["教师"]], "、") {
			if name = strings.TrimSpace(name); name != "" {
				record.Professors = append(record.Professors, name)
			}
		}

		if record.Code == "" || record.Name == "" {
			return nil, fmt.Errorf("第 %d 行缺少课程代码或课程名称", line)
		}
		if len(record.Professors) == 0 {
			return nil, fmt.Errorf("第 %d 行没有填写教师", line)
		}

		records = append(records, record)
	}

	return records, nil
}

// SeedCoursesFromCSV 从表格中导入课程，数据库中不存在的教师会被自动创建
func SeedCoursesFromCSV(r *repository.Repository, rng *rand.Rand, path string, emailDomainName string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	records, err := ParseCoursesCSV(file)
	if err != nil {
		return err
	}

	catalog, err := r.GetCatalog()
	if err != nil {
		return err
	}

	// 按姓名查找已有的教师
	professorIDs := make(map[string]int64, len(catalog.Professors))
	for _, professor := range catalog.Professors {
		professorIDs[professor.FullName] = professor.ID
	}

	cnt := 0
	for _, record := range records {
		course := &domain.Course{
			Code: record.Code,
			Name: record.Name,
			Kind: record.Kind,
		}

		for _, name := range record.Professors {
			id, ok := professorIDs[name]
			if !ok {
				username := utils.GenerateUsernameFromChineseName(rng, name)
				professor := &domain.Professor{
					Username: username,
					FullName: name,
					Email:    username + "@" + emailDomainName,
				}
				if err := r.CreateProfessor(professor); err != nil {
					slog.Error("插入教师失败", "name", name, "error", err)
					continue
				}
				id = professor.ID
				professorIDs[name] = id
			}
			course.ProfessorIDs = append(course.ProfessorIDs, id)
		}

		if len(course.ProfessorIDs) == 0 {
			slog.Error("课程没有可以授课的教师", "code", course.Code)
			continue
		}

		if err := r.CreateCourse(course); err != nil {
			slog.Error("插入课程失败", "code", course.Code, "error", err)
			continue
		}
		cnt++
	}

	slog.Info("导入课程完成", slog.Int("count", cnt), slog.Int("total", len(records)))
	return nil
}
