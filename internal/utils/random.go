package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName(rng *rand.Rand) string {
	surname := commonSurnames[rng.Intn(len(commonSurnames))]
	nameLength := rng.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rng.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(rng *rand.Rand, chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rng.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rng.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rng.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(rng *rand.Rand, password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName(rng)
	username := GenerateUsernameFromChineseName(rng, fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         domain.RoleStaff,
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

// DefaultTimeslots 返回每天 6 节课的默认课时表
func DefaultTimeslots() []domain.Timeslot {
	times := [][2]string{
		{"08:30:00", "09:50:00"},
		{"10:00:00", "11:20:00"},
		{"11:30:00", "12:50:00"},
		{"13:00:00", "14:20:00"},
		{"14:30:00", "15:50:00"},
		{"16:00:00", "17:20:00"},
	}

	timeslots := make([]domain.Timeslot, len(times))
	for i, t := range times {
		timeslots[i] = domain.Timeslot{
			ID:        int64(i + 1),
			Position:  int32(i),
			StartTime: t[0],
			EndTime:   t[1],
		}
	}
	return timeslots
}

var theoryCourseNames = []string{
	"算法设计与分析", "数据结构", "操作系统", "网络安全", "人工智能", "机器学习", "数据库系统",
}

var additionalCourseNames = []string{
	"软件工程", "Web 开发", "人机交互", "计算机图形学", "量子计算", "密码学", "云计算",
}

// CatalogOptions 控制随机目录的规模
type CatalogOptions struct {
	Professors      int
	Classrooms      int
	Labs            int
	Sections        int
	EmailDomainName string
}

func DefaultCatalogOptions() CatalogOptions {
	return CatalogOptions{
		Professors:      15,
		Classrooms:      10,
		Labs:            5,
		Sections:        6,
		EmailDomainName: "example.edu.cn",
	}
}

// GenerateRandomCatalog 使用给定的随机数生成器生成一份示例目录，相同的种子会得到相同的目录
// 每门理论课都会有一门对应的实验课，实验课的教师从理论课的教师中选出
func GenerateRandomCatalog(rng *rand.Rand, opts CatalogOptions) *domain.Catalog {
	catalog := &domain.Catalog{
		Timeslots: DefaultTimeslots(),
		Days:      append([]domain.Day{}, domain.Weekdays...),
	}

	// 生成教师
	for i := 0; i < opts.Professors; i++ {
		fullName := GenerateRandomChineseName(rng)
		username := GenerateUsernameFromChineseName(rng, fullName)
		catalog.Professors = append(catalog.Professors, domain.Professor{
			ID:         int64(i + 1),
			Username:   username,
			FullName:   fullName,
			Email:      username + "@" + opts.EmailDomainName,
			MaxCourses: int32(rng.Intn(4) + 1),
		})
	}

	// 生成教室与实验室
	for i := 0; i < opts.Classrooms; i++ {
		catalog.Rooms = append(catalog.Rooms, domain.Room{
			ID:       int64(len(catalog.Rooms) + 1),
			Code:     fmt.Sprintf("R%d", i+1),
			Kind:     domain.RoomKindClassroom,
			Capacity: int32(rng.Intn(21) + 20), // 20~40
		})
	}
	for i := 0; i < opts.Labs; i++ {
		catalog.Rooms = append(catalog.Rooms, domain.Room{
			ID:       int64(len(catalog.Rooms) + 1),
			Code:     fmt.Sprintf("L%d", i+1),
			Kind:     domain.RoomKindLab,
			Capacity: int32(rng.Intn(11) + 15), // 15~25
		})
	}

	// 生成班级
	for i := 0; i < opts.Sections; i++ {
		catalog.Sections = append(catalog.Sections, domain.Section{
			ID:       int64(i + 1),
			Name:     fmt.Sprintf("S%d", i+1),
			Strength: int32(rng.Intn(26) + 10), // 10~35
		})
	}

	if len(catalog.Professors) == 0 {
		return catalog
	}

	professorIDs := make([]int64, len(catalog.Professors))
	for i, professor := range catalog.Professors {
		professorIDs[i] = professor.ID
	}

	// 生成理论课及其对应的实验课
	for _, name := range theoryCourseNames {
		theoryProfessors := GenerateRandomSubset(rng, professorIDs, 3)
		catalog.Courses = append(catalog.Courses, domain.Course{
			ID:           int64(len(catalog.Courses) + 1),
			Code:         fmt.Sprintf("C%d", len(catalog.Courses)+1),
			Name:         name,
			Kind:         domain.CourseKindTheory,
			ProfessorIDs: theoryProfessors,
		})
		catalog.Courses = append(catalog.Courses, domain.Course{
			ID:           int64(len(catalog.Courses) + 1),
			Code:         fmt.Sprintf("C%d", len(catalog.Courses)+1),
			Name:         name + "实验",
			Kind:         domain.CourseKindLab,
			ProfessorIDs: GenerateRandomSubset(rng, theoryProfessors, len(theoryProfessors)),
		})
	}

	// 其余只有理论课的课程
	for _, name := range additionalCourseNames {
		catalog.Courses = append(catalog.Courses, domain.Course{
			ID:           int64(len(catalog.Courses) + 1),
			Code:         fmt.Sprintf("C%d", len(catalog.Courses)+1),
			Name:         name,
			Kind:         domain.CourseKindTheory,
			ProfessorIDs: GenerateRandomSubset(rng, professorIDs, 3),
		})
	}

	return catalog
}

// 使用 Fisher-Yates 洗牌算法来生成一个随机子集，子集大小在 [1, maxSize] 之间
func GenerateRandomSubset(rng *rand.Rand, arr []int64, maxSize int) []int64 {
	arrCopy := append([]int64{}, arr...) // 复制数组，避免修改原数组

	for i := 0; i < len(arrCopy)-1; i++ {
		j := rng.Intn(len(arrCopy)-i) + i
		arrCopy[i], arrCopy[j] = arrCopy[j], arrCopy[i]
	}

	limit := min(maxSize, len(arrCopy))
	if limit <= 0 {
		return []int64{}
	}
	l := rng.Intn(limit) + 1
	return arrCopy[:l]
}
