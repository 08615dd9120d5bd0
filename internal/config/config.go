package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/scheduler"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
		Professors int `env:"PROFESSORS" envDefault:"15"`
		Classrooms int `env:"CLASSROOMS" envDefault:"10"`
		Labs       int `env:"LABS" envDefault:"5"`
		Sections   int `env:"SECTIONS" envDefault:"6"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	Scheduler struct {
		PopulationSize       int32   `env:"POPULATION_SIZE" envDefault:"50"`
		MaxGenerations       int32   `env:"MAX_GENERATIONS" envDefault:"100"`
		TournamentSize       int32   `env:"TOURNAMENT_SIZE" envDefault:"3"`
		CrossoverRate        float64 `env:"CROSSOVER_RATE" envDefault:"0.8"`
		MutationRate         float64 `env:"MUTATION_RATE" envDefault:"0.02"`
		EliteCount           int32   `env:"ELITE_COUNT" envDefault:"1"`
		HardConflictWeight   int32   `env:"HARD_CONFLICT_WEIGHT" envDefault:"10"`
		SoftConflictWeight   int32   `env:"SOFT_CONFLICT_WEIGHT" envDefault:"1"`
		MaxPlacementAttempts int32   `env:"MAX_PLACEMENT_ATTEMPTS" envDefault:"50"`
		MaxCoursesPerDay     int32   `env:"MAX_COURSES_PER_DAY" envDefault:"3"`
		DefaultProfessorLoad int32   `env:"DEFAULT_PROFESSOR_LOAD" envDefault:"3"`
		MaxSectionsPerCourse int32   `env:"MAX_SECTIONS_PER_COURSE" envDefault:"1"`
		SoftSlotThreshold    int32   `env:"SOFT_SLOT_THRESHOLD" envDefault:"4"`
		LabStartPositions    []int32 `env:"LAB_START_POSITIONS" envSeparator:","`
		Strategy             string  `env:"STRATEGY" envDefault:"sequence"`
		UseGenomeCodec       bool    `env:"USE_GENOME_CODEC" envDefault:"false"`
		Workers              int32   `env:"WORKERS" envDefault:"4"`
		MaxDuration          int     `env:"MAX_DURATION" envDefault:"300"` // 5 分钟
	} `envPrefix:"SCHEDULER_"`
	Job struct {
		Expiration int `env:"EXPIRATION" envDefault:"86400"` // 1 天
		MaxRetries int `env:"MAX_RETRIES" envDefault:"3"`    // 外部依赖不可用时的最大重试次数
	} `envPrefix:"JOB_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

// SchedulerParameters 使用配置中的默认值构造排课参数
// 种子为 0，每次运行都会得到不同的结果
func (cfg *Config) SchedulerParameters() *scheduler.Parameters {
	s := cfg.Scheduler
	return &scheduler.Parameters{
		PopulationSize:       s.PopulationSize,
		MaxGenerations:       s.MaxGenerations,
		TournamentSize:       s.TournamentSize,
		CrossoverRate:        s.CrossoverRate,
		MutationRate:         s.MutationRate,
		EliteCount:           s.EliteCount,
		HardConflictWeight:   s.HardConflictWeight,
		SoftConflictWeight:   s.SoftConflictWeight,
		MaxPlacementAttempts: s.MaxPlacementAttempts,
		MaxCoursesPerDay:     s.MaxCoursesPerDay,
		DefaultProfessorLoad: s.DefaultProfessorLoad,
		MaxSectionsPerCourse: s.MaxSectionsPerCourse,
		SoftSlotThreshold:    s.SoftSlotThreshold,
		LabStartPositions:    append([]int32{}, s.LabStartPositions...),
		Strategy:             scheduler.Strategy(s.Strategy),
		UseGenomeCodec:       s.UseGenomeCodec,
		Workers:              s.Workers,
	}
}

// SchedulerParametersFor 在默认参数的基础上应用一次排课任务中填写的参数
func (cfg *Config) SchedulerParametersFor(gp domain.GenerationParameters) *scheduler.Parameters {
	p := cfg.SchedulerParameters()

	if gp.PopulationSize > 0 {
		p.PopulationSize = gp.PopulationSize
	}
	if gp.MaxGenerations > 0 {
		p.MaxGenerations = gp.MaxGenerations
	}
	if gp.TournamentSize > 0 {
		p.TournamentSize = gp.TournamentSize
	}
	if gp.CrossoverRate != nil {
		p.CrossoverRate = *gp.CrossoverRate
	}
	if gp.MutationRate != nil {
		p.MutationRate = *gp.MutationRate
	}
	if gp.EliteCount > 0 {
		p.EliteCount = gp.EliteCount
	}
	if gp.Strategy != "" {
		p.Strategy = scheduler.Strategy(gp.Strategy)
	}
	p.UseGenomeCodec = p.UseGenomeCodec || gp.UseGenomeCodec
	p.Seed = gp.Seed
	p.StopOnPerfect = gp.StopOnPerfect

	return p
}
