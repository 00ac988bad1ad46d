package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/limaJavier/schooltimetable/pkg/sat"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TIMETABLE_SOLVER_TIMELIMIT=90s
const EnvPrefix = "TIMETABLE"

type Config struct {
	Database  Database          `mapstructure:"database"`
	Solver    Solver            `mapstructure:"solver"`
	Calendar  model.Calendar    `mapstructure:"calendar"`
	Penalties map[string]uint64 `mapstructure:"penalties" validate:"required,dive,keys,penalty,endkeys,min=1"`
	Rooms     Rooms             `mapstructure:"rooms"`
	Redis     Redis             `mapstructure:"redis"`
	Server    Server            `mapstructure:"server"`
}

type Database struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

type Solver struct {
	Name      string        `mapstructure:"name" validate:"satsolver"`
	TimeLimit time.Duration `mapstructure:"timeLimit" validate:"gt=0"`
	Workers   int           `mapstructure:"workers" validate:"min=1"`
	// Binary of every external solver by name, e.g. {"kissat": "/opt/kissat/bin/kissat"}
	Paths map[string]string `mapstructure:"paths"`
}

type Rooms struct {
	Policy model.RoomPolicy `mapstructure:"policy" validate:"roompolicy"`
}

// Redis is only used for the run lock. An empty address keeps the lock in-process. With an address, the
// lock TTL must outlast the solver time limit or the lock could expire in the middle of a run.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	LockKey  string        `mapstructure:"lockKey" validate:"required_with=Addr"`
	LockTTL  time.Duration `mapstructure:"lockTTL" validate:"gt=0"`
}

type Server struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

func setDefaults(conf *viper.Viper) {
	conf.SetDefault("database.driver", "sqlite")
	conf.SetDefault("database.dsn", "timetable.db")
	conf.SetDefault("solver.name", sat.Gini)
	conf.SetDefault("solver.timeLimit", 60*time.Second)
	conf.SetDefault("solver.workers", 8)
	conf.SetDefault("solver.paths", map[string]string{})
	conf.SetDefault("penalties", map[string]uint64{model.BalancePenalty: 1})
	conf.SetDefault("rooms.policy", string(model.RoomsMatching))
	conf.SetDefault("redis.addr", "")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)
	conf.SetDefault("redis.lockKey", "timetable:generate")
	conf.SetDefault("redis.lockTTL", 10*time.Minute)
	conf.SetDefault("server.addr", ":8080")
}

// Load reads the configuration from defaults, an optional .env file in the working directory, the
// optional configuration file and TIMETABLE_ environment variables, in increasing precedence. An empty
// file looks for config.json or config.yaml next to the working directory and the executable.
func Load(file string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	conf := viper.New()
	setDefaults(conf)
	conf.SetEnvPrefix(EnvPrefix)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	if file != "" {
		conf.SetConfigFile(file)
	} else {
		conf.SetConfigName("config")
		conf.AddConfigPath(".")
		if executable, err := os.Executable(); err == nil {
			conf.AddConfigPath(filepath.Dir(executable))
		}
	}
	if err := conf.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "cannot read config file")
		}
	}

	var config Config
	if err := conf.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "cannot decode config")
	}
	config.Calendar = normalizeCalendar(config.Calendar)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (config *Config) Validate() error {
	if err := newValidator().Struct(config); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if err := config.Calendar.Validate(); err != nil {
		return errors.Wrap(err, "invalid calendar")
	}
	return nil
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	lo.Must0(validate.RegisterValidation("satsolver", func(field validator.FieldLevel) bool {
		return slices.Contains(sat.Solvers(), field.Field().String())
	}))
	lo.Must0(validate.RegisterValidation("penalty", func(field validator.FieldLevel) bool {
		return slices.Contains(model.Penalties(), field.Field().String())
	}))
	lo.Must0(validate.RegisterValidation("roompolicy", func(field validator.FieldLevel) bool {
		return slices.Contains(model.RoomPolicies, model.RoomPolicy(field.Field().String()))
	}))
	validate.RegisterStructValidation(func(level validator.StructLevel) {
		config, ok := level.Current().Interface().(Config)
		if ok && config.Redis.Addr != "" && config.Redis.LockTTL <= config.Solver.TimeLimit {
			level.ReportError(config.Redis.LockTTL, "LockTTL", "LockTTL", "gtsolvertimelimit", config.Solver.TimeLimit.String())
		}
	}, Config{})
	return validate
}

// normalizeCalendar falls back to the default calendar and restores the shift names viper lower-cases
func normalizeCalendar(calendar model.Calendar) model.Calendar {
	if len(calendar.Weekdays) == 0 && len(calendar.Shifts) == 0 {
		capacity := calendar.DefaultTeacherCapacity
		calendar = model.DefaultCalendar()
		if capacity > 0 {
			calendar.DefaultTeacherCapacity = capacity
		}
		return calendar
	}
	calendar.Shifts = lo.MapKeys(calendar.Shifts, func(_ []uint64, shift model.Shift) model.Shift {
		return model.Shift(strings.ToUpper(string(shift)))
	})
	return calendar
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "cannot load %v", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "cannot stat %v", path)
	}
	return nil
}
