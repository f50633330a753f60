package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/route-registry/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Options struct {
	Driver string
	// DSN is used verbatim when set. Otherwise postgres uses the POSTGRES_* settings and
	// sqlite uses SQLitePath.
	DSN        string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SQLitePath string
	// Silent disables GORM's own statement logging.
	Silent bool
}

func (o Options) dsn() string {
	if strings.TrimSpace(o.DSN) != "" {
		return o.DSN
	}
	if o.driver() == DriverSQLite {
		if o.SQLitePath == "" {
			return "file:routes.db?_foreign_keys=off"
		}
		return o.SQLitePath
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		o.User,
		o.Password,
		o.Host,
		o.Port,
		o.Name,
	)
}

func (o Options) driver() string {
	d := strings.ToLower(strings.TrimSpace(o.Driver))
	if d == "" {
		return DriverPostgres
	}
	return d
}

// Open connects to the configured database. Constraint errors are translated so unique
// violations surface as gorm.ErrDuplicatedKey on every driver.
func Open(opts Options, logg *logger.Logger) (*gorm.DB, error) {
	serviceLog := logg.With("service", "Database", "driver", opts.driver())

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	if opts.Silent {
		gormLog = gormLogger.Default.LogMode(gormLogger.Silent)
	}
	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLog,
	}

	var dialector gorm.Dialector
	switch opts.driver() {
	case DriverPostgres:
		dialector = postgres.Open(opts.dsn())
	case DriverSQLite:
		dialector = sqlite.Open(opts.dsn())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.driver(), err)
	}
	if opts.driver() == DriverSQLite {
		// One writer keeps in-memory databases and transactions on a single connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	serviceLog.Info("database connected", "dsn", opts.dsn())
	return db, nil
}
