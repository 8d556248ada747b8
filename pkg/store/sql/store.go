package sql

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"

	"github.com/modelplane/modelplane/pkg/store"
	"github.com/modelplane/modelplane/pkg/store/sql/model"
)

// Store is the gorm-backed implementation of store.Store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func dialectorFor(storeURL string) (gorm.Dialector, error) {
	scheme, rest, found := strings.Cut(storeURL, "://")
	if !found {
		// sqlite DSNs are commonly written as sqlite:path or a bare path.
		if path, ok := strings.CutPrefix(storeURL, "sqlite:"); ok {
			return gormlite.Open(path), nil
		}
		return gormlite.Open(storeURL), nil
	}

	switch scheme {
	case "postgres", "postgresql":
		return postgres.Open(storeURL), nil
	case "mysql":
		return mysql.Open(rest), nil
	case "sqlite", "file":
		return gormlite.Open(storeURL), nil
	default:
		return nil, fmt.Errorf("unsupported store URL scheme %q", scheme)
	}
}

func NewSQLStore(logger *logrus.Logger, storeURL string) (*Store, error) {
	dialector, err := dialectorFor(storeURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewLoggerAdaptor(logger, LoggerAdaptorConfig{
			SlowThreshold:             500 * time.Millisecond,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %q: %w", storeURL, err)
	}

	if err := db.AutoMigrate(
		&model.ModelVersion{},
		&model.Prediction{},
		&model.DriftReport{},
		&model.RetrainingDecision{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}
