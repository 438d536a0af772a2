// Package postgres implements the authoritative database tier
// (schema.DatabaseDriver) on top of PostgreSQL via gorm, grounded on the
// teacher's database/postgres package: same gorm.Open/connection-pool
// shape, generalized from one process-wide *gorm.DB to one Driver per
// registered entity type so the schema registry's generic Register[M]
// call has something concrete to hand the coordinator.
package postgres

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tierforge/tierserve/config"
	"github.com/tierforge/tierserve/logger"
	zaplog "github.com/tierforge/tierserve/logger/zap"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/tier"
	"github.com/tierforge/tierserve/util"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// uniqueViolation is PostgreSQL's SQLSTATE for a unique constraint
// violation; Create maps it to tier.Conflict so the coordinator's
// isAlreadyExists check fires without inspecting the driver error shape.
const uniqueViolation = "23505"

// Driver implements schema.DatabaseDriver[M] against one PostgreSQL
// database shared by every schema wired to it; RegisterModel carves out
// that schema's own table by Dref so entity types never collide.
type Driver[M schema.Entity] struct {
	cfg   config.Postgres
	dbCfg config.Database

	mu sync.RWMutex
	db *gorm.DB

	reconnecting int32
}

// New builds a Driver against cfg; Connect must be called before use.
func New[M schema.Entity](cfg config.Postgres, dbCfg config.Database) *Driver[M] {
	return &Driver[M]{cfg: cfg, dbCfg: dbCfg}
}

func buildDSN(cfg config.Postgres) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s connect_timeout=5",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port, cfg.SSLMode)
}

func (d *Driver[M]) Connect(ctx context.Context) error {
	gdb, err := gorm.Open(gormpg.Open(buildDSN(d.cfg)), &gorm.Config{Logger: zaplog.NewGorm("database.log")})
	if err != nil {
		return errors.Wrap(err, "postgres: open connection")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return errors.Wrap(err, "postgres: acquire *sql.DB")
	}
	sqlDB.SetMaxOpenConns(d.dbCfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(d.dbCfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(d.dbCfg.ConnMaxLifetime)
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, "postgres: ping")
	}

	d.mu.Lock()
	d.db = gdb
	d.mu.Unlock()
	logger.Database.Infow("connected to postgres", "host", d.cfg.Host, "port", d.cfg.Port, "database", d.cfg.Database)
	return nil
}

func (d *Driver[M]) Disconnect(context.Context) error {
	gdb := d.handle()
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return errors.Wrap(err, "postgres: acquire *sql.DB")
	}
	return sqlDB.Close()
}

// Reconnect schedules a single-flight background reconnect; a caller that
// observes the connection down keeps seeing that error until this
// completes, per schema.DatabaseDriver's contract.
func (d *Driver[M]) Reconnect(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&d.reconnecting, 0, 1) {
		return
	}
	go func() {
		defer atomic.StoreInt32(&d.reconnecting, 0)
		if err := d.Connect(ctx); err != nil {
			logger.Database.Errorw("postgres reconnect failed", "error", err)
			return
		}
		logger.Database.Infow("postgres reconnect succeeded")
	}()
}

func (d *Driver[M]) Health() error {
	gdb := d.handle()
	if gdb == nil {
		return errors.New("postgres: not connected")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Driver[M]) handle() *gorm.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// RegisterModel migrates info.Dref's table from M's field shape. M is
// always a pointer type (Entity's methods have pointer receivers on
// BaseSchema), so newInstance allocates a fresh zero value to hand gorm.
func (d *Driver[M]) RegisterModel(info *schema.Info, _ []schema.Field) error {
	gdb := d.handle()
	if gdb == nil {
		return errors.New("postgres: not connected")
	}
	if err := gdb.Table(info.Dref).AutoMigrate(newInstance[M]()); err != nil {
		return errors.Wrapf(err, "postgres: migrate table %s", info.Dref)
	}
	return nil
}

func newInstance[M schema.Entity]() M {
	var zero M
	return reflect.New(reflect.TypeOf(zero).Elem()).Interface().(M)
}

// Get returns the row by id. A missing row is reported as a LookupError,
// not a bare not-found: the coordinator's Read only treats a LookupError
// as a soft probe miss (falls through to the next tier) — any other
// error is routed straight to ServiceUnavailable.
func (d *Driver[M]) Get(ctx context.Context, info *schema.Info, id string) (M, error) {
	var zero M
	gdb := d.handle()
	if gdb == nil {
		return zero, errors.New("postgres: not connected")
	}
	obj := newInstance[M]()
	err := gdb.WithContext(ctx).Table(info.Dref).Where("id = ?", id).First(obj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, tier.NewLookupError(err)
		}
		return zero, err
	}
	return obj, nil
}

// Search applies q.Filter via the schema's SQL translator, plus
// projection, ordering and paging. A malformed filter is a LookupError,
// which the coordinator maps directly to BadRequest without a fallback
// attempt.
func (d *Driver[M]) Search(ctx context.Context, info *schema.Info, q schema.Query) ([]M, error) {
	gdb := d.handle()
	if gdb == nil {
		return nil, errors.New("postgres: not connected")
	}
	tx := gdb.WithContext(ctx).Table(info.Dref)

	if q.Filter != nil {
		where, args, err := info.Translator.ToSQLWhere(q.Filter)
		if err != nil {
			return nil, tier.NewLookupError(err)
		}
		tx = tx.Where(where, args...)
	}
	if q.Projected() {
		tx = tx.Select(projectColumns(q.Fields))
	}
	if len(q.OrderBy) > 0 {
		col := util.SnakeCase(q.OrderBy)
		if strings.EqualFold(q.Order, "desc") {
			col += " DESC"
		} else {
			col += " ASC"
		}
		tx = tx.Order(col)
	}
	if q.Size > 0 {
		tx = tx.Limit(q.Size)
	}
	if q.Skip > 0 {
		tx = tx.Offset(q.Skip)
	}

	var objs []M
	if err := tx.Find(&objs).Error; err != nil {
		return nil, err
	}
	return objs, nil
}

func projectColumns(fields []string) []string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = util.SnakeCase(f)
	}
	return cols
}

// Count mirrors Search's filter handling without paging or projection.
func (d *Driver[M]) Count(ctx context.Context, info *schema.Info, q schema.Query) (int64, error) {
	gdb := d.handle()
	if gdb == nil {
		return 0, errors.New("postgres: not connected")
	}
	tx := gdb.WithContext(ctx).Table(info.Dref)
	if q.Filter != nil {
		where, args, err := info.Translator.ToSQLWhere(q.Filter)
		if err != nil {
			return 0, tier.NewLookupError(err)
		}
		tx = tx.Where(where, args...)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Create inserts obj. A unique constraint violation (the primary tier's
// own idempotency guard) surfaces as tier.Conflict so the coordinator's
// isAlreadyExists check fires without inspecting driver internals.
func (d *Driver[M]) Create(ctx context.Context, info *schema.Info, obj M) error {
	gdb := d.handle()
	if gdb == nil {
		return errors.New("postgres: not connected")
	}
	if err := gdb.WithContext(ctx).Table(info.Dref).Create(obj).Error; err != nil {
		if isUniqueViolation(err) {
			return tier.New(tier.Conflict, "entity already exists: "+obj.GetID())
		}
		return err
	}
	return nil
}

// Update writes obj's full row by id, including any field obj carries at
// its zero value — controller.Update pre-reads the existing row and merges
// the request body into it at the Go level, so a client PUT that explicitly
// clears a field to its zero value must still reach the row. Save writes
// every column; Updates would silently skip the zeroed ones via reflection
// and leave the stale value in place. The explicit Select("*") keeps Save
// from falling back to an insert when no row matches. Zero rows affected
// means the target was absent or already soft-deleted; the coordinator's
// isNotFoundOrDeleted check keys off this exact Kind.
func (d *Driver[M]) Update(ctx context.Context, info *schema.Info, obj M) error {
	gdb := d.handle()
	if gdb == nil {
		return errors.New("postgres: not connected")
	}
	res := gdb.WithContext(ctx).Table(info.Dref).Where("id = ? AND deleted = ?", obj.GetID(), false).Select("*").Save(obj)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tier.New(tier.NotFound, "update target not found: "+obj.GetID())
	}
	return nil
}

// Delete removes or soft-deletes the row by id. force=true deletes the
// row outright; force=false flips the deleted column. Zero rows affected
// is reported as tier.NotFound, which the coordinator's isNotFound check
// keys off directly.
func (d *Driver[M]) Delete(ctx context.Context, info *schema.Info, id string, force bool) error {
	gdb := d.handle()
	if gdb == nil {
		return errors.New("postgres: not connected")
	}
	tx := gdb.WithContext(ctx).Table(info.Dref).Where("id = ?", id)

	var res *gorm.DB
	if force {
		res = tx.Delete(newInstance[M]())
	} else {
		res = tx.Update("deleted", true)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tier.New(tier.NotFound, "delete target not found: "+id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
