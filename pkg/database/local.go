package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"sports-spaces-backend/pkg/models"
	"sports-spaces-backend/pkg/utils"
)

// MemoryDSN opens a throwaway in-memory local store
const MemoryDSN = ":memory:"

// LocalDatabase is the development backend: gorm over a SQLite file
type LocalDatabase struct {
	db  *gorm.DB
	jwt *utils.JWTService
}

// NewLocalDatabase opens (and migrates) the SQLite store at path
func NewLocalDatabase(path string, jwtService *utils.JWTService, debug bool) (*LocalDatabase, error) {
	if path == "" {
		path = "./data/spaces.db"
	}
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			// read-only filesystems: fall back to tmp
			path = filepath.Join(os.TempDir(), "spaces-data", filepath.Base(path))
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	logLevel := gormlogger.Silent
	if debug {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get local database handle: %w", err)
	}
	// one connection: an in-memory database exists per connection
	sqlDB.SetMaxOpenConns(1)

	local := &LocalDatabase{db: db, jwt: jwtService}
	if err := local.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return local, nil
}

// Migrate creates the tables and seeds the weekday lookup
func (db *LocalDatabase) Migrate(ctx context.Context) error {
	if err := db.db.WithContext(ctx).AutoMigrate(
		&models.Sport{},
		&models.Space{},
		&models.SpaceSport{},
		&models.ScheduleEntry{},
		&models.Weekday{},
	); err != nil {
		return fmt.Errorf("failed to migrate local database: %w", err)
	}
	err := db.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.DefaultWeekdays).Error
	if err != nil {
		return fmt.Errorf("failed to seed weekdays: %w", err)
	}
	return nil
}

// ================= Sports =================

func (db *LocalDatabase) ListSports(ctx context.Context) ([]models.Sport, error) {
	sports := []models.Sport{}
	if err := db.db.WithContext(ctx).Order("name ASC").Find(&sports).Error; err != nil {
		return nil, fmt.Errorf("failed to list sports: %w", err)
	}
	return sports, nil
}

func (db *LocalDatabase) CreateSport(ctx context.Context, sport *models.Sport) error {
	if err := db.db.WithContext(ctx).Create(sport).Error; err != nil {
		return fmt.Errorf("failed to create sport: %w", err)
	}
	return nil
}

// ================= Spaces =================

func (db *LocalDatabase) InsertSpace(ctx context.Context, space *models.Space) error {
	if err := db.db.WithContext(ctx).Create(space).Error; err != nil {
		return fmt.Errorf("failed to insert space: %w", err)
	}
	return nil
}

func (db *LocalDatabase) GetSpace(ctx context.Context, id int64) (*models.Space, error) {
	var space models.Space
	err := db.db.WithContext(ctx).Where("id = ?", id).First(&space).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	return &space, nil
}

func (db *LocalDatabase) UpdateSpace(ctx context.Context, id int64, patch models.SpacePatch) (*models.Space, error) {
	cols := patch.Columns()
	if len(cols) == 0 {
		return db.GetSpace(ctx, id)
	}
	res := db.db.WithContext(ctx).Model(&models.Space{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update space: %w", res.Error)
	}
	if err := rowsAffectedOrNotFound(res.RowsAffected); err != nil {
		return nil, err
	}
	return db.GetSpace(ctx, id)
}

func (db *LocalDatabase) DeleteSpace(ctx context.Context, id int64) error {
	res := db.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Space{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete space: %w", res.Error)
	}
	return rowsAffectedOrNotFound(res.RowsAffected)
}

func (db *LocalDatabase) GetSpaceDetail(ctx context.Context, id int64) (*models.SpaceDetail, error) {
	space, err := db.GetSpace(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := db.attachRelations(ctx, []models.Space{*space})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (db *LocalDatabase) ListSpaceDetails(ctx context.Context, filter SpaceFilter) ([]models.SpaceDetail, error) {
	spaces := []models.Space{}
	q := db.db.WithContext(ctx).Order("id ASC")
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if err := q.Find(&spaces).Error; err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	return db.attachRelations(ctx, spaces)
}

type localSportLink struct {
	SpaceID int64
	ID      int64
	Name    string
}

type localScheduleRow struct {
	ID        int64
	SpaceID   int64
	Day       int
	TimeStart string
	TimeEnd   string
	Closed    bool
	DayName   string
}

func (db *LocalDatabase) attachRelations(ctx context.Context, spaces []models.Space) ([]models.SpaceDetail, error) {
	details := make([]models.SpaceDetail, len(spaces))
	if len(spaces) == 0 {
		return details, nil
	}
	ids := make([]int64, len(spaces))
	index := make(map[int64]int, len(spaces))
	for i, s := range spaces {
		ids[i] = s.ID
		index[s.ID] = i
		details[i] = models.SpaceDetail{Space: s, Sports: []models.Sport{}, Schedule: []models.ScheduleEntry{}}
	}

	var links []localSportLink
	err := db.db.WithContext(ctx).
		Table("space_sports").
		Select("space_sports.space_id, sports.id, sports.name").
		Joins("JOIN sports ON sports.id = space_sports.sport_id").
		Where("space_sports.space_id IN ?", ids).
		Order("space_sports.space_id, sports.id").
		Scan(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load space sports: %w", err)
	}
	for _, l := range links {
		i := index[l.SpaceID]
		details[i].Sports = append(details[i].Sports, models.Sport{ID: l.ID, Name: l.Name})
	}

	var rows []localScheduleRow
	err = db.db.WithContext(ctx).
		Table("schedules").
		Select("schedules.id, schedules.space_id, schedules.day, schedules.time_start, schedules.time_end, schedules.closed, COALESCE(weekdays.name, '') AS day_name").
		Joins("LEFT JOIN weekdays ON weekdays.day = schedules.day").
		Where("schedules.space_id IN ?", ids).
		Order("schedules.space_id, schedules.day").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	for _, r := range rows {
		i := index[r.SpaceID]
		details[i].Schedule = append(details[i].Schedule, models.ScheduleEntry{
			ID:        r.ID,
			SpaceID:   r.SpaceID,
			Day:       r.Day,
			TimeStart: r.TimeStart,
			TimeEnd:   r.TimeEnd,
			Closed:    r.Closed,
			DayName:   r.DayName,
		})
	}

	return details, nil
}

// ================= Schedules & associations =================

func (db *LocalDatabase) InsertSchedules(ctx context.Context, rows []models.ScheduleEntry) error {
	if len(rows) == 0 {
		return nil
	}
	if err := db.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert schedules: %w", err)
	}
	return nil
}

func (db *LocalDatabase) DeleteSchedules(ctx context.Context, spaceID int64) error {
	if err := db.db.WithContext(ctx).Where("space_id = ?", spaceID).Delete(&models.ScheduleEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete schedules: %w", err)
	}
	return nil
}

// InsertSpaceSports checks the sport ids first; SQLite does not enforce the reference here
func (db *LocalDatabase) InsertSpaceSports(ctx context.Context, rows []models.SpaceSport) error {
	if len(rows) == 0 {
		return nil
	}
	wanted := map[int64]struct{}{}
	for _, r := range rows {
		wanted[r.SportID] = struct{}{}
	}
	ids := make([]int64, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	var found int64
	if err := db.db.WithContext(ctx).Model(&models.Sport{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
		return fmt.Errorf("failed to check sports: %w", err)
	}
	if found != int64(len(ids)) {
		return fmt.Errorf("failed to insert space sports: %d of %d sport ids do not exist", int64(len(ids))-found, len(ids))
	}

	if err := db.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert space sports: %w", err)
	}
	return nil
}

func (db *LocalDatabase) DeleteSpaceSports(ctx context.Context, spaceID int64) error {
	if err := db.db.WithContext(ctx).Where("space_id = ?", spaceID).Delete(&models.SpaceSport{}).Error; err != nil {
		return fmt.Errorf("failed to delete space sports: %w", err)
	}
	return nil
}

func (db *LocalDatabase) ListSpaceSportIDs(ctx context.Context, spaceID int64) ([]int64, error) {
	ids := []int64{}
	err := db.db.WithContext(ctx).Model(&models.SpaceSport{}).
		Where("space_id = ?", spaceID).
		Order("sport_id").
		Pluck("sport_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list space sports: %w", err)
	}
	return ids, nil
}

func (db *LocalDatabase) GetUserByToken(_ context.Context, token string) (*models.AuthUser, error) {
	return db.jwt.ParseSupabaseToken(token)
}

func (db *LocalDatabase) HealthCheck() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (db *LocalDatabase) Close() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
