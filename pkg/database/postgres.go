package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"sports-spaces-backend/pkg/models"
	"sports-spaces-backend/pkg/utils"
)

// PostgresDatabase is the direct PostgreSQL backend (lib/pq)
type PostgresDatabase struct {
	db  *sql.DB
	jwt *utils.JWTService
}

// NewPostgresDatabase connects, trying progressively plainer DSN variants.
// Serverless hosts sometimes need the simple protocol or an explicit timeout.
func NewPostgresDatabase(dsn string, jwtService *utils.JWTService, logger *zap.Logger) (*PostgresDatabase, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "connect_timeout=10"),
		dsn,
	}

	var lastErr error
	for i, strategy := range strategies {
		db, err := sql.Open("postgres", strategy)
		if err != nil {
			logger.Warn("postgres open failed", zap.Int("strategy", i+1), zap.Error(err))
			lastErr = err
			continue
		}

		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err != nil {
			logger.Warn("postgres ping failed", zap.Int("strategy", i+1), zap.Error(err))
			db.Close()
			lastErr = err
			continue
		}

		logger.Info("postgres connection established", zap.Int("strategy", i+1))
		return &PostgresDatabase{db: db, jwt: jwtService}, nil
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", lastErr)
}

// NewPostgresDatabaseFromDB wraps an existing handle
func NewPostgresDatabaseFromDB(db *sql.DB, jwtService *utils.JWTService) *PostgresDatabase {
	return &PostgresDatabase{db: db, jwt: jwtService}
}

func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	// key=value DSNs take space separated params
	if !strings.Contains(dsn, "://") {
		return dsn + " " + strings.ReplaceAll(params, "&", " ")
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

// DB exposes the handle for migrations
func (db *PostgresDatabase) DB() *sql.DB {
	return db.db
}

// ================= Sports =================

func (db *PostgresDatabase) ListSports(ctx context.Context) ([]models.Sport, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT id, name FROM sports ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sports: %w", err)
	}
	defer rows.Close()

	sports := []models.Sport{}
	for rows.Next() {
		var s models.Sport
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan sport: %w", err)
		}
		sports = append(sports, s)
	}
	return sports, rows.Err()
}

func (db *PostgresDatabase) CreateSport(ctx context.Context, sport *models.Sport) error {
	err := db.db.QueryRowContext(ctx, `INSERT INTO sports (name) VALUES ($1) RETURNING id`, sport.Name).Scan(&sport.ID)
	if err != nil {
		return fmt.Errorf("failed to create sport: %w", describePQ(err))
	}
	return nil
}

// ================= Spaces =================

const spaceColumns = `id, name, state, COALESCE(location,''), COALESCE(description,''), capacity, COALESCE(image_key,'')`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSpace(row rowScanner) (*models.Space, error) {
	var s models.Space
	var state string
	if err := row.Scan(&s.ID, &s.Name, &state, &s.Location, &s.Description, &s.Capacity, &s.ImageKey); err != nil {
		return nil, err
	}
	s.State = models.SpaceState(state)
	return &s, nil
}

func (db *PostgresDatabase) InsertSpace(ctx context.Context, space *models.Space) error {
	query := `
		INSERT INTO spaces (name, state, location, description, capacity, image_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := db.db.QueryRowContext(ctx, query,
		space.Name, string(space.State), space.Location, space.Description, space.Capacity, nullIfEmpty(space.ImageKey),
	).Scan(&space.ID)
	if err != nil {
		return fmt.Errorf("failed to insert space: %w", describePQ(err))
	}
	return nil
}

func (db *PostgresDatabase) GetSpace(ctx context.Context, id int64) (*models.Space, error) {
	row := db.db.QueryRowContext(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE id = $1`, id)
	space, err := scanSpace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	return space, nil
}

func (db *PostgresDatabase) UpdateSpace(ctx context.Context, id int64, patch models.SpacePatch) (*models.Space, error) {
	cols := patch.Columns()
	if len(cols) == 0 {
		return db.GetSpace(ctx, id)
	}

	setClauses := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	idx := 1
	// fixed column order keeps the statement text stable
	for _, col := range []string{"name", "state", "location", "description", "capacity", "image_key"} {
		v, ok := cols[col]
		if !ok {
			continue
		}
		if col == "image_key" {
			v = nullIfEmpty(v.(string))
		}
		setClauses = append(setClauses, fmt.Sprintf("%s=$%d", col, idx))
		args = append(args, v)
		idx++
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE spaces SET %s WHERE id=$%d RETURNING `+spaceColumns, strings.Join(setClauses, ", "), idx)
	space, err := scanSpace(db.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update space: %w", describePQ(err))
	}
	return space, nil
}

func (db *PostgresDatabase) DeleteSpace(ctx context.Context, id int64) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM spaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", describePQ(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}
	return rowsAffectedOrNotFound(n)
}

func (db *PostgresDatabase) GetSpaceDetail(ctx context.Context, id int64) (*models.SpaceDetail, error) {
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

func (db *PostgresDatabase) ListSpaceDetails(ctx context.Context, filter SpaceFilter) ([]models.SpaceDetail, error) {
	query := `SELECT ` + spaceColumns + ` FROM spaces`
	args := []interface{}{}
	if filter.State != "" {
		query += ` WHERE state = $1`
		args = append(args, string(filter.State))
	}
	query += ` ORDER BY id ASC`

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()

	spaces := []models.Space{}
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	return db.attachRelations(ctx, spaces)
}

// attachRelations loads sports and schedules for all spaces in two queries
func (db *PostgresDatabase) attachRelations(ctx context.Context, spaces []models.Space) ([]models.SpaceDetail, error) {
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

	sportRows, err := db.db.QueryContext(ctx, `
		SELECT ss.space_id, sp.id, sp.name
		FROM space_sports ss JOIN sports sp ON sp.id = ss.sport_id
		WHERE ss.space_id = ANY($1)
		ORDER BY ss.space_id, sp.id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load space sports: %w", err)
	}
	defer sportRows.Close()
	for sportRows.Next() {
		var spaceID int64
		var sport models.Sport
		if err := sportRows.Scan(&spaceID, &sport.ID, &sport.Name); err != nil {
			return nil, fmt.Errorf("failed to scan space sport: %w", err)
		}
		i := index[spaceID]
		details[i].Sports = append(details[i].Sports, sport)
	}
	if err := sportRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load space sports: %w", err)
	}

	schedRows, err := db.db.QueryContext(ctx, `
		SELECT s.id, s.space_id, s.day, s.time_start, s.time_end, s.closed, COALESCE(w.name,'')
		FROM schedules s LEFT JOIN weekdays w ON w.day = s.day
		WHERE s.space_id = ANY($1)
		ORDER BY s.space_id, s.day`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	defer schedRows.Close()
	for schedRows.Next() {
		var e models.ScheduleEntry
		if err := schedRows.Scan(&e.ID, &e.SpaceID, &e.Day, &e.TimeStart, &e.TimeEnd, &e.Closed, &e.DayName); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		i := index[e.SpaceID]
		details[i].Schedule = append(details[i].Schedule, e)
	}
	if err := schedRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	return details, nil
}

// ================= Schedules & associations =================

func (db *PostgresDatabase) InsertSchedules(ctx context.Context, rows []models.ScheduleEntry) error {
	if len(rows) == 0 {
		return nil
	}
	spaceIDs := make([]int64, len(rows))
	days := make([]int64, len(rows))
	starts := make([]string, len(rows))
	ends := make([]string, len(rows))
	closed := make([]bool, len(rows))
	for i, r := range rows {
		spaceIDs[i] = r.SpaceID
		days[i] = int64(r.Day)
		starts[i] = r.TimeStart
		ends[i] = r.TimeEnd
		closed[i] = r.Closed
	}

	// single statement, so a failure leaves no partial week behind
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO schedules (space_id, day, time_start, time_end, closed)
		SELECT * FROM unnest($1::bigint[], $2::int[], $3::text[], $4::text[], $5::bool[])`,
		pq.Array(spaceIDs), pq.Array(days), pq.Array(starts), pq.Array(ends), pq.Array(closed))
	if err != nil {
		return fmt.Errorf("failed to insert schedules: %w", describePQ(err))
	}
	return nil
}

func (db *PostgresDatabase) DeleteSchedules(ctx context.Context, spaceID int64) error {
	if _, err := db.db.ExecContext(ctx, `DELETE FROM schedules WHERE space_id = $1`, spaceID); err != nil {
		return fmt.Errorf("failed to delete schedules: %w", describePQ(err))
	}
	return nil
}

func (db *PostgresDatabase) InsertSpaceSports(ctx context.Context, rows []models.SpaceSport) error {
	if len(rows) == 0 {
		return nil
	}
	spaceIDs := make([]int64, len(rows))
	sportIDs := make([]int64, len(rows))
	for i, r := range rows {
		spaceIDs[i] = r.SpaceID
		sportIDs[i] = r.SportID
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO space_sports (space_id, sport_id)
		SELECT * FROM unnest($1::bigint[], $2::bigint[])`,
		pq.Array(spaceIDs), pq.Array(sportIDs))
	if err != nil {
		return fmt.Errorf("failed to insert space sports: %w", describePQ(err))
	}
	return nil
}

func (db *PostgresDatabase) DeleteSpaceSports(ctx context.Context, spaceID int64) error {
	if _, err := db.db.ExecContext(ctx, `DELETE FROM space_sports WHERE space_id = $1`, spaceID); err != nil {
		return fmt.Errorf("failed to delete space sports: %w", describePQ(err))
	}
	return nil
}

func (db *PostgresDatabase) ListSpaceSportIDs(ctx context.Context, spaceID int64) ([]int64, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT sport_id FROM space_sports WHERE space_id = $1 ORDER BY sport_id`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list space sports: %w", err)
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan space sport: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetUserByToken verifies the Supabase JWT locally
func (db *PostgresDatabase) GetUserByToken(_ context.Context, token string) (*models.AuthUser, error) {
	return db.jwt.ParseSupabaseToken(token)
}

func (db *PostgresDatabase) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.db.PingContext(ctx)
}

func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}

// describePQ adds the constraint name to pq errors so callers see which rule failed
func describePQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Constraint != "" {
		return fmt.Errorf("%w (constraint %s, code %s)", err, pqErr.Constraint, pqErr.Code)
	}
	return err
}
