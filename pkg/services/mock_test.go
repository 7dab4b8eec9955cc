package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"sports-spaces-backend/pkg/database"
	"sports-spaces-backend/pkg/models"
)

var errInjected = errors.New("injected failure")

// ── Mock DatabaseInterface ──

type mockDB struct {
	mu sync.Mutex

	sports    map[int64]models.Sport
	spaces    map[int64]models.Space
	schedules map[int64][]models.ScheduleEntry
	links     map[int64][]int64
	users     map[string]*models.AuthUser
	nextID    int64

	// fail names the method that returns errInjected
	fail map[string]error
	// calls counts writes by method name
	calls map[string]int
}

func newMockDB() *mockDB {
	return &mockDB{
		sports:    map[int64]models.Sport{},
		spaces:    map[int64]models.Space{},
		schedules: map[int64][]models.ScheduleEntry{},
		links:     map[int64][]int64{},
		users:     map[string]*models.AuthUser{},
		fail:      map[string]error{},
		calls:     map[string]int{},
	}
}

func (m *mockDB) seedSports(names ...string) []int64 {
	ids := make([]int64, 0, len(names))
	for _, n := range names {
		s := models.Sport{Name: n}
		_ = m.CreateSport(context.Background(), &s)
		ids = append(ids, s.ID)
	}
	m.calls = map[string]int{}
	return ids
}

func (m *mockDB) hit(method string) error {
	m.calls[method]++
	return m.fail[method]
}

func (m *mockDB) ListSports(_ context.Context) ([]models.Sport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListSports"); err != nil {
		return nil, err
	}
	out := make([]models.Sport, 0, len(m.sports))
	for _, s := range m.sports {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockDB) CreateSport(_ context.Context, sport *models.Sport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("CreateSport"); err != nil {
		return err
	}
	m.nextID++
	sport.ID = m.nextID
	m.sports[sport.ID] = *sport
	return nil
}

func (m *mockDB) InsertSpace(_ context.Context, space *models.Space) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertSpace"); err != nil {
		return err
	}
	m.nextID++
	space.ID = m.nextID
	m.spaces[space.ID] = *space
	return nil
}

func (m *mockDB) GetSpace(_ context.Context, id int64) (*models.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetSpace"]; err != nil {
		return nil, err
	}
	s, ok := m.spaces[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &s, nil
}

func (m *mockDB) UpdateSpace(_ context.Context, id int64, patch models.SpacePatch) (*models.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["UpdateSpace"]++
	// the first update may fail while the revert still goes through
	if err := m.fail["UpdateSpace"]; err != nil && m.calls["UpdateSpace"] == 1 {
		return nil, err
	}
	s, ok := m.spaces[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if patch.Name != nil {
		s.Name = *patch.Name
	}
	if patch.State != nil {
		s.State = *patch.State
	}
	if patch.Location != nil {
		s.Location = *patch.Location
	}
	if patch.Description != nil {
		s.Description = *patch.Description
	}
	if patch.Capacity != nil {
		s.Capacity = *patch.Capacity
	}
	if patch.ImageKey != nil {
		s.ImageKey = *patch.ImageKey
	}
	m.spaces[id] = s
	return &s, nil
}

func (m *mockDB) DeleteSpace(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("DeleteSpace"); err != nil {
		return err
	}
	if _, ok := m.spaces[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.spaces, id)
	return nil
}

func (m *mockDB) detail(s models.Space) models.SpaceDetail {
	d := models.SpaceDetail{Space: s, Sports: []models.Sport{}}
	for _, id := range m.links[s.ID] {
		d.Sports = append(d.Sports, m.sports[id])
	}
	// stored out of order so callers must sort
	rows := m.schedules[s.ID]
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		row.DayName = models.DefaultWeekdays[row.Day].Name
		d.Schedule = append(d.Schedule, row)
	}
	return d
}

func (m *mockDB) GetSpaceDetail(_ context.Context, id int64) (*models.SpaceDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetSpaceDetail"]; err != nil {
		return nil, err
	}
	s, ok := m.spaces[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	d := m.detail(s)
	return &d, nil
}

func (m *mockDB) ListSpaceDetails(_ context.Context, filter database.SpaceFilter) ([]models.SpaceDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListSpaceDetails"); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(m.spaces))
	for id := range m.spaces {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []models.SpaceDetail{}
	for _, id := range ids {
		s := m.spaces[id]
		if filter.State != "" && s.State != filter.State {
			continue
		}
		out = append(out, m.detail(s))
	}
	return out, nil
}

func (m *mockDB) InsertSchedules(_ context.Context, rows []models.ScheduleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertSchedules"); err != nil {
		return err
	}
	for _, r := range rows {
		m.nextID++
		r.ID = m.nextID
		m.schedules[r.SpaceID] = append(m.schedules[r.SpaceID], r)
	}
	return nil
}

func (m *mockDB) DeleteSchedules(_ context.Context, spaceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("DeleteSchedules"); err != nil {
		return err
	}
	delete(m.schedules, spaceID)
	return nil
}

func (m *mockDB) InsertSpaceSports(_ context.Context, rows []models.SpaceSport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertSpaceSports"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, ok := m.sports[r.SportID]; !ok {
			return fmt.Errorf("sport %d does not exist", r.SportID)
		}
	}
	for _, r := range rows {
		m.links[r.SpaceID] = append(m.links[r.SpaceID], r.SportID)
	}
	return nil
}

func (m *mockDB) DeleteSpaceSports(_ context.Context, spaceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("DeleteSpaceSports"); err != nil {
		return err
	}
	delete(m.links, spaceID)
	return nil
}

func (m *mockDB) ListSpaceSportIDs(_ context.Context, spaceID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListSpaceSportIDs"); err != nil {
		return nil, err
	}
	return append([]int64{}, m.links[spaceID]...), nil
}

func (m *mockDB) GetUserByToken(_ context.Context, token string) (*models.AuthUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetUserByToken"]; err != nil {
		return nil, err
	}
	u, ok := m.users[token]
	if !ok {
		return nil, database.ErrInvalidToken
	}
	return u, nil
}

func (m *mockDB) HealthCheck() error { return nil }
func (m *mockDB) Close() error       { return nil }

// ── Mock ObjectStorage ──

type mockObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	uploadErr error
	signErr   error
	deleteErr error
}

func newMockObjects() *mockObjects {
	return &mockObjects{objects: map[string][]byte{}}
}

func (m *mockObjects) Upload(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.objects[key] = data
	return nil
}

func (m *mockObjects) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signErr != nil {
		return "", m.signErr
	}
	return fmt.Sprintf("https://signed.example/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func (m *mockObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
