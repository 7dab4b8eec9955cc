package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sports-spaces-backend/pkg/models"
)

// detailSelect embeds sports (through space_sports) and schedules with their weekday name
const detailSelect = "id,name,state,location,description,capacity,image_key," +
	"space_sports(sports(id,name))," +
	"schedules(id,space_id,day,time_start,time_end,closed,weekdays(name))"

// SupabaseDatabase talks to Supabase through PostgREST (/rest/v1) and GoTrue (/auth/v1)
type SupabaseDatabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseDatabase creates a Supabase backend
func NewSupabaseDatabase(url, key string) *SupabaseDatabase {
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}

	return &SupabaseDatabase{
		baseURL: strings.TrimRight(url, "/"),
		apiKey:  key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// makeRequest sends a PostgREST request authenticated with the service key
func (db *SupabaseDatabase) makeRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	return db.do(ctx, method, db.baseURL+"/rest/v1"+endpoint, body, db.apiKey)
}

func (db *SupabaseDatabase) do(ctx context.Context, method, fullURL string, body interface{}, bearer string) ([]byte, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", db.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := db.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// RequestError is a non-2xx answer from Supabase
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	var pgErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal([]byte(e.Body), &pgErr) == nil && pgErr.Message != "" {
		return fmt.Sprintf("API request failed with status %d: %s (%s)", e.StatusCode, pgErr.Message, pgErr.Code)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// ================= Sports =================

func (db *SupabaseDatabase) ListSports(ctx context.Context) ([]models.Sport, error) {
	data, err := db.makeRequest(ctx, http.MethodGet, "/sports?select=id,name&order=name.asc", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list sports: %w", err)
	}
	sports := []models.Sport{}
	if err := json.Unmarshal(data, &sports); err != nil {
		return nil, fmt.Errorf("failed to decode sports: %w", err)
	}
	return sports, nil
}

func (db *SupabaseDatabase) CreateSport(ctx context.Context, sport *models.Sport) error {
	data, err := db.makeRequest(ctx, http.MethodPost, "/sports", map[string]interface{}{"name": sport.Name})
	if err != nil {
		return fmt.Errorf("failed to create sport: %w", err)
	}
	var rows []models.Sport
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("failed to decode created sport: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("failed to create sport: empty representation")
	}
	*sport = rows[0]
	return nil
}

// ================= Spaces =================

func spacePayload(space *models.Space) map[string]interface{} {
	return map[string]interface{}{
		"name":        space.Name,
		"state":       string(space.State),
		"location":    space.Location,
		"description": space.Description,
		"capacity":    space.Capacity,
		"image_key":   nullIfEmpty(space.ImageKey),
	}
}

// supabaseSpace mirrors a spaces row; image_key may be null
type supabaseSpace struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	State       models.SpaceState `json:"state"`
	Location    *string           `json:"location"`
	Description *string           `json:"description"`
	Capacity    int               `json:"capacity"`
	ImageKey    *string           `json:"image_key"`
}

func (s supabaseSpace) toModel() models.Space {
	return models.Space{
		ID:          s.ID,
		Name:        s.Name,
		State:       s.State,
		Location:    deref(s.Location),
		Description: deref(s.Description),
		Capacity:    s.Capacity,
		ImageKey:    deref(s.ImageKey),
	}
}

func (db *SupabaseDatabase) decodeSpaceRows(data []byte) ([]models.Space, error) {
	var rows []supabaseSpace
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode spaces: %w", err)
	}
	out := make([]models.Space, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (db *SupabaseDatabase) InsertSpace(ctx context.Context, space *models.Space) error {
	data, err := db.makeRequest(ctx, http.MethodPost, "/spaces", spacePayload(space))
	if err != nil {
		return fmt.Errorf("failed to insert space: %w", err)
	}
	rows, err := db.decodeSpaceRows(data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("failed to insert space: empty representation")
	}
	*space = rows[0]
	return nil
}

func (db *SupabaseDatabase) GetSpace(ctx context.Context, id int64) (*models.Space, error) {
	data, err := db.makeRequest(ctx, http.MethodGet, fmt.Sprintf("/spaces?id=eq.%d&select=*", id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	rows, err := db.decodeSpaceRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) UpdateSpace(ctx context.Context, id int64, patch models.SpacePatch) (*models.Space, error) {
	if patch.IsEmpty() {
		return db.GetSpace(ctx, id)
	}
	cols := patch.Columns()
	if v, ok := cols["image_key"]; ok {
		cols["image_key"] = nullIfEmpty(v.(string))
	}
	data, err := db.makeRequest(ctx, http.MethodPatch, fmt.Sprintf("/spaces?id=eq.%d", id), cols)
	if err != nil {
		return nil, fmt.Errorf("failed to update space: %w", err)
	}
	rows, err := db.decodeSpaceRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) DeleteSpace(ctx context.Context, id int64) error {
	data, err := db.makeRequest(ctx, http.MethodDelete, fmt.Sprintf("/spaces?id=eq.%d", id), nil)
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}
	rows, err := db.decodeSpaceRows(data)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(int64(len(rows)))
}

// supabaseSpaceDetail is a spaces row with its embedded relations
type supabaseSpaceDetail struct {
	supabaseSpace
	SpaceSports []struct {
		Sports *models.Sport `json:"sports"`
	} `json:"space_sports"`
	Schedules []struct {
		models.ScheduleEntry
		Weekdays *struct {
			Name string `json:"name"`
		} `json:"weekdays"`
	} `json:"schedules"`
}

func (d supabaseSpaceDetail) toModel() models.SpaceDetail {
	out := models.SpaceDetail{
		Space:    d.supabaseSpace.toModel(),
		Sports:   []models.Sport{},
		Schedule: []models.ScheduleEntry{},
	}
	for _, ss := range d.SpaceSports {
		if ss.Sports != nil {
			out.Sports = append(out.Sports, *ss.Sports)
		}
	}
	for _, s := range d.Schedules {
		entry := s.ScheduleEntry
		if s.Weekdays != nil {
			entry.DayName = s.Weekdays.Name
		}
		out.Schedule = append(out.Schedule, entry)
	}
	return out
}

func (db *SupabaseDatabase) selectDetails(ctx context.Context, query url.Values) ([]models.SpaceDetail, error) {
	query.Set("select", detailSelect)
	data, err := db.makeRequest(ctx, http.MethodGet, "/spaces?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var rows []supabaseSpaceDetail
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode spaces: %w", err)
	}
	out := make([]models.SpaceDetail, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (db *SupabaseDatabase) GetSpaceDetail(ctx context.Context, id int64) (*models.SpaceDetail, error) {
	rows, err := db.selectDetails(ctx, url.Values{"id": {fmt.Sprintf("eq.%d", id)}})
	if err != nil {
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) ListSpaceDetails(ctx context.Context, filter SpaceFilter) ([]models.SpaceDetail, error) {
	query := url.Values{"order": {"id.asc"}}
	if filter.State != "" {
		query.Set("state", "eq."+string(filter.State))
	}
	rows, err := db.selectDetails(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	return rows, nil
}

// ================= Schedules & associations =================

func (db *SupabaseDatabase) InsertSchedules(ctx context.Context, rows []models.ScheduleEntry) error {
	if len(rows) == 0 {
		return nil
	}
	payload := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		payload = append(payload, map[string]interface{}{
			"space_id":   r.SpaceID,
			"day":        r.Day,
			"time_start": r.TimeStart,
			"time_end":   r.TimeEnd,
			"closed":     r.Closed,
		})
	}
	if _, err := db.makeRequest(ctx, http.MethodPost, "/schedules", payload); err != nil {
		return fmt.Errorf("failed to insert schedules: %w", err)
	}
	return nil
}

func (db *SupabaseDatabase) DeleteSchedules(ctx context.Context, spaceID int64) error {
	if _, err := db.makeRequest(ctx, http.MethodDelete, fmt.Sprintf("/schedules?space_id=eq.%d", spaceID), nil); err != nil {
		return fmt.Errorf("failed to delete schedules: %w", err)
	}
	return nil
}

func (db *SupabaseDatabase) InsertSpaceSports(ctx context.Context, rows []models.SpaceSport) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := db.makeRequest(ctx, http.MethodPost, "/space_sports", rows); err != nil {
		return fmt.Errorf("failed to insert space sports: %w", err)
	}
	return nil
}

func (db *SupabaseDatabase) DeleteSpaceSports(ctx context.Context, spaceID int64) error {
	if _, err := db.makeRequest(ctx, http.MethodDelete, fmt.Sprintf("/space_sports?space_id=eq.%d", spaceID), nil); err != nil {
		return fmt.Errorf("failed to delete space sports: %w", err)
	}
	return nil
}

func (db *SupabaseDatabase) ListSpaceSportIDs(ctx context.Context, spaceID int64) ([]int64, error) {
	data, err := db.makeRequest(ctx, http.MethodGet, fmt.Sprintf("/space_sports?space_id=eq.%d&select=sport_id&order=sport_id.asc", spaceID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list space sports: %w", err)
	}
	var rows []models.SpaceSport
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode space sports: %w", err)
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.SportID)
	}
	return ids, nil
}

// ================= Auth =================

// GetUserByToken asks GoTrue who the token belongs to
func (db *SupabaseDatabase) GetUserByToken(ctx context.Context, token string) (*models.AuthUser, error) {
	data, err := db.do(ctx, http.MethodGet, db.baseURL+"/auth/v1/user", nil, token)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && (reqErr.StatusCode == http.StatusUnauthorized || reqErr.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, reqErr.Error())
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	var user struct {
		ID          string             `json:"id"`
		Email       string             `json:"email"`
		AppMetadata models.AppMetadata `json:"app_metadata"`
	}
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &models.AuthUser{ID: user.ID, Email: user.Email, Role: user.AppMetadata.UserRole}, nil
}

// HealthCheck probes PostgREST with a cheap read
func (db *SupabaseDatabase) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := db.makeRequest(ctx, http.MethodGet, "/sports?select=id&limit=1", nil)
	return err
}

func (db *SupabaseDatabase) Close() error {
	db.httpClient.CloseIdleConnections()
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
