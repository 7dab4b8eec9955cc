package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"sports-spaces-backend/pkg/database"
	"sports-spaces-backend/pkg/models"
	"sports-spaces-backend/pkg/storage"
)

// DefaultSignedURLTTL is how long image links stay valid
const DefaultSignedURLTTL = 24 * time.Hour

// maxConcurrentSigns bounds signed URL resolution in ListSpaces
const maxConcurrentSigns = 8

// CreateSpaceCommand is a validated-on-use request to create a space
type CreateSpaceCommand struct {
	Name        string            `json:"name"`
	State       models.SpaceState `json:"state"`
	Location    string            `json:"location"`
	Description string            `json:"description"`
	Capacity    int               `json:"capacity"`
	Sports      []int64           `json:"sports"`
	Schedule    []ScheduleInput   `json:"schedule,omitempty"`
}

// UpdateSpaceCommand is a partial update; nil fields are left alone.
// Schedule cannot be changed after creation.
type UpdateSpaceCommand struct {
	Name        *string            `json:"name,omitempty"`
	State       *models.SpaceState `json:"state,omitempty"`
	Location    *string            `json:"location,omitempty"`
	Description *string            `json:"description,omitempty"`
	Capacity    *int               `json:"capacity,omitempty"`
	// ImageKey points the space at an already stored object; "" clears it
	ImageKey    *string            `json:"image_key,omitempty"`
	Sports      []int64            `json:"sports,omitempty"`
}

func (c UpdateSpaceCommand) patch() models.SpacePatch {
	return models.SpacePatch{
		Name:        c.Name,
		State:       c.State,
		Location:    c.Location,
		Description: c.Description,
		Capacity:    c.Capacity,
		ImageKey:    c.ImageKey,
	}
}

// ImageUpload is an image attached to a create request
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SpaceService runs the space workflows
type SpaceService interface {
	CreateSpace(ctx context.Context, cmd CreateSpaceCommand, image *ImageUpload) (*models.SpaceResponse, error)
	ListSpaces(ctx context.Context, token string) ([]models.SpaceResponse, error)
	GetSpaceByID(ctx context.Context, id int64) (*models.SpaceResponse, error)
	ActivateSpace(ctx context.Context, id int64) (*models.MessageResponse, error)
	InactivateSpace(ctx context.Context, id int64) (*models.MessageResponse, error)
	UpdateSpace(ctx context.Context, id int64, cmd UpdateSpaceCommand) (*models.SpaceResponse, error)
	DeleteSpace(ctx context.Context, id int64) (*models.MessageResponse, error)
}

// SpaceServiceOptions tunes the space service
type SpaceServiceOptions struct {
	SignedURLTTL time.Duration
	AdminRole    string
	Logger       *zap.Logger
	// OnRollback is called for every compensation that runs
	OnRollback func(step string, err error)
	// Now is the clock used for object keys
	Now func() time.Time
}

type spaceService struct {
	db         database.DatabaseInterface
	objects    storage.ObjectStorage
	ttl        time.Duration
	adminRole  string
	logger     *zap.Logger
	onRollback func(step string, err error)
	now        func() time.Time
}

// NewSpaceService creates the space workflow service
func NewSpaceService(db database.DatabaseInterface, objects storage.ObjectStorage, opts SpaceServiceOptions) SpaceService {
	s := &spaceService{
		db:         db,
		objects:    objects,
		ttl:        opts.SignedURLTTL,
		adminRole:  opts.AdminRole,
		logger:     opts.Logger,
		onRollback: opts.OnRollback,
		now:        opts.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultSignedURLTTL
	}
	if s.adminRole == "" {
		s.adminRole = "admin"
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ================= validation =================

func validateCreate(cmd *CreateSpaceCommand) error {
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.Location = strings.TrimSpace(cmd.Location)
	if cmd.Name == "" {
		return validationError("name is required")
	}
	if cmd.Location == "" {
		return validationError("location is required")
	}
	if !cmd.State.Valid() {
		return validationError("state must be %q or %q", models.SpaceActive, models.SpaceInactive)
	}
	if cmd.Capacity <= 0 {
		return validationError("capacity must be a positive integer")
	}
	if len(cmd.Sports) == 0 {
		return validationError("at least one sport is required")
	}
	ids, err := uniqueSportIDs(cmd.Sports)
	if err != nil {
		return err
	}
	cmd.Sports = ids
	return validateSchedule(cmd.Schedule)
}

func validateUpdate(cmd *UpdateSpaceCommand) error {
	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return validationError("name cannot be empty")
		}
		cmd.Name = &name
	}
	if cmd.Location != nil {
		location := strings.TrimSpace(*cmd.Location)
		if location == "" {
			return validationError("location cannot be empty")
		}
		cmd.Location = &location
	}
	if cmd.State != nil && !cmd.State.Valid() {
		return validationError("state must be %q or %q", models.SpaceActive, models.SpaceInactive)
	}
	if cmd.Capacity != nil && *cmd.Capacity <= 0 {
		return validationError("capacity must be a positive integer")
	}
	if cmd.ImageKey != nil {
		key := strings.TrimSpace(*cmd.ImageKey)
		cmd.ImageKey = &key
	}
	if len(cmd.Sports) > 0 {
		ids, err := uniqueSportIDs(cmd.Sports)
		if err != nil {
			return err
		}
		cmd.Sports = ids
	}
	return nil
}

// uniqueSportIDs rejects non-positive ids and drops repeats, keeping order
func uniqueSportIDs(ids []int64) ([]int64, error) {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, validationError("sport id %d is invalid", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func spaceSportRows(spaceID int64, sportIDs []int64) []models.SpaceSport {
	rows := make([]models.SpaceSport, 0, len(sportIDs))
	for _, id := range sportIDs {
		rows = append(rows, models.SpaceSport{SpaceID: spaceID, SportID: id})
	}
	return rows
}

// ================= create =================

// CreateSpace validates, then uploads the image, inserts the space, its week
// of schedule rows and its sport links. Any failure after the first write
// unwinds the steps already done.
func (s *spaceService) CreateSpace(ctx context.Context, cmd CreateSpaceCommand, image *ImageUpload) (*models.SpaceResponse, error) {
	if err := validateCreate(&cmd); err != nil {
		return nil, err
	}

	// the workflow and its unwind finish even if the client goes away
	ctx = context.WithoutCancel(ctx)
	rb := newRollback(s.logger, s.onRollback)

	space := &models.Space{
		Name:        cmd.Name,
		State:       cmd.State,
		Location:    cmd.Location,
		Description: cmd.Description,
		Capacity:    cmd.Capacity,
	}

	if image != nil && len(image.Data) > 0 {
		key := storage.ObjectKey(image.Filename, s.now())
		if err := s.objects.Upload(ctx, key, image.Data, image.ContentType); err != nil {
			s.logger.Error("image upload failed", zap.String("key", key), zap.Error(err))
			return nil, infraError("failed to upload image", err)
		}
		rb.add("image", func(ctx context.Context) error {
			return s.objects.Delete(ctx, key)
		})
		space.ImageKey = key
	}

	if err := s.db.InsertSpace(ctx, space); err != nil {
		s.logger.Error("insert space failed", zap.String("name", space.Name), zap.Error(err))
		return nil, rb.run(ctx, infraError("failed to create space", err))
	}
	spaceID := space.ID
	rb.add("space", func(ctx context.Context) error {
		return s.db.DeleteSpace(ctx, spaceID)
	})

	schedule := normalizeSchedule(spaceID, cmd.Schedule)
	if err := s.db.InsertSchedules(ctx, schedule); err != nil {
		s.logger.Error("insert schedules failed", zap.Int64("space_id", spaceID), zap.Error(err))
		return nil, rb.run(ctx, infraError("failed to create schedule", err))
	}
	rb.add("schedules", func(ctx context.Context) error {
		return s.db.DeleteSchedules(ctx, spaceID)
	})

	if err := s.db.InsertSpaceSports(ctx, spaceSportRows(spaceID, cmd.Sports)); err != nil {
		s.logger.Error("insert space sports failed", zap.Int64("space_id", spaceID), zap.Error(err))
		return nil, rb.run(ctx, infraError("failed to link sports", err))
	}

	resp := &models.SpaceResponse{
		ID:          spaceID,
		Name:        space.Name,
		State:       space.State,
		Location:    space.Location,
		Description: space.Description,
		Capacity:    space.Capacity,
		ImageKey:    space.ImageKey,
		Sports:      make([]models.Sport, 0, len(cmd.Sports)),
		Schedule:    schedule,
	}
	for _, id := range cmd.Sports {
		resp.Sports = append(resp.Sports, models.Sport{ID: id})
	}

	if space.ImageKey != "" {
		url, err := s.objects.SignedURL(ctx, space.ImageKey, s.ttl)
		if err != nil {
			s.logger.Error("sign image url failed", zap.String("key", space.ImageKey), zap.Error(err))
			// links were the last write, so they are unwound here by hand
			rb.add("space_sports", func(ctx context.Context) error {
				return s.db.DeleteSpaceSports(ctx, spaceID)
			})
			return nil, rb.run(ctx, infraError("failed to sign image url", err))
		}
		resp.ImageURL = url
	}

	s.logger.Info("space created", zap.Int64("id", spaceID), zap.String("name", space.Name))
	return resp, nil
}

// ================= read =================

// ListSpaces applies the visibility rule for the caller's token, then
// resolves image links concurrently.
func (s *spaceService) ListSpaces(ctx context.Context, token string) ([]models.SpaceResponse, error) {
	filter, err := s.visibilityFilter(ctx, token)
	if err != nil {
		return nil, err
	}

	details, err := s.db.ListSpaceDetails(ctx, filter)
	if err != nil {
		s.logger.Error("list spaces failed", zap.Error(err))
		return nil, infraError("failed to list spaces", err)
	}

	out := make([]models.SpaceResponse, len(details))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSigns)
	for i := range details {
		out[i] = project(&details[i])
		if details[i].ImageKey == "" {
			continue
		}
		g.Go(func() error {
			url, err := s.objects.SignedURL(gctx, details[i].ImageKey, s.ttl)
			if err != nil {
				return fmt.Errorf("space %d: %w", details[i].ID, err)
			}
			out[i].ImageURL = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("sign image urls failed", zap.Error(err))
		return nil, infraError("failed to sign image urls", err)
	}
	return out, nil
}

// visibilityFilter: anonymous callers and non-admins only see Active spaces.
// A token the provider rejects counts as anonymous.
func (s *spaceService) visibilityFilter(ctx context.Context, token string) (database.SpaceFilter, error) {
	activeOnly := database.SpaceFilter{State: models.SpaceActive}
	if token == "" {
		return activeOnly, nil
	}

	user, err := s.db.GetUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, database.ErrInvalidToken) {
			s.logger.Warn("rejected token treated as anonymous", zap.Error(err))
			return activeOnly, nil
		}
		s.logger.Error("resolve caller failed", zap.Error(err))
		return database.SpaceFilter{}, infraError("failed to resolve caller", err)
	}
	if user.HasRole(s.adminRole) {
		return database.SpaceFilter{}, nil
	}
	return activeOnly, nil
}

func (s *spaceService) GetSpaceByID(ctx context.Context, id int64) (*models.SpaceResponse, error) {
	detail, err := s.db.GetSpaceDetail(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError(id)
	}
	if err != nil {
		s.logger.Error("get space failed", zap.Int64("id", id), zap.Error(err))
		return nil, infraError("failed to get space", err)
	}

	resp := project(detail)
	if detail.ImageKey != "" {
		url, err := s.objects.SignedURL(ctx, detail.ImageKey, s.ttl)
		if err != nil {
			s.logger.Error("sign image url failed", zap.Int64("id", id), zap.Error(err))
			return nil, infraError("failed to sign image url", err)
		}
		resp.ImageURL = url
	}
	return &resp, nil
}

// project builds the response shape with schedule rows in day order
func project(d *models.SpaceDetail) models.SpaceResponse {
	schedule := make([]models.ScheduleEntry, len(d.Schedule))
	copy(schedule, d.Schedule)
	sort.SliceStable(schedule, func(i, j int) bool { return schedule[i].Day < schedule[j].Day })

	sports := d.Sports
	if sports == nil {
		sports = []models.Sport{}
	}
	return models.SpaceResponse{
		ID:          d.ID,
		Name:        d.Name,
		State:       d.State,
		Location:    d.Location,
		Description: d.Description,
		Capacity:    d.Capacity,
		ImageKey:    d.ImageKey,
		Sports:      sports,
		Schedule:    schedule,
	}
}

// ================= state =================

func (s *spaceService) ActivateSpace(ctx context.Context, id int64) (*models.MessageResponse, error) {
	space, err := s.setState(ctx, id, models.SpaceActive)
	if err != nil {
		return nil, err
	}
	return &models.MessageResponse{Message: fmt.Sprintf("Space %s activated successfully", space.Name)}, nil
}

func (s *spaceService) InactivateSpace(ctx context.Context, id int64) (*models.MessageResponse, error) {
	space, err := s.setState(ctx, id, models.SpaceInactive)
	if err != nil {
		return nil, err
	}
	return &models.MessageResponse{Message: fmt.Sprintf("Space %s deactivated successfully", space.Name)}, nil
}

func (s *spaceService) setState(ctx context.Context, id int64, state models.SpaceState) (*models.Space, error) {
	space, err := s.db.UpdateSpace(context.WithoutCancel(ctx), id, models.SpacePatch{State: &state})
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError(id)
	}
	if err != nil {
		s.logger.Error("set space state failed", zap.Int64("id", id), zap.String("state", string(state)), zap.Error(err))
		return nil, infraError("failed to update space state", err)
	}
	s.logger.Info("space state changed", zap.Int64("id", id), zap.String("state", string(state)))
	return space, nil
}

// ================= update =================

// UpdateSpace applies the present fields and, when a non-empty sport list is
// given, replaces all sport links. A failed step puts back the previous row
// values and links.
func (s *spaceService) UpdateSpace(ctx context.Context, id int64, cmd UpdateSpaceCommand) (*models.SpaceResponse, error) {
	if err := validateUpdate(&cmd); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	prev, err := s.db.GetSpace(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError(id)
	}
	if err != nil {
		s.logger.Error("get space failed", zap.Int64("id", id), zap.Error(err))
		return nil, infraError("failed to get space", err)
	}

	rb := newRollback(s.logger, s.onRollback)

	patch := cmd.patch()
	if !patch.IsEmpty() {
		if _, err := s.db.UpdateSpace(ctx, id, patch); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, notFoundError(id)
			}
			s.logger.Error("update space failed", zap.Int64("id", id), zap.Error(err))
			return nil, infraError("failed to update space", err)
		}
		revert := patch.RevertOf(prev)
		rb.add("space_fields", func(ctx context.Context) error {
			_, err := s.db.UpdateSpace(ctx, id, revert)
			return err
		})
	}

	if len(cmd.Sports) > 0 {
		previous, err := s.db.ListSpaceSportIDs(ctx, id)
		if err != nil {
			s.logger.Error("list space sports failed", zap.Int64("id", id), zap.Error(err))
			return nil, rb.run(ctx, infraError("failed to read current sports", err))
		}
		if err := s.db.DeleteSpaceSports(ctx, id); err != nil {
			s.logger.Error("delete space sports failed", zap.Int64("id", id), zap.Error(err))
			return nil, rb.run(ctx, infraError("failed to replace sports", err))
		}
		rb.add("space_sports", func(ctx context.Context) error {
			if err := s.db.DeleteSpaceSports(ctx, id); err != nil {
				return err
			}
			return s.db.InsertSpaceSports(ctx, spaceSportRows(id, previous))
		})
		if err := s.db.InsertSpaceSports(ctx, spaceSportRows(id, cmd.Sports)); err != nil {
			s.logger.Error("insert space sports failed", zap.Int64("id", id), zap.Error(err))
			return nil, rb.run(ctx, infraError("failed to replace sports", err))
		}
	}

	s.logger.Info("space updated", zap.Int64("id", id))
	return s.GetSpaceByID(ctx, id)
}

// ================= delete =================

// DeleteSpace removes links, schedule rows and the space, in that order.
// Deletions already done are not restored if a later one fails.
func (s *spaceService) DeleteSpace(ctx context.Context, id int64) (*models.MessageResponse, error) {
	ctx = context.WithoutCancel(ctx)

	space, err := s.db.GetSpace(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError(id)
	}
	if err != nil {
		s.logger.Error("get space failed", zap.Int64("id", id), zap.Error(err))
		return nil, infraError("failed to get space", err)
	}

	if err := s.db.DeleteSpaceSports(ctx, id); err != nil {
		s.logger.Error("delete space sports failed", zap.Int64("id", id), zap.Error(err))
		return nil, infraError("failed to delete space sports", err)
	}
	if err := s.db.DeleteSchedules(ctx, id); err != nil {
		s.logger.Error("delete schedules failed", zap.Int64("id", id), zap.Error(err))
		return nil, infraError("failed to delete schedules", err)
	}
	if err := s.db.DeleteSpace(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFoundError(id)
		}
		s.logger.Error("delete space failed", zap.Int64("id", id), zap.Error(err))
		return nil, infraError("failed to delete space", err)
	}

	s.logger.Info("space deleted", zap.Int64("id", id), zap.String("name", space.Name))
	return &models.MessageResponse{Message: fmt.Sprintf("Space %q deleted successfully", space.Name)}, nil
}
