package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sports-spaces-backend/pkg/models"
)

// ── helpers ──

type rollbackRecord struct {
	step string
	err  error
}

func setupSpaceService(t *testing.T) (SpaceService, *mockDB, *mockObjects, *[]rollbackRecord) {
	t.Helper()
	db := newMockDB()
	objects := newMockObjects()
	var undone []rollbackRecord
	svc := NewSpaceService(db, objects, SpaceServiceOptions{
		SignedURLTTL: time.Hour,
		OnRollback: func(step string, err error) {
			undone = append(undone, rollbackRecord{step: step, err: err})
		},
		Now: func() time.Time { return time.UnixMilli(1700000000000) },
	})
	return svc, db, objects, &undone
}

func validCreate(sports ...int64) CreateSpaceCommand {
	return CreateSpaceCommand{
		Name:        "Court A",
		State:       models.SpaceActive,
		Location:    "North wing",
		Description: "Indoor hard court",
		Capacity:    20,
		Sports:      sports,
		Schedule: []ScheduleInput{
			{Day: 1, TimeStart: "08:00", TimeEnd: "20:00"},
			{Day: 3, TimeStart: "09:30", TimeEnd: "18:00"},
		},
	}
}

func pngImage() *ImageUpload {
	return &ImageUpload{
		Filename:    "court photo.png",
		ContentType: "image/png",
		Data:        []byte("\x89PNG\r\n\x1a\nrest"),
	}
}

func steps(records []rollbackRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.step)
	}
	return out
}

// ── CreateSpace ──

func TestCreateSpace_NormalizesScheduleToFullWeek(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis", "Padel")

	resp, err := svc.CreateSpace(context.Background(), validCreate(ids...), nil)
	require.NoError(t, err)

	require.Len(t, resp.Schedule, models.DaysPerWeek)
	for day, row := range resp.Schedule {
		assert.Equal(t, day, row.Day)
		assert.Equal(t, resp.ID, row.SpaceID)
		switch day {
		case 1:
			assert.False(t, row.Closed)
			assert.Equal(t, "08:00", row.TimeStart)
			assert.Equal(t, "20:00", row.TimeEnd)
		case 3:
			assert.False(t, row.Closed)
			assert.Equal(t, "09:30", row.TimeStart)
		default:
			assert.True(t, row.Closed)
			assert.Equal(t, models.ClosedTimeStart, row.TimeStart)
			assert.Equal(t, models.ClosedTimeEnd, row.TimeEnd)
		}
	}
	assert.Len(t, db.schedules[resp.ID], models.DaysPerWeek)
	assert.ElementsMatch(t, ids, db.links[resp.ID])
	assert.Empty(t, resp.ImageURL)
}

func TestCreateSpace_WithImage(t *testing.T) {
	svc, db, objects, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis")

	resp, err := svc.CreateSpace(context.Background(), validCreate(ids...), pngImage())
	require.NoError(t, err)

	assert.Equal(t, "spaces/1700000000000_court_photo.png", resp.ImageKey)
	assert.True(t, strings.HasPrefix(resp.ImageURL, "https://signed.example/spaces/"))
	assert.Contains(t, resp.ImageURL, "ttl=3600")
	assert.Equal(t, 1, objects.count())
	assert.Equal(t, resp.ImageKey, db.spaces[resp.ID].ImageKey)
}

func TestCreateSpace_ValidationRejectsBeforeAnyWrite(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateSpaceCommand)
		msg    string
	}{
		{"duplicate day", func(c *CreateSpaceCommand) {
			c.Schedule = append(c.Schedule, ScheduleInput{Day: 1, TimeStart: "10:00", TimeEnd: "11:00"})
		}, "duplicated"},
		{"day out of range", func(c *CreateSpaceCommand) {
			c.Schedule = []ScheduleInput{{Day: 7, TimeStart: "10:00", TimeEnd: "11:00"}}
		}, "out of range"},
		{"negative day", func(c *CreateSpaceCommand) {
			c.Schedule = []ScheduleInput{{Day: -1, TimeStart: "10:00", TimeEnd: "11:00"}}
		}, "out of range"},
		{"bad time", func(c *CreateSpaceCommand) {
			c.Schedule = []ScheduleInput{{Day: 2, TimeStart: "8:00", TimeEnd: "11:00"}}
		}, "HH:MM"},
		{"start after end", func(c *CreateSpaceCommand) {
			c.Schedule = []ScheduleInput{{Day: 2, TimeStart: "18:00", TimeEnd: "11:00"}}
		}, "before time_end"},
		{"blank name", func(c *CreateSpaceCommand) { c.Name = "   " }, "name"},
		{"blank location", func(c *CreateSpaceCommand) { c.Location = "" }, "location"},
		{"unknown state", func(c *CreateSpaceCommand) { c.State = "Open" }, "state"},
		{"zero capacity", func(c *CreateSpaceCommand) { c.Capacity = 0 }, "capacity"},
		{"no sports", func(c *CreateSpaceCommand) { c.Sports = nil }, "sport"},
		{"invalid sport id", func(c *CreateSpaceCommand) { c.Sports = []int64{0} }, "sport id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db, objects, _ := setupSpaceService(t)
			ids := db.seedSports("Tennis")
			cmd := validCreate(ids...)
			tt.mutate(&cmd)

			_, err := svc.CreateSpace(context.Background(), cmd, pngImage())
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Contains(t, err.Error(), tt.msg)

			assert.Zero(t, objects.count(), "no upload")
			assert.Zero(t, db.calls["InsertSpace"], "no space insert")
			assert.Zero(t, db.calls["InsertSchedules"], "no schedule insert")
		})
	}
}

func TestCreateSpace_DedupesSportIDs(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis", "Padel")

	resp, err := svc.CreateSpace(context.Background(), validCreate(ids[0], ids[1], ids[0]), nil)
	require.NoError(t, err)
	assert.Len(t, resp.Sports, 2)
	assert.Equal(t, []int64{ids[0], ids[1]}, db.links[resp.ID])
}

func TestCreateSpace_UploadFailureWritesNothing(t *testing.T) {
	svc, db, objects, undone := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	objects.uploadErr = errInjected

	_, err := svc.CreateSpace(context.Background(), validCreate(ids...), pngImage())
	require.Error(t, err)
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.ErrorIs(t, err, errInjected)
	assert.Empty(t, db.spaces)
	assert.Empty(t, *undone)
}

func TestCreateSpace_AssociationFailureUnwindsEverything(t *testing.T) {
	svc, db, objects, undone := setupSpaceService(t)
	db.seedSports("Tennis")

	// sport 999 does not exist
	_, err := svc.CreateSpace(context.Background(), validCreate(999), pngImage())
	require.Error(t, err)
	assert.Equal(t, KindInfrastructure, KindOf(err))

	assert.Empty(t, db.spaces, "space removed")
	assert.Empty(t, db.schedules, "schedule removed")
	assert.Empty(t, db.links)
	assert.Zero(t, objects.count(), "image removed")
	assert.Len(t, objects.deleted, 1)
	assert.Equal(t, []string{"schedules", "space", "image"}, steps(*undone))
}

func TestCreateSpace_ScheduleFailureUnwindsSpaceAndImage(t *testing.T) {
	svc, db, objects, undone := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	db.fail["InsertSchedules"] = errInjected

	_, err := svc.CreateSpace(context.Background(), validCreate(ids...), pngImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Empty(t, db.spaces)
	assert.Zero(t, objects.count())
	assert.Equal(t, []string{"space", "image"}, steps(*undone))
}

func TestCreateSpace_SignFailureUnwindsLinks(t *testing.T) {
	svc, db, objects, undone := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	objects.signErr = errInjected

	_, err := svc.CreateSpace(context.Background(), validCreate(ids...), pngImage())
	require.Error(t, err)
	assert.Empty(t, db.spaces)
	assert.Empty(t, db.links)
	assert.Empty(t, db.schedules)
	assert.Equal(t, []string{"space_sports", "schedules", "space", "image"}, steps(*undone))
}

func TestCreateSpace_UndoFailureIsReportedWithCause(t *testing.T) {
	svc, db, objects, undone := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	db.fail["InsertSpaceSports"] = errInjected
	undoErr := errors.New("bucket unreachable")
	objects.deleteErr = undoErr

	_, err := svc.CreateSpace(context.Background(), validCreate(ids...), pngImage())
	require.Error(t, err)
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.ErrorIs(t, err, errInjected)
	assert.ErrorIs(t, err, undoErr)
	assert.Contains(t, err.Error(), "undo image")

	// the failing undo does not stop the others
	assert.Empty(t, db.spaces)
	require.Len(t, *undone, 3)
	assert.ErrorIs(t, (*undone)[2].err, undoErr)
}

func TestCreateSpace_SurvivesCanceledContext(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.CreateSpace(ctx, validCreate(ids...), nil)
	require.NoError(t, err)
	assert.Contains(t, db.spaces, resp.ID)
}

// ── ListSpaces ──

func seedVisibility(t *testing.T, svc SpaceService, db *mockDB) {
	t.Helper()
	ids := db.seedSports("Tennis")
	active := validCreate(ids...)
	inactive := validCreate(ids...)
	inactive.Name = "Court B"
	inactive.State = models.SpaceInactive
	_, err := svc.CreateSpace(context.Background(), active, pngImage())
	require.NoError(t, err)
	_, err = svc.CreateSpace(context.Background(), inactive, nil)
	require.NoError(t, err)

	db.users["admin-token"] = &models.AuthUser{ID: "u1", Role: "admin"}
	db.users["member-token"] = &models.AuthUser{ID: "u2", Role: "member"}
}

func TestListSpaces_Visibility(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  []string
	}{
		{"anonymous", "", []string{"Court A"}},
		{"admin", "admin-token", []string{"Court A", "Court B"}},
		{"non admin", "member-token", []string{"Court A"}},
		{"rejected token", "garbage", []string{"Court A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db, _, _ := setupSpaceService(t)
			seedVisibility(t, svc, db)

			spaces, err := svc.ListSpaces(context.Background(), tt.token)
			require.NoError(t, err)
			names := make([]string, 0, len(spaces))
			for _, s := range spaces {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestListSpaces_SignsImagesAndSortsSchedule(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	seedVisibility(t, svc, db)

	spaces, err := svc.ListSpaces(context.Background(), "admin-token")
	require.NoError(t, err)
	require.Len(t, spaces, 2)

	assert.NotEmpty(t, spaces[0].ImageURL)
	assert.Empty(t, spaces[1].ImageURL)
	for _, s := range spaces {
		require.Len(t, s.Schedule, models.DaysPerWeek)
		for day, row := range s.Schedule {
			assert.Equal(t, day, row.Day)
			assert.Equal(t, models.DefaultWeekdays[day].Name, row.DayName)
		}
		require.Len(t, s.Sports, 1)
		assert.Equal(t, "Tennis", s.Sports[0].Name)
	}
}

func TestListSpaces_ManyImages(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	for i := 0; i < 20; i++ {
		cmd := validCreate(ids...)
		cmd.Name = fmt.Sprintf("Court %02d", i)
		_, err := svc.CreateSpace(context.Background(), cmd, pngImage())
		require.NoError(t, err)
	}

	spaces, err := svc.ListSpaces(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, spaces, 20)
	for i, s := range spaces {
		assert.Equal(t, fmt.Sprintf("Court %02d", i), s.Name)
		assert.Contains(t, s.ImageURL, s.ImageKey)
	}
}

func TestListSpaces_Failures(t *testing.T) {
	t.Run("auth provider down", func(t *testing.T) {
		svc, db, _, _ := setupSpaceService(t)
		seedVisibility(t, svc, db)
		db.fail["GetUserByToken"] = errInjected

		_, err := svc.ListSpaces(context.Background(), "admin-token")
		assert.Equal(t, KindInfrastructure, KindOf(err))
		assert.ErrorIs(t, err, errInjected)
	})
	t.Run("store down", func(t *testing.T) {
		svc, db, _, _ := setupSpaceService(t)
		db.fail["ListSpaceDetails"] = errInjected

		_, err := svc.ListSpaces(context.Background(), "")
		assert.Equal(t, KindInfrastructure, KindOf(err))
	})
	t.Run("signing fails", func(t *testing.T) {
		svc, db, objects, _ := setupSpaceService(t)
		seedVisibility(t, svc, db)
		objects.signErr = errInjected

		_, err := svc.ListSpaces(context.Background(), "")
		assert.Equal(t, KindInfrastructure, KindOf(err))
		assert.ErrorIs(t, err, errInjected)
	})
}

// ── GetSpaceByID ──

func TestGetSpaceByID_RoundTrip(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis", "Padel")

	created, err := svc.CreateSpace(context.Background(), validCreate(ids...), pngImage())
	require.NoError(t, err)

	got, err := svc.GetSpaceByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.State, got.State)
	assert.Equal(t, created.Capacity, got.Capacity)
	assert.Equal(t, created.ImageKey, got.ImageKey)
	assert.NotEmpty(t, got.ImageURL)
	require.Len(t, got.Schedule, models.DaysPerWeek)
	for day := range got.Schedule {
		assert.Equal(t, created.Schedule[day].TimeStart, got.Schedule[day].TimeStart)
		assert.Equal(t, created.Schedule[day].Closed, got.Schedule[day].Closed)
	}
	assert.Len(t, got.Sports, 2)
}

func TestGetSpaceByID_NotFound(t *testing.T) {
	svc, _, _, _ := setupSpaceService(t)

	_, err := svc.GetSpaceByID(context.Background(), 42)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.EqualError(t, err, "Space with id 42 not found")
}

// ── state ──

func TestActivateInactivate(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	created, err := svc.CreateSpace(context.Background(), validCreate(ids...), nil)
	require.NoError(t, err)

	msg, err := svc.InactivateSpace(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Space Court A deactivated successfully", msg.Message)
	assert.Equal(t, models.SpaceInactive, db.spaces[created.ID].State)

	msg, err = svc.ActivateSpace(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Space Court A activated successfully", msg.Message)
	assert.Equal(t, models.SpaceActive, db.spaces[created.ID].State)

	// idempotent
	_, err = svc.ActivateSpace(context.Background(), created.ID)
	require.NoError(t, err)
}

func TestActivateSpace_MissingID(t *testing.T) {
	svc, _, _, _ := setupSpaceService(t)

	_, err := svc.ActivateSpace(context.Background(), 7)
	assert.Equal(t, KindNotFound, KindOf(err))
	_, err = svc.InactivateSpace(context.Background(), 7)
	assert.Equal(t, KindNotFound, KindOf(err))
}

// ── UpdateSpace ──

func TestUpdateSpace_FieldsAndSports(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis", "Padel", "Squash")
	created, err := svc.CreateSpace(context.Background(), validCreate(ids[0]), nil)
	require.NoError(t, err)

	name := "  Court Z "
	capacity := 8
	got, err := svc.UpdateSpace(context.Background(), created.ID, UpdateSpaceCommand{
		Name:     &name,
		Capacity: &capacity,
		Sports:   []int64{ids[1], ids[2]},
	})
	require.NoError(t, err)
	assert.Equal(t, "Court Z", got.Name)
	assert.Equal(t, 8, got.Capacity)
	assert.Equal(t, "North wing", got.Location, "absent field untouched")
	assert.Equal(t, []int64{ids[1], ids[2]}, db.links[created.ID])
	assert.Len(t, got.Schedule, models.DaysPerWeek, "schedule kept")
}

func TestUpdateSpace_EmptySportsLeavesLinks(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	created, err := svc.CreateSpace(context.Background(), validCreate(ids...), nil)
	require.NoError(t, err)

	desc := "resurfaced"
	_, err = svc.UpdateSpace(context.Background(), created.ID, UpdateSpaceCommand{Description: &desc, Sports: []int64{}})
	require.NoError(t, err)
	assert.Equal(t, ids, db.links[created.ID])
	assert.Zero(t, db.calls["DeleteSpaceSports"])
}

func TestUpdateSpace_Validation(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	created, err := svc.CreateSpace(context.Background(), validCreate(ids...), nil)
	require.NoError(t, err)

	blank := " "
	zero := 0
	bad := models.SpaceState("Closed")
	for _, cmd := range []UpdateSpaceCommand{
		{Name: &blank},
		{Location: &blank},
		{Capacity: &zero},
		{State: &bad},
		{Sports: []int64{-3}},
	} {
		_, err := svc.UpdateSpace(context.Background(), created.ID, cmd)
		assert.Equal(t, KindValidation, KindOf(err))
	}
	assert.Zero(t, db.calls["UpdateSpace"])
}

func TestUpdateSpace_NotFound(t *testing.T) {
	svc, _, _, _ := setupSpaceService(t)
	name := "x"
	_, err := svc.UpdateSpace(context.Background(), 5, UpdateSpaceCommand{Name: &name})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUpdateSpace_LinkFailureRestoresPreviousState(t *testing.T) {
	svc, db, _, undone := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	created, err := svc.CreateSpace(context.Background(), validCreate(ids...), nil)
	require.NoError(t, err)

	name := "Renamed"
	_, err = svc.UpdateSpace(context.Background(), created.ID, UpdateSpaceCommand{
		Name:   &name,
		Sports: []int64{999},
	})
	require.Error(t, err)
	assert.Equal(t, KindInfrastructure, KindOf(err))

	assert.Equal(t, "Court A", db.spaces[created.ID].Name)
	assert.Equal(t, ids, db.links[created.ID])
	assert.Equal(t, []string{"space_sports", "space_fields"}, steps(*undone))
}

func TestUpdateSpace_ImageKey(t *testing.T) {
	svc, db, _, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	created, err := svc.CreateSpace(context.Background(), validCreate(ids...), pngImage())
	require.NoError(t, err)

	key := "  spaces/replacement.jpg "
	got, err := svc.UpdateSpace(context.Background(), created.ID, UpdateSpaceCommand{ImageKey: &key})
	require.NoError(t, err)
	assert.Equal(t, "spaces/replacement.jpg", got.ImageKey)
	assert.Equal(t, "https://signed.example/spaces/replacement.jpg?ttl=3600", got.ImageURL)
	assert.Equal(t, "spaces/replacement.jpg", db.spaces[created.ID].ImageKey)

	cleared := ""
	got, err = svc.UpdateSpace(context.Background(), created.ID, UpdateSpaceCommand{ImageKey: &cleared})
	require.NoError(t, err)
	assert.Empty(t, got.ImageKey)
	assert.Empty(t, got.ImageURL)
}

func TestUpdateSpace_ImageKeyRevertedOnLinkFailure(t *testing.T) {
	svc, db, _, undone := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	created, err := svc.CreateSpace(context.Background(), validCreate(ids...), pngImage())
	require.NoError(t, err)

	key := "spaces/replacement.jpg"
	_, err = svc.UpdateSpace(context.Background(), created.ID, UpdateSpaceCommand{
		ImageKey: &key,
		Sports:   []int64{999},
	})
	require.Error(t, err)
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.Equal(t, created.ImageKey, db.spaces[created.ID].ImageKey)
	assert.Equal(t, []string{"space_sports", "space_fields"}, steps(*undone))
}

// ── DeleteSpace ──

func TestDeleteSpace(t *testing.T) {
	svc, db, objects, _ := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	created, err := svc.CreateSpace(context.Background(), validCreate(ids...), pngImage())
	require.NoError(t, err)

	msg, err := svc.DeleteSpace(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, `Space "Court A" deleted successfully`, msg.Message)
	assert.Empty(t, db.links)
	assert.Empty(t, db.schedules)
	assert.Equal(t, 1, objects.count(), "image object is kept")

	_, err = svc.GetSpaceByID(context.Background(), created.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = svc.DeleteSpace(context.Background(), created.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDeleteSpace_PartialFailureIsNotRestored(t *testing.T) {
	svc, db, _, undone := setupSpaceService(t)
	ids := db.seedSports("Tennis")
	created, err := svc.CreateSpace(context.Background(), validCreate(ids...), nil)
	require.NoError(t, err)
	db.fail["DeleteSchedules"] = errInjected

	_, err = svc.DeleteSpace(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.Empty(t, db.links, "links stay deleted")
	assert.Contains(t, db.spaces, created.ID)
	assert.Empty(t, *undone)
}
