package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studynote/studynote-api/internal/models"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

type fakeClassRepo struct {
	classes map[string]*models.Class
	created int
}

func (f *fakeClassRepo) ListByOwner(_ context.Context, ownerUserID string) ([]models.Class, error) {
	var out []models.Class
	for _, c := range f.classes {
		if c.OwnerUserID == ownerUserID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeClassRepo) FindByID(_ context.Context, id string) (*models.Class, error) {
	if c, ok := f.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeClassRepo) Create(_ context.Context, class *models.Class) error {
	f.created++
	if class.ID == "" {
		class.ID = "class-created"
	}
	f.classes[class.ID] = class
	return nil
}

func (f *fakeClassRepo) Update(_ context.Context, class *models.Class) error {
	f.classes[class.ID] = class
	return nil
}

func (f *fakeClassRepo) Delete(_ context.Context, id string) error {
	delete(f.classes, id)
	return nil
}

func newClassFixture() (*ClassService, *fakeClassRepo) {
	repo := &fakeClassRepo{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", OwnerUserID: "teacher-1", Name: "Math 5A"},
		"class-2": {ID: "class-2", OwnerUserID: "teacher-2", Name: "Math 5B"},
	}}
	return NewClassService(repo, nil, nil), repo
}

func TestClassCreateWithSchedules(t *testing.T) {
	svc, repo := newClassFixture()

	class, err := svc.Create(context.Background(), "teacher-1", models.ClassInput{
		Name: "Literature 5C",
		Schedules: []models.Schedule{
			{DayOfWeek: 1, StartTime: "07:30", EndTime: "09:00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", class.OwnerUserID)
	assert.Equal(t, 1, repo.created)
}

func TestClassCreateRejectsBadScheduleTime(t *testing.T) {
	svc, repo := newClassFixture()

	for _, schedule := range []models.Schedule{
		{DayOfWeek: 1, StartTime: "7h30", EndTime: "09:00"},
		{DayOfWeek: 1, StartTime: "07:30", EndTime: "25:99"},
		{DayOfWeek: 9, StartTime: "07:30", EndTime: "09:00"},
	} {
		_, err := svc.Create(context.Background(), "teacher-1", models.ClassInput{
			Name:      "Literature 5C",
			Schedules: []models.Schedule{schedule},
		})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Equal(t, 0, repo.created)
}

func TestClassGetEnforcesOwnership(t *testing.T) {
	svc, _ := newClassFixture()

	_, err := svc.Get(context.Background(), "teacher-1", "class-2")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), "teacher-1", "ghost")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassUpdateAndDelete(t *testing.T) {
	svc, repo := newClassFixture()

	class, err := svc.Update(context.Background(), "teacher-1", "class-1", models.ClassInput{Name: "Math 5A (new)"})
	require.NoError(t, err)
	assert.Equal(t, "Math 5A (new)", class.Name)

	require.NoError(t, svc.Delete(context.Background(), "teacher-1", "class-1"))
	_, ok := repo.classes["class-1"]
	assert.False(t, ok)
}
