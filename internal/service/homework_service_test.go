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

type fakeHomeworkRepo struct {
	items   map[string]*models.Homework
	created int
}

func (f *fakeHomeworkRepo) ListByClass(_ context.Context, classID string) ([]models.Homework, error) {
	var out []models.Homework
	for _, item := range f.items {
		if item.ClassID == classID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeHomeworkRepo) FindByID(_ context.Context, id string) (*models.Homework, error) {
	if item, ok := f.items[id]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeHomeworkRepo) Create(_ context.Context, item *models.Homework) error {
	f.created++
	if item.ID == "" {
		item.ID = "hw-created"
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeHomeworkRepo) Update(_ context.Context, item *models.Homework) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeHomeworkRepo) Delete(_ context.Context, id string) error {
	delete(f.items, id)
	return nil
}

func newHomeworkFixture() (*HomeworkService, *fakeHomeworkRepo) {
	parentID := "parent-1"
	repo := &fakeHomeworkRepo{items: map[string]*models.Homework{
		"hw-1": {ID: "hw-1", ClassID: "class-1", Title: "Fractions worksheet"},
	}}
	classes := &fakeClassFinder{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", OwnerUserID: "teacher-1", Name: "Math 5A"},
		"class-2": {ID: "class-2", OwnerUserID: "teacher-2", Name: "Math 5B"},
	}}
	students := &fakeStudentFinder{students: map[string]*models.Student{
		"student-1": {ID: "student-1", ClassID: "class-1", Name: "An Nguyen", ParentUserID: &parentID},
		"student-2": {ID: "student-2", ClassID: "class-1", Name: "Binh Tran"},
	}}
	return NewHomeworkService(repo, classes, students, nil, nil), repo
}

func TestHomeworkCreateRequiresOwnedClass(t *testing.T) {
	svc, repo := newHomeworkFixture()

	_, err := svc.Create(context.Background(), "teacher-1", "class-2", models.HomeworkInput{Title: "Essay"})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, repo.created)

	item, err := svc.Create(context.Background(), "teacher-1", "class-1", models.HomeworkInput{Title: "Essay", DueDate: "2026-04-01"})
	require.NoError(t, err)
	require.NotNil(t, item.DueDate)
	assert.Equal(t, "2026-04-01", item.DueDate.Format("2006-01-02"))
}

func TestHomeworkUpdateUnknown(t *testing.T) {
	svc, _ := newHomeworkFixture()

	_, err := svc.Update(context.Background(), "teacher-1", "hw-missing", models.HomeworkInput{Title: "Essay"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestHomeworkListForStudent(t *testing.T) {
	svc, _ := newHomeworkFixture()

	items, err := svc.ListForStudent(context.Background(), "parent-1", "student-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Fractions worksheet", items[0].Title)
}

func TestHomeworkListForStudentRequiresLink(t *testing.T) {
	svc, _ := newHomeworkFixture()

	_, err := svc.ListForStudent(context.Background(), "parent-1", "student-2")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.ListForStudent(context.Background(), "parent-1", "student-missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
