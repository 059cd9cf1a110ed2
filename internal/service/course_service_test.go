package service_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/repository"
	"github.com/codegrade/codegrade-api/internal/service"
)

type fakeUploader struct {
	uploads []string
}

func (u *fakeUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	u.uploads = append(u.uploads, name)
	return "https://cdn.test/" + name, nil
}

// Minimal valid PNG header so type detection sees an image.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func newCourseService(t *testing.T) (service.CourseService, *fakeUploader, gradingFixture) {
	t.Helper()

	db := newTestDB(t)
	fixture := seedGradingFixture(t, db)
	validate := validator.New(validator.WithRequiredStructEnabled())
	uploader := &fakeUploader{}

	svc := service.NewCourseService(repository.NewCourseRepository(db), uploader, validate, zerolog.Nop())
	return svc, uploader, fixture
}

func TestCreateCourseGeneratesJoinCode(t *testing.T) {
	svc, _, fixture := newCourseService(t)

	created, err := svc.Create(context.Background(), fixture.teacher.ID, dto.CourseCreateRequest{
		InstitutionID: 1,
		Title:         "Operating Systems",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(created.JoinCode, "CR"))
	require.Len(t, created.JoinCode, 10)
}

func TestEnrollByJoinCode(t *testing.T) {
	svc, _, fixture := newCourseService(t)

	enrollment, err := svc.Enroll(context.Background(), fixture.student.ID, dto.EnrollRequest{
		JoinCode: strings.ToLower(fixture.course.JoinCode),
	})
	require.NoError(t, err)
	require.Equal(t, fixture.course.ID, enrollment.CourseID)
	require.Equal(t, fixture.student.ID, enrollment.StudentID)

	_, err = svc.Enroll(context.Background(), fixture.student.ID, dto.EnrollRequest{
		JoinCode: fixture.course.JoinCode,
	})
	require.ErrorIs(t, err, service.ErrAlreadyEnrolled)

	_, err = svc.Enroll(context.Background(), fixture.student.ID, dto.EnrollRequest{
		JoinCode: "CRNOPE9999",
	})
	require.ErrorIs(t, err, service.ErrInvalidJoinCode)
}

func TestListEnrollmentsOwnerOnly(t *testing.T) {
	svc, _, fixture := newCourseService(t)

	_, err := svc.Enroll(context.Background(), fixture.student.ID, dto.EnrollRequest{JoinCode: fixture.course.JoinCode})
	require.NoError(t, err)

	enrollments, err := svc.ListEnrollments(context.Background(), fixture.course.ID, fixture.teacher.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, fixture.student.Name, enrollments[0].StudentName)

	_, err = svc.ListEnrollments(context.Background(), fixture.course.ID, fixture.teacher.ID+1)
	require.ErrorIs(t, err, service.ErrNotCourseOwner)
}

func TestUploadImageRejectsNonImages(t *testing.T) {
	svc, uploader, fixture := newCourseService(t)

	_, err := svc.UploadImage(context.Background(), fixture.course.ID, fixture.teacher.ID, "notes.txt", strings.NewReader("plain text"))
	require.ErrorIs(t, err, service.ErrUnsupportedImage)
	require.Empty(t, uploader.uploads)

	course, err := svc.UploadImage(context.Background(), fixture.course.ID, fixture.teacher.ID, "banner.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Contains(t, course.ImageURL, "https://cdn.test/")
	require.Len(t, uploader.uploads, 1)
}
