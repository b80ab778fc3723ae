package gateway

import (
	"context"
	"fmt"
	"testing"

	"bakustack/backend/models"
	"bakustack/backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         utils.NewGormLogger(zap.NewNop(), logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

type fixture struct {
	gw      *Gateway
	db      *gorm.DB
	student *models.Profile
	course  *models.Course
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := newTestDB(t)
	gw := New(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, SeedCatalog(ctx, db, "Mentor@BakuStack.az", zap.NewNop()))

	student := &models.Profile{Email: "Student@Example.com", PasswordHash: "x", FullName: "Nigar"}
	require.NoError(t, gw.CreateProfile(ctx, student))

	course, err := gw.CourseBySlug(ctx, "frontend")
	require.NoError(t, err)
	course.SortOutline()
	return fixture{gw: gw, db: db, student: student, course: course}
}

func TestSeededCatalog(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	courses, err := fx.gw.PublishedCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, len(starterCatalog))

	assert.Equal(t, "FRONTEND", fx.course.Title)
	require.NotNil(t, fx.course.Instructor)
	assert.Equal(t, "mentor@bakustack.az", fx.course.Instructor.Email)
	assert.Equal(t, models.RoleInstructor, fx.course.Instructor.Role)
	assert.Equal(t, 7, fx.course.LessonCount())
	_, first := fx.course.FirstLesson()
	require.NotNil(t, first)
	assert.True(t, first.IsFree)

	// Seeding twice leaves the catalog alone.
	require.NoError(t, SeedCatalog(ctx, fx.db, "mentor@bakustack.az", zap.NewNop()))
	courses, err = fx.gw.PublishedCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, len(starterCatalog))

	mine, err := fx.gw.CoursesByInstructor(ctx, fx.course.InstructorID)
	require.NoError(t, err)
	assert.Len(t, mine, len(starterCatalog))
}

func TestCourseBySlugHidesUnpublished(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.db.Model(&models.Course{}).Where("slug = ?", "qa").Update("is_published", false).Error)

	_, err := fx.gw.CourseBySlug(ctx, "qa")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = fx.gw.CourseBySlug(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnrollTwiceConflicts(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	enrolled, err := fx.gw.IsEnrolled(ctx, fx.student.ID, fx.course.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)

	e, err := fx.gw.Enroll(ctx, fx.student.ID, fx.course.ID)
	require.NoError(t, err)
	assert.Zero(t, e.Progress)
	assert.Nil(t, e.CompletedAt)

	_, err = fx.gw.Enroll(ctx, fx.student.ID, fx.course.ID)
	assert.ErrorIs(t, err, ErrConflict)

	enrolled, err = fx.gw.IsEnrolled(ctx, fx.student.ID, fx.course.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	list, err := fx.gw.StudentEnrollments(ctx, fx.student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Course)
	assert.Equal(t, "frontend", list[0].Course.Slug)
}

func TestMarkLessonCompleteIsIdempotentAndRefreshesProgress(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.gw.Enroll(ctx, fx.student.ID, fx.course.ID)
	require.NoError(t, err)

	lesson := fx.course.Modules[0].Lessons[0]
	_, err = fx.gw.MarkLessonComplete(ctx, fx.student.ID, lesson.ID)
	require.NoError(t, err)
	row, err := fx.gw.MarkLessonComplete(ctx, fx.student.ID, lesson.ID)
	require.NoError(t, err)
	assert.True(t, row.Completed)

	var count int64
	require.NoError(t, fx.db.Model(&models.LessonProgress{}).
		Where("student_id = ? AND lesson_id = ?", fx.student.ID, lesson.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	ids, err := fx.gw.CompletedLessonIDs(ctx, fx.student.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{lesson.ID}, ids)

	rows, err := fx.gw.CourseProgress(ctx, fx.student.ID, fx.course.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	list, err := fx.gw.StudentEnrollments(ctx, fx.student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressPercent(1, 7), list[0].Progress)
	assert.Nil(t, list[0].CompletedAt)
}

func TestCompletingEveryLessonCompletesEnrollment(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.gw.Enroll(ctx, fx.student.ID, fx.course.ID)
	require.NoError(t, err)

	for _, m := range fx.course.Modules {
		for _, l := range m.Lessons {
			_, err := fx.gw.MarkLessonComplete(ctx, fx.student.ID, l.ID)
			require.NoError(t, err)
		}
	}

	list, err := fx.gw.StudentEnrollments(ctx, fx.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, list[0].Progress)
	assert.NotNil(t, list[0].CompletedAt)

	// A lesson added later reopens the course.
	extra := models.Lesson{ModuleID: fx.course.Modules[0].ID, Title: "Extra", OrderIndex: 2}
	require.NoError(t, fx.db.Create(&extra).Error)
	_, err = fx.gw.MarkLessonComplete(ctx, fx.student.ID, fx.course.Modules[0].Lessons[0].ID)
	require.NoError(t, err)

	list, err = fx.gw.StudentEnrollments(ctx, fx.student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressPercent(7, 8), list[0].Progress)
	assert.Nil(t, list[0].CompletedAt)
}

func TestMarkUnknownLessonIsNotFound(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.gw.MarkLessonComplete(context.Background(), fx.student.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitAndGradeHomework(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	lesson := fx.course.Modules[0].Lessons[0]

	first, err := fx.gw.SubmitHomework(ctx, fx.student.ID, lesson.ID, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionPending, first.Status)

	grade := 90
	_, err = fx.gw.GradeSubmission(ctx, first.ID, "nice", models.SubmissionApproved, &grade)
	require.NoError(t, err)

	// Resubmitting keeps one row and reopens the review.
	second, err := fx.gw.SubmitHomework(ctx, fx.student.ID, lesson.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "v2", second.Content)
	assert.Equal(t, models.SubmissionPending, second.Status)
	assert.Nil(t, second.Grade)
	assert.Empty(t, second.Feedback)
	assert.Nil(t, second.ReviewedAt)

	stored, err := fx.gw.SubmissionByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Grade)
	assert.Empty(t, stored.Feedback)
	assert.Nil(t, stored.ReviewedAt)

	list, err := fx.gw.LessonSubmissions(ctx, lesson.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Student)
	assert.Equal(t, "Nigar", list[0].Student.FullName)

	course, err := fx.gw.LessonCourse(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.course.ID, course.ID)
}

func TestGradeSubmissionValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	tooHigh := 101
	_, err := fx.gw.GradeSubmission(ctx, uuid.New(), "", models.SubmissionApproved, &tooHigh)
	assert.ErrorIs(t, err, ErrInvalidGrade)
	_, err = fx.gw.GradeSubmission(ctx, uuid.New(), "", models.SubmissionPending, nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = fx.gw.GradeSubmission(ctx, uuid.New(), "", models.SubmissionRejected, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfiles(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	found, err := fx.gw.ProfileByEmail(ctx, "  STUDENT@example.com ")
	require.NoError(t, err)
	assert.Equal(t, fx.student.ID, found.ID)
	assert.Equal(t, models.RoleStudent, found.Role)

	dup := &models.Profile{Email: "student@example.com", PasswordHash: "y", FullName: "Other"}
	assert.ErrorIs(t, fx.gw.CreateProfile(ctx, dup), ErrConflict)

	bio := "Learning Go"
	name := " Nigar H. "
	updated, err := fx.gw.UpdateProfile(ctx, fx.student.ID, ProfileUpdate{FullName: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Nigar H.", updated.FullName)
	assert.Equal(t, bio, updated.Bio)

	_, err = fx.gw.UpdateProfile(ctx, uuid.New(), ProfileUpdate{Bio: &bio})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fx.gw.ProfileByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, fx.gw.Ping(ctx))
}

func TestProgressPercentRounding(t *testing.T) {
	assert.Equal(t, 14, models.ProgressPercent(1, 7))
	assert.Equal(t, 0, models.ProgressPercent(0, 0))
	assert.Equal(t, 100, models.ProgressPercent(9, 7))
}
