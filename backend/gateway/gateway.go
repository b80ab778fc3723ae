// Package gateway is the typed access layer over the hosted Postgres store.
// Every exported method issues one logical request: there is no retry and no
// cache, so each call is a fresh round trip.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakustack/backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrConflict      = errors.New("record already exists")
	ErrInvalidStatus = errors.New("status must be approved or rejected")
	ErrInvalidGrade  = errors.New("grade must be between 0 and 100")
)

const uniqueViolation = "23505"

type Gateway struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(db *gorm.DB, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{db: db, log: log.With(zap.String("component", "gateway"))}
}

// Ping checks that the store answers.
func (g *Gateway) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates or extends the schema. The composite unique indexes on
// enrollments, lesson_progress and submissions back the upsert semantics.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.Course{},
		&models.Module{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.LessonProgress{},
		&models.Submission{},
	)
}

// classify maps driver errors onto the gateway's sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.Is(err, gorm.ErrDuplicatedKey) || (errors.As(err, &pgErr) && pgErr.Code == uniqueViolation) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (g *Gateway) PublishedCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := g.db.WithContext(ctx).
		Preload("Instructor").
		Preload("Modules.Lessons").
		Where("is_published = ?", true).
		Order("created_at DESC").
		Find(&courses).Error
	if err != nil {
		return nil, classify("published courses", err)
	}
	return courses, nil
}

// CourseBySlug loads one published course with its modules and lessons.
// Nested collections come back in store order; see models.Course.SortOutline.
func (g *Gateway) CourseBySlug(ctx context.Context, slug string) (*models.Course, error) {
	var course models.Course
	err := g.db.WithContext(ctx).
		Preload("Instructor").
		Preload("Modules.Lessons").
		Where("slug = ? AND is_published = ?", slug, true).
		First(&course).Error
	if err != nil {
		return nil, classify("course by slug", err)
	}
	return &course, nil
}

func (g *Gateway) CoursesByInstructor(ctx context.Context, instructorID uuid.UUID) ([]models.Course, error) {
	var courses []models.Course
	err := g.db.WithContext(ctx).
		Where("instructor_id = ?", instructorID).
		Order("created_at DESC").
		Find(&courses).Error
	if err != nil {
		return nil, classify("courses by instructor", err)
	}
	return courses, nil
}

// LessonCourse returns the course a lesson belongs to, published or not.
func (g *Gateway) LessonCourse(ctx context.Context, lessonID uuid.UUID) (*models.Course, error) {
	var course models.Course
	err := g.db.WithContext(ctx).
		Joins("JOIN modules ON modules.course_id = courses.id").
		Joins("JOIN lessons ON lessons.module_id = modules.id").
		Where("lessons.id = ?", lessonID).
		First(&course).Error
	if err != nil {
		return nil, classify("lesson course", err)
	}
	return &course, nil
}

// Enroll inserts a new enrollment. A second enrollment for the same pair
// fails with ErrConflict.
func (g *Gateway) Enroll(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	enrollment := models.Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
	}
	if err := g.db.WithContext(ctx).Create(&enrollment).Error; err != nil {
		return nil, classify("enroll", err)
	}
	g.log.Info("student enrolled",
		zap.String("student_id", studentID.String()),
		zap.String("course_id", courseID.String()))
	return &enrollment, nil
}

func (g *Gateway) StudentEnrollments(ctx context.Context, studentID uuid.UUID) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := g.db.WithContext(ctx).
		Preload("Course").
		Preload("Course.Instructor").
		Where("student_id = ?", studentID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, classify("student enrollments", err)
	}
	return enrollments, nil
}

func (g *Gateway) IsEnrolled(ctx context.Context, studentID, courseID uuid.UUID) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	if err != nil {
		return false, classify("is enrolled", err)
	}
	return count > 0, nil
}

// MarkLessonComplete upserts the (student, lesson) progress row and refreshes
// the cached progress on the student's enrollment for the lesson's course.
// Repeating the call for a completed lesson leaves exactly one row.
func (g *Gateway) MarkLessonComplete(ctx context.Context, studentID, lessonID uuid.UUID) (*models.LessonProgress, error) {
	now := time.Now().UTC()
	var saved models.LessonProgress

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lesson models.Lesson
		if err := tx.Select("id", "module_id").First(&lesson, "id = ?", lessonID).Error; err != nil {
			return err
		}

		row := models.LessonProgress{
			StudentID:   studentID,
			LessonID:    lessonID,
			Completed:   true,
			CompletedAt: &now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed", "completed_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		if err := tx.Where("student_id = ? AND lesson_id = ?", studentID, lessonID).First(&saved).Error; err != nil {
			return err
		}
		return refreshEnrollmentProgress(tx, studentID, lesson.ModuleID, now)
	})
	if err != nil {
		return nil, classify("mark lesson complete", err)
	}
	return &saved, nil
}

func refreshEnrollmentProgress(tx *gorm.DB, studentID, moduleID uuid.UUID, now time.Time) error {
	var module models.Module
	if err := tx.Select("id", "course_id").First(&module, "id = ?", moduleID).Error; err != nil {
		return err
	}

	var total int64
	err := tx.Model(&models.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", module.CourseID).
		Count(&total).Error
	if err != nil {
		return err
	}

	var done int64
	err = tx.Model(&models.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lesson_progress.student_id = ? AND lesson_progress.completed = ? AND modules.course_id = ?",
			studentID, true, module.CourseID).
		Count(&done).Error
	if err != nil {
		return err
	}

	pct := models.ProgressPercent(int(done), int(total))
	updates := map[string]any{"progress": pct}
	if pct < 100 {
		// Курс мог получить новые уроки
		updates["completed_at"] = nil
	}
	err = tx.Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, module.CourseID).
		Updates(updates).Error
	if err != nil || pct < 100 {
		return err
	}
	return tx.Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ? AND completed_at IS NULL", studentID, module.CourseID).
		Update("completed_at", now).Error
}

func (g *Gateway) CompletedLessonIDs(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := g.db.WithContext(ctx).
		Model(&models.LessonProgress{}).
		Where("student_id = ? AND completed = ?", studentID, true).
		Pluck("lesson_id", &ids).Error
	if err != nil {
		return nil, classify("completed lesson ids", err)
	}
	return ids, nil
}

// CourseProgress lists a student's progress rows for lessons of one course.
func (g *Gateway) CourseProgress(ctx context.Context, studentID, courseID uuid.UUID) ([]models.LessonProgress, error) {
	var rows []models.LessonProgress
	err := g.db.WithContext(ctx).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lesson_progress.student_id = ? AND modules.course_id = ?", studentID, courseID).
		Find(&rows).Error
	if err != nil {
		return nil, classify("course progress", err)
	}
	return rows, nil
}

// SubmitHomework upserts the (student, lesson) submission and puts it back
// into the pending queue. A resubmission drops the previous review.
func (g *Gateway) SubmitHomework(ctx context.Context, studentID, lessonID uuid.UUID, content string) (*models.Submission, error) {
	row := models.Submission{
		StudentID:   studentID,
		LessonID:    lessonID,
		Content:     content,
		Status:      models.SubmissionPending,
		SubmittedAt: time.Now().UTC(),
	}

	var saved models.Submission
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"content":      row.Content,
				"status":       row.Status,
				"submitted_at": row.SubmittedAt,
				"feedback":     "",
				"grade":        nil,
				"reviewed_at":  nil,
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Where("student_id = ? AND lesson_id = ?", studentID, lessonID).First(&saved).Error
	})
	if err != nil {
		return nil, classify("submit homework", err)
	}
	return &saved, nil
}

func (g *Gateway) LessonSubmissions(ctx context.Context, lessonID uuid.UUID) ([]models.Submission, error) {
	var submissions []models.Submission
	err := g.db.WithContext(ctx).
		Preload("Student").
		Where("lesson_id = ?", lessonID).
		Order("submitted_at DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, classify("lesson submissions", err)
	}
	return submissions, nil
}

func (g *Gateway) SubmissionByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	if err := g.db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		return nil, classify("submission by id", err)
	}
	return &submission, nil
}

// GradeSubmission records an instructor's review. Status and grade are
// validated before the store is touched.
func (g *Gateway) GradeSubmission(ctx context.Context, id uuid.UUID, feedback string, status models.SubmissionStatus, grade *int) (*models.Submission, error) {
	if status != models.SubmissionApproved && status != models.SubmissionRejected {
		return nil, ErrInvalidStatus
	}
	if grade != nil && (*grade < 0 || *grade > 100) {
		return nil, ErrInvalidGrade
	}

	now := time.Now().UTC()
	var saved models.Submission
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Submission{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"feedback":    feedback,
				"status":      status,
				"grade":       grade,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&saved, "id = ?", id).Error
	})
	if err != nil {
		return nil, classify("grade submission", err)
	}
	return &saved, nil
}

func (g *Gateway) ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := g.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, classify("profile by id", err)
	}
	return &profile, nil
}

func (g *Gateway) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	err := g.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&profile).Error
	if err != nil {
		return nil, classify("profile by email", err)
	}
	return &profile, nil
}

func (g *Gateway) CreateProfile(ctx context.Context, profile *models.Profile) error {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if err := g.db.WithContext(ctx).Create(profile).Error; err != nil {
		return classify("create profile", err)
	}
	return nil
}

// ProfileUpdate carries the user-editable profile fields; nil means unchanged.
type ProfileUpdate struct {
	FullName  *string
	AvatarURL *string
	Bio       *string
}

func (g *Gateway) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*models.Profile, error) {
	updates := map[string]any{}
	if in.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*in.FullName)
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}
	if in.Bio != nil {
		updates["bio"] = *in.Bio
	}

	var saved models.Profile
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			res := tx.Model(&models.Profile{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return tx.First(&saved, "id = ?", id).Error
	})
	if err != nil {
		return nil, classify("update profile", err)
	}
	return &saved, nil
}
