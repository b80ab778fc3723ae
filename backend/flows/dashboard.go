package flows

import (
	"context"
	"time"

	"bakustack/backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DashboardStore interface {
	StudentEnrollments(ctx context.Context, studentID uuid.UUID) ([]models.Enrollment, error)
}

type EnrollmentStatus string

const (
	EnrollmentInProgress EnrollmentStatus = "in-progress"
	EnrollmentCompleted  EnrollmentStatus = "completed"
)

type EnrollmentCard struct {
	EnrollmentID uuid.UUID        `json:"enrollment_id"`
	CourseID     uuid.UUID        `json:"course_id"`
	Slug         string           `json:"slug"`
	Title        string           `json:"title"`
	ThumbnailURL string           `json:"thumbnail_url,omitempty"`
	Instructor   string           `json:"instructor,omitempty"`
	Progress     int              `json:"progress"`
	Status       EnrollmentStatus `json:"status"`
	EnrolledAt   time.Time        `json:"enrolled_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

type DashboardTotals struct {
	Enrolled   int `json:"enrolled"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

type DashboardState struct {
	Status      Status           `json:"status"`
	FullName    string           `json:"full_name,omitempty"`
	Enrollments []EnrollmentCard `json:"enrollments"`
	Totals      DashboardTotals  `json:"totals"`
	Notice      string           `json:"notice,omitempty"`
}

type Dashboard struct {
	store    DashboardStore
	identity Identity
	log      *zap.Logger
}

func NewDashboard(store DashboardStore, identity Identity, opts Options) *Dashboard {
	return &Dashboard{store: store, identity: identity, log: opts.logger("dashboard")}
}

// Load lists the viewer's enrollments. An anonymous viewer is sent to the
// login page.
func (f *Dashboard) Load(ctx context.Context) (DashboardState, error) {
	viewer := resolveViewer(ctx, f.identity, f.log)
	if viewer == nil {
		return DashboardState{Status: StatusLoading}, &AuthRequiredError{Redirect: loginRedirect("")}
	}

	enrollments, err := f.store.StudentEnrollments(ctx, viewer.ID)
	if err != nil {
		f.log.Warn("dashboard load failed", zap.String("profile_id", viewer.ID.String()), zap.Error(err))
		return DashboardState{
			Status:      StatusLoadFailed,
			FullName:    viewer.FullName,
			Enrollments: []EnrollmentCard{},
			Notice:      "enrollments could not be loaded",
		}, nil
	}

	st := DashboardState{
		Status:      StatusLoaded,
		FullName:    viewer.FullName,
		Enrollments: make([]EnrollmentCard, 0, len(enrollments)),
	}
	for i := range enrollments {
		card := newEnrollmentCard(&enrollments[i])
		st.Enrollments = append(st.Enrollments, card)
		if card.Status == EnrollmentCompleted {
			st.Totals.Completed++
		} else {
			st.Totals.InProgress++
		}
	}
	st.Totals.Enrolled = len(st.Enrollments)
	return st, nil
}

func newEnrollmentCard(e *models.Enrollment) EnrollmentCard {
	card := EnrollmentCard{
		EnrollmentID: e.ID,
		CourseID:     e.CourseID,
		Progress:     clampPercent(e.Progress),
		Status:       EnrollmentInProgress,
		EnrolledAt:   e.EnrolledAt,
		CompletedAt:  e.CompletedAt,
	}
	if e.CompletedAt != nil {
		card.Status = EnrollmentCompleted
	}
	if e.Course != nil {
		card.Slug = e.Course.Slug
		card.Title = e.Course.Title
		card.ThumbnailURL = e.Course.ThumbnailURL
		card.Instructor = instructorName(e.Course)
	}
	return card
}

// clampPercent bounds a stored percentage for display. The stored value is
// not validated.
func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
