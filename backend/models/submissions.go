package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is a student's homework for one lesson.
type Submission struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_submissions_student_lesson" json:"lesson_id"`
	StudentID   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_submissions_student_lesson" json:"student_id"`
	Content     string           `gorm:"not null" json:"content"`
	Feedback    string           `json:"feedback,omitempty"`
	Status      SubmissionStatus `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	Grade       *int             `json:"grade,omitempty"`
	SubmittedAt time.Time        `gorm:"not null" json:"submitted_at"`
	ReviewedAt  *time.Time       `json:"reviewed_at,omitempty"`
	Student     *Profile         `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
