package model

import "time"

// ExamDefinition is a class-scoped exam. It is read-only to a running session.
type ExamDefinition struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	CreatorID       string     `json:"creator_id"`
	AccessKey       string     `json:"access_key,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	QuestionCount   int        `json:"questions_count"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsExpired reports whether the exam can no longer be taken at now.
func (d *ExamDefinition) IsExpired(now time.Time) bool {
	return d.ExpiryDate != nil && now.After(*d.ExpiryDate)
}

// DurationSeconds is the allotted exam time in seconds.
func (d *ExamDefinition) DurationSeconds() int {
	return d.DurationMinutes * 60
}

// ExamSummary is the public part of a definition shown before verification.
type ExamSummary struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"duration_minutes"`
	QuestionCount   int        `json:"question_count"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
}

// CreateClassRequest is the payload for creating a new class exam.
type CreateClassRequest struct {
	Name            string     `json:"name" binding:"required,notblank,min=3,max=255"`
	Description     string     `json:"description" binding:"omitempty,max=2000"`
	CreatorID       string     `json:"creator_id" binding:"omitempty,max=100"`
	AccessKey       string     `json:"access_key" binding:"required,min=4,max=64"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=1,max=480"`
	QuestionCount   int        `json:"questions_count" binding:"omitempty,min=0"`
	ExpiryDate      *time.Time `json:"expiry_date" binding:"omitempty"`
}
