package model

import (
	"strings"
	"time"
)

// StudentIdentity is captured during verification and immutable afterwards.
type StudentIdentity struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	MatricNumber string `json:"matric_number,omitempty"`
	Department   string `json:"department,omitempty"`
}

// Complete reports whether the required name and email are present.
func (s StudentIdentity) Complete() bool {
	return strings.TrimSpace(s.Name) != "" && strings.TrimSpace(s.Email) != ""
}

// RosterEntry is a student appended to a class roster on verification.
type RosterEntry struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	CreatedAt time.Time `json:"created_at"`
	StudentIdentity
}

// VerifyRequest is the payload for entering an exam.
type VerifyRequest struct {
	AccessKey    string `json:"access_key" binding:"required,max=64"`
	Name         string `json:"name" binding:"required,notblank,max=100"`
	Email        string `json:"email" binding:"required,notblank,email,max=255"`
	MatricNumber string `json:"matric_number" binding:"omitempty,max=50"`
	Department   string `json:"department" binding:"omitempty,max=100"`
}

// Identity extracts the student identity from the request.
func (r VerifyRequest) Identity() StudentIdentity {
	return StudentIdentity{
		Name:         strings.TrimSpace(r.Name),
		Email:        strings.TrimSpace(r.Email),
		MatricNumber: strings.TrimSpace(r.MatricNumber),
		Department:   strings.TrimSpace(r.Department),
	}
}
