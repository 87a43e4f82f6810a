package training

import (
	"time"

	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
)

var (
	ErrNotFound     = errors.NewSentinel("not found")
	ErrUnauthorized = errors.NewSentinel("unauthorized")
	ErrForbidden    = errors.NewSentinel("forbidden")
)

// Role decides what a user may see.
type Role string

const (
	RoleClient  Role = "client"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

// User is an account of the training app.
type User struct {
	ID             int
	Email          string
	DisplayName    string
	Role           Role
	TrainerID      *int
	ReceiveReports bool
}

// IsStaff reports whether the user works with other users' data.
func (u User) IsStaff() bool {
	return u.Role == RoleTrainer || u.Role == RoleAdmin
}

// CanView reports whether u may read the training data of userID. Clients only see themselves.
func (u User) CanView(userID int) bool {
	return u.IsStaff() || u.ID == userID
}

// Kind is the training category an exercise belongs to.
type Kind string

const (
	KindStrength Kind = "strength"
	KindCardio   Kind = "cardio"
	KindCrossfit Kind = "crossfit"
)

// ChartSelection is a stored set of enabled charts referenced by report mails.
type ChartSelection struct {
	ID        string
	CreatedBy int
	Selection report.Selection
	CreatedAt time.Time
}

// SentStatus is the delivery result of one report mail.
type SentStatus string

const (
	SentOK     SentStatus = "sent"
	SentFailed SentStatus = "failed"
)

// SentReport is the delivery log entry of one report mail.
type SentReport struct {
	SelectionID    string
	RecipientEmail string
	Dates          report.DateRange
	Status         SentStatus
}

// ChartImage is an exported chart stored for sharing.
type ChartImage struct {
	ID          string
	ContentType string
	Data        []byte
}
