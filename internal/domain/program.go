package domain

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Weekday is a lowercase English weekday name, the wire format used for
// scheduled sessions and compliance records.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// WeekdayFromTime converts a time.Time to the lowercase weekday name.
func WeekdayFromTime(t time.Time) Weekday {
	return Weekday(strings.ToLower(t.Weekday().String()))
}

func (w Weekday) Valid() bool {
	switch w {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// SessionExercise is one exercise within a scheduled session's ordered list.
type SessionExercise struct {
	Name  string `bson:"name" json:"name"`
	Sets  int    `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps  string `bson:"reps,omitempty" json:"reps,omitempty"` // e.g. "8-12", "AMRAP"
	Rest  string `bson:"rest,omitempty" json:"rest,omitempty"`
	Notes string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ScheduledSession is one weekday's exercise set within a Program.
type ScheduledSession struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"` // e.g. "Day 1: Upper Body"
	DayOfWeek Weekday            `bson:"dayOfWeek" json:"dayOfWeek"`
	Exercises []SessionExercise  `bson:"exercises" json:"exercises"`
}

// LastCompletedSession points at the most recently completed session.
type LastCompletedSession struct {
	SessionID   primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	Week        int                `bson:"week" json:"week"`
	CompletedAt time.Time          `bson:"completedAt" json:"completedAt"`
}

// Progress is the aggregate completion state of a Program.
//
// TotalPlanned is fixed at sessionCount x totalWeeks on creation and on
// session-set replacement. TotalCompleted never decreases: uncompleting a
// previously-completed ledger record does not roll it back.
type Progress struct {
	TotalPlanned         int                   `bson:"totalPlanned" json:"totalPlanned"`
	TotalCompleted       int                   `bson:"totalCompleted" json:"totalCompleted"`
	CompletionRate       int                   `bson:"completionRate" json:"completionRate"`
	LastCompletedSession *LastCompletedSession `bson:"lastCompletedSession,omitempty" json:"lastCompletedSession,omitempty"`
}

// Program represents a client's scheduled workout plan across weeks.
type Program struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID   primitive.ObjectID `bson:"trainerId" json:"trainerId"` // Who created the program
	ClientID    primitive.ObjectID `bson:"clientId" json:"clientId"`   // Who the program is for
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Frequency   int                `bson:"frequency" json:"frequency"` // Sessions per week: 3, 4 or 5
	Sessions    []ScheduledSession `bson:"sessions" json:"sessions"`
	StartDate   time.Time          `bson:"startDate" json:"startDate"`
	CurrentWeek int                `bson:"currentWeek" json:"currentWeek"`
	TotalWeeks  int                `bson:"totalWeeks" json:"totalWeeks"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	Progress    Progress           `bson:"progress" json:"progress"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SessionForDay returns the scheduled session for the given weekday, or nil
// when no session is scheduled on that day.
func (p *Program) SessionForDay(day Weekday) *ScheduledSession {
	for i := range p.Sessions {
		if p.Sessions[i].DayOfWeek == day {
			return &p.Sessions[i]
		}
	}
	return nil
}

// SessionByID returns the scheduled session with the given ID, or nil.
func (p *Program) SessionByID(id primitive.ObjectID) *ScheduledSession {
	for i := range p.Sessions {
		if p.Sessions[i].ID == id {
			return &p.Sessions[i]
		}
	}
	return nil
}

// WeekFor derives the 1-based program week covering the given calendar date:
// floor((date - startDate)/7) + 1. Dates before the start date yield week 0
// or less, which callers reject.
func (p *Program) WeekFor(date time.Time) int {
	start := p.StartDate.UTC().Truncate(24 * time.Hour)
	day := date.UTC().Truncate(24 * time.Hour)
	days := int(day.Sub(start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days/7 + 1
}

// CompletionRate computes round(100 * completed / planned), 0 when planned is 0.
func CompletionRate(completed, planned int) int {
	if planned <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(planned)))
}
