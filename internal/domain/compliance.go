package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NonCompletionReason explains why a scheduled session was not performed.
// Required whenever a record is not completed; "other" additionally requires notes.
type NonCompletionReason string

const (
	ReasonInjury    NonCompletionReason = "injury"
	ReasonIllness   NonCompletionReason = "illness"
	ReasonTravel    NonCompletionReason = "travel"
	ReasonWork      NonCompletionReason = "work"
	ReasonFatigue   NonCompletionReason = "fatigue"
	ReasonEquipment NonCompletionReason = "equipment"
	ReasonOther     NonCompletionReason = "other"
)

func (r NonCompletionReason) Valid() bool {
	switch r {
	case ReasonInjury, ReasonIllness, ReasonTravel, ReasonWork, ReasonFatigue, ReasonEquipment, ReasonOther:
		return true
	}
	return false
}

// RecordSource distinguishes the two ledger entry points. Daily-status records
// are deduplicated per calendar day; full session logs are not.
type RecordSource string

const (
	SourceDaily RecordSource = "daily"
	SourceLog   RecordSource = "log"
)

// ExerciseResult captures what the client actually did for one exercise in a
// full post-workout log.
type ExerciseResult struct {
	Name     string `bson:"name" json:"name"`
	SetsDone int    `bson:"setsDone,omitempty" json:"setsDone,omitempty"`
	RepsDone string `bson:"repsDone,omitempty" json:"repsDone,omitempty"`
	Weight   string `bson:"weight,omitempty" json:"weight,omitempty"`
	Duration string `bson:"duration,omitempty" json:"duration,omitempty"`
	Notes    string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ComplianceRecord is a dated record of whether a scheduled session was
// actually performed. At most one daily-status record exists per
// (client, program, session, calendar day); resubmission updates in place.
type ComplianceRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID  primitive.ObjectID `bson:"clientId" json:"clientId"`
	TrainerID primitive.ObjectID `bson:"trainerId" json:"trainerId"` // Denormalized from the program
	ProgramID primitive.ObjectID `bson:"programId" json:"programId"`
	SessionID primitive.ObjectID `bson:"sessionId" json:"sessionId"`

	Week      int     `bson:"week" json:"week"` // 1-based program week
	DayOfWeek Weekday `bson:"dayOfWeek" json:"dayOfWeek"`
	// CompletedAt is the calendar date the record covers (UTC midnight),
	// regardless of completion outcome.
	CompletedAt time.Time `bson:"completedAt" json:"completedAt"`

	IsCompleted         bool                `bson:"isCompleted" json:"isCompleted"`
	NonCompletionReason NonCompletionReason `bson:"nonCompletionReason,omitempty" json:"nonCompletionReason,omitempty"`
	NonCompletionNotes  string              `bson:"nonCompletionNotes,omitempty" json:"nonCompletionNotes,omitempty"`

	Source  RecordSource     `bson:"source" json:"source"`
	Results []ExerciseResult `bson:"results,omitempty" json:"results,omitempty"`

	// ProofRef is an opaque object-storage key for an uploaded proof image.
	ProofRef string `bson:"proofRef,omitempty" json:"proofRef,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
