package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainerrors "shepherd/contexts/giving/campaign-service/domain/errors"
)

type DisplayStatus string

const (
	DisplayStatusActive   DisplayStatus = "active"
	DisplayStatusInactive DisplayStatus = "inactive"
	DisplayStatusEnded    DisplayStatus = "ended"
)

// Campaign is one fundraising effort owned by an organization.
// The raised total is never a field here: it is always aggregated from
// succeeded contributions at read time.
type Campaign struct {
	CampaignID     string
	OrganizationID string
	Name           string
	Description    string
	GoalAmount     *decimal.Decimal
	StartDate      time.Time
	EndDate        *time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Funded reports whether any money has been received. Name and start date
// freeze at that point, and the goal gains a floor.
func Funded(raised decimal.Decimal) bool {
	return raised.IsPositive()
}

// StatusAt derives the display status. An end date in the past always wins
// over the stored active flag; the remediation for an expired campaign is
// extending its end date, not toggling it.
func StatusAt(isActive bool, endDate *time.Time, today time.Time) DisplayStatus {
	if endDate != nil && DateOnly(*endDate).Before(DateOnly(today)) {
		return DisplayStatusEnded
	}
	if isActive {
		return DisplayStatusActive
	}
	return DisplayStatusInactive
}

// DateOnly truncates to a UTC calendar date. Campaign dates carry no
// time-of-day and no offset; every comparison goes through this.
func DateOnly(value time.Time) time.Time {
	year, month, day := value.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

const dateLayout = "2006-01-02"

func ParseDate(raw string) (time.Time, bool) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return DateOnly(parsed), true
}

func FormatDate(value time.Time) string {
	return DateOnly(value).Format(dateLayout)
}

// Field violation codes returned by ValidateCampaignInput.
const (
	CodeRequired        = "required"
	CodeGoalRequired    = "goal_required"
	CodeGoalConflict    = "goal_conflict"
	CodeGoalNotPositive = "goal_not_positive"
	CodeGoalScale       = "goal_scale"
	CodeGoalBelowRaised = "goal_below_raised"
	CodeStartInPast     = "start_in_past"
	CodeEndInPast       = "end_in_past"
	CodeEndBeforeStart  = "end_before_start"
)

// CampaignInput is the proposed field set for a create or update.
// For a funded campaign the caller substitutes the stored name and start
// date before validating; the submitted values are retained nowhere.
type CampaignInput struct {
	Name        string
	Description string
	GoalAmount  *decimal.Decimal
	NoGoal      bool
	StartDate   *time.Time
	EndDate     *time.Time
}

// CampaignRules carries the state the cross-field checks depend on.
type CampaignRules struct {
	Raised       decimal.Decimal
	Locked       bool // raised > 0: name and start date frozen, goal floored
	Today        time.Time
	StartChanged bool // the start date is being set, not merely carried over
	EndChanged   bool // the end date is being set, not merely carried over
}

// ValidateCampaignInput checks every rule independently and returns the
// union of violations keyed by field. An empty result means valid.
func ValidateCampaignInput(input CampaignInput, rules CampaignRules) domainerrors.FieldErrors {
	violations := domainerrors.FieldErrors{}
	today := DateOnly(rules.Today)

	if !rules.Locked && strings.TrimSpace(input.Name) == "" {
		violations["name"] = CodeRequired
	}

	switch {
	case input.NoGoal && input.GoalAmount != nil:
		violations["goal_amount"] = CodeGoalConflict
	case !input.NoGoal && input.GoalAmount == nil:
		violations["goal_amount"] = CodeGoalRequired
	case input.GoalAmount != nil:
		goal := *input.GoalAmount
		if !goal.IsPositive() {
			violations["goal_amount"] = CodeGoalNotPositive
		} else if !goal.Equal(goal.Round(2)) {
			violations["goal_amount"] = CodeGoalScale
		} else if rules.Locked && goal.LessThan(rules.Raised) {
			violations["goal_amount"] = CodeGoalBelowRaised
		}
	}

	if !rules.Locked {
		if input.StartDate == nil {
			violations["start_date"] = CodeRequired
		} else if rules.StartChanged && DateOnly(*input.StartDate).Before(today) {
			// A stored past start carried over unchanged stays editable;
			// only moving the start into the past is rejected.
			violations["start_date"] = CodeStartInPast
		}
	}

	if input.EndDate != nil {
		end := DateOnly(*input.EndDate)
		if rules.EndChanged && end.Before(today) {
			violations["end_date"] = CodeEndInPast
		} else if input.StartDate != nil && end.Before(DateOnly(*input.StartDate)) {
			violations["end_date"] = CodeEndBeforeStart
		}
	}

	return violations
}

// ActivationLog is one explicit activate/deactivate flip by an operator.
type ActivationLog struct {
	LogID          string
	OrganizationID string
	CampaignID     string
	FromActive     bool
	ToActive       bool
	ChangedBy      string
	Reason         string
	CreatedAt      time.Time
}
