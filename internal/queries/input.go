package queries

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
)

const (
	clientMinLen     = 2
	clientMaxLen     = 100
	investmentMaxLen = 200
	commentsMaxLen   = 500

	// VoltageOther is the form sentinel for "type-implied voltage"; it is stored as null.
	VoltageOther = "other"
)

// QueryInput carries the editable fields of a query.
// Name and Market are honored for admins only; other users always submit as themselves.
type QueryInput struct {
	Name          string
	Market        string
	Client        string
	Investment    *string
	Packaging     *string
	PreferredDate string
	Comments      *string
	Cables        []CableInput
}

type CableInput struct {
	CableType       string
	Voltage         *string
	Length          int
	Packaging       string
	SpecificLengths []int
	Comments        *string
}

// validate checks the input against local "today" and returns the parsed preferred date.
func (in QueryInput) validate(today time.Time) (time.Time, error) {
	errs := pkgerrors.FieldErrors{}

	client := strings.TrimSpace(in.Client)
	if n := utf8.RuneCountInString(client); n < clientMinLen || n > clientMaxLen {
		errs.Add("client", fmt.Sprintf("must be between %d and %d characters", clientMinLen, clientMaxLen))
	}
	if in.Investment != nil && utf8.RuneCountInString(*in.Investment) > investmentMaxLen {
		errs.Add("investment", fmt.Sprintf("must be at most %d characters", investmentMaxLen))
	}
	if in.Comments != nil && utf8.RuneCountInString(*in.Comments) > commentsMaxLen {
		errs.Add("comments", fmt.Sprintf("must be at most %d characters", commentsMaxLen))
	}
	if in.Packaging != nil && *in.Packaging != "" {
		if _, err := enums.ParsePackaging(*in.Packaging); err != nil {
			errs.Add("packaging", "unknown packaging")
		}
	}

	var preferred time.Time
	if strings.TrimSpace(in.PreferredDate) == "" {
		errs.Add("preferred_date", "is required")
	} else if d, err := timeutil.ParseDate(strings.TrimSpace(in.PreferredDate)); err != nil {
		errs.Add("preferred_date", "must be YYYY-MM-DD")
	} else if d.Before(today) {
		errs.Add("preferred_date", "cannot be in the past")
	} else {
		preferred = d
	}

	if len(in.Cables) == 0 {
		errs.Add("cables", "at least one cable is required")
	}
	for i, c := range in.Cables {
		prefix := fmt.Sprintf("cables[%d].", i)
		if strings.TrimSpace(c.CableType) == "" {
			errs.Add(prefix+"cable_type", "is required")
		}
		if c.Length < 1 {
			errs.Add(prefix+"length", "must be at least 1")
		}
		if _, err := enums.ParsePackaging(c.Packaging); err != nil {
			errs.Add(prefix+"packaging", "unknown packaging")
		}
		for _, l := range c.SpecificLengths {
			if l < 1 {
				errs.Add(prefix+"specific_lengths", "lengths must be positive")
				break
			}
		}
		if c.Comments != nil && utf8.RuneCountInString(*c.Comments) > commentsMaxLen {
			errs.Add(prefix+"comments", fmt.Sprintf("must be at most %d characters", commentsMaxLen))
		}
	}

	if err := errs.Err("invalid query"); err != nil {
		return time.Time{}, err
	}
	return preferred, nil
}

// buildCables converts validated input into rows, normalizing the voltage sentinel and
// dropping length breakdowns for full reels.
func buildCables(in []CableInput) []models.Cable {
	out := make([]models.Cable, 0, len(in))
	for i, c := range in {
		cable := models.Cable{
			CableType: strings.TrimSpace(c.CableType),
			Voltage:   normalizeVoltage(c.Voltage),
			Length:    c.Length,
			Packaging: c.Packaging,
			Comments:  trimmedOrNil(c.Comments),
			Position:  i,
		}
		if enums.Packaging(c.Packaging) == enums.PackagingExactCuts {
			cable.SpecificLengths = EncodeSpecificLengths(c.SpecificLengths)
		}
		out = append(out, cable)
	}
	return out
}

func normalizeVoltage(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" || trimmed == VoltageOther {
		return nil
	}
	return &trimmed
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func copyCables(src []models.Cable) []models.Cable {
	out := make([]models.Cable, 0, len(src))
	for _, c := range src {
		out = append(out, models.Cable{
			CableType:       c.CableType,
			Voltage:         c.Voltage,
			Length:          c.Length,
			Packaging:       c.Packaging,
			SpecificLengths: c.SpecificLengths,
			Comments:        c.Comments,
			Position:        c.Position,
		})
	}
	return out
}
