package feed

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Subscription is the caller-supplied configuration for one data
// feed. Mapped is the opt-in switch for corporate-action mapping:
// when false the resolver is never consulted and the raw ticker is
// used verbatim for every date. The flag is checked once at reader
// construction, never per record.
type Subscription struct {
	Market string    `json:"market" validate:"required,lowercase,alphanum"`
	Ticker string    `json:"ticker" validate:"required,min=1,max=10"`
	Kind   string    `json:"kind" validate:"required"`
	Mapped bool      `json:"mapped"`
	Start  time.Time `json:"start" validate:"required"`
	End    time.Time `json:"end" validate:"required"`
}

// Validate checks the subscription's structural constraints.
func (s Subscription) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid subscription: %w", err)
	}
	if s.End.Before(s.Start) {
		return fmt.Errorf("invalid subscription: end %s before start %s",
			s.End.Format("2006-01-02"), s.Start.Format("2006-01-02"))
	}
	return nil
}
