package notes

import (
	"errors"
	"time"

	"example.com/notes-api/internal/validator"
)

type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteInput is the body accepted by create and update. Content is optional
// and defaults to the empty string.
type NoteInput struct {
	Title   string `json:"title" validate:"notblank,max=255"`
	Content string `json:"content"`
}

const msgMissingQuery = `search parameter "q" is required`

var validate = validator.New()

// Validate reports the first broken rule as a *ValidationError.
func (in NoteInput) Validate() error {
	err := validate.Validate(in)
	if err == nil {
		return nil
	}
	var verrs validator.Errors
	if errors.As(err, &verrs) {
		return &ValidationError{Message: verrs.Error()}
	}
	return err
}
