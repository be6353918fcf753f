package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"quiz-export/internal/domain"

	"github.com/go-playground/validator/v10"
)

// ValidationOutcome is the result of gating candidates through QuizValidator.
type ValidationOutcome struct {
	Items   []domain.QuizItem
	Dropped []domain.DroppedCandidate
}

// QuizValidator enforces the quiz item contract on model output.
type QuizValidator struct {
	validate *validator.Validate
}

// NewQuizValidator creates a validator with the choice-index rule registered.
func NewQuizValidator() *QuizValidator {
	v := validator.New()
	v.RegisterStructValidation(correctIndexInRange, domain.Candidate{})
	return &QuizValidator{validate: v}
}

func correctIndexInRange(sl validator.StructLevel) {
	c := sl.Current().Interface().(domain.Candidate)
	if c.CorrectIndex == nil {
		return
	}
	if *c.CorrectIndex < 0 || *c.CorrectIndex >= len(c.Choices) {
		sl.ReportError(c.CorrectIndex, "CorrectIndex", "CorrectIndex", "choice_index", strconv.Itoa(len(c.Choices)))
	}
}

// Validate returns the candidates that satisfy every invariant, in input
// order, and the reason each other candidate was dropped. It never fails.
func (v *QuizValidator) Validate(candidates []domain.Candidate) ValidationOutcome {
	var out ValidationOutcome
	for _, c := range candidates {
		c = tidyCandidate(c)
		if err := v.validate.Struct(c); err != nil {
			out.Dropped = append(out.Dropped, domain.DroppedCandidate{Row: c.Row, Reason: describeViolation(err)})
			continue
		}
		out.Items = append(out.Items, domain.QuizItem{
			Row:          c.Row,
			Question:     c.Question,
			Choices:      c.Choices,
			CorrectIndex: *c.CorrectIndex,
			Explanation:  c.Explanation,
			Language:     c.Language,
		})
	}
	return out
}

// tidyCandidate trims text fields so whitespace-only values count as empty.
func tidyCandidate(c domain.Candidate) domain.Candidate {
	c.Question = strings.TrimSpace(c.Question)
	c.Explanation = strings.TrimSpace(c.Explanation)
	c.Language = CanonicalLanguage(c.Language)
	if c.Choices != nil {
		choices := make([]string, len(c.Choices))
		for i, choice := range c.Choices {
			choices[i] = strings.TrimSpace(choice)
		}
		c.Choices = choices
	}
	return c
}

func describeViolation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "choice_index":
			reasons = append(reasons, fmt.Sprintf("correct_index out of range for %s choices", fe.Param()))
		case "min":
			reasons = append(reasons, fmt.Sprintf("%s needs at least %s entries", fe.Field(), fe.Param()))
		default:
			reasons = append(reasons, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(reasons, "; ")
}
