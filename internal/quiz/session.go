package quiz

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

var (
	ErrInvalidCount    = errors.New("question count must be 5, 10 or 15")
	ErrNotStarted      = errors.New("quiz not started")
	ErrFinished        = errors.New("quiz finished")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrNotAnswered     = errors.New("question not answered yet")
	ErrInvalidOption   = errors.New("invalid option")
)

// Counts lists the quiz lengths a user may choose.
var Counts = []int{5, 10, 15}

// Feedback is the result of answering one question.
type Feedback struct {
	Correct     bool   `json:"correct"`
	Selected    string `json:"selected"`
	Answer      string `json:"answer"`
	AnswerText  string `json:"answer_text"`
	Explanation string `json:"explanation,omitempty"`
}

// Result summarises a quiz.
type Result struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy_pct"`
	Finished bool    `json:"finished"`
}

// Session is the quiz progress of one user. The zero value is a quiz that has
// not been started.
type Session struct {
	Questions []Question `json:"-"`
	Index     int        `json:"index"`
	Correct   int        `json:"correct"`
	Answered  bool       `json:"answered"`
	Last      *Feedback  `json:"last_feedback,omitempty"`
}

// Started reports whether a question set has been drawn.
func (s *Session) Started() bool {
	return len(s.Questions) > 0
}

// Finished reports whether every drawn question has been passed.
func (s *Session) Finished() bool {
	return s.Started() && s.Index >= len(s.Questions)
}

// Start draws n distinct questions from bank in random order and resets
// progress. n must be one of Counts and is clamped to the bank size.
func (s *Session) Start(bank Bank, n int, rng *rand.Rand) error {
	if !slices.Contains(Counts, n) {
		return fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}
	if n > len(bank) {
		n = len(bank)
	}
	perm := rand.Perm(len(bank))
	if rng != nil {
		perm = rng.Perm(len(bank))
	}
	questions := make([]Question, n)
	for i := range questions {
		questions[i] = bank[perm[i]]
	}
	*s = Session{Questions: questions}
	return nil
}

// Current returns the question awaiting an answer or, after Submit, the one
// just answered.
func (s *Session) Current() (Question, error) {
	switch {
	case !s.Started():
		return Question{}, ErrNotStarted
	case s.Finished():
		return Question{}, ErrFinished
	}
	return s.Questions[s.Index], nil
}

// Submit answers the current question with an option letter. Each question
// accepts exactly one answer.
func (s *Session) Submit(letter string) (Feedback, error) {
	q, err := s.Current()
	if err != nil {
		return Feedback{}, err
	}
	if s.Answered {
		return Feedback{}, ErrAlreadyAnswered
	}
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if _, ok := q.Options[letter]; !ok {
		return Feedback{}, fmt.Errorf("%w %q for question %d", ErrInvalidOption, letter, q.ID)
	}

	fb := Feedback{
		Correct:     letter == q.Answer,
		Selected:    letter,
		Answer:      q.Answer,
		AnswerText:  q.AnswerText(),
		Explanation: strings.TrimSpace(q.Explanation),
	}
	if fb.Correct {
		s.Correct++
	}
	s.Answered = true
	s.Last = &fb
	return fb, nil
}

// Next advances past an answered question.
func (s *Session) Next() error {
	if _, err := s.Current(); err != nil {
		return err
	}
	if !s.Answered {
		return ErrNotAnswered
	}
	s.Index++
	s.Answered = false
	s.Last = nil
	return nil
}

// Reset returns to the not-started state.
func (s *Session) Reset() {
	*s = Session{}
}

// Result returns the score so far. Accuracy is a percentage of all drawn
// questions.
func (s *Session) Result() Result {
	r := Result{Correct: s.Correct, Total: len(s.Questions), Finished: s.Finished()}
	if r.Total > 0 {
		r.Accuracy = float64(s.Correct) / float64(r.Total) * 100
	}
	return r
}

// Clone returns a copy that shares only the immutable question set.
func (s *Session) Clone() Session {
	out := *s
	if s.Last != nil {
		fb := *s.Last
		out.Last = &fb
	}
	return out
}
