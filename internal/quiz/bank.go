// Package quiz holds the climate question bank and per-session quiz progress.
package quiz

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultBankYAML []byte

// ErrInvalidBank is returned when a question bank fails validation.
var ErrInvalidBank = errors.New("invalid question bank")

// Question is one multiple-choice item. Answer and Explanation are withheld
// from JSON so the question can be shown before it is answered.
type Question struct {
	ID          int               `yaml:"id" json:"id"`
	Text        string            `yaml:"question" json:"question"`
	Options     map[string]string `yaml:"options" json:"options"`
	Answer      string            `yaml:"answer" json:"-"`
	Explanation string            `yaml:"explanation" json:"-"`
}

// Keys returns the option letters in order.
func (q Question) Keys() []string {
	keys := make([]string, 0, len(q.Options))
	for k := range q.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AnswerText renders the correct option as "B. 2015".
func (q Question) AnswerText() string {
	return fmt.Sprintf("%s. %s", q.Answer, q.Options[q.Answer])
}

// Bank is an ordered set of questions.
type Bank []Question

// ParseBank decodes and validates a YAML question list.
func ParseBank(data []byte) (Bank, error) {
	var bank Bank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	return bank, nil
}

// Validate checks ids are unique, each question has at least two options and
// every answer is one of its question's option keys.
func (b Bank) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidBank)
	}
	seen := make(map[int]bool, len(b))
	for _, q := range b {
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalidBank, q.ID)
		}
		seen[q.ID] = true
		if q.Text == "" {
			return fmt.Errorf("%w: question %d has no text", ErrInvalidBank, q.ID)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d has %d options", ErrInvalidBank, q.ID, len(q.Options))
		}
		if _, ok := q.Options[q.Answer]; !ok {
			return fmt.Errorf("%w: question %d answer %q is not an option", ErrInvalidBank, q.ID, q.Answer)
		}
	}
	return nil
}

// DefaultBank returns the embedded question bank.
func DefaultBank() Bank {
	bank, err := ParseBank(defaultBankYAML)
	if err != nil {
		panic(err)
	}
	return bank
}
