package game

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

var (
	ErrCategoryHidden      = errors.New("final category not revealed")
	ErrWagersOpen          = errors.New("wager collection still open")
	ErrQuestionShown       = errors.New("final question already shown")
	ErrQuestionHidden      = errors.New("final question not shown")
	ErrWagerOutOfRange     = errors.New("wager out of range")
	ErrDuplicateSubmission = errors.New("already submitted")
	ErrAnswersOpen         = errors.New("answer collection still open")
	ErrFinalClosed         = errors.New("final round already resolved")
)

// FinalQuestion is the host-authored final-round content.
type FinalQuestion struct {
	Category string `json:"category"`
	Content  Media  `json:"content"`
	Answer   string `json:"answer"`
}

// FinalResult is one row of the final leaderboard.
type FinalResult struct {
	PlayerID uuid.UUID `json:"player_id"`
	Name     string    `json:"name"`
	Wager    int       `json:"wager"`
	Answer   string    `json:"answer"`
	Correct  bool      `json:"correct"`
	Score    int       `json:"score"`
}

// FinalRound drives the five-stage end-of-game sub-protocol:
// category hidden -> wager collection -> question reveal -> answer
// collection -> results. Submissions are at-most-once per player, and
// both completion predicates are evaluated against the currently
// connected player set handed in by the caller, so a disconnect can
// never deadlock a collection stage.
type FinalRound struct {
	Question      FinalQuestion
	CategoryShown bool
	QuestionShown bool

	wagers     map[uuid.UUID]int
	wagerOrder []uuid.UUID
	answers    map[uuid.UUID]string

	results  []FinalResult
	resolved bool
}

// NewFinalRound starts the sub-protocol at the category-hidden stage.
// Question content arrives later, with the show-question action.
func NewFinalRound() *FinalRound {
	return &FinalRound{
		wagers:  make(map[uuid.UUID]int),
		answers: make(map[uuid.UUID]string),
	}
}

// RevealCategory flips the category visibility flag and opens wager
// collection.
func (f *FinalRound) RevealCategory(category string) error {
	if f.resolved {
		return ErrFinalClosed
	}
	f.Question.Category = category
	f.CategoryShown = true
	return nil
}

// SubmitWager records one player's wager. currentScore is the player's
// ledger score at submission time; the wager must lie in
// [0, max(currentScore, 0)].
func (f *FinalRound) SubmitWager(playerID uuid.UUID, wager, currentScore int) error {
	if !f.CategoryShown {
		return ErrCategoryHidden
	}
	if f.QuestionShown {
		return ErrQuestionShown
	}
	if _, dup := f.wagers[playerID]; dup {
		return ErrDuplicateSubmission
	}
	maxWager := currentScore
	if maxWager < 0 {
		maxWager = 0
	}
	if wager < 0 || wager > maxWager {
		return ErrWagerOutOfRange
	}
	f.wagers[playerID] = wager
	f.wagerOrder = append(f.wagerOrder, playerID)
	return nil
}

// WagersComplete reports whether every currently connected player has a
// recorded wager. The denominator is the live connection set, not a
// snapshot: a pending player disconnecting can flip this to true.
func (f *FinalRound) WagersComplete(connected []uuid.UUID) bool {
	for _, id := range connected {
		if _, ok := f.wagers[id]; !ok {
			return false
		}
	}
	return true
}

// Wagers returns a copy of the wager map.
func (f *FinalRound) Wagers() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(f.wagers))
	for id, w := range f.wagers {
		out[id] = w
	}
	return out
}

// ShowQuestion attaches the host-authored content and starts answer
// collection. Callers gate this on WagersComplete.
func (f *FinalRound) ShowQuestion(q FinalQuestion) error {
	if f.resolved {
		return ErrFinalClosed
	}
	if !f.CategoryShown {
		return ErrCategoryHidden
	}
	if f.QuestionShown {
		return ErrQuestionShown
	}
	if q.Category == "" {
		q.Category = f.Question.Category
	}
	f.Question = q
	f.QuestionShown = true
	return nil
}

// SubmitAnswer records one player's answer, at most once. The empty
// string is a valid answer.
func (f *FinalRound) SubmitAnswer(playerID uuid.UUID, answer string) error {
	if !f.QuestionShown {
		return ErrQuestionHidden
	}
	if f.resolved {
		return ErrFinalClosed
	}
	if _, dup := f.answers[playerID]; dup {
		return ErrDuplicateSubmission
	}
	f.answers[playerID] = answer
	return nil
}

// AnswersComplete mirrors WagersComplete for the answer stage.
func (f *FinalRound) AnswersComplete(connected []uuid.UUID) bool {
	for _, id := range connected {
		if _, ok := f.answers[id]; !ok {
			return false
		}
	}
	return true
}

// Resolve scores every player holding both a wager and an answer:
// correct adds the wager, incorrect subtracts it. Verdicts come from
// the host; players missing from the map are judged incorrect. Results
// are sorted by resulting score descending, ties keeping wager
// submission order. Terminal: the round accepts no further mutation.
func (f *FinalRound) Resolve(verdicts map[uuid.UUID]bool, names map[uuid.UUID]string, ledger *Ledger) ([]FinalResult, error) {
	if f.resolved {
		return nil, ErrFinalClosed
	}
	results := make([]FinalResult, 0, len(f.wagerOrder))
	for _, id := range f.wagerOrder {
		answer, answered := f.answers[id]
		if !answered {
			continue
		}
		wager := f.wagers[id]
		delta := wager
		correct := verdicts[id]
		if !correct {
			delta = -wager
		}
		snapshot, err := ledger.ApplyDelta(id, delta)
		if err != nil {
			return nil, err
		}
		results = append(results, FinalResult{
			PlayerID: id,
			Name:     names[id],
			Wager:    wager,
			Answer:   answer,
			Correct:  correct,
			Score:    snapshot[id],
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	f.results = results
	f.resolved = true
	return results, nil
}

// Results returns the leaderboard assembled by Resolve, or nil before
// resolution.
func (f *FinalRound) Results() []FinalResult {
	return f.results
}

// Resolved reports whether the round reached its terminal stage.
func (f *FinalRound) Resolved() bool {
	return f.resolved
}
