package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Correctness is the graded status of a single answer.
type Correctness string

const (
	Correct    Correctness = "correct"
	Incorrect  Correctness = "incorrect"
	Incomplete Correctness = "incomplete"
	// Unknown is used internally by custom-response slots before their
	// results are normalized; it never leaves the engine.
	Unknown Correctness = "unknown"
)

// HintMode controls when a hint attached to an answer is shown.
type HintMode string

const (
	HintAlways    HintMode = "always"
	HintOnRequest HintMode = "on_request"
)

// QueueState marks an answer as waiting for an external grade. The key is
// the correlation token the eventual score message must carry.
type QueueState struct {
	Key         string    `json:"key"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// CorrectMapEntry is the grading record for one answer id.
type CorrectMapEntry struct {
	Correctness    Correctness `json:"correctness"`
	PointsEarned   float64     `json:"points_earned"`
	PointsPossible float64     `json:"points_possible"`
	Message        string      `json:"message,omitempty"`
	Hint           string      `json:"hint,omitempty"`
	HintMode       HintMode    `json:"hint_mode,omitempty"`
	Queue          *QueueState `json:"queue_state,omitempty"`
}

// IsCorrect reports whether the entry was graded fully correct.
func (e CorrectMapEntry) IsCorrect() bool { return e.Correctness == Correct }

// IsQueued reports whether the entry is waiting on an external grade.
func (e CorrectMapEntry) IsQueued() bool { return e.Queue != nil }

// CorrectMap is the per-answer-id grading result for one evaluation pass.
// Every response checker writes into one; the caller merges it onto the
// previous map and persists the result as the attempt state.
type CorrectMap struct {
	entries map[string]CorrectMapEntry
}

func NewCorrectMap() *CorrectMap {
	return &CorrectMap{entries: make(map[string]CorrectMapEntry)}
}

// NewSingleCorrectMap builds a map with one entry, the common case for
// single-input responses.
func NewSingleCorrectMap(answerID string, entry CorrectMapEntry) *CorrectMap {
	cm := NewCorrectMap()
	cm.Set(answerID, entry)
	return cm
}

func (cm *CorrectMap) Set(answerID string, entry CorrectMapEntry) {
	if cm.entries == nil {
		cm.entries = make(map[string]CorrectMapEntry)
	}
	cm.entries[answerID] = entry
}

func (cm *CorrectMap) Get(answerID string) (CorrectMapEntry, bool) {
	e, ok := cm.entries[answerID]
	return e, ok
}

// Len returns the number of graded answer ids.
func (cm *CorrectMap) Len() int { return len(cm.entries) }

// AnswerIDs returns the graded answer ids in sorted order.
func (cm *CorrectMap) AnswerIDs() []string {
	ids := make([]string, 0, len(cm.entries))
	for id := range cm.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FinalCorrectness returns the settled correctness for an answer. Reading a
// final grade while a queue state is outstanding is a logic error and
// returns ErrPendingGrade.
func (cm *CorrectMap) FinalCorrectness(answerID string) (Correctness, error) {
	e, ok := cm.entries[answerID]
	if !ok {
		return "", ErrAnswerNotFound
	}
	if e.Queue != nil {
		return "", ErrPendingGrade
	}
	return e.Correctness, nil
}

// SetHint attaches a hint to an existing entry.
func (cm *CorrectMap) SetHint(answerID, hint string, mode HintMode) {
	e := cm.entries[answerID]
	e.Hint = hint
	e.HintMode = mode
	cm.Set(answerID, e)
}

// MatchesQueueKey reports whether the answer is queued under exactly the
// given correlation key. A missing entry, a settled entry, or a different
// key all report false.
func (cm *CorrectMap) MatchesQueueKey(answerID, key string) bool {
	e, ok := cm.entries[answerID]
	if !ok || e.Queue == nil {
		return false
	}
	return e.Queue.Key == key
}

// Update overlays the entries of other onto cm, answer id by answer id.
// Entries only present in cm are kept.
func (cm *CorrectMap) Update(other *CorrectMap) {
	if other == nil {
		return
	}
	for id, e := range other.entries {
		cm.Set(id, e)
	}
}

// Clone returns a deep copy.
func (cm *CorrectMap) Clone() *CorrectMap {
	out := NewCorrectMap()
	for id, e := range cm.entries {
		if e.Queue != nil {
			q := *e.Queue
			e.Queue = &q
		}
		out.Set(id, e)
	}
	return out
}

// TotalPoints sums earned and possible points over all settled entries.
func (cm *CorrectMap) TotalPoints() (earned, possible float64) {
	for _, e := range cm.entries {
		earned += e.PointsEarned
		possible += e.PointsPossible
	}
	return earned, possible
}

func (cm *CorrectMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(cm.entries)
}

func (cm *CorrectMap) UnmarshalJSON(data []byte) error {
	cm.entries = make(map[string]CorrectMapEntry)
	return json.Unmarshal(data, &cm.entries)
}
