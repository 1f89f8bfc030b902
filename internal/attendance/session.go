package attendance

import (
	"errors"
	"time"
)

// State is the position of a marking session for one mentor on one day.
type State string

const (
	StateNotWithinWindow State = "not_within_window"
	StateUnmarked        State = "unmarked"
	StateStaged          State = "staged"
	StateSubmitted       State = "submitted"
)

var (
	ErrConfigMissing    = errors.New("attendance window not configured")
	ErrWindowClosed     = errors.New("today is outside the attendance window")
	ErrAlreadySubmitted = errors.New("attendance already submitted for today")
	ErrNothingStaged    = errors.New("no attendance changes to submit")
)

// Session gates writes to today's entry of a mentor's record. It holds the
// staged toggles as a value; Submit hands back the partial record to persist
// and Committed folds it into the session's copy of the record.
type Session struct {
	record    Record
	window    *Window
	today     time.Time
	pending   Day
	submitted bool
}

// NewSession builds a session for today. A nil window means no window is
// configured and the session can never accept changes. pending seeds
// previously staged toggles.
func NewSession(record Record, window *Window, today time.Time, pending Day) *Session {
	s := &Session{
		record:  record,
		window:  window,
		today:   StartOfDay(today),
		pending: pending.Clone(),
	}
	return s
}

// Today returns the record key the session writes to.
func (s *Session) Today() string {
	return DateKey(s.today)
}

// WithinWindow reports whether today is inside the configured window.
func (s *Session) WithinWindow() bool {
	return s.window != nil && s.window.Contains(s.today)
}

// State derives the current state from the window, the record and the
// staged toggles.
func (s *Session) State() State {
	if !s.WithinWindow() {
		return StateNotWithinWindow
	}
	if s.submitted || s.record.Has(s.Today()) {
		return StateSubmitted
	}
	if len(s.pending) > 0 {
		return StateStaged
	}
	return StateUnmarked
}

// Pending returns a copy of the staged toggles.
func (s *Session) Pending() Day {
	return s.pending.Clone()
}

// Stage records a toggle for a student. Later toggles for the same student
// replace earlier ones.
func (s *Session) Stage(studentID string, present bool) error {
	if err := s.writable(); err != nil {
		return err
	}
	s.pending[studentID] = present
	return nil
}

// Submit validates the session and returns today's key with the staged
// entries to merge. The session is unchanged until Committed is called, so
// a failed write keeps the staged toggles.
func (s *Session) Submit() (string, Day, error) {
	if len(s.pending) == 0 {
		return "", nil, ErrNothingStaged
	}
	if err := s.writable(); err != nil {
		return "", nil, err
	}
	return s.Today(), s.pending.Clone(), nil
}

// Committed marks the session submitted after a successful write and merges
// the staged toggles into the session's record.
func (s *Session) Committed() {
	if len(s.pending) > 0 {
		s.record = Merge(s.record, s.Today(), s.pending)
	}
	s.submitted = true
	s.pending = Day{}
}

// Record returns the record as the session sees it, including a committed
// submit. Callers must not modify it.
func (s *Session) Record() Record {
	return s.record
}

func (s *Session) writable() error {
	if s.window == nil {
		return ErrConfigMissing
	}
	if !s.WithinWindow() {
		return ErrWindowClosed
	}
	if s.submitted || s.record.Has(s.Today()) {
		return ErrAlreadySubmitted
	}
	return nil
}
