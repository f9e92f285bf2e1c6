// Package exam holds the exam session state machine and the scorer.
//
// A Session moves through verifying -> in_progress -> submitted. All state
// is guarded by one mutex; the countdown and snapshot loops are goroutines
// owned by the session and cancelled as soon as it leaves in_progress.
package exam

import (
	"context"
	"crypto/subtle"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Roster registers verified students.
type Roster interface {
	Register(ctx context.Context, classID string, identity model.StudentIdentity) (*model.RosterEntry, error)
}

// ResultRecorder persists submitted results.
type ResultRecorder interface {
	Create(ctx context.Context, res *model.ExamResult) error
}

// SnapshotStore is the durable progress slot of a session.
type SnapshotStore interface {
	Save(ctx context.Context, classID, sessionID string, snap *model.Snapshot) error
	Clear(ctx context.Context, classID, sessionID string) error
}

// Notifier delivers notifications to the student. Notify is called with the
// session lock held and must not block.
type Notifier interface {
	Notify(sessionID string, n Notification)
}

// Observer receives attempt lifecycle events. Like Notify, Observe must not
// block.
type Observer interface {
	Observe(ev model.AttemptEvent)
}

// Deps are the collaborators of a session. Notifier, Observer, Clock and Rand
// are optional.
type Deps struct {
	Roster    Roster
	Results   ResultRecorder
	Snapshots SnapshotStore
	Notifier  Notifier
	Observer  Observer
	Log       zerolog.Logger
	Clock     func() time.Time
	Rand      *rand.Rand
}

// Session is one student's pass through an exam.
type Session struct {
	id   string
	def  model.ExamDefinition
	cfg  config.ExamConfig
	deps Deps
	log  zerolog.Logger

	mu                sync.Mutex
	phase             model.Phase
	pool              []model.Question // whole bank in shuffled order
	questions         []model.Question // pool trimmed to the target count
	index             map[string]int
	currentIndex      int
	answers           map[string]string
	flagged           map[string]struct{}
	timeRemaining     int
	integrityWarnings int
	firedWarnings     map[int]bool
	student           *model.StudentIdentity
	result            *model.ExamResult
	timerFired        bool
	lastActivity      time.Time
	closed            bool

	cancelLoops context.CancelFunc
	loops       sync.WaitGroup
	done        chan struct{}
}

// NewSession prepares a session in the verifying phase with a fresh shuffle
// of bank. It fails without side effects when the bank is empty or the exam
// has expired.
func NewSession(id string, def *model.ExamDefinition, bank []model.Question, cfg config.ExamConfig, deps Deps) (*Session, error) {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if len(bank) == 0 {
		return nil, ErrNoQuestions
	}
	if def.IsExpired(deps.Clock()) {
		return nil, ErrExamExpired
	}

	s := &Session{
		id:            id,
		def:           *def,
		cfg:           cfg,
		deps:          deps,
		log:           deps.Log.With().Str("session_id", id).Str("class_id", def.ID).Logger(),
		phase:         model.PhaseVerifying,
		answers:       make(map[string]string),
		flagged:       make(map[string]struct{}),
		firedWarnings: make(map[int]bool),
		timeRemaining: def.DurationSeconds(),
		lastActivity:  deps.Clock(),
		done:          make(chan struct{}),
	}
	s.pool = Shuffle(bank, deps.Rand)
	s.setOrder(trim(s.pool, def.QuestionCount))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ClassID returns the id of the class being taken.
func (s *Session) ClassID() string { return s.def.ID }

// Done is closed once the session has been submitted.
func (s *Session) Done() <-chan struct{} { return s.done }

// Phase returns the current phase.
func (s *Session) Phase() model.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// LastActivity is the time of the last student interaction.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Result returns the recorded result, or nil before submission.
func (s *Session) Result() *model.ExamResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Verify checks identity and access key, registers the student on the class
// roster and starts the exam. On any failure the session stays in verifying.
func (s *Session) Verify(ctx context.Context, accessKey string, identity model.StudentIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifying(); err != nil {
		return err
	}
	if !identity.Complete() {
		return ErrIdentityRequired
	}
	if subtle.ConstantTimeCompare([]byte(accessKey), []byte(s.def.AccessKey)) != 1 {
		s.log.Info().Str("email", identity.Email).Msg("Access key rejected")
		return ErrInvalidAccessKey
	}

	if _, err := s.deps.Roster.Register(ctx, s.def.ID, identity); err != nil {
		s.log.Error().Err(err).Msg("Roster write failed, exam not started")
		return fmt.Errorf("%w: %w", ErrRosterWrite, err)
	}

	s.student = &identity
	s.timeRemaining = s.def.DurationSeconds()
	s.integrityWarnings = 0
	s.start()

	s.log.Info().Str("email", identity.Email).Int("questions", len(s.questions)).Msg("Exam started")
	return nil
}

// Resume starts the exam from a snapshot without re-running verification or
// touching the roster.
func (s *Session) Resume(ctx context.Context, snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifying(); err != nil {
		return err
	}
	if snap == nil {
		return ErrNoSnapshot
	}

	if len(snap.QuestionOrder) > 0 {
		s.setOrder(trim(restoreOrder(s.pool, snap.QuestionOrder), s.def.QuestionCount))
	}
	for qid, opt := range snap.Answers {
		if _, ok := s.index[qid]; ok {
			s.answers[qid] = opt
		}
	}
	for _, qid := range snap.Flagged {
		if _, ok := s.index[qid]; ok {
			s.flagged[qid] = struct{}{}
		}
	}
	s.currentIndex = clamp(snap.CurrentIndex, 0, len(s.questions)-1)
	s.timeRemaining = clamp(snap.TimeRemainingSeconds, 0, s.def.DurationSeconds())
	s.integrityWarnings = max(snap.IntegrityWarnings, 0)
	if snap.Student != nil {
		id := *snap.Student
		s.student = &id
	}
	s.start()

	s.log.Info().
		Int("answered", len(s.answers)).
		Int("time_remaining", s.timeRemaining).
		Msg("Exam resumed from snapshot")

	// A snapshot can be taken after a forced submission failed.
	if limit := s.cfg.MaxIntegrityWarnings; limit > 0 && s.integrityWarnings >= limit {
		s.log.Warn().Int("warnings", s.integrityWarnings).Msg("Resumed at integrity threshold, forcing submission")
		if _, err := s.submit(context.WithoutCancel(ctx), model.SubmitReasonIntegrity); err != nil {
			s.log.Error().Err(err).Msg("Forced submission on resume failed")
		}
	}
	return nil
}

func (s *Session) requireVerifying() error {
	switch s.phase {
	case model.PhaseSubmitted:
		return ErrSessionSubmitted
	case model.PhaseInProgress:
		return ErrAlreadyStarted
	}
	return nil
}

// start enters in_progress and launches the loops. Caller holds mu.
func (s *Session) start() {
	s.phase = model.PhaseInProgress
	s.lastActivity = s.deps.Clock()

	// Thresholds already behind us must not fire.
	for _, th := range s.cfg.TimeWarnings {
		if th >= s.timeRemaining {
			s.firedWarnings[th] = true
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelLoops = cancel
	s.loops.Add(2)
	go s.every(ctx, s.cfg.TickInterval, s.Tick)
	go s.every(ctx, s.cfg.SnapshotInterval, s.autosave)

	s.notify(Notification{
		Kind:                 NotifyFullscreenRequested,
		Message:              fmt.Sprintf("You have %s to complete this exam.", formatRemaining(s.timeRemaining)),
		TimeRemainingSeconds: s.timeRemaining,
	})
	s.observe(model.AttemptEventStarted)
}

// every calls fn at each interval until ctx is cancelled. A non-positive
// interval disables the loop.
func (s *Session) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer s.loops.Done()
	if interval <= 0 {
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}

func (s *Session) stopLoops() {
	if s.cancelLoops != nil {
		s.cancelLoops()
		s.cancelLoops = nil
	}
}

// Close stops the loops and waits for them to exit. The session keeps its
// state; an in-progress snapshot stays available for resume.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopLoops()
	s.mu.Unlock()

	s.loops.Wait()
}

// Abandon closes a session that will not be finished in this process,
// reporting the attempt as abandoned if it was still running.
func (s *Session) Abandon() {
	s.mu.Lock()
	if s.phase == model.PhaseInProgress && !s.closed {
		s.observe(model.AttemptEventAbandoned)
	}
	s.mu.Unlock()

	s.Close()
}

// SelectAnswer records option as the answer to question qid, replacing any
// previous answer. The current index does not move.
func (s *Session) SelectAnswer(qid, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return err
	}
	i, ok := s.index[qid]
	if !ok {
		return ErrUnknownQuestion
	}
	if !s.questions[i].Options.Contains(option) {
		return ErrUnknownOption
	}

	s.answers[qid] = option
	s.lastActivity = s.deps.Clock()
	return nil
}

// ToggleFlag adds or removes qid from the review set and reports whether it
// is flagged afterwards.
func (s *Session) ToggleFlag(qid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return false, err
	}
	if _, ok := s.index[qid]; !ok {
		return false, ErrUnknownQuestion
	}

	s.lastActivity = s.deps.Clock()
	if _, ok := s.flagged[qid]; ok {
		delete(s.flagged, qid)
		return false, nil
	}
	s.flagged[qid] = struct{}{}
	return true, nil
}

func (s *Session) requireActive() error {
	switch s.phase {
	case model.PhaseSubmitted:
		return ErrSessionSubmitted
	case model.PhaseVerifying:
		return ErrNotInProgress
	}
	if s.timeRemaining <= 0 {
		return ErrTimeUp
	}
	return nil
}

// GoTo moves to question i. Out-of-range targets, and any navigation outside
// in_progress, leave the index unchanged. It returns the resulting index.
func (s *Session) GoTo(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goTo(i)
}

// Next moves one question forward, staying put at the last question.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goTo(s.currentIndex + 1)
}

// Previous moves one question back, staying put at the first question.
func (s *Session) Previous() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goTo(s.currentIndex - 1)
}

func (s *Session) goTo(i int) int {
	if s.phase == model.PhaseInProgress && i >= 0 && i < len(s.questions) {
		s.currentIndex = i
		s.lastActivity = s.deps.Clock()
	}
	return s.currentIndex
}

// Tick advances the countdown by one second, emitting each configured time
// warning once and submitting when the time reaches zero.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseInProgress || s.closed {
		return
	}

	if s.timeRemaining > 0 {
		s.timeRemaining--
		for _, th := range s.cfg.TimeWarnings {
			if s.timeRemaining == th && !s.firedWarnings[th] {
				s.firedWarnings[th] = true
				s.notify(Notification{
					Kind:                 NotifyTimeWarning,
					Message:              fmt.Sprintf("%s remaining.", formatRemaining(th)),
					TimeRemainingSeconds: th,
				})
			}
		}
	}

	if s.timeRemaining == 0 && !s.timerFired {
		s.timerFired = true
		if _, err := s.submit(context.WithoutCancel(ctx), model.SubmitReasonTimer); err != nil {
			s.log.Error().Err(err).Msg("Automatic submission on timeout failed")
		}
	}
}

// ReportFocusLoss counts a loss of page focus or visibility. Reaching the
// configured maximum forces a submission. Reports outside in_progress are
// ignored. It returns the warning count.
func (s *Session) ReportFocusLoss(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseInProgress {
		return s.integrityWarnings, nil
	}

	limit := s.cfg.MaxIntegrityWarnings
	if limit <= 0 || s.integrityWarnings < limit {
		s.integrityWarnings++
		s.lastActivity = s.deps.Clock()
		s.observe(model.AttemptEventFocusLost)

		n := Notification{
			Kind:              NotifyIntegrityWarning,
			IntegrityWarnings: s.integrityWarnings,
		}
		if limit > 0 {
			n.RemainingTolerance = limit - s.integrityWarnings
			n.Message = fmt.Sprintf("Leaving the exam window is not allowed. Warning %d of %d.", s.integrityWarnings, limit)
		} else {
			n.Message = "Leaving the exam window is not allowed."
		}
		s.notify(n)
	}

	if limit > 0 && s.integrityWarnings >= limit {
		s.log.Warn().Int("warnings", s.integrityWarnings).Msg("Integrity threshold reached, forcing submission")
		if _, err := s.submit(ctx, model.SubmitReasonIntegrity); err != nil {
			return s.integrityWarnings, err
		}
	}
	return s.integrityWarnings, nil
}

// Submit finalizes the session on the student's request. Submitting an
// already submitted session returns the recorded result.
func (s *Session) Submit(ctx context.Context) (*model.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case model.PhaseSubmitted:
		return s.result, nil
	case model.PhaseVerifying:
		return nil, ErrNotInProgress
	}
	return s.submit(ctx, model.SubmitReasonManual)
}

// submit is the single path to the submitted phase. Caller holds mu and has
// checked the phase is in_progress. If the result cannot be recorded the
// session stays in_progress.
func (s *Session) submit(ctx context.Context, reason model.SubmitReason) (*model.ExamResult, error) {
	now := s.deps.Clock()
	sc := Score(s.questions, s.answers)
	grade, passed := Grade(sc.Percentage, s.cfg.PassPercentage)

	res := &model.ExamResult{
		ID:                  fmt.Sprintf("result_%d_%s", now.UnixMilli(), uuid.NewString()[:8]),
		ClassID:             s.def.ID,
		ClassName:           s.def.Name,
		SessionID:           s.id,
		Score:               sc.Score,
		TotalQuestions:      sc.Total,
		Percentage:          sc.Percentage,
		Passed:              passed,
		Grade:               grade,
		DurationMinutes:     s.def.DurationMinutes,
		DurationUsedSeconds: s.def.DurationSeconds() - s.timeRemaining,
		IntegrityWarnings:   s.integrityWarnings,
		SubmitReason:        reason,
		SubmittedAt:         now,
	}
	if s.student != nil {
		res.Student = *s.student
	}

	if err := s.deps.Results.Create(ctx, res); err != nil {
		s.log.Error().Err(err).Str("reason", string(reason)).Msg("Result write failed, session stays in progress")
		s.notify(Notification{
			Kind:    NotifySubmitFailed,
			Message: "Your exam could not be submitted. Please try again.",
			Reason:  reason,
		})
		return nil, fmt.Errorf("%w: %w", ErrResultWrite, err)
	}

	s.phase = model.PhaseSubmitted
	s.result = res
	s.stopLoops()

	if err := s.deps.Snapshots.Clear(ctx, s.def.ID, s.id); err != nil {
		s.log.Warn().Err(err).Msg("Snapshot clear failed")
	}

	s.notify(Notification{
		Kind:     NotifySubmitted,
		Message:  "Your answers have been submitted.",
		ResultID: res.ID,
		Reason:   reason,
	})
	s.observe(model.AttemptEventCompleted)
	close(s.done)

	s.log.Info().
		Str("result_id", res.ID).
		Str("reason", string(reason)).
		Int("score", res.Score).
		Int("total", res.TotalQuestions).
		Msg("Exam submitted")
	return res, nil
}

func (s *Session) autosave(ctx context.Context) {
	if err := s.SaveSnapshot(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Snapshot save failed")
	}
}

// SaveSnapshot persists the current progress. It does nothing outside
// in_progress.
func (s *Session) SaveSnapshot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseInProgress {
		return nil
	}
	return s.deps.Snapshots.Save(ctx, s.def.ID, s.id, s.snapshot())
}

// Snapshot returns the current progress as it would be persisted.
func (s *Session) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() *model.Snapshot {
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	order := make([]string, len(s.questions))
	for i, q := range s.questions {
		order[i] = q.ID
	}
	flagged := make([]string, 0, len(s.flagged))
	for _, q := range s.questions {
		if _, ok := s.flagged[q.ID]; ok {
			flagged = append(flagged, q.ID)
		}
	}

	snap := &model.Snapshot{
		Answers:              answers,
		CurrentIndex:         s.currentIndex,
		TimeRemainingSeconds: s.timeRemaining,
		QuestionOrder:        order,
		Flagged:              flagged,
		IntegrityWarnings:    s.integrityWarnings,
		SavedAt:              s.deps.Clock(),
	}
	if s.student != nil {
		id := *s.student
		snap.Student = &id
	}
	return snap
}

// State returns the student-facing view of the session.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := model.SessionState{
		SessionID:            s.id,
		ClassID:              s.def.ID,
		ClassName:            s.def.Name,
		Phase:                s.phase,
		CurrentIndex:         s.currentIndex,
		TotalQuestions:       len(s.questions),
		AnsweredCount:        len(s.answers),
		TimeRemainingSeconds: s.timeRemaining,
		IntegrityWarnings:    s.integrityWarnings,
		MaxIntegrityWarnings: s.cfg.MaxIntegrityWarnings,
	}
	if s.result != nil {
		st.ResultID = s.result.ID
	}
	if s.phase == model.PhaseVerifying {
		return st
	}

	st.Navigator = make([]model.NavigatorEntry, len(s.questions))
	for i, q := range s.questions {
		_, answered := s.answers[q.ID]
		_, flagged := s.flagged[q.ID]
		st.Navigator[i] = model.NavigatorEntry{Index: i, QuestionID: q.ID, Answered: answered, Flagged: flagged}
	}

	if s.phase == model.PhaseInProgress {
		q := s.questions[s.currentIndex]
		st.CurrentQuestion = &model.QuestionForStudent{ID: q.ID, Text: q.Text, Options: q.Options.Texts()}
		st.SelectedAnswer = s.answers[q.ID]
	}
	return st
}

func (s *Session) setOrder(qs []model.Question) {
	s.questions = qs
	s.index = make(map[string]int, len(qs))
	for i, q := range qs {
		s.index[q.ID] = i
	}
}

func (s *Session) notify(n Notification) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Notify(s.id, n)
	}
}

func (s *Session) observe(kind model.AttemptEventKind) {
	if s.deps.Observer == nil {
		return
	}
	ev := model.AttemptEvent{
		Kind:        kind,
		SessionID:   s.id,
		ClassID:     s.def.ID,
		TabSwitches: s.integrityWarnings,
		At:          s.deps.Clock(),
	}
	if s.student != nil {
		ev.StudentEmail = s.student.Email
	}
	s.deps.Observer.Observe(ev)
}

// restoreOrder puts qs in the order of ids. Ids no longer in the bank are
// dropped; questions missing from ids keep their relative order at the end.
func restoreOrder(qs []model.Question, ids []string) []model.Question {
	byID := make(map[string]model.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}

	out := make([]model.Question, 0, len(qs))
	used := make(map[string]bool, len(qs))
	for _, id := range ids {
		if q, ok := byID[id]; ok && !used[id] {
			out = append(out, q)
			used[id] = true
		}
	}
	for _, q := range qs {
		if !used[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

func trim(qs []model.Question, limit int) []model.Question {
	if limit > 0 && limit < len(qs) {
		return qs[:limit]
	}
	return qs
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func formatRemaining(seconds int) string {
	switch {
	case seconds == 60:
		return "1 minute"
	case seconds > 60 && seconds%60 == 0:
		return fmt.Sprintf("%d minutes", seconds/60)
	case seconds == 1:
		return "1 second"
	default:
		return fmt.Sprintf("%d seconds", seconds)
	}
}
