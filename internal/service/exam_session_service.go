package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/exam"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var (
	ErrClassNotFound   = errors.New("class not found")
	ErrSessionNotFound = errors.New("session not found")
)

// submittedRetention is how long a finished session stays attached after
// submission so clients can still read its final state.
const submittedRetention = 5 * time.Minute

// ResultMailer queues the result e-mail of a submitted session.
type ResultMailer interface {
	Enqueue(ctx context.Context, resultID string) error
}

// SessionHooks are the optional outward channels of every session.
type SessionHooks struct {
	Notifier exam.Notifier
	Observer exam.Observer
	Mailer   ResultMailer
}

// OpenResult is returned when a student opens a class exam.
type OpenResult struct {
	SessionID string             `json:"session_id"`
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	Exam      model.ExamSummary  `json:"exam"`
	State     model.SessionState `json:"state"`
}

type liveSession struct {
	session *exam.Session
	stop    chan struct{}
}

// ExamSessionService owns the live exam sessions of this process.
type ExamSessionService struct {
	classRepo    *repository.ClassRepository
	questionRepo *repository.QuestionRepository
	studentRepo  *repository.StudentRepository
	resultRepo   *repository.ResultRepository
	snapshotRepo *repository.SnapshotRepository
	auth         *AuthService
	hooks        SessionHooks
	cfg          config.ExamConfig
	log          zerolog.Logger
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*liveSession
	cron     *cron.Cron
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	classRepo *repository.ClassRepository,
	questionRepo *repository.QuestionRepository,
	studentRepo *repository.StudentRepository,
	resultRepo *repository.ResultRepository,
	snapshotRepo *repository.SnapshotRepository,
	auth *AuthService,
	hooks SessionHooks,
	cfg config.ExamConfig,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		classRepo:    classRepo,
		questionRepo: questionRepo,
		studentRepo:  studentRepo,
		resultRepo:   resultRepo,
		snapshotRepo: snapshotRepo,
		auth:         auth,
		hooks:        hooks,
		cfg:          cfg,
		log:          log.With().Str("component", "exam_session_service").Logger(),
		now:          time.Now,
		sessions:     make(map[string]*liveSession),
	}
}

// Summary returns the public description of a class exam.
func (s *ExamSessionService) Summary(ctx context.Context, classID string) (*model.ExamSummary, error) {
	def, err := s.getClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	sum := summarize(def)
	return &sum, nil
}

// Open attaches a student to an exam. A token for a session that is still
// live reattaches to it; a token whose session has a stored snapshot yields
// a fresh session under the same id with resume offered; otherwise a new
// session is created in the verifying phase.
func (s *ExamSessionService) Open(ctx context.Context, classID string, previous *SessionClaims) (*OpenResult, error) {
	def, err := s.getClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	if previous != nil && previous.ClassID == classID {
		if sess, err := s.Get(previous.SessionID); err == nil && sess.Phase() != model.PhaseSubmitted {
			return s.opened(def, sess, false)
		}

		snap, err := s.snapshotRepo.Load(ctx, classID, previous.SessionID)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", previous.SessionID).Msg("Snapshot lookup failed, starting fresh")
		}
		if snap != nil {
			sess, err := s.create(ctx, def, previous.SessionID)
			if err != nil {
				return nil, err
			}
			return s.opened(def, sess, true)
		}
	}

	sess, err := s.create(ctx, def, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return s.opened(def, sess, false)
}

// Verify checks the access key and identity and starts the exam. A snapshot
// left by an earlier run of the same session is discarded.
func (s *ExamSessionService) Verify(ctx context.Context, sessionID, accessKey string, identity model.StudentIdentity) (*exam.Session, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Verify(ctx, accessKey, identity); err != nil {
		return nil, err
	}
	if err := s.snapshotRepo.Clear(ctx, sess.ClassID(), sess.ID()); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID()).Msg("Failed to discard stale snapshot")
	}
	return sess, nil
}

// Resume restarts a session from its stored snapshot.
func (s *ExamSessionService) Resume(ctx context.Context, sessionID string) (*exam.Session, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshotRepo.Load(ctx, sess.ClassID(), sess.ID())
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if err := sess.Resume(ctx, snap); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the live session with id.
func (s *ExamSessionService) Get(id string) (*exam.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return live.session, nil
}

// Count returns the number of live sessions.
func (s *ExamSessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict drops a session from memory, reporting it abandoned if it was still
// running. Its snapshot, if any, stays available for resume.
func (s *ExamSessionService) Evict(id string) {
	s.evict(id, nil)
}

// evict removes id when it still maps to want (any entry when want is nil),
// so a session re-created under the same id is left alone.
func (s *ExamSessionService) evict(id string, want *liveSession) bool {
	s.mu.Lock()
	live, ok := s.sessions[id]
	if ok && want != nil && live != want {
		ok = false
	}
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if ok {
		close(live.stop)
		live.session.Abandon()
	}
	return ok
}

// Sweep drops sessions that no longer need to be held in memory: submitted
// sessions after a short retention, sessions never verified and sessions
// whose countdown has run out, once idle for the configured timeout.
func (s *ExamSessionService) Sweep() int {
	now := s.now()

	s.mu.Lock()
	stale := make(map[string]*liveSession)
	for id, live := range s.sessions {
		if s.expired(live.session, now) {
			stale[id] = live
		}
	}
	s.mu.Unlock()

	evicted := 0
	for id, live := range stale {
		if s.evict(id, live) {
			evicted++
		}
	}
	if evicted > 0 {
		s.log.Info().Int("evicted", evicted).Int("live", s.Count()).Msg("Session sweep")
	}
	return evicted
}

func (s *ExamSessionService) expired(sess *exam.Session, now time.Time) bool {
	if res := sess.Result(); res != nil {
		return now.Sub(res.SubmittedAt) > submittedRetention
	}
	if now.Sub(sess.LastActivity()) <= s.cfg.IdleSessionTimeout {
		return false
	}
	st := sess.State()
	return st.Phase == model.PhaseVerifying || st.TimeRemainingSeconds == 0
}

// Start schedules the janitor.
func (s *ExamSessionService) Start() error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc("@every 1m", func() { s.Sweep() }); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	c.Start()
	s.cron = c
	s.log.Info().Dur("idle_timeout", s.cfg.IdleSessionTimeout).Msg("Session janitor started")
	return nil
}

// Shutdown stops the janitor, saves a final snapshot of every running session
// and stops their loops. Sessions are not reported abandoned: they can be
// resumed after a restart.
func (s *ExamSessionService) Shutdown(ctx context.Context) {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*liveSession)
	s.mu.Unlock()

	for _, live := range sessions {
		if err := live.session.SaveSnapshot(ctx); err != nil {
			s.log.Warn().Err(err).Str("session_id", live.session.ID()).Msg("Final snapshot failed")
		}
		close(live.stop)
		live.session.Close()
	}
	s.log.Info().Int("sessions", len(sessions)).Msg("Exam sessions closed")
}

func (s *ExamSessionService) getClass(ctx context.Context, classID string) (*model.ExamDefinition, error) {
	def, err := s.classRepo.GetByID(ctx, classID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	return def, nil
}

func (s *ExamSessionService) create(ctx context.Context, def *model.ExamDefinition, id string) (*exam.Session, error) {
	questions, err := s.questionRepo.ListByClass(ctx, def.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	sess, err := exam.NewSession(id, def, questions, s.cfg, exam.Deps{
		Roster:    s.studentRepo,
		Results:   s.resultRepo,
		Snapshots: s.snapshotRepo,
		Notifier:  s.hooks.Notifier,
		Observer:  s.hooks.Observer,
		Log:       s.log,
		Clock:     s.now,
	})
	if err != nil {
		return nil, err
	}

	live := &liveSession{session: sess, stop: make(chan struct{})}
	s.mu.Lock()
	prev := s.sessions[id]
	s.sessions[id] = live
	s.mu.Unlock()

	if prev != nil {
		close(prev.stop)
		prev.session.Close()
	}
	go s.watch(live)
	return sess, nil
}

// watch queues the result e-mail once a session is submitted.
func (s *ExamSessionService) watch(live *liveSession) {
	select {
	case <-live.stop:
		return
	case <-live.session.Done():
	}

	res := live.session.Result()
	if s.hooks.Mailer == nil || res == nil || res.Student.Email == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.hooks.Mailer.Enqueue(ctx, res.ID); err != nil {
		s.log.Error().Err(err).Str("result_id", res.ID).Msg("Failed to queue result e-mail")
	}
}

func (s *ExamSessionService) opened(def *model.ExamDefinition, sess *exam.Session, resume bool) (*OpenResult, error) {
	token, expires, err := s.auth.IssueSessionToken(sess.ID(), def.ID)
	if err != nil {
		return nil, err
	}
	st := sess.State()
	st.ResumeAvailable = resume
	return &OpenResult{
		SessionID: sess.ID(),
		Token:     token,
		ExpiresAt: expires,
		Exam:      summarize(def),
		State:     st,
	}, nil
}

func summarize(def *model.ExamDefinition) model.ExamSummary {
	return model.ExamSummary{
		ID:              def.ID,
		Name:            def.Name,
		Description:     def.Description,
		DurationMinutes: def.DurationMinutes,
		QuestionCount:   def.QuestionCount,
		ExpiryDate:      def.ExpiryDate,
	}
}
