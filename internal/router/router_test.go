package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/handler"
	"github.com/examforge/examforge-backend/internal/middleware"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/examforge/examforge-backend/internal/repository"
	"github.com/examforge/examforge-backend/internal/response"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/examforge/examforge-backend/internal/store"
	"github.com/examforge/examforge-backend/internal/validator"
	ws "github.com/examforge/examforge-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const adminKey = "admin-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	auth   *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		GinMode:     gin.TestMode,
		JWTSecret:   "test-secret",
		SessionTTL:  time.Hour,
		AdminAPIKey: adminKey,
		Exam: config.ExamConfig{
			SnapshotTTL:          time.Hour,
			MaxIntegrityWarnings: 3,
			TimeWarnings:         []int{300, 60},
			PassPercentage:       50,
			IdleSessionTimeout:   30 * time.Minute,
		},
	}

	records := store.NewCSVStore(store.NewMemoryBackend())
	classRepo := repository.NewClassRepository(records)
	questionRepo := repository.NewQuestionRepository(records, zerolog.Nop())
	studentRepo := repository.NewStudentRepository(records)
	resultRepo := repository.NewResultRepository(records)
	attemptRepo := repository.NewAttemptRepository(records)
	snapshotRepo := repository.NewSnapshotRepository(rdb, cfg.Exam.SnapshotTTL)

	auth := service.NewAuthService(cfg)
	hub := ws.NewHub(zerolog.Nop())
	sessions := service.NewExamSessionService(
		classRepo, questionRepo, studentRepo, resultRepo, snapshotRepo,
		auth, service.SessionHooks{Notifier: hub}, cfg.Exam, zerolog.Nop(),
	)
	t.Cleanup(func() { sessions.Shutdown(context.Background()) })

	handlers := &Handlers{
		Session: handler.NewExamSessionHandler(sessions, zerolog.Nop()),
		Result:  handler.NewResultHandler(service.NewResultService(resultRepo, classRepo), zerolog.Nop()),
		Class:   handler.NewClassHandler(service.NewClassService(classRepo, questionRepo, studentRepo, attemptRepo), zerolog.Nop()),
		WS:      handler.NewWSHandler(hub, zerolog.Nop(), nil),
		System:  handler.NewSystemHandler(rdb, sessions, zerolog.Nop()),
	}
	guards := Guards{
		Auth:          auth,
		Sessions:      sessions,
		VerifyLimiter: middleware.NewRateLimiter(rdb, "verify", 3, time.Minute, zerolog.Nop()),
	}

	return &testServer{engine: SetupRouter(guards, handlers, cfg), auth: auth}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func admin() map[string]string { return map[string]string{middleware.AdminKeyHeader: adminKey} }

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// seedClass creates a class through the admin API with the given
// question -> correct answer pairs; every question offers both answers.
func (s *testServer) seedClass(t *testing.T, questions ...[2]string) (classID string, correct map[string]string) {
	t.Helper()

	w, env := s.do(t, http.MethodPost, "/api/v1/admin/classes", model.CreateClassRequest{
		Name: "Geography", AccessKey: "KEY-2026", DurationMinutes: 30,
	}, admin())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var class model.ExamDefinition
	require.NoError(t, json.Unmarshal(env.Data, &class))

	correct = make(map[string]string)
	for _, q := range questions {
		w, env := s.do(t, http.MethodPost, "/api/v1/admin/classes/"+class.ID+"/questions", model.AddQuestionRequest{
			Question: q[0], Options: []string{q[1], "None of these"}, CorrectAnswer: q[1],
		}, admin())
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created model.Question
		require.NoError(t, json.Unmarshal(env.Data, &created))
		correct[created.ID] = q[1]
	}
	return class.ID, correct
}

func (s *testServer) open(t *testing.T, classID string) service.OpenResult {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/classes/"+classID+"/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var opened service.OpenResult
	require.NoError(t, json.Unmarshal(env.Data, &opened))
	return opened
}

func (s *testServer) verify(t *testing.T, token string) model.SessionState {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/sessions/verify", model.VerifyRequest{
		AccessKey: "KEY-2026", Name: "Ada Lovelace", Email: "ada@example.com",
	}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var st model.SessionState
	require.NoError(t, json.Unmarshal(env.Data, &st))
	return st
}

func TestExamFlow(t *testing.T) {
	s := newTestServer(t)
	classID, correct := s.seedClass(t, [2]string{"Capital of France?", "Paris"}, [2]string{"Capital of Italy?", "Rome"})

	// Summary never leaks the access key.
	w, env := s.do(t, http.MethodGet, "/api/v1/classes/"+classID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(env.Data), "KEY-2026")
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	opened := s.open(t, classID)
	assert.Equal(t, model.PhaseVerifying, opened.State.Phase)
	assert.Nil(t, opened.State.CurrentQuestion)
	auth := bearer(opened.Token)

	w, env = s.do(t, http.MethodPost, "/api/v1/sessions/verify", model.VerifyRequest{
		AccessKey: "wrong", Name: "Ada Lovelace", Email: "ada@example.com",
	}, auth)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrInvalidAccessKey, env.Error.Code)

	st := s.verify(t, opened.Token)
	assert.Equal(t, model.PhaseInProgress, st.Phase)
	require.Len(t, st.Navigator, 2)
	require.NotNil(t, st.CurrentQuestion)
	assert.Equal(t, 30*60, st.TimeRemainingSeconds)

	// First question right, second wrong.
	first, second := st.Navigator[0].QuestionID, st.Navigator[1].QuestionID
	w, env = s.do(t, http.MethodPut, "/api/v1/sessions/answers", model.AnswerRequest{QuestionID: first, Option: correct[first]}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = s.do(t, http.MethodPut, "/api/v1/sessions/answers", model.AnswerRequest{QuestionID: second, Option: "None of these"}, auth)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPut, "/api/v1/sessions/answers", model.AnswerRequest{QuestionID: first, Option: "Atlantis"}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrUnknownOption, env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/sessions/flags/"+second, nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"question_id":"`+second+`","flagged":true}`, string(env.Data))

	w, env = s.do(t, http.MethodPost, "/api/v1/sessions/navigate", model.NavigateRequest{Action: "next"}, auth)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, 2, st.AnsweredCount)
	assert.True(t, st.Navigator[1].Flagged)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w, env = s.do(t, http.MethodPost, "/api/v1/sessions/submit", nil, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var submitted struct {
		Result model.ExamResult   `json:"result"`
		State  model.SessionState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &submitted))
	assert.Equal(t, 1, submitted.Result.Score)
	assert.Equal(t, 2, submitted.Result.TotalQuestions)
	assert.Equal(t, 50, submitted.Result.Percentage)
	assert.Equal(t, model.SubmitReasonManual, submitted.Result.SubmitReason)
	assert.Equal(t, model.PhaseSubmitted, submitted.State.Phase)

	// Terminal: answers are refused, submit is idempotent.
	w, env = s.do(t, http.MethodPut, "/api/v1/sessions/answers", model.AnswerRequest{QuestionID: first, Option: correct[first]}, auth)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrSessionSubmitted, env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/sessions/submit", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	var again struct {
		Result model.ExamResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.Equal(t, submitted.Result.ID, again.Result.ID)

	// Result page.
	w, env = s.do(t, http.MethodGet, "/api/v1/results/"+submitted.Result.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res model.ExamResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "Ada Lovelace", res.Student.Name)

	w, env = s.do(t, http.MethodGet, "/api/v1/results/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrResultNotFound, env.Error.Code)

	// Admin views.
	w, env = s.do(t, http.MethodGet, "/api/v1/admin/classes/"+classID+"/results", nil, admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), submitted.Result.ID)

	w, env = s.do(t, http.MethodGet, "/api/v1/admin/classes/"+classID+"/students", nil, admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "ada@example.com")
}

func TestExportResults(t *testing.T) {
	s := newTestServer(t)
	classID, correct := s.seedClass(t, [2]string{"Capital of France?", "Paris"})

	opened := s.open(t, classID)
	st := s.verify(t, opened.Token)
	qid := st.Navigator[0].QuestionID
	s.do(t, http.MethodPut, "/api/v1/sessions/answers", model.AnswerRequest{QuestionID: qid, Option: correct[qid]}, bearer(opened.Token))
	w, _ := s.do(t, http.MethodPost, "/api/v1/sessions/submit", nil, bearer(opened.Token))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/admin/classes/"+classID+"/results/export", nil, admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "results-"+classID+".csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "ada@example.com")

	w, _ = s.do(t, http.MethodGet, "/api/v1/admin/classes/"+classID+"/results/export?format=xlsx", nil, admin())
	require.Equal(t, http.StatusOK, w.Code)
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ada@example.com", rows[1][2])

	w, env := s.do(t, http.MethodGet, "/api/v1/admin/classes/"+classID+"/results/export?format=pdf", nil, admin())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Fields, "format")
}

func TestSessionRoutesRequireLiveSession(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/sessions/state", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrTokenRequired, env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/sessions/state", nil, bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrTokenInvalid, env.Error.Code)

	token, _, err := s.auth.IssueSessionToken("gone", "class")
	require.NoError(t, err)
	w, env = s.do(t, http.MethodGet, "/api/v1/sessions/state", nil, bearer(token))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrSessionNotFound, env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/sessions/state?token="+token, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "query token is accepted")
	assert.Equal(t, response.ErrSessionNotFound, env.Error.Code)
}

func TestOpenErrors(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/classes/missing/sessions", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrClassNotFound, env.Error.Code)

	classID, _ := s.seedClass(t)
	w, env = s.do(t, http.MethodPost, "/api/v1/classes/"+classID+"/sessions", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrNoQuestions, env.Error.Code)
}

func TestOpenReattachesWithToken(t *testing.T) {
	s := newTestServer(t)
	classID, _ := s.seedClass(t, [2]string{"Capital of France?", "Paris"})

	opened := s.open(t, classID)
	s.verify(t, opened.Token)

	w, env := s.do(t, http.MethodPost, "/api/v1/classes/"+classID+"/sessions", nil, bearer(opened.Token))
	require.Equal(t, http.StatusCreated, w.Code)
	var again service.OpenResult
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.Equal(t, opened.SessionID, again.SessionID)
	assert.Equal(t, model.PhaseInProgress, again.State.Phase)
}

func TestVerifyValidationAndRateLimit(t *testing.T) {
	s := newTestServer(t)
	classID, _ := s.seedClass(t, [2]string{"Capital of France?", "Paris"})
	opened := s.open(t, classID)
	auth := bearer(opened.Token)

	w, env := s.do(t, http.MethodPost, "/api/v1/sessions/verify", map[string]string{
		"access_key": "KEY-2026", "name": "   ", "email": "ada@example.com",
	}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "name")

	// The first attempt above counts too; the limit is 3 per minute.
	for i := 0; i < 2; i++ {
		w, _ = s.do(t, http.MethodPost, "/api/v1/sessions/verify", model.VerifyRequest{
			AccessKey: "wrong", Name: "Ada", Email: "ada@example.com",
		}, auth)
		assert.Equal(t, http.StatusForbidden, w.Code)
	}
	w, env = s.do(t, http.MethodPost, "/api/v1/sessions/verify", model.VerifyRequest{
		AccessKey: "KEY-2026", Name: "Ada", Email: "ada@example.com",
	}, auth)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, response.ErrRateLimitExceeded, env.Error.Code)
}

func TestIntegrityEventsForceSubmission(t *testing.T) {
	s := newTestServer(t)
	classID, _ := s.seedClass(t, [2]string{"Capital of France?", "Paris"})
	opened := s.open(t, classID)
	s.verify(t, opened.Token)
	auth := bearer(opened.Token)

	var st model.SessionState
	for i := 1; i <= 3; i++ {
		w, env := s.do(t, http.MethodPost, "/api/v1/sessions/integrity-events", model.IntegrityEventRequest{Kind: "blur"}, auth)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(env.Data, &st))
		assert.Equal(t, i, st.IntegrityWarnings)
	}
	assert.Equal(t, model.PhaseSubmitted, st.Phase)
	assert.NotEmpty(t, st.ResultID)

	w, env := s.do(t, http.MethodPost, "/api/v1/sessions/integrity-events", model.IntegrityEventRequest{Kind: "shake"}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
}

func TestAdminKeyRequired(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/admin/classes", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrAdminKey, env.Error.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/admin/classes", nil, map[string]string{middleware.AdminKeyHeader: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/admin/classes", nil, admin())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"classes":[]}`, string(env.Data))
}

func TestImportQuestions(t *testing.T) {
	s := newTestServer(t)
	classID, _ := s.seedClass(t)

	upload := func(content string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "questions.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/classes/"+classID+"/questions/import", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set(middleware.AdminKeyHeader, adminKey)
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		return w
	}

	w := upload("question,options,correctAnswer\nCapital of France?,Paris|Rome,Paris\nBad,A|B,C\n")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var report service.ImportReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 3, report.Skipped[0].Row)

	w = upload("question,options,correctAnswer\nBad,A|B,C\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, response.ErrImportEmpty, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "row_2")

	w = upload("text,answer\nx,y\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/classes/"+classID+"/questions/import", nil)
	req.Header.Set(middleware.AdminKeyHeader, adminKey)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionStream(t *testing.T) {
	s := newTestServer(t)
	classID, correct := s.seedClass(t, [2]string{"Capital of France?", "Paris"})
	opened := s.open(t, classID)
	s.verify(t, opened.Token)

	srv := httptest.NewServer(s.engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/sessions/stream?token=" + opened.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	read := func() map[string]json.RawMessage {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]json.RawMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}
	event := func(msg map[string]json.RawMessage) ws.Event {
		var e ws.Event
		_ = json.Unmarshal(msg["event"], &e)
		return e
	}

	msg := read()
	require.Equal(t, ws.EventState, event(msg))
	var st model.SessionState
	require.NoError(t, json.Unmarshal(msg["state"], &st))
	qid := st.Navigator[0].QuestionID

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionPing}))
	assert.Equal(t, ws.EventPong, event(read()))

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionAnswer, QuestionID: qid, Option: correct[qid]}))
	msg = read()
	require.Equal(t, ws.EventState, event(msg))
	require.NoError(t, json.Unmarshal(msg["state"], &st))
	assert.Equal(t, correct[qid], st.SelectedAnswer)

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionAnswer, QuestionID: "nope", Option: "x"}))
	msg = read()
	require.Equal(t, ws.EventError, event(msg))
	assert.JSONEq(t, `"UNKNOWN_QUESTION"`, string(msg["code"]))

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionSubmit}))

	// The submitted notification and the submit reply both arrive.
	var sawNotification, sawResult bool
	for i := 0; i < 4 && !(sawNotification && sawResult); i++ {
		msg = read()
		switch event(msg) {
		case ws.EventNotification:
			sawNotification = true
		case ws.EventSubmitted:
			sawResult = true
			var res model.ExamResult
			require.NoError(t, json.Unmarshal(msg["result"], &res))
			assert.Equal(t, 1, res.Score)
		}
	}
	assert.True(t, sawNotification)
	assert.True(t, sawResult)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}
