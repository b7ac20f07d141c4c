package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/seekmycourse/backend/apps/api/echo"
	"github.com/seekmycourse/backend/core"
	"github.com/seekmycourse/backend/core/course"
	"github.com/seekmycourse/backend/core/user"
	emailsvc "github.com/seekmycourse/backend/services/email"
	dummydb "github.com/seekmycourse/backend/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app     Server
	usrRepo user.Repository
	crsRepo course.Repository
	usrSvc  *user.Service
	crsSvc  *course.Service
	ai      *stubAI
	videos  *stubVideos
	phone   *stubPhone
	pdf     *stubPDF
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	env := &testEnv{
		usrRepo: dummydb.NewUserRepository(db),
		crsRepo: dummydb.NewCourseRepository(db),
		ai:      &stubAI{},
		videos:  &stubVideos{},
		phone:   &stubPhone{approved: true},
		pdf:     &stubPDF{},
	}

	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := nopLogger{}

	env.usrSvc = user.NewService(env.usrRepo, mailSvc, env.phone, logger)
	env.crsSvc = course.NewService(env.crsRepo, env.ai, env.videos, stubThumbs{}, env.pdf, env.usrSvc, logger)

	env.app = NewServer(&Options{
		DisableReqLogs: true,
		Logger:         logger,
		UserSvc:        env.usrSvc,
		CourseSvc:      env.crsSvc,
	})
	return env
}

// createUser registers a fully verified user directly through the repository.
func createUser(t *testing.T, repo user.Repository, firstName, lastName, email, phone, pwd string) user.User {
	t.Helper()

	usr := user.User{
		FirstName:       firstName,
		LastName:        lastName,
		Email:           email,
		PhoneNumber:     phone,
		IsEmailVerified: true,
		IsPhoneVerified: true,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// logIn installs an active session for usr and returns its token.
func logIn(t *testing.T, svc *user.Service, usr user.User) string {
	t.Helper()

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}
	if _, err = svc.SetActiveSession(context.Background(), usr, user.Session{
		Token:  token,
		Device: "test",
	}); err != nil {
		t.Fatalf("SetActiveSession(): %v", err)
	}
	return token
}

// Stub collaborators

type stubAI struct {
	textResp string
	jsonResp string
	err      error
	calls    int
}

func (s *stubAI) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.textResp, s.err
}

func (s *stubAI) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.jsonResp, s.err
}

type stubVideos struct {
	results []core.VideoResult
	err     error
}

func (s *stubVideos) SearchVideos(ctx context.Context, query string, maxResults int) ([]core.VideoResult, error) {
	return s.results, s.err
}

func videoResults(id, title string) []core.VideoResult {
	return []core.VideoResult{{ID: id, Title: title, ChannelID: "chan-1", ChannelTitle: "Guitar Channel"}}
}

type stubThumbs struct{}

func (stubThumbs) SearchThumbnail(ctx context.Context, query string) (string, error) {
	return "https://images.test/thumb.jpg", nil
}

type stubPhone struct {
	approved bool
	err      error
}

func (s *stubPhone) StartVerification(ctx context.Context, phoneNumber string) error { return s.err }

func (s *stubPhone) CheckVerification(ctx context.Context, phoneNumber, code string) (bool, error) {
	return s.approved, s.err
}

type stubPDF struct{}

func (stubPDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                           {}
func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}


// HTTP helpers

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
