package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/course"
	"github.com/trezcool/ecole/core/user"
	emailsvc "github.com/trezcool/ecole/services/email"
	dummydb "github.com/trezcool/ecole/storage/database/dummy"
	"github.com/trezcool/ecole/tests"
)

var (
	testCtx = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errInvalidToken = httpErr{Error: "invalid or expired jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

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
	extra    interface{}
}

type testEnv struct {
	conf      *core.Config
	server    *Server
	usrRepo   user.Repository
	courseSvc *course.Service
	courses   course.Repository
}

func setup(t *testing.T) testEnv {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	validate, translator := testutil.NewValidatorAndTranslator()

	db := testutil.PrepareDB(t)
	usrRepo := dummydb.NewUserRepository(db)
	courseRepo := dummydb.NewCourseRepository(db)

	usrSvc := user.NewService(usrRepo)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	courseSvc := course.NewService(courseRepo, usrSvc, mailSvc, logger, validate, conf)

	emailsvc.ClearSentMessages()
	t.Cleanup(emailsvc.ClearSentMessages)

	return testEnv{
		conf:      conf,
		server:    NewServer(conf, logger, usrSvc, courseSvc, validate, translator),
		usrRepo:   usrRepo,
		courseSvc: courseSvc,
		courses:   courseRepo,
	}
}

func (env testEnv) getToken(t *testing.T, usr user.User) string {
	token, err := env.server.auth.GenerateToken(env.server.auth.NewClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// serve runs tt against the server and checks the response code and body.
func (env testEnv) serve(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	env.server.ServeHTTP(rec, req)
	if tt.wantData != nil {
		checkCodeAndData(t, tt, rec)
	} else if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, data []byte, obj interface{}) {
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("unmarchallObj() failed: %v", err)
	}
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
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
