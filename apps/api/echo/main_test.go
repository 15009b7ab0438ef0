package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/examguard/apps/api/echo"
	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/user"
	"github.com/trezcool/examguard/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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

type fixture struct {
	conf  *core.Config
	store *testutil.Store
	svc   *exam.Service
	app   *Server
}

func setup(t *testing.T) *fixture {
	conf := &core.Config{
		TestMode:  true,
		AppName:   "ExamGuard",
		SecretKey: "secret",
		Server:    core.ServerConfig{JWTExpirationDelta: 10 * time.Minute},
		Exam:      core.ExamConfig{KickOutThreshold: 3, SubmitGracePeriod: 30 * time.Second},
	}
	store := testutil.NewStore(t)
	svc := store.NewService(conf, nil)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     testutil.NopLogger{},
		ExamSvc:    svc,
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = app.Close() })
	return &fixture{conf: conf, store: store, svc: svc, app: app}
}

func (f *fixture) do(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	f.app.ServeHTTP(rec, req)
	return rec
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

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	claims := GetUserClaims(usr, conf)
	token, err := GenerateToken(claims, conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchall() failed: %v; body %s", err, rec.Body.String())
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
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
