package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/monitor"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/broker"
	"github.com/trezcool/shule/services/logregistry"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
	testutil "github.com/trezcool/shule/tests"
)

var (
	usrRepo  user.Repository
	notifSvc notification.ServiceInterface
	brk      *broker.InProc

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

// fakeCollector keeps API tests off the real host metrics.
type fakeCollector struct{}

var _ monitor.Collector = (*fakeCollector)(nil)

func (fakeCollector) Snapshot() (monitor.Snapshot, error) {
	return monitor.Snapshot{CPUPercent: 7.5, CPUCountLogical: 2, CPUCountPhysical: 1}, nil
}

func setup(t *testing.T, logFiles ...map[string]string) Server {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	logger := testutil.NopLogger{}
	brk = broker.NewInProc(logger)

	usrSvc := user.NewService(usrRepo)
	notifSvc = notification.NewService(
		dummydb.NewNotificationRepository(db),
		dummydb.NewPreferencesRepository(db),
		brk,
		logger,
	)

	files := map[string]string{}
	if len(logFiles) > 0 {
		files = logFiles[0]
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	return NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			NotifSvc:   notifSvc,
			Broker:     brk,
			Collector:  fakeCollector{},
			Logs:       logregistry.NewFromMap(files),
			Validate:   validate,
			Translator: translator,
		},
	)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

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

// login runs the real login endpoint and returns the issued token.
func login(t *testing.T, app Server, username, password string) string {
	t.Helper()
	body := marchallObj(t, map[string]string{"username": username, "password": password})
	req, rec := newRequest(http.MethodPost, "/api/users/login", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login(%s) failed: code=%d body=%s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("login(%s): %v", username, err)
	}
	return resp.Token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return jsonEqual(j1, j2), nil
}

func jsonEqual(j1, j2 interface{}) bool {
	b1, _ := json.Marshal(j1)
	b2, _ := json.Marshal(j2)
	return bytes.Equal(b1, b2)
}
