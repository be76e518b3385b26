package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/notification"
	testutil "github.com/trezcool/shule/tests"
)

func Test_notificationApi_query(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "User", "someone", "someone@test.cd", "LeakedPwd25", nil, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.cd", "LeakedPwd25", nil, true)
	token := login(t, app, "someone", "LeakedPwd25")

	assert.NoError(t, notifSvc.Dispatch(usr, "first", notification.TypeMessage, nil))
	assert.NoError(t, notifSvc.Dispatch(usr, "second", notification.TypeSystem, nil))
	assert.NoError(t, notifSvc.Dispatch(other, "not yours", notification.TypeMessage, nil))

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/notifications")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("own notifications only, newest first", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/notifications", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var notifs []notification.Notification
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifs))
		if assert.Len(t, notifs, 2) {
			assert.Equal(t, "second", notifs[0].Message)
			assert.Equal(t, "first", notifs[1].Message)
			for _, n := range notifs {
				assert.Equal(t, usr.ID, n.RecipientID)
			}
		}
	})
}

func Test_notificationApi_readFlow(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "User", "someone", "someone@test.cd", "LeakedPwd25", nil, true)
	intruder := testutil.CreateUser(t, usrRepo, "Intruder", "intruder", "intruder@test.cd", "LeakedPwd25", nil, true)
	token := login(t, app, "someone", "LeakedPwd25")
	intruderToken := login(t, app, "intruder", "LeakedPwd25")

	assert.NoError(t, notifSvc.Dispatch(usr, "one", notification.TypeMessage, nil))
	assert.NoError(t, notifSvc.Dispatch(usr, "two", notification.TypeMessage, nil))

	notifs, err := notifSvc.Unread(usr)
	assert.NoError(t, err)
	if !assert.Len(t, notifs, 2) {
		return
	}
	id := notifs[0].ID

	t.Run("mark one read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/notifications/"+id+"/read", token, marchallObj(t, map[string]bool{"is_read": true}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		unread, _ := notifSvc.Unread(usr)
		assert.Len(t, unread, 1)
	})

	t.Run("cannot touch someone else's", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/notifications/"+id+"/read", intruderToken, marchallObj(t, map[string]bool{"is_read": true}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)

		// the target stays unread and nothing leaked into the intruder's list
		unread, _ := notifSvc.Unread(usr)
		assert.Len(t, unread, 1)
		theirs, _ := notifSvc.Query(intruder)
		assert.Empty(t, theirs)
	})

	t.Run("mark all read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/notifications/read-all", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		unread, _ := notifSvc.Unread(usr)
		assert.Empty(t, unread)
	})
}

func Test_notificationApi_preferences(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "User", "someone", "someone@test.cd", "LeakedPwd25", nil, true)
	token := login(t, app, "someone", "LeakedPwd25")

	t.Run("defaults are created on first access", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/notifications/preferences", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var prefs notification.Preferences
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
		prefs.UserID = usr.ID // not serialized
		assert.Equal(t, notification.DefaultPreferences(usr.ID), prefs)
	})

	t.Run("update disables delivery", func(t *testing.T) {
		prefs := notification.DefaultPreferences(usr.ID)
		prefs.EnableMessages = false

		req, rec := newAuthRequest(http.MethodPut, "/api/notifications/preferences", token, marchallObj(t, prefs))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		// a MESSAGE notification is now silently skipped
		assert.NoError(t, notifSvc.Dispatch(usr, "ignored", notification.TypeMessage, nil))
		notifs, _ := notifSvc.Query(usr)
		assert.Empty(t, notifs)

		// but a SYSTEM one still goes through
		assert.NoError(t, notifSvc.Dispatch(usr, "kept", notification.TypeSystem, nil))
		notifs, _ = notifSvc.Query(usr)
		assert.Len(t, notifs, 1)
	})
}
