package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/notification"
)

type notificationApi struct {
	auth *jwtAuth
	svc  notification.ServiceInterface
}

func registerNotificationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *jwtAuth,
	svc notification.ServiceInterface,
) {
	api := notificationApi{
		auth: auth,
		svc:  svc,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.GET("/unread", api.unread)
	ng.POST("/read-all", api.markAllRead)
	ng.PUT("/:id/read", api.markRead)
	ng.GET("/preferences", api.preferences)
	ng.PUT("/preferences", api.updatePreferences)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notifs, err := api.svc.Query(usr)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) unread(ctx echo.Context) error {
	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notifs, err := api.svc.Unread(usr)
	if err != nil {
		return errors.Wrap(err, "querying unread notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data ReadRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReadRequest")
	}

	notif, err := api.svc.MarkRead(usr, ctx.Param("id"), data.Read())
	if err != nil {
		if errors.Cause(err) == notification.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, notif)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.MarkAllRead(usr); err != nil {
		return errors.Wrap(err, "marking all notifications read")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "All notifications marked as read."})
}

func (api *notificationApi) preferences(ctx echo.Context) error {
	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	prefs, err := api.svc.EnsurePreferences(usr)
	if err != nil {
		return errors.Wrap(err, "getting preferences")
	}
	return ctx.JSON(http.StatusOK, prefs)
}

func (api *notificationApi) updatePreferences(ctx echo.Context) error {
	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data notification.Preferences
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Preferences")
	}

	prefs, err := api.svc.UpdatePreferences(usr, data)
	if err != nil {
		return errors.Wrap(err, "updating preferences")
	}
	return ctx.JSON(http.StatusOK, prefs)
}
