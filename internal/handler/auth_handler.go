package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/petallog/internal/db"
	"github.com/petallog/internal/locale"
)

const (
	sessionUserIDKey    = "user_id"
	sessionUsernameKey  = "username"
	sessionTrackerIDKey = "tracker_sid"
	userIDContextKey    = "user_id"
	trackerIDContextKey = "tracker_sid"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 校验用户名密码并写入会话
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !a.bindJSON(c, &req) {
		return
	}

	user, err := db.Authenticate(a.db, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, db.ErrInvalidCredentials) {
			a.respondMessage(c, http.StatusUnauthorized, locale.ErrBadCredentials)
			return
		}
		a.handleTrackerError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	session.Set(sessionTrackerIDKey, uuid.NewString())
	if err := session.Save(); err != nil {
		a.respondMessage(c, http.StatusInternalServerError, locale.ErrSessionSave)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username})
}

// Logout 清空会话并释放该会话持有的追踪状态
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if sid, ok := session.Get(sessionTrackerIDKey).(string); ok {
		a.trackers.dropSession(sid)
	}
	session.Clear()
	_ = session.Save()
	c.Status(http.StatusNoContent)
}

// AuthRequired 要求已登录，并把用户与追踪会话 id 放进上下文
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionUserIDKey).(uint)
		if !ok || userID == 0 {
			a.respondMessage(c, http.StatusUnauthorized, locale.ErrUnauthorized)
			c.Abort()
			return
		}

		sid, _ := session.Get(sessionTrackerIDKey).(string)
		if sid == "" {
			sid = uuid.NewString()
			session.Set(sessionTrackerIDKey, sid)
			if err := session.Save(); err != nil {
				a.respondMessage(c, http.StatusInternalServerError, locale.ErrSessionSave)
				c.Abort()
				return
			}
		}

		c.Set(userIDContextKey, userID)
		c.Set(trackerIDContextKey, sid)
		c.Next()
	}
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint(userIDContextKey)
}

func currentTrackerID(c *gin.Context) string {
	return c.GetString(trackerIDContextKey)
}
