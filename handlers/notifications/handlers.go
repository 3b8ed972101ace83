package notifications

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"collabmatch/backend/handlers/auth"
	"collabmatch/backend/handlers/response"
	"collabmatch/backend/models"
	"collabmatch/backend/store"
)

// GetNotificationsHandler lists the caller's notifications, newest first
// Used by: GET /api/notifications
func GetNotificationsHandler(s store.NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.ListNotifications(r.Context(), auth.UserID(r))
		if err != nil {
			response.FromError(w, err)
			return
		}
		if list == nil {
			list = []models.Notification{}
		}
		response.JSON(w, http.StatusOK, list)
	}
}

// MarkNotificationsAsReadHandler stamps every unread notification of the caller
// Used by: POST /api/notifications/read
func MarkNotificationsAsReadHandler(s store.NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.MarkNotificationsRead(r.Context(), auth.UserID(r), time.Now().UTC()); err != nil {
			response.FromError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]string{"message": "Notifications marked as read"})
	}
}

// HandleNotificationWebSocket upgrades to a websocket authenticated by the token query parameter
// Used by: /ws/notifications
func HandleNotificationWebSocket(hub *Hub, tokens *auth.Tokens) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin:     func(r *http.Request) bool { return true },
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "No token provided", http.StatusUnauthorized)
			return
		}
		claims, err := tokens.ParseToken(token)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Debug("Websocket upgrade failed")
			return
		}

		c := &client{conn: conn}
		hub.add(claims.UserID, c)
		defer func() {
			hub.remove(claims.UserID, c)
			conn.Close()
		}()

		if err := c.write(websocket.TextMessage, []byte(`{"type":"connected"}`)); err != nil {
			return
		}

		// reads only detect the close; pings are answered by the default handler
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithField("user_id", claims.UserID).WithError(err).Debug("Notification socket closed")
				}
				return
			}
		}
	}
}
