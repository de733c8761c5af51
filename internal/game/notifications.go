package game

import (
	"time"
)

// Notification types emitted by the engine.
const (
	NotifyGameCreated   = "GAME_CREATED"
	NotifyPlayerJoined  = "PLAYER_JOINED"
	NotifySetupComplete = "SETUP_COMPLETE"
	NotifyGameStarted   = "GAME_STARTED"
	NotifyMoveMade      = "MOVE_MADE"
	NotifyGameOver      = "GAME_OVER"
	NotifyGameAbandoned = "GAME_ABANDONED"
)

// GameNotification tells transports that a game changed. Data never carries hidden
// ranks; listeners fetch a per-viewer view when they need the board.
type GameNotification struct {
	Type      string                 // One of the Notify* constants
	GameID    string                 // Game the change belongs to
	PlayerID  string                 // Player who caused it (empty for the computer)
	Version   int64                  // Game version after the change
	Timestamp time.Time              // When the notification was created
	Data      map[string]interface{} // Notification-specific data
}

// NotificationHandler is a function that handles game notifications
type NotificationHandler func(notification GameNotification)

// SetNotificationHandler sets the handler for game notifications.
// This allows external systems (websockets, persistence) to follow games in real time.
func (e *Engine) SetNotificationHandler(handler NotificationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notificationHandler = handler
}

// emitNotification sends a notification to the registered handler.
// The handler runs on its own goroutine so it may call back into the engine
// (for example GetGameView) without deadlocking on the game lock held here.
func (e *Engine) emitNotification(notification GameNotification) {
	e.mu.RLock()
	handler := e.notificationHandler
	e.mu.RUnlock()

	if handler != nil {
		go handler(notification)
	}
}

func (e *Engine) notify(g *gameEntry, kind, playerID string, data map[string]interface{}) {
	e.emitNotification(GameNotification{
		Type:      kind,
		GameID:    g.id,
		PlayerID:  playerID,
		Version:   g.version,
		Timestamp: e.now(),
		Data:      data,
	})
}
