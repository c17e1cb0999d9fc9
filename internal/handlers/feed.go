package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/rentals-dev/rentals/db"
	"github.com/rentals-dev/rentals/internal/authz"
	"github.com/rentals-dev/rentals/internal/services"
	"github.com/rentals-dev/rentals/internal/types"
)

var (
	buildingClients   = make(map[uint]map[*websocket.Conn]bool)
	buildingClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// BroadcastAnnouncement pushes a freshly created notice or comment to
// every feed subscriber of the building.
func BroadcastAnnouncement(buildingID uint, kind string, payload interface{}) {
	buildingClientsMu.RLock()
	clients, exists := buildingClients[buildingID]
	if !exists || len(clients) == 0 {
		buildingClientsMu.RUnlock()
		return
	}

	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	buildingClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			continue
		}

		err := conn.WriteJSON(map[string]interface{}{
			"type":        kind,
			"building_id": buildingID,
			"data":        payload,
		})

		if err != nil {
			log.Warn().Err(err).Uint("building_id", buildingID).Msg("failed to broadcast announcement")
			buildingClientsMu.Lock()
			if clients, exists := buildingClients[buildingID]; exists {
				delete(clients, conn)
				if len(clients) == 0 {
					delete(buildingClients, buildingID)
				}
			}
			buildingClientsMu.Unlock()
			conn.Close()
		}
	}
}

// BuildingFeed upgrades the request to a WebSocket and streams new
// announcements for one building. Same visibility rule as the list
// endpoints: any tie to the building, or admin.
func BuildingFeed(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	buildingID, err := paramID(ctx, "building_id", "building does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	if _, err := services.GetBuilding(db.DB, buildingID); err != nil {
		fail(ctx, err)
		return
	}

	tie, err := services.TieForUser(db.DB, current.ID, buildingID)
	if err != nil {
		fail(ctx, err)
		return
	}
	if err := authz.CanViewBuildingScoped(current.Actor(), tie); err != nil {
		fail(ctx, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	buildingClientsMu.Lock()
	if buildingClients[buildingID] == nil {
		buildingClients[buildingID] = make(map[*websocket.Conn]bool)
	}
	buildingClients[buildingID][conn] = true
	buildingClientsMu.Unlock()

	defer func() {
		buildingClientsMu.Lock()

		if clients, exists := buildingClients[buildingID]; exists {
			delete(clients, conn)

			if len(clients) == 0 {
				delete(buildingClients, buildingID)
			}
		}

		buildingClientsMu.Unlock()
		conn.Close()

		log.Debug().Uint("building_id", buildingID).Msg("feed connection closed")
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	err = conn.WriteJSON(map[string]string{
		"type":        "connected",
		"building_id": strconv.FormatUint(uint64(buildingID), 10),
	})

	if err != nil {
		return
	}

	// The done channel stops the ping goroutine when the handler
	// returns; a stopped ticker alone would leave it blocked forever.
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Uint("building_id", buildingID).Msg("feed read error")
			}
			break
		}
	}
}
