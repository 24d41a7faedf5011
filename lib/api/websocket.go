package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(req *http.Request) bool {
		return true
	},
}

// wsClient serialises writes; a websocket.Conn allows one writer at a time.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(packet []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, packet)
}

// @Summary	Open websocket for realtime job results and stats
// @Router		/api/ws [get]
// @Param		Upgrade	header	string	true	"websocket"
// @Tags		base
// @Success	101
func (a *Api) handleWebsocket(w http.ResponseWriter, req *http.Request) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("couldn't make websocket: %s", err), http.StatusBadRequest)
		return
	}
	client := &wsClient{conn: ws}
	defer func() {
		err := ws.Close()
		if err != nil {
			a.log.Debug("could not close websocket", "err", err)
		}
	}()

	a.wsMu.Lock()
	a.wsClients[client] = true
	a.pipeline.Stats.SetWsClients(len(a.wsClients))
	a.wsMu.Unlock()

	done := make(chan struct{})
	go a.websocketWriter(client, done)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			break
		}
		a.log.Debug("websocket message", "msg", string(msg))
	}
	close(done)

	a.wsMu.Lock()
	delete(a.wsClients, client)
	a.pipeline.Stats.SetWsClients(len(a.wsClients))
	a.wsMu.Unlock()
}

func (a *Api) websocketWriter(client *wsClient, done <-chan struct{}) {
	pingTicker := time.NewTicker(2 * time.Second)
	defer pingTicker.Stop()
	for {
		select {
		case <-done:
			return
		case <-pingTicker.C:
		}
		packet, err := json.Marshal(a.pipeline.Stats.Snapshot())
		if err != nil {
			return
		}
		if err := client.write(packet); err != nil {
			return
		}
	}
}

func (a *Api) broadcast(packet []byte) {
	a.wsMu.Lock()
	clients := make([]*wsClient, 0, len(a.wsClients))
	for c := range a.wsClients {
		clients = append(clients, c)
	}
	a.wsMu.Unlock()

	for _, c := range clients {
		err := c.write(packet)
		if err != nil {
			a.log.Debug("could not push to websocket", "err", err)
		}
	}
}
