package flagservice

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"

	"github.com/gorilla/websocket"

	"nav-avoid-core/utils"
)

// Flag is the goal of one agent. Flag IDs match agent IDs.
type Flag struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// LoadFlags reads a JSON array of flags.
func LoadFlags(path string) ([]Flag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flags: %w", err)
	}
	var flags []Flag
	if err := json.Unmarshal(data, &flags); err != nil {
		return nil, fmt.Errorf("unmarshal flags: %w", err)
	}
	return flags, nil
}

// Handler serves distance queries on an upgraded websocket.
type Handler struct {
	flags    map[int]Flag
	upgrader websocket.Upgrader
	log      *utils.Logger
}

func NewHandler(flags []Flag, log *utils.Logger) *Handler {
	byID := make(map[int]Flag, len(flags))
	for _, f := range flags {
		byID[f.ID] = f
	}
	return &Handler{
		flags: byID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Distance returns the straight-line distance from (x, y) to the agent's flag.
func (h *Handler) Distance(agentID int, x, y float64) (float64, error) {
	f, ok := h.flags[agentID]
	if !ok {
		return 0, fmt.Errorf("no flag for agent %d", agentID)
	}
	return math.Hypot(f.X-x, f.Y-y), nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()
	h.log.Debug("Client %s connected", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("Client %s dropped: %v", r.RemoteAddr, err)
			} else {
				h.log.Debug("Client %s disconnected", r.RemoteAddr)
			}
			return
		}

		var req Request
		resp := Response{}
		if err := json.Unmarshal(data, &req); err != nil {
			resp.Error = "malformed request"
		} else {
			resp.Seq = req.Seq
			d, err := h.Distance(req.AgentID, req.X, req.Y)
			if err != nil {
				resp.Error = err.Error()
			} else {
				resp.Distance = d
			}
		}
		h.log.Trace("query seq=%d agent=%d pos=(%.2f, %.2f) -> %.3f %s",
			req.Seq, req.AgentID, req.X, req.Y, resp.Distance, resp.Error)

		if err := conn.WriteJSON(resp); err != nil {
			h.log.Warn("Reply to %s failed: %v", r.RemoteAddr, err)
			return
		}
	}
}
