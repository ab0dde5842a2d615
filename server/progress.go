package server

import (
	"encoding/json"
	"sync"

	"github.com/cyclopcam/finetune/server/runsdb"
	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
)

// progressHub fans training progress out to websocket clients. Clients that
// fall behind or disconnect are dropped on the next write.
type progressHub struct {
	log   logs.Log
	lock  sync.Mutex
	conns map[*websocket.Conn]bool
}

type progressMessage struct {
	RunID   int64   `json:"runId"`
	Epoch   int     `json:"epoch"`
	Loss    float64 `json:"loss"`
	Acc     float64 `json:"acc"`
	ValLoss float64 `json:"valLoss"`
	ValAcc  float64 `json:"valAcc"`
}

func newProgressHub(log logs.Log) *progressHub {
	return &progressHub{
		log:   log,
		conns: map[*websocket.Conn]bool{},
	}
}

func (h *progressHub) add(c *websocket.Conn) {
	h.lock.Lock()
	h.conns[c] = true
	h.lock.Unlock()
}

func (h *progressHub) remove(c *websocket.Conn) {
	h.lock.Lock()
	delete(h.conns, c)
	h.lock.Unlock()
}

// onEpoch is wired into the trainer as its ProgressFunc.
func (h *progressHub) onEpoch(runID int64, m runsdb.EpochMetrics) {
	msg := progressMessage{
		RunID:   runID,
		Epoch:   m.Epoch,
		Loss:    m.Loss,
		Acc:     m.Accuracy,
		ValLoss: m.ValLoss,
		ValAcc:  m.ValAccuracy,
	}
	j, err := json.Marshal(&msg)
	if err != nil {
		h.log.Errorf("Failed to marshal progress message: %v", err)
		return
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.conns {
		if err := c.WriteMessage(websocket.TextMessage, j); err != nil {
			h.log.Infof("Dropping progress listener: %v", err)
			c.Close()
			delete(h.conns, c)
		}
	}
}

func (h *progressHub) closeAll() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.conns {
		c.Close()
		delete(h.conns, c)
	}
}
