package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"propout-gateway/internal/constants"
	"propout-gateway/internal/platform/logger"

	"github.com/gorilla/websocket"
)

// 連接狀態.
const (
	stateConnected int32 = iota
	stateIdentified
	stateClosed
)

const (
	// 向對端寫入的超時
	writeWait = 10 * time.Second
	// 等待 pong 的上限，超過即視為斷線
	pongWait = 60 * time.Second
	// ping 間隔，必須小於 pongWait
	pingPeriod = (pongWait * 9) / 10
)

// ErrClientClosed 連接已關閉，無法再投遞.
var ErrClientClosed = errors.New("client closed")

// ErrSendBufferFull 發送緩衝已滿，事件被丟棄.
var ErrSendBufferFull = errors.New("send buffer full")

// Client 一條 websocket 連接.
// 生命週期: 連接建立（未識別）→ user_join 成功（已識別）→ 關閉。
// 識別之前也允許發送訊息，但不會出現在在線名單中。
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// 帶緩衝的發送通道；寫滿時丟棄事件而不是阻塞中樞
	send chan OutEnvelope
	done chan struct{}

	state  atomic.Int32
	userID atomic.Int64
}

// NewClient 包裝一條已升級的 websocket 連接.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan OutEnvelope, constants.MessageChannelBuffer),
		done: make(chan struct{}),
	}
}

// Deliver 向連接投遞事件（非阻塞）.
// 連接已關閉或緩衝已滿時丟棄並回傳錯誤；投遞是盡力而為的，
// 呼叫方不應因此中斷。
func (c *Client) Deliver(event interface{}) error {
	if c.state.Load() == stateClosed {
		return ErrClientClosed
	}

	env, ok := event.(OutEnvelope)
	if !ok {
		return errors.New("unsupported event type")
	}

	select {
	case <-c.done:
		return ErrClientClosed
	case c.send <- env:
		return nil
	default:
		logger.LogWarnf("連接發送緩衝已滿，丟棄事件: %s", env.Event)
		return ErrSendBufferFull
	}
}

// Run 啟動讀寫迴圈，阻塞直到連接結束.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)

	go c.writePump()
	c.readPump(ctx)
}

// readPump 讀取迴圈.
// 逐條解析事件信封並派發到中樞；單條事件的 panic 只回覆
// 通用錯誤，不中斷連接。
func (c *Client) readPump(ctx context.Context) {
	defer c.close(ctx)

	c.conn.SetReadLimit(maxMessageBytes())
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.LogWarnf("websocket 連接異常關閉: %v", err)
			}
			return
		}

		c.processEnvelope(ctx, raw)
	}
}

// processEnvelope 解析並派發單條事件.
func (c *Client) processEnvelope(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "處理事件時發生 panic: %v", r)
			_ = c.Deliver(newErrorEvent(ErrInternal, nil))
		}
	}()

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.LogWarnf("無法解析的事件信封: %v", err)
		return
	}

	switch env.Event {
	case EventUserJoin:
		var payload UserJoinPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			logger.LogWarnf("user_join payload 解析失敗: %v", err)
			return
		}
		if c.hub.HandleJoin(ctx, c, payload) {
			c.state.CompareAndSwap(stateConnected, stateIdentified)
			c.userID.Store(payload.UserID)
		}

	case EventSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			logger.LogWarnf("send_message payload 解析失敗: %v", err)
			return
		}
		c.hub.HandleSend(ctx, c, payload)

	default:
		logger.LogWarnf("未知的事件類型: %s", env.Event)
	}
}

// writePump 寫入迴圈，定期 ping 維持連接存活.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close 結束連接：通知中樞、更新在線狀態、釋放資源.
func (c *Client) close(ctx context.Context) {
	if c.state.Swap(stateClosed) == stateClosed {
		return
	}

	c.hub.HandleDisconnect(ctx, c)
	close(c.done)
	_ = c.conn.Close()
}

// Identified 回傳連接是否已完成用戶識別.
func (c *Client) Identified() bool {
	return c.state.Load() == stateIdentified
}

// UserID 回傳已識別的用戶 ID，未識別時為 0.
func (c *Client) UserID() int64 {
	return c.userID.Load()
}
