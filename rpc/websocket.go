// Copyright 2025 The go-glue Authors
// This file is part of the go-glue library.
//
// The go-glue library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-glue library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-glue library. If not, see <http://www.gnu.org/licenses/>.

package rpc

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsReadBuffer       = 1024
	wsWriteBuffer      = 1024
	wsMessageSizeLimit = 15 * 1024 * 1024
	wsHandshakeTimeout = 10 * time.Second
)

// wsConn performs JSON-RPC calls over a single WebSocket connection. Requests
// are serialized: the connection carries one call at a time, which matches how
// the facilitator issues ledger calls (each request handler owns its call).
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWebsocketConn(ctx context.Context, rawurl string) (*wsConn, error) {
	dialer := websocket.Dialer{
		ReadBufferSize:   wsReadBuffer,
		WriteBufferSize:  wsWriteBuffer,
		HandshakeTimeout: wsHandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, rawurl, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: bad handshake (HTTP %d)", resp.StatusCode)
		}
		return nil, err
	}
	conn.SetReadLimit(wsMessageSizeLimit)
	return &wsConn{conn: conn}, nil
}

func (wc *wsConn) call(ctx context.Context, msg *jsonrpcMessage) (*jsonrpcMessage, error) {
	wc.mu.Lock()
	defer wc.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultTimeout)
	}
	wc.conn.SetWriteDeadline(deadline)
	if err := wc.conn.WriteJSON(msg); err != nil {
		return nil, err
	}
	wc.conn.SetReadDeadline(deadline)
	for {
		var resp jsonrpcMessage
		if err := wc.conn.ReadJSON(&resp); err != nil {
			return nil, err
		}
		// Discard stray responses from earlier timed-out calls.
		if bytes.Equal(resp.ID, msg.ID) {
			return &resp, nil
		}
	}
}

func (wc *wsConn) close() {
	wc.conn.Close()
}
