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

// Package rpc implements a JSON-RPC 2.0 client over HTTP and WebSocket.
//
// The package covers exactly the client surface the facilitator needs to talk
// to a ledger node: single requests with context cancellation and deadline
// propagation. Server-side RPC and subscriptions are intentionally absent.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
)

// ErrNoResult is returned when the server responds with no result for a request.
var ErrNoResult = errors.New("no result in JSON-RPC response")

// Error wraps RPC errors, which contain an error code in addition to the message.
type Error interface {
	error
	ErrorCode() int // returns the code
}

// A DataError contains some data in addition to the error message.
type DataError interface {
	error
	ErrorData() interface{} // returns the error data
}

const vsn = "2.0"

type jsonrpcMessage struct {
	Version string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Error   *jsonError      `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type jsonError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (err *jsonError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("json-rpc error %d", err.Code)
	}
	return err.Message
}

func (err *jsonError) ErrorCode() int {
	return err.Code
}

func (err *jsonError) ErrorData() interface{} {
	return err.Data
}

// transport is implemented by the HTTP and WebSocket connections.
type transport interface {
	call(ctx context.Context, msg *jsonrpcMessage) (*jsonrpcMessage, error)
	close()
}

// Client represents a connection to an RPC server.
type Client struct {
	endpoint string
	idgen    uint64
	conn     transport
}

// Dial creates a new client for the given URL. The transport is selected by
// the URL scheme: "http", "https", "ws" and "wss" are supported.
func Dial(rawurl string) (*Client, error) {
	return DialContext(context.Background(), rawurl)
}

// DialContext creates a new RPC client, just like Dial.
// The context is used to cancel or time out the initial connection
// establishment. It does not affect subsequent interactions with the client.
func DialContext(ctx context.Context, rawurl string) (*Client, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		return &Client{endpoint: rawurl, conn: newHTTPConn(rawurl)}, nil
	case "ws", "wss":
		conn, err := newWebsocketConn(ctx, rawurl)
		if err != nil {
			return nil, err
		}
		return &Client{endpoint: rawurl, conn: conn}, nil
	default:
		return nil, fmt.Errorf("no known transport for URL scheme %q", u.Scheme)
	}
}

// Close closes the client, aborting any in-flight requests.
func (c *Client) Close() {
	c.conn.close()
}

// Call performs a JSON-RPC call with the given arguments and unmarshals into
// result if no error occurred.
//
// The result must be a pointer so that package json can unmarshal into it. You
// can also pass nil, in which case the result is ignored.
func (c *Client) Call(result interface{}, method string, args ...interface{}) error {
	return c.CallContext(context.Background(), result, method, args...)
}

// CallContext performs a JSON-RPC call with the given arguments. If the context is
// canceled before the call has successfully returned, CallContext returns immediately.
func (c *Client) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	msg, err := c.newMessage(method, args...)
	if err != nil {
		return err
	}
	resp, err := c.conn.call(ctx, msg)
	if err != nil {
		return err
	}
	switch {
	case resp.Error != nil:
		return resp.Error
	case len(resp.Result) == 0 || string(resp.Result) == "null":
		return ErrNoResult
	case result == nil:
		return nil
	default:
		return json.Unmarshal(resp.Result, result)
	}
}

func (c *Client) newMessage(method string, paramsIn ...interface{}) (*jsonrpcMessage, error) {
	id := atomic.AddUint64(&c.idgen, 1)
	msg := &jsonrpcMessage{Version: vsn, ID: json.RawMessage(fmt.Sprintf("%d", id)), Method: method}
	if paramsIn != nil { // prevent sending "params":null
		var err error
		if msg.Params, err = json.Marshal(paramsIn); err != nil {
			return nil, err
		}
	}
	return msg, nil
}
