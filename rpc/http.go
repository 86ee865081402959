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
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"
)

const (
	maxResponseSize = 10 * 1024 * 1024
	defaultTimeout  = 10 * time.Second
)

// HTTPError is returned by client operations when the HTTP status code of the
// response is not a 2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (err HTTPError) Error() string {
	if len(err.Body) == 0 {
		return err.Status
	}
	return fmt.Sprintf("%v: %s", err.Status, err.Body)
}

type httpConn struct {
	client  *http.Client
	url     string
	closeCh chan struct{}
}

func newHTTPConn(url string) *httpConn {
	return &httpConn{
		client:  &http.Client{Timeout: defaultTimeout},
		url:     url,
		closeCh: make(chan struct{}),
	}
}

func (hc *httpConn) call(ctx context.Context, msg *jsonrpcMessage) (*jsonrpcMessage, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hc.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := hc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, HTTPError{
			Status:     resp.Status,
			StatusCode: resp.StatusCode,
			Body:       buf,
		}
	}
	var respmsg jsonrpcMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&respmsg); err != nil {
		return nil, err
	}
	return &respmsg, nil
}

func (hc *httpConn) close() {
	close(hc.closeCh)
}
