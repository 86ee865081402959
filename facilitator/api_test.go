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

package facilitator

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/go-glue/accounts/abi"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/core/types"
	"github.com/probeum/go-glue/params"
	"github.com/probeum/go-glue/registry"
)

// fakeRegistryBackend scripts read-only contract calls by method selector
// and lets feedback transactions be forced to revert on chain.
type fakeRegistryBackend struct {
	returns   map[string][]byte // selector hex -> return data
	revertTxs bool
}

func (b *fakeRegistryBackend) CallContract(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
	if len(data) >= 4 {
		if ret, ok := b.returns[common.Bytes2Hex(data[:4])]; ok {
			return ret, nil
		}
	}
	return make([]byte, 64), nil
}

func (b *fakeRegistryBackend) Transact(_ context.Context, _ common.Address, _ *big.Int, _ []byte) (common.Hash, error) {
	return common.HexToHash("0xbeef"), nil
}

func (b *fakeRegistryBackend) WaitMined(_ context.Context, txHash common.Hash) (*types.SettlementReceipt, error) {
	status := types.ReceiptStatusConfirmed
	if b.revertTxs {
		status = types.ReceiptStatusFailed
	}
	return &types.SettlementReceipt{TxHash: txHash, Status: status}, nil
}

func (b *fakeRegistryBackend) Sender() common.Address {
	return common.HexToAddress("0x7777777777777777777777777777777777777777")
}

func selector(sig string) string {
	return common.Bytes2Hex(abi.MethodID(sig))
}

func boolWord(v bool) []byte {
	w := make([]byte, 32)
	if v {
		w[31] = 1
	}
	return w
}

// encodeAgentTuple builds the return data of getAgent and the resolvers:
// an AgentInfo struct (id, domain, address) behind an offset word.
func encodeAgentTuple(id uint64, domain string, addr common.Address) []byte {
	packed, err := abi.PackCall("x()", id, domain, addr)
	if err != nil {
		panic(err)
	}
	inner := packed[4:] // drop the selector, keep head and tail
	out := make([]byte, 32, 32+len(inner))
	out[31] = 32
	return append(out, inner...)
}

type apiEnv struct {
	srv     *httptest.Server
	backend *fakeBackend
	key     *ecdsa.PrivateKey
	now     time.Time
}

func newAPIEnv(t *testing.T, regBackend *fakeRegistryBackend) *apiEnv {
	t.Helper()
	fac, backend, key, now := testEnv(t)
	regs := map[string]Registries{
		"fuji": {
			Identity:   registry.NewIdentity(params.FujiChainConfig, regBackend, 0),
			Reputation: registry.NewReputation(params.FujiChainConfig, regBackend),
		},
	}
	srv := httptest.NewServer(NewServer(fac, regs, nil).Handler())
	t.Cleanup(srv.Close)
	return &apiEnv{srv: srv, backend: backend, key: key, now: now}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	blob, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(blob))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestAPISupported(t *testing.T) {
	env := newAPIEnv(t, &fakeRegistryBackend{})

	resp, err := http.Get(env.srv.URL + "/supported")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Networks []supportedNetwork `json:"networks"`
	}
	decode(t, resp, &body)
	require.Len(t, body.Networks, 1)
	assert.Equal(t, "fuji", body.Networks[0].Network)
	assert.Equal(t, params.FujiChainConfig.Token, body.Networks[0].Token)
}

func TestAPIVerify(t *testing.T) {
	env := newAPIEnv(t, &fakeRegistryBackend{})
	auth := signedAuth(t, env.key, env.now)

	resp := postJSON(t, env.srv.URL+"/verify", map[string]interface{}{
		"network":       "fuji",
		"authorization": auth,
	})
	var vr verifyResponse
	decode(t, resp, &vr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, vr.IsValid)
	require.NotNil(t, vr.Payer)
	assert.Equal(t, auth.From, *vr.Payer)
}

func TestAPIVerifyRejectionsInBody(t *testing.T) {
	env := newAPIEnv(t, &fakeRegistryBackend{})
	auth := signedAuth(t, env.key, env.now)
	env.backend.used[auth.Nonce] = true

	resp := postJSON(t, env.srv.URL+"/verify", map[string]interface{}{
		"network":       "fuji",
		"authorization": auth,
	})
	var vr verifyResponse
	decode(t, resp, &vr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, vr.IsValid)
	assert.Equal(t, types.KindNonceAlreadyUsed, vr.Error)
}

func TestAPIVerifyMalformedBody(t *testing.T) {
	env := newAPIEnv(t, &fakeRegistryBackend{})

	resp, err := http.Post(env.srv.URL+"/verify", "application/json", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	var eb errorBody
	decode(t, resp, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, types.KindMalformedRequest, eb.Error)

	// Authorization is required, not optional.
	resp = postJSON(t, env.srv.URL+"/verify", map[string]interface{}{"network": "fuji"})
	decode(t, resp, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, types.KindMalformedRequest, eb.Error)
}

func TestAPISettleAndReplay(t *testing.T) {
	env := newAPIEnv(t, &fakeRegistryBackend{})
	auth := signedAuth(t, env.key, env.now)

	resp := postJSON(t, env.srv.URL+"/settle", map[string]interface{}{
		"network":       "fuji",
		"authorization": auth,
	})
	var sr settleResponse
	decode(t, resp, &sr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, sr.Success)
	require.NotNil(t, sr.Receipt)
	assert.Equal(t, auth.Nonce, sr.Receipt.Nonce)
	assert.Equal(t, "fuji", sr.Receipt.Network)

	resp = postJSON(t, env.srv.URL+"/settle", map[string]interface{}{
		"network":       "fuji",
		"authorization": auth,
	})
	var eb errorBody
	decode(t, resp, &eb)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, types.KindNonceAlreadyUsed, eb.Error)
}

func TestAPIIdentity(t *testing.T) {
	agentTuple := encodeAgentTuple(3, "seller.example.xyz", common.HexToAddress("0x3333333333333333333333333333333333333333"))
	reg := &fakeRegistryBackend{returns: map[string][]byte{
		selector("agentExists(uint256)"):    boolWord(true),
		selector("getAgent(uint256)"):       agentTuple,
		selector("resolveByDomain(string)"): agentTuple,
	}}
	env := newAPIEnv(t, reg)

	resp, err := http.Get(env.srv.URL + "/identity/fuji/3")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var agent types.AgentIdentity
	decode(t, resp, &agent)
	assert.Equal(t, uint64(3), agent.ID)
	assert.Equal(t, "seller.example.xyz", agent.Domain)

	resp, err = http.Get(env.srv.URL + "/identity/fuji/seller.example.xyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(env.srv.URL + "/identity/nowhere/3")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPIReputation(t *testing.T) {
	serverRating := append(boolWord(true), boolWord(false)...)
	serverRating[63] = 95
	reg := &fakeRegistryBackend{returns: map[string][]byte{
		selector("getServerRating(uint256,uint256)"): serverRating,
		selector("getClientRating(uint256,uint256)"): make([]byte, 64),
	}}
	env := newAPIEnv(t, reg)

	resp, err := http.Get(env.srv.URL + "/reputation/fuji/1?peer=2")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rr reputationResponse
	decode(t, resp, &rr)
	require.NotNil(t, rr.ServerRating)
	assert.Equal(t, uint8(95), *rr.ServerRating)
	assert.Nil(t, rr.ClientRating)

	// The peer parameter is required.
	resp, err = http.Get(env.srv.URL + "/reputation/fuji/1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPIFeedback(t *testing.T) {
	env := newAPIEnv(t, &fakeRegistryBackend{})

	resp := postJSON(t, env.srv.URL+"/feedback", map[string]interface{}{
		"network":   "fuji",
		"direction": "client-server",
		"subjectId": 3,
		"score":     80,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAPIFeedbackUnauthorized(t *testing.T) {
	env := newAPIEnv(t, &fakeRegistryBackend{revertTxs: true})

	resp := postJSON(t, env.srv.URL+"/feedback", map[string]interface{}{
		"network":   "fuji",
		"direction": "client-server",
		"subjectId": 3,
		"score":     80,
	})
	var eb errorBody
	decode(t, resp, &eb)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, types.KindUnauthorizedRater, eb.Error)
}

func TestAPIDiscoveryEmpty(t *testing.T) {
	env := newAPIEnv(t, &fakeRegistryBackend{})

	resp, err := http.Get(env.srv.URL + "/discovery/agents")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Agents []json.RawMessage `json:"agents"`
	}
	decode(t, resp, &body)
	assert.Empty(t, body.Agents)
}

func TestAPIHealth(t *testing.T) {
	env := newAPIEnv(t, &fakeRegistryBackend{})

	resp, err := http.Get(env.srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}
