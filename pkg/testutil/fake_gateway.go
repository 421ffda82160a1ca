package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transaction"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transactionSigner"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/util"
)

const (
	FakeGatewayPrice  = "65595508"
	VerificationError = "Transaction verification failed."
)

// FakeAnchor is the anchor served by FakeGateway
var FakeAnchor = util.B64UrlEncode([]byte("fake-gateway-anchor-0123456789ab"))

// FakeGateway is an in-process gateway. It independently decodes and verifies every
// submitted transaction and serves accepted data back.
type FakeGateway struct {
	Server *httptest.Server
	URL    string

	mu          sync.Mutex
	txs         map[string]*transaction.SignedTransaction
	confirmed   map[string]bool
	submitCode  int
	submitBody  string
	submissions int
}

// NewFakeGateway starts a gateway that is shut down when the test ends
func NewFakeGateway(t testing.TB) *FakeGateway {
	g := &FakeGateway{
		txs:       make(map[string]*transaction.SignedTransaction),
		confirmed: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /price/{size}", g.handlePrice)
	mux.HandleFunc("GET /tx_anchor", g.handleAnchor)
	mux.HandleFunc("POST /tx", g.handleSubmit)
	mux.HandleFunc("GET /tx/{id}/status", g.handleStatus)
	mux.HandleFunc("GET /wallet/{address}/balance", g.handleBalance)
	mux.HandleFunc("GET /{id}", g.handleData)

	g.Server = httptest.NewServer(mux)
	g.URL = g.Server.URL
	t.Cleanup(g.Server.Close)
	return g
}

// FailSubmissions makes POST /tx answer with code and body without verifying. A zero
// code restores normal behaviour.
func (g *FakeGateway) FailSubmissions(code int, body string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitCode = code
	g.submitBody = body
}

// Confirm marks an accepted transaction as mined
func (g *FakeGateway) Confirm(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirmed[id] = true
}

// Transaction returns an accepted transaction by id
func (g *FakeGateway) Transaction(id string) (*transaction.SignedTransaction, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tx, ok := g.txs[id]
	return tx, ok
}

// Submissions counts POST /tx requests, accepted or not
func (g *FakeGateway) Submissions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submissions
}

func (g *FakeGateway) handlePrice(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, FakeGatewayPrice)
}

func (g *FakeGateway) handleAnchor(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, FakeAnchor)
}

func (g *FakeGateway) handleSubmit(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.submissions++
	code, body := g.submitCode, g.submitBody
	g.mu.Unlock()

	if code != 0 {
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
		return
	}

	var wire transaction.Wire
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		http.Error(w, "Invalid JSON.", http.StatusBadRequest)
		return
	}
	tx, err := transaction.FromWire(&wire)
	if err == nil {
		err = transactionSigner.Verify(tx)
	}
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, VerificationError)
		return
	}

	g.mu.Lock()
	_, exists := g.txs[tx.ID()]
	g.txs[tx.ID()] = tx
	g.mu.Unlock()

	if exists {
		w.WriteHeader(http.StatusAlreadyReported)
		_, _ = io.WriteString(w, "Transaction already processed.")
		return
	}
	_, _ = io.WriteString(w, "OK")
}

func (g *FakeGateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	g.mu.Lock()
	_, known := g.txs[id]
	confirmed := g.confirmed[id]
	g.mu.Unlock()

	switch {
	case !known:
		http.Error(w, "Not Found.", http.StatusNotFound)
	case confirmed:
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"block_height":1,"block_indep_hash":"fake","number_of_confirmations":1}`)
	default:
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, "Pending")
	}
}

func (g *FakeGateway) handleBalance(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "0")
}

func (g *FakeGateway) handleData(w http.ResponseWriter, r *http.Request) {
	tx, ok := g.Transaction(r.PathValue("id"))
	if !ok {
		http.Error(w, "Not Found.", http.StatusNotFound)
		return
	}
	_, _ = w.Write(tx.Data())
}
