package primary

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"carrytrader/internal/og"
	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"
	wsm "carrytrader/pkg/websocket"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

const instrumentsBody = `{"status":"OK","instruments":[
{"instrumentId":{"marketId":"ROFX","symbol":"GGAL/DIC23"},"segment":{"marketSegmentId":"DDF","marketId":"ROFX"},
"cficode":"FXXXSX","currency":"ARS","underlying":"GGAL","maturityDate":"20231229","minPriceIncrement":0.5,
"tickSize":1,"lowLimitPrice":10,"highLimitPrice":1000,"contractMultiplier":100,"minTradeVolume":1,
"maxTradeVolume":500,"instrumentPricePrecision":1,"instrumentSizePrecision":0,
"orderTypes":["LIMIT","MARKET"],"timesInForce":["DAY","IOC"]},
{"instrumentId":{"marketId":"ROFX","symbol":""}}]}`

type broker struct {
	t         *testing.T
	srv       *httptest.Server
	auths     atomic.Int32
	expire    atomic.Bool
	lastQuery atomic.Value
	ws        func(conn *websocket.Conn)
}

func newBroker(t *testing.T) *broker {
	b := &broker{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/getToken", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if r.Header.Get(_headerUsername) != "user" || r.Header.Get(_headerPassword) != "pass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.auths.Add(1)
		w.Header().Set(_headerToken, "token")
	})
	mux.HandleFunc("/rest/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(_headerToken) != "token" || b.expire.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.lastQuery.Store(r.URL.Query())
		switch r.URL.Path {
		case "/rest/instruments/details":
			_, _ = w.Write([]byte(instrumentsBody))
		case "/rest/order/newSingleOrder":
			if r.URL.Query().Get("symbol") == "BAD" {
				_, _ = w.Write([]byte(`{"status":"ERROR","message":"Instrument not found","description":"BAD"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"OK","order":{"clientId":"cl-1","proprietary":"PBCP"}}`))
		case "/rest/order/cancelById":
			_, _ = w.Write([]byte(`{"status":"OK","order":{"clientId":"cl-2","proprietary":"PBCP"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if b.ws == nil || r.Header.Get(_headerToken) != "token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		b.ws(conn)
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *broker) config() Config {
	return Config{
		BaseURL:       b.srv.URL,
		WSURL:         "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/ws",
		Username:      "user",
		Password:      "pass",
		Account:       "REM1234",
		Timeout:       time.Second,
		MaxReconnects: 2,
		Backoff:       wsm.Backoff{Min: time.Millisecond, Max: 2 * time.Millisecond, Factor: 2},
	}
}

func lastQuery(t *testing.T, b *broker) url.Values {
	q, ok := b.lastQuery.Load().(url.Values)
	require.True(t, ok)
	return q
}

func TestInstruments(t *testing.T) {
	b := newBroker(t)
	g, err := New(b.config(), nil)
	require.NoError(t, err)

	specs, err := g.Instruments(t.Context())
	require.NoError(t, err)
	require.Len(t, specs, 1)

	s := specs[0]
	assert.Equal(t, "GGAL/DIC23", s.Symbol)
	assert.Equal(t, "ROFX", s.Market)
	assert.Equal(t, "DDF", s.Segment)
	assert.Equal(t, "GGAL", s.UnderlyingSymbol)
	assert.Equal(t, 0.5, s.TickSize)
	assert.Equal(t, 10.0, s.PriceMin)
	assert.Equal(t, 1000.0, s.PriceMax)
	assert.Equal(t, 100.0, s.ContractMultiplier)
	assert.Equal(t, 1.0, s.VolumeMin)
	assert.Equal(t, 500.0, s.VolumeMax)
	assert.Equal(t, int32(1), s.PriceDecimals)
	assert.Equal(t, []string{"LIMIT", "MARKET"}, s.OrderTypes)
	assert.Equal(t, time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), s.MaturityDate)
	assert.EqualValues(t, 1, b.auths.Load())
}

func TestSubmit(t *testing.T) {
	b := newBroker(t)
	g, err := New(b.config(), nil)
	require.NoError(t, err)
	_, err = g.Instruments(t.Context())
	require.NoError(t, err)

	limit, err := schema.PlaceOrder(schema.NewOrderParams{
		Symbol: "GGAL/DIC23", Side: schema.OrderSideBuy, Size: 2, Price: 100.26,
	})
	require.NoError(t, err)
	resp := g.Submit(t.Context(), limit)
	require.True(t, resp.OK(), resp.Status)
	assert.Equal(t, "cl-1", resp.BrokerOrderID)
	assert.Equal(t, "PBCP", resp.ProprietaryID)

	q := lastQuery(t, b)
	assert.Equal(t, "ROFX", q.Get("marketId"))
	assert.Equal(t, "GGAL/DIC23", q.Get("symbol"))
	assert.Equal(t, "100.5", q.Get("price"))
	assert.Equal(t, "2", q.Get("orderQty"))
	assert.Equal(t, "LIMIT", q.Get("ordType"))
	assert.Equal(t, "BUY", q.Get("side"))
	assert.Equal(t, "DAY", q.Get("timeInForce"))
	assert.Equal(t, "REM1234", q.Get("account"))

	market, err := schema.PlaceOrder(schema.NewOrderParams{Symbol: "GGAL/DIC23", Side: schema.OrderSideSell, Size: 1})
	require.NoError(t, err)
	require.True(t, g.Submit(t.Context(), market).OK())
	q = lastQuery(t, b)
	assert.Equal(t, "MARKET", q.Get("ordType"))
	assert.False(t, q.Has("price"))

	cancel, err := schema.Cancel("cl-1", "")
	require.NoError(t, err)
	resp = g.Submit(t.Context(), cancel)
	require.True(t, resp.OK())
	q = lastQuery(t, b)
	assert.Equal(t, "cl-1", q.Get("clOrdId"))
	assert.Equal(t, "PBCP", q.Get("proprietary"))

	modify, err := schema.Modify(schema.ModifyParams{OrderID: "cl-1", Price: 1})
	require.NoError(t, err)
	assert.Equal(t, og.StatusNotImplemented, g.Submit(t.Context(), modify).Status)
}

func TestSubmitRejected(t *testing.T) {
	b := newBroker(t)
	g, err := New(b.config(), nil)
	require.NoError(t, err)

	o, err := schema.PlaceOrder(schema.NewOrderParams{Symbol: "BAD", Side: schema.OrderSideBuy, Size: 1})
	require.NoError(t, err)
	resp := g.Submit(t.Context(), o)
	assert.False(t, resp.OK())
	assert.Empty(t, resp.BrokerOrderID)
	assert.Contains(t, resp.Status, "Instrument not found")
}

func TestSubmitReauthenticates(t *testing.T) {
	b := newBroker(t)
	g, err := New(b.config(), nil)
	require.NoError(t, err)

	o, err := schema.PlaceOrder(schema.NewOrderParams{Symbol: "GGAL/DIC23", Side: schema.OrderSideBuy, Size: 1})
	require.NoError(t, err)
	require.True(t, g.Submit(t.Context(), o).OK())

	b.expire.Store(true)
	require.True(t, g.Submit(t.Context(), o).OK())
	assert.EqualValues(t, 2, b.auths.Load())
}

func TestSubmitBadCredentials(t *testing.T) {
	b := newBroker(t)
	cfg := b.config()
	cfg.Password = "wrong"
	g, err := New(cfg, nil)
	require.NoError(t, err)

	o, err := schema.PlaceOrder(schema.NewOrderParams{Symbol: "GGAL/DIC23", Side: schema.OrderSideBuy, Size: 1})
	require.NoError(t, err)
	resp := g.Submit(t.Context(), o)
	assert.False(t, resp.OK())
	assert.Empty(t, resp.BrokerOrderID)
}

func TestFeed(t *testing.T) {
	b := newBroker(t)
	subscribed := make(chan []string, 2)
	b.ws = func(conn *websocket.Conn) {
		var got []string
		for range 2 {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			got = append(got, string(msg))
		}
		subscribed <- got

		for _, msg := range []string{
			`{"type":"Md","timestamp":1700000000000,"instrumentId":{"marketId":"ROFX","symbol":"GGAL/DIC23"},
"marketData":{"BI":[{"price":99,"size":3}],"OF":[{"price":101,"size":4}],"LA":{"price":100,"size":1,"date":1699999999000}}}`,
			`{"type":"or","orderReport":{"orderId":"1","clOrdId":"cl-1","proprietary":"PBCP","status":"FILLED","cumQty":1}}`,
			`{"status":"ERROR","message":"bad product","description":"NOPE"}`,
			`{"type":"unknown"}`,
		} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}

	md := make(chan schema.MarketDataEvent, 1)
	reports := make(chan schema.OrderReport, 1)
	errs := make(chan schema.ErrorEvent, 1)
	handlers := og.Handlers{
		OnMarketData:  func(ev schema.MarketDataEvent) { md <- ev },
		OnOrderUpdate: func(r schema.OrderReport) { reports <- r },
		OnError:       func(ev schema.ErrorEvent) { errs <- ev },
		OnFatal:       func(err error) { t.Errorf("unexpected fatal: %v", err) },
	}
	g, err := New(b.config(), nil)
	require.NoError(t, err)
	require.NoError(t, g.Subscribe(t.Context(), []string{"GGAL/DIC23"}, og.DefaultEntries, og.DefaultDepth))

	done := make(chan error, 1)
	go func() { done <- g.Run(t.Context(), handlers) }()

	select {
	case got := <-subscribed:
		assert.Contains(t, got[0], `"type":"os"`)
		assert.Contains(t, got[0], `"REM1234"`)
		assert.Contains(t, got[1], `"type":"smd"`)
		assert.Contains(t, got[1], `"GGAL/DIC23"`)
		assert.Contains(t, got[1], `"depth":5`)
	case <-time.After(3 * time.Second):
		t.Fatal("no subscription received")
	}

	select {
	case ev := <-md:
		assert.Equal(t, "GGAL/DIC23", ev.InstrumentID.Symbol)
		require.Len(t, ev.MarketData.Bids, 1)
		assert.Equal(t, 99.0, ev.MarketData.Bids[0].Price)
		require.NotNil(t, ev.MarketData.Last)
		assert.Equal(t, 100.0, ev.MarketData.Last.Price)
	case <-time.After(3 * time.Second):
		t.Fatal("no market data")
	}
	select {
	case r := <-reports:
		assert.Equal(t, "cl-1", r.ClOrdID)
		assert.Equal(t, "FILLED", r.Status)
	case <-time.After(3 * time.Second):
		t.Fatal("no order report")
	}
	select {
	case ev := <-errs:
		assert.Equal(t, "bad product", ev.Message)
	case <-time.After(3 * time.Second):
		t.Fatal("no error event")
	}

	require.NoError(t, g.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop")
	}
	assert.True(t, errors.Is(g.Subscribe(t.Context(), []string{"X"}, nil, 0), exception.ErrConnectionClose))
}

func TestFeedGiveUp(t *testing.T) {
	b := newBroker(t)
	fatal := make(chan error, 1)
	g, err := New(b.config(), nil)
	require.NoError(t, err)

	require.Error(t, g.Run(t.Context(), og.Handlers{OnFatal: func(err error) { fatal <- err }}))
	select {
	case err := <-fatal:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("fatal not reported")
	}
}
