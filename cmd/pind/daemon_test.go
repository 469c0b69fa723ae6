// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	gc "gopkg.in/check.v1"

	"github.com/canonical/pinmanager/api/client/pins"
	"github.com/canonical/pinmanager/apiserver/params"
	"github.com/canonical/pinmanager/internal/config"
	loggertesting "github.com/canonical/pinmanager/internal/logger/testing"
	"github.com/canonical/pinmanager/internal/pool"
	"github.com/canonical/pinmanager/worker/signalwatcher"
)

// fakePool records the sticky flag calls it receives.
type fakePool struct {
	*httptest.Server

	mu    sync.Mutex
	calls []pool.StickyRequest
}

func newFakePool() *fakePool {
	p := &fakePool{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req pool.StickyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		p.calls = append(p.calls, req)
		p.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	return p
}

func (p *fakePool) recorded() []pool.StickyRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pool.StickyRequest(nil), p.calls...)
}

type daemonSuite struct {
	testing.IsolationSuite

	pool1, pool2 *fakePool
	signals      chan os.Signal
}

var _ = gc.Suite(&daemonSuite{})

func (s *daemonSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.pool1 = newFakePool()
	s.pool2 = newFakePool()
	s.signals = make(chan os.Signal, 1)
}

func (s *daemonSuite) TearDownTest(c *gc.C) {
	s.pool1.Close()
	s.pool2.Close()
	s.IsolationSuite.TearDownTest(c)
}

func (s *daemonSuite) config(c *gc.C) daemonConfig {
	return daemonConfig{
		Config: config.Config{
			ListenAddress:   "127.0.0.1:0",
			DatabasePath:    filepath.Join(c.MkDir(), "pins.db"),
			RemoteTimeout:   5 * time.Second,
			SweepInterval:   time.Hour,
			MoveParallelism: 2,
			Pools: map[string]string{
				"pool1": s.pool1.URL,
				"pool2": s.pool2.URL,
			},
			PoolBurst: 10,
		},
		Logger:  loggertesting.WrapCheckLog(c),
		Clock:   clock.WallClock,
		Signals: s.signals,
	}
}

func (s *daemonSuite) start(c *gc.C, cfg daemonConfig) (*daemon, *pins.Client) {
	d, err := newDaemon(context.Background(), cfg)
	c.Assert(err, jc.ErrorIsNil)
	client := pins.NewClient("http://"+d.Addr().String(), "alice", nil)
	return d, client
}

func (s *daemonSuite) stop(c *gc.C, d *daemon) {
	s.signals <- syscall.SIGTERM
	err := d.Wait()
	c.Check(err, jc.ErrorIs, signalwatcher.ErrTerminated)
}

func (s *daemonSuite) TestPinListMove(c *gc.C) {
	d, client := s.start(c, s.config(c))
	defer s.stop(c, d)
	ctx := context.Background()

	pinned, err := client.PinFile(ctx, "F", "pool1", time.Hour)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(pinned.State, gc.Equals, "PINNED")
	c.Check(pinned.Pool, gc.Equals, "pool1")
	c.Check(pinned.Expiration, gc.NotNil)

	calls := s.pool1.recorded()
	c.Assert(calls, gc.HasLen, 1)
	c.Check(calls[0].FileID, gc.Equals, "F")
	c.Check(calls[0].On, jc.IsTrue)

	listed, err := client.ListPins(ctx, "F", "")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(listed, gc.HasLen, 1)
	c.Check(listed[0].ID, gc.Equals, pinned.ID)

	moved, err := client.MovePins(ctx, "F", params.MovePinsArgs{
		SourcePool: "pool1",
		TargetPool: "pool2",
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(moved.Moved, gc.Equals, 1)

	target := s.pool2.recorded()
	c.Assert(target, gc.HasLen, 1)
	c.Check(target[0].On, jc.IsTrue)
	source := s.pool1.recorded()
	c.Assert(source, gc.HasLen, 2)
	c.Check(source[1].On, jc.IsFalse)
	c.Check(source[1].Owner, gc.Equals, calls[0].Owner)

	listed, err = client.ListPins(ctx, "F", "pool2")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(listed, gc.HasLen, 1)
	c.Check(listed[0].ID, gc.Equals, pinned.ID)
	c.Check(listed[0].State, gc.Equals, "PINNED")
}

func (s *daemonSuite) TestServesMetricsAndVersion(c *gc.C) {
	d, client := s.start(c, s.config(c))
	defer s.stop(c, d)

	_, err := client.PinFile(context.Background(), "F", "pool1", -1)
	c.Assert(err, jc.ErrorIsNil)

	v, err := client.Version(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(v, gc.Not(gc.Equals), "")

	resp, err := http.Get("http://" + d.Addr().String() + metricsPath)
	c.Assert(err, jc.ErrorIsNil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(string(body), jc.Contains, "pinmanager_operations_total")
	c.Check(string(body), jc.Contains, "pinmanager_sticky_calls_total")
	c.Check(string(body), jc.Contains, "go_goroutines")
}

func (s *daemonSuite) TestDataSurvivesRestart(c *gc.C) {
	cfg := s.config(c)
	d, client := s.start(c, cfg)
	pinned, err := client.PinFile(context.Background(), "F", "pool1", time.Hour)
	c.Assert(err, jc.ErrorIsNil)
	s.stop(c, d)

	d, client = s.start(c, cfg)
	defer s.stop(c, d)
	listed, err := client.ListPins(context.Background(), "F", "pool1")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(listed, gc.HasLen, 1)
	c.Check(listed[0].ID, gc.Equals, pinned.ID)
}

type keptExporter struct {
	*tracetest.InMemoryExporter
}

func (keptExporter) Shutdown(context.Context) error { return nil }

func (s *daemonSuite) TestTracesRequests(c *gc.C) {
	exporter := tracetest.NewInMemoryExporter()
	cfg := s.config(c)
	cfg.TraceEndpoint = "collector:4317"
	cfg.NewExporter = func(context.Context, string, bool) (sdktrace.SpanExporter, error) {
		return keptExporter{exporter}, nil
	}
	d, client := s.start(c, cfg)

	_, err := client.PinFile(context.Background(), "F", "pool1", time.Hour)
	c.Assert(err, jc.ErrorIsNil)
	s.stop(c, d)

	spans := exporter.GetSpans()
	c.Assert(spans, gc.HasLen, 1)
	c.Check(spans[0].Name, gc.Equals, "pin/pin-file")
}

func (s *daemonSuite) TestBadListenAddress(c *gc.C) {
	cfg := s.config(c)
	cfg.ListenAddress = "127.0.0.1:99999"
	_, err := newDaemon(context.Background(), cfg)
	c.Check(err, gc.ErrorMatches, `listening on "127.0.0.1:99999": .*`)
}
