// Copyright 2018 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpserver

import (
	"io"
	"net"
	"net/http"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	loggertesting "github.com/canonical/pinmanager/internal/logger/testing"
)

type workerSuite struct {
	testing.IsolationSuite

	listener net.Listener
	client   *http.Client
}

var _ = gc.Suite(&workerSuite{})

func (s *workerSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)

	var err error
	s.listener, err = net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, jc.ErrorIsNil)
	s.client = &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
}

func (s *workerSuite) TearDownTest(c *gc.C) {
	_ = s.listener.Close()
	s.IsolationSuite.TearDownTest(c)
}

func (s *workerSuite) config(c *gc.C) Config {
	return Config{
		Listener: s.listener,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "pong "+r.URL.Path)
		}),
		Logger: loggertesting.WrapCheckLog(c),
	}
}

func (s *workerSuite) get(c *gc.C, w *Worker, path string) string {
	resp, err := s.client.Get("http://" + w.Addr().String() + path)
	c.Assert(err, jc.ErrorIsNil)
	defer resp.Body.Close()
	c.Assert(resp.StatusCode, gc.Equals, http.StatusOK)
	body, err := io.ReadAll(resp.Body)
	c.Assert(err, jc.ErrorIsNil)
	return string(body)
}

func (s *workerSuite) TestValidate(c *gc.C) {
	for i, mutate := range []func(*Config){
		func(cfg *Config) { cfg.Listener = nil },
		func(cfg *Config) { cfg.Handler = nil },
		func(cfg *Config) { cfg.Logger = nil },
		func(cfg *Config) { cfg.MaxConnections = -1 },
		func(cfg *Config) { cfg.ShutdownTimeout = -1 },
	} {
		c.Logf("test %d", i)
		cfg := s.config(c)
		mutate(&cfg)
		_, err := NewWorker(cfg)
		c.Check(err, jc.Satisfies, errors.IsNotValid)
	}
}

func (s *workerSuite) TestServes(c *gc.C) {
	w, err := NewWorker(s.config(c))
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.CleanKill(c, w)

	c.Check(s.get(c, w, "/ping"), gc.Equals, "pong /ping")
}

func (s *workerSuite) TestServesWithConnectionLimit(c *gc.C) {
	cfg := s.config(c)
	cfg.MaxConnections = 1
	w, err := NewWorker(cfg)
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.CleanKill(c, w)

	for i := 0; i < 3; i++ {
		c.Check(s.get(c, w, "/ping"), gc.Equals, "pong /ping")
	}
}

func (s *workerSuite) TestKillClosesListener(c *gc.C) {
	w, err := NewWorker(s.config(c))
	c.Assert(err, jc.ErrorIsNil)
	addr := w.Addr().String()

	workertest.CleanKill(c, w)

	_, err = s.client.Get("http://" + addr + "/ping")
	c.Check(err, gc.NotNil)
}

func (s *workerSuite) TestListenerFailureKillsWorker(c *gc.C) {
	w, err := NewWorker(s.config(c))
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.DirtyKill(c, w)

	c.Assert(s.listener.Close(), jc.ErrorIsNil)

	err = workertest.CheckKilled(c, w)
	c.Check(err, gc.ErrorMatches, "serving http: .*closed.*")
}
