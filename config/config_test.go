// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config_test

import (
	"flag"
	"reflect"
	"testing"

	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/backend/datalad"
	"github.com/grailbio/dsfetch/backend/gitannex"
	"github.com/grailbio/dsfetch/config"
	_ "github.com/grailbio/dsfetch/config/all"
	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/dsfetch/lock"
	"github.com/grailbio/dsfetch/log"
)

type testBackend struct {
	config.Config
	arg string
}

func (b *testBackend) Backend() (dsfetch.Backend, error) {
	return nil, errors.New(b.arg)
}

func init() {
	config.Register(config.Backend, "test", "test", "", func(cfg config.Config, arg string) (config.Config, error) {
		return &testBackend{cfg, arg}, nil
	})
}

func TestConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
backend: test,arg1
`))
	if err != nil {
		t.Fatal(err)
	}
	b, err := cfg.Backend()
	if b != nil {
		t.Errorf("expected nil backend, got %v", b)
	}
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if got, want := err.Error(), "arg1"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	p, err := config.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg1, err := config.Parse(p)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, cfg1) {
		t.Error("cfg, cfg1 not equal after marshal roundtrip")
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Make(make(config.Base))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Backend(); err == nil {
		t.Error("expected error")
	}
	locker, err := cfg.Locker()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := locker, lock.Nop; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	policy, err := cfg.OriginPolicy()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := policy, dsfetch.OriginWarn; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestProviders(t *testing.T) {
	cfg, err := config.Parse([]byte(`
logger: stderr,debug
backend: gitannex,/usr/local/bin/git
lock: fslock
fslock: .my.lock
origin: error
`))
	if err != nil {
		t.Fatal(err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		t.Fatal(err)
	}
	if !logger.At(log.DebugLevel) {
		t.Error("expected debug logger")
	}
	b, err := cfg.Backend()
	if err != nil {
		t.Fatal(err)
	}
	annex, ok := b.(*gitannex.Backend)
	if !ok {
		t.Fatalf("expected *gitannex.Backend, got %T", b)
	}
	if got, want := annex.Git, "/usr/local/bin/git"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	locker, err := cfg.Locker()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := locker, lock.Locker(lock.File{Name: ".my.lock"}); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	policy, err := cfg.OriginPolicy()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := policy, dsfetch.OriginError; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestProviderErrors(t *testing.T) {
	for _, c := range []string{
		"backend: nonexistent",
		"origin: sometimes",
		"logger: stderr,verbose",
		"lock: 3",
	} {
		if _, err := config.Parse([]byte(c)); err == nil {
			t.Errorf("%s: expected error", c)
		}
	}
}

func TestKeyConfigOnce(t *testing.T) {
	var cfg config.Config = make(config.Base)
	cfg = &config.KeyConfig{Config: cfg, Key: config.Backend, Val: "datalad,/opt/bin/datalad"}
	cfg = &config.KeyConfig{Config: cfg, Key: config.Lock, Val: "mutex"}
	cfg, err := config.Make(cfg)
	if err != nil {
		t.Fatal(err)
	}
	once := config.Once(cfg)
	b1, err := once.Backend()
	if err != nil {
		t.Fatal(err)
	}
	b2, err := once.Backend()
	if err != nil {
		t.Fatal(err)
	}
	if b1 != b2 {
		t.Error("backend not memoized")
	}
	d, ok := b1.(*datalad.Backend)
	if !ok {
		t.Fatalf("expected *datalad.Backend, got %T", b1)
	}
	if got, want := d.Binary, "/opt/bin/datalad"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	l1, _ := once.Locker()
	l2, _ := once.Locker()
	if _, ok := l1.(*lock.Mutex); !ok || l1 != l2 {
		t.Errorf("expected a shared mutex locker, got %v, %v", l1, l2)
	}
	keys := make(config.Keys)
	if err := once.Marshal(keys); err != nil {
		t.Fatal(err)
	}
	if got, want := keys, (config.Keys{"backend": "datalad,/opt/bin/datalad", "lock": "mutex"}); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFlag(t *testing.T) {
	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	f := &config.Flag{Config: config.Base{"origin": "warn", "lock": "off"}}
	f.Init(flags, "")
	if err := flags.Parse([]string{"-origin", "ignore"}); err != nil {
		t.Fatal(err)
	}
	if got, want := f.Value("origin"), "ignore"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := f.Value("lock"), "off"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	cfg, err := config.Make(f)
	if err != nil {
		t.Fatal(err)
	}
	policy, err := cfg.OriginPolicy()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := policy, dsfetch.OriginIgnore; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
