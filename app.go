package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"bluescout/config"
	"bluescout/device"
	"bluescout/license"
	"bluescout/logger"
	"bluescout/prefs"
	"bluescout/session"
)

// app holds what every command shares.
type app struct {
	cfgPath  string
	cfg      *config.Config
	log      *logrus.Logger
	closeLog func() error
	prefs    prefs.Store
	gate     *license.Gate
	plat     *platform
}

func newApp(flagPath string) (*app, error) {
	path := config.ResolvePath(flagPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := prefs.Open(cfg.Prefs.Backend, cfg.Prefs.Path)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open preferences: %w", err)
	}

	gate, err := license.New(store)
	if err != nil {
		store.Close()
		closeLog()
		return nil, err
	}

	return &app{
		cfgPath:  path,
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		prefs:    store,
		gate:     gate,
	}, nil
}

func (a *app) component(name string) *logrus.Entry {
	return logger.Component(a.log, name)
}

// platform connects to the Bluetooth stack on first use.
func (a *app) platform() (*platform, error) {
	if a.plat != nil {
		return a.plat, nil
	}
	p, err := newPlatform(a.component("platform"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrRadioUnavailable, err)
	}
	a.plat = p
	return p, nil
}

func (a *app) scanner(duration time.Duration) (*session.Scanner, error) {
	p, err := a.platform()
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		duration = a.cfg.ScanDuration()
	}
	return session.NewScanner(p, device.NewStore(), duration, a.component("scan")), nil
}

func (a *app) explorer() (*session.Explorer, error) {
	p, err := a.platform()
	if err != nil {
		return nil, err
	}
	return session.NewExplorer(p, a.gate, a.component("explore")), nil
}

func (a *app) Close() error {
	var errs []error
	if a.plat != nil {
		errs = append(errs, a.plat.Close())
	}
	errs = append(errs, a.prefs.Close(), a.closeLog())
	return errors.Join(errs...)
}
