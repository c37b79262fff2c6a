package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bluescout/device"
	"bluescout/license"
	"bluescout/session"
	"bluescout/tracking"
	"bluescout/tui"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "--help", "-h", "help":
		showUsage()
		return
	case "scan":
		err = runScan(ctx, args)
	case "paired":
		err = runPaired(ctx, args)
	case "explore":
		err = runExplore(ctx, args)
	case "activate":
		err = runActivate(args)
	case "track":
		err = runTrack(ctx, args)
	case "dashboard":
		err = runDashboard(ctx, args)
	case "status":
		err = runStatus(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'bluescout help' for usage information.\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		if errors.Is(err, license.ErrPremiumRequired) {
			fmt.Fprintln(os.Stderr, "Activate premium with: bluescout activate <key>")
		}
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`bluescout - Bluetooth device scanner and GATT auditor

USAGE:
    bluescout COMMAND [FLAGS]

COMMANDS:
    scan        Scan for nearby devices
    paired      List devices paired with this host
    explore     Connect to a device and audit its GATT table (premium)
    activate    Activate premium with a license key
    track       Scan on a schedule and alert on nearby devices (premium)
    dashboard   Live device table
    status      Show configuration, license and radio state

FLAGS:
    -config PATH   Config file (default ./bluescout.yaml, env BLUESCOUT_CONFIG)

EXAMPLES:
    bluescout scan -duration 30s -export scan.json
    bluescout explore AA:BB:CC:DD:EE:FF
    bluescout activate NSBT-XXXX-XXXX-XXXX-XXXX`)
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg := fs.String("config", "", "config file path")
	return fs, cfg
}

func openApp(path string) (*app, func(), error) {
	a, err := newApp(path)
	if err != nil {
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(); err != nil {
			a.log.WithError(err).Warn("shutdown")
		}
	}, nil
}

// scanOnce runs a full scan and returns its snapshot. Cancelling ctx ends the
// scan early and keeps what was seen.
func scanOnce(ctx context.Context, sc *session.Scanner) ([]device.Record, error) {
	if err := sc.Start(ctx); err != nil {
		return nil, err
	}
	select {
	case <-sc.Done():
	case <-ctx.Done():
		if err := sc.Stop(); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return sc.Devices(), nil
}

func runScan(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("scan")
	duration := fs.Duration("duration", 0, "scan duration (default from config)")
	export := fs.String("export", "", "write the export document to this file")
	asJSON := fs.Bool("json", false, "print the export document instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, done, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer done()

	sc, err := a.scanner(*duration)
	if err != nil {
		return err
	}
	records, err := scanOnce(ctx, sc)
	if err != nil {
		return err
	}

	now := time.Now()
	if *export != "" {
		if err := device.SaveExport(*export, records, now); err != nil {
			return err
		}
		a.component("scan").WithField("path", *export).Info("exported")
	}
	if *asJSON {
		return device.WriteExport(os.Stdout, records, now)
	}
	fmt.Println(renderDevices(records))
	fmt.Println(renderStats(device.Stats(records)))
	return nil
}

func runPaired(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("paired")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, done, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer done()

	sc, err := a.scanner(0)
	if err != nil {
		return err
	}
	records, err := sc.Paired(ctx)
	if err != nil {
		return err
	}
	fmt.Println(renderDevices(records))
	return nil
}

func runExplore(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("explore")
	timeout := fs.Duration("timeout", 30*time.Second, "give up after this long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: bluescout explore [-timeout d] <address>")
	}
	addr := strings.ToUpper(fs.Arg(0))

	a, done, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer done()

	if err := a.gate.Require(session.FeatureExplore); err != nil {
		return err
	}
	ex, err := a.explorer()
	if err != nil {
		return err
	}
	defer ex.Close()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	go func() {
		for u := range ex.Updates() {
			a.component("explore").WithFields(logrus.Fields{
				"state":    u.State.String(),
				"progress": u.Progress,
			}).Debug("update")
		}
	}()

	services, report, err := ex.Explore(ctx, addr)
	if err != nil {
		return err
	}
	fmt.Println(renderTree(addr, services))
	fmt.Println(renderReport(report))
	return nil
}

func runActivate(args []string) error {
	fs, cfgPath := newFlagSet("activate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: bluescout activate <key>")
	}

	a, done, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer done()

	ok, msg := a.gate.Activate(strings.ToUpper(strings.TrimSpace(fs.Arg(0))))
	if !ok {
		return errors.New(msg)
	}
	fmt.Println(msg)
	return nil
}

func runTrack(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("track")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, done, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer done()

	if err := a.gate.Require(tracking.FeatureTracking); err != nil {
		return err
	}
	sc, err := a.scanner(0)
	if err != nil {
		return err
	}

	tc := a.cfg.Tracking
	tracker := tracking.New(tc.HistorySize, tc.AlertDistance, a.component("tracking"))
	alerts := make(chan tracking.Alert, 16)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(alerts)
		return tracker.Run(ctx, a.gate, tc.Schedule,
			func(ctx context.Context) ([]device.Record, error) { return scanOnce(ctx, sc) },
			func(al tracking.Alert) { alerts <- al })
	})
	g.Go(func() error {
		for al := range alerts {
			fmt.Printf("[%s] proximity: %s\n", al.At.Format(time.TimeOnly), al)
		}
		return nil
	})
	err = g.Wait()
	fmt.Println(renderTracked(tracker))
	return err
}

func runDashboard(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("dashboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, done, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer done()

	sc, err := a.scanner(0)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(tui.Deps{
		Ctx:       ctx,
		Scanner:   sc,
		ExportDir: a.cfg.Export.Dir,
		Premium:   a.gate.IsPremium(),
	})
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		_, err := prog.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		return sc.Stop()
	})
	return g.Wait()
}

func runStatus(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, done, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer done()

	tier := "free"
	if a.gate.IsPremium() {
		tier = "premium"
	}
	radio := "ready"
	if p, err := a.platform(); err != nil {
		radio = err.Error()
	} else {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := p.Ready(rctx); err != nil {
			radio = err.Error()
		}
	}

	fmt.Println(renderKV([][2]string{
		{"config", a.cfgPath},
		{"license", tier},
		{"preferences", a.cfg.Prefs.Backend + " " + a.cfg.Prefs.Path},
		{"scan duration", a.cfg.ScanDuration().String()},
		{"tracking", a.cfg.Tracking.Schedule},
		{"radio", radio},
	}))
	if !a.gate.IsPremium() {
		fmt.Printf("\nActivate premium with: bluescout activate %s\n", "NSBT-XXXX-XXXX-XXXX-XXXX")
	}
	return nil
}
