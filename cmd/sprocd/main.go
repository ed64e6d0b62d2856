// Command sprocd is the process entry point for the dynamic
// stored-procedure runtime: it wires the module subsystem, dispatcher,
// journal queue, and debug surface together and runs until signaled.
// Structured the way the teacher's own daemon entry points are (a
// thin main that assembles long-lived subsystems and installs signal
// handling), scoped down from a clustered storage node to this single
// runtime's components.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sprocd/sprocd/cmn"
	"github.com/sprocd/sprocd/cmn/nlog"
	"github.com/sprocd/sprocd/debugsrv"
	"github.com/sprocd/sprocd/dispatch"
	"github.com/sprocd/sprocd/journal"
	"github.com/sprocd/sprocd/module"
)

func main() {
	cfg := cmn.DefaultConfig()

	resolver := module.NewPathResolver(nil, cfg.TmpDir)
	sub := module.NewSubsystem(resolver, cfg.TmpDir)
	stopGC := sub.Cache.StartOrphanGC()
	cmn.OnShutdown(stopGC)
	// disp is what the (out-of-scope) scripting host glue calls
	// through once it's wired in; the runtime's own job ends at
	// standing the subsystem up and exposing it for that purpose.
	disp := dispatch.NewDispatcher(sub)
	nlog.Infof("sprocd: dispatcher ready (%T)", disp)

	writer, err := journal.NewBuntWriter(cfg.TmpDir + "/sprocd-journal.db")
	if err != nil {
		nlog.Errorf("sprocd: failed to open journal store: %v", err)
		os.Exit(1)
	}
	cmn.OnShutdown(func() {
		if cerr := writer.Close(); cerr != nil {
			nlog.Warningf("sprocd: closing journal store: %v", cerr)
		}
	})

	q := journal.NewQueue(writer, cfg.JournalMaxSize, cfg.JournalMaxLen)

	dsrv := debugsrv.NewServer(":9480", sub, q)
	go func() {
		if err := dsrv.ListenAndServe(); err != nil {
			nlog.Warningf("sprocd: debugsrv stopped: %v", err)
		}
	}()
	cmn.OnShutdown(func() {
		if err := dsrv.Shutdown(); err != nil {
			nlog.Warningf("sprocd: shutting down debugsrv: %v", err)
		}
	})

	nlog.Infoln("sprocd: runtime started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	nlog.Infoln("sprocd: shutting down")
	cmn.Shutdown()
}
