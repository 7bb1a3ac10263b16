// main is the entry point of coursedesk, the command-line client for the
// course API. It keeps a local SQLite mirror of the data so the last
// known lists can be shown offline.
//
// STARTUP SEQUENCE:
//  1. Load configuration
//  2. Initialise the logger
//  3. Open the local cache
//  4. Build the API client, connectivity probe and reconcilers
//  5. Run the requested command
//
// USAGE:
//
//	coursedesk --config=config/local.yaml [--offline] <command> [args]
//
// Commands:
//
//	courses list                      refresh and print the course list
//	courses refresh                   refresh only; fails if the API call fails
//	courses watch [-interval 30s]     keep refreshing and print every change
//	courses get ID
//	courses create -image P -name N -description D -schedule S -professor P
//	courses update ID [-image P] [-name N] ...
//	courses delete ID
//	students list COURSE_ID
//	students create -course C -name N -email E [-phone P]
//	students update ID -course C [-name N] [-email E] [-phone P]
//	students delete ID COURSE_ID
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/moviles/coursedesk/internal/apiclient"
	"github.com/moviles/coursedesk/internal/apperrors"
	"github.com/moviles/coursedesk/internal/config"
	"github.com/moviles/coursedesk/internal/connectivity"
	"github.com/moviles/coursedesk/internal/logger"
	"github.com/moviles/coursedesk/internal/reconciler"
	"github.com/moviles/coursedesk/internal/storage/sqlite"
)

var errUsage = errors.New("usage: coursedesk [--offline] courses|students <command> [args]")

func main() {
	offline := flag.Bool("offline", false, "Never call the API; serve the local cache")

	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()
	if !flag.Parsed() {
		flag.Parse()
	}

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *offline, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, errUsage) || errors.Is(err, apperrors.ErrPreconditionFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// app bundles everything a command needs. It is built once in run and
// owned there; nothing is global.
type app struct {
	api      *apiclient.Client
	courses  *reconciler.CourseReconciler
	students *reconciler.StudentReconciler
	log      *slog.Logger
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, offline bool, args []string) error {
	if len(args) < 2 {
		return errUsage
	}

	// ── 3. Open the Local Cache ───────────────────────────────────────────
	store, err := sqlite.New(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Debug("storage initialised", slog.String("path", cfg.StoragePath))

	// ── 4. Wire Dependencies ──────────────────────────────────────────────
	var probe connectivity.Probe = connectivity.NewDialer(cfg.Probe, log)
	if offline {
		probe = connectivity.Static(false)
	}
	api := apiclient.New(cfg.API, nil, log)

	courses, err := reconciler.NewCourseReconciler(ctx, api, store.Courses(), store.Students(), probe, log)
	if err != nil {
		return err
	}
	defer courses.Close()

	students := reconciler.NewStudentReconciler(api, store.Students(), probe, log)
	defer students.Close()

	a := &app{api: api, courses: courses, students: students, log: log}

	// ── 5. Dispatch ───────────────────────────────────────────────────────
	switch args[0] {
	case "courses":
		return a.runCourses(ctx, args[1], args[2:])
	case "students":
		return a.runStudents(ctx, args[1], args[2:])
	default:
		return errUsage
	}
}
