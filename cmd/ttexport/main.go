package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/noah-isme/untapped/internal/app"
	"github.com/noah-isme/untapped/internal/models"
	"github.com/noah-isme/untapped/internal/service"
	"github.com/noah-isme/untapped/internal/untis"
	"github.com/noah-isme/untapped/pkg/config"
	"github.com/noah-isme/untapped/pkg/logger"
)

type options struct {
	kind     string
	name     string
	start    string
	end      string
	out      string
	format   string
	teachers []string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ttexport:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	v := viper.New()
	fs := pflag.NewFlagSet("ttexport", pflag.ContinueOnError)
	var opts options
	fs.StringVar(&opts.kind, "kind", "groups", "element kind: groups, teachers, subjects or rooms")
	fs.StringVar(&opts.name, "name", "", "element name; a glob for groups, subjects and rooms, \"Surname, Forename\" (either order is tried) or free text for teachers")
	fs.StringVar(&opts.start, "start", "", "first day (yyyy-mm-dd), defaults to today")
	fs.StringVar(&opts.end, "end", "", "last day (yyyy-mm-dd), defaults to six days after start")
	fs.StringVarP(&opts.out, "out", "o", "-", "output file, - for stdout")
	fs.StringVar(&opts.format, "format", "csv", "csv or pdf")
	fs.StringArrayVar(&opts.teachers, "teacher", nil, "teacher to look up before exporting, \"Surname, Forename\" or free text, repeatable")
	fs.String("server", "", "WebUntis server")
	fs.String("school", "", "school name")
	fs.String("user", "", "user name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for key, flag := range map[string]string{"UNTIS_SERVER": "server", "UNTIS_SCHOOL": "school", "UNTIS_USER": "user"} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return err
		}
	}

	cfg, err := config.LoadWith(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Prefetch.Workers = 0
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	q, format, err := opts.query()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	if _, err := a.Sessions.Login(ctx, untis.Credentials{}, false); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer a.Sessions.Logout(ctx) //nolint:errcheck

	for _, raw := range opts.teachers {
		t, ok, err := findTeacher(ctx, a.Teachers, raw)
		if err != nil {
			return fmt.Errorf("search teacher %q: %w", raw, err)
		}
		if !ok {
			logr.Warn("teacher not found", zap.String("name", raw))
			continue
		}
		logr.Info("teacher found", zap.Int64("id", t.ID), zap.String("name", t.FullName()))
	}

	q.ID, err = resolveID(ctx, a, q.Kind, opts.name)
	if err != nil {
		return err
	}

	return writeOutput(opts.out, func(w io.Writer) error {
		return a.Exports.Write(ctx, q, format, w)
	})
}

// writeOutput renders to stdout for "-" or an empty path. Otherwise it
// renders into a temporary file next to path and moves it into place only
// when render and close both succeed, so a failed export leaves path as it was.
func writeOutput(path string, render func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return render(os.Stdout)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = render(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}

type teacherFinder interface {
	Search(ctx context.Context, surname, forename string, tryReversed bool) (models.Teacher, bool, error)
	SearchFreeText(ctx context.Context, text string) (models.Teacher, bool, error)
}

// findTeacher searches "Surname, Forename" in both orders and hands anything
// without a comma to the free-text search.
func findTeacher(ctx context.Context, dir teacherFinder, name string) (models.Teacher, bool, error) {
	if surname, forename, ok := strings.Cut(name, ","); ok {
		return dir.Search(ctx, strings.TrimSpace(surname), strings.TrimSpace(forename), true)
	}
	return dir.SearchFreeText(ctx, name)
}

func (o options) query() (models.TimetableQuery, service.ExportFormat, error) {
	kind, err := models.ParseKind(o.kind)
	if err != nil {
		return models.TimetableQuery{}, "", err
	}
	if _, ok := models.ElementTypeFor(kind); !ok {
		return models.TimetableQuery{}, "", fmt.Errorf("no timetable for kind %s", kind)
	}
	if strings.TrimSpace(o.name) == "" {
		return models.TimetableQuery{}, "", fmt.Errorf("--name is required")
	}
	format, err := service.ParseExportFormat(o.format)
	if err != nil {
		return models.TimetableQuery{}, "", err
	}

	today := time.Now()
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)
	if o.start != "" {
		if start, err = time.ParseInLocation(models.DateLayout, o.start, time.Local); err != nil {
			return models.TimetableQuery{}, "", fmt.Errorf("--start: %w", err)
		}
	}
	end := start.AddDate(0, 0, 6)
	if o.end != "" {
		if end, err = time.ParseInLocation(models.DateLayout, o.end, time.Local); err != nil {
			return models.TimetableQuery{}, "", fmt.Errorf("--end: %w", err)
		}
	}
	return models.TimetableQuery{Start: start, End: end, Kind: kind}, format, nil
}

func resolveID(ctx context.Context, a *app.App, kind models.Kind, name string) (int64, error) {
	if kind == models.KindTeachers {
		t, ok, err := findTeacher(ctx, a.Teachers, name)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("no teacher named %q", name)
		}
		return t.ID, nil
	}

	var (
		matches []models.Entity
		err     error
	)
	if kind == models.KindGroups {
		matches, err = a.Refs.FindGroups(ctx, name, "")
	} else {
		matches, err = a.Refs.Find(ctx, kind, name)
	}
	if err != nil {
		return 0, err
	}
	switch len(matches) {
	case 0:
		return 0, fmt.Errorf("no %s matches %q", kind, name)
	case 1:
		return matches[0].ID, nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.DisplayName()
	}
	return 0, fmt.Errorf("%q matches %d %s: %s", name, len(matches), kind, strings.Join(names, ", "))
}
