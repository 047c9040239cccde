package engine

import (
	"database/sql"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"taskline/internal/catalog"
	"taskline/internal/config"
	"taskline/internal/domain"
	"taskline/internal/engine/auth"
	"taskline/internal/repo"
)

const timeLayout = domain.TimeLayout

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Catalog *catalog.Catalog
	Guard   auth.Guard
	Config  *config.Config
	Now     func() time.Time
	Logger  *slog.Logger

	validate *validator.Validate
}

func New(db *sql.DB, cfg *config.Config, cat *catalog.Catalog) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Catalog:  cat,
		Config:   cfg,
		Now:      time.Now,
		Logger:   slog.Default().With(slog.String("component", "engine")),
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Engine) nowString() string {
	return e.now().Format(timeLayout)
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e Engine) location() *time.Location {
	if e.Config == nil {
		return time.UTC
	}
	return e.Config.Location()
}

func (e Engine) validateStruct(v any) error {
	val := e.validate
	if val == nil {
		val = newValidator()
	}
	if err := val.Struct(v); err != nil {
		return fromValidator(err)
	}
	return nil
}

var dueDateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04:05", "2006-01-02T15:04"}

// normalizeDueDate accepts a calendar date, a local date-time or RFC3339 and
// returns the instant as an RFC3339 UTC string. Local forms are read in the
// configured timezone.
func (e Engine) normalizeDueDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalid("due_date", "is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Format(timeLayout), nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, e.location()); err == nil {
			return t.UTC().Format(timeLayout), nil
		}
	}
	return "", invalid("due_date", "unrecognized date %q", raw)
}

// dayRange turns inclusive calendar days into a half-open UTC range
// [from 00:00, to+1 00:00) in the configured timezone. Empty bounds stay empty.
func (e Engine) dayRange(from, to string) (string, string, error) {
	var start, end string
	if from = strings.TrimSpace(from); from != "" {
		d, err := time.ParseInLocation("2006-01-02", from, e.location())
		if err != nil {
			return "", "", invalid("date_from", "must be YYYY-MM-DD")
		}
		start = d.UTC().Format(timeLayout)
	}
	if to = strings.TrimSpace(to); to != "" {
		d, err := time.ParseInLocation("2006-01-02", to, e.location())
		if err != nil {
			return "", "", invalid("date_to", "must be YYYY-MM-DD")
		}
		end = d.AddDate(0, 0, 1).UTC().Format(timeLayout)
	}
	return start, end, nil
}

func optionalFilter(field, value string, valid func(string) bool) error {
	if value != "" && !valid(value) {
		return invalid(field, "unsupported value %q", value)
	}
	return nil
}
