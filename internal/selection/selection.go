// Package selection queries the filings database for the most recent filing
// of each filer.
package selection

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ppiankov/itemone/internal/dataset"
	"github.com/ppiankov/itemone/internal/model"
)

// Filing is one selected row
type Filing struct {
	Symbol     string `db:"symbol"`
	FilingDate string `db:"filing_date"` // YYYY-MM-DD
	FormType   string `db:"form_type"`
	FinalLink  string `db:"final_link"`
}

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Selector runs the selection query against an open connection
type Selector struct {
	db       *sqlx.DB
	table    string
	formType string
}

// DSN builds the postgres connection string
func DSN(cfg model.SelectConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// Open connects to the database. The caller must Close the selector.
func Open(ctx context.Context, cfg model.SelectConfig) (*Selector, error) {
	if !tablePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &Selector{db: db, table: cfg.Table, formType: cfg.FormType}, nil
}

// Close releases the connection
func (s *Selector) Close() error {
	return s.db.Close()
}

// LatestQuery builds the query returning the most recent filing of formType
// per symbol, skipping filings without a document link
func LatestQuery(table, formType string) sq.SelectBuilder {
	return sq.Select(
		"f.symbol",
		"to_char(f.filing_date, 'YYYY-MM-DD') AS filing_date",
		"f.form_type",
		"f.final_link",
	).
		Options("DISTINCT ON (f.symbol)").
		From(table+" f").
		Where(sq.Eq{"f.form_type": formType}).
		Where(sq.NotEq{"f.final_link": nil}).
		OrderBy("f.symbol", "f.filing_date DESC").
		PlaceholderFormat(sq.Dollar)
}

// Latest runs the selection query
func (s *Selector) Latest(ctx context.Context) ([]Filing, error) {
	query, args, err := LatestQuery(s.table, s.formType).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var filings []Filing
	if err := s.db.SelectContext(ctx, &filings, query, args...); err != nil {
		return nil, fmt.Errorf("select latest filings: %w", err)
	}
	return filings, nil
}

// ToTable converts filings to the dataset read by the fetch command
func ToTable(filings []Filing) *dataset.Table {
	t := &dataset.Table{
		Header: []string{dataset.ColSymbol, "filing_date", "form_type", dataset.ColFinalLink},
		Rows:   make([][]string, 0, len(filings)),
	}
	for _, f := range filings {
		t.Rows = append(t.Rows, []string{f.Symbol, f.FilingDate, f.FormType, f.FinalLink})
	}
	return t
}
