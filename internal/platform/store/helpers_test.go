package store

import (
	"context"
	"errors"
	"testing"

	perr "ledgerlens/internal/platform/errors"
)

// fakeRows serves canned rows of scalars for helper tests
type fakeRows struct {
	data [][]any
	pos  int
	err  error
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.data) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.data[f.pos-1]
	if len(dest) != len(row) {
		return errors.New("scan arity mismatch")
	}
	for i := range dest {
		switch d := dest[i].(type) {
		case *string:
			*d = row[i].(string)
		case *int:
			*d = row[i].(int)
		default:
			return errors.New("unsupported scan dest")
		}
	}
	return nil
}

func (f *fakeRows) Err() error        { return f.err }
func (f *fakeRows) Close()            {}
func (f *fakeRows) Columns() []string { return nil }

// fakeQuerier returns the configured rows for any query
type fakeQuerier struct {
	rows *fakeRows
	err  error
}

func (f *fakeQuerier) Exec(context.Context, string, ...any) (CommandTag, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) Row {
	f.rows.Next()
	return &rowFromRows{rows: f.rows}
}

func scanPair(r Row) (struct {
	ID   string
	Freq int
}, error,
) {
	var out struct {
		ID   string
		Freq int
	}
	err := r.Scan(&out.ID, &out.Freq)
	return out, err
}

func TestManyMapsAllRows(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{data: [][]any{
		{"12345", 3},
		{"17850", 1},
	}}}

	got, err := Many(context.Background(), q, scanPair, "select customer_id, frequency from features")
	if err != nil {
		t.Fatalf("Many: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 rows, got %d", len(got))
	}
	if got[0].ID != "12345" || got[0].Freq != 3 {
		t.Fatalf("unexpected first row: %+v", got[0])
	}
}

func TestOneRequiresExactlyOneRow(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{data: [][]any{{"12345", 3}}}}
	got, err := One(context.Background(), q, scanPair, "select customer_id, frequency from features where customer_id = $1", "12345")
	if err != nil {
		t.Fatalf("One: %v", err)
	}
	if got.ID != "12345" {
		t.Fatalf("unexpected row: %+v", got)
	}

	empty := &fakeQuerier{rows: &fakeRows{}}
	if _, err := One(context.Background(), empty, scanPair, "select"); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	extra := &fakeQuerier{rows: &fakeRows{data: [][]any{{"a", 1}, {"b", 2}}}}
	if _, err := One(context.Background(), extra, scanPair, "select"); err == nil {
		t.Fatal("want error for multiple rows")
	}
}

func TestScalarScansFirstColumn(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{data: [][]any{{42}}}}
	n, err := Scalar[int](context.Background(), q, "select count(*) from features")
	if err != nil {
		t.Fatalf("Scalar: %v", err)
	}
	if n != 42 {
		t.Fatalf("want 42, got %d", n)
	}
}
