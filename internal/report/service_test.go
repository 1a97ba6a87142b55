package report

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/a3tai/mcp-pgdas-reader/internal/pgdas"
	"github.com/a3tai/mcp-pgdas-reader/internal/pgdas/pgdastest"
	"github.com/a3tai/mcp-pgdas-reader/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource map[string]string

func (f fakeSource) ReadText(path string) (string, error) {
	text, ok := f[path]
	if !ok {
		return "", errors.New("file does not exist: " + path)
	}
	return text, nil
}

// countingRepo counts FindByID calls to observe the cache.
type countingRepo struct {
	Repository
	mu       sync.Mutex
	findByID int
}

func (r *countingRepo) FindByID(ctx context.Context, id int64) (*store.Report, error) {
	r.mu.Lock()
	r.findByID++
	r.mu.Unlock()
	return r.Repository.FindByID(ctx, id)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestService(t *testing.T, source fakeSource, opts ...Option) (*Service, *countingRepo) {
	t.Helper()
	repo := &countingRepo{Repository: newTestStore(t)}
	return NewService(source, repo, opts...), repo
}

func TestProcessText(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantErr     error
		wantSuccess bool
	}{
		{name: "valid declaration", text: pgdastest.Default(), wantSuccess: true},
		{name: "missing taxpayer id", text: pgdastest.Unsupported(), wantErr: ErrUnsupportedDocument},
		{
			name:    "missing filing period",
			text:    "CNPJ Matriz: 12.345.678/0001-99\nNome empresarial: ACME\n",
			wantErr: ErrUnsupportedDocument,
		},
		{name: "empty text", text: "", wantErr: ErrUnsupportedDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, fakeSource{})

			result, err := svc.ProcessText(context.Background(), tt.text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.False(t, result.Duplicate)
			assert.Positive(t, result.RecordID)
			require.NotNil(t, result.Record)
			assert.Equal(t, pgdastest.TaxpayerID, result.Record.TaxpayerID)
		})
	}
}

func TestProcessText_Duplicate(t *testing.T) {
	svc, _ := newTestService(t, fakeSource{})
	ctx := context.Background()

	first, err := svc.ProcessText(ctx, pgdastest.Default())
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := svc.ProcessText(ctx, pgdastest.Default())
	require.NoError(t, err, "a duplicate is reported in the result")
	assert.False(t, second.Success)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.RecordID, second.RecordID)
	assert.Equal(t, MessageDuplicate, second.Message)

	third, err := svc.ProcessText(ctx, pgdastest.Declaration(pgdastest.TaxpayerID, "02/2023"))
	require.NoError(t, err)
	assert.True(t, third.Success)
	assert.NotEqual(t, first.RecordID, third.RecordID)
}

func TestProcessText_ConcurrentImports(t *testing.T) {
	svc, _ := newTestService(t, fakeSource{})
	ctx := context.Background()

	const workers = 8
	results := make(chan *ProcessResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.ProcessText(ctx, pgdastest.Default())
			assert.NoError(t, err)
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	saved := 0
	ids := map[int64]bool{}
	for result := range results {
		if result == nil {
			continue
		}
		if result.Success {
			saved++
		} else {
			assert.True(t, result.Duplicate)
		}
		ids[result.RecordID] = true
	}
	assert.Equal(t, 1, saved)
	assert.Len(t, ids, 1, "every import must point at the same stored report")
}

func TestProcessFile(t *testing.T) {
	source := fakeSource{"/data/declaration.pdf": pgdastest.Default()}
	svc, _ := newTestService(t, source)
	ctx := context.Background()

	result, err := svc.ProcessFile(ctx, "/data/declaration.pdf")
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, err = svc.ProcessFile(ctx, "/data/missing.pdf")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedDocument)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.ProcessFile(cancelled, "/data/declaration.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreview(t *testing.T) {
	source := fakeSource{
		"/data/declaration.pdf": pgdastest.Default(),
		"/data/invoice.pdf":     pgdastest.Unsupported(),
	}
	svc, _ := newTestService(t, source)
	ctx := context.Background()

	rec, err := svc.Preview(ctx, "/data/declaration.pdf")
	require.NoError(t, err)
	assert.Equal(t, pgdastest.TaxpayerID, rec.TaxpayerID)
	assert.Equal(t, pgdastest.TotalDue, rec.Taxes.TotalDue)

	rec, err = svc.Preview(ctx, "/data/invoice.pdf")
	require.NoError(t, err, "preview does not apply the materiality gate")
	assert.Empty(t, rec.TaxpayerID)

	reports, err := svc.ListReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports, "preview must not persist")
}

func TestGetReport_Cached(t *testing.T) {
	svc, repo := newTestService(t, fakeSource{}, WithCacheTTL(time.Minute))
	ctx := context.Background()

	result, err := svc.ProcessText(ctx, pgdastest.Default())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		r, err := svc.GetReport(ctx, result.RecordID)
		require.NoError(t, err)
		assert.Equal(t, pgdastest.LegalName, r.LegalName)
	}
	assert.Equal(t, 1, repo.findByID)

	_, err = svc.GetReport(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetReport_CallersGetIndependentCopies(t *testing.T) {
	svc, repo := newTestService(t, fakeSource{}, WithCacheTTL(time.Minute))
	ctx := context.Background()

	result, err := svc.ProcessText(ctx, pgdastest.Default())
	require.NoError(t, err)

	first, err := svc.GetReport(ctx, result.RecordID)
	require.NoError(t, err)
	first.LegalName = "CHANGED"
	first.DomesticRevenue.Set("01/2022", 1)
	first.DomesticRevenue.Set("12/2099", 1)
	first.ForeignRevenue.Set("01/2022", 1)

	for i := 0; i < 2; i++ {
		r, err := svc.GetReport(ctx, result.RecordID)
		require.NoError(t, err)
		assert.Equal(t, pgdastest.LegalName, r.LegalName)
		assert.Equal(t, []string{"01/2022", "02/2022"}, r.DomesticRevenue.Periods())

		amount, ok := r.DomesticRevenue.Get("01/2022")
		require.True(t, ok)
		assert.InDelta(t, 100000.0, amount, 0.001)

		amount, ok = r.ForeignRevenue.Get("01/2022")
		require.True(t, ok)
		assert.InDelta(t, 1000.0, amount, 0.001)
	}
	assert.Equal(t, 1, repo.findByID)
}

func TestGetReport_CacheDisabled(t *testing.T) {
	svc, repo := newTestService(t, fakeSource{}, WithCacheTTL(0))
	ctx := context.Background()

	result, err := svc.ProcessText(ctx, pgdastest.Default())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.GetReport(ctx, result.RecordID)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, repo.findByID)
}

func TestListReports(t *testing.T) {
	svc, _ := newTestService(t, fakeSource{})
	ctx := context.Background()

	for _, doc := range []string{
		pgdastest.Declaration("12.345.678/0001-99", "01/2023"),
		pgdastest.Declaration("12.345.678/0001-99", "02/2023"),
		pgdastest.Declaration("98.765.432/0001-10", "01/2023"),
	} {
		_, err := svc.ProcessText(ctx, doc)
		require.NoError(t, err)
	}

	all, err := svc.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.ListReportsByTaxpayer(ctx, "12.345.678/0001-99")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "02/2023", mine[0].FilingPeriod)
}

func TestWithExtractor(t *testing.T) {
	extractor := pgdas.NewExtractor(pgdas.WithRevenueStrategy(pgdas.StrategyAdjacentPair))
	svc, _ := newTestService(t, fakeSource{}, WithExtractor(extractor))

	assert.Same(t, extractor, svc.extractor)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "1", want: 1},
		{raw: "42", want: 42},
		{raw: "0", wantErr: true},
		{raw: "-3", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseID(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
