package query

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-qa/internal/models"
	"market-qa/internal/store"
)

// stubGenerator returns a canned SQL string without calling any model.
type stubGenerator struct {
	sql    string
	err    error
	assets []models.Asset // catalog observed on the last call
}

func (g *stubGenerator) Generate(_ context.Context, _ string, assets []models.Asset) (string, error) {
	g.assets = assets
	return g.sql, g.err
}

func setupService(t *testing.T, gen SQLGenerator) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewService(store.NewFromDB(db, nil), gen, nil), mock
}

func marketRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"name", "symbol", "obs_date", "price", "volume"})
}

func TestAskRules_MaxTemplate(t *testing.T) {
	svc, mock := setupService(t, nil)

	// The asset id is bound as a parameter, never interpolated.
	mock.ExpectQuery(`ORDER BY d.price DESC`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"name", "symbol", "obs_date", "price"}).
			AddRow("Bitcoin", "BTC", "2024-03-13", 73083.5))

	res, err := svc.AskRules(context.Background(), "highest price of bitcoin")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Highest recorded price for Bitcoin.", res.Message)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRules_MinTemplate(t *testing.T) {
	svc, mock := setupService(t, nil)

	mock.ExpectQuery(`ORDER BY d.price ASC`).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"name", "symbol", "obs_date", "price"}).
			AddRow("Tesla", "TSLA", "2019-06-03", 11.93))

	res, err := svc.AskRules(context.Background(), "lowest tesla price")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Rows, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRules_AverageTemplate(t *testing.T) {
	svc, mock := setupService(t, nil)

	mock.ExpectQuery(`AVG\(d.price\)`).
		WithArgs(17).
		WillReturnRows(sqlmock.NewRows([]string{"name", "average_price", "observations"}).
			AddRow("Gold", 1823.44, 1310))

	res, err := svc.AskRules(context.Background(), "What is the average price of Gold?")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Average price for Gold.", res.Message)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRules_RecentTemplate(t *testing.T) {
	svc, mock := setupService(t, nil)

	mock.ExpectQuery(`LIMIT 10`).
		WithArgs(4).
		WillReturnRows(marketRows().
			AddRow("Bitcoin", "BTC", "2024-03-13", 73083.5, int64(51000)).
			AddRow("Bitcoin", "BTC", "2024-03-12", 71452.0, int64(48000)))

	res, err := svc.AskRules(context.Background(), "latest bitcoin data")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Rows, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRules_ListTemplate(t *testing.T) {
	svc, mock := setupService(t, nil)

	mock.ExpectQuery(`JOIN AssetType`).
		WillReturnRows(sqlmock.NewRows([]string{"asset_id", "name", "symbol", "type_name"}).
			AddRow(15, "Amazon", "AMZN", "Stock").
			AddRow(4, "Bitcoin", "BTC", "Cryptocurrency"))

	res, err := svc.AskRules(context.Background(), "List all assets")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Rows, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRules_DateLookup(t *testing.T) {
	svc, mock := setupService(t, nil)

	mock.ExpectQuery(`d.obs_date = \?`).
		WithArgs(17, "2024-01-15").
		WillReturnRows(marketRows().
			AddRow("Gold", "GOLD", "2024-01-15", 2051.6, nil))

	res, err := svc.AskRules(context.Background(), "gold on 2024-01-15")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Market data for Gold on 2024-01-15.", res.Message)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRules_DateLookupEmpty(t *testing.T) {
	svc, mock := setupService(t, nil)

	// Market holiday: empty result is a message, not an error.
	mock.ExpectQuery(`d.obs_date = \?`).
		WithArgs(17, "2024-01-13").
		WillReturnRows(marketRows())

	res, err := svc.AskRules(context.Background(), "gold on 2024-01-13")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Rows)
	assert.Equal(t, "No data found for Gold on 2024-01-13.", res.Message)
}

func TestAskRules_QueryTypeBeatsDate(t *testing.T) {
	svc, mock := setupService(t, nil)

	// Both an aggregation keyword and a date are present; the aggregation
	// template wins and the date is ignored.
	mock.ExpectQuery(`ORDER BY d.price DESC`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"name", "symbol", "obs_date", "price"}).
			AddRow("Bitcoin", "BTC", "2024-03-13", 73083.5))

	res, err := svc.AskRules(context.Background(), "highest bitcoin price on 2024-01-15")
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRules_FallbackTemplate(t *testing.T) {
	svc, mock := setupService(t, nil)

	mock.ExpectQuery(`LIMIT 20`).
		WithArgs(16).
		WillReturnRows(marketRows().
			AddRow("Meta", "META", "2024-03-13", 495.6, int64(12000)))

	res, err := svc.AskRules(context.Background(), "tell me about meta")
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRules_MissingAsset(t *testing.T) {
	svc, mock := setupService(t, nil)

	res, err := svc.AskRules(context.Background(), "what is the price?")
	require.ErrorIs(t, err, ErrMissingAsset)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "name an asset")

	// The store is never touched on resolver failures.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRules_Unrecognized(t *testing.T) {
	svc, mock := setupService(t, nil)

	res, err := svc.AskRules(context.Background(), "how are you doing")
	require.ErrorIs(t, err, ErrUnrecognized)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "could not understand")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRules_StoreError(t *testing.T) {
	svc, mock := setupService(t, nil)

	mock.ExpectQuery(`LIMIT 10`).
		WithArgs(4).
		WillReturnError(errors.New("connection reset"))

	res, err := svc.AskRules(context.Background(), "latest bitcoin data")
	require.Error(t, err)
	assert.Nil(t, res)
}

func expectCatalog(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT asset_id, name, symbol FROM Asset").
		WillReturnRows(sqlmock.NewRows([]string{"asset_id", "name", "symbol"}).
			AddRow(4, "Bitcoin", "BTC").
			AddRow(17, "Gold", "GOLD"))
}

func TestAskLLM_Success(t *testing.T) {
	gen := &stubGenerator{sql: "SELECT a.name, d.price FROM DailyMarketData d JOIN Asset a ON a.asset_id = d.asset_id WHERE a.symbol = 'BTC'"}
	svc, mock := setupService(t, gen)

	expectCatalog(mock)
	mock.ExpectQuery(`a.symbol = 'BTC'`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "price"}).
			AddRow("Bitcoin", 73083.5).
			AddRow("Bitcoin", 71452.0))

	res, err := svc.AskLLM(context.Background(), "bitcoin prices")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, gen.sql, res.SQL)
	assert.Equal(t, "LLM-generated query executed successfully. Returned 2 row(s).", res.Message)

	// The generator received the catalog fetched on this request.
	require.Len(t, gen.assets, 2)
	assert.Equal(t, "BTC", gen.assets[0].Symbol)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskLLM_UnsafeSQLRejected(t *testing.T) {
	gen := &stubGenerator{sql: "DROP TABLE Asset"}
	svc, mock := setupService(t, gen)

	expectCatalog(mock)

	res, err := svc.AskLLM(context.Background(), "destroy everything")
	require.ErrorIs(t, err, ErrUnsafeSQL)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	// The rejected SQL is surfaced for transparency but never executed.
	assert.Equal(t, "DROP TABLE Asset", res.SQL)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskLLM_GenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("upstream timeout")}
	svc, mock := setupService(t, gen)

	expectCatalog(mock)

	res, err := svc.AskLLM(context.Background(), "anything")
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestAskLLM_ExecutionFailure(t *testing.T) {
	gen := &stubGenerator{sql: "SELECT nope FROM nowhere"}
	svc, mock := setupService(t, gen)

	expectCatalog(mock)
	mock.ExpectQuery(`SELECT nope FROM nowhere`).
		WillReturnError(errors.New("unknown table"))

	res, err := svc.AskLLM(context.Background(), "anything")
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown table")
	assert.Equal(t, gen.sql, res.SQL)
}

func TestAskLLM_NoGenerator(t *testing.T) {
	svc, _ := setupService(t, nil)

	res, err := svc.AskLLM(context.Background(), "anything")
	require.Error(t, err)
	assert.Nil(t, res)
}
