package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewFromDB(db, nil), mock
}

func TestListAssets(t *testing.T) {
	st, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT asset_id, name, symbol FROM Asset ORDER BY asset_id").
		WillReturnRows(sqlmock.NewRows([]string{"asset_id", "name", "symbol"}).
			AddRow(1, "Natural Gas", "NG").
			AddRow(4, "Bitcoin", "BTC"))

	assets, err := st.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, 1, assets[0].AssetID)
	assert.Equal(t, "Bitcoin", assets[1].Name)
	assert.Equal(t, "BTC", assets[1].Symbol)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAssets_QueryError(t *testing.T) {
	st, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT asset_id, name, symbol FROM Asset").
		WillReturnError(errors.New("table gone"))

	_, err := st.ListAssets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table gone")
}

func TestListAssetsWithTypes(t *testing.T) {
	st, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT a.asset_id, a.name, a.symbol, at.name AS type_name").
		WillReturnRows(sqlmock.NewRows([]string{"asset_id", "name", "symbol", "type_name"}).
			AddRow(4, "Bitcoin", "BTC", "Cryptocurrency").
			AddRow(17, "Gold", "GOLD", "Commodity"))

	assets, err := st.ListAssetsWithTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "Cryptocurrency", assets[0].TypeName)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRows(t *testing.T) {
	st, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT name, price FROM DailyMarketData").
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"name", "price"}).
			AddRow([]byte("Bitcoin"), 42000.5))

	rows, err := st.QueryRows(context.Background(), "SELECT name, price FROM DailyMarketData WHERE asset_id = ?", 4)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// []byte columns come back as strings so the rows marshal cleanly.
	assert.Equal(t, "Bitcoin", rows[0]["name"])
	assert.Equal(t, 42000.5, rows[0]["price"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRows_Empty(t *testing.T) {
	st, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT name FROM Asset").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	rows, err := st.QueryRows(context.Background(), "SELECT name FROM Asset")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestQueryRows_Error(t *testing.T) {
	st, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT boom").
		WillReturnError(errors.New("syntax error"))

	_, err := st.QueryRows(context.Background(), "SELECT boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}
