package sqlgen

// schemaDescription describes the MySQL schema used for NL→SQL prompting.
//
// Keep it in sync with the actual table definitions in the market_data
// database.
const schemaDescription = `
You are an assistant that translates natural language questions into SQL for a MySQL database.
The database schema is:

Table: AssetType
- asset_type_id INT PRIMARY KEY
- name VARCHAR(20)
- description VARCHAR(255)

Table: Asset
- asset_id INT PRIMARY KEY
- name VARCHAR(50)
- symbol VARCHAR(20)
- asset_type_id INT REFERENCES AssetType(asset_type_id)
- base_currency CHAR(3)

Table: DailyMarketData
- asset_id INT REFERENCES Asset(asset_id)
- obs_date DATE
- price DECIMAL(18,4)
- volume BIGINT
Primary key: (asset_id, obs_date)
Constraints: price > 0, volume IS NULL OR volume >= 0
`

// FallbackQuery is the single literal query the model is instructed to
// return when it cannot confidently map the question onto known assets.
const FallbackQuery = `SELECT 'Cannot answer this question from the available data' AS message;`
