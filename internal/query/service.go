// Package query answers market questions through two pipelines that share
// one safe-execution boundary: rule-based intents dispatched to fixed
// parameterized templates, and LLM-generated SQL vetted by the safety gate
// before running verbatim.
package query

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"market-qa/internal/intent"
	"market-qa/internal/models"
	"market-qa/internal/safety"
	"market-qa/internal/store"
)

// Result is the outcome of one question, in the shape the API returns.
type Result struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
	SQL     string           `json:"sql,omitempty"`
	Rows    []map[string]any `json:"data,omitempty"`
}

// SQLGenerator produces a candidate SQL string for a question grounded on
// the supplied asset catalog. Implemented by sqlgen.Generator.
type SQLGenerator interface {
	Generate(ctx context.Context, question string, assets []models.Asset) (string, error)
}

// Service orchestrates both resolution pipelines over a shared store.
type Service struct {
	Store     *store.Store
	Resolver  *intent.Resolver
	Generator SQLGenerator // nil when the LLM is not configured
	Logger    *logrus.Logger
}

func NewService(st *store.Store, gen SQLGenerator, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		Store:     st,
		Resolver:  intent.NewResolver(),
		Generator: gen,
		Logger:    logger,
	}
}

// Asset data templates. Asset id and date are always bound as parameters,
// never concatenated into the SQL text.
const (
	listAssetsSQL = `SELECT a.asset_id, a.name, a.symbol, at.name AS type_name
		FROM Asset a
		JOIN AssetType at ON a.asset_type_id = at.asset_type_id
		ORDER BY a.name`

	recentSQL = `SELECT a.name, a.symbol, d.obs_date, d.price, d.volume
		FROM DailyMarketData d
		JOIN Asset a ON a.asset_id = d.asset_id
		WHERE d.asset_id = ?
		ORDER BY d.obs_date DESC
		LIMIT 10`

	maxPriceSQL = `SELECT a.name, a.symbol, d.obs_date, d.price
		FROM DailyMarketData d
		JOIN Asset a ON a.asset_id = d.asset_id
		WHERE d.asset_id = ? AND d.price IS NOT NULL
		ORDER BY d.price DESC
		LIMIT 1`

	minPriceSQL = `SELECT a.name, a.symbol, d.obs_date, d.price
		FROM DailyMarketData d
		JOIN Asset a ON a.asset_id = d.asset_id
		WHERE d.asset_id = ? AND d.price IS NOT NULL
		ORDER BY d.price ASC
		LIMIT 1`

	avgPriceSQL = `SELECT a.name, AVG(d.price) AS average_price, COUNT(d.price) AS observations
		FROM DailyMarketData d
		JOIN Asset a ON a.asset_id = d.asset_id
		WHERE d.asset_id = ? AND d.price IS NOT NULL
		GROUP BY a.name`

	dateLookupSQL = `SELECT a.name, a.symbol, d.obs_date, d.price, d.volume
		FROM DailyMarketData d
		JOIN Asset a ON a.asset_id = d.asset_id
		WHERE d.asset_id = ? AND d.obs_date = ?`

	fallbackSQL = `SELECT a.name, a.symbol, d.obs_date, d.price, d.volume
		FROM DailyMarketData d
		JOIN Asset a ON a.asset_id = d.asset_id
		WHERE d.asset_id = ?
		ORDER BY d.obs_date DESC
		LIMIT 20`
)

const (
	missingAssetGuidance = `Please name an asset in your question, e.g. "What is the price of Bitcoin?" or "Show recent data for Gold".`
	unrecognizedGuidance = `Sorry, I could not understand that question. Try e.g. "What is the price of Bitcoin?", "Highest price of Gold", "Average price of Tesla", or "List all assets".`
)

// AskRules answers via the rule-based resolver and template dispatch.
// Resolver-level failures (no asset, unrecognized question) come back as an
// unsuccessful Result with guidance text and a typed error; the store is
// not touched in those cases. A non-nil error alongside a nil Result means
// a store-level failure.
//
// Dispatch order is load-bearing: list ignores the asset entirely, the
// no-asset guards run next, then recent/max/min/average before the
// exact-date lookup, and the latest-20 fallback last.
func (s *Service) AskRules(ctx context.Context, text string) (*Result, error) {
	in := s.Resolver.Resolve(text)
	s.Logger.WithFields(logrus.Fields{
		"asset_id":   in.AssetID,
		"query_type": in.QueryType,
		"has_date":   in.HasDate(),
	}).Debug("resolved intent")

	if in.QueryType == intent.QueryList {
		rows, err := s.Store.QueryRows(ctx, listAssetsSQL)
		if err != nil {
			return nil, err
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d asset(s).", len(rows)),
			Rows:    rows,
		}, nil
	}

	if !in.HasAsset() {
		if in.QueryType == intent.QueryGeneral {
			return &Result{Success: false, Error: "Question not recognized.", Message: unrecognizedGuidance}, ErrUnrecognized
		}
		return &Result{Success: false, Error: "No asset referenced.", Message: missingAssetGuidance}, ErrMissingAsset
	}

	switch in.QueryType {
	case intent.QueryRecent:
		rows, err := s.Store.QueryRows(ctx, recentSQL, in.AssetID)
		if err != nil {
			return nil, err
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Latest %d observation(s) for %s.", len(rows), in.AssetName),
			Rows:    rows,
		}, nil
	case intent.QueryMax:
		rows, err := s.Store.QueryRows(ctx, maxPriceSQL, in.AssetID)
		if err != nil {
			return nil, err
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Highest recorded price for %s.", in.AssetName),
			Rows:    rows,
		}, nil
	case intent.QueryMin:
		rows, err := s.Store.QueryRows(ctx, minPriceSQL, in.AssetID)
		if err != nil {
			return nil, err
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Lowest recorded price for %s.", in.AssetName),
			Rows:    rows,
		}, nil
	case intent.QueryAverage:
		rows, err := s.Store.QueryRows(ctx, avgPriceSQL, in.AssetID)
		if err != nil {
			return nil, err
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Average price for %s.", in.AssetName),
			Rows:    rows,
		}, nil
	}

	if in.HasDate() {
		day := in.TargetDate.Format("2006-01-02")
		rows, err := s.Store.QueryRows(ctx, dateLookupSQL, in.AssetID, day)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return &Result{
				Success: true,
				Message: fmt.Sprintf("No data found for %s on %s.", in.AssetName, day),
				Rows:    rows,
			}, nil
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Market data for %s on %s.", in.AssetName, day),
			Rows:    rows,
		}, nil
	}

	rows, err := s.Store.QueryRows(ctx, fallbackSQL, in.AssetID)
	if err != nil {
		return nil, err
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("Most recent %d observation(s) for %s.", len(rows), in.AssetName),
		Rows:    rows,
	}, nil
}

// AskLLM answers via LLM-generated SQL. The asset catalog is fetched fresh
// from the store on every call so the model can only reference assets that
// actually exist. The generated SQL is untrusted and must clear the safety
// gate before it runs verbatim.
//
// On gate rejection or execution failure the returned Result carries the
// offending SQL alongside the error.
func (s *Service) AskLLM(ctx context.Context, question string) (*Result, error) {
	if s.Generator == nil {
		return nil, fmt.Errorf("sql generator is not available")
	}

	assets, err := s.Store.ListAssets(ctx)
	if err != nil {
		// The generator falls back to a warning line in the prompt; the
		// model is instructed to answer only from the supplied list.
		s.Logger.WithError(err).Warn("could not load asset catalog for prompt")
		assets = nil
	}

	sqlText, err := s.Generator.Generate(ctx, question, assets)
	if err != nil {
		return nil, err
	}

	if !safety.IsSafe(sqlText) {
		return &Result{
			Success: false,
			Error:   "Generated SQL was rejected as unsafe.",
			SQL:     sqlText,
		}, ErrUnsafeSQL
	}

	rows, err := s.Store.QueryRows(ctx, sqlText)
	if err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("Database error: %v", err),
			SQL:     sqlText,
		}, err
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("LLM-generated query executed successfully. Returned %d row(s).", len(rows)),
		SQL:     sqlText,
		Rows:    rows,
	}, nil
}
