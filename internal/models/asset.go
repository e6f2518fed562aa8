// ============================================================================
// models/asset.go
// ============================================================================
package models

// Asset is one tradable instrument as stored in the Asset table.
type Asset struct {
	AssetID int    `json:"asset_id"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// AssetWithType joins an asset with its AssetType name, e.g. "Commodity".
type AssetWithType struct {
	AssetID  int    `json:"asset_id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	TypeName string `json:"type_name"`
}
