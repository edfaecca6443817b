package ws

import "adgen/internal/models"

// AssetEvent is pushed to the owner whenever an asset changes status.
type AssetEvent struct {
	Type          string `json:"type"`
	AssetID       string `json:"assetId"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	URL           string `json:"url,omitempty"`
	ThumbURL      string `json:"thumbUrl,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

// AssetHub fans asset status changes out to the owner's open connections.
type AssetHub struct {
	*Hub
}

func NewAssetHub() *AssetHub {
	return &AssetHub{Hub: NewHub()}
}

func (h *AssetHub) PublishAsset(a *models.Asset) {
	h.BroadcastToUser(a.UserID, AssetEvent{
		Type:          "asset",
		AssetID:       a.ID,
		Kind:          a.Kind,
		Status:        a.Status,
		URL:           a.URL,
		ThumbURL:      a.ThumbURL,
		FailureReason: a.FailureReason,
	})
}
