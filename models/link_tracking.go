package models

import "time"

// LinkTracking is an append-only log of clicks on tracked links.
// Every click is kept, including repeats.
type LinkTracking struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CampaignID  uint      `gorm:"not null;index:idx_link_tracking_campaign_id" json:"campaign_id"`
	LeadID      uint      `gorm:"not null;index:idx_link_tracking_lead_id" json:"lead_id"`
	TrackingID  string    `gorm:"size:128;not null" json:"tracking_id"`
	OriginalURL string    `gorm:"type:text;not null" json:"original_url"`
	IPAddress   string    `gorm:"size:64" json:"ip_address"`
	UserAgent   string    `gorm:"type:text" json:"user_agent"`
	ClickedAt   time.Time `gorm:"not null;index:idx_link_tracking_clicked_at" json:"clicked_at"`
}

// TableName returns the table name for LinkTracking
func (LinkTracking) TableName() string { return "link_tracking" }
