package dto

// TrackOpenRequest is decoded from the pixel query string
type TrackOpenRequest struct {
	CampaignID string `query:"campaign"`
	LeadID     string `query:"lead"`
	Timestamp  string `query:"t"`
}

// TrackClickRequest is decoded from the redirect query string
type TrackClickRequest struct {
	TrackingID string `query:"id"`
	URL        string `query:"url"`
	IPAddress  string `query:"-" json:"-"`
	UserAgent  string `query:"-" json:"-"`
}

// TrackReplyRequest is the reply webhook body
type TrackReplyRequest struct {
	CampaignID   string  `json:"campaignId"`
	LeadID       string  `json:"leadId"`
	ReplyContent *string `json:"replyContent,omitempty"`
	ReplySubject *string `json:"replySubject,omitempty"`
}

// TrackReplyResponse acknowledges a reply webhook
type TrackReplyResponse struct {
	Success bool `json:"success"`
}
