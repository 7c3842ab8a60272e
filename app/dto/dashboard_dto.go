package dto

// DashboardStatsResponse aggregates the caller's leads and campaign counters
type DashboardStatsResponse struct {
	TotalLeads      int64  `json:"totalLeads"`
	TotalCampaigns  int64  `json:"totalCampaigns"`
	ActiveCampaigns int64  `json:"activeCampaigns"`
	EmailsSent      int64  `json:"emailsSent"`
	EmailsOpened    int64  `json:"emailsOpened"`
	EmailsReplied   int64  `json:"emailsReplied"`
	OpenRate        string `json:"openRate"`
	ReplyRate       string `json:"replyRate"`
}

// LogoutResponse confirms a revoked token
type LogoutResponse struct {
	Message string `json:"message"`
}
