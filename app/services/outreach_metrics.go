package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Campaign send attempts partitioned by provider and result
	campaignSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_campaign_sends_total",
			Help: "Total number of campaign send attempts",
		},
		[]string{"provider", "result"},
	)

	// Leads handed to a provider by successful sends
	campaignLeadsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_campaign_leads_sent_total",
			Help: "Total number of leads sent by successful campaign sends",
		},
		[]string{"provider"},
	)

	// First-time engagement events recorded by the tracking endpoints
	engagementEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_engagement_events_total",
			Help: "Total number of recorded open, click and reply events",
		},
		[]string{"kind"},
	)
)

// RecordCampaignSend counts one send attempt; leads is only added on success
func RecordCampaignSend(provider string, err error, leads int) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	campaignSendsTotal.WithLabelValues(provider, result).Inc()
	if err == nil && leads > 0 {
		campaignLeadsSentTotal.WithLabelValues(provider).Add(float64(leads))
	}
}

// RecordEngagement counts an open, click or reply
func RecordEngagement(kind string) {
	engagementEventsTotal.WithLabelValues(kind).Inc()
}
