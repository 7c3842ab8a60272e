// Package services provides external service integrations and technical concerns like delivery, tracking and tokens
package services

import (
	"regexp"
	"strings"

	"github.com/amirphl/orochi-outreach/models"
)

const (
	fallbackFirstName = "there"
	fallbackCompany   = "your company"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_]+)\s*\}\}`)

// Personalizer fills {{placeholder}} tokens from a lead record
type Personalizer interface {
	Personalize(template string, lead *models.Lead) string
}

// TemplatePersonalizer is the default Personalizer.
// Placeholders match case-insensitively; unknown ones are kept verbatim and values are not HTML-escaped.
type TemplatePersonalizer struct{}

func NewTemplatePersonalizer() *TemplatePersonalizer {
	return &TemplatePersonalizer{}
}

func (p *TemplatePersonalizer) Personalize(template string, lead *models.Lead) string {
	if lead == nil || !strings.Contains(template, "{{") {
		return template
	}

	values := leadValues(lead)
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		key := strings.ToLower(placeholderPattern.FindStringSubmatch(token)[1])
		if value, ok := values[key]; ok {
			return value
		}
		return token
	})
}

func leadValues(lead *models.Lead) map[string]string {
	first, rest := splitContactName(lead.ContactName)

	firstName := firstNonBlank(lead.FirstName, first, fallbackFirstName)
	lastName := firstNonBlank(lead.LastName, rest)
	fullName := firstNonBlank(lead.ContactName, strings.TrimSpace(lead.FirstName+" "+lead.LastName), fallbackFirstName)
	company := firstNonBlank(lead.CompanyName, lead.Company, fallbackCompany)
	title := firstNonBlank(lead.Title, lead.Position)

	return map[string]string{
		"first_name":      firstName,
		"last_name":       lastName,
		"full_name":       fullName,
		"email":           lead.Email,
		"company":         company,
		"company_name":    company,
		"title":           title,
		"position":        title,
		"phone":           lead.Phone,
		"industry":        lead.Industry,
		"location":        lead.Location,
		"company_website": lead.CompanyWebsite,
		"website":         lead.CompanyWebsite,
		"linkedin_url":    lead.LinkedinURL,
	}
}

// splitContactName returns the first word and the remainder of a combined name
func splitContactName(name string) (string, string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
