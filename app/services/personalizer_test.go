package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amirphl/orochi-outreach/models"
)

func TestTemplatePersonalizer(t *testing.T) {
	p := NewTemplatePersonalizer()

	lead := &models.Lead{
		ContactName: "Ada Lovelace King",
		Email:       "ada@engine.test",
		CompanyName: "Analytical Engines",
		Position:    "Founder",
	}

	tests := []struct {
		name     string
		template string
		lead     *models.Lead
		expected string
	}{
		{
			name:     "contact name split",
			template: "Hi {{first_name}} {{last_name}}",
			lead:     lead,
			expected: "Hi Ada Lovelace King",
		},
		{
			name:     "case insensitive with spaces",
			template: "{{ Company }} / {{TITLE}}",
			lead:     lead,
			expected: "Analytical Engines / Founder",
		},
		{
			name:     "unknown placeholder kept",
			template: "Hello {{nickname}}",
			lead:     lead,
			expected: "Hello {{nickname}}",
		},
		{
			name:     "fallbacks",
			template: "Hi {{first_name}} at {{company_name}}",
			lead:     &models.Lead{Email: "x@y.test"},
			expected: "Hi there at your company",
		},
		{
			name:     "explicit first name wins",
			template: "{{first_name}} {{full_name}}",
			lead:     &models.Lead{FirstName: "Grace", LastName: "Hopper"},
			expected: "Grace Grace Hopper",
		},
		{
			name:     "values are not escaped",
			template: "{{company}}",
			lead:     &models.Lead{Company: "A & B <Ltd>"},
			expected: "A & B <Ltd>",
		},
		{
			name:     "nil lead",
			template: "Hi {{first_name}}",
			lead:     nil,
			expected: "Hi {{first_name}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Personalize(tt.template, tt.lead))
		})
	}
}
