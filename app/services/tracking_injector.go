package services

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/amirphl/orochi-outreach/utils"
)

var (
	// ErrInvalidTrackingID is returned when a click tracking id cannot be decoded
	ErrInvalidTrackingID = errors.New("invalid tracking id")

	bareURLPattern   = regexp.MustCompile(`https?://[^\s<>"']+`)
	// hrefURLPattern captures the attribute prefix, the URL and the closing quote
	hrefURLPattern   = regexp.MustCompile(`(?i)(\bhref\s*=\s*["'])(https?://[^"']+)(["'])`)
	anchorPattern    = regexp.MustCompile(`(?is)<a\b[^>]*>.*?</a\s*>`)
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	bodyClosePattern = regexp.MustCompile(`(?i)</body\s*>`)
)

// TrackingInjector rewrites outbound links through the click endpoint and adds the open pixel
type TrackingInjector interface {
	Inject(body string, campaignID, leadID uuid.UUID) string
}

// HTMLTrackingInjector builds tracking URLs against the public site URL
type HTMLTrackingInjector struct {
	baseURL string
	now     func() int64
}

// NewHTMLTrackingInjector creates an injector; baseURL is the public origin serving /track
func NewHTMLTrackingInjector(baseURL string) *HTMLTrackingInjector {
	return &HTMLTrackingInjector{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     utils.UTCNowUnixMilli,
	}
}

// Inject rewrites links first and adds the pixel last so the pixel URL is never wrapped
func (i *HTMLTrackingInjector) Inject(body string, campaignID, leadID uuid.UUID) string {
	ts := i.now()
	trackingID := ClickTrackingID(campaignID, leadID, ts)

	rewritten := i.rewriteLinks(body, trackingID)

	pixel := fmt.Sprintf(
		`<img src="%s/track/open?campaign=%s&lead=%s&t=%d" width="1" height="1" style="display:none;" alt="" />`,
		i.baseURL, campaignID, leadID, ts,
	)

	if loc := bodyClosePattern.FindStringIndex(rewritten); loc != nil {
		return rewritten[:loc[0]] + pixel + rewritten[loc[0]:]
	}
	return rewritten + pixel
}

func (i *HTMLTrackingInjector) rewriteLinks(body, trackingID string) string {
	// Anchors and other tags are rewritten on their own and masked,
	// so the bare URL pass only sees text and never nests links.
	var masked []string
	mask := func(fragment string) string {
		masked = append(masked, fragment)
		return fmt.Sprintf("<\x00%d>", len(masked)-1)
	}

	out := anchorPattern.ReplaceAllStringFunc(body, func(anchor string) string {
		return mask(i.rewriteHrefs(anchor, trackingID))
	})
	out = tagPattern.ReplaceAllStringFunc(out, func(tag string) string {
		if strings.HasPrefix(tag, "<\x00") {
			return tag
		}
		return mask(i.rewriteHrefs(tag, trackingID))
	})

	out = bareURLPattern.ReplaceAllStringFunc(out, func(target string) string {
		return fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, i.clickURL(trackingID, target), target)
	})

	for idx := len(masked) - 1; idx >= 0; idx-- {
		out = strings.Replace(out, fmt.Sprintf("<\x00%d>", idx), masked[idx], 1)
	}
	return out
}

// rewriteHrefs points href attribute URLs at the click endpoint; src attributes stay untouched
func (i *HTMLTrackingInjector) rewriteHrefs(fragment, trackingID string) string {
	return hrefURLPattern.ReplaceAllStringFunc(fragment, func(match string) string {
		parts := hrefURLPattern.FindStringSubmatch(match)
		return parts[1] + i.clickURL(trackingID, parts[2]) + parts[3]
	})
}

func (i *HTMLTrackingInjector) clickURL(trackingID, target string) string {
	return fmt.Sprintf("%s/track/click?id=%s&url=%s", i.baseURL, trackingID, url.QueryEscape(target))
}

// ClickTrackingID composes the click id as campaign_lead_unixMillis
func ClickTrackingID(campaignID, leadID uuid.UUID, ts int64) string {
	return fmt.Sprintf("%s_%s_%d", campaignID, leadID, ts)
}

// ParseClickTrackingID decodes an id built by ClickTrackingID
func ParseClickTrackingID(id string) (campaignID, leadID uuid.UUID, ts int64, err error) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return uuid.Nil, uuid.Nil, 0, ErrInvalidTrackingID
	}

	if campaignID, err = uuid.Parse(parts[0]); err != nil {
		return uuid.Nil, uuid.Nil, 0, ErrInvalidTrackingID
	}
	if leadID, err = uuid.Parse(parts[1]); err != nil {
		return uuid.Nil, uuid.Nil, 0, ErrInvalidTrackingID
	}
	if ts, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
		return uuid.Nil, uuid.Nil, 0, ErrInvalidTrackingID
	}

	return campaignID, leadID, ts, nil
}
