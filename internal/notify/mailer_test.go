package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/travira/internal/model"
	"github.com/hitoshi/travira/internal/security"
)

func testDeal(id string) *model.FlightRecommendation {
	return &model.FlightRecommendation{
		ID:            id,
		Origin:        "NRT",
		Destination:   "CDG",
		DepartureDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Price:         68000,
		Currency:      "JPY",
		Airline:       "ANA",
		FlightNumber:  "NH215",
		DealQuality:   model.DealQualityExcellent,
		Summary:       "<p>直行便の<strong>特価</strong></p>",
		BookingURL:    "https://example.com/booking/nh215",
	}
}

func newTestMailer() *MailjetMailer {
	return NewMailjetMailer("pub", "priv", "deals@travira.example", "Travira", security.NewContentSanitizer())
}

// TestMailjetMailer_ImplementsInterface はDealMailerの実装を検証する。
func TestMailjetMailer_ImplementsInterface(t *testing.T) {
	var _ DealMailer = newTestMailer()
}

func TestBuildDigestText_ContainsDealLines(t *testing.T) {
	digest := Digest{
		RecipientEmail: "traveler@example.com",
		RecipientName:  "旅人",
		Deals:          []*model.FlightRecommendation{testDeal("rec-1")},
	}

	text := buildDigestText(digest)

	for _, want := range []string{"旅人", "NRT", "CDG", "2026-10-01", "68000", "JPY", "ANA", "https://example.com/booking/nh215"} {
		if !strings.Contains(text, want) {
			t.Errorf("text part should contain %q, got:\n%s", want, text)
		}
	}
}

func TestBuildDigestHTML_ContainsDealsAndHeader(t *testing.T) {
	headerURL := "https://cdn.example.com/header.png"
	digest := Digest{
		RecipientEmail: "traveler@example.com",
		RecipientName:  "旅人",
		HeaderImageURL: &headerURL,
		Deals: []*model.FlightRecommendation{
			testDeal("rec-1"),
			testDeal("rec-2"),
		},
	}

	html := newTestMailer().buildDigestHTML(digest)

	for _, want := range []string{
		"https://cdn.example.com/header.png",
		"NRT → CDG",
		"<strong>特価</strong>",
		"https://example.com/booking/nh215",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML part should contain %q, got:\n%s", want, html)
		}
	}
}

// ディール概要に含まれるscriptタグはサニタイズで除去される
func TestBuildDigestHTML_SanitizesSummary(t *testing.T) {
	deal := testDeal("rec-1")
	deal.Summary = `<p>お得</p><script>alert('xss')</script>`

	digest := Digest{
		RecipientEmail: "traveler@example.com",
		RecipientName:  "旅人",
		Deals:          []*model.FlightRecommendation{deal},
	}

	html := newTestMailer().buildDigestHTML(digest)

	if strings.Contains(html, "<script") || strings.Contains(html, "alert(") {
		t.Errorf("HTML part should not contain script content, got:\n%s", html)
	}
	if !strings.Contains(html, "<p>お得</p>") {
		t.Errorf("HTML part should keep safe summary content, got:\n%s", html)
	}
}

// 受信者名のHTML特殊文字はエスケープされる
func TestBuildDigestHTML_EscapesRecipientName(t *testing.T) {
	digest := Digest{
		RecipientEmail: "traveler@example.com",
		RecipientName:  `<img src=x onerror="alert(1)">`,
		Deals:          []*model.FlightRecommendation{testDeal("rec-1")},
	}

	html := newTestMailer().buildDigestHTML(digest)

	if strings.Contains(html, `<img src=x`) {
		t.Errorf("recipient name should be escaped, got:\n%s", html)
	}
}

func TestBuildDigestHTML_NoHeaderImage_OmitsImgTag(t *testing.T) {
	digest := Digest{
		RecipientEmail: "traveler@example.com",
		RecipientName:  "旅人",
		Deals:          []*model.FlightRecommendation{testDeal("rec-1")},
	}

	html := newTestMailer().buildDigestHTML(digest)

	if strings.Contains(html, `alt="header"`) {
		t.Errorf("HTML part should not contain header image, got:\n%s", html)
	}
}
