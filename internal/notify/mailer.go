// Package notify はディールダイジェストのメール配信を提供する。
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	mailjet "github.com/mailjet/mailjet-apiv3-go"

	"github.com/hitoshi/travira/internal/model"
	"github.com/hitoshi/travira/internal/security"
)

// Digest は1通のダイジェストメールの内容を表す。
type Digest struct {
	RecipientEmail string
	RecipientName  string
	HeaderImageURL *string
	Deals          []*model.FlightRecommendation
}

// DealMailer はダイジェストメール送信のインターフェース。
type DealMailer interface {
	// SendDigest はダイジェストメールを1通送信する。
	SendDigest(ctx context.Context, digest Digest) error
}

// MailjetMailer はMailjet APIを使用したDealMailerの実装。
type MailjetMailer struct {
	client     *mailjet.Client
	sender     string
	senderName string
	sanitizer  security.ContentSanitizerService
}

// NewMailjetMailer はMailjetMailerを生成する。
func NewMailjetMailer(publicKey, privateKey, sender, senderName string, sanitizer security.ContentSanitizerService) *MailjetMailer {
	return &MailjetMailer{
		client:     mailjet.NewMailjetClient(publicKey, privateKey),
		sender:     sender,
		senderName: senderName,
		sanitizer:  sanitizer,
	}
}

// SendDigest はダイジェストメールを1通送信する。
// ディール概要はHTML組み立て前にサニタイズされる。
func (m *MailjetMailer) SendDigest(ctx context.Context, digest Digest) error {
	if len(digest.Deals) == 0 {
		return fmt.Errorf("digest has no deals")
	}

	subject := fmt.Sprintf("新着フライトディール %d件", len(digest.Deals))

	messages := mailjet.MessagesV31{
		Info: []mailjet.InfoMessagesV31{{
			From: &mailjet.RecipientV31{
				Email: m.sender,
				Name:  m.senderName,
			},
			To: &mailjet.RecipientsV31{
				mailjet.RecipientV31{
					Email: digest.RecipientEmail,
					Name:  digest.RecipientName,
				},
			},
			Subject:  subject,
			TextPart: buildDigestText(digest),
			HTMLPart: m.buildDigestHTML(digest),
		}},
	}

	if _, err := m.client.SendMailV31(&messages); err != nil {
		return fmt.Errorf("failed to send digest mail: %w", err)
	}

	slog.Info("digest mail sent",
		slog.String("recipient", digest.RecipientEmail),
		slog.Int("deals", len(digest.Deals)),
	)

	return nil
}

// buildDigestText はテキストパートを組み立てる。
func buildDigestText(digest Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sさん、新着のフライトディールをお届けします。\n\n", digest.RecipientName)
	for _, deal := range digest.Deals {
		fmt.Fprintf(&b, "- %s → %s %s %.0f %s (%s)\n",
			deal.Origin, deal.Destination,
			deal.DepartureDate.Format("2006-01-02"),
			deal.Price, deal.Currency, deal.Airline,
		)
		if deal.BookingURL != "" {
			fmt.Fprintf(&b, "  予約: %s\n", deal.BookingURL)
		}
	}
	return b.String()
}

// buildDigestHTML はHTMLパートを組み立てる。
// ディール概要のHTMLはサニタイズし、その他のフィールドはエスケープする。
func (m *MailjetMailer) buildDigestHTML(digest Digest) string {
	var b strings.Builder

	b.WriteString("<html><body>")
	if digest.HeaderImageURL != nil && *digest.HeaderImageURL != "" {
		fmt.Fprintf(&b, `<img src="%s" alt="header" style="max-width:600px">`,
			html.EscapeString(*digest.HeaderImageURL))
	}
	fmt.Fprintf(&b, "<p>%sさん、新着のフライトディールをお届けします。</p>",
		html.EscapeString(digest.RecipientName))

	for _, deal := range digest.Deals {
		b.WriteString(`<div style="margin-bottom:16px">`)
		fmt.Fprintf(&b, "<h3>%s → %s</h3>",
			html.EscapeString(deal.Origin), html.EscapeString(deal.Destination))
		fmt.Fprintf(&b, "<p>%s発 / %.0f %s / %s %s</p>",
			deal.DepartureDate.Format("2006-01-02"),
			deal.Price,
			html.EscapeString(deal.Currency),
			html.EscapeString(deal.Airline),
			html.EscapeString(deal.FlightNumber),
		)
		if deal.Summary != "" {
			b.WriteString(m.sanitizer.Sanitize(deal.Summary))
		}
		if deal.BookingURL != "" {
			fmt.Fprintf(&b, `<p><a href="%s">予約はこちら</a></p>`,
				html.EscapeString(deal.BookingURL))
		}
		b.WriteString("</div>")
	}

	fmt.Fprintf(&b, `<p style="color:#888;font-size:12px">%s時点の情報です。価格は変動する場合があります。</p>`,
		time.Now().Format("2006-01-02"))
	b.WriteString("</body></html>")

	return b.String()
}

// compile-time interface check
var _ DealMailer = (*MailjetMailer)(nil)
