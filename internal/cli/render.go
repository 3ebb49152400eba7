package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/pricing"
)

const timeLayout = "2006-01-02 15:04"

// SessionView is everything shown for the current session.
type SessionView struct {
	Session    *model.Session
	Selections map[int64]string
	Hint       *common.Hint
	Pending    string
	Failed     string
}

// RenderSession writes the conversation, the latest analysis and any pending
// or failed message.
func RenderSession(w io.Writer, v SessionView) error {
	var b strings.Builder
	s := v.Session
	if s == nil {
		b.WriteString(SubtleStyle.Render("No session loaded. Send a buyer message to start one.") + "\n")
	} else {
		b.WriteString(FormatTitle(fmt.Sprintf("Session #%d", s.ID)) + "\n")
		b.WriteString(sessionStatusLine(s) + "\n\n")

		for _, turn := range s.Messages {
			b.WriteString(formatTurn(turn, v.Selections) + "\n")
		}
	}

	if v.Pending != "" {
		b.WriteString(BuyerStyle.Render("Buyer") + " " + v.Pending + " " + SubtleStyle.Render(PendingIcon+" analyzing") + "\n")
	}
	if v.Failed != "" {
		b.WriteString(BuyerStyle.Render("Buyer") + " " + v.Failed + " " + ErrorStyle.Render(ErrorIcon+" not analyzed") + "\n")
	}
	if v.Hint != nil {
		b.WriteString(FormatHint(*v.Hint) + "\n")
	}

	if s != nil && s.LatestAnalysis != nil {
		b.WriteString("\n" + FormatAnalysis(s.LatestAnalysis))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sessionStatusLine(s *model.Session) string {
	parts := []string{string(s.Status)}
	if s.IsClosed() {
		parts = append(parts, "deal "+string(s.EffectiveDealStatus()))
		if s.DealPrice != nil {
			parts = append(parts, "¥"+formatAmount(*s.DealPrice))
		}
	}
	if t := s.LatestArticleType(); t != "" {
		parts = append(parts, t)
	}
	if !s.UpdatedAt.IsZero() {
		parts = append(parts, "updated "+s.UpdatedAt.Local().Format(timeLayout))
	}
	return SubtleStyle.Render(strings.Join(parts, " · "))
}

func formatTurn(turn model.MessageTurn, selections map[int64]string) string {
	msg := turn.Message
	label := BuyerStyle.Render("Buyer")
	if msg.Role == model.RoleSeller {
		label = SellerStyle.Render("Seller")
	}
	line := fmt.Sprintf("%s %s %s", SubtleStyle.Render(fmt.Sprintf("[%d]", msg.ID)), label, msg.Content)
	if msg.Role == model.RoleBuyer && turn.Analysis == nil {
		line += " " + SubtleStyle.Render("(no analysis)")
	}
	if sel, ok := selections[msg.ID]; ok {
		line += "\n    " + SuccessStyle.Render(SuccessIcon+" chosen: "+sel)
	}
	return line
}

// FormatAnalysis renders extracted requirements and suggested replies.
func FormatAnalysis(a *model.Analysis) string {
	var b strings.Builder
	info := a.ExtractedInfo

	rows := [][2]string{}
	if t := info.ArticleTypeOrEmpty(); t != "" {
		rows = append(rows, [2]string{"Type", t})
	}
	if info.Topic != nil && *info.Topic != "" {
		rows = append(rows, [2]string{"Topic", *info.Topic})
	}
	if info.WordCount != nil {
		rows = append(rows, [2]string{"Words", formatAmount(*info.WordCount)})
	}
	if info.Deadline != nil && *info.Deadline != "" {
		rows = append(rows, [2]string{"Deadline", *info.Deadline})
	}
	if info.HasReference != nil {
		rows = append(rows, [2]string{"Reference", strconv.FormatBool(*info.HasReference)})
	}
	if len(info.SpecialRequirements) > 0 {
		rows = append(rows, [2]string{"Requirements", strings.Join(info.SpecialRequirements, "; ")})
	}
	if len(a.MissingInfo) > 0 {
		rows = append(rows, [2]string{"Missing", WarningStyle.Render(strings.Join(a.MissingInfo, ", "))})
	}
	if pe := a.PriceEstimate; pe != nil && pe.CanQuote && pe.Min != nil && pe.Max != nil {
		rows = append(rows, [2]string{"AI estimate", fmt.Sprintf("¥%s-¥%s", formatAmount(*pe.Min), formatAmount(*pe.Max))})
	}
	for _, r := range rows {
		b.WriteString(TableCellStyle.Render(BoldStyle.Render(r[0]+":")) + r[1] + "\n")
	}

	if len(a.SuggestedReplies) > 0 {
		b.WriteString(BoldStyle.Render(RobotIcon+" Suggested replies") + SubtleStyle.Render(fmt.Sprintf(" for message %d", a.MessageID)) + "\n")
		for i, r := range a.SuggestedReplies {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i, r))
		}
	}
	return b.String()
}

// FormatHint renders a classified failure with a retry reminder.
func FormatHint(h common.Hint) string {
	msg := FormatError(h.Message)
	if h.Detail != "" {
		msg += "\n  " + SubtleStyle.Render(h.Detail)
	}
	return msg + "\n  " + InfoStyle.Render(RetryIcon+" quote retry | quote dismiss")
}

// FormatEstimate renders the pricing panel for est.
func FormatEstimate(est pricing.Estimate) string {
	header := BoldStyle.Render(PriceIcon + " Price")
	switch est.Status {
	case pricing.AwaitingClassification:
		return header + " " + SubtleStyle.Render("waiting for an article type")
	case pricing.NoMatch:
		return header + " " + WarningStyle.Render(fmt.Sprintf("no service matches %q", est.ArticleType))
	case pricing.NoQuote:
		return header + " " + WarningStyle.Render(est.Entry.Name+" has no list price")
	}

	detail := fmt.Sprintf("%s (%s) ×%s", est.Entry.Name, est.Entry.PriceLabel(), formatAmount(est.Coefficient))
	if est.Status == pricing.InsufficientInput {
		return header + " " + detail + " " + SubtleStyle.Render("enter a quantity")
	}

	qty := formatAmount(est.Quantity) + " " + est.Entry.Unit.Label()
	if est.Manual {
		qty += " (manual)"
	}
	var priced string
	if est.Range.Min == est.Range.Max {
		priced = "¥" + formatAmount(est.Range.Min)
	} else {
		priced = fmt.Sprintf("¥%s-¥%s", formatAmount(est.Range.Min), formatAmount(est.Range.Max))
	}
	out := header + " " + PriceStyle.Render(priced) + "\n  " + detail + ", " + qty
	if est.Entry.RequiresMaterial {
		out += "\n  " + WarningStyle.Render("requires buyer material")
	}
	return out
}

// RenderSessionPage writes one page of the session history.
func RenderSessionPage(w io.Writer, page *model.SessionPage) error {
	if page == nil || len(page.Items) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No sessions found."))
		return err
	}

	rows := make([][]string, 0, len(page.Items)+1)
	rows = append(rows, []string{"ID", "Status", "Deal", "Type", "Price", "Msgs", "Updated", "Preview"})
	for _, s := range page.Items {
		price := "-"
		if s.DealPrice != nil {
			price = "¥" + formatAmount(*s.DealPrice)
		}
		articleType := "-"
		if s.ArticleType != nil && *s.ArticleType != "" {
			articleType = *s.ArticleType
		}
		deal := s.DealStatus
		if s.Status != model.SessionClosed || deal == "" {
			deal = model.DealPending
		}
		updated := "-"
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Local().Format(timeLayout)
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			string(s.Status),
			string(deal),
			articleType,
			price,
			strconv.Itoa(s.MessageCount),
			updated,
			truncate(s.PreviewMessage, 30),
		})
	}

	if _, err := io.WriteString(w, renderTable(rows)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, SubtleStyle.Render(fmt.Sprintf("Page %d/%d · %d sessions", page.Page, max(page.TotalPages, 1), page.Total)))
	return err
}

// RenderServices writes the price list.
func RenderServices(w io.Writer, entries []model.ServiceEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("The price list is empty."))
		return err
	}
	rows := [][]string{{"ID", "Service", "Price", "Material", "Note"}}
	for _, e := range entries {
		material := ""
		if e.RequiresMaterial {
			material = "yes"
		}
		rows = append(rows, []string{strconv.FormatInt(e.ID, 10), e.Name, e.PriceLabel(), material, e.Note})
	}
	_, err := io.WriteString(w, renderTable(rows))
	return err
}

// renderTable lays rows out in columns; the first row is the header.
func renderTable(rows [][]string) string {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := TableCellStyle.Width(widths[i] + 2)
			if r == 0 {
				style = style.Bold(true).Foreground(SubtleColor)
			}
			cells[i] = style.Render(cell)
		}
		b.WriteString(strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " ") + "\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
