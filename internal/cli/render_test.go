package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/pricing"
	"github.com/Veraticus/quotedesk/internal/testutil"
)

func TestRenderSession(t *testing.T) {
	analysis := &model.Analysis{
		ExtractedInfo: model.ExtractedInfo{
			ArticleType: testutil.String("报告"),
			WordCount:   testutil.Float(3000),
		},
		MissingInfo:      []string{"截止时间"},
		SuggestedReplies: []string{"好的亲", "请问什么时候要？"},
	}
	sess := &model.Session{
		ID:     7,
		Status: model.SessionActive,
		Messages: []model.MessageTurn{
			testutil.BuyerTurn(7, 1, "写个报告", analysis),
			testutil.SellerTurn(7, 2, "好的亲"),
		},
	}
	sess.RecomputeLatestAnalysis()

	var out bytes.Buffer
	require.NoError(t, RenderSession(&out, SessionView{
		Session:    sess,
		Selections: map[int64]string{1: "好的亲"},
	}))

	got := out.String()
	for _, want := range []string{"Session #7", "[1]", "写个报告", "Seller", "chosen: 好的亲", "Type:", "报告", "Words:", "3000", "截止时间", "0. 好的亲", "1. 请问什么时候要？"} {
		assert.Contains(t, got, want)
	}
}

func TestRenderSession_PendingAndFailed(t *testing.T) {
	tests := []struct {
		name string
		view SessionView
		want []string
	}{
		{
			name: "no session",
			view: SessionView{},
			want: []string{"No session loaded"},
		},
		{
			name: "pending",
			view: SessionView{Pending: "在吗"},
			want: []string{"在吗", "analyzing"},
		},
		{
			name: "failed",
			view: SessionView{
				Failed: "在吗",
				Hint:   &common.Hint{Kind: common.FailureAuth, Message: "API 认证失败", Detail: "请检查 API Key"},
			},
			want: []string{"not analyzed", "API 认证失败", "请检查 API Key", "quote retry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, RenderSession(&out, tt.view))
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestFormatEstimate(t *testing.T) {
	entries := testutil.PriceList()

	tests := []struct {
		name string
		est  pricing.Estimate
		want []string
	}{
		{
			name: "awaiting",
			est:  pricing.Estimate{Status: pricing.AwaitingClassification},
			want: []string{"waiting for an article type"},
		},
		{
			name: "no match",
			est:  pricing.Estimate{Status: pricing.NoMatch, ArticleType: "翻译"},
			want: []string{`no service matches "翻译"`},
		},
		{
			name: "priced range",
			est: pricing.Estimate{
				Status:      pricing.Priced,
				Entry:       entries[0],
				Quantity:    2,
				Coefficient: 1,
				Range:       pricing.Range{Min: 60, Max: 100},
			},
			want: []string{"¥60-¥100", "文献综述（本科）", "2 千字"},
		},
		{
			name: "flat price needs material",
			est: pricing.Estimate{
				Status:      pricing.Priced,
				Entry:       entries[4],
				Quantity:    1,
				Coefficient: 1.5,
				Manual:      true,
				Range:       pricing.Range{Min: 300, Max: 300},
			},
			want: []string{"¥300", "×1.5", "(manual)", "requires buyer material"},
		},
		{
			name: "insufficient input",
			est:  pricing.Estimate{Status: pricing.InsufficientInput, Entry: entries[2], Coefficient: 1},
			want: []string{"PPT制作", "enter a quantity"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatEstimate(tt.est)
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestRenderSessionPage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderSessionPage(&out, &model.SessionPage{}))
	assert.Contains(t, out.String(), "No sessions found")

	out.Reset()
	page := &model.SessionPage{
		Items: []model.SessionSummary{
			{ID: 12, Status: model.SessionClosed, DealStatus: model.DealSuccess, DealPrice: testutil.Float(500), ArticleType: testutil.String("报告"), MessageCount: 4, PreviewMessage: "老板\n写个报告"},
			{ID: 11, Status: model.SessionActive, DealStatus: model.DealFailed, MessageCount: 1, PreviewMessage: strings.Repeat("长", 40)},
		},
		Total:      2,
		Page:       1,
		PageSize:   20,
		TotalPages: 1,
	}
	require.NoError(t, RenderSessionPage(&out, page))

	got := out.String()
	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "success")
	assert.Contains(t, lines[1], "¥500")
	assert.Contains(t, lines[1], "老板 写个报告")
	assert.Contains(t, lines[2], "pending", "active sessions show no deal outcome")
	assert.Contains(t, lines[2], "…")
	assert.Contains(t, lines[3], "Page 1/1")
}

func TestRenderServices(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderServices(&out, testutil.PriceList()))
	got := out.String()
	assert.Contains(t, got, "¥30-¥50/千字")
	assert.Contains(t, got, "¥10/分钟")
	assert.Contains(t, got, "活动策划")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "a b", truncate("a\n  b", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
