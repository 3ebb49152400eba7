package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/quotedesk/internal/model"
)

func catalogEntries() []model.ServiceEntry {
	return []model.ServiceEntry{
		{ID: 1, Name: "文献综述（本科）", Unit: model.UnitThousand, SimplePrice: price(30), ComplexPrice: price(50)},
		{ID: 2, Name: "实习报告", Unit: model.UnitThousand, SimplePrice: price(25)},
		{ID: 3, Name: "PPT制作", Unit: model.UnitPage, SimplePrice: price(5), ComplexPrice: price(10)},
		{ID: 4, Name: "活动策划", Unit: model.UnitPiece, SimplePrice: price(200)},
		{ID: 5, Name: "演讲稿", Unit: model.UnitThousand, SimplePrice: price(40)},
		{ID: 6, Name: "公众号推文", Unit: model.UnitPiece, SimplePrice: price(150)},
		{ID: 7, Name: "视频配音", Unit: model.UnitMinute, SimplePrice: price(10)},
	}
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name        string
		articleType string
		wantID      int64
		wantKind    MatchKind
	}{
		{name: "name contains type", articleType: "配音", wantID: 7, wantKind: MatchName},
		{name: "type contains stripped name", articleType: "文献综述写作", wantID: 1, wantKind: MatchName},
		{name: "case insensitive", articleType: "ppt", wantID: 3, wantKind: MatchName},
		{name: "presentation keyword", articleType: "演示文稿", wantID: 3, wantKind: MatchKeyword},
		{name: "thesis goes to literature review", articleType: "毕业论文", wantID: 1, wantKind: MatchKeyword},
		{name: "plan keyword", articleType: "营销策划书", wantID: 4, wantKind: MatchKeyword},
		{name: "speech keyword", articleType: "演讲", wantID: 5, wantKind: MatchName},
		{name: "copywriting keyword", articleType: "广告文案", wantID: 6, wantKind: MatchKeyword},
		{name: "no match", articleType: "obscure genre X", wantKind: MatchNone},
		{name: "empty type", articleType: "  ", wantKind: MatchNone},
	}

	m := NewMatcher(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.articleType, catalogEntries())
			assert.Equal(t, tt.wantKind, got.Kind, got.Kind.String())
			if tt.wantKind != MatchNone {
				assert.Equal(t, tt.wantID, got.Entry.ID)
			}
		})
	}
}

func TestMatcher_FirstTriggeredRuleDecides(t *testing.T) {
	entries := []model.ServiceEntry{
		{ID: 1, Name: "策划案", Unit: model.UnitPiece, SimplePrice: price(100)},
	}
	// "论文" triggers the thesis rule, which finds nothing; later rules are not tried
	// even though "策划" also appears.
	got := NewMatcher(nil).Match("论文策划", entries)
	assert.False(t, got.Found())
}

func TestMatcher_ParentheticalOnlyNameNeverMatchesEverything(t *testing.T) {
	entries := []model.ServiceEntry{{ID: 1, Name: "（加急）", Unit: model.UnitPiece, SimplePrice: price(10)}}
	got := NewMatcher(nil).Match("报告", entries)
	assert.False(t, got.Found())
}

func TestMatcher_CustomRules(t *testing.T) {
	m := NewMatcher([]KeywordRule{{Triggers: []string{"cv"}, Targets: []string{"简历"}}})
	got := m.Match("cv polishing", []model.ServiceEntry{{ID: 9, Name: "简历优化"}})
	assert.True(t, got.Found())
	assert.Equal(t, int64(9), got.Entry.ID)
}

func TestMatcher_EmptyCatalog(t *testing.T) {
	got := NewMatcher(nil).Match("报告", nil)
	assert.False(t, got.Found())
}
