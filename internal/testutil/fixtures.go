package testutil

import (
	"strings"

	"github.com/Veraticus/quotedesk/internal/model"
)

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s.
func String(s string) *string { return &s }

// PriceList is a small price list covering every billing unit.
func PriceList() []model.ServiceEntry {
	return []model.ServiceEntry{
		{ID: 1, Name: "文献综述（本科）", Unit: model.UnitThousand, SimplePrice: Float(30), ComplexPrice: Float(50)},
		{ID: 2, Name: "实习报告", Unit: model.UnitThousand, SimplePrice: Float(25), ComplexPrice: Float(40)},
		{ID: 3, Name: "PPT制作", Unit: model.UnitPage, SimplePrice: Float(5), ComplexPrice: Float(10)},
		{ID: 4, Name: "视频配音", Unit: model.UnitMinute, SimplePrice: Float(10)},
		{ID: 5, Name: "活动策划", Unit: model.UnitPiece, SimplePrice: Float(200), ComplexPrice: Float(400), RequiresMaterial: true},
	}
}

// KeywordExtractor recognizes a few article types and a "<n>字" word count.
func KeywordExtractor(content string) (model.ExtractedInfo, []string) {
	info := model.ExtractedInfo{SpecialRequirements: []string{}}
	for _, t := range []string{"文献综述", "报告", "ppt", "配音", "策划"} {
		if strings.Contains(strings.ToLower(content), t) {
			info.ArticleType = String(t)
			break
		}
	}
	if i := strings.Index(content, "字"); i > 0 {
		j := i
		for j > 0 && content[j-1] >= '0' && content[j-1] <= '9' {
			j--
		}
		if j < i {
			var n float64
			for _, c := range content[j:i] {
				n = n*10 + float64(c-'0')
			}
			info.WordCount = Float(n)
		}
	}
	return info, []string{"好的亲，可以做", "亲，请问什么时候要呢？", "亲，有参考资料吗？"}
}

// BuyerTurn builds a buyer turn, optionally analyzed.
func BuyerTurn(sessionID, messageID int64, content string, analysis *model.Analysis) model.MessageTurn {
	if analysis != nil {
		analysis.SessionID = sessionID
		analysis.MessageID = messageID
	}
	return model.MessageTurn{
		Message:  model.Message{ID: messageID, SessionID: sessionID, Role: model.RoleBuyer, Content: content},
		Analysis: analysis,
	}
}

// SellerTurn builds a seller turn.
func SellerTurn(sessionID, messageID int64, content string) model.MessageTurn {
	return model.MessageTurn{
		Message: model.Message{ID: messageID, SessionID: sessionID, Role: model.RoleSeller, Content: content},
	}
}
