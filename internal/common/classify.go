package common

import "strings"

// FailureKind groups analysis failures by what the seller can do about them.
type FailureKind string

// Failure kinds, in the order their rules are checked.
const (
	FailureAuth               FailureKind = "auth"
	FailurePermission         FailureKind = "permission"
	FailureRateLimit          FailureKind = "rate-limit"
	FailureServiceUnavailable FailureKind = "service-unavailable"
	FailureNetworkTimeout     FailureKind = "network-timeout"
	FailureQuotaExhausted     FailureKind = "quota-exhausted"
	FailureGeneric            FailureKind = "generic"
)

// Hint is a classified, human-readable explanation of a failure.
type Hint struct {
	Kind    FailureKind
	Message string
	Detail  string
}

type failureRule struct {
	kind     FailureKind
	message  string
	detail   string
	keywords []string
}

// Substring matches are case-sensitive on purpose: "Forbidden" and "Rate limit"
// are matched the way upstream providers spell them.
var failureRules = []failureRule{
	{
		kind:     FailureAuth,
		keywords: []string{"401", "Unauthorized"},
		message:  "API 认证失败",
		detail:   "请检查 API Key 是否正确或已过期，在设置中重新配置",
	},
	{
		kind:     FailurePermission,
		keywords: []string{"403", "Forbidden"},
		message:  "API 访问被拒绝",
		detail:   "您的 API Key 可能没有权限，请检查账户状态",
	},
	{
		kind:     FailureRateLimit,
		keywords: []string{"429", "Rate limit", "rate limit"},
		message:  "请求过于频繁",
		detail:   "请稍等片刻后重试",
	},
	{
		kind:     FailureServiceUnavailable,
		keywords: []string{"500", "502", "503"},
		message:  "AI 服务暂时不可用",
		detail:   "服务器繁忙，请稍后重试",
	},
	{
		kind:     FailureNetworkTimeout,
		keywords: []string{"timeout", "ETIMEDOUT", "网络", "deadline exceeded", "transport failure", "connection refused"},
		message:  "网络连接超时",
		detail:   "请检查网络连接后重试",
	},
	{
		kind:     FailureQuotaExhausted,
		keywords: []string{"余额", "insufficient", "quota"},
		message:  "API 余额不足",
		detail:   "请充值后重试",
	},
}

// ClassifyFailure maps an error message onto a Hint. The first matching rule
// wins; unmatched messages become a generic hint carrying the raw text.
func ClassifyFailure(msg string) Hint {
	for _, rule := range failureRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return Hint{Kind: rule.kind, Message: rule.message, Detail: rule.detail}
			}
		}
	}
	return Hint{Kind: FailureGeneric, Message: "分析失败", Detail: msg}
}
