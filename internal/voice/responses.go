package voice

import (
	"regexp"
	"strconv"
	"strings"
)

// Canned conversation text.
const (
	Greeting = "Hey there! Ask anything about your money or say “I spent ₹100 on coffee” and I’ll log it instantly."

	UnsupportedMessage = "Sorry, voice recognition is not supported in this browser. Try typing your request."

	topSpendingReply = "Transport and Food remain your top spenders this week. Use the card carousel to freeze the Neo CashBack card if you’d like to limit lifestyle spends."
	budgetReply      = "You’re at 62% of the smart budget for May. I recommend lowering discretionary spending by ₹4,500 and moving it to the SIP Booster goal."
	fallbackReply    = "Processed! I’ll keep learning from your patterns and optimize your cash flow. Ask for a monthly summary or trigger a smart reminder anytime."
)

// Voice log defaults.
const (
	DefaultAmount = 250.0
	Merchant      = "Voice Log"
	Method        = "Voice Capture"
	Notes         = "Logged via Voice AI"
)

const spendTrigger = "i spent"

var spokenAmount = regexp.MustCompile(`₹?\s?(\d+[.,]?\d*)`)

// IsSpendCommand reports whether the utterance asks to log an expense.
func IsSpendCommand(utterance string) bool {
	return strings.Contains(strings.ToLower(utterance), spendTrigger)
}

// ParseAmount extracts the first amount from an utterance. A comma is read as
// a thousands separator. Missing or zero amounts yield DefaultAmount.
func ParseAmount(utterance string) float64 {
	m := spokenAmount.FindStringSubmatch(utterance)
	if m == nil {
		return DefaultAmount
	}
	amount, err := strconv.ParseFloat(strings.Replace(m[1], ",", "", 1), 64)
	if err != nil || amount == 0 {
		return DefaultAmount
	}
	return amount
}

// CannedReply answers a non-logging query.
func CannedReply(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "top spending"):
		return topSpendingReply
	case strings.Contains(q, "budget"):
		return budgetReply
	default:
		return fallbackReply
	}
}
