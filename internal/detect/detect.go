// Package detect recognises transfer-like transaction descriptions and
// pulls the post-transaction balance out of bank and mobile-money messages.
package detect

import (
	"regexp"
	"strings"

	"github.com/cedisense/cedisense-bfa/internal/domain"

	"github.com/shopspring/decimal"
)

// Directional patterns run against the lowercased description, in this order.
var directional = []struct {
	re     *regexp.Regexp
	source domain.WalletType
	dest   domain.WalletType
}{
	// bank credited from a momo wallet: "instant pay: 0244..." / "from 0244..."
	{regexp.MustCompile(`instant pay:\s*\d+|from\s+\d+`), domain.WalletMomo, domain.WalletBank},
	// momo credited from a bank
	{regexp.MustCompile(`payment received.*from\s+(emergent|bank|transfer)`), domain.WalletBank, domain.WalletMomo},
	// mtn momo pushed to a bank account
	{regexp.MustCompile(`transfer.*to\s+(bank|acc|account)`), domain.WalletMomo, domain.WalletBank},
}

var transferPhrases = []string{"transfer to", "transferred to"}

// Balance patterns run against the original text, momo style first.
var balancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)current balance:\s*ghs\s*([\d,]+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)available balance is now\s*ghs\s*([\d,]+(?:\.\d+)?)`),
}

// Detect inspects a description for transfer wording and an embedded
// balance. The result is advisory.
func Detect(description string) domain.TransferInfo {
	lower := strings.ToLower(description)
	info := domain.TransferInfo{BalanceSnapshot: ExtractBalanceSnapshot(description)}

	for _, p := range directional {
		if p.re.MatchString(lower) {
			src, dst := p.source, p.dest
			info.IsTransferLikely = true
			info.SuggestedSourceType = &src
			info.SuggestedDestType = &dst
			break
		}
	}

	if !info.IsTransferLikely {
		for _, phrase := range transferPhrases {
			if strings.Contains(lower, phrase) {
				info.IsTransferLikely = true
				break
			}
		}
	}
	return info
}

// ExtractBalanceSnapshot returns the balance the message reports after the
// transaction, or nil when there is none.
func ExtractBalanceSnapshot(description string) *decimal.Decimal {
	for _, re := range balancePatterns {
		m := re.FindStringSubmatch(description)
		if m == nil {
			continue
		}
		amount, err := domain.ParseAmount(m[1])
		if err != nil {
			continue
		}
		return &amount
	}
	return nil
}
