// Package match decides whether a noisy provider record refers to the
// target business. Provider records are inconsistent: exact identifiers are
// the most reliable signal but often missing, phone and website are stable
// secondary identifiers, and name comparison is a deliberately lenient last
// resort.
package match

import (
	"strings"

	"github.com/sells-group/rankgrid/internal/model"
)

// Matches reports whether candidate refers to target. Rules are evaluated
// in fixed precedence order; the first rule whose signals are present on
// both sides decides by firing true. A missing signal never counts as a
// mismatch; it falls through to the next rule.
//
//  1. place id, exact
//  2. cid, exact
//  3. phone, digits-only comparison
//  4. website host, normalized hostname comparison
//  5. name, normalized + corporate-suffix-stripped, equal or substring
func Matches(candidate model.ResultRecord, target model.TargetBusiness) bool {
	if target.PlaceID != "" && candidate.PlaceID != "" && target.PlaceID == candidate.PlaceID {
		return true
	}

	if target.CID != "" && candidate.CID != "" && target.CID == candidate.CID {
		return true
	}

	if tp, cp := NormalizePhone(target.Phone), NormalizePhone(candidate.Phone); tp != "" && cp != "" && tp == cp {
		return true
	}

	if th, ch := NormalizeHost(target.WebsiteHost), NormalizeHost(candidate.WebsiteHost); th != "" && ch != "" && th == ch {
		return true
	}

	tn := StripCorpSuffixes(NormalizeName(target.Name))
	cn := StripCorpSuffixes(NormalizeName(candidate.Title))
	if tn != "" && cn != "" {
		if tn == cn || strings.Contains(tn, cn) || strings.Contains(cn, tn) {
			return true
		}
	}

	return false
}
