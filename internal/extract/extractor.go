// Package extract turns raw ticket content into tier-1 facts. Everything in
// this package is deterministic: regex and keyword matching only, no network
// and no model calls. The companion verifier (verifier.go) adds the tier-2
// pass on top.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
)

// WriterName tags tier-1 mutations in the facts audit trail.
const WriterName = "extractor"

// Product SKU grammars. Text is uppercased before matching.
var productPatterns = []*regexp.Regexp{
	// TRM.TVH.0211BB, 10.FGC.4003CP
	regexp.MustCompile(`\b(\d{1,3}\.?[A-Z]{2,4}\.[A-Z]{0,4}\.?\d{3,4}[A-Z]{0,3})\b`),
	// 100.1170CP, 160.2420MB
	regexp.MustCompile(`\b(\d{3}\.\d{3,4}[A-Z]{0,3})\b`),
	// PBV1005A, PBV2105, PBV.2105
	regexp.MustCompile(`\b(PBV\.?\d{4}[A-Z]?[A-Z]{0,2})\b`),
	// HS6270MB, DKM2420BN
	regexp.MustCompile(`\b([A-Z]{2,4}\d{4}[A-Z]{0,3})\b`),
	// TRM.TVH.0211
	regexp.MustCompile(`\b([A-Z]{2,4}\.[A-Z]{2,4}\.\d{3,4}[A-Z]{0,2})\b`),
	// UF.2102, CFB.2250
	regexp.MustCompile(`\b([A-Z]{2,3}\.\d{4}[A-Z]{0,2})\b`),
	// K.1230-2229
	regexp.MustCompile(`\b([A-Z]\.\d{4}-\d{4}[A-Z]{0,2})\b`),
	// general letters.digits
	regexp.MustCompile(`\b([A-Z]{2,4}\.\d{3,5}[A-Z]{0,3})\b`),
}

var partNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{7}-\d{3}[A-Z]?)\b`),
	regexp.MustCompile(`\b([A-Z]{2,4}\d{4}[A-Z]?-\d{4})\b`),
	regexp.MustCompile(`\b(\d{4}-\d{4})\b`),
}

var addressKeywords = []*regexp.Regexp{
	regexp.MustCompile(`\baddress\b`), regexp.MustCompile(`\bship\s*to\b`),
	regexp.MustCompile(`\bsend\s*to\b`), regexp.MustCompile(`\bdeliver\s*to\b`),
	regexp.MustCompile(`\bstreet\b`), regexp.MustCompile(`\bavenue\b`),
	regexp.MustCompile(`\bave\b`), regexp.MustCompile(`\bblvd\b`),
	regexp.MustCompile(`\bdrive\b`), regexp.MustCompile(`\bcity\b`),
	regexp.MustCompile(`\bstate\b`), regexp.MustCompile(`\bzip\b`),
	regexp.MustCompile(`\bpostal\b`), regexp.MustCompile(`\bzipcode\b`),
	regexp.MustCompile(`\b\d{5}(-\d{4})?\b`),
}

var receiptKeywords = []*regexp.Regexp{
	regexp.MustCompile(`\breceipt\b`), regexp.MustCompile(`\binvoice\b`),
	regexp.MustCompile(`\bproof\s*of\s*purchase\b`),
	regexp.MustCompile(`\border\s*confirmation\b`),
	regexp.MustCompile(`\bpurchase\s*date\b`), regexp.MustCompile(`\bbought\b`),
	regexp.MustCompile(`\bpurchased\b`), regexp.MustCompile(`\border\s*number\b`),
	regexp.MustCompile(`\btransaction\b`),
}

var poKeywords = []*regexp.Regexp{
	regexp.MustCompile(`\bpo\s*#`), regexp.MustCompile(`\bpo\s*:`),
	regexp.MustCompile(`\bpo\s*\d`), regexp.MustCompile(`\bpurchase\s*order\b`),
	regexp.MustCompile(`\border\s*#`), regexp.MustCompile(`\border\s*number\b`),
	regexp.MustCompile(`\border\s*:\s*\d`), regexp.MustCompile(`\bp\.o\.`),
	regexp.MustCompile(`\bpo\b\s*\d{4,}`),
}

// US street address, then a looser city/state/zip fallback.
var (
	fullAddressPattern = regexp.MustCompile(`(?i)(\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Boulevard|Blvd|Drive|Dr|Road|Rd|Lane|Ln|Way|Court|Ct)[,\s]+[A-Za-z\s]+[,\s]+[A-Z]{2}\s+\d{5}(?:-\d{4})?)`)
	cityStateZipPattern = regexp.MustCompile(`([A-Za-z\s]+,\s*[A-Z]{2}\s+\d{5}(?:-\d{4})?)`)
)

// Attachment claims in ticket text, checked against what actually arrived.
var claimPatterns = map[string]*regexp.Regexp{
	"video":     regexp.MustCompile(`(?:attached|attaching|sent|see|included|enclosed)[^.]{0,40}\bvideo\b|\bvideo\b[^.]{0,40}(?:attached|included|enclosed)`),
	"photos":    regexp.MustCompile(`(?:attached|attaching|sent|see|included|enclosed)[^.]{0,40}\b(?:photo|photos|picture|pictures|image|images|pic|pics)\b|\b(?:photo|photos|picture|pictures|image|images)\b[^.]{0,40}(?:attached|included|enclosed)`),
	"documents": regexp.MustCompile(`(?:attached|attaching|sent|see|included|enclosed)[^.]{0,40}\b(?:receipt|invoice|document|pdf|manual)\b|\b(?:receipt|invoice|document|pdf)\b[^.]{0,40}(?:attached|included|enclosed)`),
}

// ParseProductCode splits a SKU into base model and finish suffix. A
// two-letter suffix only counts as a finish when the character before it is a
// digit, a period, or the variant letter A; that keeps plain words like
// PROBLEM from parsing as model PROBL + finish EM.
func ParseProductCode(fullCode string) ticket.ProductCode {
	code := strings.ToUpper(strings.TrimSpace(fullCode))
	pc := ticket.ProductCode{FullSKU: code, Model: code}

	if len(code) < 3 {
		return pc
	}

	if name, ok := finishCodes[code[len(code)-2:]]; ok {
		before := code[len(code)-3]
		if (before >= '0' && before <= '9') || before == '.' || before == 'A' {
			pc.Model = code[:len(code)-2]
			pc.FinishCode = code[len(code)-2:]
			pc.FinishName = name
			return pc
		}
	}

	if len(code) >= 4 {
		if name, ok := finishCodes[code[len(code)-3:]]; ok {
			pc.Model = code[:len(code)-3]
			pc.FinishCode = code[len(code)-3:]
			pc.FinishName = name
			return pc
		}
	}

	return pc
}

// ExtractProductCodes finds candidate SKUs in text, in order of appearance.
// Repeated occurrences of the same token are collapsed; distinct tokens that
// share a base model are kept, reconciliation happens later in the pipeline.
func ExtractProductCodes(text string) []ticket.ProductCode {
	if text == "" {
		return nil
	}
	upper := strings.ToUpper(text)

	type hit struct {
		pos   int
		token string
	}
	var hits []hit
	seen := make(map[string]bool)

	for _, pat := range productPatterns {
		for _, loc := range pat.FindAllStringIndex(upper, -1) {
			token := upper[loc[0]:loc[1]]
			if !seen[token] {
				seen[token] = true
				hits = append(hits, hit{pos: loc[0], token: token})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	codes := make([]ticket.ProductCode, 0, len(hits))
	for _, h := range hits {
		codes = append(codes, ParseProductCode(h.token))
	}
	return codes
}

// ExtractPartNumbers finds hyphenated part numbers, ordered by position.
func ExtractPartNumbers(text string) []string {
	if text == "" {
		return nil
	}
	upper := strings.ToUpper(text)

	type hit struct {
		pos   int
		token string
	}
	var hits []hit
	seen := make(map[string]bool)
	for _, pat := range partNumberPatterns {
		for _, loc := range pat.FindAllStringIndex(upper, -1) {
			token := upper[loc[0]:loc[1]]
			if !seen[token] {
				seen[token] = true
				hits = append(hits, hit{pos: loc[0], token: token})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, h.token)
	}
	return parts
}

// ExtractAddress returns the best address candidate with a confidence. Full
// street addresses score higher than bare city/state/zip fragments.
func ExtractAddress(text string) (string, float64) {
	if text == "" {
		return "", 0
	}
	if m := fullAddressPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), 0.6
	}
	if m := cityStateZipPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), 0.4
	}
	return "", 0
}

func matchAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractFinishMentions returns canonical finish names mentioned in the text.
func ExtractFinishMentions(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, fm := range finishMentions {
		if strings.Contains(lower, fm.keyword) {
			found = append(found, fm.name)
		}
	}
	return found
}

// Extract builds tier-1 facts from a ticket. It never returns an error;
// anything it cannot parse is simply absent from the result.
func Extract(t *ticket.Ticket) *ticket.Facts {
	facts := ticket.NewFacts()
	text := strings.ToLower(t.FullText())

	photos, videos, documents := t.AttachmentCounts()

	codes := ExtractProductCodes(t.FullText())
	parts := ExtractPartNumbers(t.FullText())
	finishes := ExtractFinishMentions(t.FullText())
	address, addrConf := ExtractAddress(t.FullText())

	updates := map[string]any{
		"has_model_number": len(codes) > 0,
		"has_address":      matchAny(text, addressKeywords),
		"has_receipt":      matchAny(text, receiptKeywords) || hasReceiptAttachment(t),
		"has_po_number":    matchAny(text, poKeywords),
		"has_photos":       photos > 0,
		"has_video":        videos > 0,
		"has_documents":    documents > 0,
	}
	if len(codes) > 0 {
		updates["raw_product_codes"] = codes
	}
	if len(parts) > 0 {
		updates["raw_part_numbers"] = parts
	}
	if len(finishes) > 0 {
		updates["raw_finish_mentions"] = finishes
	}
	if address != "" {
		updates["extracted_address"] = address
		updates["address_confidence"] = addrConf
	}
	if claimed := detectClaimedButMissing(text, photos, videos, documents); len(claimed) > 0 {
		updates["claimed_but_missing"] = claimed
	}

	// Apply cannot fail here: a fresh Facts has nothing to clear.
	if err := facts.Apply(WriterName, updates); err != nil {
		logging.Error(logging.CategoryExtract, "tier-1 apply rejected: %v", err)
	}

	logging.Extract("ticket %s: codes=%d parts=%d finishes=%d address=%v",
		t.ID, len(codes), len(parts), len(finishes), address != "")
	return facts
}

// hasReceiptAttachment reports whether any document attachment looks like a
// proof of purchase by filename.
func hasReceiptAttachment(t *ticket.Ticket) bool {
	for _, a := range t.Attachments {
		if a.Kind() != ticket.KindDocument {
			continue
		}
		name := strings.ToLower(a.Filename)
		if strings.Contains(name, "receipt") || strings.Contains(name, "invoice") ||
			strings.Contains(name, "order") || strings.Contains(name, "purchase") {
			return true
		}
	}
	return false
}

// detectClaimedButMissing flags attachment kinds the customer says they sent
// but which did not arrive, usually a size limit or an external link.
func detectClaimedButMissing(lowerText string, photos, videos, documents int) []string {
	var claimed []string
	if claimPatterns["video"].MatchString(lowerText) && videos == 0 {
		claimed = append(claimed, "video")
	}
	if claimPatterns["photos"].MatchString(lowerText) && photos == 0 {
		claimed = append(claimed, "photos")
	}
	if claimPatterns["documents"].MatchString(lowerText) && documents == 0 {
		claimed = append(claimed, "documents")
	}
	return claimed
}
