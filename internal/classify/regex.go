package classify

import (
	"context"
	"regexp"

	"github.com/alexanderramin/smeta/internal/domain"
)

const (
	strictConfidence = 1.0
	looseConfidence  = 0.9
)

type codePattern struct {
	re     *regexp.Regexp
	label  domain.Label
	strict bool
}

// codePatterns is ordered: strict families first, then loose fallbacks.
// Within a tier, equipment precedes material because machine codes share
// the leading-digit shape of material codes.
var codePatterns = []codePattern{
	// Unit rates: ГЭСН / ФЕР / ТЕР with their -м -п -р -мр collections.
	{regexp.MustCompile(`^(?:ГЭСН|ФЕР|ТЕР)(?:мр|м|п|р)?\s*\d+-\d+-\d+`), domain.LabelWork, true},
	{regexp.MustCompile(`^(?:ФСЭМ|ТСЭМ)[\s-]*\d`), domain.LabelEquipment, true},
	{regexp.MustCompile(`^91\.\d{2}\.\d{2}-\d{3}$`), domain.LabelEquipment, true},
	{regexp.MustCompile(`^(?:ФССЦ|ФСБЦ|ТССЦ|ТСЦ|ССЦ)[\s-]*\d`), domain.LabelMaterial, true},
	{regexp.MustCompile(`^\d{2}\.\d\.\d{2}\.\d{2}-\d{4}$`), domain.LabelMaterial, true},
	{regexp.MustCompile(`^[14]-\d{3}-\d{1,2}$`), domain.LabelLabor, true},

	{regexp.MustCompile(`(?i)(?:^|\P{L})(?:ГЭСН|ФЕР|ТЕР)`), domain.LabelWork, false},
	{regexp.MustCompile(`^91\.\d{2}`), domain.LabelEquipment, false},
	{regexp.MustCompile(`(?i)(?:^|\P{L})(?:ФСЭМ|ТСЭМ)`), domain.LabelEquipment, false},
	{regexp.MustCompile(`^\d{2}\.\d\.\d{2}\.\d{2}`), domain.LabelMaterial, false},
	{regexp.MustCompile(`(?i)(?:^|\P{L})(?:ФССЦ|ФСБЦ|ТССЦ|ТСЦ|ССЦ|прайс)`), domain.LabelMaterial, false},
	{regexp.MustCompile(`(?i)^(?:ОТм?|ЗТм?)(?:\s|\(|$)`), domain.LabelLabor, false},
}

// RegexStrategy matches normative codes against known code families.
type RegexStrategy struct{}

func NewRegexStrategy() *RegexStrategy {
	return &RegexStrategy{}
}

func (*RegexStrategy) Name() string { return "regex" }

func (*RegexStrategy) Classify(_ context.Context, row Row) (*domain.ClassificationResult, error) {
	return matchCode(row.Code), nil
}

func (s *RegexStrategy) ClassifyBatch(_ context.Context, rows []Row, _ *Memo) (map[int]domain.ClassificationResult, error) {
	out := make(map[int]domain.ClassificationResult)
	for i, row := range rows {
		if r := matchCode(row.Code); r != nil {
			out[i] = *r
		}
	}
	return out, nil
}

func matchCode(raw string) *domain.ClassificationResult {
	code := domain.NormalizeCode(raw)
	if code == "" {
		return nil
	}
	for _, p := range codePatterns {
		if !p.re.MatchString(code) {
			continue
		}
		if p.strict {
			return &domain.ClassificationResult{Label: p.label, Confidence: strictConfidence, Source: domain.SourceRegexStrict}
		}
		return &domain.ClassificationResult{Label: p.label, Confidence: looseConfidence, Source: domain.SourceRegexLoose}
	}
	return nil
}
