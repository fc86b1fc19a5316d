package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/smeta/internal/domain"
)

func TestRegexStrategy_Classify(t *testing.T) {
	tests := []struct {
		code       string
		label      domain.Label
		confidence float64
		source     domain.Source
	}{
		{"ГЭСН12-34-5", domain.LabelWork, 1.0, domain.SourceRegexStrict},
		{"ГЭСНм 08-02-001-01", domain.LabelWork, 1.0, domain.SourceRegexStrict},
		{"ФЕРр01-01-001", domain.LabelWork, 1.0, domain.SourceRegexStrict},
		{"01.2.03.04-5678", domain.LabelMaterial, 1.0, domain.SourceRegexStrict},
		{"ФССЦ-01.7.15.06-0111", domain.LabelMaterial, 1.0, domain.SourceRegexStrict},
		{"91.05.01-017", domain.LabelEquipment, 1.0, domain.SourceRegexStrict},
		{"ФСЭМ 91.14.02-001", domain.LabelEquipment, 1.0, domain.SourceRegexStrict},
		{"1-100-20", domain.LabelLabor, 1.0, domain.SourceRegexStrict},
		{"4-100-040", domain.LabelLabor, 0, ""},
		{"  ГЭСН12-34-5  ", domain.LabelWork, 1.0, domain.SourceRegexStrict},

		{"гэсн 46", domain.LabelWork, 0.9, domain.SourceRegexLoose},
		{"Прим. ФЕР", domain.LabelWork, 0.9, domain.SourceRegexLoose},
		{"01.2.03.04", domain.LabelMaterial, 0.9, domain.SourceRegexLoose},
		{"91.01", domain.LabelEquipment, 0.9, domain.SourceRegexLoose},
		{"Прайс-лист поставщика", domain.LabelMaterial, 0.9, domain.SourceRegexLoose},
		{"ОТ(ЗТ)", domain.LabelLabor, 0.9, domain.SourceRegexLoose},
		{"ЗТм", domain.LabelLabor, 0.9, domain.SourceRegexLoose},
	}

	s := NewRegexStrategy()
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := s.Classify(context.Background(), Row{Code: tt.code})
			require.NoError(t, err)
			if tt.source == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, tt.source, got.Source)
		})
	}
}

func TestRegexStrategy_NoMatch(t *testing.T) {
	s := NewRegexStrategy()
	for _, code := range []string{"", "   ", "XYZ-123", "Материал", "12345"} {
		got, err := s.Classify(context.Background(), Row{Code: code})
		require.NoError(t, err)
		assert.Nil(t, got, "code %q", code)
	}
}

func TestRegexStrategy_ClassifyBatchIsSparse(t *testing.T) {
	rows := []Row{
		{Code: "unknown"},
		{Code: "ГЭСН01-01-001"},
		{Code: ""},
		{Code: "91.05.01-017"},
	}
	out, err := NewRegexStrategy().ClassifyBatch(context.Background(), rows, nil)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, domain.LabelWork, out[1].Label)
	assert.Equal(t, domain.LabelEquipment, out[3].Label)
	_, ok := out[0]
	assert.False(t, ok)
}

func TestRegexStrategy_Deterministic(t *testing.T) {
	s := NewRegexStrategy()
	first, _ := s.Classify(context.Background(), Row{Code: "01.2.03.04-5678"})
	for i := 0; i < 20; i++ {
		again, _ := s.Classify(context.Background(), Row{Code: "01.2.03.04-5678"})
		assert.Equal(t, *first, *again)
	}
}
