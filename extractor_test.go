package tendercrawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecExtractor_Relevance(t *testing.T) {
	e := NewSpecExtractor()

	tests := []struct {
		name     string
		text     string
		relevant bool
		keywords []string
	}{
		{name: "unrelated", text: "some unrelated memo", relevant: false, keywords: []string{}},
		{name: "single keyword", text: "유연탄 입찰 공고", relevant: false, keywords: []string{"유연탄"}},
		{name: "two keywords", text: "유연탄 발열량 6000", relevant: true, keywords: []string{"유연탄", "발열량"}},
		{name: "case insensitive", text: "THERMAL COAL, Sulfur 0.8%", relevant: true, keywords: []string{"thermal coal", "sulfur"}},
		{name: "empty", text: "", relevant: false, keywords: []string{}},
		{name: "latin keyword inside a word", text: "cash payment regarding ordinary supplies", relevant: false, keywords: []string{}},
		{name: "latin keyword after digits", text: "6000kcal NAR basis", relevant: true, keywords: []string{"kcal", "NAR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Relevance(tt.text)
			assert.Equal(t, tt.relevant, got.Relevant)
			assert.Equal(t, tt.keywords, got.Keywords)
		})
	}
}

func TestSpecExtractor_MessyKoreanFormat(t *testing.T) {
	spec := NewSpecExtractor().Extract("발열량(kcal/kg):6000이상, 유황분:0.5이하\n회분 :10~12%")

	require.NotNil(t, spec.CalorificMin)
	assert.Equal(t, 6000, *spec.CalorificMin)
	assert.Nil(t, spec.CalorificMax)
	require.NotNil(t, spec.SulfurMax)
	assert.Equal(t, 0.5, *spec.SulfurMax)
	require.NotNil(t, spec.AshMax)
	assert.Equal(t, 10.0, *spec.AshMax)
}

func TestSpecExtractor_EnglishSpecification(t *testing.T) {
	text := `
SPECIFICATION OF COAL

GCV(kcal/kg) : min 6080
Total Sulfur : max 0.8%
Ash Content : max 10.0%
Total Moisture : max 11.5%
Volatile Matter : 22.0-38.0%
`
	spec := NewSpecExtractor().Extract(text)

	require.NotNil(t, spec.CalorificMin)
	assert.Equal(t, 6080, *spec.CalorificMin)
	assert.Nil(t, spec.CalorificMax)
	assert.Equal(t, 0.8, *spec.SulfurMax)
	assert.Equal(t, 10.0, *spec.AshMax)
	assert.Equal(t, 11.5, *spec.MoistureMax)
	assert.Equal(t, 22.0, *spec.VolatileMatter)
	assert.Nil(t, spec.QuantityMT)
	assert.Nil(t, spec.DeliveryTerms)
}

func TestSpecExtractor_KoreanSpecificationSheet(t *testing.T) {
	text := `
[규 격 서]
1. 품명 : 유연탄 (Bituminous Coal)
2. 발열량 (Gross Calorific Value) : 5,800 kcal/kg 이상
3. 유황분 (Sulfur Content) : 1.0 % 이하
4. 회 분 (Ash) : 14.5 % 미만
5. 수 분 (Total Moisture) : 12.0% 이하
6. 휘발분 (Volatile Matter) : 24.0 ~ 35.0 %
`
	spec := NewSpecExtractor().Extract(text)

	require.NotNil(t, spec.CalorificMin)
	assert.Equal(t, 5800, *spec.CalorificMin)
	assert.Equal(t, 1.0, *spec.SulfurMax)
	assert.Equal(t, 14.5, *spec.AshMax)
	assert.Equal(t, 12.0, *spec.MoistureMax)
	assert.Equal(t, 24.0, *spec.VolatileMatter)
}

func TestSpecExtractor_CalorificTwoSlots(t *testing.T) {
	spec := NewSpecExtractor().Extract("발열량 5800kcal 이상, 6200 kcal/kg 이하")

	require.NotNil(t, spec.CalorificMin)
	require.NotNil(t, spec.CalorificMax)
	assert.Equal(t, 5800, *spec.CalorificMin)
	assert.Equal(t, 6200, *spec.CalorificMax)
}

func TestSpecExtractor_TradeTerms(t *testing.T) {
	text := `유연탄 구매 (인도네시아산)
물량 : 150,000 MT
인도조건 : fob Kalimantan
하역항 : 당진항
NAR 4,200 기준`

	spec := NewSpecExtractor().Extract(text)

	require.NotNil(t, spec.QuantityMT)
	assert.Equal(t, 150000.0, *spec.QuantityMT)
	require.NotNil(t, spec.DeliveryTerms)
	assert.Equal(t, FOB, *spec.DeliveryTerms)
	require.NotNil(t, spec.DeliveryPort)
	assert.Equal(t, "당진항", *spec.DeliveryPort)
	require.NotNil(t, spec.Origin)
	assert.Equal(t, "Indonesia", *spec.Origin)
	require.NotNil(t, spec.CalorificBasis)
	assert.Equal(t, "NAR", *spec.CalorificBasis)
}

func TestSpecExtractor_NothingFound(t *testing.T) {
	spec := NewSpecExtractor().Extract("")
	assert.True(t, spec.IsEmpty())
}

func TestSpecExtractor_Analyze(t *testing.T) {
	e := NewSpecExtractor()

	rel, spec := e.Analyze("some unrelated memo")
	assert.False(t, rel.Relevant)
	assert.Nil(t, spec)

	rel, spec = e.Analyze("유연탄 발열량 6000")
	assert.True(t, rel.Relevant)
	require.NotNil(t, spec)
	require.NotNil(t, spec.CalorificMin)
	assert.Equal(t, 6000, *spec.CalorificMin)
}
