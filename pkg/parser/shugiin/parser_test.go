package shugiin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

const sampleIndexHTML = `<html><body>
<table>
<tr><th>議案番号</th><th>件名</th><th>提出者</th></tr>
<tr><td>217-1</td><td><a href="/internet/itdb_gian.nsf/html/gian/217-1.htm">テスト法案一号</a></td><td>内閣</td></tr>
<tr><td>217-2</td><td><a href="/internet/itdb_gian.nsf/html/gian/217-2.htm">議員提出テスト法案</a></td><td>議員</td></tr>
</table>
</body></html>`

const sampleDetailHTML = `<html><body>
<h3>要旨</h3>
<p>この法律案は行政手続の効率化を図るため必要な規定を整備するものであり、関係者への影響を最小化しつつ施行することを目的とする。</p>
<h3>提案理由</h3>
<p>近年の行政事務の増大に伴い、効率的な事務処理体制の構築が急務となっていることがこの法案の背景である。</p>
<p>令和5年4月1日 提出</p>
</body></html>`

func TestParseIndex(t *testing.T) {
	seeds, err := ParseIndex([]byte(sampleIndexHTML))
	require.NoError(t, err)
	require.Len(t, seeds, 2)

	assert.Equal(t, "217-1", seeds[0].BillID)
	assert.Contains(t, seeds[0].Title, "テスト法案一号")
	assert.Equal(t, billmodel.SubmitterGovernment, seeds[0].SubmitterKind)
	assert.Contains(t, seeds[0].DetailURL, BaseURL)

	assert.Equal(t, billmodel.SubmitterMember, seeds[1].SubmitterKind)
}

func TestParseDetail(t *testing.T) {
	seeds, err := ParseIndex([]byte(sampleIndexHTML))
	require.NoError(t, err)
	require.NotEmpty(t, seeds)

	rec, err := ParseDetail([]byte(sampleDetailHTML), seeds[0], 217)
	require.NoError(t, err)

	assert.Equal(t, "217-1", rec.BillID)
	assert.Equal(t, billmodel.ChamberShugiin, rec.ChamberOfOrigin)
	assert.Equal(t, 217, rec.SessionNumber)
	assert.NotEmpty(t, rec.Outline)
	assert.NotEmpty(t, rec.Background)
	require.NotNil(t, rec.SubmittedDate)
	assert.Equal(t, 2023, rec.SubmittedDate.Year())
	assert.Greater(t, rec.DataQualityScore, 0.0)
}

func TestParseBillIDNumber(t *testing.T) {
	n, ok := ParseBillIDNumber("217-14")
	require.True(t, ok)
	assert.Equal(t, 14, n)

	_, ok = ParseBillIDNumber("not-a-number")
	assert.False(t, ok)
}
