package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const affidavitFixture = `
<html><body>
<h2>Ramesh Kumar (Winner)</h2>
<h5>Patna Sahib (BIHAR)</h5>
<div class="info"><div>Party: Bharatiya Janata Party</div></div>
<div class="info"><div>S/o|D/o|W/o: Shri Mohan Kumar</div></div>
<div class="info"><div>Age: 54</div></div>
<div class="info"><div>Name Enrolled as Voter in: 182 Patna Sahib constituency</div></div>
<div class="edu">Educational Details Graduate Professional, LLB from Patna University 1992 Crime-O-Meter should not leak</div>

<div id="profession"><table class="w3-table">
<tr><td>Self Profession:</td><td><b>Advocate</b></td></tr>
<tr><td>Spouse Profession:</td><td><b>Teacher</b></td></tr>
</table></div>

<div><div>Number of Criminal Cases: 2</div></div>
<ul>
<li>2 charges related to Criminal intimidation (IPC Section-506)</li>
<li>1 charges related to Cheating (IPC Section-420)</li>
</ul>

<table id="cases">
<tr><th>Serial No.</th></tr>
<tr>
<td>1</td><td>FIR 12/2019</td><td>CC 34/2020</td><td>District Court Patna</td>
<td>506, 420</td><td>Nil</td><td>Yes</td><td>2021-03-01</td><td>No</td><td>Nil</td>
</tr>
</table>

<table id="income_tax">
<tr><th>Relation</th><th>PAN</th><th>Year</th><th>Income</th></tr>
<tr><td>self</td><td>Y</td><td>2023-24</td>
<td><span>Rs 12,40,000</span><br>~ 12 Lacs+</td></tr>
</table>

<table id="movable_assets">
<tr><td>Sr No</td><td>Description</td><td>Self</td><td>Spouse</td><td>HUF</td><td>Dep1</td><td>Dep2</td><td>Dep3</td><td>Total</td></tr>
<tr>
<td>1</td><td>Cash</td>
<td>Rs&nbsp;55,000</td>
<td>Rs 20,000</td><td>Nil</td><td>Nil</td><td></td><td>Nil</td>
<td>75,000&nbsp;~ 75 Thou+</td>
</tr>
<tr>
<td>3</td><td>Deposits in Banks</td>
<td><span class="desc">SBI Patna</span> 2,00,000&nbsp;<br><br><span class="desc">PNB FDR</span> Rs 3,50,000</td>
<td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td>
<td>Rs&nbsp;5,50,000</td>
</tr>
<tr>
<td></td><td>Gross Total Value</td>
<td>Rs 6,25,000</td><td>Rs 20,000</td><td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td>
<td>Rs 6,45,000</td>
</tr>
</table>

<table id="liabilities">
<tr><td>Sr No</td><td>Description</td><td>Self</td><td>Spouse</td><td>HUF</td><td>Dep1</td><td>Dep2</td><td>Dep3</td><td>Total</td></tr>
<tr>
<td>i</td><td>Loans from Banks</td>
<td><span class="desc">HDFC home loan</span> Rs 22,00,000</td>
<td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td>
<td>Rs 22,00,000</td>
</tr>
<tr>
<td>ii</td><td>Govt Dues: dues to departments</td>
<td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td>
<td>Nil</td>
</tr>
<tr>
<td></td><td>Grand Total of Liabilities</td>
<td>Rs 22,00,000</td><td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td>
<td>Rs 22,00,000</td>
</tr>
</table>

<table id="contractdetails">
<tr><td>Details of contracts with candidate</td><td><b>Nil</b></td></tr>
<tr><td>Details of contracts with spouse</td><td><b>Nil</b></td></tr>
</table>

<table class="summary">
<tr><td>Assets:</td><td>Rs 34,50,000 ~ 34 Lacs+</td></tr>
<tr><td>Liabilities:</td><td>Rs 22,00,000 ~ 22 Lacs+</td></tr>
</table>
</body></html>`

func TestParseAffidavit_FullDocument(t *testing.T) {
	t.Parallel()

	rec, err := ParseAffidavit(affidavitFixture)
	require.NoError(t, err)

	assert.Equal(t, "Ramesh Kumar", rec.Candidate.Name)
	assert.Equal(t, "Patna Sahib (BIHAR)", rec.Candidate.Constituency)
	assert.Equal(t, "Bharatiya Janata Party", rec.Candidate.Party)
	assert.Equal(t, "Shri Mohan Kumar", rec.Candidate.Relation)
	assert.Equal(t, 54, rec.Candidate.Age)
	assert.Equal(t, "182 Patna Sahib constituency", rec.Candidate.VoterEnrollment)
	assert.Equal(t, "Advocate", rec.Candidate.SelfProfession)
	assert.Equal(t, "Teacher", rec.Candidate.SpouseProfession)

	assert.Contains(t, rec.Candidate.Education, "Graduate Professional")
	assert.NotContains(t, rec.Candidate.Education, "Crime-O-Meter")

	assert.Equal(t, 2, rec.CriminalCaseCount)
	require.Len(t, rec.ChargeSummaries, 2)
	assert.Equal(t, 2, rec.ChargeSummaries[0].Count)
	assert.Contains(t, rec.ChargeSummaries[0].Section, "Criminal intimidation")

	require.Len(t, rec.CriminalCases, 1)
	assert.Equal(t, "FIR 12/2019", rec.CriminalCases[0].FIRNo)
	assert.Equal(t, "District Court Patna", rec.CriminalCases[0].Court)

	require.Len(t, rec.IncomeTax, 1)
	assert.Equal(t, "self", rec.IncomeTax[0].Relation)
	assert.Equal(t, "2023-24", rec.IncomeTax[0].Year)
	assert.Contains(t, rec.IncomeTax[0].Income, "Rs 12,40,000")
	assert.NotContains(t, rec.IncomeTax[0].Income, "~")

	assert.Equal(t, "Rs 34,50,000 ~ 34 Lacs+", rec.TotalAssets)
	assert.Equal(t, "Rs 22,00,000 ~ 22 Lacs+", rec.TotalLiabilities)
}

func TestParseAffidavit_AggregateRowsExcluded(t *testing.T) {
	t.Parallel()

	rec, err := ParseAffidavit(affidavitFixture)
	require.NoError(t, err)

	require.Len(t, rec.MovableAssets, 2)
	for _, line := range rec.MovableAssets {
		assert.NotContains(t, line.Description, "Gross Total")
	}

	cash := rec.MovableAssets[0]
	assert.Equal(t, "1", cash.SerialNo)
	assert.Equal(t, "Rs 55000", ExtractAmount(cash.Self))
	assert.Equal(t, "Rs 75000", cash.Total)
	assert.Equal(t, Nil, cash.Dependent2)

	deposits := rec.MovableAssets[1]
	assert.Equal(t, "SBI Patna: Rs 200000\nPNB FDR: Rs 350000", deposits.Self)

	require.Len(t, rec.Liabilities, 1)
	assert.Equal(t, "i", rec.Liabilities[0].SerialNo)
	assert.Equal(t, "HDFC home loan: Rs 2200000", rec.Liabilities[0].Self)
}

func TestParseAffidavit_MissingSectionsYieldEmptyLists(t *testing.T) {
	t.Parallel()

	rec, err := ParseAffidavit(`<html><body><h2>Someone</h2></body></html>`)
	require.NoError(t, err)

	assert.NotNil(t, rec.MovableAssets)
	assert.Empty(t, rec.MovableAssets)
	assert.Empty(t, rec.ImmovableAssets)
	assert.Empty(t, rec.Liabilities)
	assert.Empty(t, rec.IncomeTax)
	assert.Empty(t, rec.CriminalCases)
	assert.Equal(t, 0, rec.CriminalCaseCount)

	assert.Equal(t, Unknown, rec.Candidate.Party)
	assert.Equal(t, NotAvailable, rec.Candidate.Education)
	assert.Equal(t, NotAvailable, rec.TotalAssets)
	assert.Equal(t, NotAvailable, rec.Contracts.Candidate)
}

func TestParseAffidavit_PropertyCell(t *testing.T) {
	t.Parallel()

	html := `<table id="immovable_assets">
<tr><td>Sr No</td><td>Description</td><td>Self</td><td>Spouse</td><td>HUF</td><td>Dep1</td><td>Dep2</td><td>Dep3</td><td>Total</td></tr>
<tr>
<td>1</td><td>Agricultural Land</td>
<td><span class="desc">Village Rampur plot 14</span>
Total Area: <span class="immov">2 Acre</span>
Whether Inherited: <span class="immov">Y</span>
45,00,000&nbsp;~ 45 Lacs+</td>
<td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td><td>Nil</td>
<td>Rs 45,00,000</td>
</tr>
</table>`

	rec, err := ParseAffidavit(html)
	require.NoError(t, err)
	require.Len(t, rec.ImmovableAssets, 1)

	self := rec.ImmovableAssets[0].Self
	assert.Contains(t, self, "Village Rampur plot 14")
	assert.Contains(t, self, "Area: 2 Acre")
	assert.Contains(t, self, "Inherited: Yes")
	assert.Contains(t, self, "Value: Rs 4500000")
	assert.Equal(t, "Rs 4500000", rec.ImmovableAssets[0].Total)
}
