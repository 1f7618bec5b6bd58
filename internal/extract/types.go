// Package extract converts fetched HTML documents into structured records.
// Every function here is pure: HTML text in, record out, no I/O.
package extract

// Sentinel values used when a source field is absent or empty. Callers never
// see a raw unparsed fragment or a nil where a scalar is expected.
const (
	NotAvailable = "N/A"
	Nil          = "Nil"
	Unknown      = "Unknown"
)

// OwnerAmounts holds the per-owner declared amount columns of a disclosure
// table row. Each value is either an amount string from the money routine or
// the Nil sentinel.
type OwnerAmounts struct {
	Self       string `json:"self"`
	Spouse     string `json:"spouse"`
	HUF        string `json:"huf"`
	Dependent1 string `json:"dependent1"`
	Dependent2 string `json:"dependent2"`
	Dependent3 string `json:"dependent3"`
}

// AssetLine is one declared asset row.
type AssetLine struct {
	SerialNo    string `json:"serial_no"`
	Description string `json:"description"`
	OwnerAmounts
	Total string `json:"total"`
}

// LiabilityLine is one declared liability row.
type LiabilityLine struct {
	SerialNo    string `json:"serial_no"`
	Description string `json:"description"`
	OwnerAmounts
	Total string `json:"total"`
}

// IncomeTaxRecord is one filed-return row.
type IncomeTaxRecord struct {
	Relation string `json:"relation"`
	PANGiven string `json:"pan_given"`
	Year     string `json:"year"`
	Income   string `json:"income"`
}

// CriminalCase is one pending-case row from the disclosure.
type CriminalCase struct {
	SerialNo          string `json:"serial_no"`
	FIRNo             string `json:"fir_no"`
	CaseNo            string `json:"case_no"`
	Court             string `json:"court"`
	Sections          string `json:"sections"`
	OtherDetails      string `json:"other_details"`
	ChargesFramed     string `json:"charges_framed"`
	DateChargesFramed string `json:"date_charges_framed"`
	AppealFiled       string `json:"appeal_filed"`
	AppealDetails     string `json:"appeal_details"`
}

// ChargeSummary is one "N charges related to ..." line.
type ChargeSummary struct {
	Count   int    `json:"count"`
	Section string `json:"section"`
}

// ContractsSummary covers declared government contracts per party.
type ContractsSummary struct {
	Candidate        string `json:"candidate"`
	Spouse           string `json:"spouse"`
	Dependents       string `json:"dependents"`
	HUF              string `json:"huf"`
	Partnerships     string `json:"partnerships"`
	PrivateCompanies string `json:"private_companies"`
}

// CandidateInfo is the identity block of an affidavit.
type CandidateInfo struct {
	Name             string `json:"name"`
	Party            string `json:"party"`
	Constituency     string `json:"constituency"`
	Relation         string `json:"relation"`
	Age              int    `json:"age"`
	VoterEnrollment  string `json:"voter_enrollment"`
	Education        string `json:"education"`
	SelfProfession   string `json:"self_profession"`
	SpouseProfession string `json:"spouse_profession"`
}

// AffidavitRecord is the structured form of one election affidavit page.
// List fields are always non-nil; a document lacking a section yields an
// empty list, not an absent one.
type AffidavitRecord struct {
	Candidate         CandidateInfo     `json:"candidate"`
	CriminalCaseCount int               `json:"criminal_case_count"`
	ChargeSummaries   []ChargeSummary   `json:"charge_summaries"`
	CriminalCases     []CriminalCase    `json:"criminal_cases"`
	MovableAssets     []AssetLine       `json:"movable_assets"`
	ImmovableAssets   []AssetLine       `json:"immovable_assets"`
	Liabilities       []LiabilityLine   `json:"liabilities"`
	IncomeTax         []IncomeTaxRecord `json:"income_tax"`
	Contracts         ContractsSummary  `json:"contracts"`
	TotalAssets       string            `json:"total_assets"`
	TotalLiabilities  string            `json:"total_liabilities"`
}

// Performance holds legislative activity metrics; every field is optional on
// the source page and defaults to the NotAvailable sentinel.
type Performance struct {
	Attendance         string `json:"attendance"`
	NationalAttendance string `json:"national_attendance"`
	StateAttendance    string `json:"state_attendance"`
	Debates            string `json:"debates"`
	NationalDebates    string `json:"national_debates"`
	StateDebates       string `json:"state_debates"`
	Questions          string `json:"questions"`
	NationalQuestions  string `json:"national_questions"`
	StateQuestions     string `json:"state_questions"`
	PrivateMemberBills string `json:"private_member_bills"`
	NationalPMB        string `json:"national_pmb"`
}

// Personal holds the profile header details.
type Personal struct {
	Age       string `json:"age"`
	Gender    string `json:"gender"`
	Education string `json:"education"`
	TermStart string `json:"term_start"`
	TermEnd   string `json:"term_end"`
	Terms     string `json:"terms"`
}

// ProfileRecord is the structured form of one legislator profile page.
type ProfileRecord struct {
	State        string      `json:"state"`
	Constituency string      `json:"constituency"`
	Party        string      `json:"party"`
	ImageURL     string      `json:"image_url"`
	Performance  Performance `json:"performance"`
	Personal     Personal    `json:"personal"`
}

// Resolved reports whether the profile carries a meaningful constituency and
// party. A half-resolved profile must never be treated as a successful match.
func (p *ProfileRecord) Resolved() bool {
	if p == nil {
		return false
	}
	return p.Constituency != "" && p.Constituency != Unknown &&
		p.Party != "" && p.Party != Unknown
}
