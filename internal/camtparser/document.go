package camtparser

import "encoding/xml"

// document is the subset of the ISO 20022 CAMT.053 schema the parser reads.
type document struct {
	XMLName       xml.Name `xml:"Document"`
	BkToCstmrStmt struct {
		Stmt []statement `xml:"Stmt"`
	} `xml:"BkToCstmrStmt"`
}

type statement struct {
	ID   string `xml:"Id"`
	Acct struct {
		ID struct {
			IBAN string `xml:"IBAN"`
			Othr struct {
				ID string `xml:"Id"`
			} `xml:"Othr"`
		} `xml:"Id"`
		Ccy string `xml:"Ccy"`
	} `xml:"Acct"`
	Ntry []entry `xml:"Ntry"`
}

type entry struct {
	NtryRef      string       `xml:"NtryRef"`
	Amt          amount       `xml:"Amt"`
	CdtDbtInd    string       `xml:"CdtDbtInd"`
	Sts          string       `xml:"Sts"`
	BookgDt      entryDate    `xml:"BookgDt"`
	ValDt        entryDate    `xml:"ValDt"`
	AcctSvcrRef  string       `xml:"AcctSvcrRef"`
	NtryDtls     entryDetails `xml:"NtryDtls"`
	AddtlNtryInf string       `xml:"AddtlNtryInf"`
}

type amount struct {
	Value string `xml:",chardata"`
	Ccy   string `xml:"Ccy,attr"`
}

type entryDate struct {
	Dt   string `xml:"Dt"`
	DtTm string `xml:"DtTm"`
}

type entryDetails struct {
	TxDtls []txDetails `xml:"TxDtls"`
}

type txDetails struct {
	Refs struct {
		EndToEndID  string `xml:"EndToEndId"`
		AcctSvcrRef string `xml:"AcctSvcrRef"`
	} `xml:"Refs"`
	RltdPties struct {
		Dbtr struct {
			Nm string `xml:"Nm"`
		} `xml:"Dbtr"`
		Cdtr struct {
			Nm string `xml:"Nm"`
		} `xml:"Cdtr"`
	} `xml:"RltdPties"`
	RmtInf struct {
		Ustrd []string `xml:"Ustrd"`
	} `xml:"RmtInf"`
}

// date returns the entry date, preferring the plain date over the timestamp
// variant.
func (d entryDate) date() string {
	if d.Dt != "" {
		return d.Dt
	}
	if len(d.DtTm) >= 10 {
		return d.DtTm[:10]
	}
	return ""
}
