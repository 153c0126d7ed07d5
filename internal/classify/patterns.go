package classify

// AmountFilter restricts a rule to one side of the ledger.
type AmountFilter string

// Amount filter constants.
const (
	AmountAny      AmountFilter = ""
	AmountPositive AmountFilter = "positive"
	AmountNegative AmountFilter = "negative"
)

// Rule maps a set of description patterns to a category with a fixed
// confidence. Patterns are matched against the uppercased description.
type Rule struct {
	Category     string
	AmountFilter AmountFilter
	Patterns     []string
	Confidence   float64
}

// DefaultRules returns the default classification rules for Swedish merchants.
func DefaultRules() []Rule {
	return []Rule{
		// Food & groceries
		{
			Patterns: []string{
				`ICA`, `COOP`, `HEMKÖP`, `WILLYS`, `LIDL`, `NETTO`,
				`SYSTEMBOLAGET`, `SYSTEMBOLAGE`,
			},
			Category:   "Mat",
			Confidence: 0.95,
		},

		// Transportation
		{
			Patterns:   []string{`SL\s`, `^SL$`, `PRESSBYRÅN.*SL`},
			Category:   "Transport",
			Confidence: 0.9,
		},
		{
			Patterns:   []string{`SHELL`, `OKQ8`, `PREEM`, `CIRCLE K`, `QSTAR`},
			Category:   "Transport",
			Confidence: 0.85,
		},
		{
			Patterns:   []string{`PARKERING`, `P-HUS`, `APCOA`},
			Category:   "Transport",
			Confidence: 0.8,
		},

		// Healthcare
		{
			Patterns:   []string{`APOTEKET`, `APOTEK`, `VÅRDCENTRAL`, `FOLKTANDVÅRD`},
			Category:   "Hälsa",
			Confidence: 0.9,
		},

		// Entertainment & dining
		{
			Patterns:   []string{`RESTAURANG`, `CAFÉ`, `PIZZERIA`, `SUSHI`},
			Category:   "Nöje",
			Confidence: 0.8,
		},
		{
			Patterns:   []string{`CINEMA`, `FILMSTADEN`, `SF BIO`},
			Category:   "Nöje",
			Confidence: 0.9,
		},

		// Housing (rent, utilities)
		{
			Patterns:   []string{`HYRA`, `ELNÄT`, `VATTENFALL`, `TELIA`, `BREDBAND`},
			Category:   "Boende",
			Confidence: 0.85,
		},

		// Income, only for positive amounts
		{
			Patterns:     []string{`LÖN`, `SALARY`, `PENSION`},
			Category:     "Inkomst",
			Confidence:   0.95,
			AmountFilter: AmountPositive,
		},
	}
}

// InstantRules returns the expanded high-precision pattern table the hybrid
// classifier consults before anything else.
func InstantRules() []Rule {
	return []Rule{
		{
			Patterns: []string{
				`\bICA\b`, `\bCOOP\b`, `HEMKÖP`, `\bWILLYS\b`,
				`\bLIDL\b`, `\bNETTO\b`, `\bMAXI\b`,
			},
			Category:   "Mat",
			Confidence: 0.95,
		},
		{
			Patterns:   []string{`SYSTEMBOLAGET`, `SYSTEMBOLAGE`},
			Category:   "Mat",
			Confidence: 0.95,
		},
		{
			Patterns: []string{
				`\bSL\b`, `SL\s`, `PRESSBYRÅN.*SL`, `\bMTR\b`,
				`SHELL`, `OKQ8`, `PREEM`, `CIRCLE\s*K`, `QSTAR`, `\bST1\b`,
				`PARKERING`, `P-HUS`, `APCOA`, `TAXI`,
			},
			Category:   "Transport",
			Confidence: 0.90,
		},
		{
			Patterns: []string{
				`MCDONALD`, `BURGER`, `PIZZA`, `RESTAURANG`, `CAFÉ`, `ESPRESSO`,
				`\bKFC\b`, `MAX\s`, `SUBWAY`, `SUSHI`, `THAI`, `INDIAN`,
			},
			Category:   "Nöje",
			Confidence: 0.88,
		},
		{
			Patterns: []string{
				`APOTEKET`, `APOTEK`, `VÅRDCENTRAL`, `FOLKTANDVÅRD`,
				`TANDLÄKARE`, `LÄKARE`,
			},
			Category:   "Hälsa",
			Confidence: 0.92,
		},
		{
			Patterns: []string{
				`VATTENFALL`, `ELNÄT`, `ELHANDEL`, `HYRA`, `BREDBAND`,
				`TELIA`, `TELENOR`, `COMHEM`, `FÖRSÄKRING`,
			},
			Category:   "Boende",
			Confidence: 0.90,
		},
		{
			Patterns: []string{
				`H&M`, `ZARA`, `IKEA`, `ELGIGANTEN`,
				`MEDIAMARKT`, `CLAS\s*OHLSON`,
			},
			Category:   "Övriga",
			Confidence: 0.85,
		},
	}
}
