package finance

import (
	"fmt"
	"regexp"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
)

// FiscalPeriod identifies one month of the Bangladesh fiscal year (July to
// June), formatted FY{startYear}-{endYear}-P{01..12}. P01 is July of the
// start year, P12 is June of the end year.
type FiscalPeriod string

var fiscalPeriodPattern = regexp.MustCompile(`^FY\d{4}-\d{4}-P(0[1-9]|1[0-2])$`)

// ParseFiscalPeriod validates a caller-supplied fiscal period string.
// Rejected values never reach storage.
func ParseFiscalPeriod(s string) (FiscalPeriod, error) {
	if !fiscalPeriodPattern.MatchString(s) {
		return "", shared.NewDomainError("INVALID_FISCAL_PERIOD",
			fmt.Sprintf("fiscal period %q does not match FY{startYear}-{endYear}-P{01..12}", s))
	}
	fp := FiscalPeriod(s)
	if fp.endYear() != fp.startYear()+1 {
		return "", shared.NewDomainError("INVALID_FISCAL_PERIOD",
			fmt.Sprintf("fiscal period %q must span consecutive years", s))
	}
	return fp, nil
}

// FiscalPeriodOf returns the fiscal period containing the given date
func FiscalPeriodOf(date time.Time) FiscalPeriod {
	year := date.Year()
	month := int(date.Month())
	if month >= 7 {
		// July..December fall in P01..P06 of the fiscal year starting this July
		return FiscalPeriod(fmt.Sprintf("FY%04d-%04d-P%02d", year, year+1, month-6))
	}
	// January..June fall in P07..P12 of the fiscal year started last July
	return FiscalPeriod(fmt.Sprintf("FY%04d-%04d-P%02d", year-1, year, month+6))
}

// String returns the string form
func (fp FiscalPeriod) String() string {
	return string(fp)
}

// IsValid returns true if the period matches the required format
func (fp FiscalPeriod) IsValid() bool {
	_, err := ParseFiscalPeriod(string(fp))
	return err == nil
}

func (fp FiscalPeriod) startYear() int {
	var y int
	fmt.Sscanf(string(fp), "FY%4d", &y)
	return y
}

func (fp FiscalPeriod) endYear() int {
	var s, e int
	fmt.Sscanf(string(fp), "FY%4d-%4d", &s, &e)
	return e
}

// Month returns the calendar month this period maps to
func (fp FiscalPeriod) Month() time.Month {
	var s, e, p int
	fmt.Sscanf(string(fp), "FY%4d-%4d-P%2d", &s, &e, &p)
	if p <= 6 {
		return time.Month(p + 6)
	}
	return time.Month(p - 6)
}
