package csvimport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/sells-group/estate-crm/internal/model"
)

// ClassifyLeadStage maps free text onto the admin lead-stage set. It
// reports false when nothing matches, in which case callers keep their
// default.
func ClassifyLeadStage(s string) (model.LeadStage, bool) {
	v := strings.ToLower(s)
	switch {
	case hasAny(v, "follow", "req"):
		return model.LeadStageFollowUpReq, true
	case strings.Contains(v, "dnp"):
		return model.LeadStageDNP, true
	case strings.Contains(v, "disqualified"):
		return model.LeadStageDisqualified, true
	case hasAny(v, "cb", "callback", "month"):
		return model.LeadStageCallbackLater, true
	}
	return "", false
}

// ClassifyLeadType maps free text onto a lead type, falling back to cold.
func ClassifyLeadType(s string) model.LeadType {
	v := strings.ToLower(s)
	switch {
	case strings.Contains(v, "hot"):
		return model.LeadTypeHot
	case strings.Contains(v, "warm"):
		return model.LeadTypeWarm
	}
	return model.LeadTypeCold
}

var (
	dayFirstDate = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})[-/](\d{4})$`)
	// Longer digit runs would be read as Unix timestamps; they are phone
	// numbers or ids in the wrong column.
	longDigits = regexp.MustCompile(`^\d{9,}$`)
)

// NormalizeDate converts a loosely formatted date to YYYY-MM-DD, or nil when
// it cannot be understood. Ambiguous numeric dates are read month-first;
// strings only valid day-first (15/03/2024) fall through to a D/M/YYYY
// pattern. Impossible calendar dates (31/02/2024) yield nil.
func NormalizeDate(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || longDigits.MatchString(s) {
		return nil
	}

	if t, err := dateparse.ParseIn(s, time.UTC); err == nil && t.Year() >= 1000 && t.Year() <= 9999 {
		out := t.UTC().Format(model.DateLayout)
		return &out
	}

	m := dayFirstDate.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	out := fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
	if _, err := time.Parse(model.DateLayout, out); err != nil {
		return nil
	}
	return &out
}
