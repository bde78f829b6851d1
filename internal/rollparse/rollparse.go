// Package rollparse turns the text layer of a bilingual (Marathi/English)
// electoral roll into voter records keyed by EPIC number.
//
// The text is tokenized once into EPIC numbers, field labels and section
// markers, and a single sequential scanner walks the tokens. The scanner
// holds one cursor: the EPIC most recently seen and the fields collected for
// it. The EPIC stays current until the next EPIC token, so a voter card that
// is split across chunks still resolves to the right number.
package rollparse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/EmpoweredVote/ward-backend/internal/textmatch"
)

// ErrNoVotersFound is returned when no EPIC-bearing section yields a usable record.
var ErrNoVotersFound = errors.New("no voter data found; ensure the PDF is a text-based voter list")

// Gender is derived from the bilingual gender label.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Record is one voter card pulled out of the roll text.
type Record struct {
	EPIC            string
	Name            string
	FatherOrHusband string
	HouseNo         string
	Age             *int
	Gender          Gender
	Ward            string
}

// Result holds the deduplicated records in first-seen order.
type Result struct {
	Records []Record
	// EPICsSeen counts every EPIC pattern occurrence in the text, including
	// ones that never produced a record.
	EPICsSeen int
}

var tokenRe = regexp.MustCompile(
	`(?P<epic>[A-Z]{3}/[0-9]{2}/[0-9]{3}/[0-9]{7}|[A-Z]{3}[0-9]{7})` +
		`|(?P<father>(?:वडीलांचे|वडिलांचे|पतीचे|आईचे)\s*(?:नाव|नांव)|(?:Father|Husband|Mother|Guardian|Other)(?:['’]s|s)?\s+Name)\s*[:：]` +
		`|(?P<name>नांव|नाव|Name)\s*[:：]` +
		`|(?:घर\s*क्रमांक|घर\s*क्र\.|House\s+No\.?)\s*[:：]\s*(?P<house>\S+)` +
		`|(?:वय|Age)\s*[:：]\s*(?P<age>[0-9०-९]+)` +
		`|(?:लिंग|Gender)\s*[:：]\s*(?P<gender>स्त्री|पुरुष|Female|Male)` +
		`|(?P<officer>निर्वाचक\s*नोंदणी\s*अधिकारी)` +
		`|(?P<marker>EPIC)`,
)

var multiSpace = regexp.MustCompile(`\s{2,}`)

// Words that only show up in the administrative header of a roll page.
var boilerplate = []string{"नोंदणी", "अधिकारी", "Registration Officer"}

type tokenKind int

const (
	tokEPIC tokenKind = iota
	tokFather
	tokName
	tokHouse
	tokAge
	tokGender
	tokOfficer
	tokMarker
)

var groupKinds = []struct {
	group string
	kind  tokenKind
}{
	{"epic", tokEPIC},
	{"father", tokFather},
	{"name", tokName},
	{"house", tokHouse},
	{"age", tokAge},
	{"gender", tokGender},
	{"officer", tokOfficer},
	{"marker", tokMarker},
}

type token struct {
	kind       tokenKind
	start, end int
	// value is the captured text for EPIC, house, age, gender and officer tokens.
	value string
}

func tokenize(text string) []token {
	matches := tokenRe.FindAllStringSubmatchIndex(text, -1)
	tokens := make([]token, 0, len(matches))
	for _, m := range matches {
		for _, gk := range groupKinds {
			gi := tokenRe.SubexpIndex(gk.group)
			if m[2*gi] < 0 {
				continue
			}
			tokens = append(tokens, token{
				kind:  gk.kind,
				start: m[0],
				end:   m[1],
				value: text[m[2*gi]:m[2*gi+1]],
			})
			break
		}
	}
	return tokens
}

// Parse extracts voter records from the full text of a roll. Every record is
// stamped with ward.
func Parse(text, ward string) (*Result, error) {
	tokens := tokenize(text)

	s := &scanner{ward: ward, index: map[string]int{}}
	for i, tok := range tokens {
		limit := len(text)
		if i+1 < len(tokens) {
			limit = tokens[i+1].start
		}

		switch tok.kind {
		case tokEPIC:
			s.epics++
			s.startEPIC(textmatch.NormalizeEPIC(tok.value))
		case tokName:
			name := labelValue(text, tok.end, limit)
			if name == "" && i+1 < len(tokens) && tokens[i+1].kind == tokOfficer {
				// The officer title is the whole value: a page header, not a voter.
				name = tokens[i+1].value
			}
			s.setName(name)
		case tokFather:
			s.setField(func(r *Record) { r.FatherOrHusband = labelValue(text, tok.end, limit) })
		case tokHouse:
			s.setField(func(r *Record) { r.HouseNo = tok.value })
		case tokAge:
			if age, ok := parseAge(tok.value); ok {
				s.setField(func(r *Record) { r.Age = &age })
			}
		case tokGender:
			g := GenderMale
			if tok.value == "स्त्री" || tok.value == "Female" {
				g = GenderFemale
			}
			s.setField(func(r *Record) { r.Gender = g })
		}
	}
	s.flush()

	if len(s.out) == 0 {
		return nil, ErrNoVotersFound
	}
	return &Result{Records: s.out, EPICsSeen: s.epics}, nil
}

// scanner is the NoEpic / HasEpic state machine. cur == nil is NoEpic.
type scanner struct {
	ward  string
	epics int
	cur   *draft
	index map[string]int
	out   []Record
}

type draft struct {
	rec      Record
	named    bool
	rejected bool
}

func (s *scanner) startEPIC(epic string) {
	s.flush()
	s.cur = &draft{rec: Record{EPIC: epic, Ward: s.ward}}
}

func (s *scanner) setName(name string) {
	if s.cur == nil {
		return
	}
	if s.cur.named || s.cur.rejected {
		// A second name under the same EPIC starts a new card for it.
		epic := s.cur.rec.EPIC
		s.flush()
		s.cur = &draft{rec: Record{EPIC: epic, Ward: s.ward}}
	}

	if isBoilerplate(name) {
		s.cur.rejected = true
		return
	}
	if utf8.RuneCountInString(name) > 2 {
		s.cur.rec.Name = name
		s.cur.named = true
	}
}

func (s *scanner) setField(apply func(*Record)) {
	if s.cur == nil || s.cur.rejected {
		return
	}
	apply(&s.cur.rec)
}

// flush commits the current draft if it is complete. Later records for the
// same EPIC overwrite earlier ones in place.
func (s *scanner) flush() {
	d := s.cur
	s.cur = nil
	if d == nil || d.rejected || !d.named {
		return
	}
	if i, ok := s.index[d.rec.EPIC]; ok {
		s.out[i] = d.rec
		return
	}
	s.index[d.rec.EPIC] = len(s.out)
	s.out = append(s.out, d.rec)
}

// labelValue reads a free-text label value: the rest of the line after the
// label (or up to the next token), cut at the first run of two or more spaces.
func labelValue(text string, from, to int) string {
	seg := strings.TrimLeftFunc(text[from:to], unicode.IsSpace)
	if i := strings.IndexAny(seg, "\r\n"); i >= 0 {
		seg = seg[:i]
	}
	seg = strings.TrimSpace(seg)
	if loc := multiSpace.FindStringIndex(seg); loc != nil {
		seg = seg[:loc[0]]
	}
	return strings.TrimSpace(seg)
}

func isBoilerplate(name string) bool {
	for _, w := range boilerplate {
		if strings.Contains(name, w) {
			return true
		}
	}
	return false
}

// parseAge accepts ASCII and Devanagari digits.
func parseAge(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '०' && r <= '९' {
			r = '0' + (r - '०')
		}
		b.WriteRune(r)
	}
	age, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return age, true
}
