package ticket

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/civica/ventanilla/internal/domain"
)

// FolioPattern matches every folio produced by the normal creation path:
// a 3-letter type code, the local creation date, and a 4-digit sequence.
var FolioPattern = regexp.MustCompile(`^[A-Z]{3}-\d{8}-\d{4}$`)

const folioDateLayout = "20060102"

// BuildFolio assembles a folio from its parts.
func BuildFolio(code, date string, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", code, date, seq)
}

// FallbackFolio computes a locally-unique folio used when the case-tracking
// store cannot allocate a sequence. The trailing part is a time-of-day stamp
// instead of a store-issued sequence, so uniqueness against the store is not
// guaranteed.
func FallbackFolio(t domain.TicketType, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", t.Code(), now.Format(folioDateLayout), now.Format("150405"))
}

// SequenceOf parses the trailing 4-digit sequence out of a folio.
func SequenceOf(folio string) (int, error) {
	idx := strings.LastIndexByte(folio, '-')
	if idx < 0 || idx == len(folio)-1 {
		return 0, fmt.Errorf("malformed folio %q", folio)
	}
	seq, err := strconv.Atoi(folio[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed folio %q: %w", folio, err)
	}
	return seq, nil
}

// CandidateAfter computes the next sequence number the way the original
// system did: read the last existing folio for a type+date prefix and add
// one. The read and the increment are separate steps, so two concurrent
// creators that observe the same last folio compute the same candidate.
// Retained only to make that hazard demonstrable; the creation path uses the
// store's atomic counter instead.
func CandidateAfter(lastFolio string, found bool) (int, error) {
	if !found {
		return 1, nil
	}
	seq, err := SequenceOf(lastFolio)
	if err != nil {
		return 0, err
	}
	return seq + 1, nil
}
