package recurrence

import (
	"strconv"

	"github.com/google/uuid"
)

var occurrenceNamespace = uuid.MustParse("6f1c1a52-3c8e-4d53-9a63-5b0f1f0b7d21")

// OccurrenceKey identifies the occurrence of a template on a day. Real and
// virtual instances of the same occurrence share the key, so merged views
// can drop the virtual one.
func OccurrenceKey(templateID uint, day Date) string {
	return uuid.NewSHA1(occurrenceNamespace, []byte(strconv.FormatUint(uint64(templateID), 10)+"/"+day.String())).String()
}
