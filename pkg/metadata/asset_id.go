package metadata

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// AssetID is the printed identifier of a single vial, e.g. KEY-WHYAL-1760000000-9F2C1A7B.
type AssetID struct {
	drug          string
	location      string
	disambiguator string
	random        string
}

const (
	drugCodeLength     = 3
	locationCodeLength = 5
	randomLength       = 8
)

func (a AssetID) String() string {
	return strings.Join([]string{a.drug, a.location, a.disambiguator, a.random}, "-")
}

// NewAssetID builds an identifier that stays unique even when two receipts
// share a disambiguator, because of the random suffix.
func NewAssetID(drugName, locationName string, disambiguator int64) AssetID {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")

	return AssetID{
		drug:          code(drugName, drugCodeLength),
		location:      code(locationName, locationCodeLength),
		disambiguator: strconv.FormatInt(disambiguator, 10),
		random:        strings.ToUpper(random[:randomLength]),
	}
}

func code(name string, length int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if b.Len() == length {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	for b.Len() < length {
		b.WriteByte('X')
	}
	return b.String()
}
