package event

import (
	"fmt"

	"github.com/lysyi3m/race-comb/app/heuristics"
)

// IdentityKey recognises the same event across runs. When the source
// exposes its own identifier the key is (platform, id); otherwise it falls
// back to (platform, normalized title, date). Two distinct events with the
// same title on the same day from one source collide under the fallback.
type IdentityKey struct {
	SourcePlatform string
	SourceEventID  string
	TitleKey       string
	Date           Date
}

func (e CanonicalEvent) Key() IdentityKey {
	if e.SourceEventID != "" {
		return IdentityKey{SourcePlatform: e.SourcePlatform, SourceEventID: e.SourceEventID}
	}
	return IdentityKey{
		SourcePlatform: e.SourcePlatform,
		TitleKey:       heuristics.NormalizeTitle(e.Title),
		Date:           e.Date,
	}
}

// Fallback reports whether the key is the title+date surrogate.
func (k IdentityKey) Fallback() bool {
	return k.SourceEventID == ""
}

func (k IdentityKey) String() string {
	if !k.Fallback() {
		return fmt.Sprintf("%s#%s", k.SourcePlatform, k.SourceEventID)
	}
	return fmt.Sprintf("%s|%s|%s", k.SourcePlatform, k.TitleKey, k.Date)
}
