package plugins

import (
	"testing"

	"github.com/beerscot/beerscot"
	"github.com/beerscot/beerscot/untappd"
	"github.com/stretchr/testify/assert"
)

func TestToastable(t *testing.T) {
	stephen := untappd.User{UID: 1555, UserName: "stephenyeargin"}
	toasted := untappd.Toasts{AuthToast: true}

	checkins := []untappd.Checkin{
		{ID: 1, User: heath, Toasts: toasted},
		{ID: 2, User: heath},
		{ID: 3, User: stephen},
		{ID: 4, User: heath},
		{ID: 5, User: stephen, Toasts: toasted},
	}

	ids := make([]int64, 0)
	for _, c := range toastable(checkins) {
		ids = append(ids, c.ID)
	}

	assert.Equal(t, []int64{2, 3}, ids)
}

func TestToastableKeysOnUserID(t *testing.T) {
	renamed := untappd.User{UID: heath.UID, UserName: "heath_s", FirstName: "heath"}
	namesake := untappd.User{UID: 2200001, UserName: heath.UserName, FirstName: "Other heath"}

	checkins := []untappd.Checkin{
		{ID: 1, User: heath},
		{ID: 2, User: renamed},
		{ID: 3, User: namesake},
	}

	ids := make([]int64, 0)
	for _, c := range toastable(checkins) {
		ids = append(ids, c.ID)
	}

	assert.Equal(t, []int64{1, 3}, ids)
}

func TestToastableWhenAllToasted(t *testing.T) {
	assert.Empty(t, toastable([]untappd.Checkin{{ID: 1, User: heath, Toasts: untappd.Toasts{AuthToast: true}}}))
	assert.Empty(t, toastable(nil))
}

func TestMatchUnknownVerb(t *testing.T) {
	tests := map[string]bool{
		"untappd hops":         true,
		"untappd Beer":         false,
		"untappd prost friend": false,
		"untappd":              false,
		"untappdish":           false,
		"  untappd   wat  ":    true,
		"untappd badges now":   false,
		"untappd badgesnow":    true,
	}

	for text, expected := range tests {
		assert.Equalf(t, expected, matchUnknownVerb(&beerscot.IncomingMessage{NormalizedText: text}), "unexpected match of [%s]", text)
	}
}
