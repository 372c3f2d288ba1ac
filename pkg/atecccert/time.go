package atecccert

import (
	"time"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

const (
	utcTimeLayout         = "060102150405Z0700"
	generalizedTimeLayout = "20060102150405Z0700"
)

// addTime adds t as UTCTime for the years 1950 through 2049 and as
// GeneralizedTime otherwise.
func addTime(b *cryptobyte.Builder, t time.Time) {
	t = t.UTC().Truncate(time.Second)
	if y := t.Year(); y >= 1950 && y < 2050 {
		b.AddASN1(asn1.UTCTime, func(b *cryptobyte.Builder) {
			b.AddBytes([]byte(t.Format("060102150405Z")))
		})
		return
	}
	b.AddASN1(asn1.GeneralizedTime, func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(t.Format("20060102150405Z")))
	})
}

func readTime(input *cryptobyte.String) (time.Time, error) {
	var (
		value cryptobyte.String
		tag   asn1.Tag
	)
	if !input.ReadAnyASN1(&value, &tag) {
		return time.Time{}, malformed("time")
	}

	switch tag {
	case asn1.UTCTime:
		t, err := time.Parse(utcTimeLayout, string(value))
		if err != nil {
			return time.Time{}, malformed("utc time")
		}
		// two digit years from 50 are in the 1900s
		if t.Year() >= 2050 {
			t = t.AddDate(-100, 0, 0)
		}
		return t.UTC(), nil
	case asn1.GeneralizedTime:
		t, err := time.Parse(generalizedTimeLayout, string(value))
		if err != nil {
			return time.Time{}, malformed("generalized time")
		}
		return t.UTC(), nil
	default:
		return time.Time{}, malformed("time")
	}
}
