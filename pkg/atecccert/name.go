package atecccert

import (
	encoding_asn1 "encoding/asn1"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	oidCountry            = encoding_asn1.ObjectIdentifier{2, 5, 4, 6}
	oidState              = encoding_asn1.ObjectIdentifier{2, 5, 4, 8}
	oidLocality           = encoding_asn1.ObjectIdentifier{2, 5, 4, 7}
	oidOrganization       = encoding_asn1.ObjectIdentifier{2, 5, 4, 10}
	oidOrganizationalUnit = encoding_asn1.ObjectIdentifier{2, 5, 4, 11}
	oidCommonName         = encoding_asn1.ObjectIdentifier{2, 5, 4, 3}
)

// Name is a distinguished name. Empty attributes are left out.
type Name struct {
	Country            string
	State              string
	Locality           string
	Organization       string
	OrganizationalUnit string
	CommonName         string
}

type attribute struct {
	oid   encoding_asn1.ObjectIdentifier
	value *string
}

func (n *Name) attributes() []attribute {
	return []attribute{
		{oidCountry, &n.Country},
		{oidState, &n.State},
		{oidLocality, &n.Locality},
		{oidOrganization, &n.Organization},
		{oidOrganizationalUnit, &n.OrganizationalUnit},
		{oidCommonName, &n.CommonName},
	}
}

func (n Name) String() string {
	var parts []string
	for _, a := range n.attributes() {
		if *a.value == "" {
			continue
		}
		parts = append(parts, shortName(a.oid)+"="+*a.value)
	}
	return strings.Join(parts, ",")
}

func shortName(oid encoding_asn1.ObjectIdentifier) string {
	switch {
	case oid.Equal(oidCountry):
		return "C"
	case oid.Equal(oidState):
		return "ST"
	case oid.Equal(oidLocality):
		return "L"
	case oid.Equal(oidOrganization):
		return "O"
	case oid.Equal(oidOrganizationalUnit):
		return "OU"
	default:
		return "CN"
	}
}

// isPrintable reports if s only holds PrintableString characters.
func isPrintable(s string) bool {
	for _, c := range s {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case strings.ContainsRune(" '()+,-./:=?", c):
		default:
			return false
		}
	}
	return true
}

func (n Name) marshal(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, a := range n.attributes() {
			value := *a.value
			if value == "" {
				continue
			}
			tag := asn1.UTF8String
			if isPrintable(value) {
				tag = asn1.PrintableString
			}
			b.AddASN1(asn1.SET, func(b *cryptobyte.Builder) {
				b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(a.oid)
					b.AddASN1(tag, func(b *cryptobyte.Builder) {
						b.AddBytes([]byte(value))
					})
				})
			})
		}
	})
}

// readName parses an RDNSequence. Unknown attributes are skipped and only the
// first value of a repeated attribute is kept.
func readName(input *cryptobyte.String) (Name, error) {
	var (
		n    Name
		rdn  cryptobyte.String
		seen = make(map[*string]bool)
	)
	if !input.ReadASN1(&rdn, asn1.SEQUENCE) {
		return n, malformed("name")
	}

	for !rdn.Empty() {
		var set cryptobyte.String
		if !rdn.ReadASN1(&set, asn1.SET) {
			return n, malformed("name")
		}
		for !set.Empty() {
			var (
				atv   cryptobyte.String
				oid   encoding_asn1.ObjectIdentifier
				value cryptobyte.String
				tag   asn1.Tag
			)
			if !set.ReadASN1(&atv, asn1.SEQUENCE) ||
				!atv.ReadASN1ObjectIdentifier(&oid) ||
				!atv.ReadAnyASN1(&value, &tag) {
				return n, malformed("name attribute")
			}
			for _, a := range n.attributes() {
				if a.oid.Equal(oid) && !seen[a.value] {
					*a.value = string(value)
					seen[a.value] = true
				}
			}
		}
	}
	return n, nil
}
